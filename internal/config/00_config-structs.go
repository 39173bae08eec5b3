package config

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds the application configuration settings
type Config struct {
	// Host is the interface the HTTP server binds to
	Host string `json:"host"`
	// Port specifies the HTTP server port
	Port string `json:"port"`
	// WorkDir is scanned for playbooks and is the working directory of runs
	WorkDir string `json:"work_dir"`
	// AnsibleBin is the playbook runner executable
	AnsibleBin string `json:"ansible_bin"`
	// ExecTimeout bounds a single playbook run
	ExecTimeout time.Duration `json:"exec_timeout"`
	// RateLimit is the number of run/sync requests allowed per second
	RateLimit int `json:"rate_limit"`
	// RestrictToCatalog limits runs to playbooks found by the catalog scan
	RestrictToCatalog bool   `json:"restrict_to_catalog"`
	LogLevel          string `json:"log_level"`

	// Playbook repository sync
	RepoURL             string `json:"repo_url"`
	RepoBranch          string `json:"repo_branch"`
	SyncIntervalMinutes int    `json:"sync_interval_minutes"`

	// GitHub App credentials for private playbook repositories
	AppID          int    `json:"app_id"`
	InstallationID int    `json:"installation_id"`
	PrivateKey     string `json:"private_key"`
	APIBaseURL     string `json:"api_base_url"`

	// SSHPrivateKeyFile is passed as --private-key to runs against remote hosts
	SSHPrivateKeyFile string `json:"ssh_private_key_file"`
	// SSHKeyVaultPath holds a private_key read when no key file is configured
	SSHKeyVaultPath string `json:"ssh_key_vault_path"`
}

// SecretSource reads a map of values stored under a path.
type SecretSource interface {
	GetSecret(path string) (map[string]interface{}, error)
}

// Manager handles configuration loading and management
type Manager struct {
	v      *viper.Viper
	logger zerolog.Logger
}
