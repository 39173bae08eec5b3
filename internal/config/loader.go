package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	keyHost                = "host"
	keyPort                = "port"
	keyWorkDir             = "work_dir"
	keyAnsibleBin          = "ansible_bin"
	keyExecTimeout         = "exec_timeout"
	keyRateLimit           = "rate_limit"
	keyRestrictToCatalog   = "restrict_to_catalog"
	keyLogLevel            = "log_level"
	keyRepoURL             = "repo_url"
	keyRepoBranch          = "repo_branch"
	keySyncIntervalMinutes = "sync_interval_minutes"
	keyAppID               = "app_id"
	keyInstallationID      = "installation_id"
	keyPrivateKey          = "private_key"
	keyAPIBaseURL          = "api_base_url"
	keySSHPrivateKeyFile   = "ssh_private_key_file"
	keySSHKeyVaultPath     = "ssh_key_vault_path"
	keyAPIVaultPath        = "api_vault_path"
	keyGithubVaultPath     = "github_vault_path"
)

// envNames maps each configuration key to its environment variable.
var envNames = map[string]string{
	keyHost:                "HOST",
	keyPort:                "PORT",
	keyWorkDir:             "PLAYBOOK_DIR",
	keyAnsibleBin:          "ANSIBLE_PLAYBOOK_BIN",
	keyExecTimeout:         "EXEC_TIMEOUT",
	keyRateLimit:           "RATE_LIMIT_REQUESTS_PER_SECOND",
	keyRestrictToCatalog:   "RESTRICT_TO_CATALOG",
	keyLogLevel:            "LOG_LEVEL",
	keyRepoURL:             "PLAYBOOK_REPO_URL",
	keyRepoBranch:          "PLAYBOOK_REPO_BRANCH",
	keySyncIntervalMinutes: "SYNC_INTERVAL_MINUTES",
	keyAppID:               "GITHUB_APP_ID",
	keyInstallationID:      "GITHUB_INSTALLATION_ID",
	keyPrivateKey:          "GITHUB_PRIVATE_KEY",
	keyAPIBaseURL:          "GITHUB_API_BASE_URL",
	keySSHPrivateKeyFile:   "ANSIBLE_PRIVATE_KEY_FILE",
	keySSHKeyVaultPath:     "SSH_KEY_VAULT_PATH",
	keyAPIVaultPath:        "API_VAULT_PATH",
	keyGithubVaultPath:     "GITHUB_VAULT_PATH",
}

var defaults = map[string]interface{}{
	keyHost:                "0.0.0.0",
	keyPort:                "5000",
	keyWorkDir:             ".",
	keyAnsibleBin:          "ansible-playbook",
	keyExecTimeout:         "5m",
	keyRateLimit:           10,
	keyRestrictToCatalog:   false,
	keyLogLevel:            "info",
	keyRepoBranch:          "main",
	keySyncIntervalMinutes: 0,
	keyAPIBaseURL:          "https://api.github.com",
	keyAPIVaultPath:        "ansible/webui",
	keyGithubVaultPath:     "ansible/github",
	keySSHKeyVaultPath:     "ansible/ssh-key",
}

// NewManager creates a configuration manager. Environment bindings and
// defaults are registered on v; a nil v gets a fresh viper instance.
func NewManager(v *viper.Viper) *Manager {
	if v == nil {
		v = viper.New()
	}
	for key, env := range envNames {
		_ = v.BindEnv(key, env)
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return &Manager{
		v:      v,
		logger: log.With().Str("component", "config").Logger(),
	}
}

// BindFlags binds every flag whose name matches a configuration key, with
// dashes standing in for underscores (e.g. --work-dir).
func (m *Manager) BindFlags(fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if _, known := envNames[key]; !known {
			return
		}
		if err := m.v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// SetConfigFile reads an optional YAML/JSON/TOML file as the lowest-priority
// source above defaults.
func (m *Manager) SetConfigFile(path string) error {
	if path == "" {
		return nil
	}
	m.v.SetConfigFile(path)
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	m.logger.Info().Str("config_file", path).Msg("Loaded configuration file")
	return nil
}

// LoadConfiguration resolves the configuration. Values found in secrets
// override flags, environment, config file and defaults. A nil secrets source
// is skipped.
func (m *Manager) LoadConfiguration(secrets SecretSource) (*Config, error) {
	if secrets != nil {
		m.loadFromSecrets(secrets, m.v.GetString(keyAPIVaultPath))
		m.loadFromSecrets(secrets, m.v.GetString(keyGithubVaultPath))
	}

	timeout, err := parseTimeout(m.v.GetString(keyExecTimeout))
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:                m.v.GetString(keyHost),
		Port:                m.v.GetString(keyPort),
		WorkDir:             m.v.GetString(keyWorkDir),
		AnsibleBin:          m.v.GetString(keyAnsibleBin),
		ExecTimeout:         timeout,
		RateLimit:           m.v.GetInt(keyRateLimit),
		RestrictToCatalog:   m.v.GetBool(keyRestrictToCatalog),
		LogLevel:            m.v.GetString(keyLogLevel),
		RepoURL:             m.v.GetString(keyRepoURL),
		RepoBranch:          m.v.GetString(keyRepoBranch),
		SyncIntervalMinutes: m.v.GetInt(keySyncIntervalMinutes),
		AppID:               m.v.GetInt(keyAppID),
		InstallationID:      m.v.GetInt(keyInstallationID),
		PrivateKey:          m.v.GetString(keyPrivateKey),
		APIBaseURL:          m.v.GetString(keyAPIBaseURL),
		SSHPrivateKeyFile:   m.v.GetString(keySSHPrivateKeyFile),
		SSHKeyVaultPath:     m.v.GetString(keySSHKeyVaultPath),
	}, nil
}

// loadFromSecrets copies known keys stored under path into the highest
// priority layer.
func (m *Manager) loadFromSecrets(secrets SecretSource, path string) {
	values, err := secrets.GetSecret(path)
	if err != nil {
		m.logger.Info().Err(err).Str("path", path).Msg("Configuration not found in Vault, will use environment variables")
		return
	}

	applied := 0
	for key, value := range values {
		if _, known := envNames[key]; !known || isVaultPathKey(key) {
			m.logger.Debug().Str("path", path).Str("key", key).Msg("Ignoring unknown Vault configuration key")
			continue
		}
		m.v.Set(key, value)
		applied++
	}
	m.logger.Info().Str("path", path).Int("keys", applied).Msg("Loaded configuration from Vault")
}

// isVaultPathKey reports whether key locates other secrets; such keys are
// never taken from Vault itself.
func isVaultPathKey(key string) bool {
	return key == keyAPIVaultPath || key == keyGithubVaultPath || key == keySSHKeyVaultPath
}

// parseTimeout accepts a Go duration ("90s", "5m") or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid exec timeout %q: %w", raw, err)
	}
	return d, nil
}
