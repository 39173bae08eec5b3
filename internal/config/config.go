package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port number: %s", c.Port)
	}

	if c.ExecTimeout <= 0 {
		return fmt.Errorf("exec timeout must be positive, got %s", c.ExecTimeout)
	}

	if c.RateLimit < 1 {
		return fmt.Errorf("rate limit must be at least 1, got %d", c.RateLimit)
	}

	if c.SyncIntervalMinutes < 0 {
		return fmt.Errorf("sync interval must not be negative, got %d", c.SyncIntervalMinutes)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	if c.SSHPrivateKeyFile != "" {
		if _, err := os.Stat(c.SSHPrivateKeyFile); err != nil {
			return fmt.Errorf("ssh private key file %s: %w", c.SSHPrivateKeyFile, err)
		}
	}

	info, err := os.Stat(c.WorkDir)
	if err != nil {
		return fmt.Errorf("playbook directory %s: %w", c.WorkDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("playbook directory %s is not a directory", c.WorkDir)
	}

	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// GithubAppConfigured reports whether GitHub App credentials are complete.
func (c *Config) GithubAppConfigured() bool {
	return c.AppID != 0 && c.InstallationID != 0 && c.PrivateKey != ""
}
