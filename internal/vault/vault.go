package vault

import (
	"errors"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

const (
	defaultAddress = "http://127.0.0.1:8200"
	defaultMount   = "kv"
)

// NewClient logs in with AppRole credentials taken from VAULT_ADDR,
// VAULT_ROLE_ID, VAULT_SECRET_ID and VAULT_KV_MOUNT.
func NewClient() (*VaultClient, error) {
	return NewClientWithCredentials(Credentials{
		Address:  os.Getenv("VAULT_ADDR"),
		RoleID:   os.Getenv("VAULT_ROLE_ID"),
		SecretID: os.Getenv("VAULT_SECRET_ID"),
		Mount:    os.Getenv("VAULT_KV_MOUNT"),
	})
}

// NewClientWithCredentials logs in to Vault and returns an authenticated client.
func NewClientWithCredentials(creds Credentials) (*VaultClient, error) {
	logger := log.With().Str("component", "vault").Logger()
	logger.Info().Msg("Initializing Vault client")

	if creds.Address == "" {
		creds.Address = defaultAddress
		logger.Debug().Str("vault_addr", creds.Address).Msg("Using default Vault address")
	} else {
		logger.Debug().Str("vault_addr", creds.Address).Msg("Using configured Vault address")
	}
	if creds.Mount == "" {
		creds.Mount = defaultMount
	}

	if creds.RoleID == "" || creds.SecretID == "" {
		logger.Debug().
			Bool("role_id_set", creds.RoleID != "").
			Bool("secret_id_set", creds.SecretID != "").
			Msg("Required Vault credentials not set")
		return nil, fmt.Errorf("VAULT_ROLE_ID and VAULT_SECRET_ID must be set")
	}

	config := vault.DefaultConfig()
	config.Address = creds.Address
	config.MaxRetries = 0

	client, err := vault.NewClient(config)
	if err != nil {
		logger.Error().Err(err).Str("vault_addr", creds.Address).Msg("Failed to create Vault client")
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	logger.Debug().
		Str("role_id", maskString(creds.RoleID)).
		Str("secret_id", maskString(creds.SecretID)).
		Msg("Vault credentials found, attempting authentication")

	loginSecret, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
		"role_id":   creds.RoleID,
		"secret_id": creds.SecretID,
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("role_id", maskString(creds.RoleID)).
			Str("vault_addr", creds.Address).
			Msg("Failed to authenticate with Vault")
		return nil, fmt.Errorf("failed to login to vault: %w", err)
	}
	if loginSecret == nil || loginSecret.Auth == nil {
		return nil, fmt.Errorf("failed to login to vault: no auth info returned")
	}

	client.SetToken(loginSecret.Auth.ClientToken)
	logger.Info().
		Str("vault_addr", creds.Address).
		Dur("lease_duration", time.Duration(loginSecret.Auth.LeaseDuration)*time.Second).
		Msg("Vault client initialized successfully")

	return &VaultClient{client: client, mount: creds.Mount}, nil
}

// GetSecret reads the data stored at path in the KV v2 mount.
func (c *VaultClient) GetSecret(path string) (map[string]interface{}, error) {
	logger := log.With().Str("component", "vault").Logger()
	fullPath := fmt.Sprintf("%s/data/%s", c.mount, path)

	logger.Debug().
		Str("path", path).
		Str("full_path", fullPath).
		Msg("Retrieving secret from Vault")

	secret, err := c.client.Logical().Read(fullPath)
	if err != nil {
		logger.Error().
			Err(err).
			Str("path", path).
			Str("full_path", fullPath).
			Msg("Failed to read secret from Vault")
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		logger.Warn().
			Str("path", path).
			Str("full_path", fullPath).
			Msg("Secret not found in Vault")
		return nil, fmt.Errorf("secret not found: %s", path)
	}

	// For KV v2, the data is nested under the "data" key
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		logger.Error().
			Str("path", path).
			Str("full_path", fullPath).
			Msg("Invalid secret data format")
		return nil, fmt.Errorf("invalid secret data format")
	}

	logger.Debug().
		Str("path", path).
		Int("data_keys", len(data)).
		Msg("Secret retrieved successfully")

	return data, nil
}

// GetSSHKey reads the private_key field stored at path in the KV v2 mount.
func (c *VaultClient) GetSSHKey(path string) (string, error) {
	logger := log.With().Str("component", "vault").Logger()

	data, err := c.GetSecret(path)
	if err != nil {
		return "", fmt.Errorf("failed to read SSH key from Vault: %w", err)
	}

	key, ok := data["private_key"].(string)
	if !ok || key == "" {
		logger.Error().Str("path", path).Msg("Invalid SSH key data format")
		return "", fmt.Errorf("invalid SSH key data format")
	}
	// Encrypted keys are accepted; ansible prompts for or is given the passphrase.
	if _, err := ssh.ParseRawPrivateKey([]byte(key)); err != nil {
		var passphrase *ssh.PassphraseMissingError
		if !errors.As(err, &passphrase) {
			logger.Error().Err(err).Str("path", path).Msg("Invalid SSH key format")
			return "", fmt.Errorf("invalid SSH key format: %w", err)
		}
	}

	logger.Debug().Str("path", path).Msg("SSH key retrieved successfully")
	return key, nil
}

// maskString returns a masked version of a string for logging
func maskString(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
