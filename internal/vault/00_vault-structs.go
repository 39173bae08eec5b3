package vault

import (
	vault "github.com/hashicorp/vault/api"
)

// VaultClient reads configuration secrets from a KV v2 mount
type VaultClient struct {
	client *vault.Client
	mount  string
}

// Credentials identify an AppRole login against a Vault server
type Credentials struct {
	Address  string
	RoleID   string
	SecretID string
	// Mount is the KV v2 mount path, "kv" when empty
	Mount string
}
