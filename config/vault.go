package config

import (
	"fmt"

	vault "github.com/hashicorp/vault/api"
)

// loadPrivateKeyFromVault reads the "private_key" entry of a KV v2 secret.
func loadPrivateKeyFromVault(addr, token, path string) (string, error) {
	vc := vault.DefaultConfig()
	vc.Address = addr

	client, err := vault.NewClient(vc)
	if err != nil {
		return "", fmt.Errorf("create vault client: %w", err)
	}
	client.SetToken(token)

	secret, err := client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("read vault secret %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault secret %s not found", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// KV v1 mounts return the fields at the top level
		data = secret.Data
	}
	key, ok := data["private_key"].(string)
	if !ok || key == "" {
		return "", fmt.Errorf("vault secret %s has no private_key", path)
	}
	return key, nil
}
