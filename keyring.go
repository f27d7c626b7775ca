package main

import (
	"errors"
	"fmt"
	"log/slog"

	gokeyring "github.com/zalando/go-keyring"
)

const keyringService = "dev.hopesy.cade"

func apiKeyName(provider string) string {
	return "apikey_" + provider
}

// SaveAPIKeyToKeyring securely stores API keys in the OS keyring
func SaveAPIKeyToKeyring(provider, apiKey string) error {
	if err := gokeyring.Set(keyringService, apiKeyName(provider), apiKey); err != nil {
		return fmt.Errorf("failed to store API key in keyring: %w", err)
	}
	return nil
}

// GetAPIKeyFromKeyring retrieves API keys from the OS keyring. A missing
// entry is not an error.
func GetAPIKeyFromKeyring(provider string) (string, error) {
	apiKey, err := gokeyring.Get(keyringService, apiKeyName(provider))
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to retrieve API key from keyring: %w", err)
	}
	return apiKey, nil
}

// DeleteAPIKeyFromKeyring removes API keys from the OS keyring
func DeleteAPIKeyFromKeyring(provider string) error {
	err := gokeyring.Delete(keyringService, apiKeyName(provider))
	if err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
		return fmt.Errorf("failed to delete API key from keyring: %w", err)
	}
	return nil
}

// resolveAPIKey fills config.LLM.APIKey from the keyring when neither the
// config files nor the environment provided one.
func resolveAPIKey(config *Config) {
	if config.LLM.APIKey != "" {
		return
	}
	key, err := GetAPIKeyFromKeyring(config.LLM.Provider)
	if err != nil {
		slog.Warn("keyring lookup failed", "provider", config.LLM.Provider, "error", err)
		return
	}
	config.LLM.APIKey = key
}
