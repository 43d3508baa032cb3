package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const appDirName = "gdrive-transfer"

var (
	customConfigDir       string
	customCredentialsPath string
	customTokenPath       string
)

// SetCustomConfigDir overrides the directory searched first for config.yaml.
func SetCustomConfigDir(dir string) {
	customConfigDir = dir
}

// SetCustomCredentialsPath overrides the client secrets file from the config.
func SetCustomCredentialsPath(path string) {
	customCredentialsPath = path
}

// SetCustomTokenPath overrides the token file from the config.
func SetCustomTokenPath(path string) {
	customTokenPath = path
}

// GetConfigDir returns the per-user configuration directory for the application.
func GetConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config directory: %w", err)
	}

	return filepath.Join(base, appDirName), nil
}

// CredentialsPath resolves the client secrets file: flag, then config, then default.
func CredentialsPath(cfg *Config) string {
	if customCredentialsPath != "" {
		return customCredentialsPath
	}

	if cfg != nil && cfg.Auth.CredentialsFile != "" {
		return cfg.Auth.CredentialsFile
	}

	return DefaultCredentialsFile
}

// TokenPath resolves the persisted token file: flag, then config, then default.
func TokenPath(cfg *Config) string {
	if customTokenPath != "" {
		return customTokenPath
	}

	if cfg != nil && cfg.Auth.TokenFile != "" {
		return cfg.Auth.TokenFile
	}

	return DefaultTokenFile
}
