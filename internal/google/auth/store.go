package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const (
	tokenFilePerms = 0o600
	tokenDirPerms  = 0o700
)

// LoadCredential reads an authorized-user credential from path.
// Returns (nil, nil) if the file does not exist.
func LoadCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // absent token file is not an error
	}

	if err != nil {
		return nil, fmt.Errorf("auth: reading %s: %w", path, err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("auth: decoding %s: %w", path, err)
	}

	var missing []string

	if cred.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}

	if cred.ClientID == "" {
		missing = append(missing, "client_id")
	}

	if cred.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("auth: %s is missing %v (delete it to authorize again)", path, missing)
	}

	return &cred, nil
}

// SaveCredential writes cred to path, replacing any previous content. The
// file is swapped in atomically so a crash never leaves a truncated token.
func SaveCredential(path string, cred *Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("auth: encoding credential: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, tokenDirPerms); err != nil {
		return fmt.Errorf("auth: creating directory %s: %w", dir, err)
	}

	if err := renameio.WriteFile(path, data, tokenFilePerms); err != nil {
		return fmt.Errorf("auth: writing %s: %w", path, err)
	}

	return nil
}

// DeleteCredential removes the token file. A missing file is not an error.
func DeleteCredential(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("auth: removing %s: %w", path, err)
	}

	return nil
}
