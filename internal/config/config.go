package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const ConfigFileName = "config.yaml"

// DefaultFolderID is the folder pulled when neither the config file nor --folder names one.
const DefaultFolderID = "1sFGFpjVvtkeuSv5MxKjXj8O7qGtS4Ez_"

// DriveScope grants full read/write access to the user's Drive.
const DriveScope = "https://www.googleapis.com/auth/drive"

const (
	DefaultSavePath        = "./downloadsgoogle"
	DefaultCredentialsFile = "credentials.json"
	DefaultTokenFile       = "token.json"
	DefaultChunkSize       = "100MiB"
	DefaultCorpora         = "user"
)

// Config represents the application configuration.
type Config struct {
	Drive    DriveConfig    `json:"drive"    yaml:"drive"`
	Auth     AuthConfig     `json:"auth"     yaml:"auth"`
	Download DownloadConfig `json:"download" yaml:"download"`
}

// DriveConfig controls which folder is listed and how.
type DriveConfig struct {
	FolderID string `json:"folder_id" yaml:"folder_id"`
	// "user", "drive", "domain" or "allDrives"
	Corpora          string `json:"corpora"            yaml:"corpora"`
	IncludeAllDrives bool   `json:"include_all_drives" yaml:"include_all_drives"`
	// 0 lets the server pick
	PageSize int `json:"page_size" yaml:"page_size"`
	// Appended with AND to the generated listing query
	Query string `json:"query" yaml:"query"`
}

type AuthConfig struct {
	CredentialsFile string   `json:"credentials_file" yaml:"credentials_file"`
	TokenFile       string   `json:"token_file"       yaml:"token_file"`
	Scopes          []string `json:"scopes"           yaml:"scopes"`
}

type DownloadConfig struct {
	SavePath string `json:"save_path" yaml:"save_path"`
	// Human readable size, e.g. "100MiB" or "8MB"
	ChunkSize string `json:"chunk_size" yaml:"chunk_size"`
}

// ChunkBytes returns the configured chunk size in bytes.
func (d DownloadConfig) ChunkBytes() (int64, error) {
	raw := d.ChunkSize
	if raw == "" {
		raw = DefaultChunkSize
	}

	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid chunk_size %q: %w", raw, err)
	}

	if n == 0 {
		return 0, fmt.Errorf("chunk_size must be greater than zero")
	}

	return int64(n), nil
}

// ErrNoConfigFile is returned by LoadConfig when none of the search paths holds a config file.
var ErrNoConfigFile = errors.New("no config file found")

// ErrConfigExists is returned by CreateDefaultConfig when it would overwrite a file.
var ErrConfigExists = errors.New("config file already exists")

// LoadConfig loads the first config.yaml found in the search paths: the
// custom config dir, the user config dir, then the working directory.
func LoadConfig() (*Config, error) {
	path, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return loadConfigFromFile(path)
}

// LoadConfigOrDefault is LoadConfig with GetDefaultConfig standing in for a
// missing file. Read and parse errors are still reported.
func LoadConfigOrDefault() (*Config, error) {
	cfg, err := LoadConfig()
	if errors.Is(err, ErrNoConfigFile) {
		return GetDefaultConfig(), nil
	}

	return cfg, err
}

// FindConfigFile returns the config file LoadConfig would read.
func FindConfigFile() (string, error) {
	paths := getConfigSearchPaths()

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w in %s", ErrNoConfigFile, strings.Join(paths, ", "))
}

// SaveConfig writes cfg as YAML to the config dir and returns the file path.
func SaveConfig(cfg *Config) (string, error) {
	path, err := configWritePath()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Drive: DriveConfig{
			FolderID:         DefaultFolderID,
			Corpora:          DefaultCorpora,
			IncludeAllDrives: true,
		},
		Auth: AuthConfig{
			CredentialsFile: DefaultCredentialsFile,
			TokenFile:       DefaultTokenFile,
			Scopes:          []string{DriveScope},
		},
		Download: DownloadConfig{
			SavePath:  DefaultSavePath,
			ChunkSize: DefaultChunkSize,
		},
	}
}

// CreateDefaultConfig writes the defaults to the config dir. An existing
// file is only replaced when force is set.
func CreateDefaultConfig(force bool) (string, error) {
	path, err := configWritePath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	return SaveConfig(GetDefaultConfig())
}

// getConfigSearchPaths returns the list of paths to search for config files.
func getConfigSearchPaths() []string {
	var paths []string

	if customConfigDir != "" {
		paths = append(paths, filepath.Join(customConfigDir, ConfigFileName))
	}

	if globalConfigDir, err := GetConfigDir(); err == nil {
		paths = append(paths, filepath.Join(globalConfigDir, ConfigFileName))
	}

	paths = append(paths, ConfigFileName)

	return paths
}

// configWritePath is where SaveConfig writes: the custom config dir when set,
// otherwise the user config dir.
func configWritePath() (string, error) {
	dir := customConfigDir
	if dir == "" {
		var err error

		if dir, err = GetConfigDir(); err != nil {
			return "", err
		}
	}

	return filepath.Join(dir, ConfigFileName), nil
}

// loadConfigFromFile loads configuration from a specific file. Keys missing
// from the file keep their default values.
func loadConfigFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if err := validateDriveConfig(&cfg.Drive); err != nil {
		return fmt.Errorf("drive configuration error: %w", err)
	}

	if err := validateAuthConfig(&cfg.Auth); err != nil {
		return fmt.Errorf("auth configuration error: %w", err)
	}

	if err := validateDownloadConfig(&cfg.Download); err != nil {
		return fmt.Errorf("download configuration error: %w", err)
	}

	return nil
}

func validateDriveConfig(drive *DriveConfig) error {
	if strings.TrimSpace(drive.FolderID) == "" {
		return fmt.Errorf("folder_id is required (open the folder in Drive, the id follows \"folders/\" in the URL)")
	}

	switch drive.Corpora {
	case "", "user", "drive", "domain", "allDrives":
	default:
		return fmt.Errorf("invalid corpora %q (supported: user, drive, domain, allDrives)", drive.Corpora)
	}

	if drive.PageSize < 0 || drive.PageSize > 1000 {
		return fmt.Errorf("page_size must be between 0 and 1000, got %d", drive.PageSize)
	}

	return nil
}

func validateAuthConfig(auth *AuthConfig) error {
	if auth.CredentialsFile == "" {
		return fmt.Errorf("credentials_file is required")
	}

	if auth.TokenFile == "" {
		return fmt.Errorf("token_file is required")
	}

	if len(auth.Scopes) == 0 {
		return fmt.Errorf("at least one scope is required")
	}

	return nil
}

func validateDownloadConfig(download *DownloadConfig) error {
	if download.SavePath == "" {
		return fmt.Errorf("save_path is required")
	}

	if _, err := download.ChunkBytes(); err != nil {
		return err
	}

	return nil
}
