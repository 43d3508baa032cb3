package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"gdrive-transfer/internal/config"
	"gdrive-transfer/internal/google/auth"
	"gdrive-transfer/internal/google/drive"
)

// loadRunConfig loads config.yaml (or the defaults), applies command-line
// overrides and validates the result.
func loadRunConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigOrDefault()
	if err != nil {
		return nil, err
	}

	if folderID != "" {
		id, err := drive.ExtractFileID(folderID)
		if err != nil {
			return nil, fmt.Errorf("invalid --folder: %w", err)
		}

		cfg.Drive.FolderID = id
	}

	if savePath != "" {
		cfg.Download.SavePath = savePath
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newManager builds the credential manager for the configured files and scopes.
func newManager(cfg *config.Config) *auth.Manager {
	return auth.NewManager(config.CredentialsPath(cfg), config.TokenPath(cfg), cfg.Auth.Scopes, slog.Default())
}

// newLister builds a folder lister from the drive section and --modified-since.
func newLister(cfg *config.Config, clients drive.ClientSource) (*drive.Lister, error) {
	opts := drive.ListOptions{
		Corpora:          cfg.Drive.Corpora,
		IncludeAllDrives: cfg.Drive.IncludeAllDrives,
		PageSize:         cfg.Drive.PageSize,
		ExtraQuery:       cfg.Drive.Query,
	}

	if modifiedSince != "" {
		since, err := parseDateTime(modifiedSince, time.Now())
		if err != nil {
			return nil, fmt.Errorf("invalid --modified-since: %w", err)
		}

		opts.ModifiedAfter = since
	}

	return &drive.Lister{
		Clients: clients,
		Options: opts,
		Logger:  slog.Default(),
	}, nil
}

// newDownloader builds a downloader writing progress lines to out.
func newDownloader(cfg *config.Config, clients drive.ClientSource, out io.Writer) (*drive.Downloader, error) {
	chunkSize, err := cfg.Download.ChunkBytes()
	if err != nil {
		return nil, err
	}

	return &drive.Downloader{
		Clients:   clients,
		ChunkSize: chunkSize,
		Out:       out,
		Logger:    slog.Default(),
	}, nil
}
