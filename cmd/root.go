package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gdrive-transfer/internal/config"

	"github.com/spf13/cobra"
)

var (
	credentialsPath string
	tokenPath       string
	configDir       string
	debugMode       bool
	folderID        string
	savePath        string
	modifiedSince   string
)

var rootCmd = &cobra.Command{
	Use:   "gdrive-transfer",
	Short: "List a Google Drive folder and download every file in it",
	Long: `gdrive-transfer authenticates against Google Drive, lists the direct children
of a folder and downloads each of them to a local directory.

Running gdrive-transfer without a subcommand pulls the configured folder.

Commands:
  list      List the entries of a folder without downloading
  download  Download a single file by ID or URL
  fetch     Print a Drive document to stdout
  auth      Authenticate and show the stored credential`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if debugMode {
			level = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		if credentialsPath != "" {
			config.SetCustomCredentialsPath(credentialsPath)
		}

		if tokenPath != "" {
			config.SetCustomTokenPath(tokenPath)
		}

		if configDir != "" {
			config.SetCustomConfigDir(configDir)
		}
	},
	RunE: runPullCommand,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&credentialsPath, "credentials", "c", "", "Path to credentials.json file")
	rootCmd.PersistentFlags().StringVar(&tokenPath, "token", "", "Path to the stored token file (default token.json)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Custom configuration directory")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Enable debug logging")

	rootCmd.Flags().StringVar(&folderID, "folder", "", "Folder ID or URL to pull (overrides drive.folder_id)")
	rootCmd.Flags().StringVar(&savePath, "save-path", "", "Directory downloads are written to (overrides download.save_path)")
	rootCmd.Flags().StringVar(&modifiedSince, "modified-since", "", "Only pull files modified after this date (ISO 8601, '7d', 'yesterday', 'last week')")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
