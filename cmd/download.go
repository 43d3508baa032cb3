package main

import (
	"context"
	"fmt"
	"log/slog"

	"gdrive-transfer/internal/google/drive"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download <file-id-or-url> [name]",
	Short: "Download a single Drive file",
	Long: `Download one file to the save directory. When no name is given the file's
Drive name is used. An existing local file with the same name is overwritten.

Examples:
  gdrive-transfer download 1x2y3z
  gdrive-transfer download "https://drive.google.com/file/d/1x2y3z/view" report.pdf --save-path ./out`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDownloadCommand,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVar(&savePath, "save-path", "", "Directory the file is written to (overrides download.save_path)")
}

func runDownloadCommand(cmd *cobra.Command, args []string) error {
	fileID, err := drive.ExtractFileID(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	manager := newManager(cfg)

	name := ""
	if len(args) == 2 {
		name = args[1]
	} else {
		name, err = lookupFileName(cmd.Context(), manager, fileID)
		if err != nil {
			return err
		}
	}

	downloader, err := newDownloader(cfg, manager, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	return downloader.Download(cmd.Context(), fileID, name, cfg.Download.SavePath)
}

// lookupFileName fetches the Drive name of fileID to use as the local name.
func lookupFileName(ctx context.Context, clients drive.ClientSource, fileID string) (string, error) {
	client, err := clients.Client(ctx)
	if err != nil {
		return "", err
	}

	svc, err := drive.NewService(ctx, client)
	if err != nil {
		return "", err
	}

	meta, err := svc.GetFileMetadata(ctx, fileID)
	if err != nil {
		return "", err
	}

	slog.Info("resolved file",
		slog.String("file_id", fileID),
		slog.String("name", meta.Name),
		slog.String("size", humanize.IBytes(uint64(max(meta.Size, 0)))),
		slog.String("modified", humanize.Time(meta.ModifiedTime)),
	)

	if meta.Name == "" {
		return "", fmt.Errorf("file %s has no name; pass one explicitly", fileID)
	}

	return meta.Name, nil
}
