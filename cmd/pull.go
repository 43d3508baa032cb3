package main

import (
	"context"
	"fmt"
	"io"

	"gdrive-transfer/internal/google/drive"

	"github.com/spf13/cobra"
)

type folderLister interface {
	ListFolder(ctx context.Context, folderID string) ([]*drive.Entry, error)
}

type fileDownloader interface {
	Download(ctx context.Context, fileID, fileName, saveDir string) error
}

func runPullCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	manager := newManager(cfg)

	lister, err := newLister(cfg, manager)
	if err != nil {
		return err
	}

	downloader, err := newDownloader(cfg, manager, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	return runPull(cmd.Context(), cmd.OutOrStdout(), lister, downloader, cfg.Drive.FolderID, cfg.Download.SavePath)
}

// runPull lists folderID and downloads every entry into saveDir, one at a
// time. Failed downloads are reported by the downloader and do not stop the
// loop.
func runPull(ctx context.Context, out io.Writer, lister folderLister, downloader fileDownloader, folderID, saveDir string) error {
	fmt.Fprintf(out, "Fetching files from folder with ID: %s\n", folderID)

	entries, err := lister.ListFolder(ctx, folderID)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No files found or an error occurred. Check the folder ID and your permissions.")

		return nil
	}

	fmt.Fprintf(out, "\nFiles and folders found in '%s':\n", folderID)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		printEntry(out, entry)
		fmt.Fprintf(out, "\nStarting download of file: '%s'...\n", entry.Name)

		if err := downloader.Download(ctx, entry.ID, entry.Name, saveDir); err != nil {
			return err
		}
	}

	return nil
}

func printEntry(out io.Writer, entry *drive.Entry) {
	fmt.Fprintf(out, "- Name: %s, ID: %s, Type: %s\n", entry.Name, entry.ID, entry.MimeType)
}
