package main

import (
	"context"
	"fmt"
	"io"

	"gdrive-transfer/internal/google/drive"

	"github.com/spf13/cobra"
)

var (
	fetchFormat string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <URL>",
	Short: "Fetch a Google Drive file by URL and output it to stdout",
	Long: `Fetch a Google Drive file by URL and output its content to stdout.

Supports Google Docs, Sheets, Slides and Drive file URLs:
  - docs.google.com/document/d/{ID}/edit
  - docs.google.com/spreadsheets/d/{ID}/edit
  - docs.google.com/presentation/d/{ID}/edit
  - drive.google.com/file/d/{ID}/view
  - drive.google.com/open?id={ID}

Google Workspace files are exported in the requested format:
  - txt  : Plain text (default)
  - md   : Markdown (converts HTML to markdown)
  - html : HTML
  - csv  : CSV (for spreadsheets only)

Any other file is streamed as-is and --format is ignored.

Examples:
  gdrive-transfer fetch "https://docs.google.com/document/d/abc123/edit"
  gdrive-transfer fetch "https://docs.google.com/document/d/abc123/edit" --format md
  gdrive-transfer fetch "https://drive.google.com/file/d/xyz789/view" > data.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runFetchCommand,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchFormat, "format", drive.FormatTXT, "Export format for Google Workspace files (txt, md, html, csv)")
}

func runFetchCommand(cmd *cobra.Command, args []string) error {
	fileID, err := drive.ExtractFileID(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	chunkSize, err := cfg.Download.ChunkBytes()
	if err != nil {
		return err
	}

	client, err := newManager(cfg).Client(cmd.Context())
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	svc, err := drive.NewService(cmd.Context(), client)
	if err != nil {
		return fmt.Errorf("failed to create drive service: %w", err)
	}

	return fetchFile(cmd.Context(), cmd.OutOrStdout(), svc, fileID, fetchFormat, chunkSize)
}

// fetchFile writes the content of fileID to out: Workspace files are exported
// in format, everything else is downloaded in chunks.
func fetchFile(ctx context.Context, out io.Writer, svc *drive.Service, fileID, format string, chunkSize int64) error {
	metadata, err := svc.GetFileMetadata(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file metadata: %w", err)
	}

	if !drive.IsGoogleWorkspaceFile(metadata.MimeType) {
		if metadata.IsFolder() {
			return fmt.Errorf("%s is a folder; use 'list' instead", fileID)
		}

		return streamFile(ctx, out, svc, fileID, chunkSize)
	}

	exportMimeType, err := drive.GetExportMimeType(metadata.MimeType, format)
	if err != nil {
		return err
	}

	content, err := svc.ExportAsString(ctx, fileID, exportMimeType, format == drive.FormatMD)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(out, content)

	return err
}

func streamFile(ctx context.Context, out io.Writer, svc *drive.Service, fileID string, chunkSize int64) error {
	media := drive.NewMediaDownload(svc, fileID, out, chunkSize)

	for {
		_, done, err := media.NextChunk(ctx)
		if err != nil {
			return fmt.Errorf("failed to download file: %w", err)
		}

		if done {
			return nil
		}
	}
}
