package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultChunkSize is the number of bytes requested per media chunk.
const DefaultChunkSize int64 = 100 * 1024 * 1024

// MediaDownload fetches a file's content in ranged requests of ChunkSize bytes,
// appending each chunk to a writer. It is not safe for concurrent use.
type MediaDownload struct {
	svc       *Service
	fileID    string
	w         io.Writer
	chunkSize int64

	received int64
	total    int64
	done     bool
}

// NewMediaDownload prepares a download of fileID into w. A non-positive
// chunkSize selects DefaultChunkSize.
func NewMediaDownload(svc *Service, fileID string, w io.Writer, chunkSize int64) *MediaDownload {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &MediaDownload{
		svc:       svc,
		fileID:    fileID,
		w:         w,
		chunkSize: chunkSize,
		total:     -1,
	}
}

// NextChunk fetches and writes the next chunk. done is true once the whole
// file has been written; further calls are no-ops.
func (d *MediaDownload) NextChunk(ctx context.Context) (Progress, bool, error) {
	if d.done {
		return d.progress(), true, nil
	}

	resp, err := d.svc.DownloadRange(ctx, d.fileID, d.received, d.received+d.chunkSize-1)
	if err != nil {
		// An empty file cannot satisfy any range, including one starting at 0.
		if isEmptyRange(err, d.received) {
			d.total = 0
			d.done = true

			return d.progress(), true, nil
		}

		return d.progress(), false, fmt.Errorf("requesting bytes from offset %d: %w", d.received, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	n, err := io.Copy(d.w, resp.Body)
	d.received += n

	if err != nil {
		return d.progress(), false, fmt.Errorf("writing chunk at offset %d: %w", d.received-n, err)
	}

	if total, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
		d.total = total
	} else if resp.ContentLength >= 0 {
		d.total = resp.ContentLength
	} else {
		d.total = -1
	}

	switch {
	case d.total < 0 || d.received >= d.total:
		d.done = true
	case n == 0:
		return d.progress(), false, fmt.Errorf("empty chunk at offset %d of %d", d.received, d.total)
	}

	return d.progress(), d.done, nil
}

func (d *MediaDownload) progress() Progress {
	return Progress{Received: d.received, Total: d.total}
}

func isEmptyRange(err error, offset int64) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusRequestedRangeNotSatisfiable {
		return false
	}

	if total, ok := parseContentRangeTotal(apiErr.Header.Get("Content-Range")); ok {
		return total == 0
	}

	return offset == 0
}

// parseContentRangeTotal returns the complete length from a Content-Range
// header such as "bytes 0-99/1000" or "bytes */0".
func parseContentRangeTotal(header string) (int64, bool) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0, false
	}

	total, err := strconv.ParseInt(strings.TrimSpace(header[idx+1:]), 10, 64)
	if err != nil || total < 0 {
		return 0, false
	}

	return total, true
}

// Downloader saves remote files to local disk, printing progress after every chunk.
type Downloader struct {
	Clients   ClientSource
	ChunkSize int64
	// Out receives progress and completion lines. Defaults to os.Stdout.
	Out        io.Writer
	Logger     *slog.Logger
	APIOptions []option.ClientOption
}

// Download writes fileID to saveDir/fileName, creating saveDir if needed and
// truncating any existing file of that name.
//
// Remote failures are logged and Download returns nil, possibly leaving a
// partial file behind. Errors are returned only when no client can be obtained
// or the destination cannot be prepared.
func (d *Downloader) Download(ctx context.Context, fileID, fileName, saveDir string) error {
	logger := d.logger().With(slog.String("file_id", fileID))

	httpClient, err := d.Clients.Client(ctx)
	if err != nil {
		return err
	}

	svc, err := NewService(ctx, httpClient, d.APIOptions...)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory %s: %w", saveDir, err)
	}

	filePath := filepath.Join(saveDir, fileName)

	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filePath, err)
	}

	defer func() {
		_ = f.Close()
	}()

	media := NewMediaDownload(svc, fileID, f, d.ChunkSize)
	out := d.out()

	for {
		progress, done, err := media.NextChunk(ctx)
		if err != nil {
			logger.Error("download failed",
				slog.String("path", filePath),
				slog.Int64("bytes_written", progress.Received),
				slog.String("error", err.Error()),
			)

			return nil
		}

		fmt.Fprintf(out, "Download %d%%.\n", progress.Percent())

		if done {
			logger.Debug("download complete",
				slog.String("path", filePath),
				slog.String("size", humanize.IBytes(uint64(progress.Received))),
			)

			break
		}
	}

	fmt.Fprintf(out, "File '%s' downloaded successfully to '%s'.\n", fileName, filePath)

	return nil
}

func (d *Downloader) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}

	return os.Stdout
}

func (d *Downloader) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.Default()
}
