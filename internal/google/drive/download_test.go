package drive

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestDownloader(t *testing.T, fake *fakeDrive, chunkSize int64) (*Downloader, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	client, opts := fake.start()
	logger, logs := bufferLogger()

	var out bytes.Buffer

	return &Downloader{
		Clients:    &staticClients{client: client},
		ChunkSize:  chunkSize,
		Out:        &out,
		Logger:     logger,
		APIOptions: opts,
	}, &out, logs
}

func TestDownloader_ChunkedDownload(t *testing.T) {
	content := bytes.Repeat([]byte("abcdefghij"), 3)
	fake := newFakeDrive(t, "folder", remoteFile("f1", "report.bin", content))
	d, out, _ := newTestDownloader(t, fake, 10)
	dir := t.TempDir()

	err := d.Download(context.Background(), "f1", "report.bin", dir)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "report.bin"))
	require.NoError(t, err)
	assert.Equal(t, content, got)

	want := "Download 33%.\nDownload 66%.\nDownload 100%.\n" +
		"File 'report.bin' downloaded successfully to '" + filepath.Join(dir, "report.bin") + "'.\n"
	assert.Equal(t, want, out.String())

	assert.Equal(t, []string{"bytes=0-9", "bytes=10-19", "bytes=20-29"}, fake.rangesFor("f1"))
}

func TestDownloader_UnevenLastChunk(t *testing.T) {
	content := []byte("0123456789abc")
	fake := newFakeDrive(t, "folder", remoteFile("f1", "odd.bin", content))
	d, out, _ := newTestDownloader(t, fake, 10)
	dir := t.TempDir()

	require.NoError(t, d.Download(context.Background(), "f1", "odd.bin", dir))

	got, err := os.ReadFile(filepath.Join(dir, "odd.bin"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.True(t, strings.HasPrefix(out.String(), "Download 76%.\nDownload 100%.\n"))
}

func TestDownloader_CreatesMissingDirectories(t *testing.T) {
	fake := newFakeDrive(t, "folder", remoteFile("f1", "a.txt", []byte("hello")))
	d, _, _ := newTestDownloader(t, fake, 0)
	dir := filepath.Join(t.TempDir(), "nested", "deeper")

	require.NoError(t, d.Download(context.Background(), "f1", "a.txt", dir))

	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, []string{"bytes=0-104857599"}, fake.rangesFor("f1"))
}

func TestDownloader_OverwritesExistingFile(t *testing.T) {
	fake := newFakeDrive(t, "folder", remoteFile("f1", "a.txt", []byte("new")))
	d, _, _ := newTestDownloader(t, fake, 0)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")

	require.NoError(t, os.WriteFile(path, []byte("a much longer previous body"), 0o644))
	require.NoError(t, d.Download(context.Background(), "f1", "a.txt", dir))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestDownloader_EmptyFile(t *testing.T) {
	fake := newFakeDrive(t, "folder", remoteFile("f1", "empty.txt", nil))
	d, out, logs := newTestDownloader(t, fake, 10)
	dir := t.TempDir()

	require.NoError(t, d.Download(context.Background(), "f1", "empty.txt", dir))

	info, err := os.Stat(filepath.Join(dir, "empty.txt"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
	assert.Contains(t, out.String(), "Download 0%.\n")
	assert.Contains(t, out.String(), "downloaded successfully")
	assert.NotContains(t, logs.String(), "download failed")
}

func TestDownloader_RemoteFailureMidTransfer(t *testing.T) {
	file := remoteFile("f1", "big.bin", bytes.Repeat([]byte("x"), 30))
	file.FailAfter = 1
	fake := newFakeDrive(t, "folder", file)
	d, out, logs := newTestDownloader(t, fake, 10)
	dir := t.TempDir()

	err := d.Download(context.Background(), "f1", "big.bin", dir)
	require.NoError(t, err)

	assert.Equal(t, "Download 33%.\n", out.String())
	assert.NotContains(t, out.String(), "downloaded successfully")
	assert.Contains(t, logs.String(), "download failed")

	// The partial file stays behind.
	got, err := os.ReadFile(filepath.Join(dir, "big.bin"))
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestDownloader_UnknownFile(t *testing.T) {
	fake := newFakeDrive(t, "folder")
	d, out, logs := newTestDownloader(t, fake, 10)

	require.NoError(t, d.Download(context.Background(), "missing", "x.bin", t.TempDir()))
	assert.Empty(t, out.String())
	assert.Contains(t, logs.String(), "file_id=missing")
}

func TestDownloader_ClientErrorIsReturned(t *testing.T) {
	wantErr := errors.New("consent refused")
	d := &Downloader{Clients: &staticClients{err: wantErr}, Out: &bytes.Buffer{}}
	dir := filepath.Join(t.TempDir(), "never")

	err := d.Download(context.Background(), "f1", "a.txt", dir)
	require.ErrorIs(t, err, wantErr)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloader_UnwritableDestination(t *testing.T) {
	fake := newFakeDrive(t, "folder", remoteFile("f1", "a.txt", []byte("x")))
	d, _, _ := newTestDownloader(t, fake, 10)

	// A regular file where the save directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := d.Download(context.Background(), "f1", "a.txt", blocker)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create save directory")
}

func TestMediaDownload_ContentLengthFallback(t *testing.T) {
	// A server that ignores Range and returns the whole body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "5")
		_, _ = w.Write([]byte("whole"))
	}))
	t.Cleanup(srv.Close)

	svc, err := NewService(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)

	var buf bytes.Buffer

	media := NewMediaDownload(svc, "f1", &buf, 2)

	progress, done, err := media.NextChunk(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, Progress{Received: 5, Total: 5}, progress)
	assert.Equal(t, "whole", buf.String())

	// Further calls are no-ops.
	progress, done, err = media.NextChunk(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, int64(5), progress.Received)
}

func TestParseContentRangeTotal(t *testing.T) {
	tests := []struct {
		header string
		want   int64
		ok     bool
	}{
		{"bytes 0-99/1000", 1000, true},
		{"bytes */0", 0, true},
		{"bytes 0-9/*", 0, false},
		{"", 0, false},
		{"bytes 0-9/-3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := parseContentRangeTotal(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress{Received: 10, Total: -1}.Percent())
	assert.Equal(t, 0, Progress{Received: 0, Total: 0}.Percent())
	assert.Equal(t, 50, Progress{Received: 5, Total: 10}.Percent())
	assert.Equal(t, 100, Progress{Received: 10, Total: 10}.Percent())
	assert.InDelta(t, 0.25, Progress{Received: 1, Total: 4}.Fraction(), 1e-9)
}
