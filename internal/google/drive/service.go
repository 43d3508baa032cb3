package drive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	mdconverter "github.com/JohannesKaufmann/html-to-markdown/v2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// listFields are the per-entry fields requested by folder listings.
const listFields = "nextPageToken, files(id, name, mimeType, parents)"

const metadataFields = "id, name, mimeType, parents, size, modifiedTime"

// Google Workspace MIME types.
const (
	MimeTypeFolder             = "application/vnd.google-apps.folder"
	MimeTypeGoogleDoc          = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet        = "application/vnd.google-apps.spreadsheet"
	MimeTypeGooglePresentation = "application/vnd.google-apps.presentation"
)

// Export MIME types.
const (
	MimeTypePlainText = "text/plain"
	MimeTypeHTML      = "text/html"
	MimeTypeCSV       = "text/csv"
)

// Format constants.
const (
	FormatHTML = "html"
	FormatMD   = "md"
	FormatTXT  = "txt"
	FormatCSV  = "csv"
)

// Service wraps the Drive v3 API.
type Service struct {
	client *drive.Service
}

// NewService binds a Drive v3 client to httpClient. Extra options are mainly
// used by tests to point the client at a local server.
func NewService(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Service, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)

	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Service{client: driveService}, nil
}

// GetFileMetadata retrieves metadata for a Google Drive file.
func (s *Service) GetFileMetadata(ctx context.Context, fileID string) (*Entry, error) {
	file, err := s.client.Files.Get(fileID).
		Fields(metadataFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve file metadata: %w", err)
	}

	return convertEntry(file), nil
}

// ListFiles lists files matching the given options, following continuation
// tokens until the last page. An error on any page discards earlier pages.
func (s *Service) ListFiles(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	query := buildQuery(opts)

	corpora := opts.Corpora
	if corpora == "" {
		corpora = "user"
	}

	var entries []*Entry

	pageToken := ""

	for {
		req := s.client.Files.List().
			Q(query).
			Fields(listFields).
			Corpora(corpora).
			Context(ctx)

		if opts.IncludeAllDrives {
			req = req.IncludeItemsFromAllDrives(true).SupportsAllDrives(true)
		}

		if opts.PageSize > 0 {
			req = req.PageSize(int64(opts.PageSize))
		}

		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		result, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list drive files: %w", err)
		}

		for _, f := range result.Files {
			entries = append(entries, convertEntry(f))
		}

		if result.NextPageToken == "" {
			break
		}

		pageToken = result.NextPageToken
	}

	if entries == nil {
		entries = []*Entry{}
	}

	return entries, nil
}

// DownloadRange issues a media request for bytes [start, end] of a file.
// The caller owns the response body.
func (s *Service) DownloadRange(ctx context.Context, fileID string, start, end int64) (*http.Response, error) {
	call := s.client.Files.Get(fileID).SupportsAllDrives(true).Context(ctx)
	call.Header().Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	return call.Download()
}

// ExportDocument exports a Google Workspace document and returns the content as a ReadCloser.
func (s *Service) ExportDocument(ctx context.Context, fileID, exportMimeType string) (io.ReadCloser, error) {
	resp, err := s.client.Files.Export(fileID, exportMimeType).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("unable to export document: %w", err)
	}

	return resp.Body, nil
}

// ExportAsString exports a Google Workspace file as a string. If convertToMarkdown is true
// the exported HTML is converted to Markdown.
func (s *Service) ExportAsString(ctx context.Context, fileID, exportMimeType string, convertToMarkdown bool) (string, error) {
	body, err := s.ExportDocument(ctx, fileID, exportMimeType)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = body.Close()
	}()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read exported content: %w", err)
	}

	if !convertToMarkdown {
		return string(data), nil
	}

	md, err := mdconverter.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}

	return md, nil
}

// IsGoogleWorkspaceFile returns true if the MIME type is one of the three exportable Workspace types.
func IsGoogleWorkspaceFile(mimeType string) bool {
	switch mimeType {
	case MimeTypeGoogleDoc, MimeTypeGoogleSheet, MimeTypeGooglePresentation:
		return true
	}

	return false
}

// GetExportMimeType returns the export MIME type for a Workspace file type and output format.
func GetExportMimeType(fileMimeType, format string) (string, error) {
	switch fileMimeType {
	case MimeTypeGoogleDoc:
		switch format {
		case FormatTXT:
			return MimeTypePlainText, nil
		case FormatHTML, FormatMD:
			return MimeTypeHTML, nil
		default:
			return "", fmt.Errorf("unsupported format '%s' for Google Docs (supported: txt, html, md)", format)
		}
	case MimeTypeGoogleSheet:
		switch format {
		case FormatCSV:
			return MimeTypeCSV, nil
		case FormatHTML:
			return MimeTypeHTML, nil
		default:
			return "", fmt.Errorf("unsupported format '%s' for Google Sheets (supported: csv, html)", format)
		}
	case MimeTypeGooglePresentation:
		switch format {
		case FormatTXT:
			return MimeTypePlainText, nil
		case FormatHTML:
			return MimeTypeHTML, nil
		default:
			return "", fmt.Errorf("unsupported format '%s' for Google Slides (supported: txt, html)", format)
		}
	default:
		return "", fmt.Errorf("unsupported file type: %s (only Google Docs, Sheets, and Slides can be exported)", fileMimeType)
	}
}

// ExtractFileID extracts a file or folder ID from Drive and Docs URLs:
//   - docs.google.com/{document,spreadsheets,presentation}/d/{ID}/...
//   - drive.google.com/file/d/{ID}/...
//   - drive.google.com/drive/folders/{ID}
//   - drive.google.com/open?id={ID}
//
// A bare ID without a scheme or slash is returned unchanged.
func ExtractFileID(rawURL string) (string, error) {
	if rawURL != "" && !strings.ContainsAny(rawURL, "/?") {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("unable to parse URL %q: %w", rawURL, err)
	}

	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "d" || parts[i] == "folders" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("unable to extract file ID from URL: %s", rawURL)
}

// buildQuery constructs a Drive API query string from the given options.
// The returned string is suitable for use as the q parameter in Files.List().
func buildQuery(opts ListOptions) string {
	var parts []string

	if opts.FolderID != "" {
		parts = append(parts, fmt.Sprintf("'%s' in parents", escapeQueryValue(opts.FolderID)))
	}

	// Never include trashed files
	parts = append(parts, "trashed = false")

	if !opts.ModifiedAfter.IsZero() {
		parts = append(parts, fmt.Sprintf("modifiedTime > '%s'", opts.ModifiedAfter.UTC().Format(time.RFC3339)))
	}

	if opts.ExtraQuery != "" {
		parts = append(parts, opts.ExtraQuery)
	}

	return strings.Join(parts, " and ")
}

// escapeQueryValue escapes a value placed inside single quotes in a Drive query.
func escapeQueryValue(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}

// convertEntry converts a Drive API File object to an Entry.
func convertEntry(f *drive.File) *Entry {
	entry := &Entry{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
		Size:     f.Size,
	}

	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			entry.ModifiedTime = t
		}
	}

	return entry
}
