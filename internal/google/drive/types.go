package drive

import (
	"context"
	"net/http"
	"time"
)

// ClientSource yields an authenticated HTTP client for the Drive API. Lister
// and Downloader ask for a fresh client on every call.
type ClientSource interface {
	Client(ctx context.Context) (*http.Client, error)
}

// ListOptions controls how a folder listing query is built.
type ListOptions struct {
	// FolderID limits listing to direct children of a folder; empty means no folder filter.
	FolderID string
	// ModifiedAfter filters files to those modified after this time (zero = no filter).
	ModifiedAfter time.Time
	// Corpora selects the bodies of items the query applies to ("user" by default).
	Corpora string
	// IncludeAllDrives makes items on shared drives visible.
	IncludeAllDrives bool
	// PageSize is the number of results per page (0 = server default, max 1000).
	PageSize int
	// ExtraQuery is appended with AND to the generated query.
	ExtraQuery string
}

// Entry is one file or folder returned by a listing call.
type Entry struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string

	// Only filled by metadata lookups.
	Size         int64
	ModifiedTime time.Time
}

// IsFolder reports whether the entry is a Drive folder.
func (e *Entry) IsFolder() bool {
	return e.MimeType == MimeTypeFolder
}

// Progress is the state of a chunked download after one chunk.
type Progress struct {
	Received int64
	// Total is -1 while unknown.
	Total int64
}

// Fraction returns the completed fraction in [0, 1], or 0 when the total is
// unknown or zero.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}

	return float64(p.Received) / float64(p.Total)
}

// Percent returns the whole completed percentage.
func (p Progress) Percent() int {
	return int(p.Fraction() * 100)
}
