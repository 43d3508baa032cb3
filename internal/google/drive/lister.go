package drive

import (
	"context"
	"log/slog"

	"google.golang.org/api/option"
)

// Lister enumerates the direct children of a folder.
type Lister struct {
	Clients ClientSource
	// Options is the listing template; FolderID is filled in per call.
	Options ListOptions
	Logger  *slog.Logger
	// APIOptions are passed to NewService for every call.
	APIOptions []option.ClientOption
}

// ListFolder returns every non-trashed entry whose parent is folderID.
//
// A failed remote call is logged and yields an empty result: entries from
// pages fetched before the failure are dropped. The returned error is
// reserved for failures to obtain credentials or construct the client.
func (l *Lister) ListFolder(ctx context.Context, folderID string) ([]*Entry, error) {
	logger := l.logger()

	httpClient, err := l.Clients.Client(ctx)
	if err != nil {
		return nil, err
	}

	svc, err := NewService(ctx, httpClient, l.APIOptions...)
	if err != nil {
		return nil, err
	}

	opts := l.Options
	opts.FolderID = folderID

	entries, err := svc.ListFiles(ctx, opts)
	if err != nil {
		logger.Error("listing folder failed",
			slog.String("folder_id", folderID),
			slog.String("error", err.Error()),
		)

		return []*Entry{}, nil
	}

	logger.Debug("listed folder",
		slog.String("folder_id", folderID),
		slog.Int("entries", len(entries)),
	)

	return entries, nil
}

func (l *Lister) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}

	return slog.Default()
}
