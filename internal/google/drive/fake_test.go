package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

// fakeFile is a remote file served by fakeDrive.
type fakeFile struct {
	ID       string
	Name     string
	MimeType string
	Content  []byte
	// FailAfter makes media requests fail once this many chunks were served (-1 = never).
	FailAfter int
}

// fakeDrive is a minimal stand-in for the Drive v3 files endpoints.
type fakeDrive struct {
	t        *testing.T
	folderID string
	files    []*fakeFile
	pageSize int
	// failListPage makes the listing page with this index return 404 (-1 = never).
	failListPage int

	mu          sync.Mutex
	listQueries []url.Values
	ranges      map[string][]string
	served      map[string]int
}

func newFakeDrive(t *testing.T, folderID string, files ...*fakeFile) *fakeDrive {
	t.Helper()

	return &fakeDrive{
		t:            t,
		folderID:     folderID,
		files:        files,
		pageSize:     100,
		failListPage: -1,
		ranges:       make(map[string][]string),
		served:       make(map[string]int),
	}
}

// start serves the fake and returns options pointing a Drive client at it.
func (f *fakeDrive) start() (*http.Client, []option.ClientOption) {
	f.t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", f.handleList)
	mux.HandleFunc("GET /files/{id}", f.handleGet)

	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)

	return srv.Client(), []option.ClientOption{option.WithEndpoint(srv.URL + "/")}
}

func (f *fakeDrive) handleList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.listQueries = append(f.listQueries, r.URL.Query())
	f.mu.Unlock()

	page := 0
	if token := r.URL.Query().Get("pageToken"); token != "" {
		page, _ = strconv.Atoi(strings.TrimPrefix(token, "page-"))
	}

	if page == f.failListPage {
		writeAPIError(w, http.StatusNotFound, "File not found: "+f.folderID)

		return
	}

	size := f.pageSize
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		size, _ = strconv.Atoi(ps)
	}

	var inFolder []*fakeFile

	if strings.Contains(r.URL.Query().Get("q"), "'"+f.folderID+"' in parents") {
		inFolder = f.files
	}

	start := min(page*size, len(inFolder))
	end := min(start+size, len(inFolder))

	files := make([]map[string]any, 0, end-start)
	for _, ff := range inFolder[start:end] {
		files = append(files, map[string]any{
			"id":       ff.ID,
			"name":     ff.Name,
			"mimeType": ff.MimeType,
			"parents":  []string{f.folderID},
		})
	}

	body := map[string]any{"files": files}
	if end < len(inFolder) {
		body["nextPageToken"] = fmt.Sprintf("page-%d", page+1)
	}

	writeJSON(w, body)
}

func (f *fakeDrive) handleGet(w http.ResponseWriter, r *http.Request) {
	ff := f.lookup(r.PathValue("id"))
	if ff == nil {
		writeAPIError(w, http.StatusNotFound, "File not found: "+r.PathValue("id"))

		return
	}

	if r.URL.Query().Get("alt") != "media" {
		writeJSON(w, map[string]any{
			"id":           ff.ID,
			"name":         ff.Name,
			"mimeType":     ff.MimeType,
			"size":         strconv.Itoa(len(ff.Content)),
			"modifiedTime": "2025-06-01T12:00:00.000Z",
		})

		return
	}

	f.mu.Lock()
	f.ranges[ff.ID] = append(f.ranges[ff.ID], r.Header.Get("Range"))
	served := f.served[ff.ID]
	f.served[ff.ID]++
	f.mu.Unlock()

	if ff.FailAfter >= 0 && served >= ff.FailAfter {
		writeAPIError(w, http.StatusForbidden, "Only files with binary content can be downloaded.")

		return
	}

	total := int64(len(ff.Content))

	start, end, ok := parseRange(r.Header.Get("Range"))
	if !ok {
		w.Header().Set("Content-Length", strconv.FormatInt(total, 10))
		_, _ = w.Write(ff.Content)

		return
	}

	if start >= total {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", total))
		writeAPIError(w, http.StatusRequestedRangeNotSatisfiable, "Request range not satisfiable")

		return
	}

	end = min(end, total-1)

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, total))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(ff.Content[start : end+1])
}

func (f *fakeDrive) lookup(id string) *fakeFile {
	for _, ff := range f.files {
		if ff.ID == id {
			return ff
		}
	}

	return nil
}

func (f *fakeDrive) rangesFor(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.ranges[id]...)
}

func parseRange(header string) (int64, int64, bool) {
	byteRange, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, false
	}

	from, to, ok := strings.Cut(byteRange, "-")
	if !ok {
		return 0, 0, false
	}

	start, err1 := strconv.ParseInt(from, 10, 64)
	end, err2 := strconv.ParseInt(to, 10, 64)

	if err1 != nil || err2 != nil {
		return 0, 0, false
	}

	return start, end, true
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

// staticClients hands out the same client on every call.
type staticClients struct {
	client *http.Client
	err    error
	calls  int
}

func (s *staticClients) Client(context.Context) (*http.Client, error) {
	s.calls++

	return s.client, s.err
}

func remoteFile(id, name string, content []byte) *fakeFile {
	return &fakeFile{ID: id, Name: name, MimeType: "application/octet-stream", Content: content, FailAfter: -1}
}
