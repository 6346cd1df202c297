package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ReleaseServer serves release assets from memory and records every
// request path.
type ReleaseServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	requests []string
}

// NewReleaseServer starts a server for files, keyed by path below the
// release base URL (e.g. "jq-1.7.1/jq-linux-amd64"). Unknown paths get 404.
// The server is closed when the test ends.
func NewReleaseServer(t *testing.T, files map[string][]byte) *ReleaseServer {
	t.Helper()

	rs := &ReleaseServer{files: make(map[string][]byte, len(files))}
	for k, v := range files {
		rs.files[k] = v
	}

	rs.Server = httptest.NewServer(http.HandlerFunc(rs.serve))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *ReleaseServer) serve(w http.ResponseWriter, r *http.Request) {
	rs.mu.Lock()
	rs.requests = append(rs.requests, r.URL.Path)
	body, ok := rs.files[strings.TrimPrefix(r.URL.Path, "/download/")]
	rs.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(body)
}

// BaseURL is the release base URL, with a trailing slash.
func (rs *ReleaseServer) BaseURL() string {
	return rs.URL + "/download/"
}

// Set adds or replaces a file.
func (rs *ReleaseServer) Set(path string, body []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.files[path] = body
}

// Requests returns the request paths seen so far.
func (rs *ReleaseServer) Requests() []string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]string(nil), rs.requests...)
}
