// Package testutil provides fixtures shared by distboot's end-to-end tests:
// distribution archives built on disk and an HTTP server that publishes them.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glorpus-work/distboot/internal/logger"
	"github.com/glorpus-work/distboot/pkg/archive"
)

// TestServer serves the files of a directory over HTTP.
type TestServer struct {
	Server *httptest.Server
	URL    string

	mu       sync.Mutex
	requests map[string]int
	username string
	password string
}

// NewTestServer starts a server for dir and stops it when the test ends.
func NewTestServer(t *testing.T, dir string) *TestServer {
	t.Helper()
	ts := &TestServer{requests: make(map[string]int)}
	files := http.FileServer(http.Dir(dir))
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.mu.Lock()
		ts.requests[r.URL.Path]++
		username, password := ts.username, ts.password
		ts.mu.Unlock()

		if username != "" {
			u, p, ok := r.BasicAuth()
			if !ok || u != username || p != password {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		files.ServeHTTP(w, r)
	}))
	ts.URL = ts.Server.URL
	t.Cleanup(ts.Server.Close)
	return ts
}

// RequireBasicAuth makes the server reject requests without these credentials.
func (ts *TestServer) RequireBasicAuth(username, password string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.username, ts.password = username, password
}

// Requests returns how often path was requested.
func (ts *TestServer) Requests(path string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.requests[path]
}

// BuildDistribution writes an archive at archivePath containing a single root
// directory with bin/mvn inside. The archive format follows the extension.
func BuildDistribution(t *testing.T, archivePath, rootName string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src")
	bin := filepath.Join(src, rootName, "bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", bin, err)
	}
	if err := os.WriteFile(filepath.Join(bin, "mvn"), []byte("#!/bin/sh\necho "+rootName+"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write launcher: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		t.Fatalf("Failed to create archive directory: %v", err)
	}
	if err := archive.NewManager().Create(context.Background(), src, archivePath); err != nil {
		t.Fatalf("Failed to create archive %s: %v", archivePath, err)
	}
	logger.Debugf("Built test distribution %s", archivePath)
}
