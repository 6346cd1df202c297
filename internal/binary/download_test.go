package binary

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDownloaderDownloadToFile(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
	}{
		{
			name:       "successful_download",
			statusCode: http.StatusOK,
			body:       "test binary content",
			wantErr:    false,
		},
		{
			name:       "404_not_found",
			statusCode: http.StatusNotFound,
			body:       "not found",
			wantErr:    true,
		},
		{
			name:       "500_server_error",
			statusCode: http.StatusInternalServerError,
			body:       "server error",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") != DefaultUserAgent {
					t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Errorf("failed to write response: %v", err)
				}
			}))
			defer server.Close()

			tmpDir := t.TempDir()
			downloader := NewDownloader(DownloaderConfig{})

			destPath := filepath.Join(tmpDir, "test-file")
			err := downloader.DownloadToFile(context.Background(), server.URL, destPath)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				if _, statErr := os.Stat(destPath); !os.IsNotExist(statErr) {
					t.Error("failed download left a file at the destination")
				}
				if _, statErr := os.Stat(destPath + ".tmp"); !os.IsNotExist(statErr) {
					t.Error("failed download left a temp file behind")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			content, err := os.ReadFile(destPath)
			if err != nil {
				t.Fatalf("failed to read downloaded file: %v", err)
			}

			if string(content) != tt.body {
				t.Errorf("content mismatch:\ngot:  %q\nwant: %q", string(content), tt.body)
			}
		})
	}
}

// truncatedBody announces a 1000-byte body, sends a few bytes and drops
// the connection.
func truncatedBody(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("partial")); err != nil {
			t.Errorf("write partial body: %v", err)
			return
		}
		w.(http.Flusher).Flush()

		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		conn.Close()
	}
}

func TestDownloaderTruncatedBody(t *testing.T) {
	server := httptest.NewServer(truncatedBody(t))
	defer server.Close()

	var events []Progress
	downloader := NewDownloader(DownloaderConfig{
		OnProgress: func(p Progress) { events = append(events, p) },
	})

	tmpDir := t.TempDir()
	_, err := downloader.DownloadToDir(context.Background(), server.URL+"/jq-linux-amd64", tmpDir)
	if err == nil {
		t.Fatal("expected error for a body cut off mid-transfer")
	}
	if !strings.Contains(err.Error(), "unexpected EOF") {
		t.Errorf("error = %v, want unexpected EOF", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("destination dir has %d entries after a truncated download", len(entries))
	}
	for _, p := range events {
		if p.Done {
			t.Error("truncated download reported completion")
		}
	}
}

func TestDownloaderNoRetriesByDefault(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	downloader := NewDownloader(DownloaderConfig{})
	err := downloader.DownloadToFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "f"))

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestDownloaderRetryLogic(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("success")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	downloader := NewDownloader(DownloaderConfig{Retries: 1})

	destPath := filepath.Join(tmpDir, "test-file")
	err := downloader.DownloadToFile(context.Background(), server.URL, destPath)

	if err != nil {
		t.Fatalf("expected success after retry, got error: %v", err)
	}

	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}

	content, _ := os.ReadFile(destPath)
	if string(content) != "success" {
		t.Errorf("unexpected content: %s", string(content))
	}
}

func TestDownloaderContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Simulate slow response
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("too late"))
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	downloader := NewDownloader(DownloaderConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	destPath := filepath.Join(tmpDir, "test-file")
	err := downloader.DownloadToFile(ctx, server.URL, destPath)

	if err == nil {
		t.Fatal("expected context cancellation error")
	}

	if !strings.Contains(err.Error(), "context") {
		t.Errorf("expected context error, got: %v", err)
	}
}

func TestDownloaderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	downloader := NewDownloader(DownloaderConfig{Timeout: 20 * time.Millisecond})
	err := downloader.DownloadToFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "f"))
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestDownloaderDownloadToDir(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("asset:" + r.URL.Path))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "nested", "bin")
	downloader := NewDownloader(DownloaderConfig{})

	path, err := downloader.DownloadToDir(context.Background(), server.URL+"/jq-1.7.1/jq-linux-amd64", dir)
	if err != nil {
		t.Fatalf("DownloadToDir() error = %v", err)
	}

	if want := filepath.Join(dir, "jq-linux-amd64"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "asset:/jq-1.7.1/jq-linux-amd64" {
		t.Errorf("unexpected content: %s", content)
	}
}

func TestDownloaderProgress(t *testing.T) {
	body := strings.Repeat("x", 64*1024)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	t.Run("throttled with final notification", func(t *testing.T) {
		var mu sync.Mutex
		var events []Progress

		downloader := NewDownloader(DownloaderConfig{
			ProgressInterval: time.Hour,
			OnProgress: func(p Progress) {
				mu.Lock()
				events = append(events, p)
				mu.Unlock()
			},
		})

		if err := downloader.DownloadToFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "f")); err != nil {
			t.Fatalf("download failed: %v", err)
		}

		// With an hour-long interval only the first read and the final
		// notification get through.
		if len(events) != 2 {
			t.Fatalf("got %d progress events, want 2: %+v", len(events), events)
		}

		last := events[len(events)-1]
		if !last.Done || last.Percent() != 100 {
			t.Errorf("final event = %+v, want done at 100%%", last)
		}
		if last.Downloaded != int64(len(body)) || last.Total != int64(len(body)) {
			t.Errorf("final event bytes = %d/%d, want %d", last.Downloaded, last.Total, len(body))
		}
		if events[0].Done {
			t.Error("first event should not be marked done")
		}
	})

	t.Run("no callback on failure", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer failing.Close()

		called := false
		downloader := NewDownloader(DownloaderConfig{OnProgress: func(Progress) { called = true }})

		if err := downloader.DownloadToFile(context.Background(), failing.URL, filepath.Join(t.TempDir(), "f")); err == nil {
			t.Fatal("expected error")
		}
		if called {
			t.Error("progress reported for a failed request")
		}
	})
}

func TestDownloaderRedirectHandling(t *testing.T) {
	redirectCount := 0
	finalContent := "final content after redirects"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if redirectCount < 3 {
			redirectCount++
			http.Redirect(w, r, fmt.Sprintf("/redirect-%d", redirectCount), http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(finalContent))
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	downloader := NewDownloader(DownloaderConfig{})

	destPath := filepath.Join(tmpDir, "redirected-file")
	if err := downloader.DownloadToFile(context.Background(), server.URL, destPath); err != nil {
		t.Fatalf("download with redirects failed: %v", err)
	}

	content, _ := os.ReadFile(destPath)
	if string(content) != finalContent {
		t.Errorf("unexpected content after redirects: %s", string(content))
	}

	if redirectCount != 3 {
		t.Errorf("expected 3 redirects, got %d", redirectCount)
	}
}

func TestDownloaderTooManyRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	downloader := NewDownloader(DownloaderConfig{})
	err := downloader.DownloadToFile(context.Background(), server.URL+"/a", filepath.Join(t.TempDir(), "f"))
	if err == nil || !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("expected redirect error, got %v", err)
	}
}

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://github.com/jqlang/jq/releases/download/jq-1.7.1/jq-linux-amd64", "jq-linux-amd64", false},
		{"https://github.com/jqlang/jq/releases/download/jq-1.7.1/jq-1.7.1.tar.gz", "jq-1.7.1.tar.gz", false},
		{"https://example.com/a/b.exe?token=1", "b.exe", false},
		{"https://example.com/", "", true},
		{"https://example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := fileNameFromURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("fileNameFromURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("fileNameFromURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()

	nonEmpty := filepath.Join(tmpDir, "non-empty")
	if err := os.WriteFile(nonEmpty, []byte("content"), 0644); err != nil {
		t.Fatal(err)
	}

	empty := filepath.Join(tmpDir, "empty")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"non_empty_file", nonEmpty, true},
		{"empty_file", empty, false},
		{"directory", tmpDir, false},
		{"missing", filepath.Join(tmpDir, "missing"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := fileExists(tt.path); result != tt.expected {
				t.Errorf("fileExists(%s) = %v, want %v", tt.path, result, tt.expected)
			}
		})
	}
}
