package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jqinstall/jq-install/internal/config"
)

const (
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "jq-install/1.0"
	// maxRedirects caps redirect chains; GitHub release assets redirect once.
	maxRedirects = 10
)

// DownloaderConfig configures a Downloader.
type DownloaderConfig struct {
	// Timeout bounds each request, body included. Zero disables it.
	Timeout time.Duration
	// Retries is the number of extra attempts after a failure.
	Retries int
	// UserAgent overrides DefaultUserAgent.
	UserAgent string
	// ProgressInterval throttles OnProgress. Zero reports every read.
	ProgressInterval time.Duration
	// OnProgress, if set, receives throttled progress notifications and
	// a final one when a transfer completes.
	OnProgress ProgressFunc
	// Logger receives retry diagnostics.
	Logger config.Logger
}

// Downloader handles HTTP downloads.
type Downloader struct {
	client     *http.Client
	userAgent  string
	retries    int
	interval   time.Duration
	onProgress ProgressFunc
	logger     config.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(cfg DownloaderConfig) *Downloader {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = config.NopLogger()
	}

	return &Downloader{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent:  userAgent,
		retries:    cfg.Retries,
		interval:   cfg.ProgressInterval,
		onProgress: cfg.OnProgress,
		logger:     logger,
	}
}

// DownloadToDir downloads a URL into dir, naming the file after the last
// URL path segment. It returns the path of the downloaded file.
func (d *Downloader) DownloadToDir(ctx context.Context, rawURL, dir string) (string, error) {
	name, err := fileNameFromURL(rawURL)
	if err != nil {
		return "", err
	}

	destPath := filepath.Join(dir, name)
	if err := d.DownloadToFile(ctx, rawURL, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

// DownloadToFile downloads a URL to a specific file path. The body is
// written to destPath+".tmp" and renamed on success; on failure nothing
// is left at destPath.
func (d *Downloader) DownloadToFile(ctx context.Context, rawURL, destPath string) error {
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			d.logger.Warn("download failed, retrying", "url", rawURL, "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := d.downloadOnce(ctx, rawURL, destPath)
		if err == nil {
			return nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if d.retries == 0 {
		return lastErr
	}
	return fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
}

// downloadOnce performs a single download attempt
func (d *Downloader) downloadOnce(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status code: %d", rawURL, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	var body io.Reader = resp.Body
	var progress *progressReader
	if d.onProgress != nil {
		progress = newProgressReader(resp.Body, rawURL, resp.ContentLength, d.interval, d.onProgress)
		body = progress
	}

	written, err := io.Copy(tmpFile, body)
	if err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		return fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	cleanupNeeded = false

	if progress != nil {
		progress.finish()
	}
	return nil
}

// fileNameFromURL returns the last path segment of a URL.
func fileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("url %q has no file name", rawURL)
	}
	return name, nil
}

// fileExists checks if a file exists and is not empty
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
