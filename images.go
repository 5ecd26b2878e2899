package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

const defaultImageExt = ".jpg"

// HTTPError represents an HTTP error with status code
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// ImageDownloader saves message attachments next to the generated JSON.
// Files are cached by name: an existing file is never fetched again.
type ImageDownloader struct {
	client     *http.Client
	limiter    *rate.Limiter
	dir        string
	publicPath string
}

// NewImageDownloader creates a downloader writing into settings.ImageDir()
func NewImageDownloader(settings *Settings) *ImageDownloader {
	limit := rate.Inf
	if settings.Fetch.ImagesPerSecond > 0 {
		limit = rate.Limit(settings.Fetch.ImagesPerSecond)
	}
	return &ImageDownloader{
		client: &http.Client{
			Timeout: time.Duration(settings.Fetch.ImageTimeoutSeconds) * time.Second,
		},
		limiter:    rate.NewLimiter(limit, 1),
		dir:        settings.ImageDir(),
		publicPath: settings.ImagePublicPath,
	}
}

// imageFilename derives the local name from the target id and the URL extension
func imageFilename(rawURL, id, prefix string) string {
	ext := defaultImageExt
	if u, err := url.Parse(rawURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return prefix + id + ext
}

// Save downloads rawURL unless it is already on disk and returns the path the
// site uses to reference it. Failures are logged and reported as false.
func (d *ImageDownloader) Save(ctx context.Context, rawURL, id, prefix string) (string, bool) {
	filename := imageFilename(rawURL, id, prefix)
	localPath := filepath.Join(d.dir, filename)
	publicPath := d.publicPath + "/" + filename

	if _, err := os.Stat(localPath); err == nil {
		debugLog("image %s already downloaded", filename)
		return publicPath, true
	}

	if err := d.download(ctx, rawURL, localPath); err != nil {
		log.Printf("✗ Image %s: %v", filename, err)
		return "", false
	}

	log.Printf("  → Saved image %s", localPath)
	return publicPath, true
}

func (d *ImageDownloader) download(ctx context.Context, rawURL, localPath string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("downloading image content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting image mode: %w", err)
	}
	return os.Rename(tmp.Name(), localPath)
}
