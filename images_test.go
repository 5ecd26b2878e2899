package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func newTestDownloader(t *testing.T) (*ImageDownloader, *Settings) {
	t.Helper()
	settings := testSettings(t)
	settings.Fetch.ImagesPerSecond = 0
	return NewImageDownloader(settings), settings
}

func TestImageFilename(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"extension kept", "https://cdn.example.com/a/b/photo.png", "update_42.png"},
		{"query stripped", "https://cdn.example.com/a/shot.webp?ex=1&is=2", "update_42.webp"},
		{"no extension", "https://cdn.example.com/a/blob", "update_42.jpg"},
		{"host only", "https://cdn.example.com", "update_42.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := imageFilename(tt.url, "42", "update_"); got != tt.expected {
				t.Errorf("imageFilename() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestImageDownloaderSave(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	d, settings := newTestDownloader(t)
	d.client = server.Client()

	publicPath, ok := d.Save(context.Background(), server.URL+"/pic.png?size=2", "123", "update_")
	if !ok {
		t.Fatal("Save() reported failure")
	}
	if publicPath != "img/update_123.png" {
		t.Errorf("Save() path = %q, want %q", publicPath, "img/update_123.png")
	}

	data, err := os.ReadFile(filepath.Join(settings.ImageDir(), "update_123.png"))
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("image content = %q", data)
	}

	again, ok := d.Save(context.Background(), server.URL+"/pic.png", "123", "update_")
	if !ok || again != publicPath {
		t.Errorf("second Save() = %q, %v", again, ok)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestImageDownloaderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d, settings := newTestDownloader(t)
	d.client = server.Client()

	publicPath, ok := d.Save(context.Background(), server.URL+"/gone.png", "9", "blog_")
	if ok || publicPath != "" {
		t.Errorf("Save() = %q, %v; want failure", publicPath, ok)
	}
	if _, err := os.Stat(filepath.Join(settings.ImageDir(), "blog_9.png")); !os.IsNotExist(err) {
		t.Error("failed download left a file behind")
	}

	err := d.download(context.Background(), server.URL+"/gone.png", filepath.Join(t.TempDir(), "x.png"))
	httpErr, isHTTP := err.(*HTTPError)
	if !isHTTP {
		t.Fatalf("download() error = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("HTTPError.StatusCode = %d, want %d", httpErr.StatusCode, http.StatusNotFound)
	}
}

func TestImageDownloaderTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL + "/pic.jpg"
	server.Close()

	d, _ := newTestDownloader(t)
	if _, ok := d.Save(context.Background(), url, "1", "update_"); ok {
		t.Error("Save() succeeded against a closed server")
	}
}
