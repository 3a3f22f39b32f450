package poster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/pkg/models"
)

func TestDownload_Success(t *testing.T) {
	content := "png bytes"
	var referer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		w.Write([]byte(content))
	}))
	defer server.Close()

	dir := t.TempDir()
	d := NewDownloader(dir, 10*time.Second, "Test/1.0", nil)

	result := d.Download(context.Background(), "https://linkareer.com/activity/123", server.URL+"/posters/a.PNG")
	if !result.Success {
		t.Fatalf("Download failed: %v", result.Error)
	}
	if result.FilePath != filepath.Join(dir, "123.png") {
		t.Errorf("Unexpected file path %q", result.FilePath)
	}
	if referer != "https://linkareer.com/activity/123" {
		t.Errorf("Expected detail page as referer, got %q", referer)
	}

	data, err := os.ReadFile(result.FilePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != content {
		t.Errorf("Content mismatch: got %q, want %q", string(data), content)
	}
}

func TestDownload_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	d := NewDownloader(t.TempDir(), 10*time.Second, "", nil)
	result := d.Download(context.Background(), "https://linkareer.com/activity/1", server.URL+"/missing.jpg")
	if result.Success || result.Error == nil {
		t.Fatal("Expected failure for 404")
	}
	if _, err := os.Stat(result.FilePath); !os.IsNotExist(err) {
		t.Error("Expected no file for a failed download")
	}
}

func TestFilename_Security(t *testing.T) {
	tests := []struct {
		detail, image string
	}{
		{"https://linkareer.com/activity/../../etc/passwd", "https://x/y.png"},
		{"https://linkareer.com/", "https://x/y"},
		{"::not a url", "https://x/y.jpeg?size=2"},
		{"https://linkareer.com/activity/a:b", "https://x/y.verylongext"},
	}

	for _, tt := range tests {
		name := Filename(tt.detail, tt.image)
		if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
			t.Errorf("Filename(%q, %q) = %q is unsafe", tt.detail, tt.image, name)
		}
		if name == "" || strings.HasPrefix(name, ".") {
			t.Errorf("Filename(%q, %q) = %q is not a usable name", tt.detail, tt.image, name)
		}
	}
}

func TestWorkerPool_DownloadAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	collector := &Collector{}
	for i, img := range []string{"/a.jpg", "", "/c.jpg"} {
		rec := models.NewActivityRecord("https://linkareer.com/activity/" + string(rune('1'+i)))
		if img != "" {
			rec.ImageURL = models.StringPtr(server.URL + img)
		}
		collector.Write(context.Background(), rec)
	}

	pool := NewWorkerPool(NewDownloader(t.TempDir(), 10*time.Second, "", nil), 2)
	results := pool.DownloadAll(context.Background(), collector.Records())

	if len(results) != 2 {
		t.Fatalf("Expected 2 downloads, got %d", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Errorf("Download of %s failed: %v", r.ImageURL, r.Error)
		}
	}
}
