// Package poster downloads the poster images of crawled activities.
package poster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/KMU-MIS-BALJAGUK/linkareer-crawler/internal/ratelimit"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of one poster download
type Result struct {
	DetailURL string
	ImageURL  string
	FilePath  string
	Size      int64
	Success   bool
	Error     error
	StartTime time.Time
	Duration  time.Duration
}

// Downloader streams poster images to disk
type Downloader struct {
	client    *http.Client
	userAgent string
	limiter   ratelimit.RateLimiter
	outputDir string
}

// NewDownloader creates a Downloader writing into outputDir
func NewDownloader(outputDir string, timeout time.Duration, userAgent string, limiter ratelimit.RateLimiter) *Downloader {
	if userAgent == "" {
		userAgent = "linkareer-crawler/1.0"
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Downloader{
		client:    client,
		userAgent: userAgent,
		limiter:   limiter,
		outputDir: outputDir,
	}
}

// Download fetches imageURL and stores it under a name derived from detailURL
func (d *Downloader) Download(ctx context.Context, detailURL, imageURL string) *Result {
	result := &Result{
		DetailURL: detailURL,
		ImageURL:  imageURL,
		StartTime: time.Now(),
	}
	fail := func(err error) *Result {
		result.Error = err
		result.Duration = time.Since(result.StartTime)
		return result
	}

	if _, err := url.ParseRequestURI(imageURL); err != nil {
		return fail(fmt.Errorf("invalid URL: %w", err))
	}

	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	filePath := filepath.Join(d.outputDir, Filename(detailURL, imageURL))
	result.FilePath = filePath

	if err := d.limiter.Wait(ctx, imageURL); err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Referer", detailURL)

	resp, err := d.client.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("bad status: %s", resp.Status))
	}

	outFile, err := os.Create(filePath)
	if err != nil {
		return fail(fmt.Errorf("failed to create file: %w", err))
	}
	defer outFile.Close()

	written, err := io.Copy(outFile, resp.Body)
	if err != nil {
		os.Remove(filePath)
		return fail(fmt.Errorf("failed to write file: %w", err))
	}

	result.Size = written
	result.Success = true
	result.Duration = time.Since(result.StartTime)

	log.Debug().
		Str("url", imageURL).
		Str("file", filePath).
		Int64("bytes", written).
		Dur("duration", result.Duration).
		Msg("Poster downloaded")

	return result
}

// Filename names a poster after the activity ID in detailURL and keeps the
// image's extension. The result never contains a path separator.
func Filename(detailURL, imageURL string) string {
	stem := "activity"
	if u, err := url.Parse(detailURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			stem = base
		}
	}

	ext := ""
	if u, err := url.Parse(imageURL); err == nil {
		ext = strings.ToLower(path.Ext(u.Path))
	}
	if len(ext) > 6 || ext == "." {
		ext = ""
	}
	if ext == "" {
		ext = ".img"
	}

	return sanitize(stem) + ext
}

// sanitize prevents path traversal
func sanitize(input string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", "..", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	input = strings.Trim(strings.TrimSpace(replacer.Replace(input)), ".")
	if input == "" {
		input = fmt.Sprintf("poster_%d", time.Now().UnixNano())
	}
	if len(input) > 200 {
		input = input[:200]
	}
	return input
}
