package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	scrapeerrors "listingscraper/pkg/errors"
	"listingscraper/pkg/logger"
)

const imageAccept = "image/webp,image/*"

// Page is the raw content of a listing page, fetched remotely or read from disk
type Page struct {
	Source      string
	Content     string
	Local       bool
	FetchedAt   time.Time
	StatusCode  int
	ContentType string
	Elapsed     time.Duration
}

// Fetcher retrieves pages and images. It has no side effects besides logging.
type Fetcher struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// New creates a Fetcher sending the given user agent with a per-request timeout
func New(userAgent string, timeout time.Duration, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
		logger: log.WithField("component", "fetcher"),
	}
}

// SetHTTPClient replaces the underlying HTTP client
func (f *Fetcher) SetHTTPClient(c *http.Client) {
	f.httpClient = c
}

// IsRemote reports whether source is fetched over HTTP
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch retrieves source over HTTP when it is a URL, otherwise reads it as a local file
func (f *Fetcher) Fetch(ctx context.Context, source string) (*Page, error) {
	if !IsRemote(source) {
		return f.readLocal(source)
	}

	resp, elapsed, err := f.get(ctx, source, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	reader, err := charset.NewReader(resp.Body, contentType)
	if err != nil {
		f.logger.WithField("content_type", contentType).Warn("Unknown charset, reading body as-is")
		reader = resp.Body
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, scrapeerrors.New(scrapeerrors.KindFetch, "read body", source, err).WithCode(resp.StatusCode)
	}

	return &Page{
		Source:      source,
		Content:     string(body),
		FetchedAt:   time.Now(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Elapsed:     elapsed,
	}, nil
}

func (f *Fetcher) readLocal(path string) (*Page, error) {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, scrapeerrors.New(scrapeerrors.KindFetch, "read file", path, err)
	}

	if !utf8.Valid(data) {
		if r, err := charset.NewReader(bytes.NewReader(data), "text/html"); err == nil {
			if decoded, err := io.ReadAll(r); err == nil {
				data = decoded
			}
		}
	}

	f.logger.WithFields(map[string]interface{}{
		"path":  path,
		"bytes": len(data),
	}).Debug("Read local page")

	return &Page{
		Source:    path,
		Content:   string(data),
		Local:     true,
		FetchedAt: time.Now(),
		Elapsed:   time.Since(start),
	}, nil
}

// Download performs the image GET and returns the body
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	resp, _, err := f.get(ctx, url, map[string]string{"Accept": imageAccept})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, scrapeerrors.New(scrapeerrors.KindFetch, "read image", url, err).WithCode(resp.StatusCode)
	}

	return data, nil
}

// get sends a GET with the configured headers plus extra and fails on non-2xx
func (f *Fetcher) get(ctx context.Context, url string, extra map[string]string) (*http.Response, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, scrapeerrors.New(scrapeerrors.KindFetch, "build request", url, err)
	}
	for key, value := range f.headers {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		f.logger.WithError(err).WithField("url", url).Error("HTTP request failed")
		return nil, elapsed, scrapeerrors.New(scrapeerrors.KindFetch, "GET", url, err)
	}

	logger.LogRequest(f.logger, req.Method, url, resp.StatusCode, float64(elapsed.Microseconds())/1000)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, elapsed, scrapeerrors.New(scrapeerrors.KindFetch, "GET", url,
			fmt.Errorf("unexpected status: %s", resp.Status)).WithCode(resp.StatusCode)
	}

	return resp, elapsed, nil
}
