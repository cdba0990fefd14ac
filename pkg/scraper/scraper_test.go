package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingscraper/pkg/config"
	scrapeerrors "listingscraper/pkg/errors"
	"listingscraper/pkg/fetcher"
	"listingscraper/pkg/logger"
	"listingscraper/pkg/metadata"
	"listingscraper/pkg/ui"
)

const listingURL = "https://www.compass.com/listing/12-elm-st/48213"

func compassLink(id string) string {
	return fmt.Sprintf("https://www.compass.com/m/%s/origin.webp", id)
}

// compassPage builds a listing page that references the given image ids in order
func compassPage(ids ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body>
<div data-tn="listing-page-summary-price">$1,250,000</div>
<span>Description</span><div class="textIntent">Garden duplex near the park</div>
`)
	for _, id := range ids {
		fmt.Fprintf(&b, "<img src=\"%s\">\n", compassLink(id))
	}
	b.WriteString(`<script>{"street":"12 Elm St","city":"Brooklyn","state":"NY","zipCode":"11201","listingId":"48213"}</script>
</body></html>`)
	return b.String()
}

// mockFetcher serves pages and images from memory and reads local paths from disk
type mockFetcher struct {
	pages      map[string]string
	failImages map[string]bool
	downloads  []string
	onDownload func()
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		pages:      make(map[string]string),
		failImages: make(map[string]bool),
	}
}

func (m *mockFetcher) Fetch(ctx context.Context, source string) (*fetcher.Page, error) {
	if !fetcher.IsRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, scrapeerrors.New(scrapeerrors.KindFetch, "read file", source, err)
		}
		return &fetcher.Page{Source: source, Content: string(data), Local: true}, nil
	}

	content, ok := m.pages[source]
	if !ok {
		return nil, scrapeerrors.New(scrapeerrors.KindFetch, "GET", source, nil).WithCode(http.StatusNotFound)
	}
	return &fetcher.Page{Source: source, Content: content, StatusCode: http.StatusOK}, nil
}

func (m *mockFetcher) Download(ctx context.Context, url string) ([]byte, error) {
	m.downloads = append(m.downloads, url)
	if m.onDownload != nil {
		m.onDownload()
	}
	if m.failImages[url] {
		return nil, scrapeerrors.New(scrapeerrors.KindFetch, "GET", url, nil).WithCode(http.StatusForbidden)
	}
	return []byte("webp:" + url), nil
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Download.Delay = 0
	return cfg
}

func newTestScraper(t *testing.T, cfg *config.Config, f PageFetcher, opts ...Option) *Scraper {
	t.Helper()
	opts = append([]Option{
		WithFetcher(f),
		WithLogger(logger.NewNopLogger()),
		WithPrinter(ui.NewPrinter(io.Discard, false)),
	}, opts...)
	s, err := New(cfg, opts...)
	require.NoError(t, err)
	return s
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRunWritesLayout(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "b")

	summary, err := newTestScraper(t, cfg, f).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output.BaseDirectory, "elm")
	assert.Equal(t, dir, summary.Dir)
	assert.Equal(t, "compass", summary.Site)
	assert.Equal(t, compassPage("a", "b"), readFile(t, filepath.Join(dir, "page.html")))

	want := "URL: " + listingURL + "\n\n" +
		"Info: Garden duplex near the park\n\n" +
		"Street: 12 Elm St\nCity: Brooklyn\nState: NY\nZip: 11201\nListing ID: 48213\n\n" +
		"Price: 1250000\n\n" +
		"Number of unique images found: 2"
	assert.Equal(t, want, readFile(t, filepath.Join(dir, "info.txt")))

	assert.Equal(t, "webp:"+compassLink("a"), readFile(t, filepath.Join(dir, "images", "elm-1.webp")))
	assert.Equal(t, "webp:"+compassLink("b"), readFile(t, filepath.Join(dir, "images", "elm-2.webp")))
	assert.Equal(t, 2, summary.Download.Saved)
	assert.Equal(t, "Garden duplex near the park", summary.Description)
}

func TestRunPrintsSummaryPanel(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "b")

	var out strings.Builder
	s := newTestScraper(t, cfg, f, WithPrinter(ui.NewPrinter(&out, false)))
	_, err := s.Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	printed := out.String()
	assert.Contains(t, printed, "Garden duplex near the park")
	assert.Contains(t, printed, "Paused")
	assert.Contains(t, printed, "1 times")
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "b", "c")
	s := newTestScraper(t, cfg, f)

	first, err := s.Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)
	infoBefore := readFile(t, first.MetadataPath)

	f.downloads = nil
	second, err := s.Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	assert.Empty(t, f.downloads)
	assert.Equal(t, 0, second.Download.Saved)
	assert.Equal(t, 3, second.Download.Existing)
	assert.Equal(t, infoBefore, readFile(t, second.MetadataPath))

	entries, err := os.ReadDir(filepath.Join(second.Dir, "images"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestRunDeduplicates(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("1", "2", "1", "3", "2")

	summary, err := newTestScraper(t, cfg, f).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	assert.Equal(t, 5, summary.LinksFound)
	assert.Equal(t, 3, summary.UniqueLinks)
	assert.Equal(t, []string{compassLink("1"), compassLink("2"), compassLink("3")}, f.downloads)

	images := filepath.Join(summary.Dir, "images")
	entries, err := os.ReadDir(images)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "webp:"+compassLink("3"), readFile(t, filepath.Join(images, "elm-3.webp")))
	assert.Contains(t, readFile(t, summary.MetadataPath), "Number of unique images found: 3")
}

func TestRunPartialMetadata(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()
	f.pages[listingURL] = `<div data-tn="listing-page-summary-price">$700,000</div>`

	summary, err := newTestScraper(t, cfg, f).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	want := "URL: " + listingURL + "\n\nPrice: 700000\n\nNumber of unique images found: 0"
	assert.Equal(t, want, readFile(t, summary.MetadataPath))
}

func TestRunUnsupportedSite(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()
	source := "https://www.example.com/listing/1"
	f.pages[source] = compassPage("a")

	_, err := newTestScraper(t, cfg, f).Run(context.Background(), source, "elm")
	require.Error(t, err)
	assert.True(t, scrapeerrors.Is(err, scrapeerrors.KindUnsupportedSite))

	_, statErr := os.Stat(filepath.Join(cfg.Output.BaseDirectory, "elm"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunDelayBound(t *testing.T) {
	cfg := testConfig(t)
	cfg.Download.Delay = 2 * time.Second
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "b", "c", "d")
	rec := &sleepRecorder{}

	summary, err := newTestScraper(t, cfg, f, WithSleep(rec.sleep)).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	assert.Len(t, f.downloads, 4)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, rec.sleeps)
	assert.Equal(t, 3, summary.Pauses)
	assert.Equal(t, 6*time.Second, summary.Paused)
}

func TestRunRandomDelayWithinBounds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Download.RandomDelay = true
	cfg.Download.MinDelay = 2 * time.Second
	cfg.Download.MaxDelay = 7 * time.Second
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "b", "c")
	rec := &sleepRecorder{}

	_, err := newTestScraper(t, cfg, f, WithSleep(rec.sleep)).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	require.Len(t, rec.sleeps, 2)
	for _, d := range rec.sleeps {
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 7*time.Second)
	}
}

func TestRunSkipImages(t *testing.T) {
	cfg := testConfig(t)
	cfg.Download.SkipImages = true
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "b")

	summary, err := newTestScraper(t, cfg, f).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	assert.True(t, summary.ImagesSkipped)
	assert.Empty(t, f.downloads)

	entries, err := os.ReadDir(filepath.Join(summary.Dir, "images"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, readFile(t, summary.MetadataPath), "Number of unique images found: 2")
}

func TestRunImageFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "b", "c")
	f.failImages[compassLink("b")] = true

	summary, err := newTestScraper(t, cfg, f).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Download.Saved)
	assert.Equal(t, 1, summary.Download.Failed)
	assert.NoFileExists(t, filepath.Join(summary.Dir, "images", "elm-2.webp"))
	assert.FileExists(t, filepath.Join(summary.Dir, "images", "elm-3.webp"))
}

func TestRunFetchFailureCreatesNothing(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()

	_, err := newTestScraper(t, cfg, f).Run(context.Background(), listingURL, "elm")
	require.Error(t, err)
	assert.True(t, scrapeerrors.Is(err, scrapeerrors.KindFetch))
	assert.True(t, scrapeerrors.IsFatal(err))

	_, statErr := os.Stat(filepath.Join(cfg.Output.BaseDirectory, "elm"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunLocalSourceIsKept(t *testing.T) {
	cfg := testConfig(t)
	source := filepath.Join(t.TempDir(), "compass-elm.html")
	require.NoError(t, os.WriteFile(source, []byte(compassPage("a")), 0644))

	summary, err := newTestScraper(t, cfg, newMockFetcher()).Run(context.Background(), source, "elm")
	require.NoError(t, err)

	assert.FileExists(t, source)
	assert.Equal(t, compassPage("a"), readFile(t, summary.PagePath))
	assert.Contains(t, readFile(t, summary.MetadataPath), "URL: "+source+"\n\n")
}

func TestRunRelocateSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.RelocateSource = true
	source := filepath.Join(t.TempDir(), "compass-elm.html")
	require.NoError(t, os.WriteFile(source, []byte(compassPage("a")), 0644))

	summary, err := newTestScraper(t, cfg, newMockFetcher()).Run(context.Background(), source, "elm")
	require.NoError(t, err)

	assert.NoFileExists(t, source)
	assert.Equal(t, compassPage("a"), readFile(t, summary.PagePath))
}

func TestRunJSONMetadata(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.MetadataFormat = "json"
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a")

	summary, err := newTestScraper(t, cfg, f).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)
	assert.Equal(t, "info.json", filepath.Base(summary.MetadataPath))

	rec, err := metadata.Load(summary.MetadataPath)
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, rec.RunID)
	assert.Equal(t, "compass", rec.Site)
	require.NotNil(t, rec.Price)
	assert.Equal(t, "1250000", *rec.Price)
	assert.Equal(t, 1, rec.ImageCount)
}

func TestRunWritesMetricsFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Download.Delay = 3 * time.Second
	cfg.Metrics.TextFile = filepath.Join(t.TempDir(), "scrape.prom")
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "a", "b")
	rec := &sleepRecorder{}

	_, err := newTestScraper(t, cfg, f, WithSleep(rec.sleep)).Run(context.Background(), listingURL, "elm")
	require.NoError(t, err)

	out := readFile(t, cfg.Metrics.TextFile)
	assert.Contains(t, out, `listingscraper_images_total{name="elm",site="compass",status="saved"} 2`)
	assert.Contains(t, out, `listingscraper_images_total{name="elm",site="compass",status="duplicate"} 1`)
	assert.Contains(t, out, `listingscraper_pause_seconds_total{name="elm",site="compass"} 3`)
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	f := newMockFetcher()
	f.pages[listingURL] = compassPage("a", "b", "c")

	ctx, cancel := context.WithCancel(context.Background())
	f.onDownload = cancel

	summary, err := newTestScraper(t, cfg, f).Run(ctx, listingURL, "elm")
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)

	assert.Equal(t, 1, summary.Download.Saved)
	assert.FileExists(t, summary.PagePath)
	assert.FileExists(t, summary.MetadataPath)
}

func TestRunOverHTTP(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/listing":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, `<img src="%[1]s/img/a/origin.webp"><img src="%[1]s/img/b/origin.webp">
<span>Description</span><div class="d">Plain listing</div>`, server.URL)
		case strings.HasPrefix(r.URL.Path, "/img/"):
			w.Header().Set("Content-Type", "image/webp")
			w.Write([]byte("RIFF" + r.URL.Path))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Download.Site = "generic"

	f := fetcher.New(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, logger.NewNopLogger())
	f.SetHTTPClient(server.Client())

	summary, err := newTestScraper(t, cfg, f).Run(context.Background(), server.URL+"/listing", "plain")
	require.NoError(t, err)

	assert.Equal(t, "generic", summary.Site)
	assert.Equal(t, 2, summary.Download.Saved)
	assert.Equal(t, "RIFF/img/b/origin.webp", readFile(t, filepath.Join(summary.Dir, "images", "plain-2.webp")))
	assert.Contains(t, readFile(t, summary.MetadataPath), "Info: Plain listing\n\n")
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.MetadataFormat = "xml"

	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, scrapeerrors.Is(err, scrapeerrors.KindConfig))
}
