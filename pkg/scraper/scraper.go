package scraper

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"listingscraper/internal/downloader"
	"listingscraper/pkg/config"
	scrapeerrors "listingscraper/pkg/errors"
	"listingscraper/pkg/extract"
	"listingscraper/pkg/fetcher"
	"listingscraper/pkg/logger"
	"listingscraper/pkg/metadata"
	"listingscraper/pkg/metrics"
	"listingscraper/pkg/ratelimit"
	"listingscraper/pkg/site"
	"listingscraper/pkg/storage"
	"listingscraper/pkg/ui"
)

// descriptionWidth bounds the description shown in the summary panel
const descriptionWidth = 80

// Summary describes what a run produced
type Summary struct {
	RunID         string
	Site          string
	Dir           string
	PagePath      string
	MetadataPath  string
	LinksFound    int
	UniqueLinks   int
	Description   string
	ImagesSkipped bool
	Download      downloader.Result
	Pauses        int
	Paused        time.Duration
	Duration      time.Duration
}

// Scraper runs the fetch, extract, persist and download pipeline for one page at a time
type Scraper struct {
	config  *config.Config
	fetcher PageFetcher
	printer *ui.Printer
	logger  logger.Logger
	sleep   ratelimit.SleepFunc
}

// Option customizes a Scraper
type Option func(*Scraper)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithPrinter sets where human-facing output goes
func WithPrinter(p *ui.Printer) Option {
	return func(s *Scraper) { s.printer = p }
}

// WithFetcher replaces the HTTP fetcher
func WithFetcher(f PageFetcher) Option {
	return func(s *Scraper) { s.fetcher = f }
}

// WithSleep replaces the pacer's sleep, mostly for tests
func WithSleep(sleep ratelimit.SleepFunc) Option {
	return func(s *Scraper) { s.sleep = sleep }
}

// New creates a new Scraper instance
func New(cfg *config.Config, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, scrapeerrors.New(scrapeerrors.KindConfig, "validate", "config", err)
	}

	s := &Scraper{
		config:  cfg,
		printer: ui.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	if s.fetcher == nil {
		s.fetcher = fetcher.New(cfg.HTTP.UserAgent, cfg.HTTP.Timeout, s.logger)
	}

	return s, nil
}

// Run scrapes source into <output>/<name>.
//
// Fatal errors (fetch, unsupported site, page or metadata write) abort the
// run. Image failures are logged and counted in the summary. When ctx is
// cancelled during the download loop the partial summary is returned along
// with the context error; page and metadata are already on disk by then.
func (s *Scraper) Run(ctx context.Context, source, name string) (*Summary, error) {
	start := time.Now()
	cfg := s.config

	kind, err := site.Resolve(source, cfg.Download.Site)
	if err != nil {
		s.logger.WithError(err).WithField("source", source).Error("Unsupported site")
		return nil, err
	}

	format, err := metadata.ParseFormat(cfg.Output.MetadataFormat)
	if err != nil {
		return nil, scrapeerrors.New(scrapeerrors.KindConfig, "parse format", cfg.Output.MetadataFormat, err)
	}

	log := s.logger.WithFields(map[string]interface{}{
		"name": name,
		"site": kind.String(),
	})
	log.WithField("source", source).Info("Starting scrape")
	s.printer.Banner(fmt.Sprintf("Scraping %s listing", kind))

	page, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		log.WithError(err).Error("Failed to fetch page")
		return nil, err
	}

	runMetrics := metrics.New(kind.String(), name)
	runMetrics.ObserveFetch(page.Local, page.Elapsed)

	links, err := extract.Links(page.Content, kind)
	if err != nil {
		return nil, err
	}
	unique := extract.UniqueLinks(links)
	record := extract.Metadata(page.Content, source, len(unique), kind)

	log = log.WithField("run_id", record.RunID)
	log.WithFields(map[string]interface{}{
		"links":        len(links),
		"unique_links": len(unique),
		"description":  record.Description != nil,
		"address":      record.HasAddress(),
		"price":        record.Price != nil,
	}).Info("Extracted page")

	manager, err := storage.NewManager(cfg.Output.BaseDirectory, name)
	if err != nil {
		log.WithError(err).Error("Failed to create output directory")
		return nil, err
	}
	if n := manager.ExistingImages(); n > 0 {
		log.WithField("existing_images", n).Info("Output directory already holds images")
	}

	summary := &Summary{
		RunID:       record.RunID,
		Site:        kind.String(),
		Dir:         manager.Dir(),
		LinksFound:  len(links),
		UniqueLinks: len(unique),
		Description: record.GetFormattedDescription(descriptionWidth),
	}

	// With relocation the local source file is moved into the output tree and
	// no longer exists at its original path.
	if cfg.Output.RelocateSource && page.Local {
		summary.PagePath, err = manager.AdoptPage(source)
	} else {
		summary.PagePath, err = manager.PersistPage(page.Content)
	}
	if err != nil {
		log.WithError(err).Error("Failed to write page")
		return nil, err
	}

	summary.MetadataPath, err = manager.PersistMetadata(record, format)
	if err != nil {
		log.WithError(err).Error("Failed to write metadata")
		return nil, err
	}

	s.printer.PrintInfo("Images found", strconv.Itoa(len(unique)))

	var loopErr error
	if cfg.Download.SkipImages {
		summary.ImagesSkipped = true
		log.Info("Skipping image downloads")
	} else {
		loopErr = s.download(ctx, summary, manager, kind, links, len(unique), runMetrics, log)
	}

	summary.Duration = time.Since(start)
	runMetrics.Finish(summary.Duration)
	s.writeMetrics(runMetrics, log)

	if loopErr != nil {
		log.WithError(loopErr).Warn("Scrape interrupted")
		s.printer.PrintWarning("Interrupted", summary.Download.String())
		return summary, fmt.Errorf("scrape interrupted: %w", loopErr)
	}

	s.printSummary(summary)
	log.WithFields(map[string]interface{}{
		"saved":    summary.Download.Saved,
		"failed":   summary.Download.Failed,
		"duration": summary.Duration,
	}).Info("Scrape complete")

	return summary, nil
}

func (s *Scraper) download(
	ctx context.Context,
	summary *Summary,
	manager *storage.Manager,
	kind site.Kind,
	links []string,
	unique int,
	runMetrics *metrics.Metrics,
	log logger.Logger,
) error {
	cfg := s.config.Download

	var strategy ratelimit.DelayStrategy = &ratelimit.FixedDelay{Delay: cfg.Delay}
	if cfg.RandomDelay {
		strategy = ratelimit.NewRandomDelay(cfg.MinDelay, cfg.MaxDelay)
	}
	pacer := ratelimit.NewPacer(strategy)
	if s.sleep != nil {
		pacer.WithSleep(s.sleep)
	}

	ext := "webp"
	if p, err := site.PatternsFor(kind); err == nil {
		ext = p.DefaultExt
	}

	progress := ui.NewProgress(s.printer, unique)
	loop := downloader.NewLoop(s.fetcher, manager, pacer, log).
		WithDefaultExt(ext).
		OnItem(func(item downloader.ItemResult) {
			runMetrics.IncImage(string(item.Status))
			if item.Status == downloader.StatusSaved {
				runMetrics.AddBytes(item.Size)
			}
			progress.Item(string(item.Status), item.Path, item.Size, item.Error)
		})

	var err error
	summary.Download, err = loop.Run(ctx, links)
	summary.Pauses = pacer.Waits()
	summary.Paused = pacer.Waited()
	runMetrics.AddPause(summary.Paused)
	return err
}

func (s *Scraper) writeMetrics(m *metrics.Metrics, log logger.Logger) {
	path := s.config.Metrics.TextFile
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("Failed to write metrics file")
		return
	}
	log.WithField("path", path).Debug("Wrote metrics file")
}

func (s *Scraper) printSummary(summary *Summary) {
	s.printer.PrintSuccess("Scraping complete! ✨")
	s.printer.PrintInfo("Data saved in", summary.Dir)

	fields := []ui.Field{{Label: "Site", Value: summary.Site}}
	if summary.Description != "" {
		fields = append(fields, ui.Field{Label: "Description", Value: summary.Description})
	}
	fields = append(fields,
		ui.Field{Label: "Unique images", Value: strconv.Itoa(summary.UniqueLinks)},
	)
	if summary.ImagesSkipped {
		fields = append(fields, ui.Field{Label: "Downloads", Value: "skipped"})
	} else {
		d := summary.Download
		fields = append(fields,
			ui.Field{Label: "Saved", Value: fmt.Sprintf("%d (%s)", d.Saved, ui.FormatBytes(d.Bytes))},
			ui.Field{Label: "Already present", Value: strconv.Itoa(d.Existing)},
			ui.Field{Label: "Duplicates", Value: strconv.Itoa(d.Duplicates)},
			ui.Field{Label: "Failed", Value: strconv.Itoa(d.Failed)},
			ui.Field{Label: "Paused", Value: fmt.Sprintf("%d times, %s", summary.Pauses, ui.FormatDuration(summary.Paused))},
		)
	}
	fields = append(fields, ui.Field{Label: "Elapsed", Value: ui.FormatDuration(summary.Duration)})

	s.printer.PrintPanel("Summary", fields)
}
