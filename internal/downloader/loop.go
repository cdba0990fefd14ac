package downloader

import (
	"context"
	"fmt"
	"time"

	scrapeerrors "listingscraper/pkg/errors"
	"listingscraper/pkg/logger"
	"listingscraper/pkg/storage"
)

// Status is the terminal state of one link in the loop
type Status string

const (
	StatusSaved     Status = "saved"
	StatusDuplicate Status = "duplicate"
	StatusExists    Status = "exists"
	StatusFailed    Status = "failed"
)

// ItemResult represents the outcome for a single link
type ItemResult struct {
	Index    int // 0 for duplicates, which get no destination
	URL      string
	Path     string
	Status   Status
	Size     int
	Error    error
	Duration time.Duration
}

// Result summarizes a loop run
type Result struct {
	Total      int
	Saved      int
	Duplicates int
	Existing   int
	Failed     int
	Bytes      int64
	Items      []ItemResult
}

// ImageDownloader fetches image bytes
type ImageDownloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// ImageStorage decides destinations and writes images
type ImageStorage interface {
	ImagePath(n int, ext string) string
	ImageExists(dest string) bool
	PersistImage(data []byte, dest string) (bool, error)
}

// Pacer is waited on right before every download attempt
type Pacer interface {
	Wait(ctx context.Context) error
}

// Loop downloads links one at a time. It never runs more than one request at once.
type Loop struct {
	client     ImageDownloader
	storage    ImageStorage
	pacer      Pacer
	defaultExt string
	onItem     func(ItemResult)
	logger     logger.Logger
}

// NewLoop creates a download loop
func NewLoop(client ImageDownloader, store ImageStorage, pacer Pacer, log logger.Logger) *Loop {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Loop{
		client:     client,
		storage:    store,
		pacer:      pacer,
		defaultExt: "webp",
		logger:     log.WithField("component", "downloader"),
	}
}

// WithDefaultExt sets the extension used when a link has none
func (l *Loop) WithDefaultExt(ext string) *Loop {
	if ext != "" {
		l.defaultExt = ext
	}
	return l
}

// OnItem registers a callback invoked after every link is settled
func (l *Loop) OnItem(fn func(ItemResult)) *Loop {
	l.onItem = fn
	return l
}

// Run visits every link exactly once, in order.
//
// Distinct links are numbered from 1 in discovery order. A repeated link is
// skipped without taking a number. A link whose destination already exists
// keeps its number but is not downloaded. Failures are logged and the loop
// moves on. Run only returns an error when ctx is cancelled, together with
// the partial result.
func (l *Loop) Run(ctx context.Context, links []string) (Result, error) {
	result := Result{Total: len(links)}
	seen := make(map[string]struct{}, len(links))
	next := 0

	logger.LogComponentStart(l.logger, "download_loop", map[string]interface{}{
		"links": len(links),
	})

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			l.logger.WithField("remaining", result.Total-len(result.Items)).Warn("Download loop cancelled")
			return result, err
		}

		var item ItemResult
		if _, dup := seen[link]; dup {
			item = ItemResult{URL: link, Status: StatusDuplicate}
		} else {
			seen[link] = struct{}{}
			next++

			var err error
			item, err = l.process(ctx, next, link)
			if err != nil {
				return result, err
			}
		}

		l.record(&result, item)
	}

	l.logger.WithFields(map[string]interface{}{
		"saved":      result.Saved,
		"duplicates": result.Duplicates,
		"existing":   result.Existing,
		"failed":     result.Failed,
		"bytes":      result.Bytes,
	}).Info("Download loop finished")

	return result, nil
}

// process handles one distinct link. It only returns an error on cancellation.
func (l *Loop) process(ctx context.Context, index int, link string) (ItemResult, error) {
	start := time.Now()
	dest := l.storage.ImagePath(index, storage.ImageExt(link, l.defaultExt))
	item := ItemResult{Index: index, URL: link, Path: dest}

	if l.storage.ImageExists(dest) {
		item.Status = StatusExists
		return item, nil
	}

	if err := l.pacer.Wait(ctx); err != nil {
		return item, err
	}

	data, err := l.client.Download(ctx, link)
	if err != nil {
		if ctx.Err() != nil {
			return item, ctx.Err()
		}
		return l.fail(item, start, "download", err), nil
	}
	item.Size = len(data)

	written, err := l.storage.PersistImage(data, dest)
	if err != nil {
		return l.fail(item, start, "save", err), nil
	}

	item.Duration = time.Since(start)
	if !written {
		item.Status = StatusExists
		return item, nil
	}
	item.Status = StatusSaved
	return item, nil
}

func (l *Loop) fail(item ItemResult, start time.Time, op string, err error) ItemResult {
	if !scrapeerrors.Is(err, scrapeerrors.KindImageDownload) {
		err = scrapeerrors.New(scrapeerrors.KindImageDownload, op, item.URL, err)
	}
	item.Status = StatusFailed
	item.Error = err
	item.Duration = time.Since(start)
	return item
}

func (l *Loop) record(result *Result, item ItemResult) {
	switch item.Status {
	case StatusSaved:
		result.Saved++
		result.Bytes += int64(item.Size)
	case StatusDuplicate:
		result.Duplicates++
	case StatusExists:
		result.Existing++
	case StatusFailed:
		result.Failed++
	}
	result.Items = append(result.Items, item)

	logger.LogDownload(l.logger, item.Index, item.URL, string(item.Status), item.Error)

	if l.onItem != nil {
		l.onItem(item)
	}
}

// String renders a one-line summary
func (r Result) String() string {
	return fmt.Sprintf("%d saved, %d already present, %d duplicates, %d failed",
		r.Saved, r.Existing, r.Duplicates, r.Failed)
}
