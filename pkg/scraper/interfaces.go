package scraper

import (
	"context"

	"listingscraper/pkg/fetcher"
)

// PageFetcher defines the network and disk reads a run needs
type PageFetcher interface {
	Fetch(ctx context.Context, source string) (*fetcher.Page, error)
	Download(ctx context.Context, url string) ([]byte, error)
}
