// Package scraper runs one listing scrape from start to finish.
//
// A run is a straight pipeline on a single goroutine:
//
//	resolve site -> fetch page -> extract links and metadata
//	-> write page.html and info.* -> download images one by one
//
// The site is resolved before anything touches the disk, so an unsupported
// source leaves no directory behind. Page and metadata are written before the
// download loop starts; an interrupted run therefore still leaves a usable
// directory, and running it again only fetches the images that are missing.
//
// Usage:
//
//	cfg, err := config.Load("", nil)
//	if err != nil {
//	    return err
//	}
//
//	s, err := scraper.New(cfg)
//	if err != nil {
//	    return err
//	}
//
//	summary, err := s.Run(ctx, "https://www.compass.com/listing/...", "house-1")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(summary.Download)
//
// Rate Limiting:
//
// Images are fetched strictly one after another. Before every attempt after
// the first the scraper pauses for the configured delay, either fixed or
// drawn uniformly from [min_delay, max_delay].
package scraper
