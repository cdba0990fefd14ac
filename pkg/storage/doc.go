// Package storage manages the directory tree written by a scrape run.
//
// A Manager is bound to one <output>/<name> directory. It writes the page,
// the metadata file and the images, always through a temporary file that is
// renamed into place, so an interrupted run never leaves a half-written file
// under its final name. Images that already exist are never overwritten,
// which makes re-running the same scrape idempotent.
//
// Usage:
//
//	manager, err := storage.NewManager("scraped_data", "house-1")
//	if err != nil {
//	    return err
//	}
//
//	if _, err := manager.PersistPage(page.Content); err != nil {
//	    return err
//	}
//
//	dest := manager.ImagePath(1, storage.ImageExt(link, "webp"))
//	written, err := manager.PersistImage(data, dest)
package storage
