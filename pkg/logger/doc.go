// Package logger provides structured logging for the listing scraper.
//
// It wraps zerolog behind a small Logger interface. Console output is
// colorized and written to stderr so stdout stays free for progress lines.
// When a log file is configured, JSON records are also written to it through
// a size-rotated lumberjack writer.
//
// Basic Usage:
//
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File:  "logs/listingscraper.log",
//	}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//
//	logger.WithField("name", "house-1").Info("Run started")
//	logger.WithError(err).Error("Failed to write page")
//
// Tests can swap in a capturing logger:
//
//	tl := logger.NewTestLogger()
//	scraper.New(cfg, scraper.WithLogger(tl))
//	assert.True(t, tl.HasMessage("Image saved"))
package logger
