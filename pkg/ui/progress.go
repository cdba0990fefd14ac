package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
	barWidth      = 20
)

// Progress prints one line per image as the download loop settles it
type Progress struct {
	printer *Printer
	total   int
	done    int
}

// NewProgress creates a progress tracker for total distinct images
func NewProgress(p *Printer, total int) *Progress {
	return &Progress{
		printer: p,
		total:   total,
	}
}

// Item reports one settled link. status is saved, exists, duplicate or failed.
// Duplicates are not counted towards the total.
func (pr *Progress) Item(status, path string, size int, err error) {
	if status == "duplicate" {
		return
	}

	pr.done++
	file := filepath.Base(path)

	var mark string
	switch status {
	case "saved":
		mark = Green("✓") + " " + file + " " + Dim(FormatBytes(int64(size)))
	case "exists":
		mark = Dim("• " + file + " already present")
	case "failed":
		mark = Red("✗") + " " + file
		if err != nil {
			mark += " " + Dim(err.Error())
		}
	default:
		mark = file
	}

	pr.printer.println(fmt.Sprintf("%s %s", pr.bar(), mark))
}

func (pr *Progress) bar() string {
	filled := 0
	if pr.total > 0 {
		filled = pr.done * barWidth / pr.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, pr.done, pr.total)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
