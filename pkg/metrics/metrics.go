package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of one scrape run.
// Each run gets its own registry so repeated runs in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	ImagesTotal       *prometheus.CounterVec
	ImageBytesTotal   prometheus.Counter
	PauseSeconds      prometheus.Counter
	PageFetchDuration *prometheus.HistogramVec
	RunDuration       prometheus.Gauge
	RunTimestamp      prometheus.Gauge
}

// New creates a Metrics set on a fresh registry, labelled with the run's site and name
func New(site, name string) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"site": site, "name": name}
	factory := promauto.With(prometheus.WrapRegistererWith(labels, reg))

	return &Metrics{
		registry: reg,
		ImagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "listingscraper_images_total",
			Help: "Images visited by the download loop, by outcome.",
		}, []string{"status"}), // saved, duplicate, exists, failed
		ImageBytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "listingscraper_image_bytes_total",
			Help: "Bytes of image data written to disk.",
		}),
		PauseSeconds: factory.NewCounter(prometheus.CounterOpts{
			Name: "listingscraper_pause_seconds_total",
			Help: "Time spent pausing between image downloads.",
		}),
		PageFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "listingscraper_page_fetch_duration_seconds",
			Help:    "Time spent retrieving the listing page.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}), // remote, local
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "listingscraper_run_duration_seconds",
			Help: "Wall time of the last scrape run.",
		}),
		RunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "listingscraper_last_run_timestamp_seconds",
			Help: "Unix time the last scrape run finished.",
		}),
	}
}

// IncImage counts one image outcome
func (m *Metrics) IncImage(status string) {
	m.ImagesTotal.WithLabelValues(status).Inc()
}

// AddBytes counts written image bytes
func (m *Metrics) AddBytes(n int) {
	m.ImageBytesTotal.Add(float64(n))
}

// AddPause counts time spent pausing between downloads
func (m *Metrics) AddPause(d time.Duration) {
	m.PauseSeconds.Add(d.Seconds())
}

// ObserveFetch records how long the page fetch took
func (m *Metrics) ObserveFetch(local bool, d time.Duration) {
	source := "remote"
	if local {
		source = "local"
	}
	m.PageFetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// Finish records the run duration and completion time
func (m *Metrics) Finish(d time.Duration) {
	m.RunDuration.Set(d.Seconds())
	m.RunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes all metrics in Prometheus text format, for the
// node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
