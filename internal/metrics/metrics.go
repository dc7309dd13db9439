package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hermes"

var (
	filesRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_removed_total",
			Help:      "Expired download files removed, by mechanism (timer, sweep)",
		},
		[]string{"mechanism"},
	)

	housekeepingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_failures_total",
			Help:      "Filesystem failures swallowed during housekeeping, by operation",
		},
		[]string{"operation"},
	)

	sweepsRun = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Total number of download directory sweeps performed",
		},
	)

	trackedFiles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_files",
			Help:      "Files with a pending delayed deletion",
		},
	)

	downloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download requests by result (success, invalid, failed)",
		},
		[]string{"result"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events dispatched on the internal event bus, by event",
		},
		[]string{"event"},
	)

	downloadLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of extraction and transcode for successful downloads",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(filesRemoved, housekeepingFailures, sweepsRun, trackedFiles, downloads, events, downloadLatency)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncFileRemoved(mechanism string)        { filesRemoved.WithLabelValues(mechanism).Inc() }
func IncHousekeepingFailure(operation string) { housekeepingFailures.WithLabelValues(operation).Inc() }
func IncSweep()                               { sweepsRun.Inc() }
func SetTrackedFiles(n int)                   { trackedFiles.Set(float64(n)) }
func IncDownload(result string)               { downloads.WithLabelValues(result).Inc() }
func IncEvent(name string)                    { events.WithLabelValues(name).Inc() }

func ObserveDownload(dur time.Duration) {
	downloads.WithLabelValues("success").Inc()
	downloadLatency.Observe(dur.Seconds())
}
