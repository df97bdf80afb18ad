// Package metrics exposes prometheus collectors for ROI analysis and
// isocontour runs. Collectors live on a private registry so that library
// users do not get them mixed into the global default registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds every amideroi collector.
	Registry = prometheus.NewRegistry()

	analysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amideroi_analysis_runs_total",
			Help: "Total number of ROI overlap iterations",
		},
		[]string{"strategy", "inverse"}, // strategy: fast, accurate
	)

	analysisVoxels = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "amideroi_analysis_voxels_total",
			Help: "Total number of data set voxels passed to accumulators",
		},
	)

	analysisSubsampled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "amideroi_analysis_subsampled_voxels_total",
			Help: "Total number of voxels classified by sub-voxel sampling",
		},
	)

	analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "amideroi_analysis_duration_seconds",
			Help:    "ROI overlap iteration duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 60},
		},
		[]string{"strategy"},
	)

	isocontourVoxels = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "amideroi_isocontour_voxels",
			Help:    "Number of voxels in grown isocontours",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		},
	)
)

func init() {
	Registry.MustRegister(analysisRuns, analysisVoxels, analysisSubsampled, analysisDuration, isocontourVoxels)
}

func strategy(accurate bool) string {
	if accurate {
		return "accurate"
	}
	return "fast"
}

// RecordAnalysis records one finished overlap iteration.
func RecordAnalysis(accurate, inverse bool, visited, subsampled int, elapsed time.Duration) {
	analysisRuns.WithLabelValues(strategy(accurate), fmt.Sprint(inverse)).Inc()
	analysisVoxels.Add(float64(visited))
	analysisSubsampled.Add(float64(subsampled))
	analysisDuration.WithLabelValues(strategy(accurate)).Observe(elapsed.Seconds())
}

// RecordIsocontour records the size of a grown isocontour.
func RecordIsocontour(voxels int) {
	isocontourVoxels.Observe(float64(voxels))
}

// WriteTextfile writes the current metrics in the text exposition format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
