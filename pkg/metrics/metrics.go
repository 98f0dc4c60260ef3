// Package metrics provides Prometheus metrics for seed runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the seed metrics on its own registry
type Recorder struct {
	Registry *prometheus.Registry

	// SeedRuns counts seed runs by outcome
	SeedRuns *prometheus.CounterVec

	// DocumentsInserted counts documents written to each target
	DocumentsInserted *prometheus.CounterVec

	// SeedDuration measures time taken by a seed run
	SeedDuration *prometheus.HistogramVec

	// LastSuccessTimestamp records when the last successful run finished
	LastSuccessTimestamp *prometheus.GaugeVec
}

// NewRecorder registers the seed metrics on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		Registry: reg,
		SeedRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbseed_runs_total",
			Help: "The total number of seed runs",
		}, []string{"target", "status"}),
		DocumentsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dbseed_documents_inserted_total",
			Help: "The total number of documents inserted",
		}, []string{"target", "database", "collection"}),
		SeedDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dbseed_duration_seconds",
			Help:    "Time taken to connect and insert the fixture",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"}),
		LastSuccessTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dbseed_last_success_timestamp",
			Help: "Timestamp of the last successful seed run",
		}, []string{"target"}),
	}
}

// ObserveSuccess records a completed run
func (r *Recorder) ObserveSuccess(target, database, collection string, inserted int, took time.Duration) {
	r.SeedRuns.WithLabelValues(target, "success").Inc()
	r.DocumentsInserted.WithLabelValues(target, database, collection).Add(float64(inserted))
	r.SeedDuration.WithLabelValues(target).Observe(took.Seconds())
	r.LastSuccessTimestamp.WithLabelValues(target).SetToCurrentTime()
}

// ObserveFailure records a failed run. stage is "connect" or "insert".
func (r *Recorder) ObserveFailure(target, stage string, took time.Duration) {
	r.SeedRuns.WithLabelValues(target, stage+"_error").Inc()
	r.SeedDuration.WithLabelValues(target).Observe(took.Seconds())
}

// WriteTextfile writes the registry in the node_exporter textfile collector format
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
