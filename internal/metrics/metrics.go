// Package metrics exposes Prometheus collectors for the archiver.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal     prometheus.Counter
	episodesIngestedTotal prometheus.Counter
	recordsDroppedTotal   prometheus.Counter
	assetUploadsTotal     *prometheus.CounterVec
	assetSkipsTotal       *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "bragge_pages_fetched_total",
			Help: "Total number of episode pages fetched.",
		})
		episodesIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "bragge_episodes_ingested_total",
			Help: "Total number of episodes fully ingested and persisted.",
		})
		recordsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "bragge_records_dropped_total",
			Help: "Total number of records dropped by validation.",
		})
		assetUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bragge_asset_uploads_total",
			Help: "Total number of asset uploads performed, labeled by kind.",
		}, []string{"kind"})
		assetSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bragge_asset_skips_total",
			Help: "Total number of asset uploads skipped by the dedup check, labeled by kind.",
		}, []string{"kind"})
	})
}

// PageFetched records one fetched episode page.
func PageFetched() {
	if pagesFetchedTotal != nil {
		pagesFetchedTotal.Inc()
	}
}

// EpisodeIngested records one fully ingested episode.
func EpisodeIngested() {
	if episodesIngestedTotal != nil {
		episodesIngestedTotal.Inc()
	}
}

// RecordDropped records one validation drop.
func RecordDropped() {
	if recordsDroppedTotal != nil {
		recordsDroppedTotal.Inc()
	}
}

// AssetUploaded records one performed upload for an asset kind.
func AssetUploaded(kind string) {
	if assetUploadsTotal != nil {
		assetUploadsTotal.WithLabelValues(kind).Inc()
	}
}

// AssetSkipped records one dedup-skipped upload for an asset kind.
func AssetSkipped(kind string) {
	if assetSkipsTotal != nil {
		assetSkipsTotal.WithLabelValues(kind).Inc()
	}
}

// Serve exposes the Prometheus handler on the given port. It blocks
// until the server fails, so callers run it in a goroutine.
func Serve(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
