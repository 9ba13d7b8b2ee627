// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Broadcaster Metrics
var (
	// ViewersConnected tracks the current size of the viewer registry
	ViewersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "donor_display_viewers_connected",
			Help: "Number of connected display viewers",
		},
	)

	// BroadcastsTotal counts broadcast passes by event type
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_display_broadcasts_total",
			Help: "Total broadcast passes by event type",
		},
		[]string{"event_type"},
	)

	// DeliveryFailuresTotal counts per-viewer delivery failures by reason
	DeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_display_delivery_failures_total",
			Help: "Per-viewer delivery failures by reason (closed, buffer_full, other)",
		},
		[]string{"reason"},
	)
)

// Ingestion Metrics
var (
	// DonorsIngestedTotal counts bulk rows that were persisted and broadcast
	DonorsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "donor_display_donors_ingested_total",
			Help: "Total bulk rows persisted and broadcast",
		},
	)

	// IngestionRunsTotal counts bulk runs by outcome
	IngestionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_display_ingestion_runs_total",
			Help: "Bulk ingestion runs by outcome (success, validation_error, persistence_error, canceled, rejected)",
		},
		[]string{"outcome"},
	)

	// IngestionDuration tracks wall time of a bulk run, pacing included
	IngestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "donor_display_ingestion_duration_seconds",
			Help:    "Bulk ingestion wall time in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)
