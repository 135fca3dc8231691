// Package metrics exposes Prometheus instrumentation for the analyzer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesIngested counts ingested files by outcome ("new", "skipped").
	FilesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asrun_files_ingested_total",
		Help: "As-run files processed by the ingestion engine.",
	}, []string{"outcome"})

	// EventsIngested counts event dispositions ("new", "skipped", "dropped").
	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asrun_events_total",
		Help: "Playout events seen during ingestion, by disposition.",
	}, []string{"disposition"})

	// UnknownVocabulary counts unknown vocabulary values by kind.
	UnknownVocabulary = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asrun_unknown_vocabulary_total",
		Help: "Vocabulary values that did not match a closed enumeration.",
	}, []string{"kind"})

	// PollCycles counts poll cycles by result ("ok", "error").
	PollCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asrun_poll_cycles_total",
		Help: "Scheduled poll cycles, by result.",
	}, []string{"result"})

	// DaysBehind is the gap size from the latest continuity check.
	DaysBehind = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "asrun_days_behind",
		Help: "Missing broadcast days reported by the last continuity check.",
	})

	// GapAlertsSent counts alert emails by result ("ok", "error").
	GapAlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asrun_gap_alerts_total",
		Help: "Gap alert notifications attempted, by result.",
	}, []string{"result"})

	// Remediations counts traffic-module restarts by result ("ok", "error").
	Remediations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asrun_remediations_total",
		Help: "Remote traffic-module restarts attempted, by result.",
	}, []string{"result"})
)
