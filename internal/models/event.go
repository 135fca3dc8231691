// Package models contains domain types for the AsRun Analyzer.
package models

import "time"

// EventCategory distinguishes program content from everything else.
type EventCategory string

const (
	CategoryProgram    EventCategory = "Program"
	CategoryNonProgram EventCategory = "NonProgram"
)

// PlayoutEvent is one broadcast occurrence extracted from an as-run log.
// The pair (EventID, StartTime) identifies an event across the whole store;
// the same event may reappear in overlapping file deliveries.
type PlayoutEvent struct {
	ID     int64  `json:"id,omitempty" msgpack:"id"`
	FileID string `json:"fileId,omitempty" msgpack:"fileId"`

	EventID     string        `json:"eventId" msgpack:"eventId"`
	Title       string        `json:"title,omitempty" msgpack:"title"`
	Description string        `json:"description,omitempty" msgpack:"description"`
	Category    EventCategory `json:"category,omitempty" msgpack:"category"`

	// StartTime is nil when the record carried no timing subtree.
	StartTime    *time.Time `json:"startTime,omitempty" msgpack:"startTime"`
	DurationCode string     `json:"durationCode,omitempty" msgpack:"durationCode"`

	SpotType          string `json:"spotType,omitempty" msgpack:"spotType"`
	SpotTypeCategory  string `json:"spotTypeCategory,omitempty" msgpack:"spotTypeCategory"`
	StartMode         string `json:"startMode,omitempty" msgpack:"startMode"`
	StartModeCategory string `json:"startModeCategory,omitempty" msgpack:"startModeCategory"`
	EndMode           string `json:"endMode,omitempty" msgpack:"endMode"`
	EndModeCategory   string `json:"endModeCategory,omitempty" msgpack:"endModeCategory"`

	Status      string `json:"status,omitempty" msgpack:"status"`
	EventType   string `json:"eventType,omitempty" msgpack:"eventType"`
	HouseNumber string `json:"houseNumber,omitempty" msgpack:"houseNumber"`
	Source      string `json:"source,omitempty" msgpack:"source"`

	// Program-only fields.
	SegmentNumber string `json:"segmentNumber,omitempty" msgpack:"segmentNumber"`
	SegmentName   string `json:"segmentName,omitempty" msgpack:"segmentName"`
	ProgramName   string `json:"programName,omitempty" msgpack:"programName"`
}

// LogFile tracks one ingested as-run document. Filename is the natural key;
// re-submission of a known filename is a no-op.
type LogFile struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	IngestedAt    time.Time `json:"ingestedAt"`
	BroadcastDate time.Time `json:"broadcastDate"`
	EventCount    int       `json:"eventCount,omitempty"`
}

// IngestResult summarizes one ingestion attempt.
type IngestResult struct {
	FileID        string `json:"fileId"`
	Filename      string `json:"filename"`
	Skipped       bool   `json:"skipped"`
	NewEvents     int    `json:"newEvents"`
	SkippedEvents int    `json:"skippedEvents"`

	// Set on Skipped results: metadata of the prior ingestion.
	Prior *LogFile `json:"prior,omitempty"`
}
