// Package continuity infers missing broadcast days from a remote directory
// listing.
//
// The authoritative timestamp of a file is the one embedded in its own
// filename (BXF<YYYYMMDDTHHMMSS>...), never the listing's mtime: remote
// hosts re-timestamp on transfer, and FTP and SFTP listings encode time
// differently and at coarser-than-second granularity.
package continuity

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/asrun-analyzer/backend/internal/clock"
	"github.com/asrun-analyzer/backend/internal/models"
)

// timestampLayout matches the filename-embedded timestamp at bytes 3-18.
const timestampLayout = "20060102T150405"

// MarkerRule identifies the canonical daily file among a listing.
type MarkerRule struct {
	// Prefix the filename must start with (default "BXF").
	Prefix string
	// Markers are substrings the filename must all contain.
	Markers []string
	// TimeOfDay is the HHMMSS token of the canonical daily instance.
	TimeOfDay string
	// Suffix the filename must end with (default ".xml").
	Suffix string
}

// Monitor runs continuity checks against a reference timezone.
type Monitor struct {
	rule  MarkerRule
	loc   *time.Location
	clock clock.Clock
	log   *slog.Logger
}

// NewMonitor creates a Monitor. loc is the broadcaster's reference zone;
// a nil clk uses the real clock.
func NewMonitor(rule MarkerRule, loc *time.Location, clk clock.Clock, log *slog.Logger) *Monitor {
	if rule.Prefix == "" {
		rule.Prefix = "BXF"
	}
	if rule.Suffix == "" {
		rule.Suffix = ".xml"
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		rule:  rule,
		loc:   loc,
		clock: clk,
		log:   log.With("component", "continuity"),
	}
}

// IsCandidate reports whether a filename carries the configured prefix and
// suffix. Bulk selection uses this looser test so intraday instances are
// picked up alongside the daily marker.
func (m *Monitor) IsCandidate(name string) bool {
	return strings.HasPrefix(name, m.rule.Prefix) && strings.HasSuffix(name, m.rule.Suffix)
}

// IsDailyMarker reports whether a filename names the canonical daily file.
func (m *Monitor) IsDailyMarker(name string) bool {
	if !m.IsCandidate(name) {
		return false
	}
	for _, marker := range m.rule.Markers {
		if !strings.Contains(name, marker) {
			return false
		}
	}
	if m.rule.TimeOfDay != "" && !strings.Contains(name, m.rule.TimeOfDay) {
		return false
	}
	return true
}

// ParseTimestamp extracts the filename-embedded timestamp, interpreted in
// the reference zone.
func (m *Monitor) ParseTimestamp(name string) (time.Time, error) {
	prefixLen := len(m.rule.Prefix)
	end := prefixLen + len(timestampLayout)
	if len(name) < end {
		return time.Time{}, &TimestampError{Filename: name}
	}
	ts, err := time.ParseInLocation(timestampLayout, name[prefixLen:end], m.loc)
	if err != nil {
		return time.Time{}, &TimestampError{Filename: name, Err: err}
	}
	return ts, nil
}

// TimestampError reports a filename whose embedded timestamp is malformed.
type TimestampError struct {
	Filename string
	Err      error
}

func (e *TimestampError) Error() string {
	return "no parseable timestamp in filename " + e.Filename
}

func (e *TimestampError) Unwrap() error { return e.Err }

// Check computes the gap report for one directory listing. Entries that
// are not daily markers are ignored; markers whose embedded timestamp does
// not parse are dropped with a warning. Check never fails: an empty
// candidate set yields a NoFilesFound report.
func (m *Monitor) Check(entries []models.RemoteFileEntry) *models.GapReport {
	now := m.clock.Now().In(m.loc)

	var candidates []models.RemoteFileEntry
	var samples []string
	for _, e := range entries {
		if len(samples) < 5 {
			samples = append(samples, e.Filename)
		}
		if !m.IsDailyMarker(e.Filename) {
			continue
		}
		ts, err := m.ParseTimestamp(e.Filename)
		if err != nil {
			m.log.Warn("dropping daily marker with bad timestamp", "filename", e.Filename, "error", err)
			continue
		}
		e.Timestamp = ts
		candidates = append(candidates, e)
	}

	if len(candidates) == 0 {
		m.log.Warn("no daily marker files found in listing", "entries", len(entries))
		return &models.GapReport{
			Status:          models.GapStatusNoFilesFound,
			CurrentTime:     now,
			MissingDates:    []time.Time{},
			SampleFilenames: samples,
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.After(candidates[j].Timestamp)
	})
	latest := candidates[0]

	var missing []time.Time
	for d := midnight(latest.Timestamp).AddDate(0, 0, 1); !d.After(midnight(now)); d = d.AddDate(0, 0, 1) {
		missing = append(missing, d)
	}
	if missing == nil {
		missing = []time.Time{}
	}

	report := &models.GapReport{
		Status:       models.GapStatusOK,
		LatestFile:   &latest,
		CurrentTime:  now,
		MissingDates: missing,
		DaysBehind:   len(missing),
		IsCurrent:    len(missing) == 0,
	}
	if !report.IsCurrent {
		report.Status = models.GapStatusBehind
		m.log.Warn("continuity gap detected",
			"latestFile", latest.Filename,
			"daysBehind", report.DaysBehind)
	}
	return report
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
