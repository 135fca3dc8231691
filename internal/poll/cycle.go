// Package poll runs one scheduled cycle against the remote file source.
//
// Two operating modes exist. The primary daily gap-check mode lists the
// remote directory, runs the continuity monitor, and drives alerting and
// remediation. The older hourly bulk mode downloads recently arrived files
// and ingests them. A deployment runs one mode, never both.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/asrun-analyzer/backend/internal/continuity"
	"github.com/asrun-analyzer/backend/internal/ingest"
	"github.com/asrun-analyzer/backend/internal/metrics"
	"github.com/asrun-analyzer/backend/internal/models"
	"github.com/asrun-analyzer/backend/internal/notify"
	"github.com/asrun-analyzer/backend/internal/parser"
	"github.com/asrun-analyzer/backend/internal/remediate"
	"github.com/asrun-analyzer/backend/internal/storage"
	"github.com/asrun-analyzer/backend/internal/store"
	"github.com/asrun-analyzer/backend/internal/transport"
	"github.com/asrun-analyzer/backend/internal/vocab"
)

// Mode selects the cycle behavior.
type Mode string

const (
	ModeDaily  Mode = "daily"  // gap check + alerting (primary)
	ModeHourly Mode = "hourly" // bulk download + ingest
)

// Cycle holds the collaborators of one poll run.
type Cycle struct {
	Transport  transport.Client
	RemotePath string
	Monitor    *continuity.Monitor

	// Notifier and Remediator are optional; nil disables them.
	Notifier   notify.Notifier
	Remediator remediate.Remediator

	// RemediationThreshold is the DaysBehind value at or above which the
	// Remediator fires. Zero disables remediation regardless of gap size.
	RemediationThreshold int

	// Bulk-mode collaborators.
	Spool     *storage.Spool
	Extractor *parser.Extractor
	Engine    *ingest.Engine
	Lookback  time.Duration

	// Store and Classifier feed the daily status report when
	// StatusReports is set; the report goes out through Notifier.
	Store         store.Store
	Classifier    *vocab.Classifier
	StatusReports bool

	Log *slog.Logger
}

func (c *Cycle) log() *slog.Logger {
	if c.Log == nil {
		return slog.Default().With("component", "poll")
	}
	return c.Log
}

// Run executes one cycle in the given mode.
func (c *Cycle) Run(ctx context.Context, mode Mode) error {
	var err error
	switch mode {
	case ModeHourly:
		err = c.RunBulk(ctx)
	default:
		_, err = c.RunGapCheck(ctx)
	}
	if err != nil {
		metrics.PollCycles.WithLabelValues("error").Inc()
		return err
	}
	metrics.PollCycles.WithLabelValues("ok").Inc()
	return nil
}

// RunGapCheck lists the remote directory and checks continuity. A detected
// gap triggers the notifier, and a gap at or past the remediation
// threshold triggers the remediator. Notifier and remediator failures are
// logged, never escalated: there is always a next cycle.
func (c *Cycle) RunGapCheck(ctx context.Context) (*models.GapReport, error) {
	entries, err := c.list(ctx)
	if err != nil {
		return nil, err
	}

	report := c.Monitor.Check(entries)
	metrics.DaysBehind.Set(float64(report.DaysBehind))
	c.log().Info("continuity check complete",
		"status", report.Status,
		"daysBehind", report.DaysBehind)

	c.sendStatusReport(ctx, report)

	if report.IsCurrent && report.Status == models.GapStatusOK {
		return report, nil
	}

	if c.Notifier != nil {
		if err := c.Notifier.SendGapAlert(ctx, report); err != nil {
			metrics.GapAlertsSent.WithLabelValues("error").Inc()
			c.log().Error("failed to send gap alert", "error", err)
		} else {
			metrics.GapAlertsSent.WithLabelValues("ok").Inc()
		}
	}

	if c.Remediator != nil && c.RemediationThreshold > 0 && report.DaysBehind >= c.RemediationThreshold {
		if err := c.Remediator.RestartRemoteService(ctx); err != nil {
			metrics.Remediations.WithLabelValues("error").Inc()
			c.log().Error("traffic module restart failed", "error", err, "daysBehind", report.DaysBehind)
		} else {
			metrics.Remediations.WithLabelValues("ok").Inc()
			c.log().Info("traffic module restarted", "daysBehind", report.DaysBehind)
		}
	}

	return report, nil
}

// sendStatusReport emails the daily summary when configured. Like the gap
// alert, a send failure never fails the cycle.
func (c *Cycle) sendStatusReport(ctx context.Context, report *models.GapReport) {
	if !c.StatusReports || c.Notifier == nil || c.Store == nil {
		return
	}

	total, err := c.Store.CountFiles(ctx)
	if err != nil {
		c.log().Error("status report: counting files failed", "error", err)
		return
	}
	recent, err := c.Store.CountFilesSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		c.log().Error("status report: counting recent files failed", "error", err)
		return
	}

	status := notify.StatusInfo{
		TotalFiles:   total,
		RecentFiles:  recent,
		SystemStatus: string(report.Status),
	}
	if c.Classifier != nil {
		status.UnknownValues = c.Classifier.UnknownValues()
	}

	if err := c.Notifier.SendStatusReport(ctx, status); err != nil {
		c.log().Error("failed to send status report", "error", err)
	}
}

// RunBulk downloads files that arrived within the lookback window and
// ingests them. Selection uses the filename-embedded timestamp, not the
// listing mtime. Per-file failures are logged and skipped.
func (c *Cycle) RunBulk(ctx context.Context) error {
	entries, err := c.list(ctx)
	if err != nil {
		return err
	}

	lookback := c.Lookback
	if lookback <= 0 {
		lookback = time.Hour
	}
	cutoff := time.Now().Add(-lookback)

	var picked []models.RemoteFileEntry
	for _, e := range entries {
		if !c.Monitor.IsCandidate(e.Filename) {
			continue
		}
		ts, err := c.Monitor.ParseTimestamp(e.Filename)
		if err != nil {
			c.log().Warn("skipping file with unparseable timestamp", "filename", e.Filename)
			continue
		}
		if ts.Before(cutoff) {
			continue
		}
		e.Timestamp = ts
		picked = append(picked, e)
	}
	c.log().Info("bulk cycle selected files", "listed", len(entries), "selected", len(picked))

	if len(picked) == 0 {
		return nil
	}

	if err := c.Transport.Connect(ctx); err != nil {
		return err
	}
	defer c.Transport.Disconnect()

	for _, e := range picked {
		if err := c.fetchAndIngest(ctx, e); err != nil {
			c.log().Error("failed to process remote file", "filename", e.Filename, "error", err)
		}
	}
	return nil
}

func (c *Cycle) fetchAndIngest(ctx context.Context, e models.RemoteFileEntry) error {
	rc, err := c.Transport.Fetch(c.RemotePath, e.Filename)
	if err != nil {
		return err
	}
	defer rc.Close()

	spooled, err := c.Spool.Save(e.Filename, rc)
	if err != nil {
		return fmt.Errorf("spooling %q: %w", e.Filename, err)
	}

	data, err := os.ReadFile(spooled.Path)
	if err != nil {
		return fmt.Errorf("reading spooled file: %w", err)
	}

	events, err := c.Extractor.Extract(data)
	if err != nil {
		return err
	}

	res, err := c.Engine.Ingest(ctx, e.Filename, events)
	if err != nil {
		return err
	}
	if res.Skipped {
		metrics.FilesIngested.WithLabelValues("skipped").Inc()
	} else {
		metrics.FilesIngested.WithLabelValues("new").Inc()
		metrics.EventsIngested.WithLabelValues("new").Add(float64(res.NewEvents))
		metrics.EventsIngested.WithLabelValues("skipped").Add(float64(res.SkippedEvents))
	}
	return nil
}

// Probe verifies remote connectivity by listing the configured path once.
func (c *Cycle) Probe(ctx context.Context) error {
	_, err := c.list(ctx)
	return err
}

// list connects, lists the remote path, and disconnects. The connection is
// not held across the rest of the cycle; the daily mode needs nothing else
// from the remote.
func (c *Cycle) list(ctx context.Context) ([]models.RemoteFileEntry, error) {
	if err := c.Transport.Connect(ctx); err != nil {
		return nil, err
	}
	defer c.Transport.Disconnect()

	entries, err := c.Transport.List(c.RemotePath)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
