// Package ingest persists extracted playout events with file-level and
// event-level idempotence.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/asrun-analyzer/backend/internal/clock"
	"github.com/asrun-analyzer/backend/internal/models"
	"github.com/asrun-analyzer/backend/internal/store"
)

// Engine ingests one file's worth of events under a single transaction.
//
// Idempotence holds at both granularities: a filename seen before is a
// skipped no-op carrying the prior ingestion's metadata, and an event whose
// (event_id, start_time) identity already exists anywhere in the store is
// discarded, not merged. Timed duplicates are detected by inserting directly
// and treating the store's uniqueness violation as the "already exists"
// signal, so two ingestions racing on the same identity cannot both win.
// Events without a start time fall outside the unique index (SQL treats
// NULL keys as distinct), so those are checked by explicit lookup first.
type Engine struct {
	store store.Store
	clock clock.Clock
	log   *slog.Logger

	// OnIngest, if set, is called with each non-skipped result.
	OnIngest func(res *models.IngestResult)
}

// NewEngine creates an ingestion engine. A nil clk uses the real clock.
func NewEngine(st store.Store, clk clock.Clock, log *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store: st,
		clock: clk,
		log:   log.With("component", "ingest"),
	}
}

// Ingest stores a file and its events. Re-submitting a known filename
// returns a Skipped result, never an error. On any persistence error the
// whole file rolls back; no event is partially visible.
func (e *Engine) Ingest(ctx context.Context, filename string, events []*models.PlayoutEvent) (*models.IngestResult, error) {
	// Fast path: the file was ingested before.
	if prior, err := e.store.FindFileByName(ctx, filename); err == nil {
		return e.skippedResult(ctx, filename, prior)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking file %q: %w", filename, err)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning ingest of %q: %w", filename, err)
	}
	defer tx.Rollback()

	now := e.clock.Now()
	file := &models.LogFile{
		ID:            uuid.New().String(),
		Filename:      filename,
		IngestedAt:    now,
		BroadcastDate: broadcastDate(events, now),
	}

	if err := tx.InsertFile(file); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a race on the filename; the winner's ingest stands.
			tx.Rollback()
			prior, ferr := e.store.FindFileByName(ctx, filename)
			if ferr != nil {
				return nil, fmt.Errorf("file %q ingested concurrently but not found: %w", filename, ferr)
			}
			return e.skippedResult(ctx, filename, prior)
		}
		return nil, fmt.Errorf("inserting file %q: %w", filename, err)
	}

	res := &models.IngestResult{FileID: file.ID, Filename: filename}
	for _, ev := range events {
		ev.FileID = file.ID
		if ev.StartTime == nil {
			// The unique index never fires for NULL start times, so an
			// untimed duplicate has to be caught by lookup before insert.
			if _, ferr := tx.FindEvent(ev.EventID, nil); ferr == nil {
				res.SkippedEvents++
				continue
			} else if !errors.Is(ferr, store.ErrNotFound) {
				return nil, fmt.Errorf("checking event %q of %q: %w", ev.EventID, filename, ferr)
			}
		}
		if err := tx.InsertEvent(ev); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				res.SkippedEvents++
				continue
			}
			return nil, fmt.Errorf("inserting event %q of %q: %w", ev.EventID, filename, err)
		}
		res.NewEvents++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing %q: %w", filename, err)
	}

	e.log.Info("ingested file",
		"filename", filename,
		"newEvents", res.NewEvents,
		"skippedEvents", res.SkippedEvents)
	if e.OnIngest != nil {
		e.OnIngest(res)
	}
	return res, nil
}

func (e *Engine) skippedResult(ctx context.Context, filename string, prior *models.LogFile) (*models.IngestResult, error) {
	// Best effort: enrich the prior metadata with its event count.
	if full, err := e.store.GetFile(ctx, prior.ID); err == nil {
		prior = full
	}
	e.log.Info("file already ingested, skipping", "filename", filename, "fileId", prior.ID)
	return &models.IngestResult{
		FileID:   prior.ID,
		Filename: filename,
		Skipped:  true,
		Prior:    prior,
	}, nil
}

// broadcastDate derives the file's broadcast date from the first event that
// carries a start time, falling back to the ingestion time for files with
// no timed events.
func broadcastDate(events []*models.PlayoutEvent, fallback time.Time) time.Time {
	for _, ev := range events {
		if ev.StartTime != nil {
			t := *ev.StartTime
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		}
	}
	return fallback
}
