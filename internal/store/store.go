// Package store persists ingested as-run files and their playout events.
//
// Identity keys are enforced by the database itself: filename is unique per
// file and (event_id, start_time) is unique across all events. Callers that
// race on the same key get ErrDuplicate from the insert, which the
// ingestion engine treats as "already exists".
package store

import (
	"context"
	"errors"
	"time"

	"github.com/asrun-analyzer/backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("store: duplicate key")

// Store is the persistence contract used by the ingestion engine and the
// API layer.
type Store interface {
	FindFileByName(ctx context.Context, filename string) (*models.LogFile, error)
	GetFile(ctx context.Context, id string) (*models.LogFile, error)
	ListRecentFiles(ctx context.Context, limit int) ([]*models.LogFile, error)
	ListEvents(ctx context.Context, fileID string) ([]*models.PlayoutEvent, error)
	CountFiles(ctx context.Context) (int, error)
	CountFilesSince(ctx context.Context, since time.Time) (int, error)

	// Begin opens a scoped transaction. The caller must Commit or Rollback.
	Begin(ctx context.Context) (Tx, error)

	Close() error
}

// Tx is one atomic unit of ingestion work.
type Tx interface {
	FindFileByName(filename string) (*models.LogFile, error)
	InsertFile(f *models.LogFile) error
	FindEvent(eventID string, startTime *time.Time) (*models.PlayoutEvent, error)
	InsertEvent(ev *models.PlayoutEvent) error
	Commit() error
	Rollback() error
}
