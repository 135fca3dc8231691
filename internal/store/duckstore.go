package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/asrun-analyzer/backend/internal/models"
)

// DuckStore implements Store on an embedded DuckDB database file.
type DuckStore struct {
	db     *sql.DB
	dbPath string
}

const schema = `
CREATE TABLE IF NOT EXISTS asrun_files (
	id             VARCHAR PRIMARY KEY,
	filename       VARCHAR NOT NULL UNIQUE,
	ingested_at    TIMESTAMP NOT NULL,
	broadcast_date TIMESTAMP NOT NULL
);
CREATE SEQUENCE IF NOT EXISTS events_id_seq;
CREATE TABLE IF NOT EXISTS events (
	id                  BIGINT PRIMARY KEY DEFAULT nextval('events_id_seq'),
	file_id             VARCHAR NOT NULL,
	event_id            VARCHAR NOT NULL,
	title               VARCHAR,
	description         VARCHAR,
	category            VARCHAR,
	start_time          TIMESTAMP,
	duration_code       VARCHAR,
	spot_type           VARCHAR,
	spot_type_category  VARCHAR,
	start_mode          VARCHAR,
	start_mode_category VARCHAR,
	end_mode            VARCHAR,
	end_mode_category   VARCHAR,
	status              VARCHAR,
	event_type          VARCHAR,
	house_number        VARCHAR,
	source              VARCHAR,
	segment_number      VARCHAR,
	segment_name        VARCHAR,
	program_name        VARCHAR,
	UNIQUE (event_id, start_time)
);
`

// NewDuckStore opens (creating if needed) a DuckDB database at dbPath and
// ensures the schema exists. Pass ":memory:" as an empty path for tests.
func NewDuckStore(dbPath string, memoryLimit string, threads int) (*DuckStore, error) {
	if memoryLimit == "" {
		memoryLimit = "512MB"
	}
	if threads <= 0 {
		threads = 2
	}

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", memoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DuckStore{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (s *DuckStore) Close() error {
	return s.db.Close()
}

const fileColumns = "id, filename, ingested_at, broadcast_date"

func scanFile(row interface{ Scan(...any) error }) (*models.LogFile, error) {
	var f models.LogFile
	if err := row.Scan(&f.ID, &f.Filename, &f.IngestedAt, &f.BroadcastDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// FindFileByName looks up a file by its natural key.
func (s *DuckStore) FindFileByName(ctx context.Context, filename string) (*models.LogFile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM asrun_files WHERE filename = ?", filename)
	return scanFile(row)
}

// GetFile looks up a file by ID, including its event count.
func (s *DuckStore) GetFile(ctx context.Context, id string) (*models.LogFile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+fileColumns+" FROM asrun_files WHERE id = ?", id)
	f, err := scanFile(row)
	if err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE file_id = ?", id).Scan(&f.EventCount); err != nil {
		return nil, err
	}
	return f, nil
}

// ListRecentFiles returns the most recently ingested files, newest first.
func (s *DuckStore) ListRecentFiles(ctx context.Context, limit int) ([]*models.LogFile, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.filename, f.ingested_at, f.broadcast_date, COUNT(e.id)
		FROM asrun_files f
		LEFT JOIN events e ON e.file_id = f.id
		GROUP BY f.id, f.filename, f.ingested_at, f.broadcast_date
		ORDER BY f.ingested_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.LogFile
	for rows.Next() {
		var f models.LogFile
		if err := rows.Scan(&f.ID, &f.Filename, &f.IngestedAt, &f.BroadcastDate, &f.EventCount); err != nil {
			return nil, err
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}

const eventColumns = `id, file_id, event_id, title, description, category,
	start_time, duration_code, spot_type, spot_type_category,
	start_mode, start_mode_category, end_mode, end_mode_category,
	status, event_type, house_number, source,
	segment_number, segment_name, program_name`

func scanEvent(row interface{ Scan(...any) error }) (*models.PlayoutEvent, error) {
	var (
		ev       models.PlayoutEvent
		start    sql.NullTime
		category sql.NullString
		strs     [16]sql.NullString
	)
	err := row.Scan(&ev.ID, &ev.FileID, &ev.EventID, &strs[0], &strs[1], &category,
		&start, &strs[2], &strs[3], &strs[4],
		&strs[5], &strs[6], &strs[7], &strs[8],
		&strs[9], &strs[10], &strs[11], &strs[12],
		&strs[13], &strs[14], &strs[15])
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if start.Valid {
		t := start.Time
		ev.StartTime = &t
	}
	ev.Title = strs[0].String
	ev.Description = strs[1].String
	ev.Category = models.EventCategory(category.String)
	ev.DurationCode = strs[2].String
	ev.SpotType = strs[3].String
	ev.SpotTypeCategory = strs[4].String
	ev.StartMode = strs[5].String
	ev.StartModeCategory = strs[6].String
	ev.EndMode = strs[7].String
	ev.EndModeCategory = strs[8].String
	ev.Status = strs[9].String
	ev.EventType = strs[10].String
	ev.HouseNumber = strs[11].String
	ev.Source = strs[12].String
	ev.SegmentNumber = strs[13].String
	ev.SegmentName = strs[14].String
	ev.ProgramName = strs[15].String
	return &ev, nil
}

// ListEvents returns all events of a file in start-time order.
func (s *DuckStore) ListEvents(ctx context.Context, fileID string) ([]*models.PlayoutEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE file_id = ? ORDER BY start_time, id", fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.PlayoutEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountFiles returns the total number of ingested files.
func (s *DuckStore) CountFiles(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM asrun_files").Scan(&n)
	return n, err
}

// CountFilesSince returns files ingested at or after since.
func (s *DuckStore) CountFilesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM asrun_files WHERE ingested_at >= ?", since).Scan(&n)
	return n, err
}

// Begin opens a scoped transaction.
func (s *DuckStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &duckTx{tx: tx}, nil
}

type duckTx struct {
	tx *sql.Tx
}

func (t *duckTx) FindFileByName(filename string) (*models.LogFile, error) {
	row := t.tx.QueryRow("SELECT "+fileColumns+" FROM asrun_files WHERE filename = ?", filename)
	return scanFile(row)
}

func (t *duckTx) InsertFile(f *models.LogFile) error {
	_, err := t.tx.Exec(
		"INSERT INTO asrun_files (id, filename, ingested_at, broadcast_date) VALUES (?, ?, ?, ?)",
		f.ID, f.Filename, f.IngestedAt, f.BroadcastDate)
	if err != nil && isConstraintErr(err) {
		return fmt.Errorf("file %q: %w", f.Filename, ErrDuplicate)
	}
	return err
}

func (t *duckTx) FindEvent(eventID string, startTime *time.Time) (*models.PlayoutEvent, error) {
	var row *sql.Row
	if startTime == nil {
		row = t.tx.QueryRow(
			"SELECT "+eventColumns+" FROM events WHERE event_id = ? AND start_time IS NULL", eventID)
	} else {
		row = t.tx.QueryRow(
			"SELECT "+eventColumns+" FROM events WHERE event_id = ? AND start_time = ?", eventID, *startTime)
	}
	return scanEvent(row)
}

func (t *duckTx) InsertEvent(ev *models.PlayoutEvent) error {
	var start any
	if ev.StartTime != nil {
		start = *ev.StartTime
	}
	_, err := t.tx.Exec(`
		INSERT INTO events (
			file_id, event_id, title, description, category,
			start_time, duration_code, spot_type, spot_type_category,
			start_mode, start_mode_category, end_mode, end_mode_category,
			status, event_type, house_number, source,
			segment_number, segment_name, program_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.FileID, ev.EventID, ev.Title, ev.Description, string(ev.Category),
		start, ev.DurationCode, ev.SpotType, ev.SpotTypeCategory,
		ev.StartMode, ev.StartModeCategory, ev.EndMode, ev.EndModeCategory,
		ev.Status, ev.EventType, ev.HouseNumber, ev.Source,
		ev.SegmentNumber, ev.SegmentName, ev.ProgramName)
	if err != nil && isConstraintErr(err) {
		return fmt.Errorf("event (%s, %v): %w", ev.EventID, ev.StartTime, ErrDuplicate)
	}
	return err
}

func (t *duckTx) Commit() error   { return t.tx.Commit() }
func (t *duckTx) Rollback() error { return t.tx.Rollback() }

// isConstraintErr detects a uniqueness violation reported by DuckDB.
func isConstraintErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Constraint Error") ||
		strings.Contains(msg, "Duplicate key") ||
		strings.Contains(msg, "violates unique constraint")
}
