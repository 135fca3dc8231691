package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrun-analyzer/backend/internal/models"
)

func newTestStore(t *testing.T) *DuckStore {
	t.Helper()
	s, err := NewDuckStore(filepath.Join(t.TempDir(), "test.duckdb"), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testFile(id, filename string, ingestedAt time.Time) *models.LogFile {
	return &models.LogFile{
		ID:            id,
		Filename:      filename,
		IngestedAt:    ingestedAt,
		BroadcastDate: time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC),
	}
}

func testEvent(fileID, eventID string, start *time.Time) *models.PlayoutEvent {
	return &models.PlayoutEvent{
		FileID:    fileID,
		EventID:   eventID,
		Title:     "title of " + eventID,
		Category:  models.CategoryNonProgram,
		StartTime: start,
		SpotType:  "COMMERCIAL",
		Status:    "Aired",
	}
}

func commitFile(t *testing.T, s *DuckStore, f *models.LogFile, events ...*models.PlayoutEvent) {
	t.Helper()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.InsertFile(f))
	for _, ev := range events {
		ev.FileID = f.ID
		require.NoError(t, tx.InsertEvent(ev))
	}
	require.NoError(t, tx.Commit())
}

func TestDuckStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2024, 11, 10, 6, 0, 0, 0, time.UTC)
	f := testFile("file-1", "BXF20241110T055959_CompleteAsRun.xml", time.Now().UTC())
	commitFile(t, s, f,
		testEvent("file-1", "EV-1", &start),
		testEvent("file-1", "EV-2", nil))

	got, err := s.FindFileByName(ctx, f.Filename)
	require.NoError(t, err)
	assert.Equal(t, "file-1", got.ID)

	got, err = s.GetFile(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.EventCount)

	events, err := s.ListEvents(ctx, "file-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	byID := map[string]*models.PlayoutEvent{}
	for _, ev := range events {
		byID[ev.EventID] = ev
	}
	require.Contains(t, byID, "EV-1")
	require.Contains(t, byID, "EV-2")
	assert.Nil(t, byID["EV-2"].StartTime)
	require.NotNil(t, byID["EV-1"].StartTime)
	assert.True(t, byID["EV-1"].StartTime.Equal(start))
	assert.Equal(t, "COMMERCIAL", byID["EV-1"].SpotType)
	assert.Equal(t, models.CategoryNonProgram, byID["EV-1"].Category)
}

func TestDuckStore_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindFileByName(ctx, "nope.xml")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetFile(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuckStore_DuplicateFilename(t *testing.T) {
	s := newTestStore(t)

	commitFile(t, s, testFile("file-1", "same.xml", time.Now().UTC()))

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	err = tx.InsertFile(testFile("file-2", "same.xml", time.Now().UTC()))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDuckStore_DuplicateEventIdentity(t *testing.T) {
	s := newTestStore(t)

	start := time.Date(2024, 11, 10, 6, 0, 0, 0, time.UTC)
	commitFile(t, s, testFile("file-1", "a.xml", time.Now().UTC()),
		testEvent("file-1", "EV-1", &start))

	// Same (event_id, start_time) from a later file is a duplicate even
	// though the file differs.
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	require.NoError(t, tx.InsertFile(testFile("file-2", "b.xml", time.Now().UTC())))
	err = tx.InsertEvent(testEvent("file-2", "EV-1", &start))
	assert.ErrorIs(t, err, ErrDuplicate)

	// Same event id at a different start is a distinct airing.
	other := start.Add(30 * time.Minute)
	assert.NoError(t, tx.InsertEvent(testEvent("file-2", "EV-1", &other)))
}

// The unique index never fires for NULL start keys, standard SQL behavior.
// Callers that need untimed dedup must go through FindEvent.
func TestDuckStore_NullStartOutsideUniqueIndex(t *testing.T) {
	s := newTestStore(t)

	commitFile(t, s, testFile("file-1", "a.xml", time.Now().UTC()),
		testEvent("file-1", "EV-N", nil))

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	require.NoError(t, tx.InsertFile(testFile("file-2", "b.xml", time.Now().UTC())))
	assert.NoError(t, tx.InsertEvent(testEvent("file-2", "EV-N", nil)))
}

func TestDuckStore_FindEventNullStart(t *testing.T) {
	s := newTestStore(t)

	commitFile(t, s, testFile("file-1", "a.xml", time.Now().UTC()),
		testEvent("file-1", "EV-N", nil))

	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()

	ev, err := tx.FindEvent("EV-N", nil)
	require.NoError(t, err)
	assert.Equal(t, "EV-N", ev.EventID)
	assert.Nil(t, ev.StartTime)

	start := time.Date(2024, 11, 10, 6, 0, 0, 0, time.UTC)
	_, err = tx.FindEvent("EV-N", &start)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuckStore_RollbackDiscards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertFile(testFile("file-1", "a.xml", time.Now().UTC())))
	require.NoError(t, tx.Rollback())

	_, err = s.FindFileByName(ctx, "a.xml")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuckStore_ListRecentFilesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 11, 10, 12, 0, 0, 0, time.UTC)
	commitFile(t, s, testFile("file-1", "a.xml", base))
	commitFile(t, s, testFile("file-2", "b.xml", base.Add(time.Hour)))
	commitFile(t, s, testFile("file-3", "c.xml", base.Add(2*time.Hour)))

	files, err := s.ListRecentFiles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "file-3", files[0].ID)
	assert.Equal(t, "file-2", files[1].ID)

	n, err := s.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.CountFilesSince(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDuckStore_ReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.duckdb")

	s, err := NewDuckStore(path, "", 0)
	require.NoError(t, err)
	commitFile(t, s, testFile("file-1", "a.xml", time.Now().UTC()))
	require.NoError(t, s.Close())

	s, err = NewDuckStore(path, "", 0)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CountFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
