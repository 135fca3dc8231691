// mock_store.go - In-memory store implementation for testing
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asrun-analyzer/backend/internal/models"
	"github.com/asrun-analyzer/backend/internal/store"
)

// MockStore implements store.Store in memory with the same uniqueness
// semantics as the real database: filename per file and
// (event_id, start_time) per event, where a nil start time falls outside
// the index like a SQL NULL key.
type MockStore struct {
	mu     sync.Mutex
	files  map[string]*models.LogFile // by ID
	events []*models.PlayoutEvent
	nextID int64

	// FailInsertEvent forces InsertEvent to fail after N successful
	// inserts; use -1 to disable. Exercises rollback paths.
	FailInsertEvent int
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		files:           make(map[string]*models.LogFile),
		FailInsertEvent: -1,
	}
}

// EventCount returns the number of committed events.
func (m *MockStore) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *MockStore) findFileByNameLocked(filename string) (*models.LogFile, error) {
	for _, f := range m.files {
		if f.Filename == filename {
			cp := *f
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) FindFileByName(_ context.Context, filename string) (*models.LogFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findFileByNameLocked(filename)
}

func (m *MockStore) GetFile(_ context.Context, id string) (*models.LogFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f
	for _, ev := range m.events {
		if ev.FileID == id {
			cp.EventCount++
		}
	}
	return &cp, nil
}

func (m *MockStore) ListRecentFiles(_ context.Context, limit int) ([]*models.LogFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LogFile
	for _, f := range m.files {
		cp := *f
		for _, ev := range m.events {
			if ev.FileID == f.ID {
				cp.EventCount++
			}
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngestedAt.After(out[j].IngestedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStore) ListEvents(_ context.Context, fileID string) ([]*models.PlayoutEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PlayoutEvent
	for _, ev := range m.events {
		if ev.FileID == fileID {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockStore) CountFiles(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files), nil
}

func (m *MockStore) CountFilesSince(_ context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.files {
		if !f.IngestedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MockStore) Begin(_ context.Context) (store.Tx, error) {
	return &mockTx{store: m}, nil
}

func (m *MockStore) Close() error { return nil }

// mockTx buffers writes and applies them on Commit, holding the store lock
// for the whole apply so visibility is all-or-nothing.
type mockTx struct {
	store    *MockStore
	files    []*models.LogFile
	events   []*models.PlayoutEvent
	done     bool
	inserted int
}

func (t *mockTx) FindFileByName(filename string) (*models.LogFile, error) {
	for _, f := range t.files {
		if f.Filename == filename {
			cp := *f
			return &cp, nil
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	return t.store.findFileByNameLocked(filename)
}

func (t *mockTx) InsertFile(f *models.LogFile) error {
	if _, err := t.FindFileByName(f.Filename); err == nil {
		return fmt.Errorf("file %q: %w", f.Filename, store.ErrDuplicate)
	}
	cp := *f
	t.files = append(t.files, &cp)
	return nil
}

func sameIdentity(a *models.PlayoutEvent, eventID string, startTime *time.Time) bool {
	if a.EventID != eventID {
		return false
	}
	if a.StartTime == nil || startTime == nil {
		return a.StartTime == nil && startTime == nil
	}
	return a.StartTime.Equal(*startTime)
}

// indexedIdentity reports a collision under the unique index. Nil start
// times never collide there, matching NULL-key behavior, so untimed
// duplicates are only visible through FindEvent.
func indexedIdentity(a *models.PlayoutEvent, eventID string, startTime *time.Time) bool {
	if a.StartTime == nil || startTime == nil {
		return false
	}
	return a.EventID == eventID && a.StartTime.Equal(*startTime)
}

func (t *mockTx) FindEvent(eventID string, startTime *time.Time) (*models.PlayoutEvent, error) {
	for _, ev := range t.events {
		if sameIdentity(ev, eventID, startTime) {
			cp := *ev
			return &cp, nil
		}
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, ev := range t.store.events {
		if sameIdentity(ev, eventID, startTime) {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *mockTx) InsertEvent(ev *models.PlayoutEvent) error {
	if t.store.FailInsertEvent >= 0 && t.inserted >= t.store.FailInsertEvent {
		return fmt.Errorf("mock store: forced insert failure")
	}
	if ev.StartTime != nil {
		if _, err := t.FindEvent(ev.EventID, ev.StartTime); err == nil {
			return fmt.Errorf("event (%s, %v): %w", ev.EventID, ev.StartTime, store.ErrDuplicate)
		}
	}
	cp := *ev
	t.events = append(t.events, &cp)
	t.inserted++
	return nil
}

func (t *mockTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	// Re-check constraints at commit, mirroring how a concurrent writer
	// could have won between insert and commit.
	for _, f := range t.files {
		if _, err := t.store.findFileByNameLocked(f.Filename); err == nil {
			return fmt.Errorf("file %q: %w", f.Filename, store.ErrDuplicate)
		}
	}
	for _, ev := range t.events {
		for _, existing := range t.store.events {
			if indexedIdentity(existing, ev.EventID, ev.StartTime) {
				return fmt.Errorf("event (%s, %v): %w", ev.EventID, ev.StartTime, store.ErrDuplicate)
			}
		}
	}

	for _, f := range t.files {
		t.store.files[f.ID] = f
	}
	for _, ev := range t.events {
		t.store.nextID++
		ev.ID = t.store.nextID
		t.store.events = append(t.store.events, ev)
	}
	return nil
}

func (t *mockTx) Rollback() error {
	t.done = true
	t.files = nil
	t.events = nil
	return nil
}
