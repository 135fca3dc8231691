// Package storage keeps local copies of downloaded as-run files.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SpoolFile is metadata about one spooled download.
type SpoolFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	DownloadedAt time.Time `json:"downloadedAt"`
	Path         string    `json:"path"`
}

// Spool stores downloaded files on the local filesystem under opaque IDs,
// so a re-download of the same remote name never clobbers an earlier copy
// that may still be mid-ingest.
type Spool struct {
	mu    sync.RWMutex
	dir   string
	files map[string]*SpoolFile
}

// NewSpool creates a Spool rooted at dir, creating it if needed.
func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}
	return &Spool{
		dir:   dir,
		files: make(map[string]*SpoolFile),
	}, nil
}

// Save streams r into the spool and returns the new file's metadata.
func (s *Spool) Save(name string, r io.Reader) (*SpoolFile, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing spool file: %w", err)
	}

	info := &SpoolFile{
		ID:           id,
		Name:         name,
		Size:         size,
		DownloadedAt: time.Now(),
		Path:         path,
	}

	s.mu.Lock()
	s.files[id] = info
	s.mu.Unlock()

	return info, nil
}

// Get retrieves spool metadata by ID.
func (s *Spool) Get(id string) (*SpoolFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("spool file not found: %s", id)
	}
	return info, nil
}

// List returns the most recent downloads, newest first.
func (s *Spool) List(limit int) []*SpoolFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*SpoolFile
	for _, info := range s.files {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DownloadedAt.After(list[j].DownloadedAt)
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

// Remove deletes a spooled file and its metadata.
func (s *Spool) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("spool file not found: %s", id)
	}
	if err := os.Remove(filepath.Join(s.dir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting spool file: %w", err)
	}
	delete(s.files, id)
	return nil
}
