// Package transport lists and fetches as-run files from the remote traffic
// system. FTP and SFTP backends are interchangeable behind the Client
// interface; callers never see protocol detail.
package transport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/asrun-analyzer/backend/internal/models"
)

// Client is the remote file source contract used by the poll cycle.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect() error

	// List returns the raw entries of a remote directory. Timestamps are
	// left zero; the continuity monitor derives them from filenames.
	List(path string) ([]models.RemoteFileEntry, error)

	// Fetch opens a remote file for reading. The caller closes it.
	Fetch(path, name string) (io.ReadCloser, error)
}

// Error wraps a transport failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("transport %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Config holds connection settings shared by both protocols.
type Config struct {
	Protocol string // "ftp" or "sftp"
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		if c.Protocol == "sftp" {
			port = 22
		} else {
			port = 21
		}
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// New builds a Client for the configured protocol.
func New(cfg Config) (Client, error) {
	switch cfg.Protocol {
	case "ftp", "":
		return NewFTPClient(cfg), nil
	case "sftp":
		return NewSFTPClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transport protocol %q", cfg.Protocol)
	}
}
