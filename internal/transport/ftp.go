package transport

import (
	"context"
	"io"
	"path"

	"github.com/jlaffaye/ftp"

	"github.com/asrun-analyzer/backend/internal/models"
)

// FTPClient talks plain FTP to the traffic system's drop directory.
type FTPClient struct {
	cfg  Config
	conn *ftp.ServerConn
}

// NewFTPClient creates an unconnected FTP client.
func NewFTPClient(cfg Config) *FTPClient {
	return &FTPClient{cfg: cfg}
}

// Connect dials and logs in. Connect timeouts bound the dial; reads are
// bounded by the same timeout via the library's shutdown deadline.
func (c *FTPClient) Connect(ctx context.Context) error {
	conn, err := ftp.Dial(c.cfg.addr(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(c.cfg.timeout()),
		ftp.DialWithShutTimeout(c.cfg.timeout()))
	if err != nil {
		return &Error{Op: "connect", Err: err}
	}
	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		conn.Quit()
		return &Error{Op: "login", Err: err}
	}
	c.conn = conn
	return nil
}

// Disconnect closes the control connection. Safe to call when not connected.
func (c *FTPClient) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	if err != nil {
		return &Error{Op: "disconnect", Err: err}
	}
	return nil
}

// List returns one entry per regular file in dir.
func (c *FTPClient) List(dir string) ([]models.RemoteFileEntry, error) {
	entries, err := c.conn.List(dir)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}

	var out []models.RemoteFileEntry
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		out = append(out, models.RemoteFileEntry{
			Filename: e.Name,
			Raw:      e.Name,
			Size:     int64(e.Size),
		})
	}
	return out, nil
}

// Fetch opens a remote file for reading.
func (c *FTPClient) Fetch(dir, name string) (io.ReadCloser, error) {
	resp, err := c.conn.Retr(path.Join(dir, name))
	if err != nil {
		return nil, &Error{Op: "fetch", Err: err}
	}
	return resp, nil
}
