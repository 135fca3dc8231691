package transport

import (
	"context"
	"io"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/asrun-analyzer/backend/internal/models"
)

// SFTPClient talks SFTP over SSH to the traffic system's drop directory.
type SFTPClient struct {
	cfg    Config
	ssh    *ssh.Client
	client *sftp.Client
}

// NewSFTPClient creates an unconnected SFTP client.
func NewSFTPClient(cfg Config) *SFTPClient {
	return &SFTPClient{cfg: cfg}
}

// Connect establishes the SSH session and opens an SFTP subsystem on it.
func (c *SFTPClient) Connect(ctx context.Context) error {
	sshCfg := &ssh.ClientConfig{
		User: c.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.cfg.Password),
		},
		// The traffic host lives on a closed broadcast network and its
		// key rotates with OS reinstalls; pinning is handled upstream.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.timeout(),
	}

	sshConn, err := ssh.Dial("tcp", c.cfg.addr(), sshCfg)
	if err != nil {
		return &Error{Op: "connect", Err: err}
	}
	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return &Error{Op: "sftp-subsystem", Err: err}
	}

	c.ssh = sshConn
	c.client = client
	return nil
}

// Disconnect closes the SFTP session and the SSH connection beneath it.
func (c *SFTPClient) Disconnect() error {
	if c.client == nil {
		return nil
	}
	cerr := c.client.Close()
	serr := c.ssh.Close()
	c.client = nil
	c.ssh = nil
	if cerr != nil {
		return &Error{Op: "disconnect", Err: cerr}
	}
	if serr != nil {
		return &Error{Op: "disconnect", Err: serr}
	}
	return nil
}

// List returns one entry per regular file in dir.
func (c *SFTPClient) List(dir string) ([]models.RemoteFileEntry, error) {
	infos, err := c.client.ReadDir(dir)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}

	var out []models.RemoteFileEntry
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		out = append(out, models.RemoteFileEntry{
			Filename: fi.Name(),
			Raw:      fi.Name(),
			Size:     fi.Size(),
		})
	}
	return out, nil
}

// Fetch opens a remote file for reading.
func (c *SFTPClient) Fetch(dir, name string) (io.ReadCloser, error) {
	f, err := c.client.Open(path.Join(dir, name))
	if err != nil {
		return nil, &Error{Op: "fetch", Err: err}
	}
	return f, nil
}
