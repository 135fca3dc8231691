package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Addr(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"ftp default port", Config{Protocol: "ftp", Host: "traffic.example.net"}, "traffic.example.net:21"},
		{"sftp default port", Config{Protocol: "sftp", Host: "traffic.example.net"}, "traffic.example.net:22"},
		{"explicit port", Config{Protocol: "ftp", Host: "traffic.example.net", Port: 2121}, "traffic.example.net:2121"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.addr())
		})
	}
}

func TestConfig_Timeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, Config{}.timeout())
	assert.Equal(t, 5*time.Second, Config{Timeout: 5 * time.Second}.timeout())
}

func TestNew(t *testing.T) {
	c, err := New(Config{Protocol: "ftp"})
	require.NoError(t, err)
	assert.IsType(t, &FTPClient{}, c)

	c, err = New(Config{Protocol: "sftp"})
	require.NoError(t, err)
	assert.IsType(t, &SFTPClient{}, c)

	// Empty protocol defaults to FTP, matching the original deployment.
	c, err = New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &FTPClient{}, c)

	_, err = New(Config{Protocol: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestDisconnect_WhenNotConnected(t *testing.T) {
	assert.NoError(t, NewFTPClient(Config{}).Disconnect())
	assert.NoError(t, NewSFTPClient(Config{}).Disconnect())
}
