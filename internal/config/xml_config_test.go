package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "daily", cfg.Schedule.Mode)
	assert.Equal(t, "America/Anchorage", cfg.Continuity.Timezone)
	assert.Equal(t, "BXF", cfg.Continuity.FilenamePrefix)
	assert.Equal(t, []string{"Complete", "AsRun"}, cfg.MarkerSubstrings())
	assert.False(t, cfg.Alerting.Enabled)
	assert.False(t, cfg.Remediation.Enabled)
	assert.Equal(t, "traffic-module", cfg.Remediation.ServiceName)
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.FileExists(t, path)

	assert.Equal(t, 8090, cfg.Server.Port)

	// File on disk should round-trip
	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.Port, reloaded.Server.Port)
	assert.Equal(t, cfg.Continuity.TimeOfDay, reloaded.Continuity.TimeOfDay)
}

func TestLoadConfigParsesXML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	content := `<?xml version="1.0" encoding="UTF-8"?>
<AsRunAnalyzer>
  <Server>
    <Port>9000</Port>
    <BindAddress>127.0.0.1</BindAddress>
  </Server>
  <Remote>
    <Protocol>sftp</Protocol>
    <Host>traffic.example.com</Host>
    <Port>22</Port>
    <Path>/export/asrun</Path>
    <TimeoutSeconds>10</TimeoutSeconds>
  </Remote>
  <Alerting>
    <Enabled>true</Enabled>
    <ToEmails>ops@example.com, eng@example.com</ToEmails>
  </Alerting>
</AsRunAnalyzer>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.Equal(t, "sftp", cfg.Remote.Protocol)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout())
	assert.Equal(t, []string{"ops@example.com", "eng@example.com"}, cfg.Recipients())
}

func TestLoadConfigInvalidXML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	require.NoError(t, os.WriteFile(path, []byte("not xml at all <<<"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("REMOTE_PASSWORD", "hunter2")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "hunter2", cfg.Remote.Password)
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Storage.DataDirectory))
	assert.True(t, filepath.IsAbs(cfg.Storage.SpoolDirectory))
	assert.True(t, filepath.IsAbs(cfg.Storage.DatabaseFile))
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Storage.DataDirectory)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	assert.DirExists(t, cfg.Storage.DataDirectory)
	assert.DirExists(t, cfg.Storage.SpoolDirectory)
}
