// Package config provides XML-based configuration management for the
// AsRun Analyzer service.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"AsRunAnalyzer"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Remote file source (the traffic system's drop directory)
	Remote RemoteConfig `xml:"Remote"`

	// Poll scheduling
	Schedule ScheduleConfig `xml:"Schedule"`

	// Continuity / daily marker rules
	Continuity ContinuityConfig `xml:"Continuity"`

	// Email alerting
	Alerting AlertingConfig `xml:"Alerting"`

	// Remote remediation (traffic module restart)
	Remediation RemediationConfig `xml:"Remediation"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains database and spool settings
type StorageConfig struct {
	DataDirectory     string `xml:"DataDirectory"`
	SpoolDirectory    string `xml:"SpoolDirectory"`
	DatabaseFile      string `xml:"DatabaseFile"`
	VocabularyAliases string `xml:"VocabularyAliasesFile"`
}

// RemoteConfig contains the transport settings for the traffic system
type RemoteConfig struct {
	Protocol       string `xml:"Protocol"` // ftp or sftp
	Host           string `xml:"Host"`
	Port           int    `xml:"Port"`
	Username       string `xml:"Username"`
	Password       string `xml:"Password"`
	Path           string `xml:"Path"`
	TimeoutSeconds int    `xml:"TimeoutSeconds"`
}

// ScheduleConfig selects the poll mode and its trigger
type ScheduleConfig struct {
	Mode          string `xml:"Mode"` // daily (primary) or hourly
	DailyHour     int    `xml:"DailyHour"`
	DailyMinute   int    `xml:"DailyMinute"`
	LookbackHours int    `xml:"LookbackHours"`
	StartOnBoot   bool   `xml:"StartOnBoot"`
}

// ContinuityConfig describes the daily marker file and reference zone
type ContinuityConfig struct {
	Timezone       string `xml:"Timezone"`
	FilenamePrefix string `xml:"FilenamePrefix"`
	Markers        string `xml:"Markers"` // comma-separated substrings
	TimeOfDay      string `xml:"TimeOfDay"`
	FilenameSuffix string `xml:"FilenameSuffix"`
}

// AlertingConfig contains SMTP settings. DailyStatusReport sends a summary
// email with every daily gap check, not just on gaps.
type AlertingConfig struct {
	Enabled           bool   `xml:"Enabled"`
	DailyStatusReport bool   `xml:"DailyStatusReport"`
	SMTPHost          string `xml:"SMTPHost"`
	SMTPPort          int    `xml:"SMTPPort"`
	Username          string `xml:"Username"`
	Password          string `xml:"Password"`
	FromEmail         string `xml:"FromEmail"`
	ToEmails          string `xml:"ToEmails"` // comma-separated
}

// RemediationConfig controls the traffic module restart hook
type RemediationConfig struct {
	Enabled             bool   `xml:"Enabled"`
	DaysBehindThreshold int    `xml:"DaysBehindThreshold"`
	SSHHost             string `xml:"SSHHost"`
	SSHPort             int    `xml:"SSHPort"`
	SSHUsername         string `xml:"SSHUsername"`
	SSHPassword         string `xml:"SSHPassword"`
	ServiceName         string `xml:"ServiceName"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8090,
			BindAddress:  "0.0.0.0",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			SpoolDirectory:    "./data/spool",
			DatabaseFile:      "./data/asrun.duckdb",
			VocabularyAliases: "",
		},
		Remote: RemoteConfig{
			Protocol:       "ftp",
			Port:           21,
			Path:           "/asrun",
			TimeoutSeconds: 30,
		},
		Schedule: ScheduleConfig{
			Mode:          "daily",
			DailyHour:     6,
			DailyMinute:   15,
			LookbackHours: 1,
			StartOnBoot:   true,
		},
		Continuity: ContinuityConfig{
			Timezone:       "America/Anchorage",
			FilenamePrefix: "BXF",
			Markers:        "Complete,AsRun",
			TimeOfDay:      "055959",
			FilenameSuffix: ".xml",
		},
		Alerting: AlertingConfig{
			Enabled:  false,
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Remediation: RemediationConfig{
			Enabled:             false,
			DaysBehindThreshold: 2,
			SSHPort:             22,
			ServiceName:         "traffic-module",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "512MB",
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &AppConfig{}
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- AsRun Analyzer Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config
// values. Credentials usually arrive this way so the on-disk file can stay
// secret-free.
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if v := os.Getenv("REMOTE_HOST"); v != "" {
		c.Remote.Host = v
	}
	if v := os.Getenv("REMOTE_USERNAME"); v != "" {
		c.Remote.Username = v
	}
	if v := os.Getenv("REMOTE_PASSWORD"); v != "" {
		c.Remote.Password = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.Alerting.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Alerting.Password = v
	}
	if v := os.Getenv("SSH_PASSWORD"); v != "" {
		c.Remediation.SSHPassword = v
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.SpoolDirectory) {
		c.Storage.SpoolDirectory = filepath.Join(configDir, c.Storage.SpoolDirectory)
	}
	if !filepath.IsAbs(c.Storage.DatabaseFile) {
		c.Storage.DatabaseFile = filepath.Join(configDir, c.Storage.DatabaseFile)
	}
	if c.Storage.VocabularyAliases != "" && !filepath.IsAbs(c.Storage.VocabularyAliases) {
		c.Storage.VocabularyAliases = filepath.Join(configDir, c.Storage.VocabularyAliases)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// MarkerSubstrings returns the configured daily-marker substrings.
func (c *AppConfig) MarkerSubstrings() []string {
	var out []string
	for _, m := range strings.Split(c.Continuity.Markers, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Recipients returns the configured alert recipients.
func (c *AppConfig) Recipients() []string {
	var out []string
	for _, r := range strings.Split(c.Alerting.ToEmails, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// RemoteTimeout returns the transport timeout as a duration.
func (c *AppConfig) RemoteTimeout() time.Duration {
	if c.Remote.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.SpoolDirectory,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
