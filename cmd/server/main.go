package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asrun-analyzer/backend/internal/api"
	"github.com/asrun-analyzer/backend/internal/config"
	"github.com/asrun-analyzer/backend/internal/continuity"
	"github.com/asrun-analyzer/backend/internal/ingest"
	"github.com/asrun-analyzer/backend/internal/metrics"
	"github.com/asrun-analyzer/backend/internal/models"
	"github.com/asrun-analyzer/backend/internal/notify"
	"github.com/asrun-analyzer/backend/internal/parser"
	"github.com/asrun-analyzer/backend/internal/poll"
	"github.com/asrun-analyzer/backend/internal/remediate"
	"github.com/asrun-analyzer/backend/internal/scheduler"
	"github.com/asrun-analyzer/backend/internal/storage"
	"github.com/asrun-analyzer/backend/internal/store"
	"github.com/asrun-analyzer/backend/internal/transport"
	"github.com/asrun-analyzer/backend/internal/vocab"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "AsRunAnalyzer.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Advanced.LogLevel)
	slog.SetDefault(log)

	loc, err := time.LoadLocation(cfg.Continuity.Timezone)
	if err != nil {
		fmt.Printf("Invalid timezone %q: %v\n", cfg.Continuity.Timezone, err)
		os.Exit(1)
	}

	// Initialize persistence
	db, err := store.NewDuckStore(cfg.Storage.DatabaseFile, cfg.Advanced.DuckDBMemoryLimit, cfg.Advanced.DuckDBThreads)
	if err != nil {
		fmt.Printf("Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Vocabulary classifier, with optional station alias table
	classifier := vocab.NewClassifier(log)
	classifier.OnUnknown = func(kind, raw string) {
		metrics.UnknownVocabulary.WithLabelValues(kind).Inc()
	}
	if cfg.Storage.VocabularyAliases != "" {
		if err := classifier.LoadAliases(cfg.Storage.VocabularyAliases); err != nil {
			fmt.Printf("Failed to load vocabulary aliases: %v\n", err)
			os.Exit(1)
		}
	}

	extractor := parser.NewExtractor(classifier, loc, log)
	extractor.OnRecordError = func(err error) {
		metrics.EventsIngested.WithLabelValues("dropped").Inc()
	}

	engine := ingest.NewEngine(db, nil, log)
	engine.OnIngest = func(res *models.IngestResult) {
		log.Info("file ingested",
			"filename", res.Filename,
			"new_events", res.NewEvents,
			"skipped_events", res.SkippedEvents)
	}

	spool, err := storage.NewSpool(cfg.Storage.SpoolDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize spool: %v\n", err)
		os.Exit(1)
	}

	// Remote source and poll cycle
	remote, err := transport.New(transport.Config{
		Protocol: cfg.Remote.Protocol,
		Host:     cfg.Remote.Host,
		Port:     cfg.Remote.Port,
		Username: cfg.Remote.Username,
		Password: cfg.Remote.Password,
		Timeout:  cfg.RemoteTimeout(),
	})
	if err != nil {
		fmt.Printf("Invalid remote configuration: %v\n", err)
		os.Exit(1)
	}

	monitor := continuity.NewMonitor(continuity.MarkerRule{
		Prefix:    cfg.Continuity.FilenamePrefix,
		Markers:   cfg.MarkerSubstrings(),
		TimeOfDay: cfg.Continuity.TimeOfDay,
		Suffix:    cfg.Continuity.FilenameSuffix,
	}, loc, nil, log)

	var notifier notify.Notifier
	if cfg.Alerting.Enabled {
		notifier = notify.NewMailer(notify.Config{
			Host:     cfg.Alerting.SMTPHost,
			Port:     cfg.Alerting.SMTPPort,
			Username: cfg.Alerting.Username,
			Password: cfg.Alerting.Password,
			From:     cfg.Alerting.FromEmail,
			To:       cfg.Recipients(),
		}, log)
	}

	var remediator remediate.Remediator
	threshold := 0
	if cfg.Remediation.Enabled {
		remediator = remediate.NewTrafficControl(remediate.Config{
			Host:        cfg.Remediation.SSHHost,
			Port:        cfg.Remediation.SSHPort,
			Username:    cfg.Remediation.SSHUsername,
			Password:    cfg.Remediation.SSHPassword,
			ServiceName: cfg.Remediation.ServiceName,
		}, log)
		threshold = cfg.Remediation.DaysBehindThreshold
	}

	cycle := &poll.Cycle{
		Transport:            remote,
		RemotePath:           cfg.Remote.Path,
		Monitor:              monitor,
		Notifier:             notifier,
		Remediator:           remediator,
		RemediationThreshold: threshold,
		Spool:                spool,
		Extractor:            extractor,
		Engine:               engine,
		Lookback:             time.Duration(cfg.Schedule.LookbackHours) * time.Hour,
		Store:                db,
		Classifier:           classifier,
		StatusReports:        cfg.Alerting.DailyStatusReport,
		Log:                  log,
	}

	mode := poll.ModeDaily
	spec := scheduler.DailySpec(cfg.Schedule.DailyHour, cfg.Schedule.DailyMinute)
	if cfg.Schedule.Mode == "hourly" {
		mode = poll.ModeHourly
		spec = scheduler.HourlySpec()
	}

	sched, err := scheduler.New("asrun-poll", spec, loc, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if err := cycle.Run(ctx, mode); err != nil {
			log.Error("poll cycle failed", "mode", mode, "error", err)
		}
	}, log)
	if err != nil {
		fmt.Printf("Failed to build scheduler: %v\n", err)
		os.Exit(1)
	}

	if cfg.Schedule.StartOnBoot && cfg.Remote.Host != "" {
		if err := sched.Start(); err != nil {
			fmt.Printf("Failed to start scheduler: %v\n", err)
			os.Exit(1)
		}
	}
	defer sched.Stop()

	// API handler. Remote-facing endpoints stay disabled when no host is
	// configured so the service can run ingest-only.
	var checker api.GapChecker
	var probe api.ConnectionProbe
	if cfg.Remote.Host != "" {
		checker = cycle
		probe = cycle
	}
	h := api.NewHandler(db, extractor, engine, sched, checker, probe, Version, log)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return strings.HasSuffix(path, "/status") ||
				path == "/api/health" ||
				path == "/metrics"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// Routes
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiGroup := e.Group("/api")
	apiGroup.GET("/health", h.HandleHealth)
	apiGroup.POST("/ingest", h.HandleIngest)
	apiGroup.GET("/files/recent", h.HandleRecentFiles)
	apiGroup.GET("/files/:id/events", h.HandleFileEvents)
	apiGroup.GET("/files/:id/events/msgpack", h.HandleFileEventsMsgpack)
	apiGroup.GET("/scheduler/status", h.HandleSchedulerStatus)
	apiGroup.POST("/scheduler/start", h.HandleSchedulerStart)
	apiGroup.POST("/scheduler/stop", h.HandleSchedulerStop)
	apiGroup.POST("/continuity/check", h.HandleContinuityCheck)
	apiGroup.GET("/config/test", h.HandleConfigTest)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           AsRun Analyzer Server                           ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Schedule:   %-45s║\n", fmt.Sprintf("%s (%s)", cfg.Schedule.Mode, spec))
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Database:  %-46s║\n", cfg.Storage.DatabaseFile)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	e.Logger.Fatal(e.StartServer(s))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
