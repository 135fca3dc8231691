package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/asrun-analyzer/backend/internal/ingest"
	"github.com/asrun-analyzer/backend/internal/models"
	"github.com/asrun-analyzer/backend/internal/parser"
	"github.com/asrun-analyzer/backend/internal/store"
)

// SchedulerControl is the slice of the poll scheduler the API drives.
type SchedulerControl interface {
	Start() error
	Stop()
	Running() bool
	NextRun() time.Time
	JobName() string
}

// GapChecker runs an on-demand continuity check against the remote source.
type GapChecker interface {
	RunGapCheck(ctx context.Context) (*models.GapReport, error)
}

// ConnectionProbe verifies that the configured remote source is reachable.
type ConnectionProbe interface {
	Probe(ctx context.Context) error
}

// Handler handles API requests.
type Handler struct {
	store     store.Store
	extractor *parser.Extractor
	engine    *ingest.Engine
	sched     SchedulerControl
	checker   GapChecker
	probe     ConnectionProbe
	version   string
	log       *slog.Logger
}

// NewHandler creates a new API handler. Scheduler, checker and probe may be
// nil when the service runs in ingest-only mode; the corresponding endpoints
// then report unavailable.
func NewHandler(st store.Store, extractor *parser.Extractor, engine *ingest.Engine, sched SchedulerControl, checker GapChecker, probe ConnectionProbe, version string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		store:     st,
		extractor: extractor,
		engine:    engine,
		sched:     sched,
		checker:   checker,
		probe:     probe,
		version:   version,
		log:       log.With("component", "api"),
	}
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	total, err := h.store.CountFiles(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to query store", err)
	}

	resp := map[string]interface{}{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"version": h.version,
		"files":   total,
	}
	if h.sched != nil {
		resp["scheduler_running"] = h.sched.Running()
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleIngest accepts one as-run XML document and ingests it. The file
// arrives either as a multipart "file" part or as a raw XML body with the
// filename in the X-Filename header. Re-posting a known filename is not an
// error; the response reports it as skipped.
func (h *Handler) HandleIngest(c echo.Context) error {
	filename, data, err := readUpload(c)
	if err != nil {
		return err
	}
	if filename == "" {
		return NewBadRequestError("filename is required", nil)
	}
	// Uploads sometimes carry client-side paths
	filename = filepath.Base(filename)

	events, err := h.extractor.Extract(data)
	if err != nil {
		var xmlErr *parser.XMLError
		if errors.As(err, &xmlErr) {
			return NewBadRequestError("document is not a parseable as-run log", err)
		}
		return NewInternalError("extraction failed", err)
	}

	result, err := h.engine.Ingest(c.Request().Context(), filename, events)
	if err != nil {
		return NewInternalError("ingestion failed", err)
	}

	status := http.StatusCreated
	if result.Skipped {
		status = http.StatusOK
	}
	return c.JSON(status, result)
}

// readUpload extracts the uploaded document from the request, multipart or raw.
func readUpload(c echo.Context) (string, []byte, error) {
	if fh, err := c.FormFile("file"); err == nil {
		src, err := fh.Open()
		if err != nil {
			return "", nil, NewBadRequestError("failed to open uploaded file", err)
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			return "", nil, NewBadRequestError("failed to read uploaded file", err)
		}
		return fh.Filename, data, nil
	}

	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return "", nil, NewBadRequestError("failed to read request body", err)
	}
	if len(data) == 0 {
		return "", nil, NewBadRequestError("empty request body", nil)
	}
	return c.Request().Header.Get("X-Filename"), data, nil
}

// HandleRecentFiles returns the most recently ingested files.
func (h *Handler) HandleRecentFiles(c echo.Context) error {
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			return NewBadRequestError("limit must be an integer between 1 and 500", nil)
		}
		limit = n
	}

	files, err := h.store.ListRecentFiles(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	total, err := h.store.CountFiles(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to count files", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"files": files,
		"total": total,
	})
}

// HandleFileEvents returns all events of one ingested file.
func (h *Handler) HandleFileEvents(c echo.Context) error {
	file, events, err := h.fileEvents(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"file":   file,
		"events": events,
		"total":  len(events),
	})
}

// HandleFileEventsMsgpack returns the same payload in MessagePack format.
// Event lists for a full broadcast day run to thousands of rows; msgpack
// keeps dashboard reloads cheap.
func (h *Handler) HandleFileEventsMsgpack(c echo.Context) error {
	file, events, err := h.fileEvents(c)
	if err != nil {
		return err
	}
	data, err := msgpack.Marshal(map[string]interface{}{
		"file":   file,
		"events": events,
		"total":  len(events),
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *Handler) fileEvents(c echo.Context) (*models.LogFile, []*models.PlayoutEvent, error) {
	id := c.Param("id")

	file, err := h.store.GetFile(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, NewNotFoundError("file", id)
		}
		return nil, nil, NewInternalError("failed to load file", err)
	}

	events, err := h.store.ListEvents(c.Request().Context(), id)
	if err != nil {
		return nil, nil, NewInternalError("failed to load events", err)
	}
	return file, events, nil
}

// HandleSchedulerStatus reports whether the poll scheduler is running and
// when it fires next.
func (h *Handler) HandleSchedulerStatus(c echo.Context) error {
	if h.sched == nil {
		return NewServiceUnavailableError("scheduler is not configured", nil)
	}

	resp := map[string]interface{}{
		"job":     h.sched.JobName(),
		"running": h.sched.Running(),
	}
	if next := h.sched.NextRun(); !next.IsZero() {
		resp["next_run"] = next
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleSchedulerStart starts the poll scheduler. Starting an already
// running scheduler is a no-op.
func (h *Handler) HandleSchedulerStart(c echo.Context) error {
	if h.sched == nil {
		return NewServiceUnavailableError("scheduler is not configured", nil)
	}
	if err := h.sched.Start(); err != nil {
		return NewInternalError("failed to start scheduler", err)
	}
	h.log.Info("scheduler started via API")
	return h.HandleSchedulerStatus(c)
}

// HandleSchedulerStop stops the poll scheduler.
func (h *Handler) HandleSchedulerStop(c echo.Context) error {
	if h.sched == nil {
		return NewServiceUnavailableError("scheduler is not configured", nil)
	}
	h.sched.Stop()
	h.log.Info("scheduler stopped via API")
	return h.HandleSchedulerStatus(c)
}

// HandleContinuityCheck runs a continuity check against the remote source
// right now, outside the schedule, and returns the gap report.
func (h *Handler) HandleContinuityCheck(c echo.Context) error {
	if h.checker == nil {
		return NewServiceUnavailableError("continuity checking is not configured", nil)
	}

	report, err := h.checker.RunGapCheck(c.Request().Context())
	if err != nil {
		return NewServiceUnavailableError("continuity check failed", err)
	}
	return c.JSON(http.StatusOK, report)
}

// HandleConfigTest verifies that the configured remote source accepts a
// connection with the current credentials.
func (h *Handler) HandleConfigTest(c echo.Context) error {
	if h.probe == nil {
		return NewServiceUnavailableError("remote source is not configured", nil)
	}

	if err := h.probe.Probe(c.Request().Context()); err != nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
