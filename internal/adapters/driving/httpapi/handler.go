package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/certsync/internal/core/domain"
	"github.com/custodia-labs/certsync/internal/core/ports/driving"
	"github.com/custodia-labs/certsync/internal/logger"
)

// MaxUploadSize caps the inventory workbook upload.
const MaxUploadSize = 32 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Deps holds the services the API drives.
type Deps struct {
	Engine   driving.SyncEngine
	Status   driving.StatusReporter
	Export   driving.ExportService
	Mapping  driving.MappingService
	Resetter driving.Resetter

	// Metrics may be nil, in which case /api/metrics answers 404.
	Metrics driving.MetricsReporter
}

// Handler serves the certsync HTTP API.
type Handler struct {
	deps   Deps
	runCtx context.Context
}

// NewHandler creates a handler. runCtx bounds the lifetime of sync runs and
// mapping jobs started over HTTP.
func NewHandler(runCtx context.Context, deps Deps) *Handler {
	return &Handler{deps: deps, runCtx: runCtx}
}

// Routes returns the chi router for the API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sync", func(r chi.Router) {
			r.Post("/start", h.StartSync)
			r.Post("/resume", h.ResumeSync)
			r.Post("/stop", h.StopSync)
		})
		r.Get("/status", h.GetStatus)
		r.Get("/data", h.GetData)
		r.Get("/export", h.ExportData)
		r.Post("/reset", h.Reset)
		r.Get("/metrics", h.GetMetrics)

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/upload", h.UploadInventory)
			r.Get("/status", h.InventoryStatus)
		})
	})

	return r
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartSync starts a full sync from the epoch floor.
func (h *Handler) StartSync(w http.ResponseWriter, _ *http.Request) {
	run, err := h.deps.Engine.StartFull(h.runCtx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, runResponse{Message: "Full Sync Started", RunID: run.ID, Mode: string(run.Mode)})
}

// ResumeSync continues from the stored checkpoint.
func (h *Handler) ResumeSync(w http.ResponseWriter, _ *http.Request) {
	run, err := h.deps.Engine.Resume(h.runCtx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, runResponse{Message: "Sync Resumed", RunID: run.ID, Mode: string(run.Mode)})
}

// StopSync asks the active run to stop at the next page boundary and waits
// for it to do so.
func (h *Handler) StopSync(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Engine.Cancel(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Sync Stopped"})
}

// GetStatus returns the current sync status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.deps.Status.CurrentStatus(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newStatusResponse(st))
}

// GetData returns every stored certificate.
func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	records, err := h.deps.Export.AllRecords(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, recordJSON(rec))
	}
	respondJSON(w, http.StatusOK, out)
}

// ExportData streams the certificates as an XLSX attachment.
func (h *Handler) ExportData(w http.ResponseWriter, r *http.Request) {
	// Render fully first so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if _, err := h.deps.Export.Export(r.Context(), &buf); err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="certificates_export.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn("export write failed: %v", err)
	}
}

// GetMetrics returns the sync telemetry collected since the server started.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.deps.Metrics == nil {
		respondMessage(w, http.StatusNotFound, "Metrics are not enabled")
		return
	}
	points, err := h.deps.Metrics.Metrics(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	out := make([]metricJSON, 0, len(points))
	for _, p := range points {
		out = append(out, newMetricJSON(p))
	}
	respondJSON(w, http.StatusOK, out)
}

// Reset clears the stored certificates, checkpoint and run history.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Resetter.Reset(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "State Cleared"})
}

// UploadInventory imports an inventory workbook from the "file" form field
// and applies it in the background.
func (h *Handler) UploadInventory(w http.ResponseWriter, r *http.Request) {
	if h.deps.Mapping.Status().Running {
		respondError(w, fmt.Errorf("%w: mapping already running", domain.ErrSyncInProgress))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		respondMessage(w, http.StatusBadRequest, "Request must be multipart/form-data.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		respondMessage(w, http.StatusBadRequest, "No selected file")
		return
	}

	imported, err := h.deps.Mapping.Import(r.Context(), file)
	if err != nil {
		respondError(w, err)
		return
	}

	go h.applyMapping()

	respondJSON(w, http.StatusAccepted, uploadResponse{
		Message:  fmt.Sprintf("Imported %d rows. Mapping started.", imported),
		Imported: imported,
	})
}

func (h *Handler) applyMapping() {
	started := time.Now()
	applied, err := h.deps.Mapping.Apply(h.runCtx)
	if err != nil {
		logger.Error("inventory mapping failed: %v", err)
		return
	}
	logger.Info("Inventory mapping marked %d certificates in %s", applied, time.Since(started).Round(time.Millisecond))
}

// InventoryStatus returns the state of the mapping job.
func (h *Handler) InventoryStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, newMappingResponse(h.deps.Mapping.Status()))
}

// statusCode maps domain errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		logger.Error("request failed: %v", err)
	}
	respondMessage(w, code, err.Error())
}

func respondMessage(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, messageResponse{Message: message})
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response: %v", err)
	}
}

// requestLogger logs each request through the verbose logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debug("%s %s %d %dB %s [%s]",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(),
			time.Since(started).Round(time.Microsecond), middleware.GetReqID(r.Context()))
	})
}
