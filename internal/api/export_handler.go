package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskoverflow-api/internal/api/shared"
	"github.com/phrazzld/taskoverflow-api/internal/platform/logger"
	"github.com/phrazzld/taskoverflow-api/internal/query"
	"github.com/phrazzld/taskoverflow-api/internal/service"
)

// ExportHandler handles calendar export job requests
type ExportHandler struct {
	exportService service.ExportService
	publicBaseURL string
	logger        *slog.Logger
}

// NewExportHandler creates a new ExportHandler. publicBaseURL, when set,
// prefixes the polling URLs in responses.
func NewExportHandler(exportService service.ExportService, publicBaseURL string, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ExportHandler")
	}
	return &ExportHandler{
		exportService: exportService,
		publicBaseURL: publicBaseURL,
		logger:        logger.With(slog.String("component", "export_handler")),
	}
}

// Routes registers the export routes on r.
func (h *ExportHandler) Routes(r chi.Router) {
	r.Post("/todos/ical", h.SubmitExport)
	r.Get("/todos/ical/{job_id}/status", h.ExportStatus)
	r.Get("/todos/ical/{job_id}/result", h.ExportResult)
}

// SubmitExport handles POST /todos/ical?completed=&window= requests.
// It snapshots the matching todos, enqueues the export and returns 202.
func (h *ExportHandler) SubmitExport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	c, err := query.ParseCriteria(r.URL.Query().Get("completed"), r.URL.Query().Get("window"))
	if err != nil {
		HandleAPIError(w, r, err, "Invalid filter")
		return
	}

	jobID, err := h.exportService.SubmitFilteredExport(r.Context(), c)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("calendar export submitted", slog.String("job_id", jobID))
	shared.RespondWithJSON(w, r, http.StatusAccepted, ExportSubmittedResponse{
		JobID:     jobID,
		StatusURL: h.jobURL(r, jobID, "status"),
	})
}

// ExportStatus handles GET /todos/ical/{job_id}/status requests.
// Unknown ids are reported with status UNKNOWN.
func (h *ExportHandler) ExportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	info, err := h.exportService.ExportStatus(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ExportStatusResponse{
		JobID:     info.ID,
		Status:    info.Status,
		Error:     info.Error,
		ResultURL: h.jobURL(r, jobID, "result"),
	})
}

// ExportResult handles GET /todos/ical/{job_id}/result requests.
// The stored document is returned verbatim once the job succeeded.
func (h *ExportHandler) ExportResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	doc, err := h.exportService.ExportResult(r.Context(), jobID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithBody(w, r, http.StatusOK, doc.ContentType, doc.Body)
}

func (h *ExportHandler) jobURL(r *http.Request, jobID, leaf string) string {
	return fmt.Sprintf("%s%s/todos/ical/%s/%s", baseURL(r, h.publicBaseURL), APIPrefix, url.PathEscape(jobID), leaf)
}
