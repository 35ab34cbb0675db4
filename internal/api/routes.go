package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskoverflow-api/internal/api/shared"
)

// HealthCheck handles GET /health requests
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// MountRoutes registers the health check and every handler's routes on r,
// which is expected to be mounted at APIPrefix.
func MountRoutes(r chi.Router, todos *TodoHandler, exports *ExportHandler) {
	r.Get("/health", HealthCheck)
	exports.Routes(r)
	todos.Routes(r)
}
