package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskoverflow-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskoverflow-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	if len(app.config.Server.CORSAllowedOrigins) > 0 {
		r.Use(apiMiddleware.CORS(app.config.Server.CORSAllowedOrigins))
	}

	todoHandler := api.NewTodoHandler(app.todoService, app.logger)
	exportHandler := api.NewExportHandler(app.exportService, app.config.Server.PublicBaseURL, app.logger)

	r.Route(api.APIPrefix, func(r chi.Router) {
		api.MountRoutes(r, todoHandler, exportHandler)
	})

	// unversioned liveness probe
	r.Get("/health", api.HealthCheck)

	return r
}
