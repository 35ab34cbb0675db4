package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/phrazzld/taskoverflow-api/internal/api/shared"
)

// CORS allows browser clients from allowedOrigins. The calendar result is a
// plain GET, so only the verbs the API serves are listed.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", shared.TraceIDHeader},
		ExposedHeaders: []string{shared.TraceIDHeader},
		MaxAge:         300,
	})
}
