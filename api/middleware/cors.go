package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/puntoventa-backend/pkg/config"
)

// CORS applies the configured origin policy for the POS front-end.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", idempotencyReplayed, requestIDHeader},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAgeSeconds,
	}).Handler
}
