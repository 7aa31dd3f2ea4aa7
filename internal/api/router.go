package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/api/handler"
	"github.com/bcnelson/blackbox-target-manager/internal/api/middleware"
	"github.com/bcnelson/blackbox-target-manager/internal/service"
)

// NewRouter creates the targets API router with all routes configured.
func NewRouter(svc *service.TargetService, logger *zap.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	targetHandler := handler.NewTargetHandler(svc, logger)
	probeHandler := handler.NewProbeHandler(svc)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Targets
		r.Get("/targets", targetHandler.List)
		r.Post("/targets", targetHandler.Create)
		r.Post("/targets/batch", targetHandler.Batch)
		r.Route("/targets/{id}", func(r chi.Router) {
			r.Get("/", targetHandler.Get)
			r.Put("/", targetHandler.Update)
			r.Delete("/", targetHandler.Delete)
			r.Put("/status", targetHandler.UpdateStatus)
		})

		r.Get("/probes", probeHandler.List)
		r.Get("/statistics", targetHandler.Statistics)
	})

	// Prometheus HTTP service discovery
	r.With(middleware.ContentType).Get("/prometheus/{protocol}", probeHandler.Prometheus)

	return r
}
