// Package web is the admin console's browser interface: server-rendered
// pages over chi with the target list pushed to browsers over a
// websocket.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bcnelson/blackbox-target-manager/internal/api/middleware"
	"github.com/bcnelson/blackbox-target-manager/internal/console"
	"github.com/bcnelson/blackbox-target-manager/internal/domain"
)

// Server holds dependencies for web handlers.
type Server struct {
	console  *console.Console
	renderer *Renderer
	hub      *Hub
	logger   *zap.Logger
}

// NewServer creates a Server and attaches its hub to the console store.
func NewServer(c *console.Console, renderer *Renderer, hub *Hub, logger *zap.Logger) *Server {
	s := &Server{
		console:  c,
		renderer: renderer,
		hub:      hub,
		logger:   logger,
	}
	hub.Attach(c.Store, c.Sync.Filter)
	return s
}

// Router returns the console's HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.Logging(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.hub.ServeWS)

	r.Get("/", s.handleIndex)
	r.Get("/search", s.handleSearch)
	r.Post("/refresh", s.handleRefresh)

	// Targets
	r.Get("/targets/table", s.handleTable)
	r.Get("/targets/new", s.handleTargetForm)
	r.Post("/targets", s.handleTargetCreate)
	r.Get("/targets/{id}/edit", s.handleTargetEditForm)
	r.Post("/targets/{id}", s.handleTargetUpdate)
	r.Put("/targets/{id}", s.handleTargetUpdate)
	r.Post("/targets/{id}/delete", s.handleTargetDelete)
	r.Delete("/targets/{id}", s.handleTargetDelete)

	// Selection
	r.Post("/selection/{id}/toggle", s.handleSelectionToggle)
	r.Post("/selection/all", s.handleSelectAll)
	r.Post("/selection/clear", s.handleSelectionClear)

	// Batch operations on the selection
	r.Post("/batch/{op}", s.handleBatch)

	return r
}

// PageData holds the data passed to the page template.
type PageData struct {
	Title string
	Flash *FlashMessage
	Table TableView
	Form  *FormView
	Stats *domain.Statistics
}

// FlashMessage represents a flash message.
type FlashMessage struct {
	Type    string // "success", "error"
	Message string
}
