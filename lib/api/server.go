package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cdn-blocker/lib/config"
	"cdn-blocker/lib/networking"
)

// Server is the local management API: status, apply, flush, allow-port.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	service    Service
}

// NewServer creates a management API server bound to bindAddr.
func NewServer(cfg *config.Config, bindAddr string, interfaces []networking.Interface) *Server {
	return NewServerWithService(NewBlockerService(cfg, interfaces), bindAddr)
}

// NewServerWithService wires the routes against an explicit service
// implementation.
func NewServerWithService(service Service, bindAddr string) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
	}

	s.router.Use(RecoveryMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(ContentTypeMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         bindAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // apply downloads lists inline
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/apply", s.handleApply)
		r.Post("/flush", s.handleFlush)
		r.Post("/allow-port", s.handleAllowPort)
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
