// Package web exposes the capture controller as a JSON API with a
// server-sent-events stream for worker events.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server and handlers.
type Server struct {
	addr     string
	handlers *Handlers
	log      zerolog.Logger
}

func NewServer(port int, handlers *Handlers, logger zerolog.Logger) *Server {
	return &Server{
		addr:     fmt.Sprintf(":%d", port),
		handlers: handlers,
		log:      logger.With().Str("component", "web").Logger(),
	}
}

// Router returns the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handlers.HandleStatus)
		r.Get("/events", s.handlers.HandleEvents)
		r.Get("/preview", s.handlers.HandlePreview)

		r.Get("/config", s.handlers.HandleGetConfig)
		r.Post("/config", s.handlers.HandleSetProperty)

		r.Post("/camera/find", s.handlers.HandleFind)
		r.Post("/camera/connect", s.handlers.HandleConnect)
		r.Post("/camera/disconnect", s.handlers.HandleDisconnect)
		r.Post("/liveview", s.handlers.HandleLiveView)
		r.Post("/autofocus", s.handlers.HandleAutofocus)

		r.Post("/capture", s.handlers.HandleCapture)
		r.Post("/capture/cancel", s.handlers.HandleCancel)

		r.Get("/session", s.handlers.HandleGetSession)
		r.Post("/session", s.handlers.HandleOpenSession)
		r.Delete("/session", s.handlers.HandleCloseSession)

		r.Post("/led", s.handlers.HandleLED)
	})

	return r
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("web server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
