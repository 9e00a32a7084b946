// Package server provides the HTTP control surface for the handplay player:
// playback state and commands, the command journal, a live state websocket
// and an MJPEG view of the rendered video.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ayusman/handplay/internal/server/api"
	"github.com/ayusman/handplay/internal/store"
)

const (
	requestTimeout  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Config holds the server configuration.
type Config struct {
	Addr      string
	StaticDir string

	State    api.StateReader
	Media    api.MediaController
	Commands api.CommandSubmitter
	Store    *store.Store
	Frames   *FrameHub
	Hub      *Hub
}

// Server represents the HTTP server.
type Server struct {
	config Config
	router chi.Router
	logger *zap.Logger
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: config,
		router: chi.NewRouter(),
		logger: logger.Named("http"),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Streaming endpoints stay outside the request timeout.
	if s.config.Frames != nil {
		r.Handle("/api/stream", s.config.Frames)
	}
	if s.config.Hub != nil {
		r.Handle("/api/ws", s.config.Hub)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/api/health", s.handleHealth)

		if s.config.State != nil && s.config.Commands != nil {
			api.NewPlaybackHandler(s.config.State, s.config.Media, s.config.Commands).RegisterRoutes(r)
		}
		if s.config.Store != nil {
			api.NewEventHandler(s.config.Store).RegisterRoutes(r)
		}
	})

	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
		srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
