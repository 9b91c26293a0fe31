// Package api serves challenge sessions over HTTP for a browser front end.
//
// Each browser is identified by a signed cookie and owns at most one open
// challenge session. Request and response bodies are JSON; errors are
// {"error": message, "kind": kind}.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/datadetective/academy/internal/app"
)

// Config holds configuration for the API server.
type Config struct {
	App  *app.App
	Addr string
	// SessionSecret signs browser cookies. Empty generates a secret that
	// lasts until the process exits.
	SessionSecret string
	// AllowedOrigins are the front-end origins allowed by CORS.
	AllowedOrigins []string
	// Watch reloads the catalog when pack files change.
	Watch  bool
	Logger *slog.Logger
}

// Server is the HTTP session API.
type Server struct {
	app      *app.App
	addr     string
	watch    bool
	browsers *browsers
	notifier *notifier
	handler  http.Handler
	logger   *slog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
	}
	cookies := sessions.NewCookieStore([]byte(secret))
	cookies.MaxAge(86400 * 30) // 30 days
	cookies.Options.Path = "/"
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode

	s := &Server{
		app:      cfg.App,
		addr:     cfg.Addr,
		watch:    cfg.Watch,
		browsers: newBrowsers(cookies),
		notifier: newNotifier(),
		logger:   logger,
	}
	s.handler = s.routes(cfg.AllowedOrigins)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.requestLogger,
	)
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Get("/challenges", s.listChallenges)
		r.Get("/progress", s.progress)
		r.Get("/events", s.events)

		r.Route("/session", func(r chi.Router) {
			r.Post("/open", s.openSession)
			r.Get("/", s.getSession)
			r.Put("/query", s.setQuery)
			r.Post("/run", s.run)
			r.Post("/check", s.check)
			r.Post("/submit", s.submit)
			r.Post("/hints/unlock", s.unlockHint)
			r.Post("/clear", s.clear)
			r.Post("/dismiss", s.dismiss)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Run serves until ctx is cancelled, then shuts down and closes every
// open session.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting API server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start catalog watcher if enabled
	if s.watch {
		eg.Go(func() error {
			return s.app.Catalog().Watch(egctx, s.notifier.broadcast)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		err := srv.Shutdown(shutdownCtx)
		return errors.Join(err, s.browsers.closeAll(shutdownCtx))
	})

	return eg.Wait()
}
