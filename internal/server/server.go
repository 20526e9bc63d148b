// Package server is the credential-gated web dashboard: question search
// over the catalog, live API data with charts, and saved-state browsing.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"prosperdash/internal/catalog"
	"prosperdash/internal/prosper"
	"prosperdash/internal/state"
)

const shutdownTimeout = 10 * time.Second

// Options carries the dependencies for New. Credentials, Catalog, API
// and States are required; Logger defaults to a nop logger.
type Options struct {
	Addr        string
	SessionKey  string
	Secure      bool
	Credentials *Credentials
	Catalog     *catalog.Catalog
	API         *prosper.Client
	States      *state.Store
	Logger      *zap.Logger
}

// Server serves the dashboard.
type Server struct {
	addr     string
	logger   *zap.Logger
	sessions *Sessions
	creds    *Credentials
	catalog  *catalog.Catalog
	api      *prosper.Client
	states   *state.Store
	tmpl     *template.Template
}

func New(opts Options) (*Server, error) {
	if opts.Credentials == nil {
		return nil, errors.New("server: credentials are required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("server: question catalog is required")
	}
	if opts.API == nil {
		return nil, errors.New("server: API client is required")
	}
	if opts.States == nil {
		return nil, errors.New("server: state store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8650"
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		addr:     opts.Addr,
		logger:   logger,
		sessions: NewSessions(opts.SessionKey, opts.Secure, logger),
		creds:    opts.Credentials,
		catalog:  opts.Catalog,
		api:      opts.API,
		states:   opts.States,
		tmpl:     tmpl,
	}, nil
}

// Handler builds the route tree. Exposed so tests can drive the server
// without a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(s.sessions.RequireSignedIn)
		pr.Get("/", s.handleHome)
		pr.Get("/questions/{id}", s.handleQuestion)
		pr.Get("/questions/{id}/chart.png", s.handleQuestionChart)
		pr.Get("/states", s.handleStates)
		pr.Get("/states/{name}", s.handleState)
		pr.Post("/states/{name}/delete", s.handleStateDelete)
	})

	return r
}

// Start serves until ctx is cancelled, then drains connections.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("dashboard listening", zap.String("addr", s.addr))

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dashboard server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	<-errCh
	s.logger.Info("dashboard stopped")
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}
