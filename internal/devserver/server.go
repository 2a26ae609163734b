// Package devserver exposes a small chi-based HTTP surface for running
// an eppo-go configuration source standalone during local development:
// a liveness probe and a plain JSON dump of the most recently fetched
// configuration document, useful for pointing an SDK instance's poller
// at something other than a full control plane.
package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/Sidd-007/eppo-go/internal/configsource"
)

// Config controls the HTTP listener and CORS policy.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// DefaultConfig returns sane defaults for local use.
func DefaultConfig() *Config {
	return &Config{
		Addr:           ":8090",
		AllowedOrigins: []string{"*"},
	}
}

// Server serves the current configuration document fetched from an
// underlying configsource.Source, refreshing it on a fixed interval.
type Server struct {
	config *Config
	source configsource.Source
	logger zerolog.Logger
	router chi.Router

	mu      sync.RWMutex
	doc     []byte
	fetched time.Time

	httpServer *http.Server
}

// New builds a Server that serves whatever source.Fetch returns.
func New(config *Config, source configsource.Source, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "devserver").Logger()

	s := &Server{
		config: config,
		source: source,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.AllowedOrigins,
		AllowedMethods: []string{"GET"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/config", s.handleConfig)

	s.router = r
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	doc := s.doc
	fetched := s.fetched
	s.mu.RUnlock()

	if doc == nil {
		http.Error(w, "no configuration fetched yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Config-Fetched-At", fetched.Format(time.RFC3339))
	w.Write(doc)
}

// refresh fetches the source once and stores the result.
func (s *Server) refresh(ctx context.Context) {
	doc, err := s.source.Fetch(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to refresh configuration document")
		return
	}
	s.mu.Lock()
	s.doc = doc
	s.fetched = time.Now()
	s.mu.Unlock()
}

// Run starts the HTTP listener and blocks until ctx is cancelled,
// refreshing the served document on interval in the background.
func (s *Server) Run(ctx context.Context, interval time.Duration) error {
	s.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refresh(ctx)
			}
		}
	}()

	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.config.Addr).Msg("starting dev server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
