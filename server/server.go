// Package server exposes search analysis over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"ytinsight"
	"ytinsight/insight"
	"ytinsight/internal/metrics"
	"ytinsight/storage"
)

// maxBodyBytes bounds request bodies; the only body is the API key.
const maxBodyBytes = 4 << 10

// SourceFactory builds a data source for an API key.
type SourceFactory func(ctx context.Context, apiKey string) (ytinsight.Source, error)

// Config wires the server's collaborators.
type Config struct {
	// APIKey, when set, takes precedence over the key store.
	APIKey string
	// Keys stores the API key managed through /api/key.
	Keys storage.KeyStore
	// History records searches and serves /api/history. Optional.
	History storage.HistoryStore
	// NewSource builds the data source once a key is known.
	NewSource SourceFactory

	DefaultCriterion  insight.Criterion
	DefaultMaxResults int
	// AllowedOrigins lists CORS origins; empty allows none.
	AllowedOrigins []string

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Server serves the JSON API. It builds the data source lazily and rebuilds
// it when the API key changes.
type Server struct {
	cfg Config

	mu        sync.Mutex
	source    ytinsight.Source
	sourceKey string
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.DefaultCriterion == "" {
		cfg.DefaultCriterion = insight.ByQuality
	}
	if cfg.DefaultMaxResults <= 0 {
		cfg.DefaultMaxResults = 50
	}
	return &Server{cfg: cfg}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	// Request body size limit.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
			next.ServeHTTP(w, req)
		})
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/criteria", s.handleCriteria)
		r.Get("/search", s.handleSearch)
		r.Get("/videos/{id}/insights", s.handleVideoInsights)
		r.Get("/channels/{id}", s.handleChannel)

		r.Get("/history", s.handleListHistory)
		r.Delete("/history", s.handleClearHistory)
		r.Get("/history/{id}", s.handleGetHistory)
		r.Delete("/history/{id}", s.handleDeleteHistory)

		r.Get("/key", s.handleKeyStatus)
		r.Put("/key", s.handleSaveKey)
		r.Delete("/key", s.handleDeleteKey)
	})

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.cfg.Logger.Info().Msg("server shut down")
	return nil
}

// observe logs each request and records route metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		s.cfg.Metrics.InFlight(1)
		defer s.cfg.Metrics.InFlight(-1)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.cfg.Metrics.ObserveHTTPRequest(route, status, elapsed)
		s.cfg.Logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// resolveKey returns the configured key, else the stored one.
func (s *Server) resolveKey(ctx context.Context) (key, origin string, err error) {
	if s.cfg.APIKey != "" {
		return s.cfg.APIKey, "config", nil
	}
	if s.cfg.Keys == nil {
		return "", "", ytinsight.ErrMissingAPIKey
	}
	key, err = s.cfg.Keys.APIKey(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return "", "", ytinsight.ErrMissingAPIKey
	}
	if err != nil {
		return "", "", err
	}
	return key, "store", nil
}

// sourceFor returns the data source for the current key.
func (s *Server) sourceFor(ctx context.Context) (ytinsight.Source, error) {
	key, _, err := s.resolveKey(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source != nil && s.sourceKey == key {
		return s.source, nil
	}
	if s.cfg.NewSource == nil {
		return nil, ytinsight.ErrNoSource
	}
	src, err := s.cfg.NewSource(ctx, key)
	if err != nil {
		return nil, err
	}
	s.source, s.sourceKey = src, key
	return src, nil
}

func (s *Server) analyzer(ctx context.Context) (*ytinsight.Analyzer, error) {
	src, err := s.sourceFor(ctx)
	if err != nil {
		return nil, err
	}
	return &ytinsight.Analyzer{
		Source:  src,
		History: s.cfg.History,
		Logger:  s.cfg.Logger,
	}, nil
}
