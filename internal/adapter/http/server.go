// Package http exposes the imagery endpoint plus health, readiness, and
// metrics routes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/vissr-imagery-service/internal/domain"
)

// ImageGenerator produces the encoded JPEG for one archival request.
type ImageGenerator interface {
	Generate(ctx context.Context, req domain.Request) ([]byte, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the imagery API over HTTP.
type Server struct {
	httpServer *http.Server
	generator  ImageGenerator
	validate   *validator.Validate
	logger     *slog.Logger
}

// imageryQuery carries the parsed query parameters. Bounds mirror the
// archive's overall span; precise coverage is the resolver's job.
type imageryQuery struct {
	Year  int `validate:"required,min=1995,max=2005"`
	Month int `validate:"required,min=1,max=12"`
	Day   int `validate:"required,min=1,max=31"`
	Hour  int `validate:"min=0,max=23"`
}

// NewServer creates an HTTP server with /v1/imagery, /healthz, /readyz, and
// /metrics routes.
func NewServer(addr string, gen ImageGenerator, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Generation rides the request: FTP download plus decode and
			// render can legitimately take a couple of minutes.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		generator: gen,
		validate:  validator.New(),
		logger:    logger,
	}

	mux.HandleFunc("GET /v1/imagery", s.handleImagery)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleImagery(w http.ResponseWriter, r *http.Request) {
	q, err := parseImageryQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.validate.Struct(q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parameters out of range: " + err.Error()})
		return
	}

	req, err := domain.NewRequest(q.Year, q.Month, q.Day, q.Hour)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	b, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		status := statusForError(err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func parseImageryQuery(r *http.Request) (imageryQuery, error) {
	var q imageryQuery
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"year", &q.Year},
		{"month", &q.Month},
		{"day", &q.Day},
		{"hour", &q.Hour},
	} {
		v := r.URL.Query().Get(p.name)
		if v == "" {
			return q, errors.New("missing query parameter: " + p.name)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errors.New("non-integer query parameter: " + p.name)
		}
		*p.dst = n
	}
	return q, nil
}

// statusForError maps the pipeline's error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrOutOfCoverage):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRemoteDirNotFound),
		errors.Is(err, domain.ErrRemoteFileNotFound),
		errors.Is(err, domain.ErrMemberNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTransport),
		errors.Is(err, domain.ErrEmptyDownload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort error response
}
