package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/IshaanNene/storelens/internal/config"
	"github.com/IshaanNene/storelens/internal/observability"
	"github.com/IshaanNene/storelens/internal/types"
)

// InsightsService is what the API needs from the insights layer.
type InsightsService interface {
	Insights(ctx context.Context, rawURL string) (*types.BrandContext, error)
	Competitors(ctx context.Context, rawURL string, explicit []string, limit int) (string, []string, error)
}

// Server exposes the insights service over HTTP.
type Server struct {
	router  chi.Router
	srv     *http.Server
	svc     InsightsService
	metrics *observability.Metrics
	logger  *slog.Logger
}

type insightsRequest struct {
	WebsiteURL string `json:"website_url"`
}

type competitorsRequest struct {
	WebsiteURL     string   `json:"website_url"`
	CompetitorURLs []string `json:"competitor_urls"`
	Limit          int      `json:"limit"`
}

type competitorsResponse struct {
	Main        string   `json:"main"`
	Competitors []string `json:"competitors"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// NewServer creates the API server and registers its routes.
func NewServer(cfg *config.Config, svc InsightsService, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		svc:     svc,
		metrics: metrics,
		logger:  logger.With("component", "api_server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/fetch_store_insights", s.handleInsights)
	r.Post("/get_competitors", s.handleCompetitors)
	if cfg.Metrics.Enabled && metrics != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics)
	}

	s.router = r
	s.srv = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the server stops. It returns nil after a
// graceful Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("API server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": config.Version,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var body insightsRequest
	if err := decodeBody(r, &body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON body"})
		return
	}
	if body.WebsiteURL == "" {
		body.WebsiteURL = r.URL.Query().Get("website_url")
	}
	if body.WebsiteURL == "" {
		s.jsonResponse(w, http.StatusBadRequest, errorResponse{Detail: "website_url is required"})
		return
	}

	bc, err := s.svc.Insights(r.Context(), body.WebsiteURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, bc)
}

func (s *Server) handleCompetitors(w http.ResponseWriter, r *http.Request) {
	var body competitorsRequest
	if err := decodeBody(r, &body); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON body"})
		return
	}
	if body.WebsiteURL == "" {
		body.WebsiteURL = r.URL.Query().Get("website_url")
	}
	if body.WebsiteURL == "" {
		s.jsonResponse(w, http.StatusBadRequest, errorResponse{Detail: "website_url is required"})
		return
	}

	storeURL, competitors, err := s.svc.Competitors(r.Context(), body.WebsiteURL, body.CompetitorURLs, body.Limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, competitorsResponse{Main: storeURL, Competitors: competitors})
}

// writeError maps service errors to status codes. Unreachable sites
// answer 401 with a fixed message; everything unexpected is a 500
// carrying the error text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidURL):
		s.jsonResponse(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
	case errors.Is(err, types.ErrSiteNotFound):
		s.logger.Info("website not found", "request_id", middleware.GetReqID(r.Context()), "error", err)
		s.jsonResponse(w, http.StatusUnauthorized, errorResponse{Detail: "Website not found"})
	default:
		s.logger.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
	}
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// decodeBody decodes an optional JSON body into v. An empty body is not
// an error.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
