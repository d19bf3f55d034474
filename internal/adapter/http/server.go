// Package http exposes the detection API plus health, readiness, and metrics
// endpoints. The /detect wire format matches the original Python service so
// existing frontend clients keep working unchanged.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roadvision/stopsign-detector/internal/domain"
)

// DetectionAPI is the service surface the HTTP layer depends on.
type DetectionAPI interface {
	Detect(ctx context.Context, query domain.DetectionQuery) (domain.DetectionResult, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the detection API over HTTP.
type Server struct {
	httpServer *http.Server
	api        DetectionAPI
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /detect, /healthz, /readyz, and
// /metrics routes.
func NewServer(addr string, api DetectionAPI, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second, // miss path waits on two upstreams
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("POST /detect", s.handleDetect)
	mux.HandleFunc("OPTIONS /detect", s.handlePreflight)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth) // legacy path used by the frontend
	mux.HandleFunc("GET /readyz", s.handleReady)
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

// detectRequest mirrors the original API's request body. Lat, lon, and
// heading are pointers so a missing field is distinguishable from zero.
type detectRequest struct {
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	Heading *float64 `json:"heading"`
	Conf    float64  `json:"conf"`
}

// detectResponse echoes the caller's original coordinates, never the rounded
// cache key.
type detectResponse struct {
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	Heading          float64 `json:"heading"`
	StopSignDetected bool    `json:"stop_sign_detected"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	setCORS(w)

	var req detectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Lat == nil || req.Lon == nil || req.Heading == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat, lon, and heading are required"})
		return
	}
	if !isFinite(*req.Lat) || !isFinite(*req.Lon) || !isFinite(*req.Heading) || !isFinite(req.Conf) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "coordinates must be finite numbers"})
		return
	}

	result, err := s.api.Detect(r.Context(), domain.DetectionQuery{
		Lat:        *req.Lat,
		Lon:        *req.Lon,
		Heading:    *req.Heading,
		Confidence: req.Conf,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detectResponse{
		Lat:              result.Lat,
		Lon:              result.Lon,
		Heading:          result.Heading,
		StopSignDetected: result.Detected,
	})
}

// writeError maps pipeline errors to distinct statuses so callers can tell
// "try a different location" (404) apart from "try again later" (502/503).
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, domain.ErrPanoramaNotFound):
		status, msg = http.StatusNotFound, "no panorama found at this location"
	case errors.Is(err, domain.ErrProviderUnavailable):
		status, msg = http.StatusServiceUnavailable, "street view service unavailable"
	case errors.Is(err, domain.ErrStoreUnavailable):
		status, msg = http.StatusServiceUnavailable, "detection store unavailable"
	case errors.Is(err, domain.ErrDetectionFailed):
		status, msg = http.StatusBadGateway, "detection engine failure"
	default:
		status, msg = http.StatusInternalServerError, "internal server error"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("detect request failed", "status", status, "error", err, "path", r.URL.Path)
	} else {
		s.logger.Info("detect request rejected", "status", status, "error", err)
	}

	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.api.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
