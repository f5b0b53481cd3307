package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/igdb-proxy/internal/domain"
	"github.com/igdb-proxy/internal/service"
	"github.com/igdb-proxy/internal/websocket"
)

// Error messages served to clients
const (
	msgGameNotFound     = "Game not found"
	msgEndpointNotFound = "Endpoint not found"
	msgInvalidID        = "Invalid id"
	msgInternalError    = "Internal server error"
)

// LookupReader exposes recorded lookups
type LookupReader interface {
	RecentLookups(ctx context.Context, limit int) ([]domain.LookupEvent, error)
	TopGames(ctx context.Context, limit int) ([]domain.GameLookupCount, error)
}

// Pinger checks a backing dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

type readinessCheck struct {
	name   string
	pinger Pinger
}

// Handler provides HTTP handlers for the proxy API
type Handler struct {
	service *service.GameService
	lookups LookupReader
	hub     *websocket.Hub
	checks  []readinessCheck
	logger  *slog.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithLookups exposes recorded lookups under /lookups
func WithLookups(reader LookupReader) Option {
	return func(h *Handler) { h.lookups = reader }
}

// WithHub serves the live lookup feed on /ws
func WithHub(hub *websocket.Hub) Option {
	return func(h *Handler) { h.hub = hub }
}

// WithReadinessCheck makes /ready fail while the dependency is unreachable
func WithReadinessCheck(name string, pinger Pinger) Option {
	return func(h *Handler) { h.checks = append(h.checks, readinessCheck{name: name, pinger: pinger}) }
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.GameService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// errorResponse is the body of every error response
type errorResponse struct {
	Error string `json:"error"`
}

// rootResponse describes the available endpoints
type rootResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if status < http.StatusBadRequest {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps service errors to responses
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		h.writeError(w, http.StatusBadRequest, msgInvalidID)
	case errors.Is(err, domain.ErrGameNotFound):
		h.writeError(w, http.StatusNotFound, msgGameNotFound)
	default:
		h.logger.Error("request failed",
			"op", op,
			"path", r.URL.Path,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}

// pathParam reads a path parameter from either binding
func pathParam(r *http.Request, name string) string {
	if v := chi.URLParam(r, name); v != "" {
		return v
	}
	return r.PathValue(name)
}

// Root returns the static capability listing
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, rootResponse{
		Message: "IGDB API está funcionando!",
		Endpoints: map[string]string{
			"game":    "/game/:id",
			"popular": "/popular",
			"genre":   "/genre/:id",
		},
	})
}

// NotFound handles unmatched paths
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, msgEndpointNotFound)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.pinger.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", check.name, "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":     "not ready",
				"dependency": check.name,
			})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GetGame returns the summary of a single game
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetGame(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "get game", err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// GetPopular returns the popular games listing
func (h *Handler) GetPopular(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.Popular(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "get popular", err)
		return
	}
	h.writeJSON(w, http.StatusOK, games)
}

// GetGenre returns games in a genre
func (h *Handler) GetGenre(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ByGenre(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "get genre", err)
		return
	}
	h.writeJSON(w, http.StatusOK, games)
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// GetRecentLookups returns the most recent lookups
func (h *Handler) GetRecentLookups(w http.ResponseWriter, r *http.Request) {
	events, err := h.lookups.RecentLookups(r.Context(), limitParam(r, 20, 200))
	if err != nil {
		h.writeServiceError(w, r, "recent lookups", err)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

// GetTopGames returns the most requested games
func (h *Handler) GetTopGames(w http.ResponseWriter, r *http.Request) {
	counts, err := h.lookups.TopGames(r.Context(), limitParam(r, 10, 100))
	if err != nil {
		h.writeServiceError(w, r, "top games", err)
		return
	}
	h.writeJSON(w, http.StatusOK, counts)
}

func limitParam(r *http.Request, def, max int) int {
	limit := def
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > max {
		limit = max
	}
	return limit
}
