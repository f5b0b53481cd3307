package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Supported transport bindings
const (
	TransportChi = "chi"
	TransportMux = "mux"
)

func corsMiddleware() *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
}

// Router returns the chi router with all routes configured
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware().Handler)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)

	// Proxy routes
	r.Get("/", h.Root)
	r.Get("/game/{id}", h.GetGame)
	r.Get("/popular", h.GetPopular)
	r.Get("/genre/{id}", h.GetGenre)

	// Health check endpoints
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	if h.hub != nil {
		r.Get("/ws", h.HandleWebSocket)
		r.Get("/ws/stats", h.GetWebSocketStats)
	}

	if h.lookups != nil {
		r.Route("/lookups", func(r chi.Router) {
			r.Get("/recent", h.GetRecentLookups)
			r.Get("/top", h.GetTopGames)
		})
	}

	return r
}

// Mux returns a standard library ServeMux binding of the same routes
func (h *Handler) Mux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /game/{id}", h.GetGame)
	mux.HandleFunc("GET /popular", h.GetPopular)
	mux.HandleFunc("GET /genre/{id}", h.GetGenre)
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /ready", h.ReadyCheck)

	if h.hub != nil {
		mux.HandleFunc("GET /ws", h.HandleWebSocket)
		mux.HandleFunc("GET /ws/stats", h.GetWebSocketStats)
	}
	if h.lookups != nil {
		mux.HandleFunc("GET /lookups/recent", h.GetRecentLookups)
		mux.HandleFunc("GET /lookups/top", h.GetTopGames)
	}

	// Anything else, including other methods on known paths
	mux.HandleFunc("/", h.NotFound)

	return middleware.Recoverer(corsMiddleware().Handler(mux))
}

// Binding returns the handler for the named transport
func (h *Handler) Binding(transport string) (http.Handler, error) {
	switch transport {
	case "", TransportChi:
		return h.Router(), nil
	case TransportMux:
		return h.Mux(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}
