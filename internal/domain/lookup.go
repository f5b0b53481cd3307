package domain

import "time"

// Endpoint names a lookup kind
type Endpoint string

const (
	EndpointGame    Endpoint = "game"
	EndpointPopular Endpoint = "popular"
	EndpointGenre   Endpoint = "genre"
)

// LookupStatus is the outcome of a lookup
type LookupStatus string

const (
	LookupOK       LookupStatus = "ok"
	LookupNotFound LookupStatus = "not_found"
	LookupInvalid  LookupStatus = "invalid"
	LookupError    LookupStatus = "error"
)

// LookupEvent records a single handled lookup
type LookupEvent struct {
	ID         string       `json:"id"`
	Endpoint   Endpoint     `json:"endpoint"`
	Param      string       `json:"param,omitempty"`
	Status     LookupStatus `json:"status"`
	Cached     bool         `json:"cached"`
	DurationMS int64        `json:"duration_ms"`
	Timestamp  time.Time    `json:"timestamp"`
}

// GameLookupCount is the number of times a game was requested
type GameLookupCount struct {
	GameID string `json:"game_id"`
	Count  int64  `json:"count"`
}

// PrefetchRequest asks the proxy to warm the cache for a game
type PrefetchRequest struct {
	GameID string `json:"game_id"`
}
