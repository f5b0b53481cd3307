package domain

import "encoding/json"

// Image is an upstream media object carrying a URL
type Image struct {
	URL string `json:"url"`
}

// Platform is an upstream platform reference
type Platform struct {
	Name string `json:"name"`
}

// AgeRating is an upstream age rating reference
type AgeRating struct {
	Rating *int `json:"rating"`
}

// Company is an upstream company reference
type Company struct {
	Name string `json:"name"`
}

// InvolvedCompany links a company to a game with its roles
type InvolvedCompany struct {
	Company   Company `json:"company"`
	Developer bool    `json:"developer"`
	Publisher bool    `json:"publisher"`
}

// GameRecord is the partial game shape returned by IGDB
type GameRecord struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Summary           string            `json:"summary"`
	FirstReleaseDate  *int64            `json:"first_release_date"`
	Category          *int              `json:"category"`
	Cover             *Image            `json:"cover"`
	Artworks          []Image           `json:"artworks"`
	Screenshots       []Image           `json:"screenshots"`
	Platforms         []Platform        `json:"platforms"`
	AgeRatings        []AgeRating       `json:"age_ratings"`
	Genres            []json.RawMessage `json:"genres"`
	InvolvedCompanies []InvolvedCompany `json:"involved_companies"`
}

// CompanyRoles splits company names by role
type CompanyRoles struct {
	Developers []string `json:"developers"`
	Publishers []string `json:"publishers"`
}

// MediaURL is an output media reference
type MediaURL struct {
	URL string `json:"url"`
}

// GameSummary is the simplified game contract served to clients.
// Every key is always present in the encoded output.
type GameSummary struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Summary     string            `json:"summary"`
	ReleaseDate string            `json:"releaseDate"`
	Cover       *MediaURL         `json:"cover"`
	Artworks    []MediaURL        `json:"artworks"`
	Screenshots []MediaURL        `json:"screenshots"`
	Platforms   []string          `json:"platforms"`
	AgeRating   string            `json:"ageRating"`
	Genres      []json.RawMessage `json:"genres"`
	Companies   CompanyRoles      `json:"companies"`
}

// PopularGame is the minimal shape served by the popular listing
type PopularGame struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Cover       *MediaURL  `json:"cover"`
	Screenshots []MediaURL `json:"screenshots"`
}

// GenreGame is the minimal shape served by the genre listing
type GenreGame struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Cover *MediaURL `json:"cover"`
}
