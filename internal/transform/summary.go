package transform

import (
	"encoding/json"

	"github.com/igdb-proxy/internal/domain"
)

// Transformer maps upstream records to output payloads.
type Transformer struct {
	dates *Formatter
}

// New returns a Transformer using the given date formatter.
// A nil formatter means DefaultFormatter.
func New(dates *Formatter) *Transformer {
	if dates == nil {
		dates = DefaultFormatter()
	}
	return &Transformer{dates: dates}
}

// BuildGameSummary maps a record using the default date formatter.
func BuildGameSummary(record domain.GameRecord) domain.GameSummary {
	return New(nil).GameSummary(record)
}

// GameSummary maps a single upstream record to the full game contract.
func (t *Transformer) GameSummary(record domain.GameRecord) domain.GameSummary {
	var rating *int
	if len(record.AgeRatings) > 0 {
		rating = record.AgeRatings[0].Rating
	}

	genres := record.Genres
	if genres == nil {
		genres = []json.RawMessage{}
	}

	platforms := make([]string, 0, len(record.Platforms))
	for _, p := range record.Platforms {
		platforms = append(platforms, p.Name)
	}

	return domain.GameSummary{
		ID:          record.ID,
		Name:        record.Name,
		Summary:     record.Summary,
		ReleaseDate: t.dates.ReleaseDate(record.FirstReleaseDate),
		Cover:       cover(record.Cover),
		Artworks:    mediaURLs(record.Artworks),
		Screenshots: mediaURLs(record.Screenshots),
		Platforms:   platforms,
		AgeRating:   ResolveAgeRating(rating),
		Genres:      genres,
		Companies:   SplitCompanyRoles(record.InvolvedCompanies),
	}
}

// PopularGames maps records to the popular listing shape.
func (t *Transformer) PopularGames(records []domain.GameRecord) []domain.PopularGame {
	games := make([]domain.PopularGame, 0, len(records))
	for _, r := range records {
		games = append(games, domain.PopularGame{
			ID:          r.ID,
			Name:        r.Name,
			Cover:       cover(r.Cover),
			Screenshots: mediaURLs(r.Screenshots),
		})
	}
	return games
}

// GenreGames maps records to the genre listing shape.
func (t *Transformer) GenreGames(records []domain.GameRecord) []domain.GenreGame {
	games := make([]domain.GenreGame, 0, len(records))
	for _, r := range records {
		games = append(games, domain.GenreGame{
			ID:    r.ID,
			Name:  r.Name,
			Cover: cover(r.Cover),
		})
	}
	return games
}

func cover(img *domain.Image) *domain.MediaURL {
	if img == nil {
		return nil
	}
	return &domain.MediaURL{URL: img.URL}
}

func mediaURLs(images []domain.Image) []domain.MediaURL {
	urls := make([]domain.MediaURL, 0, len(images))
	for _, img := range images {
		urls = append(urls, domain.MediaURL{URL: img.URL})
	}
	return urls
}
