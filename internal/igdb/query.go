package igdb

import (
	"fmt"
	"strings"
)

// Query is an apicalypse request body
type Query string

var gameFields = []string{
	"name",
	"summary",
	"first_release_date",
	"category",
	"age_ratings.rating",
	"cover.url",
	"artworks.url",
	"screenshots.url",
	"platforms.name",
	"genres.name",
	"involved_companies.company.name",
	"involved_companies.developer",
	"involved_companies.publisher",
}

// GameByID selects the detail fields of a single game
func GameByID(id string) Query {
	return Query(fmt.Sprintf("fields %s; where id = %s;", strings.Join(gameFields, ", "), id))
}

// Popular selects well-rated games that have a cover or screenshots
func Popular(minRatingCount, limit int) Query {
	return Query(fmt.Sprintf(
		"fields name, cover.url, screenshots.url; where total_rating_count > %d & (cover != null | screenshots != null); sort total_rating_count desc; limit %d;",
		minRatingCount, limit,
	))
}

// ByGenre selects games with a cover in any of the given genres
func ByGenre(genreIDs []string, limit int) Query {
	return Query(fmt.Sprintf(
		"fields name, cover.url; where genres = (%s) & cover != null; sort total_rating_count desc; limit %d;",
		strings.Join(genreIDs, ","), limit,
	))
}
