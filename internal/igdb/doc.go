// Package igdb is a small client for the IGDB v4 games endpoint.
//
// Requests carry the app Client-ID and a bearer token from a TokenSource and
// send apicalypse query bodies built by the helpers in query.go.
package igdb
