package domain

import "time"

// AccessToken is a bearer token issued by the identity provider
type AccessToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token expires strictly after now
func (t AccessToken) Valid(now time.Time) bool {
	return t.Value != "" && t.ExpiresAt.After(now)
}
