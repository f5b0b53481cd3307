package domain

import "errors"

// Domain errors
var (
	ErrGameNotFound     = errors.New("game not found")
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrInvalidID        = errors.New("invalid id")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrGameNotFound) || errors.Is(err, ErrEndpointNotFound)
}
