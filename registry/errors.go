package registry

import "errors"

var (
	// Setup errors
	ErrNotInitialized     = errors.New("registry: not initialized")
	ErrAlreadyInitialized = errors.New("registry: already initialized")

	// Identifier errors
	ErrIdentifierConflict = errors.New("registry: token id below allocation watermark")
	ErrTokenNotFound      = errors.New("registry: token not found")

	// Transition errors
	ErrNotOwner      = errors.New("registry: caller is not the token owner")
	ErrAlreadyBurned = errors.New("registry: token is burned")
	ErrInvalidState  = errors.New("registry: operation illegal for current status")
)
