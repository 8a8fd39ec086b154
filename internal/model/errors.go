package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidUsername = errors.New("username must be between 3 and 30 characters")

	// Auth errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("password must be between 1 and 72 bytes")

	// Score errors
	ErrScoreNotFound = errors.New("score not found")
	ErrInvalidDelta  = errors.New("score delta must be between 0 and 2^53")
	ErrScoreOverflow = errors.New("score total would exceed the maximum")

	// Game errors
	ErrGameNotFound       = errors.New("game not found")
	ErrGameFull           = errors.New("game is full")
	ErrAlreadyJoined      = errors.New("user already joined this game")
	ErrGameNotJoinable    = errors.New("game is not accepting players")
	ErrInvalidMaxPlayers  = errors.New("maxPlayers must be between 2 and 10")
	ErrModeRequired       = errors.New("mode is required")
	ErrInvalidStatus      = errors.New("invalid game status")
	ErrInvalidTransition  = errors.New("invalid game status transition")
	ErrConcurrentModified = errors.New("record was modified concurrently")
)
