package apierr

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/mcoot/bughunt/internal/model"
)

// ErrorResponse is the body written for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidUsername    = "INVALID_USERNAME"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserExists         = "USER_EXISTS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidScore       = "INVALID_SCORE"
	CodeScoreOverflow      = "SCORE_OVERFLOW"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeGameFull           = "GAME_FULL"
	CodeAlreadyJoined      = "ALREADY_JOINED"
	CodeGameNotJoinable    = "GAME_NOT_JOINABLE"
	CodeModeRequired       = "MODE_REQUIRED"
	CodeInvalidMaxPlayers  = "INVALID_MAX_PLAYERS"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeConflict           = "CONFLICT"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with the error body
type httpError struct {
	status int
	body   ErrorResponse
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.body.Error
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(he.body)
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

func newError(status int, code, message string) *httpError {
	return &httpError{status: status, body: ErrorResponse{Error: message, Code: code}}
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Users and auth
	case errors.Is(err, model.ErrUserExists):
		return newError(http.StatusBadRequest, CodeUserExists, "User already exists")
	case errors.Is(err, model.ErrInvalidUsername):
		return newError(http.StatusBadRequest, CodeInvalidUsername, "Username must be between 3 and 30 characters")
	case errors.Is(err, model.ErrInvalidPassword):
		return newError(http.StatusBadRequest, CodeInvalidPassword, "Password must be between 1 and 72 bytes")
	case errors.Is(err, model.ErrInvalidCredentials):
		return newError(http.StatusUnauthorized, CodeInvalidCredentials, "Invalid credentials")
	case errors.Is(err, model.ErrUserNotFound):
		return newError(http.StatusNotFound, CodeUserNotFound, "User not found")

	// Scores
	case errors.Is(err, model.ErrInvalidDelta):
		return newError(http.StatusBadRequest, CodeInvalidScore, "Score must be between 0 and 9007199254740992")
	case errors.Is(err, model.ErrScoreOverflow):
		return newError(http.StatusBadRequest, CodeScoreOverflow, "Total score would exceed the maximum")

	// Games
	case errors.Is(err, model.ErrGameNotFound):
		return newError(http.StatusNotFound, CodeGameNotFound, "Game not found")
	case errors.Is(err, model.ErrGameFull):
		return newError(http.StatusBadRequest, CodeGameFull, "Game is full")
	case errors.Is(err, model.ErrAlreadyJoined):
		return newError(http.StatusBadRequest, CodeAlreadyJoined, "User already in game")
	case errors.Is(err, model.ErrGameNotJoinable):
		return newError(http.StatusBadRequest, CodeGameNotJoinable, "Game is not accepting players")
	case errors.Is(err, model.ErrModeRequired):
		return newError(http.StatusBadRequest, CodeModeRequired, "mode is required")
	case errors.Is(err, model.ErrInvalidMaxPlayers):
		return newError(http.StatusBadRequest, CodeInvalidMaxPlayers, "maxPlayers must be between 2 and 10")
	case errors.Is(err, model.ErrInvalidStatus):
		return newError(http.StatusBadRequest, CodeInvalidStatus, "Invalid game status")
	case errors.Is(err, model.ErrInvalidTransition):
		return newError(http.StatusConflict, CodeInvalidTransition, "Game cannot move to that status")
	case errors.Is(err, model.ErrConcurrentModified):
		return newError(http.StatusConflict, CodeConflict, "Game was modified concurrently, try again")

	default:
		return newError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return newError(http.StatusBadRequest, CodeInvalidRequest, message)
}

// NewNotFoundError creates a not found error for unmatched routes
func NewNotFoundError() error {
	return newError(http.StatusNotFound, "NOT_FOUND", "Not found")
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return newError(http.StatusInternalServerError, CodeInternalError, "Internal server error")
}
