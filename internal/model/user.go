package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// UserID uniquely identifies a registered user
type UserID string

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// User is a registered identity. Users are write-once: nothing updates or deletes them.
type User struct {
	ID             UserID
	Username       string
	Email          string // optional, normalised to lower case
	CredentialHash string // bcrypt hash, optional
	CreatedAt      time.Time
}

// NormalizeUsername trims surrounding whitespace from a username
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateUsername checks the length bounds of a normalised username
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidUsername
	}
	return nil
}
