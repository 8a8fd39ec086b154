package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Room events
	EventGameCreated   EventType = "game_created"
	EventPlayerJoined  EventType = "player_joined"
	EventPlayerLeft    EventType = "player_left"
	EventStatusChanged EventType = "status_changed"

	// Score events
	EventScoreAccrued EventType = "score_accrued"
)

// Event describes a state change that is pushed to realtime subscribers and
// the event log. Fields not relevant to the type are left empty.
type Event struct {
	Type       EventType  `json:"type"`
	GameID     GameID     `json:"gameId,omitempty"`
	UserID     UserID     `json:"userId,omitempty"`
	Players    []UserID   `json:"players,omitempty"`
	Status     GameStatus `json:"status,omitempty"`
	Delta      int64      `json:"delta,omitempty"`
	Points     int64      `json:"points,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// IsRoomEvent returns true for events scoped to a game room
func (e Event) IsRoomEvent() bool {
	return e.GameID != ""
}

// Key returns the partitioning key for the event
func (e Event) Key() string {
	if e.GameID != "" {
		return string(e.GameID)
	}
	return string(e.UserID)
}
