package sse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/mcoot/bughunt/internal/events"
	"github.com/mcoot/bughunt/internal/model"
)

const (
	// LobbyTopic receives every room event
	LobbyTopic = "lobby"
	// LeaderboardTopic receives score events
	LeaderboardTopic = "leaderboard"
)

// GameTopic returns the topic for a single game room
func GameTopic(id model.GameID) string {
	return "game:" + string(id)
}

// Publisher pushes domain events to the hubs that have subscribers
type Publisher struct {
	hubs   *HubManager
	logger *slog.Logger
}

// Ensure Publisher implements events.Publisher
var _ events.Publisher = (*Publisher)(nil)

// NewPublisher creates a Publisher over a hub manager
func NewPublisher(hubs *HubManager, logger *slog.Logger) *Publisher {
	return &Publisher{
		hubs:   hubs,
		logger: logger.With(slog.String("component", "sse-publisher")),
	}
}

// Publish broadcasts the event to the lobby and the game's room for room
// events, or to the leaderboard for score events
func (p *Publisher) Publish(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	var topics []string
	if event.IsRoomEvent() {
		topics = []string{LobbyTopic, GameTopic(event.GameID)}
	} else {
		topics = []string{LeaderboardTopic}
	}

	for _, topic := range topics {
		hub := p.hubs.GetHub(topic)
		if hub == nil {
			continue
		}
		hub.BroadcastEvent(string(event.Type), string(data))
	}
	return nil
}
