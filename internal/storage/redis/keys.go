package redis

import (
	"fmt"

	"github.com/mcoot/bughunt/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "bughunt"

// Score hash fields
const (
	fieldPoints    = "points"
	fieldSeq       = "seq"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// emailIndexKey returns the Redis key for the email -> user_id index
func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// scoreKey returns the Redis key for a user's score HASH
func scoreKey(userID model.UserID) string {
	return fmt.Sprintf("%s:score:%s", keyPrefix, userID)
}

// rankingKey returns the Redis key for the ZSET of points by user
func rankingKey() string {
	return fmt.Sprintf("%s:ranking", keyPrefix)
}

// gameKey returns the Redis key for a Game
func gameKey(id model.GameID) string {
	return fmt.Sprintf("%s:game:%s", keyPrefix, id)
}

// gamesIndexKey returns the Redis key for the ZSET of game ids by creation seq
func gamesIndexKey() string {
	return fmt.Sprintf("%s:idx:games", keyPrefix)
}

// seqKey returns the Redis key for an insertion sequence counter
func seqKey(name string) string {
	return fmt.Sprintf("%s:seq:%s", keyPrefix, name)
}
