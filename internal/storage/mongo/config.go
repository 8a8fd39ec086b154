package mongo

import "time"

// Config holds MongoDB connection settings
type Config struct {
	// URI is the connection string (e.g., mongodb://localhost:27017)
	URI string

	// Database holds the users, scores, games and counters collections
	Database string

	ConnectTimeout time.Duration

	// MaxUpdateRetries bounds compare-and-swap retries for game updates
	MaxUpdateRetries int
}

// DefaultConfig returns sensible defaults for MongoDB configuration
func DefaultConfig() Config {
	return Config{
		URI:              "mongodb://localhost:27017",
		Database:         "bughunt",
		ConnectTimeout:   10 * time.Second,
		MaxUpdateRetries: 50,
	}
}
