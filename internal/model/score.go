package model

import (
	"sort"
	"time"
)

// DefaultLeaderboardLimit caps leaderboard queries
const DefaultLeaderboardLimit = 50

// MaxPoints caps both a single accrual and a running total. Values up to
// 2^53 stay exact when a backend ranks by float64.
const MaxPoints int64 = 1 << 53

// CanAccrue reports whether adding delta to points stays within [0, MaxPoints]
func CanAccrue(points, delta int64) bool {
	return delta >= 0 && delta <= MaxPoints && points <= MaxPoints-delta
}

// Score accumulates a user's points. There is at most one Score per user.
type Score struct {
	UserID UserID
	Points int64

	// Seq records insertion order and breaks ties between equal points
	Seq int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy of the score
func (s *Score) Clone() *Score {
	c := *s
	return &c
}

// RanksBefore reports whether s sorts ahead of other on the leaderboard
func (s *Score) RanksBefore(other *Score) bool {
	if s.Points != other.Points {
		return s.Points > other.Points
	}
	return s.Seq < other.Seq
}

// SortScores orders scores by points descending, then by insertion order
func SortScores(scores []*Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].RanksBefore(scores[j])
	})
}

// ClampLimit normalises a requested leaderboard size against a cap
func ClampLimit(n, limit int) int {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if n <= 0 || n > limit {
		return limit
	}
	return n
}
