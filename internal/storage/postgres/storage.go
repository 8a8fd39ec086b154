package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/storage"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

const (
	userColumns  = `id, username, COALESCE(email, ''), credential_hash, created_at`
	scoreColumns = `user_id, points, seq, created_at, updated_at`
	gameColumns  = `id, seq, mode, max_players, status, players, created_at, updated_at`
)

// Storage is a PostgreSQL-backed implementation of the storage interface.
// Scores use single-statement upserts; game updates lock the row for the
// duration of a transaction.
type Storage struct {
	db *sql.DB
}

// New opens a connection pool, verifies it and applies migrations
func New(ctx context.Context, cfg Config) (*Storage, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if cfg.Migrate {
		if err := Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewWithDB(db), nil
}

// NewWithDB creates a PostgreSQL storage over an existing pool (for testing)
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Close closes the connection pool
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, credential_hash, created_at)
			  VALUES ($1, $2, NULLIF($3, ''), $4, $5)`

	_, err := s.db.ExecContext(ctx, query, string(user.ID), user.Username, user.Email, user.CredentialHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.getUser(ctx, query, string(id))
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return s.getUser(ctx, query, username)
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, model.ErrUserNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.getUser(ctx, query, email)
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Storage) GetUsers(ctx context.Context, ids []model.UserID) (map[model.UserID]*model.User, error) {
	result := make(map[model.UserID]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(id)
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return result, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user model.User
		id   string
	)
	if err := row.Scan(&id, &user.Username, &user.Email, &user.CredentialHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.ID = model.UserID(id)
	return &user, nil
}

// Score operations

func (s *Storage) EnsureScore(ctx context.Context, userID model.UserID, now time.Time) (*model.Score, error) {
	// The no-op update makes RETURNING yield the existing row on conflict
	query := `INSERT INTO scores (user_id, points, created_at, updated_at)
			  VALUES ($1, 0, $2, $2)
			  ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			  RETURNING ` + scoreColumns

	score, err := scanScore(s.db.QueryRowContext(ctx, query, string(userID), now))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure score: %w", err)
	}
	return score, nil
}

// IncrementScore adds delta in one upsert. The conflict branch only updates
// while the total stays within model.MaxPoints, so an empty RETURNING means
// the cap would have been passed.
func (s *Storage) IncrementScore(ctx context.Context, userID model.UserID, delta int64, now time.Time) (*model.Score, error) {
	if !model.CanAccrue(0, delta) {
		return nil, model.ErrScoreOverflow
	}

	query := `INSERT INTO scores (user_id, points, created_at, updated_at)
			  VALUES ($1, $2, $3, $3)
			  ON CONFLICT (user_id) DO UPDATE
			  SET points = scores.points + EXCLUDED.points, updated_at = EXCLUDED.updated_at
			  WHERE scores.points <= $4 - EXCLUDED.points
			  RETURNING ` + scoreColumns

	score, err := scanScore(s.db.QueryRowContext(ctx, query, string(userID), delta, now, model.MaxPoints))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrScoreOverflow
		}
		return nil, fmt.Errorf("failed to increment score: %w", err)
	}
	return score, nil
}

func (s *Storage) GetScore(ctx context.Context, userID model.UserID) (*model.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE user_id = $1`

	score, err := scanScore(s.db.QueryRowContext(ctx, query, string(userID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrScoreNotFound
		}
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	return score, nil
}

func (s *Storage) TopScores(ctx context.Context, n int) ([]*model.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores ORDER BY points DESC, seq ASC LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scores := []*model.Score{}
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scores: %w", err)
	}
	return scores, nil
}

func scanScore(row rowScanner) (*model.Score, error) {
	var (
		score  model.Score
		userID string
	)
	if err := row.Scan(&userID, &score.Points, &score.Seq, &score.CreatedAt, &score.UpdatedAt); err != nil {
		return nil, err
	}
	score.UserID = model.UserID(userID)
	return &score, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	players, err := encodePlayers(game.Players)
	if err != nil {
		return err
	}

	query := `INSERT INTO games (id, mode, max_players, status, players, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING seq`

	err = s.db.QueryRowContext(ctx, query,
		string(game.ID), game.Mode, game.MaxPlayers, string(game.Status), players, game.CreatedAt, game.UpdatedAt,
	).Scan(&game.Seq)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(s.db.QueryRowContext(ctx, query, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

func (s *Storage) ListGames(ctx context.Context, status model.GameStatus) ([]*model.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE ($1 = '' OR status = $1) ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	games := []*model.Game{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}
	return games, nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateGameFunc) (*model.Game, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1 FOR UPDATE`
	game, err := scanGame(tx.QueryRowContext(ctx, query, string(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to lock game: %w", err)
	}

	if err := fn(game); err != nil {
		return nil, err
	}

	players, err := encodePlayers(game.Players)
	if err != nil {
		return nil, err
	}

	update := `UPDATE games SET mode = $2, max_players = $3, status = $4, players = $5, updated_at = $6 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update,
		string(game.ID), game.Mode, game.MaxPlayers, string(game.Status), players, game.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit game update: %w", err)
	}
	return game, nil
}

func scanGame(row rowScanner) (*model.Game, error) {
	var (
		game    model.Game
		id      string
		status  string
		players []byte
	)
	if err := row.Scan(&id, &game.Seq, &game.Mode, &game.MaxPlayers, &status, &players, &game.CreatedAt, &game.UpdatedAt); err != nil {
		return nil, err
	}
	game.ID = model.GameID(id)
	game.Status = model.GameStatus(status)
	if err := json.Unmarshal(players, &game.Players); err != nil {
		return nil, fmt.Errorf("failed to decode players: %w", err)
	}
	return game.Clone(), nil
}

func encodePlayers(players []model.UserID) (string, error) {
	if players == nil {
		players = []model.UserID{}
	}
	data, err := json.Marshal(players)
	if err != nil {
		return "", fmt.Errorf("failed to encode players: %w", err)
	}
	return string(data), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
