package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Users and games are JSON blobs guarded by WATCH/MULTI transactions; scores
// are hashes updated by a Lua script that mirrors them into a ranking sorted set.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(ctx context.Context, cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// watch runs fn as an optimistic transaction over keys, retrying while
// another client modifies a watched key between read and EXEC.
func (s *Storage) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return model.ErrConcurrentModified
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	indexKeys := []string{usernameIndexKey(user.Username)}
	if user.Email != "" {
		indexKeys = append(indexKeys, emailIndexKey(user.Email))
	}

	return s.watch(ctx, func(tx *redis.Tx) error {
		taken, err := tx.Exists(ctx, indexKeys...).Result()
		if err != nil {
			return err
		}
		if taken > 0 {
			return model.ErrUserExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(user.ID), data, 0)
			for _, key := range indexKeys {
				pipe.Set(ctx, key, string(user.ID), 0)
			}
			return nil
		})
		return err
	}, indexKeys...)
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUserByIndex(ctx, usernameIndexKey(username))
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, model.ErrUserNotFound
	}
	return s.getUserByIndex(ctx, emailIndexKey(email))
}

func (s *Storage) getUserByIndex(ctx context.Context, indexKey string) (*model.User, error) {
	userID, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUser(ctx, model.UserID(userID))
}

func (s *Storage) GetUsers(ctx context.Context, ids []model.UserID) (map[model.UserID]*model.User, error) {
	result := make(map[model.UserID]*model.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var user model.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, err
		}
		result[user.ID] = &user
	}
	return result, nil
}

// Score operations

func (s *Storage) EnsureScore(ctx context.Context, userID model.UserID, now time.Time) (*model.Score, error) {
	return s.accrue(ctx, userID, 0, now, false)
}

func (s *Storage) IncrementScore(ctx context.Context, userID model.UserID, delta int64, now time.Time) (*model.Score, error) {
	return s.accrue(ctx, userID, delta, now, true)
}

// accrueScript checks the cap and applies the increment in one atomic step so
// the score hash and the ranking set never diverge. It returns nil when the
// total would pass the cap.
//
// KEYS: score hash, ranking set
// ARGV: delta, cap, seq (0 when the record exists), now ms, touch (1/0), user id
var accrueScript = redis.NewScript(`
local delta = tonumber(ARGV[1])
local current = tonumber(redis.call('HGET', KEYS[1], 'points') or '0')
if current > tonumber(ARGV[2]) - delta then
	return false
end
if ARGV[3] ~= '0' then
	redis.call('HSETNX', KEYS[1], 'seq', ARGV[3])
	redis.call('HSETNX', KEYS[1], 'created_at', ARGV[4])
	redis.call('HSETNX', KEYS[1], 'updated_at', ARGV[4])
end
redis.call('HINCRBY', KEYS[1], 'points', ARGV[1])
if ARGV[5] == '1' then
	redis.call('HSET', KEYS[1], 'updated_at', ARGV[4])
end
redis.call('ZINCRBY', KEYS[2], ARGV[1], ARGV[6])
return redis.call('HGETALL', KEYS[1])
`)

// accrue applies delta through accrueScript. Creation fields are written with
// HSETNX so concurrent first writers agree on a single seq and creation time.
func (s *Storage) accrue(ctx context.Context, userID model.UserID, delta int64, now time.Time, touch bool) (*model.Score, error) {
	if !model.CanAccrue(0, delta) {
		return nil, model.ErrScoreOverflow
	}

	key := scoreKey(userID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var seq int64
	if exists == 0 {
		seq, err = s.client.Incr(ctx, seqKey("scores")).Result()
		if err != nil {
			return nil, err
		}
	}

	touchArg := 0
	if touch {
		touchArg = 1
	}

	raw, err := accrueScript.Run(ctx, s.client,
		[]string{key, rankingKey()},
		delta, model.MaxPoints, seq, now.UnixMilli(), touchArg, string(userID),
	).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrScoreOverflow
		}
		return nil, err
	}

	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		fields[raw[i]] = raw[i+1]
	}
	return parseScore(userID, fields)
}

func (s *Storage) GetScore(ctx context.Context, userID model.UserID) (*model.Score, error) {
	fields, err := s.client.HGetAll(ctx, scoreKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrScoreNotFound
	}
	return parseScore(userID, fields)
}

// TopScores reads the top n members of the ranking set, widens the window to
// every member tied with the last one, and orders the candidates by seq.
func (s *Storage) TopScores(ctx context.Context, n int) ([]*model.Score, error) {
	if n <= 0 {
		return []*model.Score{}, nil
	}

	top, err := s.client.ZRevRangeWithScores(ctx, rankingKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return []*model.Score{}, nil
	}

	candidates := make(map[string]struct{}, len(top))
	for _, z := range top {
		candidates[z.Member.(string)] = struct{}{}
	}

	boundary := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
	ties, err := s.client.ZRangeByScore(ctx, rankingKey(), &redis.ZRangeBy{Min: boundary, Max: boundary}).Result()
	if err != nil {
		return nil, err
	}
	for _, member := range ties {
		candidates[member] = struct{}{}
	}

	userIDs := make([]model.UserID, 0, len(candidates))
	cmds := make([]*redis.MapStringStringCmd, 0, len(candidates))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for member := range candidates {
			userIDs = append(userIDs, model.UserID(member))
			cmds = append(cmds, pipe.HGetAll(ctx, scoreKey(model.UserID(member))))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	scores := make([]*model.Score, 0, len(cmds))
	for i, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			continue
		}
		score, err := parseScore(userIDs[i], cmd.Val())
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	model.SortScores(scores)
	if len(scores) > n {
		scores = scores[:n]
	}
	return scores, nil
}

func parseScore(userID model.UserID, fields map[string]string) (*model.Score, error) {
	points, err := strconv.ParseInt(fields[fieldPoints], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score points: %w", err)
	}
	seq, err := strconv.ParseInt(fields[fieldSeq], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score seq: %w", err)
	}
	createdAt, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score created_at: %w", err)
	}
	updatedAt, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score updated_at: %w", err)
	}

	return &model.Score{
		UserID:    userID,
		Points:    points,
		Seq:       seq,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		UpdatedAt: time.UnixMilli(updatedAt).UTC(),
	}, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, game *model.Game) error {
	seq, err := s.client.Incr(ctx, seqKey("games")).Result()
	if err != nil {
		return err
	}
	game.Seq = seq

	data, err := json.Marshal(game)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(game.ID), data, 0)
		pipe.ZAdd(ctx, gamesIndexKey(), redis.Z{Score: float64(seq), Member: string(game.ID)})
		return nil
	})
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}
	return decodeGame(data)
}

func (s *Storage) ListGames(ctx context.Context, status model.GameStatus) ([]*model.Game, error) {
	ids, err := s.client.ZRange(ctx, gamesIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	games := make([]*model.Game, 0, len(ids))
	if len(ids) == 0 {
		return games, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(model.GameID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		game, err := decodeGame([]byte(raw))
		if err != nil {
			return nil, err
		}
		if status == "" || game.Status == status {
			games = append(games, game)
		}
	}
	return games, nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateGameFunc) (*model.Game, error) {
	key := gameKey(id)
	var updated *model.Game

	err := s.watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrGameNotFound
			}
			return err
		}

		game, err := decodeGame(data)
		if err != nil {
			return err
		}
		if err := fn(game); err != nil {
			return err
		}

		out, err := json.Marshal(game)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = game
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func decodeGame(data []byte) (*model.Game, error) {
	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return game.Clone(), nil
}
