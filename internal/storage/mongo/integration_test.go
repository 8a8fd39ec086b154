//go:build integration

package mongo_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mcoot/bughunt/internal/model"
	"github.com/mcoot/bughunt/internal/storage/mongo"
)

var uri string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "27017")
	if err != nil {
		panic(err)
	}
	uri = fmt.Sprintf("mongodb://%s:%s", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newStorage(t *testing.T) *mongo.Storage {
	t.Helper()
	cfg := mongo.DefaultConfig()
	cfg.URI = uri
	cfg.Database = fmt.Sprintf("bughunt_%d", time.Now().UnixNano())

	store, err := mongo.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStorage_UserUniqueness(t *testing.T) {
	ctx := context.Background()
	store := newStorage(t)

	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "u1", Username: "alice", Email: "a@example.com"}))
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "u2", Username: "bob"}))
	require.NoError(t, store.CreateUser(ctx, &model.User{ID: "u3", Username: "carol"}))

	require.ErrorIs(t, store.CreateUser(ctx, &model.User{ID: "u4", Username: "alice"}), model.ErrUserExists)
	require.ErrorIs(t, store.CreateUser(ctx, &model.User{ID: "u5", Username: "dave", Email: "a@example.com"}), model.ErrUserExists)

	users, err := store.GetUsers(ctx, []model.UserID{"u1", "u3", "ghost"})
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestStorage_Scores(t *testing.T) {
	ctx := context.Background()
	store := newStorage(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.IncrementScore(ctx, "u1", 10, now)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	score, err := store.GetScore(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), score.Points)

	_, err = store.IncrementScore(ctx, "u2", 1000, now)
	require.NoError(t, err)
	_, err = store.EnsureScore(ctx, "u3", now)
	require.NoError(t, err)

	top, err := store.TopScores(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, model.UserID("u1"), top[0].UserID)
	require.Equal(t, model.UserID("u2"), top[1].UserID)
}

func TestStorage_ScoreCap(t *testing.T) {
	ctx := context.Background()
	store := newStorage(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	score, err := store.IncrementScore(ctx, "cap-user", model.MaxPoints, now)
	require.NoError(t, err)
	require.Equal(t, model.MaxPoints, score.Points)

	_, err = store.IncrementScore(ctx, "cap-user", 1, now)
	require.ErrorIs(t, err, model.ErrScoreOverflow)

	score, err = store.GetScore(ctx, "cap-user")
	require.NoError(t, err)
	require.Equal(t, model.MaxPoints, score.Points)

	// A zero delta still fits at the cap
	_, err = store.EnsureScore(ctx, "cap-user", now)
	require.NoError(t, err)
}

func TestStorage_GameJoinRace(t *testing.T) {
	ctx := context.Background()
	store := newStorage(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, store.CreateGame(ctx, &model.Game{ID: "g1", Mode: "classic", MaxPlayers: 3, Status: model.GameStatusWaiting, CreatedAt: now, UpdatedAt: now}))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
		full   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := model.UserID(fmt.Sprintf("racer-%d", i))
			_, err := store.UpdateGame(ctx, "g1", func(g *model.Game) error { return g.AddPlayer(userID) })
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errors.Is(err, model.ErrGameFull):
				full++
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 3, joined)
	require.Equal(t, 5, full)

	game, err := store.GetGame(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, game.Players, 3)
}
