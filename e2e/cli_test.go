package e2e_test

import (
	"bufio"
	"context"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bughunt/internal/api"
	"github.com/mcoot/bughunt/internal/api/handler"
	"github.com/mcoot/bughunt/internal/api/response"
	"github.com/mcoot/bughunt/internal/factory"
	"github.com/mcoot/bughunt/internal/testutil"
)

var (
	buildOnce  sync.Once
	binaryPath string
	buildErr   error
	buildOut   []byte
)

// buildCLI compiles the CLI binary once per test run
func buildCLI(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		projectRoot := findProjectRoot(t)
		binaryPath = filepath.Join(projectRoot, "bin", "bughunt-test")
		cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/bughunt")
		cmd.Dir = projectRoot
		buildOut, buildErr = cmd.CombinedOutput()
	})
	require.NoError(t, buildErr, "failed to build CLI: %s", string(buildOut))
	return binaryPath
}

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath  string
	serverURL   string
	profileFile string
	configFile  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	dir := t.TempDir()
	return &cliRunner{
		binaryPath:  buildCLI(t),
		serverURL:   serverURL,
		profileFile: filepath.Join(dir, "profile.json"),
		configFile:  filepath.Join(dir, "config.yaml"),
	}
}

func (r *cliRunner) args(args ...string) []string {
	return append([]string{
		"--server", r.serverURL,
		"--profile-file", r.profileFile,
		"--config", r.configFile,
		"--output", "json",
	}, args...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	cmd := exec.Command(r.binaryPath, r.args(args...)...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// runJSON runs a command expected to succeed and decodes its output into dst
func (r *cliRunner) runJSON(t *testing.T, dst any, args ...string) {
	t.Helper()
	output, err := r.run(args...)
	require.NoError(t, err, "output: %s", output)
	require.NoError(t, json.Unmarshal([]byte(output), dst), "output: %s", output)
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// startTestServer runs the full API on a real listener
func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:         testutil.NopLogger(),
		Clock:          app.Clock,
		Storage:        app.Storage,
		StorageInfo:    handler.StorageInfo{Backend: app.Backend, Volatile: app.Volatile},
		AuthService:    app.AuthService,
		UserService:    app.UserService,
		ScoreService:   app.ScoreService,
		GameController: app.GameController,
		HubManager:     app.HubManager,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	var resp response.HealthResponse
	cli.runJSON(t, &resp, "health")

	assert.True(t, resp.OK)
	assert.True(t, resp.DB.OK)
	assert.Equal(t, "memory", resp.DB.Backend)
	assert.True(t, resp.DB.Volatile)
}

func TestCLI_RegisterAndLogin(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	var registered response.AuthResponse
	cli.runJSON(t, &registered, "register", "--user", "alice", "--email", "alice@example.com", "--pass", "hunter2")
	assert.Equal(t, "User created successfully", registered.Message)
	assert.Equal(t, "alice", registered.User.Username)
	assert.NotEmpty(t, registered.User.ID)

	// Registration saves the profile
	var me response.User
	cli.runJSON(t, &me, "whoami")
	assert.Equal(t, registered.User, me)

	var loggedIn response.AuthResponse
	cli.runJSON(t, &loggedIn, "login", "--user", "alice", "--pass", "hunter2")
	assert.Equal(t, "Login successful", loggedIn.Message)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	output, err := cli.run("login", "--user", "alice", "--pass", "wrong")
	require.Error(t, err)
	assert.Contains(t, output, "INVALID_CREDENTIALS")

	output, err = cli.run("register", "--user", "alice", "--pass", "other")
	require.Error(t, err)
	assert.Contains(t, output, "USER_EXISTS")
}

func TestCLI_WhoamiWithoutProfile(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	output, err := cli.run("whoami")
	require.Error(t, err)
	assert.Contains(t, output, "not logged in")
}

func TestCLI_GameAndLobbyFlow(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	ids := make([]string, 3)
	for i, name := range []string{"u1", "u2", "u3"} {
		var resp response.AuthResponse
		cli.runJSON(t, &resp, "register", "--user", name, "--pass", "secret")
		ids[i] = resp.User.ID
	}

	var game response.Game
	cli.runJSON(t, &game, "game", "create", "--mode", "classic", "--max-players", "2")
	assert.Equal(t, "waiting", game.Status)
	assert.Equal(t, 2, game.MaxPlayers)
	assert.Empty(t, game.Players)

	var ok response.OKResponse
	cli.runJSON(t, &ok, "lobby", "join", game.ID, "--user", ids[0])
	assert.Equal(t, "Successfully joined game", ok.Message)
	cli.runJSON(t, &ok, "lobby", "join", game.ID, "--user", ids[1])

	output, err := cli.run("lobby", "join", game.ID, "--user", ids[2])
	require.Error(t, err)
	assert.Contains(t, output, "GAME_FULL")

	output, err = cli.run("lobby", "join", game.ID, "--user", ids[1])
	require.Error(t, err)
	assert.Contains(t, output, "GAME_FULL")

	cli.runJSON(t, &ok, "lobby", "leave", game.ID, "--user", ids[0])
	assert.Equal(t, "Successfully left game", ok.Message)

	// u3 is the saved profile, so --user can be omitted
	cli.runJSON(t, &ok, "lobby", "join", game.ID)

	var detail response.GameDetail
	cli.runJSON(t, &detail, "game", "get", game.ID)
	require.Len(t, detail.Players, 2)
	assert.Equal(t, "u2", detail.Players[0].Username)
	assert.Equal(t, "u3", detail.Players[1].Username)

	var lobbies response.LobbiesResponse
	cli.runJSON(t, &lobbies, "lobby", "list")
	require.Len(t, lobbies.Lobbies, 1)
	assert.Equal(t, game.ID, lobbies.Lobbies[0].ID)
	assert.Equal(t, 2, lobbies.Lobbies[0].Players)
	assert.Equal(t, []string{"u2", "u3"}, lobbies.Lobbies[0].PlayerNames)
}

func TestCLI_ScoresAndLeaderboard(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	for _, name := range []string{"bob", "carol", "alice"} {
		output, err := cli.run("register", "--user", name, "--pass", "secret")
		require.NoError(t, err, "output: %s", output)
	}

	// alice is the saved profile
	var submitted response.SubmitScoreResponse
	cli.runJSON(t, &submitted, "score", "submit", "20", "--mode", "classic")
	assert.Equal(t, "Score saved successfully", submitted.Message)
	assert.Equal(t, int64(20), submitted.TotalScore)
	assert.Equal(t, "classic", submitted.GameMode)

	cli.runJSON(t, &submitted, "score", "submit", "15", "--completed-at", "2024-03-01T10:00:00Z")
	assert.Equal(t, int64(35), submitted.TotalScore)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), submitted.CompletedAt.UTC())

	cli.runJSON(t, &submitted, "score", "submit", "35", "--username", "carol")

	var total response.ScoreResponse
	cli.runJSON(t, &total, "score", "get")
	assert.Equal(t, "alice", total.Username)
	assert.Equal(t, int64(35), total.TotalScore)

	cli.runJSON(t, &total, "score", "get", "bob")
	assert.Equal(t, int64(0), total.TotalScore)

	var board response.LeaderboardResponse
	cli.runJSON(t, &board, "leaderboard")
	require.Len(t, board.Items, 3)
	// Ties keep registration order
	assert.Equal(t, "carol", board.Items[0].Username)
	assert.Equal(t, "alice", board.Items[1].Username)
	assert.Equal(t, "bob", board.Items[2].Username)
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	t.Run("unknown game", func(t *testing.T) {
		output, err := cli.run("game", "get", "missing")
		require.Error(t, err)
		assert.Contains(t, output, "GAME_NOT_FOUND")
	})

	t.Run("invalid max players", func(t *testing.T) {
		output, err := cli.run("game", "create", "--mode", "classic", "--max-players", "11")
		require.Error(t, err)
		assert.Contains(t, output, "INVALID_MAX_PLAYERS")
	})

	t.Run("join without user", func(t *testing.T) {
		output, err := cli.run("lobby", "join", "some-game")
		require.Error(t, err)
		assert.Contains(t, output, "no user given")
	})

	t.Run("unknown user score", func(t *testing.T) {
		output, err := cli.run("score", "get", "nobody")
		require.Error(t, err)
		assert.Contains(t, output, "USER_NOT_FOUND")
	})

	t.Run("negative score", func(t *testing.T) {
		output, err := cli.run("score", "submit", "--username", "nobody", "--", "-5")
		require.Error(t, err)
		assert.Contains(t, output, "INVALID_SCORE")
	})

	t.Run("invalid output format", func(t *testing.T) {
		cmd := exec.Command(cli.binaryPath, "--server", ts.URL, "--config", cli.configFile, "--output", "yaml", "health")
		output, err := cmd.CombinedOutput()
		require.Error(t, err)
		assert.Contains(t, string(output), "invalid output format")
	})
}

func TestCLI_ConfigFromEnvironment(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	cmd := exec.Command(cli.binaryPath, "--config", cli.configFile, "health")
	cmd.Env = append(os.Environ(),
		"BUGHUNT_SERVER="+ts.URL,
		"BUGHUNT_OUTPUT=json",
		"BUGHUNT_PROFILE_FILE="+cli.profileFile,
	)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "output: %s", output)

	var resp response.HealthResponse
	require.NoError(t, json.Unmarshal(output, &resp))
	assert.True(t, resp.OK)
}

func TestCLI_ConfigFile(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	contents := "server: " + ts.URL + "\noutput: json\nprofile-file: " + cli.profileFile + "\n"
	require.NoError(t, os.WriteFile(cli.configFile, []byte(contents), 0600))

	cmd := exec.Command(cli.binaryPath, "--config", cli.configFile, "health")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "output: %s", output)

	var resp response.HealthResponse
	require.NoError(t, json.Unmarshal(output, &resp))
	assert.Equal(t, "memory", resp.DB.Backend)
}

func TestCLI_LobbyWatch(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, cli.binaryPath, cli.args("lobby", "watch", "--json")...)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		cancel()
		_ = cmd.Wait()
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	next := func() map[string]string {
		t.Helper()
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream ended early")
			var evt map[string]string
			require.NoError(t, json.Unmarshal([]byte(line), &evt), "line: %s", line)
			return evt
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for event")
			return nil
		}
	}

	assert.Equal(t, "connected", next()["event"])

	var game response.Game
	newCLIRunner(t, ts.URL).runJSON(t, &game, "game", "create", "--mode", "classic")

	evt := next()
	assert.Equal(t, "game_created", evt["event"])
	assert.True(t, strings.Contains(evt["data"], game.ID), "data: %s", evt["data"])
}
