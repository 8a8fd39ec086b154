package sse

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/bughunt/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "player_joined",
			data:      `{"gameId":"g1"}`,
			expected:  "event: player_joined\ndata: {\"gameId\":\"g1\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "update",
			data:      "{\n  \"a\": 1\n}",
			expected:  "event: update\ndata: {\ndata:   \"a\": 1\ndata: }\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "carriage returns are dropped",
			eventName: "test",
			data:      "line1\r\nline2\r\n",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, time.Second, 5*time.Millisecond)
}

func receive(t *testing.T, client *Client) string {
	t.Helper()
	select {
	case msg := <-client.send:
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return ""
	}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := NewHub("lobby", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	clients := []*Client{NewClient(hub, "a"), NewClient(hub, "b"), NewClient(hub, "c")}
	for _, c := range clients {
		require.True(t, hub.Register(c))
	}
	waitForClients(t, hub, 3)

	hub.BroadcastEvent("update", "data")

	for _, c := range clients {
		assert.Equal(t, "event: update\ndata: data\n\n", receive(t, c))
	}
}

func TestHub_UnregisterClosesClientChannel(t *testing.T) {
	hub := NewHub("lobby", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := NewClient(hub, "a")
	require.True(t, hub.Register(client))
	waitForClients(t, hub, 1)

	hub.Unregister(client)
	waitForClients(t, hub, 0)

	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_RegisterAfterCloseFails(t *testing.T) {
	hub := NewHub("lobby", testutil.NopLogger())
	go hub.Run()
	hub.Close()

	assert.False(t, hub.Register(NewClient(hub, "late")))
	// Must not block either
	hub.Unregister(NewClient(hub, "late"))
}

func TestHubManager_GetOrCreateHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	assert.Nil(t, manager.GetHub("lobby"))

	lobby := manager.GetOrCreateHub("lobby")
	assert.Same(t, lobby, manager.GetOrCreateHub("lobby"))
	assert.Same(t, lobby, manager.GetHub("lobby"))
	assert.NotSame(t, lobby, manager.GetOrCreateHub("game:g1"))
}

func TestHubManager_RemoveHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())

	manager.GetOrCreateHub("game:g1")
	manager.RemoveHub("game:g1")
	assert.Nil(t, manager.GetHub("game:g1"))

	// Removing a missing hub is harmless
	manager.RemoveHub("game:missing")
}

func TestHubManager_CleanupEmptyHubs(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	manager.GetOrCreateHub("empty")
	active := manager.GetOrCreateHub("active")
	require.True(t, active.Register(NewClient(active, "a")))
	waitForClients(t, active, 1)

	manager.CleanupEmptyHubs()

	assert.Nil(t, manager.GetHub("empty"))
	assert.NotNil(t, manager.GetHub("active"))
}

func TestHubManager_CleanupKeepsHubBeingJoined(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	for i := 0; i < 100; i++ {
		topic := fmt.Sprintf("game:g%d", i)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.CleanupEmptyHubs()
		}()

		client, ok := manager.Subscribe(topic, "a")
		require.True(t, ok)
		manager.CleanupEmptyHubs()
		wg.Wait()

		assert.Same(t, client.hub, manager.GetHub(topic))
		assert.False(t, client.hub.isClosed())

		client.hub.Unregister(client)
	}
}

func TestHubManager_CleanupRemovesHubAfterLastClientLeaves(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()

	client, ok := manager.Subscribe("lobby", "a")
	require.True(t, ok)
	waitForClients(t, client.hub, 1)

	client.hub.Unregister(client)
	waitForClients(t, client.hub, 0)

	manager.CleanupEmptyHubs()
	assert.Nil(t, manager.GetHub("lobby"))
}

func TestHubManager_SubscribeAfterCloseFails(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	manager.Close()

	_, ok := manager.Subscribe("lobby", "late")
	assert.False(t, ok)
}
