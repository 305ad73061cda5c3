package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/enervolt/enervolt-backend/internal/store"
)

func testCache() *store.Cache {
	return store.NewMemoryCache(zap.NewNop().Sugar(), nil)
}

func TestNotifierPublishesChangeEvents(t *testing.T) {
	cache := testCache()
	ctx := context.Background()

	sub := cache.Subscribe(ctx, store.ChanContentChange)
	defer sub.Close()

	NewNotifier(cache, zap.NewNop().Sugar()).NotifyChange(ctx, "services", "created", 7)

	select {
	case msg := <-sub.C:
		var event ChangeEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.Equal(t, "services", event.Table)
		assert.Equal(t, "created", event.Action)
		assert.Equal(t, int64(7), event.ID)
		assert.NotZero(t, event.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("change event never arrived")
	}
}

func TestParseTables(t *testing.T) {
	tests := []struct {
		raw  string
		want map[string]bool
	}{
		{"", map[string]bool{}},
		{"services", map[string]bool{"services": true}},
		{"services,posts", map[string]bool{"services": true, "posts": true}},
		{",services,,posts,", map[string]bool{"services": true, "posts": true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTables(tt.raw), "raw %q", tt.raw)
	}
}

func TestClientWants(t *testing.T) {
	all := &Client{tables: map[string]bool{}}
	assert.True(t, all.wants("services"))
	assert.True(t, all.wants("posts"))

	narrowed := &Client{tables: map[string]bool{"posts": true}}
	assert.True(t, narrowed.wants("posts"))
	assert.False(t, narrowed.wants("services"))
}

// End to end: a connected client subscribed to one table receives
// matching change events and nothing else.
func TestHubDeliversEventsToSubscribedClients(t *testing.T) {
	cache := testCache()
	logger := zap.NewNop().Sugar()

	hub := NewHub(cache, logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.ServeWS(nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?tables=posts"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Let the hub pick up the registration before publishing.
	time.Sleep(50 * time.Millisecond)

	notifier := NewNotifier(cache, logger)
	notifier.NotifyChange(ctx, "services", "created", 1) // filtered out
	notifier.NotifyChange(ctx, "posts", "updated", 2)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event ChangeEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "posts", event.Table)
	assert.Equal(t, "updated", event.Action)
	assert.Equal(t, int64(2), event.ID)
}

func TestServeWSRejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub(testCache(), zap.NewNop().Sugar(), nil)

	srv := httptest.NewServer(hub.ServeWS([]string{"http://localhost:3000"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
