package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memCache() *Cache {
	return NewMemoryCache(zap.NewNop().Sugar(), nil)
}

func TestCacheRoundTrip(t *testing.T) {
	c := memCache()
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, c.Set(ctx, "k", payload{Name: "audit", Count: 3}, 0))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "audit", Count: 3}, got)
}

func TestCacheMiss(t *testing.T) {
	c := memCache()

	var got string
	err := c.Get(context.Background(), "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := memCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))

	var got string
	require.NoError(t, c.Get(ctx, "k", &got))

	time.Sleep(20 * time.Millisecond)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestCacheDelete(t *testing.T) {
	c := memCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	require.NoError(t, c.Delete(ctx, "a", "b"))

	var got int
	assert.ErrorIs(t, c.Get(ctx, "a", &got), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "b", &got), ErrCacheMiss)
}

func TestPubSubRoundTrip(t *testing.T) {
	c := memCache()
	ctx := context.Background()

	sub := c.Subscribe(ctx, "changes")
	defer sub.Close()

	require.NoError(t, c.Publish(ctx, "changes", map[string]string{"action": "created"}))
	require.NoError(t, c.Publish(ctx, "other", map[string]string{"action": "ignored"}))

	select {
	case msg := <-sub.C:
		assert.Equal(t, "changes", msg.Channel)
		assert.JSONEq(t, `{"action":"created"}`, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("message never arrived")
	}

	// Nothing from the channel we did not subscribe to.
	select {
	case msg := <-sub.C:
		t.Fatalf("unexpected message on %q", msg.Channel)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPubSubFanOut(t *testing.T) {
	c := memCache()
	ctx := context.Background()

	first := c.Subscribe(ctx, "changes")
	defer first.Close()
	second := c.Subscribe(ctx, "changes")
	defer second.Close()

	require.NoError(t, c.Publish(ctx, "changes", "hello"))

	for _, sub := range []*Subscription{first, second} {
		select {
		case msg := <-sub.C:
			assert.Equal(t, `"hello"`, msg.Payload)
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the message")
		}
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	c := memCache()
	sub := c.Subscribe(context.Background(), "changes")
	sub.Close()
	sub.Close()

	// Publishing after close must not panic or block.
	require.NoError(t, c.Publish(context.Background(), "changes", "late"))
}
