// Package store provides the shared cache and pubsub channel. Redis
// backs both when reachable; otherwise an in-process fallback keeps dev
// and tests working without infrastructure.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/enervolt/enervolt-backend/internal/metrics"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache key and channel names.
const (
	KeySiteContent    = "ev:content:aggregate"
	ChanContentChange = "ev:content:changes"
)

type Cache struct {
	client *redis.Client // nil when Redis is unavailable
	mem    *memStore
	hub    *pubSubHub
	logger *zap.SugaredLogger
	mx     *metrics.Metrics
}

func NewCache(addr string, logger *zap.SugaredLogger, mx *metrics.Metrics) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Warnw("Redis unavailable; using in-memory cache and pubsub", "error", err)
		}
		return &Cache{
			mem:    newMemStore(),
			hub:    newPubSubHub(),
			logger: logger,
			mx:     mx,
		}, nil
	}

	return &Cache{client: client, logger: logger, mx: mx}, nil
}

// NewMemoryCache builds a cache that never touches Redis. Used by tests
// and available to tools that only need the in-process fallback.
func NewMemoryCache(logger *zap.SugaredLogger, mx *metrics.Metrics) *Cache {
	return &Cache{
		mem:    newMemStore(),
		hub:    newPubSubHub(),
		logger: logger,
		mx:     mx,
	}
}

func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	var data []byte

	if c.client != nil {
		val, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				c.recordMiss(ctx, key)
				return ErrCacheMiss
			}
			return fmt.Errorf("cache get: %w", err)
		}
		data = val
	} else {
		val, ok := c.mem.get(key)
		if !ok {
			c.recordMiss(ctx, key)
			return ErrCacheMiss
		}
		data = val
	}

	if c.mx != nil {
		c.mx.RecordCacheHit(ctx, key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if c.client != nil {
		return c.client.Set(ctx, key, data, ttl).Err()
	}
	c.mem.set(key, data, ttl)
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if c.client != nil {
		return c.client.Del(ctx, keys...).Err()
	}
	c.mem.delete(keys...)
	return nil
}

func (c *Cache) Publish(ctx context.Context, channel string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("publish marshal: %w", err)
	}
	if c.client != nil {
		return c.client.Publish(ctx, channel, data).Err()
	}
	c.hub.publish(channel, string(data))
	return nil
}

// Message is a single pubsub delivery, independent of the backend.
type Message struct {
	Channel string
	Payload string
}

// Subscription delivers messages until Close or context cancellation.
type Subscription struct {
	C     <-chan Message
	close func()
}

func (s *Subscription) Close() {
	s.close()
}

func (c *Cache) Subscribe(ctx context.Context, channels ...string) *Subscription {
	if c.client != nil {
		ps := c.client.Subscribe(ctx, channels...)
		out := make(chan Message, 64)
		go func() {
			defer close(out)
			for msg := range ps.Channel() {
				select {
				case out <- Message{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}()
		return &Subscription{C: out, close: func() { _ = ps.Close() }}
	}
	return c.hub.subscribe(channels...)
}

func (c *Cache) Ping(ctx context.Context) error {
	if c.client != nil {
		return c.client.Ping(ctx).Err()
	}
	return nil
}

func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *Cache) recordMiss(ctx context.Context, key string) {
	if c.mx != nil {
		c.mx.RecordCacheMiss(ctx, key)
	}
}

// memStore is the fallback KV: a map with lazy TTL expiry. Good enough
// for a single process; expired entries are dropped on read.
type memStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	data    []byte
	expires time.Time
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]memEntry)}
}

func (m *memStore) get(key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

func (m *memStore) set(key string, data []byte, ttl time.Duration) {
	e := memEntry{data: data}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
}

func (m *memStore) delete(keys ...string) {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
}
