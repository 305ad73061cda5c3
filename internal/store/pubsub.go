package store

import "sync"

// pubSubHub is the in-memory stand-in for Redis pubsub. Deliveries are
// non-blocking; a slow subscriber drops messages rather than stalling
// publishers.
type pubSubHub struct {
	mu   sync.RWMutex
	subs []*hubSub
}

type hubSub struct {
	channels map[string]bool
	out      chan Message
	once     sync.Once
}

func newPubSubHub() *pubSubHub {
	return &pubSubHub{}
}

func (h *pubSubHub) subscribe(channels ...string) *Subscription {
	sub := &hubSub{
		channels: make(map[string]bool, len(channels)),
		out:      make(chan Message, 64),
	}
	for _, ch := range channels {
		sub.channels[ch] = true
	}

	h.mu.Lock()
	h.subs = append(h.subs, sub)
	h.mu.Unlock()

	return &Subscription{
		C: sub.out,
		close: func() {
			h.remove(sub)
			sub.once.Do(func() { close(sub.out) })
		},
	}
}

func (h *pubSubHub) publish(channel, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.channels[channel] {
			continue
		}
		select {
		case sub.out <- Message{Channel: channel, Payload: payload}:
		default:
		}
	}
}

func (h *pubSubHub) remove(target *hubSub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.subs {
		if sub == target {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			return
		}
	}
}
