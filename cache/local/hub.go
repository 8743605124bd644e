package local

import (
	"context"
	"sync"
)

// Hub is an in-process fan-out pub/sub. Messages are [channel, payload]
// pairs. Slow subscribers drop messages rather than block publishers.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string][]chan [2]string
	bufSize int
}

// NewHub creates a Hub with the given per-subscriber buffer (default 256).
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Hub{subs: make(map[string][]chan [2]string), bufSize: bufSize}
}

func (h *Hub) Publish(_ context.Context, channel, message string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[channel] {
		select {
		case ch <- [2]string{channel, message}:
		default:
		}
	}
	return nil
}

// Subscribe registers one receive channel for all named channels. The
// returned cancel unregisters and closes it.
func (h *Hub) Subscribe(_ context.Context, channels ...string) (<-chan [2]string, func(), error) {
	ch := make(chan [2]string, h.bufSize)
	h.mu.Lock()
	for _, c := range channels {
		h.subs[c] = append(h.subs[c], ch)
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for _, c := range channels {
				list := h.subs[c]
				for i, sub := range list {
					if sub == ch {
						h.subs[c] = append(list[:i], list[i+1:]...)
						break
					}
				}
				if len(h.subs[c]) == 0 {
					delete(h.subs, c)
				}
			}
			close(ch)
		})
	}
	return ch, cancel, nil
}
