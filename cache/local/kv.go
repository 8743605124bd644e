// Package local implements the cache backends in process memory.
package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("local: key not found")

type entry struct {
	data     string
	expireAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// KV is an in-process string store with lazy and periodic expiry.
type KV struct {
	mu     sync.Mutex
	data   map[string]entry
	stopGC chan struct{}
}

// NewKV creates a KV and starts its expiry sweeper. gcInterval <= 0 means 30s.
func NewKV(gcInterval time.Duration) *KV {
	if gcInterval <= 0 {
		gcInterval = 30 * time.Second
	}
	kv := &KV{data: make(map[string]entry), stopGC: make(chan struct{})}
	go kv.sweep(gcInterval)
	return kv
}

// Close stops the sweeper.
func (kv *KV) Close() { close(kv.stopGC) }

func (kv *KV) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			kv.mu.Lock()
			for k, e := range kv.data {
				if e.expired(now) {
					delete(kv.data, k)
				}
			}
			kv.mu.Unlock()
		case <-kv.stopGC:
			return
		}
	}
}

// load returns a live entry, dropping it if expired. Caller holds mu.
func (kv *KV) load(key string) (entry, bool) {
	e, ok := kv.data[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(time.Now()) {
		delete(kv.data, key)
		return entry{}, false
	}
	return e, true
}

func newEntry(value string, ttl time.Duration) entry {
	e := entry{data: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	return e
}

func (kv *KV) Get(_ context.Context, key string) (string, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	e, ok := kv.load(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (kv *KV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = newEntry(value, ttl)
	return nil
}

func (kv *KV) Del(_ context.Context, keys ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	for _, k := range keys {
		delete(kv.data, k)
	}
	return nil
}

func (kv *KV) Exists(_ context.Context, key string) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, ok := kv.load(key)
	return ok, nil
}

// SetNX stores value only when key is absent or expired.
func (kv *KV) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.load(key); ok {
		return false, nil
	}
	kv.data[key] = newEntry(value, ttl)
	return true, nil
}
