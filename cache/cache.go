// Package cache abstracts the key/value and pub/sub backends used for save
// blobs, token revocation and the runtime event stream.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/skyquest/cache/local"
	cacheredis "github.com/kasuganosora/skyquest/cache/redis"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// Cache is a string key/value store with optional TTLs.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub publishes and subscribes to named channels.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// Config selects and tunes the backend. An empty RedisAddr means in-process.
type Config struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

func (cfg Config) redis() cacheredis.Config {
	return cacheredis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// New returns a Redis-backed cache when RedisAddr is set, otherwise a local one.
func New(cfg Config) (Cache, error) {
	if cfg.RedisAddr != "" {
		c, err := cacheredis.NewKV(cfg.redis())
		if err != nil {
			return nil, err
		}
		return &kvAdapter{kv: c, miss: cacheredis.ErrNotFound}, nil
	}
	return &kvAdapter{kv: local.NewKV(cfg.LocalGCInterval), miss: local.ErrNotFound}, nil
}

// NewPubSub returns a Redis-backed PubSub when RedisAddr is set, otherwise a
// local fan-out hub.
func NewPubSub(cfg Config) (PubSub, error) {
	if cfg.RedisAddr != "" {
		ps, err := cacheredis.NewPubSub(cfg.redis())
		if err != nil {
			return nil, err
		}
		return &pubSubAdapter{publish: ps.Publish, subscribe: ps.Subscribe}, nil
	}
	hub := local.NewHub(cfg.LocalPubSubBuf)
	return &pubSubAdapter{publish: hub.Publish, subscribe: hub.Subscribe}, nil
}

// ---- adapters ----

type backendKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// kvAdapter maps the backend's miss error onto ErrNotFound.
type kvAdapter struct {
	kv   backendKV
	miss error
}

func (a *kvAdapter) Get(ctx context.Context, key string) (string, error) {
	v, err := a.kv.Get(ctx, key)
	if errors.Is(err, a.miss) {
		return "", ErrNotFound
	}
	return v, err
}

func (a *kvAdapter) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return a.kv.Set(ctx, key, value, ttl)
}

func (a *kvAdapter) Del(ctx context.Context, keys ...string) error {
	return a.kv.Del(ctx, keys...)
}

func (a *kvAdapter) Exists(ctx context.Context, key string) (bool, error) {
	return a.kv.Exists(ctx, key)
}

func (a *kvAdapter) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return a.kv.SetNX(ctx, key, value, ttl)
}

type pubSubAdapter struct {
	publish   func(ctx context.Context, channel, message string) error
	subscribe func(ctx context.Context, channels ...string) (<-chan [2]string, func(), error)
}

func (a *pubSubAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.publish(ctx, channel, message)
}

func (a *pubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	in, cancel, err := a.subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan *Message, 256)
	go func() {
		defer close(out)
		for m := range in {
			out <- &Message{Channel: m[0], Payload: m[1]}
		}
	}()
	return out, cancel, nil
}
