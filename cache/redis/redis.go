// Package redis implements the cache backends on Redis.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("redis: key not found")

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

func connect(cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// KV is a Redis-backed string store.
type KV struct {
	client *goredis.Client
}

// NewKV connects and pings Redis.
func NewKV(cfg Config) (*KV, error) {
	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &KV{client: client}, nil
}

func (r *KV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *KV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *KV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *KV) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *KV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

// PubSub wraps Redis publish/subscribe.
type PubSub struct {
	client *goredis.Client
}

// NewPubSub connects and pings Redis.
func NewPubSub(cfg Config) (*PubSub, error) {
	client, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &PubSub{client: client}, nil
}

func (r *PubSub) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, channel, message).Err()
}

// Subscribe streams [channel, payload] pairs until cancel is called.
func (r *PubSub) Subscribe(ctx context.Context, channels ...string) (<-chan [2]string, func(), error) {
	sub := r.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}
	out := make(chan [2]string, 256)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			out <- [2]string{msg.Channel, msg.Payload}
		}
	}()
	return out, func() { _ = sub.Close() }, nil
}
