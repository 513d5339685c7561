package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diagnosis/boxbook/pkg/config"
)

func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Store backs the HTTP idempotency middleware: cached response bodies keyed by
// the hashed Idempotency-Key header.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// EventLedger remembers processed payment event ids so a redelivered webhook
// short-circuits before touching the database. A claim is only a lease: if
// the process dies before Complete, the entry lapses after lease and the
// processor's next delivery is handled.
type EventLedger struct {
	client *redis.Client
	lease  time.Duration
	ttl    time.Duration
}

func NewEventLedger(client *redis.Client, lease, ttl time.Duration) *EventLedger {
	return &EventLedger{client: client, lease: lease, ttl: ttl}
}

func eventKey(id string) string { return "payment-event:" + id }

// Claim returns true when id is neither processed nor being processed.
func (l *EventLedger) Claim(ctx context.Context, id string) (bool, error) {
	return l.client.SetNX(ctx, eventKey(id), "processing", l.lease).Result()
}

// Complete records id as processed for the full ttl.
func (l *EventLedger) Complete(ctx context.Context, id string) error {
	return l.client.Set(ctx, eventKey(id), time.Now().Unix(), l.ttl).Err()
}

// Release forgets id, so a delivery whose processing failed can be retried.
func (l *EventLedger) Release(ctx context.Context, id string) error {
	return l.client.Del(ctx, eventKey(id)).Err()
}

// Counter is a fixed-window request counter used for rate limiting.
type Counter struct {
	client *redis.Client
}

func NewCounter(client *redis.Client) *Counter {
	return &Counter{client: client}
}

// Incr bumps key and returns the count within the current window.
func (c *Counter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
