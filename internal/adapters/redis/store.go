// Package redis implements channel persistence and a flow source on Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/voxflow/voxflow/pkg/domain"
)

// Store implements ports.ChannelStore using Redis. Each channel is one JSON
// value under prefix+UID; a counter key hands out surrogate ids.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for channel records.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for channel records.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "voxflow:channel:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(uid string) string {
	return s.prefix + uid
}

func (s *Store) idKey() string {
	return s.prefix + "next_id"
}

// Insert creates the record for a new UID. SetNX carries the uniqueness
// constraint, so a concurrent creator loses cleanly with ErrChannelExists.
func (s *Store) Insert(ctx context.Context, ch *domain.Channel) error {
	id, err := s.client.Incr(ctx, s.idKey()).Result()
	if err != nil {
		return fmt.Errorf("allocate channel id: %w", err)
	}
	ch.ID = id

	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode channel %s: %w", ch.UID, err)
	}

	ok, err := s.client.SetNX(ctx, s.key(ch.UID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("insert channel %s: %w", ch.UID, err)
	}
	if !ok {
		return domain.ErrChannelExists
	}
	return nil
}

// Update rewrites the record for ch.UID.
func (s *Store) Update(ctx context.Context, ch *domain.Channel) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode channel %s: %w", ch.UID, err)
	}
	if err := s.client.Set(ctx, s.key(ch.UID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("update channel %s: %w", ch.UID, err)
	}
	return nil
}

// GetByUID loads a channel record.
func (s *Store) GetByUID(ctx context.Context, uid string) (*domain.Channel, error) {
	val, err := s.client.Get(ctx, s.key(uid)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, fmt.Errorf("get channel %s: %w", uid, err)
	}

	var ch domain.Channel
	if err := json.Unmarshal([]byte(val), &ch); err != nil {
		return nil, fmt.Errorf("decode channel %s: %w", uid, err)
	}
	if ch.Variables == nil {
		ch.Variables = map[string]any{}
	}
	return &ch, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
