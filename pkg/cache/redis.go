package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ddl-r-abdulaziz/clustermap/pkg/cluster"
)

// DefaultRedisKey is the key the snapshot is stored under.
const DefaultRedisKey = "clustermap:snapshot"

// ErrMiss is returned by Load when nothing is mirrored.
var ErrMiss = errors.New("no mirrored snapshot")

// RedisMirror stores the latest snapshot as JSON in Redis.
type RedisMirror struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

var _ Mirror = (*RedisMirror)(nil)

// NewRedisMirror connects to addr and checks the connection.
func NewRedisMirror(ctx context.Context, addr string, ttl time.Duration) (*RedisMirror, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisMirrorWithClient(client, DefaultRedisKey, ttl), client, nil
}

// NewRedisMirrorWithClient creates a mirror on an existing client.
func NewRedisMirrorWithClient(client redis.Cmdable, key string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, key: key, ttl: ttl}
}

// Save implements Mirror.
func (m *RedisMirror) Save(ctx context.Context, s *cluster.Snapshot) error {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}
	if err := m.client.Set(ctx, m.key, data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot in redis: %w", err)
	}
	return nil
}

// Load implements Mirror.
func (m *RedisMirror) Load(ctx context.Context) (*cluster.Snapshot, error) {
	data, err := m.client.Get(ctx, m.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot from redis: %w", err)
	}
	return DecodeSnapshot(data)
}

// EncodeSnapshot serializes a snapshot for the mirror. Source and cache age
// describe a single response and are not stored.
func EncodeSnapshot(s *cluster.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}
	stored := *s
	stored.Source = ""
	stored.CacheAge = 0
	return json.Marshal(&stored)
}

// DecodeSnapshot parses a mirrored snapshot.
func DecodeSnapshot(data []byte) (*cluster.Snapshot, error) {
	var s cluster.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode mirrored snapshot: %w", err)
	}
	return &s, nil
}
