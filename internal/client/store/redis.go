package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jobrefme/jobrefme-cli/internal/common"
	"github.com/jobrefme/jobrefme-cli/internal/logging"
)

// RedisStore is a networked store backend for setups where surfaces run on
// more than one machine. Change events ride a pub/sub channel: every write
// publishes a changeMessage tagged with the writer's handle id, and
// subscribers drop their own.
type RedisStore struct {
	client  redis.UniversalClient
	prefix  string
	channel string
	origin  string
	log     logging.Logger

	mu     sync.Mutex
	closed bool
	subs   []context.CancelFunc
}

type changeMessage struct {
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Origin  string `json:"origin"`
}

type RedisOption func(*RedisStore)

// WithRedisLogger attaches a logger; by default the store is silent.
func WithRedisLogger(l logging.Logger) RedisOption {
	return func(s *RedisStore) { s.log = l }
}

// OpenRedis connects to the Redis instance described by url
// (redis://host:port/db) and returns a store handle scoped to prefix.
func OpenRedis(url string, prefix string, opts ...RedisOption) (*RedisStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	s := &RedisStore{
		client:  redis.NewClient(options),
		prefix:  prefix,
		channel: prefix + ":changes",
		origin:  uuid.NewString(),
		log:     logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return s.publish(ctx, changeMessage{Key: key, Value: value, Origin: s.origin})
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	if n == 0 {
		return nil
	}
	return s.publish(ctx, changeMessage{Key: key, Deleted: true, Origin: s.origin})
}

func (s *RedisStore) List(ctx context.Context) (map[string][]byte, error) {
	result := make(map[string][]byte)
	iter := s.client.Scan(ctx, 0, s.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		val, err := s.client.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list kv: %w", err)
		}
		result[full[len(s.prefix)+1:]] = val
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan kv: %w", err)
	}
	return result, nil
}

func (s *RedisStore) publish(ctx context.Context, msg changeMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change for kv[%s]: %w", msg.Key, err)
	}
	return nil
}

func (s *RedisStore) Watch(ctx context.Context) (<-chan Change, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("store is closed")
	}
	subCtx, cancel := context.WithCancel(ctx)
	s.subs = append(s.subs, cancel)
	s.mu.Unlock()

	sub := s.client.Subscribe(subCtx, s.channel)
	ch := make(chan Change, watchBuffer)

	go func() {
		defer close(ch)
		defer sub.Close()
		for {
			select {
			case <-subCtx.Done():
				return
			case m, ok := <-sub.Channel():
				if !ok {
					return
				}
				var msg changeMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					s.log.Warn(subCtx, "dropping malformed change message", "error", err)
					continue
				}
				if msg.Origin == s.origin {
					continue
				}
				select {
				case ch <- Change{Key: msg.Key, Value: msg.Value, Deleted: msg.Deleted}:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func (s *RedisStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	return s.client.Close()
}
