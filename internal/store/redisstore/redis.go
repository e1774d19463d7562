// Package redisstore implements the replicated store contract on Redis:
// a hash holds the last-written value per key and a pub/sub channel
// carries change notifications to every replica.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/agilevibe/poker/internal/store"
)

// Config holds connection settings for the Redis backend.
type Config struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces the hash and channel, so multiple deployments
	// can share one Redis.
	KeyPrefix string
}

// DefaultConfig returns settings for a local Redis.
func DefaultConfig() Config {
	return Config{
		Addr:      "localhost:6379",
		KeyPrefix: "agilevibe",
	}
}

// change is the notification payload published on every write.
type change struct {
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Store is a Redis-backed ReplicatedStore.
type Store struct {
	client  *redis.Client
	cfg     Config
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	subs    map[int]*subscription
	nextID  int
	pubsub  *redis.PubSub
	started bool
}

type subscription struct {
	prefix string
	fn     store.ChangeFunc
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	return &Store{
		client: client,
		cfg:    cfg,
		ctx:    runCtx,
		cancel: cancel,
		subs:   make(map[int]*subscription),
	}, nil
}

func (s *Store) hashKey() string {
	return s.cfg.KeyPrefix + ":values"
}

func (s *Store) channel() string {
	return s.cfg.KeyPrefix + ":changes"
}

// Put writes value under path and publishes a change notification. A nil
// value removes the key and publishes a tombstone.
func (s *Store) Put(ctx context.Context, path []string, value []byte) error {
	key := store.JoinPath(path)

	if value == nil {
		if err := s.client.HDel(ctx, s.hashKey(), key).Err(); err != nil {
			return fmt.Errorf("hdel %s: %w", key, err)
		}
	} else {
		if err := s.client.HSet(ctx, s.hashKey(), key, value).Err(); err != nil {
			return fmt.Errorf("hset %s: %w", key, err)
		}
	}

	payload, err := json.Marshal(change{Key: key, Value: value, Deleted: value == nil})
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel(), payload).Err(); err != nil {
		return fmt.Errorf("publish change %s: %w", key, err)
	}
	return nil
}

// Subscribe replays the current hash contents under the prefix, then
// delivers published changes. The pub/sub reader is started lazily on
// the first subscription.
func (s *Store) Subscribe(path []string, fn store.ChangeFunc) (store.CancelFunc, error) {
	prefix := store.JoinPath(path)

	all, err := s.client.HGetAll(s.ctx, s.hashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall replay: %w", err)
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscription{prefix: prefix, fn: fn}
	if !s.started {
		s.pubsub = s.client.Subscribe(s.ctx, s.channel())
		s.started = true
		s.wg.Add(1)
		go s.readLoop()
	}
	s.mu.Unlock()

	for key, value := range all {
		if matchesPrefix(key, prefix) {
			fn([]byte(value), store.LastSegment(key))
		}
	}

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

func (s *Store) readLoop() {
	defer s.wg.Done()
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var c change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				log.Warn().Err(err).Msg("dropping undecodable redis change notification")
				continue
			}
			value := c.Value
			if c.Deleted {
				value = nil
			}
			s.mu.Lock()
			subs := make([]*subscription, 0, len(s.subs))
			for _, sub := range s.subs {
				if matchesPrefix(c.Key, sub.prefix) {
					subs = append(subs, sub)
				}
			}
			s.mu.Unlock()
			for _, sub := range subs {
				sub.fn(value, store.LastSegment(c.Key))
			}
		}
	}
}

// Close stops the pub/sub reader and releases the client.
func (s *Store) Close() error {
	s.cancel()
	if s.pubsub != nil {
		_ = s.pubsub.Close()
	}
	s.wg.Wait()
	return s.client.Close()
}

func matchesPrefix(key, prefix string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}
