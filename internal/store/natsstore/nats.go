// Package natsstore implements the replicated store contract on a NATS
// JetStream key-value bucket. KV watchers give replay-then-updates
// delivery and surface deletes as explicit operations, which maps
// directly onto the subscribe contract.
package natsstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/agilevibe/poker/internal/store"
)

// Config holds connection settings for the NATS backend.
type Config struct {
	URL           string
	Bucket        string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns settings for a local NATS server.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Bucket:        "agilevibe",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Store is a JetStream KV-backed ReplicatedStore.
type Store struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	ctx    context.Context
	cancel context.CancelFunc
}

// New connects to NATS and creates the bucket if it does not exist.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "planning poker room replication",
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure KV bucket %s: %w", cfg.Bucket, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	return &Store{nc: nc, kv: kv, ctx: runCtx, cancel: cancel}, nil
}

// kvKey converts a slash path to the dot-separated form KV wildcards
// understand. Path segments never contain dots (room ids and participant
// ids are UUIDs or short slugs).
func kvKey(path []string) string {
	return strings.Join(path, ".")
}

// Put writes value at path; nil deletes the key.
func (s *Store) Put(ctx context.Context, path []string, value []byte) error {
	key := kvKey(path)
	if value == nil {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("kv delete %s: %w", key, err)
		}
		return nil
	}
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

// Subscribe starts a KV watcher on path.> and pumps entries to fn.
// The watcher replays current values before streaming updates; deletes
// and purges are delivered as nil values.
func (s *Store) Subscribe(path []string, fn store.ChangeFunc) (store.CancelFunc, error) {
	pattern := kvKey(path) + ".>"

	watcher, err := s.kv.Watch(s.ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("kv watch %s: %w", pattern, err)
	}

	watchCtx, cancel := context.WithCancel(s.ctx)
	go func() {
		defer func() { _ = watcher.Stop() }()
		for {
			select {
			case <-watchCtx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				// A nil entry marks the end of the initial replay.
				if entry == nil {
					continue
				}
				segments := strings.Split(entry.Key(), ".")
				key := segments[len(segments)-1]
				switch entry.Operation() {
				case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
					fn(nil, key)
				default:
					fn(entry.Value(), key)
				}
			}
		}
	}()

	return func() { cancel() }, nil
}

// Close stops all watchers and drains the connection.
func (s *Store) Close() error {
	s.cancel()
	s.nc.Close()
	return nil
}
