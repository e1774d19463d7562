package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/agilevibe/poker/internal/dispatch"
	"github.com/agilevibe/poker/internal/gateway"
	"github.com/agilevibe/poker/internal/identity"
	"github.com/agilevibe/poker/internal/insight"
	"github.com/agilevibe/poker/internal/session"
	"github.com/agilevibe/poker/internal/store"
	"github.com/agilevibe/poker/internal/store/natsstore"
	"github.com/agilevibe/poker/internal/store/redisstore"
)

// Services holds every wired component of the replica.
type Services struct {
	Store      store.ReplicatedStore
	State      *session.State
	Dispatcher *dispatch.Dispatcher
	Heartbeat  *session.Heartbeat
	Gateway    *gateway.Service
	Handler    *gateway.Handler

	cancelSubscriptions store.CancelFunc
}

// setupServices builds the store, session mirror, dispatcher, presence
// heartbeat and gateway, and republishes any persisted identity.
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	st, err := setupStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	state := session.NewState(cfg.RoomID, clock, cfg.LivenessWindow())

	cancel, err := session.NewReconciler(state).Attach(st)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("attach reconciler: %w", err)
	}

	idStore, err := identity.NewFile(cfg.IdentityDir)
	if err != nil {
		// Identity persistence is a convenience; run without it.
		log.Warn().Err(err).Msg("identity persistence disabled")
		idStore = nil
	}

	var summarizer dispatch.Summarizer
	if cfg.Insight.Enabled() {
		summarizer = insight.NewClient(cfg.Insight)
	} else {
		log.Info().Msg("insight service not configured")
	}

	var dispatcher *dispatch.Dispatcher
	if idStore != nil {
		dispatcher = dispatch.New(st, state, clock, idStore, summarizer)
	} else {
		dispatcher = dispatch.New(st, state, clock, nil, summarizer)
	}

	if idStore != nil {
		if saved, ok := idStore.Load(); ok {
			if err := dispatcher.Rejoin(ctx, saved); err != nil {
				log.Warn().Err(err).Msg("failed to republish saved identity")
			} else {
				log.Info().Str("participant_id", saved.ID).Str("name", saved.Name).Msg("rejoined with saved identity")
			}
		}
	}

	svc := gateway.NewService(state, dispatcher, gateway.DefaultConnectionConfig())

	return &Services{
		Store:               st,
		State:               state,
		Dispatcher:          dispatcher,
		Heartbeat:           session.NewHeartbeat(st, state, clock, cfg.HeartbeatInterval()),
		Gateway:             svc,
		Handler:             gateway.NewHandler(svc),
		cancelSubscriptions: cancel,
	}, nil
}

func setupStore(ctx context.Context, cfg *Config) (store.ReplicatedStore, error) {
	switch cfg.Backend {
	case BackendRedis:
		redisCfg := redisstore.DefaultConfig()
		redisCfg.Addr = cfg.Redis.Addr
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		st, err := redisstore.New(ctx, redisCfg)
		if err != nil {
			return nil, fmt.Errorf("setup redis store: %w", err)
		}
		log.Info().Str("addr", redisCfg.Addr).Msg("using redis replication backend")
		return st, nil

	case BackendNATS:
		natsCfg := natsstore.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Bucket = cfg.NATS.Bucket
		st, err := natsstore.New(ctx, natsCfg)
		if err != nil {
			return nil, fmt.Errorf("setup nats store: %w", err)
		}
		log.Info().Str("url", natsCfg.URL).Msg("using nats replication backend")
		return st, nil

	default:
		// No replication substrate: degraded single-user mode. The UI
		// still renders and every local operation works.
		log.Warn().Msg("no replication backend configured, running single-user")
		return store.NewMemoryStore(), nil
	}
}

// shutdown tears everything down: the heartbeat is already stopped by
// context cancellation, so only the subscriptions and the backend remain.
func (s *Services) shutdown(ctx context.Context) {
	// Best-effort departure signal; liveness pruning covers the case
	// where it never lands. The persisted identity survives for the
	// next startup.
	if err := s.Dispatcher.Depart(ctx); err != nil {
		log.Warn().Err(err).Msg("departure signal failed")
	}
	s.cancelSubscriptions()
	if err := s.Store.Close(); err != nil {
		log.Warn().Err(err).Msg("store close failed")
	}
}
