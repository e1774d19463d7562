package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/agilevibe/poker/internal/store"
)

// DefaultHeartbeatInterval is how often the local record's LastSeen is
// republished. It must be comfortably inside the liveness window.
const DefaultHeartbeatInterval = 7 * time.Second

// Heartbeat keeps this replica's participant record from being pruned by
// other replicas. It republishes the full local record with a refreshed
// LastSeen on a fixed interval while the participant is joined.
type Heartbeat struct {
	store    store.ReplicatedStore
	state    *State
	clock    clockwork.Clock
	interval time.Duration
}

// NewHeartbeat creates a heartbeat for the local participant of state.
func NewHeartbeat(st store.ReplicatedStore, state *State, clock clockwork.Clock, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{
		store:    st,
		state:    state,
		clock:    clock,
		interval: interval,
	}
}

// Run beats until ctx is cancelled. It beats once immediately so peers
// learn about us without waiting out the first interval.
func (h *Heartbeat) Run(ctx context.Context) {
	h.Beat(ctx)

	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			h.Beat(ctx)
		}
	}
}

// Beat republishes the local record with LastSeen set to now. A failed
// write is logged and dropped; the next tick retries and the liveness
// window tolerates several missed beats.
func (h *Heartbeat) Beat(ctx context.Context) {
	self, ok := h.state.Self()
	if !ok {
		return
	}

	self.LastSeen = h.clock.Now()
	h.state.SetSelf(self)

	payload, err := json.Marshal(self)
	if err != nil {
		log.Error().Err(err).Msg("marshal heartbeat record")
		return
	}
	path := store.ParticipantPath(h.state.RoomID(), self.ID)
	if err := h.store.Put(ctx, path, payload); err != nil {
		log.Warn().Err(err).Str("participant_id", self.ID).Msg("heartbeat write failed")
	}
}
