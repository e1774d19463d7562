package session

import (
	"fmt"

	"github.com/agilevibe/poker/internal/store"
)

// Reconciler wires a State to the replicated store's change feed. It is
// the only path by which remote notifications reach the mirror, and it
// never lets a bad payload escape the subscription callback.
type Reconciler struct {
	state *State
}

// NewReconciler creates a reconciler for state.
func NewReconciler(state *State) *Reconciler {
	return &Reconciler{state: state}
}

// Attach subscribes to the room's state fields and participant set.
// Both subscriptions replay last-known values immediately, so the mirror
// converges without waiting for fresh writes.
func (r *Reconciler) Attach(st store.ReplicatedStore) (store.CancelFunc, error) {
	roomID := r.state.RoomID()

	cancelState, err := st.Subscribe(store.StatePrefix(roomID), r.OnFieldChange)
	if err != nil {
		return nil, fmt.Errorf("subscribe room state: %w", err)
	}

	cancelParticipants, err := st.Subscribe(store.ParticipantPrefix(roomID), r.OnParticipantChange)
	if err != nil {
		cancelState()
		return nil, fmt.Errorf("subscribe participants: %w", err)
	}

	return func() {
		cancelState()
		cancelParticipants()
	}, nil
}

// OnFieldChange handles a room-level field notification.
func (r *Reconciler) OnFieldChange(value []byte, key string) {
	r.state.ApplyFieldChange(key, value)
}

// OnParticipantChange handles a participant record notification.
func (r *Reconciler) OnParticipantChange(value []byte, key string) {
	r.state.ApplyParticipantChange(key, value)
}
