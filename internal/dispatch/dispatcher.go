// Package dispatch translates user intents into replicated-store writes
// plus optimistic local mutations. Preconditions that fail are silently
// ignored; the backend echo of every write flows back through the
// reconciler and overwrites the optimistic state, so local and remote
// views converge to the same value.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/agilevibe/poker/internal/aggregate"
	"github.com/agilevibe/poker/internal/models"
	"github.com/agilevibe/poker/internal/session"
	"github.com/agilevibe/poker/internal/store"
)

// IdentityStore persists the local participant identity across restarts.
type IdentityStore interface {
	Save(p models.Participant) error
	Clear() error
}

// Summarizer is the external insight boundary. Implementations must
// return a usable string even on failure.
type Summarizer interface {
	Summarize(ctx context.Context, taskTitle, taskDescription string, votes []string) string
}

// Dispatcher issues room mutations on behalf of the local participant.
// Multi-field updates are ordered sequences of independent single-field
// writes; the reconciler on every replica tolerates observing them in
// any interleaving.
type Dispatcher struct {
	store    store.ReplicatedStore
	state    *session.State
	clock    clockwork.Clock
	identity IdentityStore
	insight  Summarizer

	mu            sync.Mutex
	cachedInsight string
}

// New creates a dispatcher. identity and insight may be nil, in which
// case identity persistence and vote analysis are disabled.
func New(st store.ReplicatedStore, state *session.State, clock clockwork.Clock, identity IdentityStore, insight Summarizer) *Dispatcher {
	return &Dispatcher{
		store:    st,
		state:    state,
		clock:    clock,
		identity: identity,
		insight:  insight,
	}
}

func (d *Dispatcher) putParticipant(ctx context.Context, p models.Participant) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal participant: %w", err)
	}
	return d.store.Put(ctx, store.ParticipantPath(d.state.RoomID(), p.ID), payload)
}

func (d *Dispatcher) putField(ctx context.Context, field string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", field, err)
	}
	d.state.ApplyFieldChange(field, payload)
	return d.store.Put(ctx, store.StatePath(d.state.RoomID(), field), payload)
}

// Join creates the local participant and publishes its record. Joining
// twice is a no-op returning the existing identity.
func (d *Dispatcher) Join(ctx context.Context, name string, role models.Role, team string) (models.Participant, error) {
	if self, ok := d.state.Self(); ok {
		return self, nil
	}
	if !role.Valid() {
		role = models.RoleVoter
	}
	if role == models.RoleAdmin {
		team = ""
	}

	now := d.clock.Now()
	p := models.Participant{
		ID:       uuid.NewString(),
		Name:     name,
		Role:     role,
		Team:     team,
		LastSeen: now,
		JoinedAt: now,
	}

	d.state.SetSelf(p)
	d.saveIdentity(p)
	if err := d.putParticipant(ctx, p); err != nil {
		return p, fmt.Errorf("publish join: %w", err)
	}
	return p, nil
}

// Rejoin republishes a previously persisted identity on startup.
func (d *Dispatcher) Rejoin(ctx context.Context, p models.Participant) error {
	p.LastSeen = d.clock.Now()
	d.state.SetSelf(p)
	if err := d.putParticipant(ctx, p); err != nil {
		return fmt.Errorf("republish identity: %w", err)
	}
	return nil
}

// Vote toggles the local participant's card: picking the current vote
// again clears it, any other deck value replaces it. Ignored while
// revealed, for non-voting roles, for values outside the deck, and when
// a scope gate excludes the participant.
func (d *Dispatcher) Vote(ctx context.Context, value string) error {
	self, ok := d.state.Self()
	if !ok {
		return nil
	}
	snap := d.state.Snapshot()
	if snap.Revealed || !self.Role.Can().Vote || !models.DeckContains(snap.Deck, value) {
		return nil
	}
	if snap.ActiveScope != "" && self.Role != models.RoleAdmin && self.Team != snap.ActiveScope {
		return nil
	}

	if self.CurrentVote != nil && *self.CurrentVote == value {
		self.CurrentVote = nil
	} else {
		v := value
		self.CurrentVote = &v
	}
	self.LastSeen = d.clock.Now()

	d.state.SetSelf(self)
	if err := d.putParticipant(ctx, self); err != nil {
		return fmt.Errorf("publish vote: %w", err)
	}
	return nil
}

// Reveal makes all votes visible. Ignored when nothing has been cast or
// the round is already revealed.
func (d *Dispatcher) Reveal(ctx context.Context) error {
	snap := d.state.Snapshot()
	if snap.Revealed {
		return nil
	}
	hasVote := false
	for _, p := range snap.Participants {
		if p.HasVoted() {
			hasVote = true
			break
		}
	}
	if !hasVote {
		return nil
	}
	return d.putField(ctx, store.FieldRevealed, true)
}

// Reset clears every known participant's vote, hides results, and drops
// any cached insight. It is idempotent: running it twice leaves the same
// state as running it once.
func (d *Dispatcher) Reset(ctx context.Context) error {
	d.clearInsight()

	snap := d.state.Snapshot()
	for _, p := range snap.Participants {
		if p.CurrentVote == nil {
			continue
		}
		p.CurrentVote = nil
		d.state.ApplyParticipantChange(p.ID, mustMarshal(p))
		if p.ID == snap.SelfID {
			d.state.SetSelf(p)
		}
		if err := d.putParticipant(ctx, p); err != nil {
			log.Warn().Err(err).Str("participant_id", p.ID).Msg("vote clear write failed")
		}
	}

	return d.putField(ctx, store.FieldRevealed, false)
}

// SetTask replaces the current task with a freshly identified one. The
// round is reset first, so the task change and vote clearing reach peers
// as an ordered sequence of single-field writes.
func (d *Dispatcher) SetTask(ctx context.Context, title, description string) error {
	self, ok := d.state.Self()
	if !ok || !self.Role.Can().EditTask {
		return nil
	}
	if err := d.Reset(ctx); err != nil {
		return err
	}
	return d.putField(ctx, store.FieldCurrentTask, models.NewTask(title, description))
}

// AddCard inserts a value into the deck, keeping it sorted by the card
// comparator. Duplicates and empty values are no-ops.
func (d *Dispatcher) AddCard(ctx context.Context, value string) error {
	self, ok := d.state.Self()
	if !ok || !self.Role.Can().EditDeck || value == "" {
		return nil
	}
	snap := d.state.Snapshot()
	if models.DeckContains(snap.Deck, value) {
		return nil
	}
	deck := append(append([]string(nil), snap.Deck...), value)
	models.SortDeck(deck)
	return d.putField(ctx, store.FieldDeck, deck)
}

// RemoveCard deletes a value from the deck. Removing the last card is
// refused: an empty deck would leave voters with nothing to cast.
func (d *Dispatcher) RemoveCard(ctx context.Context, value string) error {
	self, ok := d.state.Self()
	if !ok || !self.Role.Can().EditDeck {
		return nil
	}
	snap := d.state.Snapshot()
	deck := make([]string, 0, len(snap.Deck))
	for _, v := range snap.Deck {
		if v != value {
			deck = append(deck, v)
		}
	}
	if len(deck) == len(snap.Deck) || len(deck) == 0 {
		return nil
	}
	models.SortDeck(deck)
	return d.putField(ctx, store.FieldDeck, deck)
}

// SetScope gates voting to one team; an empty scope lifts the gate.
func (d *Dispatcher) SetScope(ctx context.Context, scope string) error {
	self, ok := d.state.Self()
	if !ok || !self.Role.Can().EditTask {
		return nil
	}
	return d.putField(ctx, store.FieldActiveScope, scope)
}

// ToggleRole cycles the local participant through voter, admin and
// observer, republishing the record.
func (d *Dispatcher) ToggleRole(ctx context.Context) error {
	self, ok := d.state.Self()
	if !ok {
		return nil
	}
	self.Role = self.Role.Next()
	if self.Role == models.RoleAdmin {
		self.Team = ""
	}
	self.LastSeen = d.clock.Now()

	d.state.SetSelf(self)
	d.saveIdentity(self)
	if err := d.putParticipant(ctx, self); err != nil {
		return fmt.Errorf("publish role change: %w", err)
	}
	return nil
}

// Logout tombstones the local record and forgets the identity. The
// tombstone is best effort; liveness pruning on every replica is the
// authoritative departure mechanism.
func (d *Dispatcher) Logout(ctx context.Context) error {
	self, ok := d.state.Self()
	if !ok {
		return nil
	}

	if err := d.store.Put(ctx, store.ParticipantPath(d.state.RoomID(), self.ID), store.Tombstone); err != nil {
		log.Warn().Err(err).Str("participant_id", self.ID).Msg("logout tombstone write failed")
	}
	if d.identity != nil {
		if err := d.identity.Clear(); err != nil {
			log.Warn().Err(err).Msg("clear persisted identity failed")
		}
	}
	d.state.ClearSelf()
	return nil
}

// Depart tombstones the local record without forgetting the persisted
// identity. Used on process teardown, where the identity must survive
// for the next startup's republish.
func (d *Dispatcher) Depart(ctx context.Context) error {
	self, ok := d.state.Self()
	if !ok {
		return nil
	}
	if err := d.store.Put(ctx, store.ParticipantPath(d.state.RoomID(), self.ID), store.Tombstone); err != nil {
		return fmt.Errorf("departure tombstone: %w", err)
	}
	return nil
}

// Insight returns an analysis of the current votes, caching the result
// until the next reset or task change. It is only ever invoked on
// explicit user action.
func (d *Dispatcher) Insight(ctx context.Context) string {
	if d.insight == nil {
		return ""
	}

	d.mu.Lock()
	if d.cachedInsight != "" {
		cached := d.cachedInsight
		d.mu.Unlock()
		return cached
	}
	d.mu.Unlock()

	snap := d.state.Snapshot()
	var title, description string
	if snap.CurrentTask != nil {
		title = snap.CurrentTask.Title
		description = snap.CurrentTask.Description
	}
	text := d.insight.Summarize(ctx, title, description, aggregate.VoteList(snap))

	d.mu.Lock()
	d.cachedInsight = text
	d.mu.Unlock()
	return text
}

func (d *Dispatcher) clearInsight() {
	d.mu.Lock()
	d.cachedInsight = ""
	d.mu.Unlock()
}

func (d *Dispatcher) saveIdentity(p models.Participant) {
	if d.identity == nil {
		return
	}
	if err := d.identity.Save(p); err != nil {
		log.Warn().Err(err).Msg("persist identity failed")
	}
}

func mustMarshal(v interface{}) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
