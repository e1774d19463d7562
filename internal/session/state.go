// Package session keeps the local mirror of a room consistent with the
// replicated store. The state is read-mostly: remote notifications and
// optimistic local mutations both funnel through the same apply methods,
// so a backend echo of our own write is a pure overwrite and cannot
// diverge from the authoritative value.
package session

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/agilevibe/poker/internal/models"
	"github.com/agilevibe/poker/internal/store"
)

// DefaultLivenessWindow is how long a participant survives without a
// heartbeat refresh before every reader treats the record as departed.
const DefaultLivenessWindow = 35 * time.Second

// Snapshot is an immutable copy of the room at one instant, already
// filtered by liveness. Derived views are recomputed from whatever the
// snapshot holds; partial application of a multi-field update only ever
// produces a momentarily stale snapshot, never an invalid one.
type Snapshot struct {
	RoomID       string               `json:"room_id"`
	CurrentTask  *models.Task         `json:"current_task"`
	Revealed     bool                 `json:"revealed"`
	Deck         []string             `json:"deck"`
	ActiveScope  string               `json:"active_scope,omitempty"`
	Participants []models.Participant `json:"participants"`
	SelfID       string               `json:"self_id,omitempty"`
}

// State is the in-memory projection of one room.
type State struct {
	mu             sync.RWMutex
	clock          clockwork.Clock
	livenessWindow time.Duration
	roomID         string

	room         models.RoomState
	participants map[string]models.Participant

	// Last-known local participant record. Preserved when a remote
	// snapshot omits or tombstones our own id: self visibility must
	// never depend on round-trip propagation delay.
	selfID string
	self   *models.Participant

	onChange func()
}

// NewState creates a state mirror for roomID with the stock deck.
func NewState(roomID string, clock clockwork.Clock, livenessWindow time.Duration) *State {
	if livenessWindow <= 0 {
		livenessWindow = DefaultLivenessWindow
	}
	return &State{
		clock:          clock,
		livenessWindow: livenessWindow,
		roomID:         roomID,
		room: models.RoomState{
			Deck: models.DefaultDeck(),
		},
		participants: make(map[string]models.Participant),
	}
}

// RoomID returns the room this state mirrors.
func (s *State) RoomID() string {
	return s.roomID
}

// LivenessWindow returns the configured heartbeat staleness bound.
func (s *State) LivenessWindow() time.Duration {
	return s.livenessWindow
}

// SetOnChange registers a callback invoked after every applied change.
// The gateway uses it to broadcast fresh snapshots.
func (s *State) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *State) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SetSelf installs or updates the local participant record and mirrors
// it into the participant set.
func (s *State) SetSelf(p models.Participant) {
	s.mu.Lock()
	s.selfID = p.ID
	cp := p
	s.self = &cp
	s.participants[p.ID] = p
	s.mu.Unlock()
	s.notify()
}

// Self returns the local participant record, if joined.
func (s *State) Self() (models.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.self == nil {
		return models.Participant{}, false
	}
	return *s.self, true
}

// ClearSelf forgets the local identity after logout. The participant
// entry goes with it so the local view does not show a ghost.
func (s *State) ClearSelf() {
	s.mu.Lock()
	if s.selfID != "" {
		delete(s.participants, s.selfID)
	}
	s.selfID = ""
	s.self = nil
	s.mu.Unlock()
	s.notify()
}

// Participant looks up one record by id, without liveness filtering.
func (s *State) Participant(id string) (models.Participant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	return p, ok
}

// Snapshot copies the current room view, excluding participants whose
// heartbeat lapsed. The local participant is always included while
// joined, regardless of what replication has delivered so far.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	participants := make([]models.Participant, 0, len(s.participants))
	for id, p := range s.participants {
		if id != s.selfID && !p.LiveAt(now, s.livenessWindow) {
			continue
		}
		participants = append(participants, p)
	}
	if s.self != nil {
		if _, present := s.participants[s.selfID]; !present {
			participants = append(participants, *s.self)
		}
	}

	sort.Slice(participants, func(i, j int) bool {
		if !participants[i].JoinedAt.Equal(participants[j].JoinedAt) {
			return participants[i].JoinedAt.Before(participants[j].JoinedAt)
		}
		return participants[i].ID < participants[j].ID
	})

	snap := Snapshot{
		RoomID:       s.roomID,
		Revealed:     s.room.Revealed,
		Deck:         append([]string(nil), s.room.Deck...),
		ActiveScope:  s.room.ActiveScope,
		Participants: participants,
		SelfID:       s.selfID,
	}
	if s.room.CurrentTask != nil {
		task := *s.room.CurrentTask
		snap.CurrentTask = &task
	}
	return snap
}

// ApplyFieldChange merges one room-level field notification. Fields are
// independent: whichever write is delivered last for a field wins, and
// no relative order across fields is assumed. Malformed payloads are
// dropped with the prior value retained.
func (s *State) ApplyFieldChange(field string, raw []byte) {
	s.mu.Lock()
	applied := s.applyFieldLocked(field, raw)
	s.mu.Unlock()
	if applied {
		s.notify()
	}
}

func (s *State) applyFieldLocked(field string, raw []byte) bool {
	switch field {
	case store.FieldRevealed:
		var revealed bool
		if err := json.Unmarshal(raw, &revealed); err != nil {
			log.Warn().Err(err).Str("field", field).Msg("dropping undecodable revealed payload")
			return false
		}
		s.room.Revealed = revealed

	case store.FieldCurrentTask:
		if raw == nil {
			s.room.CurrentTask = nil
			return true
		}
		var task models.Task
		if err := json.Unmarshal(raw, &task); err != nil {
			log.Warn().Err(err).Str("field", field).Msg("dropping undecodable task payload")
			return false
		}
		s.room.CurrentTask = &task

	case store.FieldDeck:
		var deck []string
		if err := json.Unmarshal(raw, &deck); err != nil {
			log.Warn().Err(err).Str("field", field).Msg("dropping undecodable deck payload")
			return false
		}
		if len(deck) == 0 {
			log.Warn().Str("field", field).Msg("dropping empty deck payload")
			return false
		}
		s.room.Deck = deck

	case store.FieldActiveScope:
		var scope string
		if err := json.Unmarshal(raw, &scope); err != nil {
			log.Warn().Err(err).Str("field", field).Msg("dropping undecodable scope payload")
			return false
		}
		s.room.ActiveScope = scope

	default:
		log.Debug().Str("field", field).Msg("ignoring unknown room field")
		return false
	}
	return true
}

// ApplyParticipantChange merges one participant notification. A nil
// payload is a tombstone. A record whose heartbeat already lapsed is
// treated identically to a tombstone, bridging the gap between
// TTL-expiry intent and actual deletion propagation. Records are
// overwritten in full; the owning replica is the only writer of its own
// record outside of round resets.
func (s *State) ApplyParticipantChange(id string, raw []byte) {
	s.mu.Lock()
	applied := s.applyParticipantLocked(id, raw)
	s.mu.Unlock()
	if applied {
		s.notify()
	}
}

func (s *State) applyParticipantLocked(id string, raw []byte) bool {
	if raw == nil {
		if id == s.selfID && s.self != nil {
			// A peer that has not learned of us yet may broadcast our
			// absence. Keep the last-known local record; the heartbeat
			// republishes it.
			s.participants[id] = *s.self
			return true
		}
		if _, ok := s.participants[id]; !ok {
			return false
		}
		delete(s.participants, id)
		return true
	}

	var p models.Participant
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn().Err(err).Str("participant_id", id).Msg("dropping undecodable participant payload")
		return false
	}
	if p.ID == "" {
		p.ID = id
	}

	if id != s.selfID && !p.LiveAt(s.clock.Now(), s.livenessWindow) {
		if _, ok := s.participants[id]; !ok {
			return false
		}
		delete(s.participants, id)
		return true
	}

	s.participants[id] = p
	if id == s.selfID {
		cp := p
		s.self = &cp
	}
	return true
}
