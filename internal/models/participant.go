package models

import (
	"time"
)

// Role defines the capability class of a participant.
type Role string

const (
	RoleVoter    Role = "voter"
	RoleAdmin    Role = "admin"
	RoleObserver Role = "observer"
)

// Permissions describes what a role is allowed to do. The table below is
// the single source of truth consulted by the command dispatcher; role
// checks are never scattered as ad-hoc conditionals.
type Permissions struct {
	Vote     bool
	EditTask bool
	EditDeck bool
}

var rolePermissions = map[Role]Permissions{
	RoleVoter:    {Vote: true},
	RoleAdmin:    {Vote: true, EditTask: true, EditDeck: true},
	RoleObserver: {},
}

// Can returns the permission set for a role. Unknown roles get no
// permissions.
func (r Role) Can() Permissions {
	return rolePermissions[r]
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Next cycles voter -> admin -> observer -> voter. Used by the role
// toggle intent.
func (r Role) Next() Role {
	switch r {
	case RoleVoter:
		return RoleAdmin
	case RoleAdmin:
		return RoleObserver
	default:
		return RoleVoter
	}
}

// Participant is one member of a room. A participant's record is written
// in full on every update; the owning replica is the usual writer, with
// the exception of round resets which clear CurrentVote on behalf of
// everyone.
type Participant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Team        string    `json:"team,omitempty"`
	CurrentVote *string   `json:"current_vote"`
	LastSeen    time.Time `json:"last_seen"`
	JoinedAt    time.Time `json:"joined_at"`
}

// LiveAt reports whether the participant's heartbeat is fresh enough, at
// the given instant, to treat the record as present. A lapsed record is
// handled exactly like a tombstone even if the backend never deletes it.
func (p Participant) LiveAt(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastSeen) <= window
}

// HasVoted reports whether the participant has a pending vote.
func (p Participant) HasVoted() bool {
	return p.CurrentVote != nil
}
