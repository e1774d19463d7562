package gateway

import (
	"encoding/json"

	"github.com/agilevibe/poker/internal/aggregate"
	"github.com/agilevibe/poker/internal/models"
	"github.com/agilevibe/poker/internal/session"
)

// Intent is the envelope for messages the presentation layer sends.
type Intent struct {
	Type IntentType      `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IntentType enumerates the user intents the dispatcher understands.
type IntentType string

const (
	IntentJoin       IntentType = "join"
	IntentVote       IntentType = "vote"
	IntentReveal     IntentType = "reveal"
	IntentReset      IntentType = "reset"
	IntentSetTask    IntentType = "set_task"
	IntentAddCard    IntentType = "add_card"
	IntentRemoveCard IntentType = "remove_card"
	IntentSetScope   IntentType = "set_scope"
	IntentToggleRole IntentType = "toggle_role"
	IntentLogout     IntentType = "logout"
	IntentInsight    IntentType = "insight"
)

// JoinPayload carries the join intent fields.
type JoinPayload struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	Team string      `json:"team,omitempty"`
}

// ValuePayload carries single-value intents (vote, deck edits, scope).
type ValuePayload struct {
	Value string `json:"value"`
}

// TaskPayload carries the set_task intent fields.
type TaskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Outbound message types.
const (
	MessageSnapshot = "snapshot"
	MessageInsight  = "insight"
)

// ParticipantView is a participant as shown to the UI. Another
// participant's pending vote is masked until reveal; only the cast/not
// cast flag leaks. One's own vote is always visible.
type ParticipantView struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
	Team     string      `json:"team,omitempty"`
	HasVoted bool        `json:"has_voted"`
	Vote     *string     `json:"vote,omitempty"`
}

// SnapshotView is the full room view broadcast on every state change.
type SnapshotView struct {
	Type         string             `json:"type"`
	RoomID       string             `json:"room_id"`
	CurrentTask  *models.Task       `json:"current_task"`
	Revealed     bool               `json:"revealed"`
	Deck         []string           `json:"deck"`
	ActiveScope  string             `json:"active_scope,omitempty"`
	Participants []ParticipantView  `json:"participants"`
	Average      string             `json:"average"`
	Histogram    []aggregate.Bucket `json:"histogram"`
	MyVote       *string            `json:"my_vote,omitempty"`
	SelfID       string             `json:"self_id,omitempty"`
}

// InsightMessage carries an on-demand vote analysis back to the
// requesting connection.
type InsightMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// BuildSnapshotView projects a session snapshot into the UI shape.
func BuildSnapshotView(snap session.Snapshot) SnapshotView {
	view := SnapshotView{
		Type:        MessageSnapshot,
		RoomID:      snap.RoomID,
		CurrentTask: snap.CurrentTask,
		Revealed:    snap.Revealed,
		Deck:        snap.Deck,
		ActiveScope: snap.ActiveScope,
		Average:     aggregate.Average(snap),
		Histogram:   aggregate.Histogram(snap),
		MyVote:      aggregate.MyVote(snap),
		SelfID:      snap.SelfID,
	}
	for _, p := range snap.Participants {
		pv := ParticipantView{
			ID:       p.ID,
			Name:     p.Name,
			Role:     p.Role,
			Team:     p.Team,
			HasVoted: p.HasVoted(),
		}
		if p.CurrentVote != nil && (snap.Revealed || p.ID == snap.SelfID) {
			pv.Vote = p.CurrentVote
		}
		view.Participants = append(view.Participants, pv)
	}
	return view
}
