package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agilevibe/poker/internal/models"
	"github.com/agilevibe/poker/internal/session"
)

func vote(v string) *string { return &v }

func snapWithVotes(votes map[string]*string) session.Snapshot {
	snap := session.Snapshot{}
	for id, v := range votes {
		snap.Participants = append(snap.Participants, models.Participant{
			ID:          id,
			Role:        models.RoleVoter,
			CurrentVote: v,
		})
	}
	return snap
}

func TestVoteListSkipsUncastAndObservers(t *testing.T) {
	snap := session.Snapshot{
		Participants: []models.Participant{
			{ID: "a", Role: models.RoleVoter, CurrentVote: vote("5")},
			{ID: "b", Role: models.RoleVoter, CurrentVote: nil},
			{ID: "c", Role: models.RoleObserver, CurrentVote: vote("99")},
			{ID: "d", Role: models.RoleAdmin, CurrentVote: vote("8")},
		},
	}
	assert.Equal(t, []string{"5", "8"}, VoteList(snap))
}

func TestVoteListScopeGate(t *testing.T) {
	snap := session.Snapshot{
		ActiveScope: "backend",
		Participants: []models.Participant{
			{ID: "a", Role: models.RoleVoter, Team: "backend", CurrentVote: vote("5")},
			{ID: "b", Role: models.RoleVoter, Team: "frontend", CurrentVote: vote("13")},
			{ID: "c", Role: models.RoleAdmin, CurrentVote: vote("8")},
		},
	}
	assert.Equal(t, []string{"5", "8"}, VoteList(snap))
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name  string
		votes []string
		want  string
	}{
		{"mixed numeric and special", []string{"3", "5", "8", "?"}, "5.3"},
		{"single vote", []string{"13"}, "13.0"},
		{"no numeric votes", []string{"?", "XL"}, "0"},
		{"no votes at all", nil, "0"},
		{"fractional cards", []string{"0.5", "1"}, "0.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			votes := map[string]*string{}
			for i, v := range tt.votes {
				votes[string(rune('a'+i))] = vote(v)
			}
			assert.Equal(t, tt.want, Average(snapWithVotes(votes)))
		})
	}
}

func TestHistogramOrderedByComparator(t *testing.T) {
	snap := snapWithVotes(map[string]*string{
		"a": vote("13"),
		"b": vote("5"),
		"c": vote("13"),
		"d": vote("?"),
		"e": vote("8"),
	})

	assert.Equal(t, []Bucket{
		{Value: "5", Count: 1},
		{Value: "8", Count: 1},
		{Value: "13", Count: 2},
		{Value: "?", Count: 1},
	}, Histogram(snap))
}

func TestMyVote(t *testing.T) {
	snap := session.Snapshot{
		SelfID: "me",
		// Revealed is false: a participant still sees their own card.
		Revealed: false,
		Participants: []models.Participant{
			{ID: "other", Role: models.RoleVoter, CurrentVote: vote("3")},
			{ID: "me", Role: models.RoleVoter, CurrentVote: vote("8")},
		},
	}
	got := MyVote(snap)
	assert.NotNil(t, got)
	assert.Equal(t, "8", *got)

	snap.SelfID = ""
	assert.Nil(t, MyVote(snap))
}
