package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilevibe/poker/internal/models"
	"github.com/agilevibe/poker/internal/session"
)

func vote(v string) *string { return &v }

func TestBuildSnapshotViewMasksOthersUntilReveal(t *testing.T) {
	snap := session.Snapshot{
		RoomID:   "room1",
		SelfID:   "me",
		Revealed: false,
		Deck:     []string{"1", "2"},
		Participants: []models.Participant{
			{ID: "me", Name: "Sam", Role: models.RoleVoter, CurrentVote: vote("5")},
			{ID: "p2", Name: "Ana", Role: models.RoleVoter, CurrentVote: vote("8")},
			{ID: "p3", Name: "Ben", Role: models.RoleVoter},
		},
	}

	view := BuildSnapshotView(snap)
	require.Len(t, view.Participants, 3)

	// Own vote always visible.
	require.NotNil(t, view.Participants[0].Vote)
	assert.Equal(t, "5", *view.Participants[0].Vote)

	// Another participant's vote is masked, but the cast flag shows.
	assert.Nil(t, view.Participants[1].Vote)
	assert.True(t, view.Participants[1].HasVoted)
	assert.False(t, view.Participants[2].HasVoted)

	require.NotNil(t, view.MyVote)
	assert.Equal(t, "5", *view.MyVote)
}

func TestBuildSnapshotViewRevealedShowsAll(t *testing.T) {
	snap := session.Snapshot{
		SelfID:   "me",
		Revealed: true,
		Participants: []models.Participant{
			{ID: "me", Role: models.RoleVoter, CurrentVote: vote("3")},
			{ID: "p2", Role: models.RoleVoter, CurrentVote: vote("8")},
		},
	}

	view := BuildSnapshotView(snap)
	require.NotNil(t, view.Participants[1].Vote)
	assert.Equal(t, "8", *view.Participants[1].Vote)
	assert.Equal(t, "5.5", view.Average)
	assert.Equal(t, 2, len(view.Histogram))
}

func TestBuildSnapshotViewAggregates(t *testing.T) {
	snap := session.Snapshot{
		Revealed: true,
		Participants: []models.Participant{
			{ID: "a", Role: models.RoleVoter, CurrentVote: vote("13")},
			{ID: "b", Role: models.RoleVoter, CurrentVote: vote("5")},
			{ID: "c", Role: models.RoleVoter, CurrentVote: vote("13")},
		},
	}

	view := BuildSnapshotView(snap)
	assert.Equal(t, "10.3", view.Average)
	require.Len(t, view.Histogram, 2)
	assert.Equal(t, "5", view.Histogram[0].Value)
	assert.Equal(t, "13", view.Histogram[1].Value)
	assert.Equal(t, 2, view.Histogram[1].Count)
}
