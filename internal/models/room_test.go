package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCompareCards(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"numeric ascending", "5", "13", -1},
		{"numeric descending", "13", "5", 1},
		{"numeric equal", "8", "8", 0},
		{"float parse", "0.5", "1", -1},
		{"both non-numeric", "?", "XL", -1},
		{"mixed falls back to lexicographic", "?", "13", 1},
		{"mixed other side", "13", "?", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareCards(tt.a, tt.b))
		})
	}
}

func TestSortDeckStability(t *testing.T) {
	deck := []string{"5", "13", "8", "?"}
	SortDeck(deck)
	assert.Equal(t, []string{"5", "8", "13", "?"}, deck)

	// Sorting an already sorted deck is a no-op.
	SortDeck(deck)
	assert.Equal(t, []string{"5", "8", "13", "?"}, deck)
}

func TestDefaultDeck(t *testing.T) {
	deck := DefaultDeck()
	assert.Len(t, deck, 20)
	assert.Equal(t, "1", deck[0])
	assert.Equal(t, "20", deck[19])
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RoleVoter.Can().Vote)
	assert.False(t, RoleVoter.Can().EditTask)
	assert.True(t, RoleAdmin.Can().Vote)
	assert.True(t, RoleAdmin.Can().EditTask)
	assert.True(t, RoleAdmin.Can().EditDeck)
	assert.False(t, RoleObserver.Can().Vote)

	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestRoleNextCycles(t *testing.T) {
	assert.Equal(t, RoleAdmin, RoleVoter.Next())
	assert.Equal(t, RoleObserver, RoleAdmin.Next())
	assert.Equal(t, RoleVoter, RoleObserver.Next())
}

func TestParticipantLiveAt(t *testing.T) {
	now := time.Now()
	window := 30 * time.Second

	fresh := Participant{LastSeen: now.Add(-10 * time.Second)}
	assert.True(t, fresh.LiveAt(now, window))

	stale := Participant{LastSeen: now.Add(-35 * time.Second)}
	assert.False(t, stale.LiveAt(now, window))

	boundary := Participant{LastSeen: now.Add(-window)}
	assert.True(t, boundary.LiveAt(now, window))
}
