package models

import (
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// Task is the item currently being estimated. The ID is regenerated on
// every task change so replicas can tell "same task edited" apart from
// "new task".
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewTask creates a task with a fresh id.
func NewTask(title, description string) Task {
	return Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
	}
}

// RoomState holds the room-level fields. Each field is replicated
// independently (per-field last-write-wins); the struct only groups the
// local mirror.
type RoomState struct {
	CurrentTask *Task    `json:"current_task"`
	Revealed    bool     `json:"revealed"`
	Deck        []string `json:"deck"`
	ActiveScope string   `json:"active_scope,omitempty"`
}

// DefaultDeck returns the stock deck of cards "1" through "20".
func DefaultDeck() []string {
	deck := make([]string, 20)
	for i := range deck {
		deck[i] = strconv.Itoa(i + 1)
	}
	return deck
}

// CompareCards orders two card values: numerically when both parse as
// floats, lexicographically otherwise. This is the one comparator used
// for deck ordering and histogram ordering.
func CompareCards(a, b string) int {
	na, errA := strconv.ParseFloat(a, 64)
	nb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortDeck sorts card values in place using CompareCards.
func SortDeck(deck []string) {
	sort.SliceStable(deck, func(i, j int) bool {
		return CompareCards(deck[i], deck[j]) < 0
	})
}

// DeckContains reports whether value is a card in deck.
func DeckContains(deck []string, value string) bool {
	for _, v := range deck {
		if v == value {
			return true
		}
	}
	return false
}
