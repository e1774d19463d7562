// Package store defines the replicated key-value contract the session
// layer runs on, plus an in-process implementation. Backends replicate
// writes to every subscribed replica with per-key last-write-wins
// semantics; no ordering is guaranteed across distinct keys.
package store

import (
	"context"
	"strings"
)

// Tombstone is the value written to delete a key. Subscribers observe
// deletions as a nil value.
var Tombstone []byte = nil

// ChangeFunc receives the new value for a key under the subscribed
// prefix. value is nil when the key was tombstoned. key is the final
// path segment (field name or participant id).
type ChangeFunc func(value []byte, key string)

// CancelFunc tears down a subscription.
type CancelFunc func()

// ReplicatedStore is the pluggable replication substrate. Put is
// fire-and-forget from the caller's perspective: the dispatcher applies
// optimistic local state without waiting for the echo. Subscribe must
// replay the last-known value of every key under the prefix immediately,
// then deliver every subsequent change, including tombstones.
type ReplicatedStore interface {
	Put(ctx context.Context, path []string, value []byte) error
	Subscribe(path []string, fn ChangeFunc) (CancelFunc, error)
	Close() error
}

// Room path layout shared by every backend.
const (
	segmentRooms        = "rooms"
	segmentState        = "state"
	segmentParticipants = "participants"

	FieldCurrentTask = "current_task"
	FieldRevealed    = "revealed"
	FieldDeck        = "deck"
	FieldActiveScope = "active_scope"
)

// StatePath addresses a room-level field.
func StatePath(roomID, field string) []string {
	return []string{segmentRooms, roomID, segmentState, field}
}

// StatePrefix addresses all room-level fields.
func StatePrefix(roomID string) []string {
	return []string{segmentRooms, roomID, segmentState}
}

// ParticipantPath addresses one participant record.
func ParticipantPath(roomID, participantID string) []string {
	return []string{segmentRooms, roomID, segmentParticipants, participantID}
}

// ParticipantPrefix addresses the whole participant set.
func ParticipantPrefix(roomID string) []string {
	return []string{segmentRooms, roomID, segmentParticipants}
}

// JoinPath flattens a path to the canonical slash-separated key.
func JoinPath(path []string) string {
	return strings.Join(path, "/")
}

// LastSegment returns the final segment of a flattened key.
func LastSegment(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
