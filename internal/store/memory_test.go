package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutNotifiesPrefixSubscribers(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var gotKeys []string
	var gotValues []string
	cancel, err := s.Subscribe(StatePrefix("room1"), func(value []byte, key string) {
		gotKeys = append(gotKeys, key)
		gotValues = append(gotValues, string(value))
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Put(context.Background(), StatePath("room1", FieldRevealed), []byte("true")))
	require.NoError(t, s.Put(context.Background(), StatePath("room1", FieldDeck), []byte(`["1","2"]`)))

	// A write to another room must not leak into this subscription.
	require.NoError(t, s.Put(context.Background(), StatePath("room2", FieldRevealed), []byte("true")))

	assert.Equal(t, []string{FieldRevealed, FieldDeck}, gotKeys)
	assert.Equal(t, []string{"true", `["1","2"]`}, gotValues)
}

func TestMemoryStoreReplaysOnSubscribe(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), ParticipantPath("room1", "p1"), []byte(`{"id":"p1"}`)))

	replayed := map[string]string{}
	cancel, err := s.Subscribe(ParticipantPrefix("room1"), func(value []byte, key string) {
		replayed[key] = string(value)
	})
	require.NoError(t, err)
	defer cancel()

	assert.Equal(t, map[string]string{"p1": `{"id":"p1"}`}, replayed)
}

func TestMemoryStoreTombstoneDeliveredAsNil(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), ParticipantPath("room1", "p1"), []byte(`{"id":"p1"}`)))

	var lastValue []byte
	var calls int
	cancel, err := s.Subscribe(ParticipantPrefix("room1"), func(value []byte, key string) {
		lastValue = value
		calls++
	})
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, s.Put(context.Background(), ParticipantPath("room1", "p1"), Tombstone))

	assert.Equal(t, 2, calls)
	assert.Nil(t, lastValue)

	// The tombstoned key is not replayed to new subscribers.
	calls = 0
	cancel2, err := s.Subscribe(ParticipantPrefix("room1"), func(value []byte, key string) {
		calls++
	})
	require.NoError(t, err)
	defer cancel2()
	assert.Zero(t, calls)
}

func TestMemoryStoreCancelStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var calls int
	cancel, err := s.Subscribe(StatePrefix("room1"), func(value []byte, key string) {
		calls++
	})
	require.NoError(t, err)

	cancel()
	require.NoError(t, s.Put(context.Background(), StatePath("room1", FieldRevealed), []byte("true")))
	assert.Zero(t, calls)
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "revealed", LastSegment("rooms/r/state/revealed"))
	assert.Equal(t, "plain", LastSegment("plain"))
}
