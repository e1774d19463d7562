package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agilevibe/poker/internal/models"
)

func TestSaveLoadClear(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	_, ok := f.Load()
	assert.False(t, ok)

	p := models.Participant{ID: "p1", Name: "Ana", Role: models.RoleAdmin, Team: "backend"}
	require.NoError(t, f.Save(p))

	got, ok := f.Load()
	require.True(t, ok)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, "backend", got.Team)

	require.NoError(t, f.Clear())
	_, ok = f.Load()
	assert.False(t, ok)

	// Clearing twice is fine.
	require.NoError(t, f.Clear())
}

func TestLoadIgnoresGarbage(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "identity.json"), []byte("{not json"), 0o600))
	_, ok := f.Load()
	assert.False(t, ok)
}

func TestTransientFieldsNotPersisted(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	v := "8"
	require.NoError(t, f.Save(models.Participant{ID: "p1", Name: "Ana", Role: models.RoleVoter, CurrentVote: &v}))

	got, ok := f.Load()
	require.True(t, ok)
	assert.Nil(t, got.CurrentVote)
	assert.True(t, got.LastSeen.IsZero())
}
