package appdata

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStateWiresAllComponents(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "position_cache.db3")
	state, err := NewState(cachePath)
	require.NoError(t, err)
	defer state.Close()

	require.NotNil(t, state.Registry)
	require.NotNil(t, state.DBCache)
	require.NotNil(t, state.LineCache)
	require.NotNil(t, state.Engine)
	require.NotNil(t, state.ResultCache)
	require.NotNil(t, state.PuzzleCache)
}

func TestPositionExistsHintRoundTrips(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "position_cache.db3")
	state, err := NewState(cachePath)
	require.NoError(t, err)
	defer state.Close()

	_, ok := state.PositionExistsHint("startpos", "/tmp/games.db3")
	require.False(t, ok)

	state.SetPositionExistsHint("startpos", "/tmp/games.db3", true)
	state.LineCache.Wait()

	exists, ok := state.PositionExistsHint("startpos", "/tmp/games.db3")
	require.True(t, ok)
	require.True(t, exists)
}
