package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dgrives/votekicker/pkg/voiceban"
	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func writeVoiceBanFile(t *testing.T, dir string, ids steamid.Collection) {
	t.Helper()

	vbFile, errOpen := os.Create(filepath.Join(dir, voiceBanFileName))
	require.NoError(t, errOpen)

	require.NoError(t, voiceban.Write(vbFile, ids))
	require.NoError(t, vbFile.Close())
}

func TestVoiceBanStateDiff(t *testing.T) {
	t.Parallel()

	var (
		dir  = t.TempDir()
		sidA = steamid.New("[U:1:1]")
		sidB = steamid.New("[U:1:2]")
		sidC = steamid.New("[U:1:3]")
	)

	writeVoiceBanFile(t, dir, steamid.Collection{sidA, sidB})

	state := newVoiceBanState(dir)

	first, errFirst := state.Load()
	require.NoError(t, errFirst)
	require.ElementsMatch(t, steamid.Collection{sidA, sidB}, first.Added)
	require.Empty(t, first.Removed)
	require.True(t, state.isMuted(sidA))
	require.False(t, state.isMuted(sidC))

	// Identical reload produces an empty delta.
	same, errSame := state.Load()
	require.NoError(t, errSame)
	require.True(t, same.Empty())

	writeVoiceBanFile(t, dir, steamid.Collection{sidB, sidC})

	delta, errDelta := state.Load()
	require.NoError(t, errDelta)
	require.ElementsMatch(t, steamid.Collection{sidC}, delta.Added)
	require.ElementsMatch(t, steamid.Collection{sidA}, delta.Removed)
	require.False(t, state.isMuted(sidA))
	require.True(t, state.isMuted(sidC))
}

func TestVoiceBanStateMalformed(t *testing.T) {
	t.Parallel()

	var (
		dir  = t.TempDir()
		sidA = steamid.New("[U:1:1]")
	)

	writeVoiceBanFile(t, dir, steamid.Collection{sidA})

	state := newVoiceBanState(dir)

	_, errFirst := state.Load()
	require.NoError(t, errFirst)

	// A corrupt file must not clobber the previous ban set.
	require.NoError(t, os.WriteFile(filepath.Join(dir, voiceBanFileName), []byte{9, 9}, 0o644))

	_, errLoad := state.Load()
	require.ErrorIs(t, errLoad, errVoiceBanRead)
	require.True(t, state.isMuted(sidA))
}

func TestExportVoiceBans(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	lists := newListStore()
	require.NoError(t, lists.loadBody(mustEncodeList(t, newUserListSchema()), "user.json", false))

	sid := steamid.New("[U:1:1170132]")
	require.NoError(t, lists.AddUserEntry(sid, "cheater one", []string{attrCheater}))

	require.NoError(t, exportVoiceBans(dir, lists))

	state := newVoiceBanState(dir)
	_, errLoad := state.Load()
	require.NoError(t, errLoad)
	require.True(t, state.isMuted(sid))
}
