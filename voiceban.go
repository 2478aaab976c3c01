package main

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgrives/votekicker/pkg/voiceban"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

const voiceBanFileName = "voice_ban.dt"

// VoiceBanDelta describes the membership change between two loads of the
// voice ban file.
type VoiceBanDelta struct {
	Added   steamid.Collection
	Removed steamid.Collection
}

func (d VoiceBanDelta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// voiceBanState tracks the games own persisted mute list. The game only
// writes the file on shutdown, so loads are triggered by process exit rather
// than any real-time watch.
type voiceBanState struct {
	path    string
	mu      sync.RWMutex
	current map[steamid.SteamID]bool
}

func newVoiceBanState(tf2Dir string) *voiceBanState {
	return &voiceBanState{
		path:    filepath.Join(tf2Dir, voiceBanFileName),
		current: map[steamid.SteamID]bool{},
	}
}

// Load re-reads the file from scratch and diffs it against the previous load.
// A malformed file leaves the previous ban set untouched.
func (v *voiceBanState) Load() (VoiceBanDelta, error) {
	input, errOpen := os.Open(v.path)
	if errOpen != nil {
		return VoiceBanDelta{}, errors.Join(errOpen, errVoiceBanOpen)
	}

	defer IgnoreClose(input)

	ids, errRead := voiceban.Read(input)
	if errRead != nil {
		return VoiceBanDelta{}, errors.Join(errRead, errVoiceBanRead)
	}

	next := make(map[steamid.SteamID]bool, len(ids))

	var delta VoiceBanDelta

	for _, sid := range ids {
		next[sid] = true

		if !v.current[sid] {
			delta.Added = append(delta.Added, sid)
		}
	}

	for sid := range v.current {
		if !next[sid] {
			delta.Removed = append(delta.Removed, sid)
		}
	}

	v.mu.Lock()
	v.current = next
	v.mu.Unlock()

	if !delta.Empty() {
		slog.Info("Voice ban file loaded",
			slog.Int("added", len(delta.Added)), slog.Int("removed", len(delta.Removed)))
	}

	return delta, nil
}

func (v *voiceBanState) isMuted(sid steamid.SteamID) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.current[sid]
}

// exportVoiceBans writes the most recently seen cheater ids into the games own
// mute list. Must only run while the game process is down, it rewrites the
// file on its own shutdown.
func exportVoiceBans(tf2Dir string, lists *listStore) error {
	bannedIDs := lists.newestCheaterIDs(voiceban.MaxEntries)
	if len(bannedIDs) == 0 {
		return nil
	}

	vbPath := filepath.Join(tf2Dir, voiceBanFileName)

	vbFile, errOpen := os.OpenFile(vbPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o755)
	if errOpen != nil {
		return errors.Join(errOpen, errVoiceBanOpen)
	}

	defer LogClose(vbFile)

	if errWrite := voiceban.Write(vbFile, bannedIDs); errWrite != nil {
		return errors.Join(errWrite, errVoiceBanWrite)
	}

	slog.Info("Generated voice_ban.dt successfully", slog.String("path", vbPath))

	return nil
}
