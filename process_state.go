package main

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mitchellh/go-ps"
)

// gameBinaries are the executable names the game runs under across platforms.
var gameBinaries = []string{"hl2.exe", "hl2_linux", "tf_linux64", "tf_win64.exe"}

func isGameRunning() (bool, error) {
	processes, errPs := ps.Processes()
	if errPs != nil {
		return false, errPs
	}

	for _, process := range processes {
		name := strings.ToLower(process.Executable())

		for _, binary := range gameBinaries {
			if name == binary {
				return true, nil
			}
		}
	}

	return false, nil
}

// processState tracks whether the game client is currently running. Pollers
// consult gameProcessActive to avoid hammering a dead rcon endpoint, and the
// running to stopped transition triggers a voice ban reload since the game
// only flushes voice_ban.dt on exit.
type processState struct {
	gameProcessActive atomic.Bool
	voiceBans         *voiceBanState
}

func newProcessState(voiceBans *voiceBanState) *processState {
	return &processState{voiceBans: voiceBans}
}

func (p *processState) start(ctx context.Context) {
	ticker := time.NewTicker(DurationProcessTimeout)

	p.check()

	for {
		select {
		case <-ticker.C:
			p.check()
		case <-ctx.Done():
			return
		}
	}
}

func (p *processState) check() {
	running, errRunning := isGameRunning()
	if errRunning != nil {
		slog.Error("Failed to check process state", errAttr(errRunning))

		return
	}

	wasRunning := p.gameProcessActive.Swap(running)

	if wasRunning && !running {
		slog.Info("Game process exited, reloading voice bans")

		if _, errLoad := p.voiceBans.Load(); errLoad != nil {
			slog.Error("Failed to reload voice bans", errAttr(errLoad))
		}
	}
}
