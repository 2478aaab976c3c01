package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// rosterUpdater periodically pulls the `status` and `tf_lobby_debug` output
// from the game client and feeds the parsed snapshots into the roster.
type rosterUpdater struct {
	rcon       rconConnection
	runner     *loggedRunner
	process    *processState
	roster     *roster
	status     statusParser
	lobby      lobbyParser
	updateRate time.Duration
}

func newRosterUpdater(rcon rconConnection, runner *loggedRunner, process *processState,
	roster *roster, updateRate time.Duration,
) rosterUpdater {
	return rosterUpdater{
		rcon:       rcon,
		runner:     runner,
		process:    process,
		roster:     roster,
		status:     newStatusParser(),
		lobby:      newLobbyParser(),
		updateRate: updateRate,
	}
}

func (u rosterUpdater) start(ctx context.Context) {
	timer := time.NewTicker(u.updateRate)

	for {
		select {
		case <-timer.C:
			if !u.process.gameProcessActive.Load() {
				// Don't do anything until the game is open
				continue
			}

			if err := u.updateOnce(ctx); err != nil {
				slog.Debug("Failed to update roster", errAttr(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// updateOnce performs one full poll cycle. The status output must go through
// the logged runner since its full output truncates over the direct channel,
// the lobby dump is short enough to read directly.
func (u rosterUpdater) updateOnce(ctx context.Context) error {
	statusLines, errStatus := u.runner.runLogged(ctx, "status", u.status.rx)
	if errStatus != nil {
		return errors.Join(errStatus, errRCONStatus)
	}

	lobbyBody, errLobby := u.rcon.exec(ctx, "tf_lobby_debug", true)
	if errLobby != nil {
		return errors.Join(errLobby, errRCONLobby)
	}

	snapshot := u.lobby.parse(strings.Split(lobbyBody, "\n"))

	u.roster.update(snapshot, u.status.parseAll(statusLines))

	return nil
}
