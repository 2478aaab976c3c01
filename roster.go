package main

import (
	"log/slog"
	"sync"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

// Player is the correlated entity the rest of the program operates on, merged
// from the lobby, status, ban list and voice ban sources. Identity is keyed on
// SteamID and preserved across polls, existing entries are updated in place so
// consumer state attached to a player survives a refresh.
type Player struct {
	SteamID steamid.SteamID
	Name    string
	Team    Team

	// UserID is the ephemeral per-connection id from status, required to
	// target a kick vote. Zero until a status row has been correlated.
	UserID    int
	State     string
	Connected time.Duration
	Ping      int
	Loss      int

	Muted      bool
	Banned     bool
	UserBanned bool
	Friend     bool
	Me         bool

	// Missing is set when the player stopped appearing in the lobby snapshot.
	// They are kept for a grace period rather than deleted immediately, a
	// single dropped snapshot should not flicker the roster.
	Missing bool

	missingPolls int
}

type roster struct {
	mu           sync.RWMutex
	players      map[steamid.SteamID]*Player
	order        steamid.Collection
	lobbyID      string
	missingGrace int
	ownSID       steamid.SteamID
	skipped      map[steamid.SteamID]bool
	lists        *listStore
	voiceBans    *voiceBanState
}

func newRoster(ownSID steamid.SteamID, lists *listStore, voiceBans *voiceBanState, missingGrace int) *roster {
	if missingGrace < 1 {
		missingGrace = 1
	}

	return &roster{
		players:      map[steamid.SteamID]*Player{},
		missingGrace: missingGrace,
		ownSID:       ownSID,
		skipped:      map[steamid.SteamID]bool{},
		lists:        lists,
		voiceBans:    voiceBans,
	}
}

// update merges one poll cycle worth of lobby and status data into the
// tracked players.
func (r *roster) update(lobby LobbySnapshot, sessions []PlayerSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lobby.ID != "" && lobby.ID != r.lobbyID {
		if r.lobbyID != "" {
			slog.Info("Lobby changed, clearing team assignments",
				slog.String("old", r.lobbyID), slog.String("new", lobby.ID))

			// New match, the old team constants may no longer correspond.
			for _, player := range r.players {
				player.Team = teamUnassigned
			}
		}

		r.lobbyID = lobby.ID
	}

	present := make(map[steamid.SteamID]bool, len(lobby.Members))
	r.order = r.order[:0]

	for _, member := range lobby.Members {
		present[member.SteamID] = true
		r.order = append(r.order, member.SteamID)

		if player, found := r.players[member.SteamID]; found {
			player.Team = member.Team
			player.Missing = false
			player.missingPolls = 0

			continue
		}

		// Only ids that already carry a classification are tracked, an
		// uncorrelated player is not worth acting on and tracking everyone
		// would grow without bound on busy servers.
		if !r.classified(member.SteamID) {
			continue
		}

		r.players[member.SteamID] = &Player{
			SteamID: member.SteamID,
			Team:    member.Team,
		}
	}

	for sid, player := range r.players {
		if present[sid] {
			continue
		}

		player.Missing = true
		player.missingPolls++

		if player.missingPolls > r.missingGrace {
			delete(r.players, sid)

			slog.Debug("Flushing missing player", sidAttr(sid))
		}
	}

	for _, session := range sessions {
		player, found := r.players[session.SteamID]
		if !found {
			continue
		}

		player.Name = session.Name
		player.UserID = session.UserID
		player.State = session.State
		player.Connected = session.Connected
		player.Ping = session.Ping
		player.Loss = session.Loss
	}

	for _, player := range r.players {
		r.reclassify(player)
	}
}

func (r *roster) classified(sid steamid.SteamID) bool {
	return sid.Equal(r.ownSID) ||
		r.voiceBans.isMuted(sid) ||
		r.lists.isCheater(sid) ||
		r.lists.isTrusted(sid)
}

func (r *roster) reclassify(player *Player) {
	player.Me = player.SteamID.Equal(r.ownSID)
	player.Muted = r.voiceBans.isMuted(player.SteamID)
	player.UserBanned = r.lists.isUserCheater(player.SteamID)
	// A user file match always implies banned.
	player.Banned = player.UserBanned || r.lists.isCheater(player.SteamID)
	player.Friend = r.lists.isTrusted(player.SteamID)
}

// applySession updates an already tracked player from a single out-of-band
// status row. Unknown ids are ignored, creation stays gated on the lobby
// snapshot so a stray console line cannot grow the roster.
func (r *roster) applySession(session PlayerSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	player, found := r.players[session.SteamID]
	if !found {
		return
	}

	player.Name = session.Name
	player.UserID = session.UserID
	player.State = session.State
	player.Connected = session.Connected
	player.Ping = session.Ping
	player.Loss = session.Loss
}

// skip excludes an id from kick selection for the remainder of the session.
func (r *roster) skip(sid steamid.SteamID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.skipped[sid] = true
}

func (r *roster) present(sid steamid.SteamID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	player, found := r.players[sid]

	return found && !player.Missing
}

func (r *roster) player(sid steamid.SteamID) (Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	player, found := r.players[sid]
	if !found {
		return Player{}, errPlayerNotFound
	}

	return *player, nil
}

func (r *roster) all() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players := make([]Player, 0, len(r.players))

	for _, sid := range r.order {
		if player, found := r.players[sid]; found {
			players = append(players, *player)
		}
	}

	return players
}

func (r *roster) ownTeam() Team {
	r.mu.RLock()
	defer r.mu.RUnlock()

	me, found := r.players[r.ownSID]
	if !found || me.Missing {
		return teamUnassigned
	}

	return me.Team
}

// nextKickable picks the next suspect worth offering a kick for, in lobby
// order: on the operators own team, flagged by a shared list but not yet
// escalated into the user file, not skipped this session, and carrying the
// user id a callvote needs. Self and already decided entries are excluded by
// construction.
func (r *roster) nextKickable() (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	me, found := r.players[r.ownSID]
	if !found || me.Missing || me.Team == teamUnassigned {
		return Player{}, false
	}

	for _, sid := range r.order {
		player, tracked := r.players[sid]
		if !tracked || player.Missing || player.Me {
			continue
		}

		if player.Team != me.Team {
			continue
		}

		if !player.Banned || player.UserBanned {
			continue
		}

		if r.skipped[sid] {
			continue
		}

		if player.UserID <= 0 {
			continue
		}

		return *player, true
	}

	return Player{}, false
}
