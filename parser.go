package main

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

var ErrNoMatch = errors.New("no match found")

// PlayerSession is a single connection row from `status` output. UserID is the
// ephemeral per-connection id that kick votes must target, SteamID is the
// stable identity.
type PlayerSession struct {
	UserID    int
	Name      string
	SteamID   steamid.SteamID
	Connected time.Duration
	Ping      int
	Loss      int
	State     string
}

// LobbyMember is a single row from the lobby membership dump. Index is
// positional only and not a stable id.
type LobbyMember struct {
	Index   int
	SteamID steamid.SteamID
	Team    Team
	Type    string
}

// LobbySnapshot is one full parse of the lobby dump. ID changes when the
// client moves to a new match, which invalidates all tracked team assignments.
type LobbySnapshot struct {
	ID      string
	Members []LobbyMember
}

// Capture file lines carry a timestamp prefix only when con_timestamp is
// enabled, so both parsers accept it optionally.
const tsPrefix = `^(?:[01]\d/[0123]\d/20\d{2}\s-\s\d{2}:\d{2}:\d{2}:\s)?`

type statusParser struct {
	rx *regexp.Regexp
}

func newStatusParser() statusParser {
	return statusParser{
		rx: regexp.MustCompile(tsPrefix +
			`#\s+(?P<id>\d+)\s+"(?P<name>.+?)"\s+(?P<sid>\[U:\d:\d{1,10}])\s+` +
			`(?P<time>\d{1,3}(?::\d{2}){0,2})\s+(?P<ping>\d{1,4})\s+(?P<loss>\d{1,3})\s+(?P<state>\S+)\s*$`),
	}
}

func (p statusParser) parse(line string, session *PlayerSession) error {
	match := p.rx.FindStringSubmatch(line)
	if match == nil {
		return ErrNoMatch
	}

	sid := steamid.New(match[3])
	if !sid.Valid() {
		return ErrNoMatch
	}

	// Numeric fields fall back to zero instead of dropping the whole row.
	session.UserID = intVal(match[1], 0)
	session.Name = match[2]
	session.SteamID = sid
	session.Ping = intVal(match[5], 0)
	session.Loss = intVal(match[6], 0)
	session.State = match[7]

	connected, errConnected := parseConnected(match[4])
	if errConnected != nil {
		connected = 0
	}

	session.Connected = connected

	return nil
}

func (p statusParser) parseAll(lines []string) []PlayerSession {
	var sessions []PlayerSession

	for _, line := range lines {
		var session PlayerSession
		if err := p.parse(line, &session); err != nil {
			continue
		}

		sessions = append(sessions, session)
	}

	return sessions
}

type lobbyParser struct {
	rxMember *regexp.Regexp
	rxHeader *regexp.Regexp
}

func newLobbyParser() lobbyParser {
	return lobbyParser{
		rxMember: regexp.MustCompile(tsPrefix +
			`\s*(?:Member|Pending)\[(?P<idx>\d+)]\s+(?P<sid>\[U:\d:\d{1,10}])\s+` +
			`team\s=\s(?P<team>\S+)\s+type\s=\s(?P<type>\S+)\s*$`),
		rxHeader: regexp.MustCompile(tsPrefix + `CTFLobbyShared:\s+ID:(?P<lobby>[0-9a-f]+)`),
	}
}

func (p lobbyParser) parse(lines []string) LobbySnapshot {
	var snapshot LobbySnapshot

	for _, line := range lines {
		if header := p.rxHeader.FindStringSubmatch(line); header != nil {
			snapshot.ID = header[1]

			continue
		}

		match := p.rxMember.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		sid := steamid.New(match[2])
		if !sid.Valid() {
			continue
		}

		snapshot.Members = append(snapshot.Members, LobbyMember{
			Index:   intVal(match[1], 0),
			SteamID: sid,
			Team:    Team(match[3]),
			Type:    match[4],
		})
	}

	return snapshot
}

func intVal(s string, def int) int {
	parsed, errParse := strconv.ParseInt(s, 10, 32)
	if errParse != nil {
		return def
	}

	return int(parsed)
}

// parseConnected converts the status connected-time column into a duration.
// Hours and minutes are optional, `45`, `02:31` and `1:02:31` are all valid.
func parseConnected(d string) (time.Duration, error) {
	var (
		pcs      = strings.Split(d, ":")
		dur      time.Duration
		parseErr error
	)

	switch len(pcs) {
	case 3:
		dur, parseErr = time.ParseDuration(fmt.Sprintf("%sh%sm%ss", pcs[0], pcs[1], pcs[2]))
	case 2:
		dur, parseErr = time.ParseDuration(fmt.Sprintf("%sm%ss", pcs[0], pcs[1]))
	case 1:
		dur, parseErr = time.ParseDuration(fmt.Sprintf("%ss", pcs[0]))
	default:
		dur = 0
	}

	if parseErr != nil {
		return 0, errors.Join(parseErr, errDuration)
	}

	return dur, nil
}
