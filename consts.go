package main

import "time"

// Team is the raw team constant reported by tf_lobby_debug. The mapping of
// these constants onto RED/BLU flips between rounds, so nothing in this
// program binds them to a colour. Team assignments are only meaningful while
// the player is present in the latest lobby snapshot.
type Team string

const (
	teamUnassigned Team = ""
	teamDefenders  Team = "TF_GC_TEAM_DEFENDERS"
	teamInvaders   Team = "TF_GC_TEAM_INVADERS"
)

type KickReason string

const (
	KickReasonIdle     KickReason = "idle"
	KickReasonScamming KickReason = "scamming"
	KickReasonCheating KickReason = "cheating"
	KickReasonOther    KickReason = "other"
)

const (
	DurationRCONRequestTimeout = time.Second * 5
	DurationPollInterval       = time.Second * 3
	DurationProcessTimeout     = time.Second * 5
	DurationCaptureWait        = time.Millisecond * 250
	DurationConfirmPoll        = time.Millisecond * 500
	DurationVoteRetry          = time.Second
	DurationListFetchTimeout   = time.Second * 10

	// Number of fixed-length intervals to wait for the capture file before
	// giving up and reusing the previous snapshot.
	maxCaptureAttempts = 20
)
