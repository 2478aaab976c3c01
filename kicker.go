package main

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// The client side convar used to carry the operators verdict back to us. The
// offer binds both keys to write into it, polling reads it back out.
const (
	confirmVarName = "votekicker_confirm"
	confirmPending = "pending"
	confirmAccept  = "accept"
	confirmDecline = "decline"
)

type kickState int

const (
	kickStateIdle kickState = iota
	kickStateOffering
	kickStateAwaiting
	kickStateKicking
	kickStateSkipped
)

func (s kickState) String() string {
	switch s {
	case kickStateIdle:
		return "idle"
	case kickStateOffering:
		return "offering"
	case kickStateAwaiting:
		return "awaiting_response"
	case kickStateKicking:
		return "kicking"
	case kickStateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// kicker drives the operator confirmed vote kick sequence against the next
// kickable suspect, looping for the lifetime of the session. There is no
// dedicated error state, a step that got no response yet simply keeps polling
// and only an outer cancellation stops the loop between iterations.
type kicker struct {
	rcon       commandExecutor
	roster     *roster
	templates  templateEngine
	acceptKey  string
	declineKey string
	alertSound string
	state      kickState
	rxConfirm  *regexp.Regexp
	logger     *slog.Logger
}

func newKicker(rcon commandExecutor, roster *roster, settings userSettings) *kicker {
	return &kicker{
		rcon:       rcon,
		roster:     roster,
		templates:  newTemplateEngine(rcon),
		acceptKey:  settings.KickAcceptKey,
		declineKey: settings.KickDeclineKey,
		alertSound: settings.KickAlertSound,
		rxConfirm:  regexp.MustCompile(`"` + confirmVarName + `"\s+=\s+"([^"]*)"`),
		logger:     slog.Default().WithGroup("kicker"),
	}
}

func (k *kicker) setState(next kickState) {
	if k.state == next {
		return
	}

	k.logger.Debug("Kick state change",
		slog.String("from", k.state.String()), slog.String("to", next.String()))

	k.state = next
}

// run is the continuous moderation loop, selecting the next kickable suspect
// and walking it through offer, confirmation and vote.
func (k *kicker) run(ctx context.Context) {
	ticker := time.NewTicker(DurationPollInterval)

	for {
		select {
		case <-ticker.C:
			suspect, found := k.roster.nextKickable()
			if !found {
				continue
			}

			k.handleSuspect(ctx, suspect)
		case <-ctx.Done():
			return
		}
	}
}

func (k *kicker) handleSuspect(ctx context.Context, suspect Player) {
	defer k.setState(kickStateIdle)

	k.setState(kickStateOffering)

	if errOffer := k.offer(ctx, suspect); errOffer != nil {
		// Channel failure, treated as a no-op this cycle. The suspect stays
		// kickable and is offered again next selection.
		k.logger.Error("Failed to issue kick offer", errAttr(errOffer), sidAttr(suspect.SteamID))

		return
	}

	k.setState(kickStateAwaiting)

	verdict, answered := k.awaitConfirm(ctx)

	k.clearConfirm(ctx)

	if !answered {
		return
	}

	if verdict == confirmDecline {
		k.setState(kickStateSkipped)
		k.roster.skip(suspect.SteamID)
		k.logger.Info("Suspect skipped for this session", sidAttr(suspect.SteamID))

		return
	}

	k.setState(kickStateKicking)
	k.kickLoop(ctx, suspect)
}

// offer arms the confirmation convar and both answer keys, then alerts the
// operator by sound and party chat. Each key press writes the verdict and
// unbinds both keys again.
func (k *kicker) offer(ctx context.Context, suspect Player) error {
	unbind := fmt.Sprintf("unbind %s; unbind %s", k.acceptKey, k.declineKey)

	alert := k.templates.Format(ctx,
		fmt.Sprintf("say_party {random|Kick|Vote out} {0}? %s = yes, %s = no",
			k.acceptKey, k.declineKey), suspect.Name)

	commands := []string{
		fmt.Sprintf("setinfo %s %s", confirmVarName, confirmPending),
		fmt.Sprintf(`bind %s "setinfo %s %s; %s"`, k.acceptKey, confirmVarName, confirmAccept, unbind),
		fmt.Sprintf(`bind %s "setinfo %s %s; %s"`, k.declineKey, confirmVarName, confirmDecline, unbind),
		fmt.Sprintf("play %s", k.alertSound),
		alert,
	}

	for _, command := range commands {
		if _, errExec := k.rcon.exec(ctx, command, false); errExec != nil {
			return errExec
		}
	}

	return nil
}

// awaitConfirm polls the confirmation convar until the operator answered or
// the session is cancelled.
func (k *kicker) awaitConfirm(ctx context.Context) (string, bool) {
	var verdict string

	answered := pollUntil(ctx, DurationConfirmPoll, 0, func() bool {
		resp, errExec := k.rcon.exec(ctx, confirmVarName, false)
		if errExec != nil {
			// No response yet is expected, keep polling.
			return false
		}

		match := k.rxConfirm.FindStringSubmatch(resp)
		if match == nil {
			return false
		}

		if match[1] != confirmAccept && match[1] != confirmDecline {
			return false
		}

		verdict = match[1]

		return true
	})

	return verdict, answered
}

func (k *kicker) clearConfirm(ctx context.Context) {
	if _, errExec := k.rcon.exec(ctx, fmt.Sprintf(`setinfo %s ""`, confirmVarName), false); errExec != nil {
		k.logger.Warn("Failed to clear confirmation var", errAttr(errExec))
	}
}

// kickLoop keeps issuing the vote until the suspect is gone from the roster.
// Votes fail silently on map vote cooldowns or insufficient votes and the
// protocol never acknowledges success, so the only reliable exit condition is
// the suspect no longer being present.
func (k *kicker) kickLoop(ctx context.Context, suspect Player) {
	k.logger.Info("Starting vote kick",
		sidAttr(suspect.SteamID), slog.Int("uid", suspect.UserID), slog.String("name", suspect.Name))

	pollUntil(ctx, DurationVoteRetry, 0, func() bool {
		if !k.roster.present(suspect.SteamID) {
			return true
		}

		if errVote := k.callVote(ctx, suspect.UserID, KickReasonCheating); errVote != nil {
			k.logger.Error("Failed to callvote", errAttr(errVote))
		}

		return false
	})
}

// callVote sends the vote command to the game client.
func (k *kicker) callVote(ctx context.Context, userID int, reason KickReason) error {
	_, errExec := k.rcon.exec(ctx, fmt.Sprintf("callvote kick \"%d %s\"", userID, reason), false)

	return errExec
}
