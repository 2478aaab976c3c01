package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// captureFileName must be unique enough to not collide with a logfile the
// operator set up by hand.
const captureFileName = "votekicker_capture.log"

// Number of in-game ticks the client waits between enabling the logfile,
// running the command and disabling it again, giving it time to flush.
const captureWaitTicks = 50

// loggedRunner executes console commands whose full output can only be
// captured through the con_logfile side channel. The direct rcon response is
// truncated at the first delay-inducing instruction, so the command is wrapped
// in a logfile on/off pair and the capture file is read back off disk.
//
// The mutex is deliberately coarse. Two concurrent pollers would race each
// other for the same capture file and the shared con_logfile console state.
type loggedRunner struct {
	rcon        commandExecutor
	capturePath string
	captureRel  string
	logger      *slog.Logger
	mu          sync.Mutex
	lastGood    map[string][]string
}

func newLoggedRunner(rcon commandExecutor, tf2Dir string) *loggedRunner {
	return &loggedRunner{
		rcon:        rcon,
		capturePath: filepath.Join(tf2Dir, captureFileName),
		captureRel:  captureFileName,
		logger:      slog.Default().WithGroup("loggedRunner"),
		lastGood:    map[string][]string{},
	}
}

// runLogged executes command and returns every capture file line accepted by
// lineFilter. A nil filter accepts everything. When the capture file stays
// locked or missing the previous snapshot for the same command is returned
// instead, the caller retries on its own schedule.
func (l *loggedRunner) runLogged(ctx context.Context, command string, lineFilter *regexp.Regexp) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if errRemove := os.Remove(l.capturePath); errRemove != nil && !os.IsNotExist(errRemove) {
		l.logger.Warn("Failed to remove stale capture file", errAttr(errRemove))
	}

	// Clear the logging flag again on the way out, even on error, so the game
	// does not keep writing concurrent console output into the capture file.
	defer func() {
		if _, errClear := l.rcon.exec(ctx, `con_logfile ""`, false); errClear != nil {
			l.logger.Warn("Failed to clear con_logfile", errAttr(errClear))
		}
	}()

	wrapped := fmt.Sprintf("con_logfile %s; wait %d; %s; wait %d; con_logfile \"\"",
		l.captureRel, captureWaitTicks, command, captureWaitTicks)

	if _, errExec := l.rcon.exec(ctx, wrapped, false); errExec != nil {
		return nil, errors.Join(errExec, errRCONExec)
	}

	var body []byte

	found := pollUntil(ctx, DurationCaptureWait, maxCaptureAttempts, func() bool {
		data, errRead := os.ReadFile(l.capturePath)
		if errRead != nil {
			// Not flushed yet, or still locked by the game.
			return false
		}

		body = data

		return true
	})

	if !found {
		cached, ok := l.lastGood[command]
		if !ok {
			return nil, errCaptureTimeout
		}

		l.logger.Debug("Capture file not ready, reusing previous snapshot",
			slog.String("cmd", command))

		return cached, nil
	}

	if errRemove := os.Remove(l.capturePath); errRemove != nil {
		l.logger.Warn("Failed to remove capture file", errAttr(errRemove))
	}

	matched := filterLines(string(body), lineFilter)
	l.lastGood[command] = matched

	return matched, nil
}

// filterLines drops noise lines produced by concurrent game events that land
// in the capture file alongside the command output.
func filterLines(body string, lineFilter *regexp.Regexp) []string {
	var matched []string

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}

		if lineFilter != nil && !lineFilter.MatchString(line) {
			continue
		}

		matched = append(matched, line)
	}

	return matched
}
