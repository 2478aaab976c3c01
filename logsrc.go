package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nxadm/tail"
)

// logIngest follows the game's console.log between polls. Status rows show up
// there whenever the operator runs `status` by hand, feeding them into the
// roster keeps names and user ids fresh without waiting for the next cycle.
type logIngest struct {
	tail   *tail.Tail
	logger *slog.Logger
	status statusParser
	roster *roster
	// Used mostly for testing, allowing simple feeding of prerecorded lines.
	external chan string
}

func newLogIngest(tf2Dir string, roster *roster) (*logIngest, error) {
	//goland:noinspection GoBoolExpressions
	tailConfig := tail.Config{
		Location: &tail.SeekInfo{
			Offset: 0,
			Whence: io.SeekEnd,
		},
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Poll:      runtime.GOOS == "windows",
		Logger:    tailLogAdapter{echo: false},
	}

	tailFile, errTail := tail.TailFile(filepath.Join(tf2Dir, "console.log"), tailConfig)
	if errTail != nil {
		return nil, errors.Join(errTail, errLogTailCreate)
	}

	return &logIngest{
		tail:     tailFile,
		logger:   slog.Default().WithGroup("logReader"),
		status:   newStatusParser(),
		roster:   roster,
		external: make(chan string),
	}, nil
}

func (li *logIngest) lineEmitter(ctx context.Context, incoming chan string) {
	for {
		select {
		case msg := <-li.tail.Lines:
			if msg == nil {
				// Happens on linux only?
				continue
			}

			line := strings.TrimSuffix(msg.Text, "\r")
			if line == "" {
				continue
			}

			incoming <- line
		case externalLine := <-li.external:
			line := strings.TrimSuffix(externalLine, "\r")
			if line == "" {
				continue
			}
			incoming <- line
		case <-ctx.Done():
			return
		}
	}
}

// start begins reading incoming console.log lines, applying any status rows
// found to already tracked players.
func (li *logIngest) start(ctx context.Context) {
	defer li.tail.Cleanup()
	incomingLogLines := make(chan string)

	go li.lineEmitter(ctx, incomingLogLines)

	for {
		select {
		case line := <-incomingLogLines:
			var session PlayerSession
			if err := li.status.parse(line, &session); err != nil {
				continue
			}

			li.roster.applySession(session)
		case <-ctx.Done():
			if errStop := li.tail.Stop(); errStop != nil {
				li.logger.Error("Failed to stop tailing console.log cleanly", errAttr(errStop))
			}

			return
		}
	}
}
