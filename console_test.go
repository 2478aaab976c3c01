package main

import (
	"context"
	"os"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilterLines(t *testing.T) {
	t.Parallel()

	body := "# userid name uniqueid connected ping loss state\r\n" +
		"#    672 \"cheater one\"     [U:1:1170132] 02:31       76    0 active\r\n" +
		"\r\n" +
		"Some chat message landing mid capture\n" +
		"#    744 \"some regular\"  [U:1:32653229]  1:02:31   124    5 active\n"

	matched := filterLines(body, newStatusParser().rx)
	require.Len(t, matched, 2)

	// A nil filter keeps every non-empty line.
	all := filterLines(body, (*regexp.Regexp)(nil))
	require.Len(t, all, 4)
}

func captureHandler(t *testing.T, runner *loggedRunner, body string) func(string) (string, error) {
	t.Helper()

	return func(cmd string) (string, error) {
		// The wrapped command flushes the capture file, everything else is a
		// plain console command with no side effects.
		if strings.HasPrefix(cmd, "con_logfile "+captureFileName) {
			require.NoError(t, os.WriteFile(runner.capturePath, []byte(body), 0o644))
		}

		return "", nil
	}
}

func TestRunLoggedCapture(t *testing.T) {
	t.Parallel()

	var (
		executor = &scriptedExecutor{}
		runner   = newLoggedRunner(executor, t.TempDir())
	)

	executor.handler = captureHandler(t, runner,
		"# userid name uniqueid connected ping loss state\n"+
			"#    672 \"cheater one\"     [U:1:1170132] 02:31       76    0 active\n"+
			"Some chat message landing mid capture\n")

	lines, errRun := runner.runLogged(context.Background(), "status", newStatusParser().rx)
	require.NoError(t, errRun)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "[U:1:1170132]")

	// The capture file is consumed and the logging flag cleared on the way out.
	require.NoFileExists(t, runner.capturePath)
	require.Contains(t, executor.sent(), `con_logfile ""`)
}

func TestRunLoggedReusesSnapshot(t *testing.T) {
	t.Parallel()

	var (
		executor = &scriptedExecutor{}
		runner   = newLoggedRunner(executor, t.TempDir())
	)

	executor.handler = captureHandler(t, runner,
		"#    672 \"cheater one\"     [U:1:1170132] 02:31       76    0 active\n")

	first, errFirst := runner.runLogged(context.Background(), "status", newStatusParser().rx)
	require.NoError(t, errFirst)
	require.Len(t, first, 1)

	// The game stops flushing the capture file, the previous snapshot for the
	// same command is served instead.
	executor.handler = nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cached, errCached := runner.runLogged(ctx, "status", newStatusParser().rx)
	require.NoError(t, errCached)
	require.Equal(t, first, cached)
}

func TestRunLoggedTimeout(t *testing.T) {
	t.Parallel()

	runner := newLoggedRunner(&scriptedExecutor{}, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// No capture file ever shows up and there is no previous snapshot.
	_, errRun := runner.runLogged(ctx, "status", newStatusParser().rx)
	require.ErrorIs(t, errRun, errCaptureTimeout)
}

func TestPollUntil(t *testing.T) {
	t.Parallel()

	attempts := 0
	found := pollUntil(context.Background(), time.Millisecond, 10, func() bool {
		attempts++

		return attempts == 3
	})

	require.True(t, found)
	require.Equal(t, 3, attempts)
}

func TestPollUntilExhausted(t *testing.T) {
	t.Parallel()

	attempts := 0
	found := pollUntil(context.Background(), time.Millisecond, 5, func() bool {
		attempts++

		return false
	})

	require.False(t, found)
	require.Equal(t, 5, attempts)
}

func TestPollUntilCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An unlimited poll must still terminate on cancellation.
	found := pollUntil(ctx, time.Millisecond, 0, func() bool {
		return false
	})

	require.False(t, found)
}
