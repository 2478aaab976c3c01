package main

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"math/big"
	"time"
)

func LogClose(closer io.Closer) {
	if errClose := closer.Close(); errClose != nil {
		slog.Error("Error trying to close", errAttr(errClose))
	}
}

func IgnoreClose(closer io.Closer) {
	_ = closer.Close()
}

func RandInt(i int) int {
	value, errInt := rand.Int(rand.Reader, big.NewInt(int64(i)))
	if errInt != nil {
		panic(errInt)
	}

	return int(value.Int64())
}

// pollUntil invokes check at the given interval until it reports done, the
// attempt budget is spent, or the context is cancelled. maxAttempts <= 0 polls
// without an attempt limit. Cancellation is only observed between attempts,
// never mid-check.
func pollUntil(ctx context.Context, interval time.Duration, maxAttempts int, check func() bool) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 0; maxAttempts <= 0 || attempt < maxAttempts; attempt++ {
		if check() {
			return true
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		}
	}

	return false
}
