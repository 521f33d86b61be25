package testutil

import (
	"io"
	"log/slog"
)

// QuietLogger discards everything; tests pass it where a logger is
// required but output would only add noise.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
