package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that discards all output.
// Use this in tests to reduce noise; equivalent to log.NewNop() when
// working with the internal/log package.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
