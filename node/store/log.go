package store

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the logger used by the store. It is disabled by default.
func UseLogger(logger slog.Logger) {
	log = logger
}
