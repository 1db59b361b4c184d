package node

import (
	"fmt"
	"io"
	"strings"

	"etomic.dev/swap/node/store"

	"github.com/decred/slog"
)

// Logging subsystems.
const (
	SubsystemNode  = "NODE"
	SubsystemStore = "STOR"
)

// Logging holds one logger per subsystem, all writing to one backend.
type Logging struct {
	backend *slog.Backend
	loggers map[string]slog.Logger
}

// NewLogging builds subsystem loggers on w at level and installs the store
// logger.
func NewLogging(w io.Writer, level string) (*Logging, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	l := &Logging{
		backend: slog.NewBackend(w),
		loggers: make(map[string]slog.Logger),
	}
	for _, sub := range []string{SubsystemNode, SubsystemStore} {
		lg := l.backend.Logger(sub)
		lg.SetLevel(lvl)
		l.loggers[sub] = lg
	}
	store.UseLogger(l.loggers[SubsystemStore])
	return l, nil
}

// Logger returns the logger for subsystem, or a disabled one.
func (l *Logging) Logger(subsystem string) slog.Logger {
	if l == nil {
		return slog.Disabled
	}
	if lg, ok := l.loggers[subsystem]; ok {
		return lg
	}
	return slog.Disabled
}

func parseLevel(level string) (slog.Level, error) {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == "" {
		return slog.LevelInfo, nil
	}
	lvl, ok := slog.LevelFromString(s)
	if !ok {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}
