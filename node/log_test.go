package node

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggingLevels(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogging(&buf, "warn")
	if err != nil {
		t.Fatalf("NewLogging: %v", err)
	}
	lg := l.Logger(SubsystemNode)
	lg.Infof("hidden")
	lg.Warnf("shown %d", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown 1") || !strings.Contains(out, SubsystemNode) {
		t.Fatalf("warning missing: %q", out)
	}
}

func TestNewLoggingRejectsBadLevel(t *testing.T) {
	if _, err := NewLogging(&bytes.Buffer{}, "verbose"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoggingUnknownSubsystem(t *testing.T) {
	var l *Logging
	l.Logger("NOPE").Infof("no panic")
}
