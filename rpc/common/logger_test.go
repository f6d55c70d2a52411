package common

import (
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		level    string
		expected logger.LogLevel
	}{
		{"debug", logger.DEBUG},
		{"", logger.INFO},
		{"INFO", logger.INFO},
		{"warn", logger.WARNING},
		{"warning", logger.WARNING},
		{"error", logger.ERROR},
	}

	for _, tc := range testCases {
		lvl, err := ParseLogLevel(tc.level)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.level, err)
			continue
		}
		if lvl != tc.expected {
			t.Errorf("%q: expected %d, got %d", tc.level, tc.expected, lvl)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestInitLoggersRepeatedly(t *testing.T) {
	// every server start initializes the loggers, so this must not panic
	for _, level := range []string{"info", "error", "warn"} {
		if err := InitLoggers(level); err != nil {
			t.Fatalf("InitLoggers(%s) failed: %v", level, err)
		}
	}

	if err := InitLoggers("verbose"); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}
