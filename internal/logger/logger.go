// Package logger builds the hclog loggers used across radar.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// New returns a logger writing to stderr, so stdout stays free for findings.
// An empty level falls back to RADAR_LOG_LEVEL, then to info.
func New(name, level string) hclog.Logger {
	return NewWithOutput(name, level, os.Stderr)
}

func NewWithOutput(name, level string, out io.Writer) hclog.Logger {
	if level == "" {
		level = os.Getenv("RADAR_LOG_LEVEL")
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: true,
		Output:      out,
		Level:       ParseLevel(level),
	})
}

// ParseLevel maps a level name to hclog; "warning" is accepted for warn and
// unknown names are info.
func ParseLevel(level string) hclog.Level {
	if strings.EqualFold(strings.TrimSpace(level), "warning") {
		return hclog.Warn
	}
	if l := hclog.LevelFromString(level); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}
