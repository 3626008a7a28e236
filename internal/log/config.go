package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format is the log output encoding
type Format int

const (
	// FormatText is logfmt-style text, the CLI default
	FormatText Format = iota
	// FormatJSON is one JSON object per line, used by the server
	FormatJSON
)

func (f Format) String() string {
	if f == FormatJSON {
		return "json"
	}
	return "text"
}

// ParseFormat parses a --log-format value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "console":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q: must be text or json", s)
	}
}

// Level is the minimum severity that is written
type Level = slog.Level

// Log levels
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel parses a --log-level value.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q: must be debug, info, warn or error", s)
	}
}

// Config holds configuration for the logger
type Config struct {
	Level     Level
	Format    Format
	AddSource bool

	// Output defaults to stderr so that plans written to stdout stay clean.
	Output io.Writer

	ServiceName    string
	ServiceVersion string
}

// DefaultConfig logs at INFO in text format to stderr.
func DefaultConfig() Config {
	return Config{
		Level:          LevelInfo,
		Format:         FormatText,
		Output:         os.Stderr,
		ServiceName:    "runeforge",
		ServiceVersion: "dev",
	}
}
