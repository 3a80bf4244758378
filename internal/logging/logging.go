package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const EnvLogLevel = "COBSYNC_LOG_LEVEL"

// New returns a console logger writing to w. Progress and warnings go to
// stderr so stdout only carries the result.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// Level resolves the log level from the flag value, then the environment,
// then the default. debug forces the debug level.
func Level(flag string, debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	if lvl, ok := ParseLevel(flag); ok {
		return lvl
	}
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
