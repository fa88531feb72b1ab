package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the named level. Unknown levels fall
// back to warn so a typo never silences errors.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Console is New with human-readable output for interactive debugging.
func Console(w io.Writer, level string) zerolog.Logger {
	base := New(w, level)
	return base.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true})
}
