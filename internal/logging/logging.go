// Package logging configures zerolog for the CLI and API binaries.
//
// LOG_LEVEL selects the level (debug, info, warn, error; default info).
// LOG_FORMAT=json switches from the human console writer to JSON lines.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

func init() {
	Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), os.Stderr)
}

// Setup replaces the global logger. Binaries call it again after loading .env.
func Setup(level, format string, w io.Writer) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = w
	if !strings.EqualFold(strings.TrimSpace(format), "json") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	zlog.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// ParseLevel falls back to info for empty or unknown values.
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// For returns a logger tagged with a component name.
// Usage: var log = logging.For("optimizer")
func For(component string) Component {
	return Component{name: component}
}

// Component resolves the global logger lazily so that Setup calls made after package
// initialisation still take effect.
type Component struct {
	name string
}

func (c Component) Logger() zerolog.Logger {
	return zlog.Logger.With().Str("component", c.name).Logger()
}

// Debug returns nil when debug is off, which zerolog treats as a no-op event.
func (c Component) Debug() *zerolog.Event {
	if !c.Enabled() {
		return nil
	}
	l := c.Logger()
	return l.Debug()
}

func (c Component) Info() *zerolog.Event {
	l := c.Logger()
	return l.Info()
}

func (c Component) Warn() *zerolog.Event {
	l := c.Logger()
	return l.Warn()
}

func (c Component) Error() *zerolog.Event {
	l := c.Logger()
	return l.Error()
}

func (c Component) Fatal() *zerolog.Event {
	l := c.Logger()
	return l.Fatal()
}

// Enabled reports whether debug events for this component would be written.
func (c Component) Enabled() bool {
	return zerolog.GlobalLevel() <= zerolog.DebugLevel
}
