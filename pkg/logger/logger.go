// Package logger defines the logging facade used across the SDK.
//
// Components take a Logger instead of a concrete implementation so that
// consumers can plug in whatever they already use. The default
// implementation is backed by zerolog.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger accepts a message and a flat list of key/value pairs,
// in the same style as log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type zerologLogger struct {
	l zerolog.Logger
}

// New returns a Logger writing structured JSON lines to w.
func New(w io.Writer) Logger {
	return &zerologLogger{l: zerolog.New(w).With().Timestamp().Logger()}
}

// Default returns a Logger writing to stderr.
func Default() Logger {
	return New(os.Stderr)
}

// FromZerolog wraps an existing zerolog.Logger.
func FromZerolog(l zerolog.Logger) Logger {
	return &zerologLogger{l: l}
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return &zerologLogger{l: zerolog.Nop()}
}

func (z *zerologLogger) Debug(msg string, args ...any) { z.emit(z.l.Debug(), msg, args) }
func (z *zerologLogger) Info(msg string, args ...any)  { z.emit(z.l.Info(), msg, args) }
func (z *zerologLogger) Warn(msg string, args ...any)  { z.emit(z.l.Warn(), msg, args) }
func (z *zerologLogger) Error(msg string, args ...any) { z.emit(z.l.Error(), msg, args) }

func (z *zerologLogger) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
