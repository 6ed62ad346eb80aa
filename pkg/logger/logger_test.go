package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type logLine struct {
	Level  string `json:"level"`
	Msg    string `json:"message"`
	Reason string `json:"reason"`
}

func TestLoggerLevels(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	log := New(buf)

	methods := []struct {
		fn    func(msg string, args ...any)
		level string
	}{
		{log.Debug, "debug"},
		{log.Info, "info"},
		{log.Warn, "warn"},
		{log.Error, "error"},
	}

	for _, m := range methods {
		t.Run(fmt.Sprintf("level %s", m.level), func(t *testing.T) {
			buf.Reset()
			m.fn("something happened", "reason", "testing")

			var line logLine
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			require.Equal(t, m.level, line.Level)
			require.Equal(t, "something happened", line.Msg)
			require.Equal(t, "testing", line.Reason)
		})
	}
}

func TestLoggerOddArgs(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	log := New(buf)

	// a dangling key must not panic, it is simply dropped
	log.Info("odd", "key")

	var line logLine
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "odd", line.Msg)
}
