package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_SetByName(t *testing.T) {
	defer Level.Set(slog.LevelInfo)

	tests := map[string]struct {
		name  string
		want  slog.Level
		known bool
	}{
		"error":       {name: "error", want: slog.LevelError, known: true},
		"err alias":   {name: "ERR", want: slog.LevelError, known: true},
		"warning":     {name: "warning", want: slog.LevelWarn, known: true},
		"debug":       {name: " debug ", want: slog.LevelDebug, known: true},
		"empty":       {name: "", want: slog.LevelInfo, known: true},
		"unknown set": {name: "verbose", want: slog.LevelInfo, known: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			Level.Set(slog.LevelInfo)

			assert.Equal(t, test.known, Level.SetByName(test.name))
			assert.Equal(t, test.want, Level.lvl.Level())
		})
	}
}

func TestNew_TextHandler(t *testing.T) {
	defer Level.Set(slog.LevelInfo)
	Level.Set(slog.LevelInfo)

	var buf bytes.Buffer
	log := New(&buf)

	log.Debug("hidden")
	log.Info("added file", "name", "a.png")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="added file"`)
	assert.Contains(t, out, "name=a.png")
	assert.NotContains(t, out, "time=")
}

func TestTerminalHandler_Source(t *testing.T) {
	defer Level.Set(slog.LevelInfo)

	var buf bytes.Buffer
	Level.Set(slog.LevelInfo)
	slog.New(newTerminalHandler(&buf)).Info("compared")
	assert.NotContains(t, buf.String(), "logger_test.go")

	buf.Reset()
	Level.Set(slog.LevelDebug)
	slog.New(newTerminalHandler(&buf)).Debug("compared")
	assert.Contains(t, buf.String(), "logger_test.go")
}
