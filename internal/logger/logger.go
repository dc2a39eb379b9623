package logger

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// New returns a logger writing to w. Terminals get a colored tint handler
// that adds source locations at debug level, anything else gets slog's text
// handler with lowercase levels.
func New(w io.Writer) *slog.Logger {
	if isTerminal(w) {
		return slog.New(newTerminalHandler(w))
	}

	return slog.New(newTextHandler(w))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newTextHandler(w io.Writer) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: Level.lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{}
			case slog.LevelKey:
				lvl := a.Value.Any().(slog.Level)
				return slog.String(a.Key, strings.ToLower(lvl.String()))
			}
			return a
		},
	})
}

func newTerminalHandler(w io.Writer) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		NoColor:    runtime.GOOS == "windows",
		Level:      Level.lvl,
		TimeFormat: "15:04:05",
		AddSource:  Level.Enabled(slog.LevelDebug),
	})
}
