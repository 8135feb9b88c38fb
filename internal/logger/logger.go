package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Mode picks the handler New builds.
type Mode uint8

const (
	ModeDev Mode = iota
	ModeProd
	ModeSilent
)

func (m Mode) String() string {
	switch m {
	case ModeDev:
		return "dev"
	case ModeProd:
		return "prod"
	case ModeSilent:
		return "silent"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "dev":
		return ModeDev, nil
	case "prod":
		return ModeProd, nil
	case "silent":
		return ModeSilent, nil
	}
	return 0, fmt.Errorf("unknown log mode %q (want dev, prod or silent)", s)
}

// New returns a logger for mode: dev is text on stderr at debug, prod is JSON
// on stdout at info, silent discards everything.
func New(mode Mode) *slog.Logger {
	return slog.New(Handler(mode, nil))
}

// Handler builds the handler for mode. A nil w keeps the mode's default stream.
func Handler(mode Mode, w io.Writer) slog.Handler {
	switch mode {
	case ModeProd:
		if w == nil {
			w = os.Stdout
		}
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	case ModeSilent:
		return slog.DiscardHandler
	default:
		if w == nil {
			w = os.Stderr
		}
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
}
