package sl

import (
	"io"
	"log/slog"
)

// Environments with verbose logging.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
)

// New returns a text logger writing to w: debug level for local and dev,
// info for everything else.
func New(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if env == EnvLocal || env == EnvDev {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
