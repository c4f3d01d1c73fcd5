package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/archon-install/archon/internal/constants"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

// Log is the process-wide logger. It discards everything until
// SetLogger configures it.
var Log = zerolog.Nop()

// SetLogger sets up console logging on stderr and, best effort, a copy
// of the run under the log dir. The log file carries a fresh run id so
// consecutive runs do not clobber each other.
func SetLogger() {
	level := zerolog.InfoLevel
	if os.Getenv("ARCHON_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	if err := os.MkdirAll(constants.LogDir, 0o755); err == nil {
		runID := "unknown"
		if id, err := uuid.NewV4(); err == nil {
			runID = id.String()
		}
		f, err := os.Create(filepath.Join(constants.LogDir, fmt.Sprintf("archon-%s.log", runID)))
		if err == nil {
			writers = append(writers, f)
		}
	}

	Log = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger().Level(level)
}
