package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the process logger. Output always includes stderr; stdout is
// reserved for the MCP stdio stream. Extra writers (e.g. the S3 log sink)
// receive the same JSON lines.
func New(level string, extra ...io.Writer) zerolog.Logger {
	return newWithOutput(level, os.Stderr, extra...)
}

func newWithOutput(level string, out io.Writer, extra ...io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer = out
	if len(extra) > 0 {
		writers := make([]io.Writer, 0, len(extra)+1)
		writers = append(writers, out)
		for _, e := range extra {
			if e != nil {
				writers = append(writers, e)
			}
		}
		w = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
