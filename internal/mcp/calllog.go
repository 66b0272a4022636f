package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// callLogger writes each entry to the server log and mirrors it to the
// calling client as notifications/message. The client only receives entries
// at or above the level it set with logging/setLevel.
type callLogger struct {
	server  zerolog.Logger
	session *slog.Logger
}

func newCallLogger(base zerolog.Logger, tool string, req *mcp.CallToolRequest) callLogger {
	l := callLogger{
		server:  base.With().Str("tool", tool).Logger(),
		session: slog.New(slog.DiscardHandler),
	}
	if req != nil && req.Session != nil {
		l.session = slog.New(mcp.NewLoggingHandler(req.Session, &mcp.LoggingHandlerOptions{
			LoggerName: serverName,
		})).With("tool", tool)
	}
	return l
}

// Info takes alternating key/value pairs.
func (l callLogger) Info(ctx context.Context, msg string, kv ...any) {
	l.server.Info().Fields(kv).Msg(msg)
	l.session.InfoContext(ctx, msg, kv...)
}

func (l callLogger) Error(ctx context.Context, err error, msg string, kv ...any) {
	l.server.Error().Err(err).Fields(kv).Msg(msg)
	l.session.ErrorContext(ctx, msg, append(kv, "error", err.Error())...)
}
