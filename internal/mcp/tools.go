package mcp

import (
	"context"
	"fmt"

	"grix-mcp/internal/domain"
	"grix-mcp/internal/service"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

func registerTools(server *mcp.Server, options OptionsReader, signals SignalGenerator, log zerolog.Logger) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "options",
		Description: "Get available option contracts for an asset across supported protocols, sorted by strike",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in optionsInput) (*mcp.CallToolResult, optionsOutput, error) {
		if options == nil {
			return nil, optionsOutput{}, newToolError("options", fmt.Errorf("options service unavailable"), in)
		}
		q, err := normalizeOptionsInput(in)
		if err != nil {
			return nil, optionsOutput{}, newToolError("options", err, in)
		}
		clog := newCallLogger(log, "options", req)
		result, err := options.GetOptions(ctx, q)
		if err != nil {
			clog.Error(ctx, err, "Failed to fetch options data", "key", q.Key())
			return nil, optionsOutput{}, newToolError("options", err, q)
		}
		if result == nil {
			result = []domain.FormattedOption{}
		}
		clog.Info(ctx, "Options served", "key", q.Key(), "count", len(result))
		return nil, optionsOutput{
			Asset:        q.Asset,
			OptionType:   q.OptionType,
			PositionType: q.PositionType,
			Options:      result,
		}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generateSignals",
		Description: "Generate trading signals with a simulated GRIX trade agent; waits for the agent to finish",
	}, func(ctx context.Context, req *mcp.CallToolRequest, in generateSignalsInput) (*mcp.CallToolResult, generateSignalsOutput, error) {
		if signals == nil {
			return nil, generateSignalsOutput{}, newToolError("generateSignals", fmt.Errorf("signal service unavailable"), in)
		}
		sr, err := normalizeGenerateSignalsInput(in)
		if err != nil {
			return nil, generateSignalsOutput{}, newToolError("generateSignals", err, in)
		}

		clog := newCallLogger(log, "generateSignals", req)
		ctx = withProgressNotifications(ctx, req, clog)
		result, err := signals.GenerateSignals(ctx, sr)
		if err != nil {
			clog.Error(ctx, err, "Failed to generate signals")
			return nil, generateSignalsOutput{}, newToolError("generateSignals", err, in)
		}
		if result == nil {
			result = []domain.Signal{}
		}
		clog.Info(ctx, "Signals generated", "count", len(result))
		return nil, generateSignalsOutput{Count: len(result), Signals: result}, nil
	})
}

// withProgressNotifications reports workflow transitions to the client log
// and, when the call carries a progress token, as progress notifications.
func withProgressNotifications(ctx context.Context, req *mcp.CallToolRequest, clog callLogger) context.Context {
	var token any
	if req != nil && req.Session != nil && req.Params != nil {
		token = req.Params.GetProgressToken()
	}
	return service.ContextWithProgress(ctx, func(state service.WorkflowState, step, total int) {
		clog.Info(ctx, "Signal workflow state", "state", string(state), "step", step)
		if token == nil {
			return
		}
		err := req.Session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
			ProgressToken: token,
			Progress:      float64(step),
			Total:         float64(total),
			Message:       string(state),
		})
		if err != nil {
			// routine once the request context has expired
			clog.server.Debug().Err(err).Str("state", string(state)).Msg("progress notification dropped")
		}
	})
}
