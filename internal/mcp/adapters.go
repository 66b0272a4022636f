package mcp

import (
	"context"

	"grix-mcp/internal/domain"
)

// OptionsReader serves cached option boards.
type OptionsReader interface {
	GetOptions(ctx context.Context, q domain.OptionQuery) ([]domain.FormattedOption, error)
}

// SignalGenerator runs one create/submit/poll signal workflow.
type SignalGenerator interface {
	GenerateSignals(ctx context.Context, req domain.SignalRequest) ([]domain.Signal, error)
}
