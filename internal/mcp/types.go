package mcp

import (
	"encoding/json"
	"errors"

	"grix-mcp/internal/domain"
	"grix-mcp/internal/grix"
	"grix-mcp/internal/service"
)

type optionsInput struct {
	Asset        string `json:"asset,omitempty" jsonschema:"underlying asset: BTC or ETH (default BTC)"`
	OptionType   string `json:"optionType,omitempty" jsonschema:"option type: call or put (default call)"`
	PositionType string `json:"positionType,omitempty" jsonschema:"position type: long or short (default long)"`
}

type optionsOutput struct {
	Asset        string                   `json:"asset"`
	OptionType   string                   `json:"optionType"`
	PositionType string                   `json:"positionType"`
	Options      []domain.FormattedOption `json:"options"`
}

type generateSignalsInput struct {
	Budget     string   `json:"budget,omitempty" jsonschema:"budget in USD as a decimal string (default 5000)"`
	Assets     []string `json:"assets,omitempty" jsonschema:"assets to trade: any of BTC, ETH (default [BTC])"`
	UserPrompt string   `json:"userPrompt,omitempty" jsonschema:"strategy guidance for the signal agent"`
}

type generateSignalsOutput struct {
	Count   int             `json:"count"`
	Signals []domain.Signal `json:"signals"`
}

func normalizeOptionsInput(in optionsInput) (domain.OptionQuery, error) {
	return domain.ParseOptionQuery(in.Asset, in.OptionType, in.PositionType)
}

func normalizeGenerateSignalsInput(in generateSignalsInput) (domain.SignalRequest, error) {
	return domain.NewSignalRequest(in.Budget, in.Assets, in.UserPrompt)
}

// ToolError is the tool-level failure payload. Its Error text is the JSON
// document returned to the client.
type ToolError struct {
	Message   string `json:"error"`
	Details   string `json:"details"`
	Arguments any    `json:"arguments"`
}

func (e *ToolError) Error() string {
	body, err := json.Marshal(e)
	if err != nil {
		return e.Message + ": " + e.Details
	}
	return string(body)
}

func newToolError(tool string, err error, args any) *ToolError {
	msg := "Failed to run " + tool
	var timeout *service.SignalTimeoutError
	var upstream *grix.UpstreamFetchError
	switch {
	case errors.As(err, &timeout):
		msg = "Signal generation timed out"
	case errors.As(err, &upstream):
		msg = "Upstream request failed"
	case tool == "options":
		msg = "Failed to fetch options data"
	case tool == "generateSignals":
		msg = "Failed to generate signals"
	}
	return &ToolError{Message: msg, Details: err.Error(), Arguments: args}
}
