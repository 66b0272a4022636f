package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type SignalRequest struct {
	BudgetUSD       string
	Assets          []string
	TradeWindowMs   int64
	ContextWindowMs int64
	InputData       []string
	Protocols       []string
	UserPrompt      string
}

// NewSignalRequest builds a request from caller input, filling the fixed
// windows, input channels and protocol allow-list. Empty values fall back to
// DefaultBudgetUSD, [BTC] and DefaultUserPrompt.
func NewSignalRequest(budget string, assets []string, userPrompt string) (SignalRequest, error) {
	budget = strings.TrimSpace(budget)
	if budget == "" {
		budget = DefaultBudgetUSD
	}
	amount, err := decimal.NewFromString(budget)
	if err != nil {
		return SignalRequest{}, fmt.Errorf("invalid budget: %s", budget)
	}
	if !amount.IsPositive() {
		return SignalRequest{}, fmt.Errorf("budget must be positive: %s", budget)
	}

	normalized := make([]string, 0, len(assets))
	seen := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		if strings.TrimSpace(asset) == "" {
			continue
		}
		a, err := normalizeAsset(asset)
		if err != nil {
			return SignalRequest{}, err
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		normalized = append(normalized, a)
	}
	if len(normalized) == 0 {
		normalized = []string{AssetBTC}
	}

	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		userPrompt = DefaultUserPrompt
	}

	return SignalRequest{
		BudgetUSD:       budget,
		Assets:          normalized,
		TradeWindowMs:   DefaultTradeWindow.Milliseconds(),
		ContextWindowMs: DefaultContextWindow.Milliseconds(),
		InputData:       append([]string(nil), DefaultInputData...),
		Protocols:       append([]string(nil), DefaultProtocols...),
		UserPrompt:      userPrompt,
	}, nil
}

type Signal struct {
	ID                         string `json:"id"`
	ActionType                 string `json:"action_type"`
	PositionType               string `json:"position_type"`
	Instrument                 string `json:"instrument"`
	InstrumentType             string `json:"instrument_type"`
	Size                       string `json:"size"`
	ExpectedInstrumentPriceUSD string `json:"expected_instrument_price_usd"`
	ExpectedTotalPriceUSD      string `json:"expected_total_price_usd"`
	Reason                     string `json:"reason"`
	TargetPositionID           string `json:"target_position_id,omitempty"`
	CreatedAt                  string `json:"created_at"`
	UpdatedAt                  string `json:"updated_at"`
}
