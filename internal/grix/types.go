package grix

import (
	"bytes"
	"encoding/json"
	"fmt"

	"grix-mcp/internal/domain"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// RawOption is one row of the option board as the upstream returns it.
type RawOption struct {
	OptionID        int64           `json:"optionId"`
	Symbol          string          `json:"symbol"`
	Type            string          `json:"type"`
	Expiry          string          `json:"expiry"`
	Strike          decimal.Decimal `json:"strike"`
	Protocol        string          `json:"protocol"`
	MarketName      string          `json:"marketName"`
	ContractPrice   decimal.Decimal `json:"contractPrice"`
	AvailableAmount string          `json:"availableAmount"`
}

func (o RawOption) Record() domain.OptionRecord {
	return domain.OptionRecord{
		ID:              o.OptionID,
		Symbol:          o.Symbol,
		Type:            o.Type,
		Expiry:          o.Expiry,
		Strike:          o.Strike,
		Protocol:        o.Protocol,
		Price:           o.ContractPrice,
		AvailableAmount: o.AvailableAmount,
		MarketName:      o.MarketName,
	}
}

type SignalRequestConfig struct {
	BudgetUSD       string   `json:"budget_usd"`
	Assets          []string `json:"assets"`
	TradeWindowMs   int64    `json:"trade_window_ms"`
	ContextWindowMs int64    `json:"context_window_ms"`
	InputData       []string `json:"input_data"`
	Protocols       []string `json:"protocols"`
	UserPrompt      string   `json:"user_prompt"`
}

func NewSignalRequestConfig(req domain.SignalRequest) SignalRequestConfig {
	return SignalRequestConfig{
		BudgetUSD:       req.BudgetUSD,
		Assets:          req.Assets,
		TradeWindowMs:   req.TradeWindowMs,
		ContextWindowMs: req.ContextWindowMs,
		InputData:       req.InputData,
		Protocols:       req.Protocols,
		UserPrompt:      req.UserPrompt,
	}
}

// AgentSignalConfig is the signal template stored on the agent at creation.
// It carries no user prompt; that travels with each signal request.
type AgentSignalConfig struct {
	Protocols       []string `json:"protocols"`
	InputData       []string `json:"input_data"`
	ContextWindowMs int64    `json:"context_window_ms"`
	BudgetUSD       string   `json:"budget_usd"`
	Assets          []string `json:"assets"`
	TradeWindowMs   int64    `json:"trade_window_ms"`
}

type TradeAgentConfig struct {
	AgentName           string            `json:"agent_name"`
	IsSimulation        bool              `json:"is_simulation"`
	SignalRequestConfig AgentSignalConfig `json:"signal_request_config"`
}

func NewTradeAgentConfig(name string, req domain.SignalRequest) TradeAgentConfig {
	return TradeAgentConfig{
		AgentName:    name,
		IsSimulation: true,
		SignalRequestConfig: AgentSignalConfig{
			Protocols:       req.Protocols,
			InputData:       req.InputData,
			ContextWindowMs: req.ContextWindowMs,
			BudgetUSD:       req.BudgetUSD,
			Assets:          req.Assets,
			TradeWindowMs:   req.TradeWindowMs,
		},
	}
}

type createAgentResponse struct {
	AgentID string `json:"agent_id"`
}

type AgentSnapshot struct {
	PersonalAgents []PersonalAgent `json:"personal_agents"`
}

type PersonalAgent struct {
	SignalRequests []SignalRequestState `json:"signal_requests"`
}

type SignalRequestState struct {
	Progress string         `json:"progress"`
	Signals  []SignalRecord `json:"signals"`
}

type SignalRecord struct {
	ID        FlexID       `json:"id"`
	CreatedAt string       `json:"created_at"`
	UpdatedAt string       `json:"updated_at"`
	Signal    SignalDetail `json:"signal"`
}

type SignalDetail struct {
	ActionType                 string `json:"action_type"`
	PositionType               string `json:"position_type"`
	Instrument                 string `json:"instrument"`
	InstrumentType             string `json:"instrument_type"`
	Size                       string `json:"size"`
	ExpectedInstrumentPriceUSD string `json:"expected_instrument_price_usd"`
	ExpectedTotalPriceUSD      string `json:"expected_total_price_usd"`
	Reason                     string `json:"reason"`
	TargetPositionID           FlexID `json:"target_position_id,omitempty"`
}

// FlexID is an identifier the upstream may send as a JSON string or number.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := sonic.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}

const ProgressCompleted = "completed"

// LatestRequest returns the first signal request of the first personal agent.
func (s AgentSnapshot) LatestRequest() (SignalRequestState, bool) {
	if len(s.PersonalAgents) == 0 || len(s.PersonalAgents[0].SignalRequests) == 0 {
		return SignalRequestState{}, false
	}
	return s.PersonalAgents[0].SignalRequests[0], true
}

// Completed reports whether the request finished with at least one signal.
func (r SignalRequestState) Completed() bool {
	return r.Progress == ProgressCompleted && len(r.Signals) > 0
}

// Flatten lifts the nested upstream record into a domain.Signal.
func (r SignalRecord) Flatten() domain.Signal {
	return domain.Signal{
		ID:                         string(r.ID),
		ActionType:                 r.Signal.ActionType,
		PositionType:               r.Signal.PositionType,
		Instrument:                 r.Signal.Instrument,
		InstrumentType:             r.Signal.InstrumentType,
		Size:                       r.Signal.Size,
		ExpectedInstrumentPriceUSD: r.Signal.ExpectedInstrumentPriceUSD,
		ExpectedTotalPriceUSD:      r.Signal.ExpectedTotalPriceUSD,
		Reason:                     r.Signal.Reason,
		TargetPositionID:           string(r.Signal.TargetPositionID),
		CreatedAt:                  r.CreatedAt,
		UpdatedAt:                  r.UpdatedAt,
	}
}
