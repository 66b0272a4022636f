package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OptionQuery identifies one option-board shape. Asset is upper-case,
// OptionType and PositionType are lower-case once parsed.
type OptionQuery struct {
	Asset        string `json:"asset"`
	OptionType   string `json:"optionType"`
	PositionType string `json:"positionType"`
}

// ParseOptionQuery applies defaults (BTC, call, long) and rejects values
// outside the supported sets.
func ParseOptionQuery(asset, optionType, positionType string) (OptionQuery, error) {
	a, err := normalizeAsset(asset)
	if err != nil {
		return OptionQuery{}, err
	}

	ot := strings.ToLower(strings.TrimSpace(optionType))
	if ot == "" {
		ot = OptionTypeCall
	}
	if !contains(SupportedOptionTypes, ot) {
		return OptionQuery{}, fmt.Errorf("unsupported option type: %s", ot)
	}

	pt := strings.ToLower(strings.TrimSpace(positionType))
	if pt == "" {
		pt = PositionLong
	}
	if !contains(SupportedPositionTypes, pt) {
		return OptionQuery{}, fmt.Errorf("unsupported position type: %s", pt)
	}

	return OptionQuery{Asset: a, OptionType: ot, PositionType: pt}, nil
}

// Key is the cache key for the query.
func (q OptionQuery) Key() string {
	return q.Asset + "|" + q.OptionType + "|" + q.PositionType
}

type OptionRecord struct {
	ID              int64
	Symbol          string
	Type            string
	Expiry          string
	Strike          decimal.Decimal
	Protocol        string
	Price           decimal.Decimal
	AvailableAmount string
	MarketName      string
}

// FormattedOption is the display projection returned to tool callers.
type FormattedOption struct {
	ID       int64   `json:"id"`
	Symbol   string  `json:"symbol"`
	Type     string  `json:"type"`
	Expiry   string  `json:"expiry"`
	Strike   float64 `json:"strike"`
	Protocol string  `json:"protocol"`
	Price    float64 `json:"price"`
	Amount   string  `json:"amount"`
	Market   string  `json:"market"`
}

func (o OptionRecord) Format() FormattedOption {
	return FormattedOption{
		ID:       o.ID,
		Symbol:   o.Symbol,
		Type:     o.Type,
		Expiry:   o.Expiry,
		Strike:   o.Strike.InexactFloat64(),
		Protocol: o.Protocol,
		Price:    o.Price.InexactFloat64(),
		Amount:   o.AvailableAmount,
		Market:   o.MarketName,
	}
}
