package domain

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseOptionQueryDefaults(t *testing.T) {
	q, err := ParseOptionQuery("", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Asset != AssetBTC || q.OptionType != OptionTypeCall || q.PositionType != PositionLong {
		t.Fatalf("unexpected defaults: %+v", q)
	}
	if q.Key() != "BTC|call|long" {
		t.Fatalf("unexpected key: %s", q.Key())
	}
}

func TestParseOptionQueryNormalizesCase(t *testing.T) {
	q, err := ParseOptionQuery(" eth ", "PUT", "Short")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Asset != "ETH" || q.OptionType != "put" || q.PositionType != "short" {
		t.Fatalf("unexpected normalization: %+v", q)
	}
}

func TestParseOptionQueryRejectsUnsupported(t *testing.T) {
	cases := [][3]string{
		{"SOL", "call", "long"},
		{"BTC", "straddle", "long"},
		{"BTC", "call", "flat"},
	}
	for _, c := range cases {
		if _, err := ParseOptionQuery(c[0], c[1], c[2]); err == nil {
			t.Fatalf("expected error for %v", c)
		}
	}
}

func TestOptionRecordFormatRenamesFields(t *testing.T) {
	rec := OptionRecord{
		ID:              7,
		Symbol:          "BTC-30000-C",
		Type:            "call",
		Expiry:          "2026-12-25T08:00:00Z",
		Strike:          decimal.RequireFromString("30000"),
		Protocol:        "deribit",
		Price:           decimal.RequireFromString("1250.5"),
		AvailableAmount: "3.2",
		MarketName:      "deribit-btc",
	}

	got := rec.Format()
	want := FormattedOption{
		ID:       7,
		Symbol:   "BTC-30000-C",
		Type:     "call",
		Expiry:   "2026-12-25T08:00:00Z",
		Strike:   30000,
		Protocol: "deribit",
		Price:    1250.5,
		Amount:   "3.2",
		Market:   "deribit-btc",
	}
	if got != want {
		t.Fatalf("unexpected projection:\n got %+v\nwant %+v", got, want)
	}
}

func TestNewSignalRequestDefaults(t *testing.T) {
	req, err := NewSignalRequest("", nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.BudgetUSD != DefaultBudgetUSD || req.UserPrompt != DefaultUserPrompt {
		t.Fatalf("unexpected defaults: %+v", req)
	}
	if !reflect.DeepEqual(req.Assets, []string{AssetBTC}) {
		t.Fatalf("expected default asset BTC, got %+v", req.Assets)
	}
	if req.TradeWindowMs != 604800000 || req.ContextWindowMs != 604800000 {
		t.Fatalf("unexpected windows: trade=%d context=%d", req.TradeWindowMs, req.ContextWindowMs)
	}
	if !reflect.DeepEqual(req.Protocols, DefaultProtocols) {
		t.Fatalf("unexpected protocols: %+v", req.Protocols)
	}

	req.Protocols[0] = "mutated"
	if DefaultProtocols[0] != "derive" {
		t.Fatal("request must not alias the default protocol list")
	}
}

func TestNewSignalRequestDedupesAssets(t *testing.T) {
	req, err := NewSignalRequest("1000", []string{"eth", "BTC", "ETH", " "}, "hedge")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(req.Assets, []string{"ETH", "BTC"}) {
		t.Fatalf("unexpected assets: %+v", req.Assets)
	}
}

func TestNewSignalRequestValidation(t *testing.T) {
	if _, err := NewSignalRequest("abc", nil, ""); err == nil {
		t.Fatal("expected invalid budget error")
	}
	if _, err := NewSignalRequest("-5", nil, ""); err == nil {
		t.Fatal("expected non-positive budget error")
	}
	if _, err := NewSignalRequest("100", []string{"DOGE"}, ""); err == nil {
		t.Fatal("expected unsupported asset error")
	}
}
