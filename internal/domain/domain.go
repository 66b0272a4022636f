package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	AssetBTC = "BTC"
	AssetETH = "ETH"

	OptionTypeCall = "call"
	OptionTypePut  = "put"

	PositionLong  = "long"
	PositionShort = "short"
)

var SupportedAssets = []string{AssetBTC, AssetETH}

var SupportedOptionTypes = []string{OptionTypeCall, OptionTypePut}

var SupportedPositionTypes = []string{PositionLong, PositionShort}

// DefaultProtocols is the venue allow-list sent with every upstream request.
var DefaultProtocols = []string{"derive", "aevo", "premia", "moby", "ithaca", "zomma", "deribit"}

// DefaultInputData lists the data channels a signal agent is allowed to read.
var DefaultInputData = []string{"marketData", "assetPrice", "socialSentiment"}

const (
	DefaultAgentName     = "grix-mcp-agent"
	DefaultBudgetUSD     = "5000"
	DefaultUserPrompt    = "Generate moderate growth strategies"
	DefaultTradeWindow   = 7 * 24 * time.Hour
	DefaultContextWindow = 604800000 * time.Millisecond
)

func IsSupportedAsset(asset string) bool {
	return contains(SupportedAssets, asset)
}

func normalizeAsset(asset string) (string, error) {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if asset == "" {
		return AssetBTC, nil
	}
	if !IsSupportedAsset(asset) {
		return "", fmt.Errorf("unsupported asset: %s", asset)
	}
	return asset, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
