package mcp

import (
	"context"
	"fmt"
	"strings"

	"grix-mcp/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultAnalysisTimeframe = "1d"

const marketAnalysisTemplate = `Please analyze the market conditions for %s on the %s timeframe. Consider:

1. Current price action and trend
2. Key support and resistance levels
3. Volume analysis
4. Technical indicators (RSI, MACD, etc.)
5. Market sentiment
6. Potential entry/exit points

Use the "options" tool to inspect the current %s option board before suggesting positions.
Provide a comprehensive analysis with actionable insights.`

func registerPrompts(server *mcp.Server) {
	server.AddPrompt(&mcp.Prompt{
		Name:        "market-analysis",
		Description: "Analyze current market conditions and provide trading insights",
		Arguments: []*mcp.PromptArgument{
			{Name: "asset", Description: "The asset to analyze (BTC or ETH)", Required: true},
			{Name: "timeframe", Description: "The timeframe for analysis (e.g. 1h, 4h, 1d)"},
		},
	}, func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		asset := strings.ToUpper(strings.TrimSpace(req.Params.Arguments["asset"]))
		if !domain.IsSupportedAsset(asset) {
			return nil, fmt.Errorf("unsupported asset: %q", asset)
		}
		timeframe := strings.TrimSpace(req.Params.Arguments["timeframe"])
		if timeframe == "" {
			timeframe = defaultAnalysisTimeframe
		}

		return &mcp.GetPromptResult{
			Description: "Market analysis for " + asset,
			Messages: []*mcp.PromptMessage{{
				Role:    "user",
				Content: &mcp.TextContent{Text: fmt.Sprintf(marketAnalysisTemplate, asset, timeframe, asset)},
			}},
		}, nil
	})
}
