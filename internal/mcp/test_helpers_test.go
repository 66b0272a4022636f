package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"grix-mcp/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubOptionsService struct {
	options []domain.FormattedOption
	err     error

	calls     int
	lastQuery domain.OptionQuery
}

func (s *stubOptionsService) GetOptions(ctx context.Context, q domain.OptionQuery) ([]domain.FormattedOption, error) {
	s.calls++
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.FormattedOption(nil), s.options...), nil
}

type stubSignalService struct {
	signals []domain.Signal
	err     error

	lastRequest domain.SignalRequest
}

func (s *stubSignalService) GenerateSignals(ctx context.Context, req domain.SignalRequest) ([]domain.Signal, error) {
	s.lastRequest = req
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Signal(nil), s.signals...), nil
}

func testServer() (*sdkmcp.Server, *stubOptionsService, *stubSignalService) {
	options := &stubOptionsService{
		options: []domain.FormattedOption{
			{ID: 1, Symbol: "BTC-27JUN25-30000-C", Type: "call", Expiry: "2025-06-27", Strike: 30000, Protocol: "derive", Price: 4100.5, Amount: "2", Market: "Derive"},
			{ID: 2, Symbol: "BTC-27JUN25-35000-C", Type: "call", Expiry: "2025-06-27", Strike: 35000, Protocol: "aevo", Price: 2900, Amount: "1.25", Market: "Aevo"},
		},
	}
	signals := &stubSignalService{
		signals: []domain.Signal{{
			ID:                         "sig-1",
			ActionType:                 "open",
			PositionType:               "long",
			Instrument:                 "BTC-27JUN25-35000-C",
			InstrumentType:             "option",
			Size:                       "1",
			ExpectedInstrumentPriceUSD: "2900",
			ExpectedTotalPriceUSD:      "2900",
			Reason:                     "trend continuation",
			CreatedAt:                  time.Unix(0, 0).UTC().Format(time.RFC3339),
			UpdatedAt:                  time.Unix(0, 0).UTC().Format(time.RFC3339),
		}},
	}

	srv := NewServer(nil, options, signals, ServerConfig{RequestTimeout: time.Second})
	return srv, options, signals
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type authRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}

func toolText(result *sdkmcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
