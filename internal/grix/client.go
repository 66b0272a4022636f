package grix

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"grix-mcp/internal/metrics"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	DefaultBaseURL = "https://z61hgkwkn8.execute-api.us-east-1.amazonaws.com/dev"
	DefaultTimeout = 30 * time.Second

	apiKeyHeader = "x-api-key"
	maxBodyBytes = 8 << 20
)

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the GRIX REST API. The API key is sent verbatim on every
// request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tracer     trace.Tracer
	log        zerolog.Logger
}

func NewClient(cfg ClientConfig, tracer trace.Tracer, log zerolog.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("grix")
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		tracer:     tracer,
		log:        log.With().Str("component", "grix_client").Logger(),
	}
}

// FetchOptionBoard returns the raw option board for one query shape.
// Anything other than a JSON array is an UpstreamFetchError.
func (c *Client) FetchOptionBoard(ctx context.Context, asset, optionType, positionType string, protocols []string) ([]RawOption, error) {
	q := url.Values{}
	q.Set("asset", asset)
	q.Set("optionType", optionType)
	q.Set("positionType", positionType)
	q.Set("protocols", strings.Join(protocols, ","))

	status, body, err := c.do(ctx, "fetch-option-board", http.MethodGet, "/elizatradeboard?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &UpstreamFetchError{Op: "fetch-option-board", StatusCode: status, Body: string(body), Err: ErrUnexpectedShape}
	}

	var options []RawOption
	if err := sonic.Unmarshal(trimmed, &options); err != nil {
		return nil, &UpstreamFetchError{Op: "fetch-option-board", StatusCode: status, Body: string(body), Err: fmt.Errorf("decode option board: %w", err)}
	}

	c.log.Debug().
		Str("asset", asset).
		Str("option_type", optionType).
		Str("position_type", positionType).
		Int("count", len(options)).
		Msg("Fetched option board")
	return options, nil
}

func (c *Client) CreateAgent(ctx context.Context, cfg TradeAgentConfig) (string, error) {
	status, body, err := c.do(ctx, "create-agent", http.MethodPost, "/trade-agents", cfg)
	if err != nil {
		return "", err
	}

	var resp createAgentResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return "", &UpstreamFetchError{Op: "create-agent", StatusCode: status, Body: string(body), Err: fmt.Errorf("decode agent: %w", err)}
	}
	if strings.TrimSpace(resp.AgentID) == "" {
		return "", &UpstreamFetchError{Op: "create-agent", StatusCode: status, Body: string(body), Err: ErrUnexpectedShape}
	}
	return resp.AgentID, nil
}

func (c *Client) SubmitSignalRequest(ctx context.Context, agentID string, cfg SignalRequestConfig) error {
	_, _, err := c.do(ctx, "submit-signal-request", http.MethodPost, "/trade-agents/"+url.PathEscape(agentID)+"/signal-requests", cfg)
	return err
}

func (c *Client) GetAgentState(ctx context.Context, agentID string) (AgentSnapshot, error) {
	status, body, err := c.do(ctx, "get-agent-state", http.MethodGet, "/trade-agents/"+url.PathEscape(agentID), nil)
	if err != nil {
		return AgentSnapshot{}, err
	}

	var snapshot AgentSnapshot
	if err := sonic.Unmarshal(body, &snapshot); err != nil {
		return AgentSnapshot{}, &UpstreamFetchError{Op: "get-agent-state", StatusCode: status, Body: string(body), Err: fmt.Errorf("decode agent state: %w", err)}
	}
	return snapshot, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) (status int, body []byte, err error) {
	ctx, span := c.tracer.Start(ctx, "grix."+op)
	span.SetAttributes(attribute.String("http.method", method))
	start := time.Now()
	defer func() {
		metrics.UpstreamLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		metrics.UpstreamRequests.WithLabelValues(op, metrics.Outcome(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if payload != nil {
		raw, mErr := sonic.Marshal(payload)
		if mErr != nil {
			return 0, nil, &UpstreamFetchError{Op: op, Err: fmt.Errorf("encode request: %w", mErr)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, &UpstreamFetchError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &UpstreamFetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, &UpstreamFetchError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("Upstream returned non-2xx")
		return resp.StatusCode, body, &UpstreamFetchError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return resp.StatusCode, body, nil
}
