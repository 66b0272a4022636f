package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const DefaultGrixBaseURL = "https://z61hgkwkn8.execute-api.us-east-1.amazonaws.com/dev"

// ConfigurationError reports a missing or unusable setting. It is fatal at
// startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

type Config struct {
	GrixAPIKey          string
	GrixBaseURL         string
	UpstreamTimeoutSecs int

	OptionsCacheTTLSecs int
	OptionsWarmSecs     int

	SignalPollMaxAttempts int
	SignalPollDelayMs     int

	LogLevel           string
	LogBucket          string
	LogRegion          string
	LogFlushSecs       int
	LogFlushMaxEntries int

	RedisURL    string
	HTTPAPIPort int

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int

	OTLPEndpoint string
}

func (c *Config) OptionsCacheTTL() time.Duration {
	return time.Duration(c.OptionsCacheTTLSecs) * time.Second
}

func (c *Config) SignalPollDelay() time.Duration {
	return time.Duration(c.SignalPollDelayMs) * time.Millisecond
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSecs) * time.Second
}

func Load() (*Config, error) {
	cfg := &Config{
		GrixAPIKey:   strings.TrimSpace(os.Getenv("GRIX_API_KEY")),
		RedisURL:     strings.TrimSpace(os.Getenv("REDIS_URL")),
		MCPAuthToken: os.Getenv("MCP_AUTH_TOKEN"),
		LogBucket:    strings.TrimSpace(os.Getenv("LOG_BUCKET")),
		OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
	}

	if cfg.GrixAPIKey == "" {
		return nil, &ConfigurationError{Key: "GRIX_API_KEY", Reason: "is required"}
	}

	cfg.GrixBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("GRIX_API_BASE_URL")), "/")
	if cfg.GrixBaseURL == "" {
		cfg.GrixBaseURL = DefaultGrixBaseURL
	}
	if !strings.HasPrefix(cfg.GrixBaseURL, "http://") && !strings.HasPrefix(cfg.GrixBaseURL, "https://") {
		return nil, &ConfigurationError{Key: "GRIX_API_BASE_URL", Reason: "must be an http(s) URL"}
	}

	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, MCP rate limiting stays in-process")
	}

	cfg.UpstreamTimeoutSecs = positiveInt("UPSTREAM_TIMEOUT_SECS", 30)
	cfg.OptionsCacheTTLSecs = positiveInt("OPTIONS_CACHE_TTL_SECS", 300)
	cfg.OptionsWarmSecs = nonNegativeInt("OPTIONS_WARM_SECS", 0)
	cfg.SignalPollMaxAttempts = positiveInt("SIGNAL_POLL_MAX_ATTEMPTS", 10)
	cfg.SignalPollDelayMs = nonNegativeInt("SIGNAL_POLL_DELAY_MS", 2000)
	cfg.HTTPAPIPort = positiveInt("HTTP_API_PORT", 8080)

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.LogRegion = strings.TrimSpace(os.Getenv("LOG_REGION"))
	if cfg.LogRegion == "" {
		cfg.LogRegion = "us-east-1"
	}
	cfg.LogFlushSecs = positiveInt("LOG_FLUSH_SECS", 300)
	cfg.LogFlushMaxEntries = positiveInt("LOG_FLUSH_MAX_ENTRIES", 100)

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}
	cfg.MCPHTTPPort = positiveInt("MCP_HTTP_PORT", 8090)

	// a tool call may run a full poll cycle, so this must exceed attempts*delay
	cfg.MCPRequestTimeoutSecs = positiveInt("MCP_REQUEST_TIMEOUT_SECS", 60)
	cfg.MCPRateLimitPerMin = positiveInt("MCP_RATE_LIMIT_PER_MIN", 60)

	pollBudget := time.Duration(cfg.SignalPollMaxAttempts-1) * cfg.SignalPollDelay()
	if time.Duration(cfg.MCPRequestTimeoutSecs)*time.Second <= pollBudget {
		log.Printf("Warning: MCP_REQUEST_TIMEOUT_SECS=%d is shorter than the signal poll budget %s", cfg.MCPRequestTimeoutSecs, pollBudget)
	}

	return cfg, nil
}

func positiveInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
	}
	return fallback
}

func nonNegativeInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
	}
	return fallback
}
