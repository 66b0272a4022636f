package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"

	"grix-mcp/internal/config"
	"grix-mcp/internal/job"
	"grix-mcp/internal/logsink"
	mcpserver "grix-mcp/internal/mcp"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainMCPStdio(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	called := false
	origRunStdio := runStdioFunc
	runStdioFunc = func(ctx context.Context, server *sdkmcp.Server) error {
		called = true
		return nil
	}
	defer func() { runStdioFunc = origRunStdio }()

	main()

	if !called {
		t.Fatal("expected stdio transport to run")
	}
}

func TestMainMCPHTTP(t *testing.T) {
	restore := stubMCPDeps(t, "http")
	defer restore()

	httpStarted := false
	started := make(chan struct{})
	origStartHTTP := startHTTPServerFunc
	origNotify := setupSignalNotify
	origWait := waitForSignalFunc
	origShutdown := shutdownHTTPServerFn

	startHTTPServerFunc = func(*http.Server) error {
		httpStarted = true
		close(started)
		return http.ErrServerClosed
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) { <-started }
	shutdownHTTPServerFn = func(*http.Server, context.Context) error { return nil }

	defer func() {
		startHTTPServerFunc = origStartHTTP
		setupSignalNotify = origNotify
		waitForSignalFunc = origWait
		shutdownHTTPServerFn = origShutdown
	}()

	main()

	if !httpStarted {
		t.Fatal("expected http transport to start")
	}
}

func TestRunStdioStopsOnSignalAndFlushesLogs(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	uploader := &captureUploader{}
	origLoadConfig := loadConfigFunc
	origNewSink := newLogSinkFunc
	origRunStdio := runStdioFunc
	loadConfigFunc = func() (*config.Config, error) {
		cfg, _ := origLoadConfig()
		cfg.LogLevel = "info"
		cfg.LogBucket = "grix-logs"
		cfg.LogFlushSecs = 300
		cfg.LogFlushMaxEntries = 100
		return cfg, nil
	}
	newLogSinkFunc = func(_ context.Context, _ string, cfg logsink.Config, log zerolog.Logger) (*logsink.Sink, error) {
		return logsink.New(uploader, cfg, log), nil
	}
	setupSignalNotify = func(c chan<- os.Signal, _ ...os.Signal) {
		go func() { c <- syscall.SIGTERM }()
	}
	runStdioFunc = func(ctx context.Context, _ *sdkmcp.Server) error {
		<-ctx.Done()
		return ctx.Err()
	}
	defer func() {
		loadConfigFunc = origLoadConfig
		newLogSinkFunc = origNewSink
		runStdioFunc = origRunStdio
	}()

	if err := run(); err != nil {
		t.Fatalf("signal shutdown should be clean, got %v", err)
	}
	if len(uploader.bodies) != 1 {
		t.Fatalf("expected one final flush, got %d", len(uploader.bodies))
	}
	body := uploader.bodies[0]
	if !strings.Contains(body, "serving MCP over stdio") || !strings.Contains(body, "shutting down MCP stdio server") {
		t.Fatalf("flushed logs missing shutdown entries: %s", body)
	}
}

func TestRunStdioReportsTransportError(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	origRunStdio := runStdioFunc
	runStdioFunc = func(context.Context, *sdkmcp.Server) error { return errors.New("broken pipe") }
	defer func() { runStdioFunc = origRunStdio }()

	err := run()
	if err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Fatalf("expected stdio failure, got %v", err)
	}
}

func TestRunHTTPExitsOnListenFailure(t *testing.T) {
	restore := stubMCPDeps(t, "http")
	defer restore()

	origStartHTTP := startHTTPServerFunc
	origWait := waitForSignalFunc
	block := make(chan struct{})
	startHTTPServerFunc = func(*http.Server) error { return errors.New("listen tcp 127.0.0.1:8090: bind: address already in use") }
	waitForSignalFunc = func(<-chan os.Signal) { <-block }
	defer func() {
		close(block)
		startHTTPServerFunc = origStartHTTP
		waitForSignalFunc = origWait
	}()

	code := 0
	origExit := exitFunc
	exitFunc = func(c int) { code = c }
	defer func() { exitFunc = origExit }()

	main()

	if code != 1 {
		t.Fatalf("expected exit code 1 on bind failure, got %d", code)
	}
}

func TestMainStartsWarmerWhenEnabled(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	origLoadConfig := loadConfigFunc
	loadConfigFunc = func() (*config.Config, error) {
		cfg, _ := origLoadConfig()
		cfg.OptionsWarmSecs = 30
		return cfg, nil
	}

	var started atomic.Bool
	origStartWarmer := startWarmerFunc
	startWarmerFunc = func(*job.OptionsWarmer, context.Context) { started.Store(true) }
	origRunStdio := runStdioFunc
	runStdioFunc = func(context.Context, *sdkmcp.Server) error { return nil }
	defer func() {
		loadConfigFunc = origLoadConfig
		startWarmerFunc = origStartWarmer
		runStdioFunc = origRunStdio
	}()

	main()

	if !started.Load() {
		t.Fatal("expected options warmer to start")
	}
}

func TestMainExitsOnConfigurationError(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	code := 0
	origExit := exitFunc
	origLoadConfig := loadConfigFunc
	exitFunc = func(c int) { code = c }
	loadConfigFunc = func() (*config.Config, error) {
		return nil, &config.ConfigurationError{Key: "GRIX_API_KEY", Reason: "is required"}
	}
	defer func() {
		exitFunc = origExit
		loadConfigFunc = origLoadConfig
	}()

	main()

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	restore := stubMCPDeps(t, "sse")
	defer restore()

	err := run()
	if err == nil || !strings.Contains(err.Error(), "unsupported MCP_TRANSPORT") {
		t.Fatalf("expected unsupported transport error, got %v", err)
	}
}

func TestRunContinuesWithoutRedis(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	origInitRedis := initRedisFunc
	origRunStdio := runStdioFunc
	initRedisFunc = func(context.Context, string) error { return errors.New("connection refused") }
	runStdioFunc = func(context.Context, *sdkmcp.Server) error { return nil }
	defer func() {
		initRedisFunc = origInitRedis
		runStdioFunc = origRunStdio
	}()

	if err := run(); err != nil {
		t.Fatalf("redis failure must not be fatal: %v", err)
	}
}

func TestMainMCPHTTPRequiresToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		MCPHTTPEnabled: true,
		MCPHTTPBind:    "127.0.0.1",
		MCPHTTPPort:    8090,
	}
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test"}, nil)

	err := runHTTPMode(ctx, cancel, cfg, srv, testLogger())
	if err == nil {
		t.Fatal("expected missing token error")
	}
	if !strings.Contains(err.Error(), "MCP_AUTH_TOKEN is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMainMCPHTTPRequiresEnableFlag(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{MCPAuthToken: "secret"}
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test"}, nil)

	err := runHTTPMode(ctx, cancel, cfg, srv, testLogger())
	if err == nil || !strings.Contains(err.Error(), "MCP_HTTP_ENABLED") {
		t.Fatalf("expected enable flag error, got %v", err)
	}
}

func stubMCPDeps(t *testing.T, transport string) func() {
	t.Helper()

	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewMCPServer := newMCPServerFunc
	origNewMCPHandler := newMCPHandlerFunc
	origNotify := setupSignalNotify
	origStopNotify := stopSignalNotify

	setupSignalNotify = func(chan<- os.Signal, ...os.Signal) {}
	stopSignalNotify = func(chan<- os.Signal) {}
	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() (*config.Config, error) {
		return &config.Config{
			GrixAPIKey:            "test-key",
			GrixBaseURL:           "http://127.0.0.1:1",
			UpstreamTimeoutSecs:   1,
			OptionsCacheTTLSecs:   300,
			SignalPollMaxAttempts: 10,
			SignalPollDelayMs:     2000,
			LogLevel:              "error",
			MCPTransport:          transport,
			MCPHTTPEnabled:        true,
			MCPHTTPBind:           "127.0.0.1",
			MCPHTTPPort:           8090,
			MCPAuthToken:          "secret",
			MCPRequestTimeoutSecs: 60,
			MCPRateLimitPerMin:    60,
		}, nil
	}
	initRedisFunc = func(context.Context, string) error { return nil }
	initTracerFunc = func(ctx context.Context, endpoint string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newMCPServerFunc = func(trace.Tracer, mcpserver.OptionsReader, mcpserver.SignalGenerator, mcpserver.ServerConfig) *sdkmcp.Server {
		return sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test-mcp"}, nil)
	}
	newMCPHandlerFunc = func(server *sdkmcp.Server, cfg mcpserver.HTTPHandlerConfig) http.Handler {
		return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newMCPServerFunc = origNewMCPServer
		newMCPHandlerFunc = origNewMCPHandler
		setupSignalNotify = origNotify
		stopSignalNotify = origStopNotify
	}
}
