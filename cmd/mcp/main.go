package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"grix-mcp/internal/cache"
	"grix-mcp/internal/config"
	"grix-mcp/internal/grix"
	"grix-mcp/internal/job"
	"grix-mcp/internal/logging"
	"grix-mcp/internal/logsink"
	mcpserver "grix-mcp/internal/mcp"
	"grix-mcp/internal/service"
	"grix-mcp/pkg/tracing"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const defaultMCPHTTPMaxBodyBytes int64 = 1 << 20 // 1MiB

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newLogSinkFunc    = logsink.NewS3
	newMCPServerFunc  = mcpserver.NewServer
	newMCPHandlerFunc = mcpserver.NewHTTPTransportHandler
	newGrixClientFunc = func(cfg *config.Config, tracer trace.Tracer, log zerolog.Logger) *grix.Client {
		return grix.NewClient(grix.ClientConfig{
			BaseURL: cfg.GrixBaseURL,
			APIKey:  cfg.GrixAPIKey,
			Timeout: cfg.UpstreamTimeout(),
		}, tracer, log)
	}
	startWarmerFunc = func(w *job.OptionsWarmer, ctx context.Context) { go w.Start(ctx) }
	runStdioFunc    = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	stopSignalNotify     = ossignal.Stop
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
	exitFunc             = os.Exit
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "grix-mcp: %v\n", err)
		exitFunc(1)
	}
}

func run() error {
	_ = loadEnvFunc()
	cfg, err := loadConfigFunc()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, closeLogs := newLogger(ctx, cfg)
	defer closeLogs()

	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, MCP rate limiting stays in-process")
	}

	tp, tracer, err := initTracerFunc(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutting down tracer provider")
		}
	}()

	client := newGrixClientFunc(cfg, tracer, logger)
	optionsService := service.NewOptionsService(tracer, client, service.NewOptionsCache(cfg.OptionsCacheTTL()), nil, logger)
	workflow := service.NewSignalWorkflow(tracer, client, service.PollPolicy{
		MaxAttempts: cfg.SignalPollMaxAttempts,
		Delay:       cfg.SignalPollDelay(),
	}, service.SleepContext, logger)

	if cfg.OptionsWarmSecs > 0 {
		warmer := job.NewOptionsWarmer(tracer, optionsService, time.Duration(cfg.OptionsWarmSecs)*time.Second, logger)
		startWarmerFunc(warmer, ctx)
	}

	mcpSrv := newMCPServerFunc(tracer, optionsService, workflow, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
		Log:            logger,
	})

	switch cfg.MCPTransport {
	case "", "stdio":
		return runStdioMode(ctx, cancel, mcpSrv, logger)
	case "http":
		return runHTTPMode(ctx, cancel, cfg, mcpSrv, logger)
	default:
		return fmt.Errorf("unsupported MCP_TRANSPORT: %s", cfg.MCPTransport)
	}
}

// runStdioMode serves until the client disconnects or a signal arrives.
// Signals cancel ctx so deferred shutdown (final log flush) still runs.
func runStdioMode(ctx context.Context, cancel context.CancelFunc, mcpSrv *sdkmcp.Server, logger zerolog.Logger) error {
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignalNotify(quit)
	go func() {
		select {
		case sig := <-quit:
			logger.Info().Str("signal", sig.String()).Msg("shutting down MCP stdio server")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info().Msg("serving MCP over stdio")
	if err := runStdioFunc(ctx, mcpSrv); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp stdio server failed: %w", err)
	}
	return nil
}

// newLogger tees structured logs into the S3 sink when LOG_BUCKET is set.
func newLogger(ctx context.Context, cfg *config.Config) (zerolog.Logger, func()) {
	stderr := logging.New(cfg.LogLevel)
	if cfg.LogBucket == "" {
		return stderr, func() {}
	}

	sink, err := newLogSinkFunc(ctx, cfg.LogRegion, logsink.Config{
		Bucket:        cfg.LogBucket,
		FlushInterval: time.Duration(cfg.LogFlushSecs) * time.Second,
		MaxEntries:    cfg.LogFlushMaxEntries,
	}, stderr)
	if err != nil {
		stderr.Warn().Err(err).Msg("log sink disabled")
		return stderr, func() {}
	}
	if err := sink.Start(); err != nil {
		stderr.Warn().Err(err).Msg("log sink disabled")
		return stderr, func() {}
	}

	return logging.New(cfg.LogLevel, sink), func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sink.Close(closeCtx); err != nil {
			stderr.Error().Err(err).Msg("final log flush failed")
		}
	}
}

func runHTTPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server, logger zerolog.Logger) error {
	if !cfg.MCPHTTPEnabled {
		return fmt.Errorf("MCP_HTTP_ENABLED must be true when MCP_TRANSPORT=http")
	}
	if cfg.MCPAuthToken == "" {
		return fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}

	handler := newMCPHandlerFunc(mcpSrv, mcpserver.HTTPHandlerConfig{
		AuthToken:       cfg.MCPAuthToken,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    defaultMCPHTTPMaxBodyBytes,
		Redis:           cache.Client,
		Log:             logger,
	})

	addr := net.JoinHostPort(cfg.MCPHTTPBind, fmt.Sprintf("%d", cfg.MCPHTTPPort))
	srv := &http.Server{Addr: addr, Handler: handler}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("serving MCP over streamable HTTP")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignalNotify(quit)
	stopped := make(chan struct{})
	go func() {
		waitForSignalFunc(quit)
		close(stopped)
	}()

	select {
	case err := <-serveErr:
		cancel()
		return fmt.Errorf("mcp http server failed: %w", err)
	case <-stopped:
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}
