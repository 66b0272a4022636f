package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"grix-mcp/internal/cache"
	"grix-mcp/internal/config"
	"grix-mcp/internal/grix"
	"grix-mcp/internal/handler"
	"grix-mcp/internal/job"
	"grix-mcp/internal/logging"
	"grix-mcp/internal/service"
	"grix-mcp/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc       = godotenv.Load
	loadConfigFunc    = config.Load
	initRedisFunc     = cache.InitRedis
	initTracerFunc    = tracing.InitTracer
	newGrixClientFunc = func(cfg *config.Config, tracer trace.Tracer, log zerolog.Logger) *grix.Client {
		return grix.NewClient(grix.ClientConfig{
			BaseURL: cfg.GrixBaseURL,
			APIKey:  cfg.GrixAPIKey,
			Timeout: cfg.UpstreamTimeout(),
		}, tracer, log)
	}
	startWarmerFunc        = func(w *job.OptionsWarmer, ctx context.Context) { go w.Start(ctx) }
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	exitFunc               = os.Exit
)

// @title           GRIX REST API
// @version         1.1
// @description     Option boards and simulated trade-agent signals backed by GRIX.

// @host      localhost:8080
// @BasePath  /
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "grix-server: %v\n", err)
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

	logger := logging.New(cfg.LogLevel)

	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable")
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

	// Start background warmer (stopped by ctx cancel)
	if cfg.OptionsWarmSecs > 0 {
		warmer := job.NewOptionsWarmer(tracer, optionsService, time.Duration(cfg.OptionsWarmSecs)*time.Second, logger)
		startWarmerFunc(warmer, ctx)
	}

	h := newHandlerFunc(tracer, optionsService, workflow)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    httpAddr(cfg.HTTPAPIPort),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("serving REST API")
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("listen failed")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info().Msg("shutting down server")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// httpAddr lets a platform-assigned PORT override HTTP_API_PORT.
func httpAddr(port int) string {
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		if strings.HasPrefix(p, ":") {
			return p
		}
		return ":" + p
	}
	if port <= 0 {
		port = 8080
	}
	return fmt.Sprintf(":%d", port)
}
