package handler

import (
	"context"
	"net/http"

	"grix-mcp/internal/domain"
	"grix-mcp/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// OptionsReader serves cached option boards.
type OptionsReader interface {
	GetOptions(ctx context.Context, q domain.OptionQuery) ([]domain.FormattedOption, error)
}

// SignalGenerator runs one signal workflow to completion or timeout.
type SignalGenerator interface {
	GenerateSignals(ctx context.Context, req domain.SignalRequest) ([]domain.Signal, error)
}

type Handler struct {
	tracer  trace.Tracer
	options OptionsReader
	signals SignalGenerator
}

func New(tracer trace.Tracer, options OptionsReader, signals SignalGenerator) *Handler {
	return &Handler{
		tracer:  tracer,
		options: options,
		signals: signals,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/api/options", h.GetOptions)
	r.POST("/api/signals", h.GenerateSignals)
}

// Health godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
