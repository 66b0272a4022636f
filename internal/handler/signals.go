package handler

import (
	"net/http"
	"strings"

	"grix-mcp/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type generateSignalsRequest struct {
	Budget     string   `json:"budget"`
	Assets     []string `json:"assets"`
	UserPrompt string   `json:"userPrompt"`
}

// GenerateSignals godoc
// @Summary      Generate trading signals
// @Description  Creates a simulation agent, submits a signal request and polls until signals arrive
// @Tags         signals
// @Accept       json
// @Produce      json
// @Param        request  body  generateSignalsRequest  false  "Budget, assets and prompt"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /api/signals [post]
func (h *Handler) GenerateSignals(c *gin.Context) {
	if h.signals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.generate-signals")
	defer span.End()

	var body generateSignalsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	req, err := domain.NewSignalRequest(body.Budget, body.Assets, body.UserPrompt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(
		attribute.String("signals.budget", req.BudgetUSD),
		attribute.String("signals.assets", strings.Join(req.Assets, ",")),
	)

	signals, err := h.signals.GenerateSignals(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		writeServiceError(c, "Failed to generate signals", err)
		return
	}
	if signals == nil {
		signals = []domain.Signal{}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(signals),
		"signals": signals,
	})
}
