package handler

import (
	"net/http"

	"grix-mcp/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// GetOptions godoc
// @Summary      Get the option board for one asset
// @Description  Returns options sorted by strike, served from a 5 minute cache
// @Tags         options
// @Produce      json
// @Param        asset         query  string  false  "BTC or ETH"  default(BTC)
// @Param        optionType    query  string  false  "call or put"  default(call)
// @Param        positionType  query  string  false  "long or short"  default(long)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/options [get]
func (h *Handler) GetOptions(c *gin.Context) {
	if h.options == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "options service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-options")
	defer span.End()

	q, err := domain.ParseOptionQuery(c.Query("asset"), c.Query("optionType"), c.Query("positionType"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            err.Error(),
			"supported_assets": domain.SupportedAssets,
		})
		return
	}
	span.SetAttributes(attribute.String("options.key", q.Key()))

	options, err := h.options.GetOptions(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		writeServiceError(c, "Failed to fetch options data", err)
		return
	}
	if options == nil {
		options = []domain.FormattedOption{}
	}

	c.JSON(http.StatusOK, gin.H{
		"asset":        q.Asset,
		"optionType":   q.OptionType,
		"positionType": q.PositionType,
		"options":      options,
	})
}
