package handler

import (
	"errors"
	"net/http"

	"grix-mcp/internal/grix"
	"grix-mcp/internal/service"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps workflow and upstream failures onto gateway codes.
func writeServiceError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	var timeout *service.SignalTimeoutError
	var upstream *grix.UpstreamFetchError
	switch {
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
		message = "Signal generation timed out"
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
		message = "Upstream request failed"
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}
