package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"frame-weaver/internal/service"
)

// writeError is the single place where service errors become status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validation *service.ValidationError
		cooldown   *service.CooldownError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Msg})
	case errors.As(err, &cooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":         "Already claimed within cooldown window",
			"canClaim":      false,
			"nextClaimTime": cooldown.NextClaimTime.UTC().Format(time.RFC3339),
			"remainingMs":   cooldown.Remaining.Milliseconds(),
		})
	case errors.Is(err, service.ErrCooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Already claimed within cooldown window"})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrIdentityNotFound),
		errors.Is(err, service.ErrNFTNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrClaimInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDisbursementUnavailable),
		errors.Is(err, service.ErrMintUnavailable),
		errors.Is(err, service.ErrMetadataUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrProviderUnavailable):
		h.requestLogger(c).WithError(err).Error("identity provider")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch scores"})
	case errors.Is(err, service.ErrTransaction):
		c.JSON(http.StatusInternalServerError, gin.H{"error": service.ErrTransaction.Error()})
	default:
		h.requestLogger(c).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
