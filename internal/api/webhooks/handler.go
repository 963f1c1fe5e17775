package webhooks

import (
	"io"
	"net/http"

	"ta3lem-app/internal/services"
	"ta3lem-app/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	payments *services.PaymentService
}

func NewHandler(payments *services.PaymentService) *Handler {
	return &Handler{payments: payments}
}

// POST /webhooks/:provider receives gateway notifications. Signature
// verification lives in the provider strategy; a failed check is a 400
// so the gateway retries, an unknown-but-valid event is a 200 so it
// does not.
func (h *Handler) Receive(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 65536)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	providerType := c.Param("provider")
	order, err := h.payments.HandleWebhook(providerType, c.Request, body)
	if err != nil {
		logger.Log.WithError(err).WithField("provider", providerType).
			Warn("webhook rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if order == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received", "order_status": order.Status})
}
