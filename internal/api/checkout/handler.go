package checkout

import (
	"errors"
	"net/http"
	"time"

	"ta3lem-app/database"
	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	payments *services.PaymentService
}

func NewHandler(payments *services.PaymentService) *Handler {
	return &Handler{payments: payments}
}

// GET /checkout/providers?amount=&currency=
func (h *Handler) ListProviders(c *gin.Context) {
	var query struct {
		Amount   float64 `form:"amount" binding:"required"`
		Currency string  `form:"currency" binding:"required"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount and currency are required"})
		return
	}
	rows, err := h.payments.AvailableProviders(query.Amount, query.Currency)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load providers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": rows})
}

type createOrderInput struct {
	ItemType     string `json:"item_type" binding:"required"`
	ItemID       uint   `json:"item_id" binding:"required"`
	ProviderType string `json:"provider_type" binding:"required"`
}

// POST /checkout/orders creates the order and immediately initiates
// payment with the chosen provider.
func (h *Handler) CreateOrder(c *gin.Context) {
	var input createOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.payments.CreateOrder(services.CreateOrderInput{
		UserID:       c.GetUint("user_id"),
		ItemType:     orders.ItemType(input.ItemType),
		ItemID:       input.ItemID,
		ProviderType: input.ProviderType,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
	switch {
	case errors.Is(err, services.ErrItemNotPurchasable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Item cannot be purchased"})
		return
	case errors.Is(err, services.ErrProviderUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment provider not available"})
		return
	case errors.Is(err, services.ErrPurchasesDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "This purchase type is currently disabled"})
		return
	case errors.Is(err, services.ErrAlreadySubscribed):
		c.JSON(http.StatusConflict, gin.H{"error": "You already have an active subscription"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}

	res, err := h.payments.InitiatePayment(order)
	if err != nil {
		// Order stays pending; the client can retry initiation.
		c.JSON(http.StatusBadGateway, gin.H{
			"error":        "Payment gateway unavailable, please retry",
			"order_number": order.OrderNumber,
		})
		return
	}

	resp := gin.H{
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount,
		"currency":     order.Currency,
		"expires_at":   order.ExpiresAt,
	}
	if res.ManualTransfer {
		resp["manual_transfer"] = true
		resp["bank_accounts"] = res.BankAccounts
		resp["instructions"] = res.Instructions
	} else {
		resp["redirect_url"] = res.RedirectURL
		if res.Token != "" {
			resp["token"] = res.Token
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// GET /checkout/orders lists the caller's order history.
func (h *Handler) ListOrders(c *gin.Context) {
	var rows []orders.Order
	err := database.DB.Preload("PaymentProvider").
		Where("user_id = ?", c.GetUint("user_id")).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

// GET /checkout/orders/:number
func (h *Handler) GetOrder(c *gin.Context) {
	order, ok := h.ownOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// POST /checkout/orders/:number/verify is the return-URL fallback when the
// webhook has not landed yet.
func (h *Handler) VerifyReturn(c *gin.Context) {
	order, ok := h.ownOrder(c)
	if !ok {
		return
	}
	updated, err := h.payments.VerifyReturn(order.OrderNumber)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not verify payment status"})
		return
	}
	if updated == nil {
		updated = order
	}
	c.JSON(http.StatusOK, gin.H{"order_number": updated.OrderNumber, "status": updated.Status})
}

// POST /checkout/orders/:number/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	order, err := h.payments.CancelOrder(c.GetUint("user_id"), c.Param("number"))
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, services.ErrOrderTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "Order is already settled"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
	default:
		c.JSON(http.StatusOK, gin.H{"order_number": order.OrderNumber, "status": order.Status})
	}
}

type transferProofInput struct {
	ProofRef       string  `json:"proof_ref" binding:"required"`
	TransferAmount float64 `json:"transfer_amount" binding:"required"`
	TransferDate   string  `json:"transfer_date" binding:"required"`
	Notes          string  `json:"notes"`
}

// POST /checkout/orders/:number/proof
func (h *Handler) SubmitTransferProof(c *gin.Context) {
	var input transferProofInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	transferDate, err := time.Parse("2006-01-02", input.TransferDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transfer_date must be YYYY-MM-DD"})
		return
	}

	order, err := h.payments.SubmitTransferProof(
		c.GetUint("user_id"),
		c.Param("number"),
		input.ProofRef,
		input.TransferAmount,
		transferDate,
		input.Notes,
	)
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, services.ErrProofAlreadyUploaded):
		c.JSON(http.StatusConflict, gin.H{"error": "Proof already submitted"})
	case errors.Is(err, services.ErrOrderExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Order has expired"})
	case errors.Is(err, services.ErrOrderNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "Order is not awaiting payment"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit proof"})
	default:
		c.JSON(http.StatusOK, gin.H{"order_number": order.OrderNumber, "status": order.Status})
	}
}

func (h *Handler) ownOrder(c *gin.Context) (*orders.Order, bool) {
	var order orders.Order
	err := database.DB.Preload("PaymentProvider").
		Where("order_number = ? AND user_id = ?", c.Param("number"), c.GetUint("user_id")).
		First(&order).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return nil, false
	}
	return &order, true
}
