package admin

import (
	"errors"
	"net/http"
	"strconv"

	"ta3lem-app/database"
	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/domain/users"
	"ta3lem-app/internal/platform/settings"
	"ta3lem-app/internal/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	payments *services.PaymentService
	earnings *services.EarningsService
	settings *settings.Store
}

func NewHandler(payments *services.PaymentService, earnings *services.EarningsService, store *settings.Store) *Handler {
	return &Handler{payments: payments, earnings: earnings, settings: store}
}

// GET /admin/users
func (h *Handler) ListAllUsers(c *gin.Context) {
	var rows []users.User
	if err := database.DB.Order("created_at DESC").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load users"})
		return
	}
	type adminUser struct {
		ID         uint   `json:"id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Role       string `json:"role"`
		IsVerified bool   `json:"is_verified"`
	}
	out := make([]adminUser, 0, len(rows))
	for _, u := range rows {
		out = append(out, adminUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, IsVerified: u.IsVerified})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

// GET /admin/orders?status=
func (h *Handler) ListOrders(c *gin.Context) {
	q := database.DB.Preload("User").Preload("PaymentProvider").Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []orders.Order
	if err := q.Limit(200).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

// GET /admin/orders/pending-verification
func (h *Handler) ListPendingVerification(c *gin.Context) {
	var rows []orders.Order
	err := database.DB.Preload("User").Preload("BankAccount").
		Where("status = ?", orders.StatusAwaitingVerification).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": rows})
}

// POST /admin/orders/:number/verify
func (h *Handler) VerifyManualPayment(c *gin.Context) {
	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	order, err := h.payments.VerifyManualPayment(c.Param("number"), c.GetUint("user_id"), body.Notes)
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, services.ErrOrderNotVerifiable):
		c.JSON(http.StatusConflict, gin.H{"error": "Order is not awaiting verification"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify payment"})
	default:
		c.JSON(http.StatusOK, gin.H{"order_number": order.OrderNumber, "status": order.Status})
	}
}

// POST /admin/orders/:number/reject
func (h *Handler) RejectManualPayment(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A rejection reason is required"})
		return
	}
	order, err := h.payments.RejectManualPayment(c.Param("number"), c.GetUint("user_id"), body.Reason)
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, services.ErrOrderNotVerifiable):
		c.JSON(http.StatusConflict, gin.H{"error": "Order is not awaiting verification"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reject payment"})
	default:
		c.JSON(http.StatusOK, gin.H{"order_number": order.OrderNumber, "status": order.Status})
	}
}

// POST /admin/orders/:number/refund
func (h *Handler) RefundOrder(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A refund reason is required"})
		return
	}
	order, err := h.payments.RefundOrder(c.Param("number"), c.GetUint("user_id"), body.Reason)
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, services.ErrOrderTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": "Only completed orders can be refunded"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refund order"})
	default:
		c.JSON(http.StatusOK, gin.H{"order_number": order.OrderNumber, "status": order.Status})
	}
}

// GET /admin/revenue
func (h *Handler) GetRevenueSummary(c *gin.Context) {
	summary, err := h.earnings.GetRevenueSummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load revenue summary"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Payout administration.

func (h *Handler) payoutID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payout id"})
		return 0, false
	}
	return uint(id), true
}

// POST /admin/payouts/:id/approve
func (h *Handler) ApprovePayout(c *gin.Context) {
	id, ok := h.payoutID(c)
	if !ok {
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	payout, err := h.earnings.ApprovePayout(id, c.GetUint("user_id"), body.Notes)
	if errors.Is(err, services.ErrPayoutNotPending) {
		c.JSON(http.StatusConflict, gin.H{"error": "Payout is not pending"})
		return
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payout not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// POST /admin/payouts/:id/complete
func (h *Handler) CompletePayout(c *gin.Context) {
	id, ok := h.payoutID(c)
	if !ok {
		return
	}
	var body struct {
		TransferReference string `json:"transfer_reference" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A transfer reference is required"})
		return
	}
	payout, err := h.earnings.CompletePayout(id, c.GetUint("user_id"), body.TransferReference)
	if errors.Is(err, services.ErrPayoutNotPayable) {
		c.JSON(http.StatusConflict, gin.H{"error": "Payout is not approved"})
		return
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payout not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// POST /admin/payouts/:id/reject
func (h *Handler) RejectPayout(c *gin.Context) {
	id, ok := h.payoutID(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A rejection reason is required"})
		return
	}
	payout, err := h.earnings.RejectPayout(id, c.GetUint("user_id"), body.Reason)
	if errors.Is(err, services.ErrPayoutNotPending) {
		c.JSON(http.StatusConflict, gin.H{"error": "Payout cannot be rejected in its current state"})
		return
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payout not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payout": payout})
}

// Platform settings.

// GET /admin/settings
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Current())
}

// PUT /admin/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var input settings.PlatformSettings
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.CommissionRate < 0 || input.CommissionRate > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "commission_rate must be between 0 and 100"})
		return
	}
	if input.MinimumPayout < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minimum_payout must not be negative"})
		return
	}
	if err := h.settings.Update(input); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
		return
	}
	c.JSON(http.StatusOK, h.settings.Current())
}
