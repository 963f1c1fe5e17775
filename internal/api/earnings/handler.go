package earnings

import (
	"errors"
	"net/http"
	"strconv"

	"ta3lem-app/internal/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	earnings *services.EarningsService
}

func NewHandler(earnings *services.EarningsService) *Handler {
	return &Handler{earnings: earnings}
}

// GET /instructor/balance
func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.earnings.GetInstructorBalance(c.GetUint("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load balance"})
		return
	}
	c.JSON(http.StatusOK, balance)
}

// GET /instructor/earnings
func (h *Handler) ListEarnings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := h.earnings.ListEarnings(c.GetUint("user_id"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load earnings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"earnings": rows})
}

// GET /instructor/payouts
func (h *Handler) ListPayouts(c *gin.Context) {
	rows, err := h.earnings.ListPayouts(c.GetUint("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payouts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": rows})
}

// Amount is optional; omitted means the full available balance.
type payoutInput struct {
	Amount            float64 `json:"amount"`
	BankName          string  `json:"bank_name" binding:"required"`
	BankAccountNumber string  `json:"bank_account_number" binding:"required"`
	BankAccountHolder string  `json:"bank_account_holder" binding:"required"`
}

// POST /instructor/payouts
func (h *Handler) RequestPayout(c *gin.Context) {
	var input payoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payout, err := h.earnings.RequestPayout(c.GetUint("user_id"), services.PayoutRequest{
		Amount:            input.Amount,
		BankName:          input.BankName,
		BankAccountNumber: input.BankAccountNumber,
		BankAccountHolder: input.BankAccountHolder,
	})
	switch {
	case errors.Is(err, services.ErrBelowMinimumPayout):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount is below the minimum payout"})
	case errors.Is(err, services.ErrInsufficientBalance):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount exceeds your available balance"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to request payout"})
	default:
		c.JSON(http.StatusCreated, gin.H{"payout": payout})
	}
}
