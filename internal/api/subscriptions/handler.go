package subscriptions

import (
	"errors"
	"net/http"
	"strconv"

	"ta3lem-app/database"
	"ta3lem-app/internal/domain/subscriptions"
	"ta3lem-app/internal/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	subscriptions *services.SubscriptionService
}

func NewHandler(subs *services.SubscriptionService) *Handler {
	return &Handler{subscriptions: subs}
}

// GET /plans
func (h *Handler) ListPlans(c *gin.Context) {
	var rows []subscriptions.SubscriptionPlan
	err := database.DB.Where("is_active = ?", true).
		Order("display_order ASC, price ASC").
		Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": rows})
}

// GET /subscriptions lists the caller's subscription history.
func (h *Handler) ListMine(c *gin.Context) {
	var rows []subscriptions.UserSubscription
	err := database.DB.Preload("Plan").
		Where("user_id = ?", c.GetUint("user_id")).
		Order("started_at DESC").
		Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriptions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": rows})
}

// POST /plans/:slug/trial
func (h *Handler) StartTrial(c *gin.Context) {
	var plan subscriptions.SubscriptionPlan
	if err := database.DB.Where("slug = ?", c.Param("slug")).First(&plan).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	sub, err := h.subscriptions.StartTrial(c.GetUint("user_id"), &plan)
	switch {
	case errors.Is(err, services.ErrPlanInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Plan is not active"})
	case errors.Is(err, services.ErrAlreadySubscribed):
		c.JSON(http.StatusConflict, gin.H{"error": "You already have an active subscription"})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, gin.H{"subscription": sub})
	}
}

// POST /subscriptions/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription id"})
		return
	}

	var body struct {
		Immediately bool   `json:"immediately"`
		Reason      string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	sub, err := h.subscriptions.Cancel(c.GetUint("user_id"), uint(id), body.Immediately, body.Reason)
	if errors.Is(err, services.ErrSubscriptionNotActive) {
		c.JSON(http.StatusConflict, gin.H{"error": "Subscription is not active"})
		return
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}
