package users

import (
	"net/http"
	"time"

	"ta3lem-app/database"
	"ta3lem-app/internal/domain/enrollments"
	"ta3lem-app/internal/domain/users"
	"ta3lem-app/internal/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	subscriptions *services.SubscriptionService
}

func NewHandler(subs *services.SubscriptionService) *Handler {
	return &Handler{subscriptions: subs}
}

type MeResponse struct {
	User         UserDTO          `json:"user"`
	Subscription *SubscriptionDTO `json:"subscription"`
	Enrollments  int64            `json:"enrollment_count"`
}

type UserDTO struct {
	ID         uint   `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

type SubscriptionDTO struct {
	ID               uint      `json:"id"`
	PlanName         string    `json:"plan_name"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	DaysRemaining    int       `json:"days_remaining"`
	AutoRenew        bool      `json:"auto_renew"`
	CancelAtEnd      bool      `json:"cancel_at_period_end"`
}

// GET /me
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	resp := MeResponse{
		User: UserDTO{
			ID:         user.ID,
			Email:      user.Email,
			Name:       user.Name,
			Role:       user.Role,
			IsVerified: user.IsVerified,
		},
	}

	sub, err := h.subscriptions.ActiveFor(user.ID)
	if err == nil && sub != nil {
		resp.Subscription = &SubscriptionDTO{
			ID:               sub.ID,
			PlanName:         sub.Plan.Name,
			Status:           string(sub.Status),
			CurrentPeriodEnd: sub.CurrentPeriodEnd,
			DaysRemaining:    sub.DaysRemaining(time.Now()),
			AutoRenew:        sub.AutoRenew,
			CancelAtEnd:      sub.CancelAtPeriodEnd,
		}
	}

	database.DB.Model(&enrollments.Enrollment{}).
		Where("student_id = ?", user.ID).
		Count(&resp.Enrollments)

	c.JSON(http.StatusOK, resp)
}
