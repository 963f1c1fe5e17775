package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/domain/subscriptions"
	"ta3lem-app/logger"
)

var (
	ErrPlanInactive          = errors.New("subscription plan is not active")
	ErrAlreadySubscribed     = errors.New("user already has an active subscription")
	ErrSubscriptionNotActive = errors.New("subscription is not active")
)

type SubscriptionService struct {
	db          *gorm.DB
	enrollments *EnrollmentService
}

func NewSubscriptionService(db *gorm.DB, enrollments *EnrollmentService) *SubscriptionService {
	return &SubscriptionService{db: db, enrollments: enrollments}
}

// ActiveFor returns the user's currently-active subscription, or nil.
func (s *SubscriptionService) ActiveFor(userID uint) (*subscriptions.UserSubscription, error) {
	now := time.Now()
	var sub subscriptions.UserSubscription
	err := s.db.Preload("Plan").
		Where("user_id = ? AND status IN ? AND current_period_end > ?",
			userID,
			[]subscriptions.Status{subscriptions.StatusActive, subscriptions.StatusTrial},
			now).
		Order("current_period_end DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// StartTrial creates a trial subscription when the plan offers one.
// Users with a live subscription cannot stack another.
func (s *SubscriptionService) StartTrial(userID uint, plan *subscriptions.SubscriptionPlan) (*subscriptions.UserSubscription, error) {
	if !plan.IsActive {
		return nil, ErrPlanInactive
	}
	if plan.TrialDays <= 0 {
		return nil, errors.New("plan has no trial period")
	}

	existing, err := s.ActiveFor(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySubscribed
	}

	// One trial per user per plan, ever.
	var prior int64
	err = s.db.Model(&subscriptions.UserSubscription{}).
		Where("user_id = ? AND plan_id = ?", userID, plan.ID).
		Count(&prior).Error
	if err != nil {
		return nil, err
	}
	if prior > 0 {
		return nil, errors.New("trial already used for this plan")
	}

	now := time.Now()
	sub := subscriptions.UserSubscription{
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             subscriptions.StatusTrial,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 0, plan.TrialDays),
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// ActivateFromOrderTx is the settlement hook for subscription orders.
// An existing live subscription on the same plan is renewed; otherwise
// a fresh row is created, and enrollments paused by an earlier expiry
// are restored.
func (s *SubscriptionService) ActivateFromOrderTx(tx *gorm.DB, order *orders.Order) (*subscriptions.UserSubscription, error) {
	var plan subscriptions.SubscriptionPlan
	if err := tx.First(&plan, order.ItemID).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	periodDays := plan.BillingCycle.PeriodDays()

	var sub subscriptions.UserSubscription
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND plan_id = ? AND status IN ?",
			order.UserID, plan.ID,
			[]subscriptions.Status{subscriptions.StatusActive, subscriptions.StatusTrial, subscriptions.StatusPastDue}).
		Order("current_period_end DESC").
		First(&sub).Error
	switch {
	case err == nil:
		sub.Renew(now, periodDays, &order.ID)
		if err := tx.Save(&sub).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = subscriptions.UserSubscription{
			UserID:             order.UserID,
			PlanID:             plan.ID,
			Status:             subscriptions.StatusActive,
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   now.AddDate(0, 0, periodDays),
			OrderID:            &order.ID,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	restored, err := s.enrollments.RestoreSubscriptionAccessTx(tx, order.UserID, &sub)
	if err != nil {
		return nil, err
	}
	if restored > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"user_id":         order.UserID,
			"subscription_id": sub.ID,
			"restored":        restored,
		}).Info("restored paused subscription enrollments")
	}
	return &sub, nil
}

// Cancel ends a subscription now or at period end.
func (s *SubscriptionService) Cancel(userID, subscriptionID uint, immediately bool, reason string) (*subscriptions.UserSubscription, error) {
	var sub subscriptions.UserSubscription
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", subscriptionID, userID).
			First(&sub).Error
		if err != nil {
			return err
		}
		now := time.Now()
		if !sub.IsActive(now) {
			return ErrSubscriptionNotActive
		}
		sub.Cancel(now, immediately, reason)
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}
		if immediately {
			_, err = s.enrollments.RevokeSubscriptionAccessTx(tx, []uint{sub.ID})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CheckAndExpire is the periodic sweep. Lapsed active and trial rows
// flip to expired (or cancelled when a deferred cancellation was
// requested), and every enrollment they granted is paused, all in one
// transaction so access state never half-updates.
func (s *SubscriptionService) CheckAndExpire() (expired int64, revoked int64, err error) {
	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		var ids []uint
		err := tx.Model(&subscriptions.UserSubscription{}).
			Where("status IN ? AND current_period_end <= ?",
				[]subscriptions.Status{subscriptions.StatusActive, subscriptions.StatusTrial},
				now).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		res := tx.Model(&subscriptions.UserSubscription{}).
			Where("id IN ? AND cancel_at_period_end = ?", ids, true).
			Update("status", subscriptions.StatusCancelled)
		if res.Error != nil {
			return res.Error
		}
		expired = res.RowsAffected

		res = tx.Model(&subscriptions.UserSubscription{}).
			Where("id IN ? AND cancel_at_period_end = ?", ids, false).
			Update("status", subscriptions.StatusExpired)
		if res.Error != nil {
			return res.Error
		}
		expired += res.RowsAffected

		revoked, err = s.enrollments.RevokeSubscriptionAccessTx(tx, ids)
		return err
	})
	return expired, revoked, err
}
