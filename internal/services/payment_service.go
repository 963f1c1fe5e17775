package services

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/domain/subscriptions"
	"ta3lem-app/internal/events"
	"ta3lem-app/internal/infra/providers"
	"ta3lem-app/internal/platform/settings"
	"ta3lem-app/logger"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotPending      = errors.New("order is not pending payment")
	ErrOrderTerminal        = errors.New("order already settled")
	ErrOrderNotVerifiable   = errors.New("order is not awaiting verification")
	ErrProviderUnavailable  = errors.New("payment provider not available for this order")
	ErrItemNotPurchasable   = errors.New("item cannot be purchased")
	ErrOrderExpired         = errors.New("order has expired")
	ErrProofAlreadyUploaded = errors.New("transfer proof already submitted")
	ErrPurchasesDisabled    = errors.New("this purchase type is disabled")
)

// PaymentService owns every order status transition. Gateway
// strategies report outcomes; only this service moves an order.
type PaymentService struct {
	db       *gorm.DB
	registry *providers.Registry
	bus      *events.Bus
	settings *settings.Store
}

func NewPaymentService(db *gorm.DB, registry *providers.Registry, bus *events.Bus, settings *settings.Store) *PaymentService {
	return &PaymentService{db: db, registry: registry, bus: bus, settings: settings}
}

// AvailableProviders lists configured, registered providers that can
// take the given amount and currency, in display order.
func (s *PaymentService) AvailableProviders(amount float64, currency string) ([]orders.PaymentProvider, error) {
	var rows []orders.PaymentProvider
	err := s.db.Where("is_active = ?", true).
		Order("display_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]orders.PaymentProvider, 0, len(rows))
	for _, row := range rows {
		if s.registry.Known(row.ProviderType) && row.AvailableFor(amount, currency) {
			out = append(out, row)
		}
	}
	return out, nil
}

type purchasableItem struct {
	price    float64
	currency string
	name     string
}

func (s *PaymentService) loadItem(itemType orders.ItemType, itemID uint) (*purchasableItem, error) {
	switch itemType {
	case orders.ItemCourse:
		var course courses.Course
		if err := s.db.First(&course, itemID).Error; err != nil {
			return nil, err
		}
		if course.Status != courses.StatusPublished || !course.PricingMode.RequiresPrice() || course.Price == nil {
			return nil, ErrItemNotPurchasable
		}
		return &purchasableItem{price: *course.Price, currency: course.GetCurrency(), name: course.GetDisplayName()}, nil
	case orders.ItemSubscriptionPlan:
		var plan subscriptions.SubscriptionPlan
		if err := s.db.First(&plan, itemID).Error; err != nil {
			return nil, err
		}
		if !plan.IsActive {
			return nil, ErrItemNotPurchasable
		}
		return &purchasableItem{price: plan.Price, currency: plan.Currency, name: plan.Name}, nil
	}
	return nil, fmt.Errorf("unknown item type %q", itemType)
}

// CreateOrderInput carries the request context an order records.
type CreateOrderInput struct {
	UserID       uint
	ItemType     orders.ItemType
	ItemID       uint
	ProviderType string
	IPAddress    string
	UserAgent    string
}

// CreateOrder snapshots the item price into a pending order. The price
// on the order is authoritative from here on; later item price edits
// do not touch it.
func (s *PaymentService) CreateOrder(in CreateOrderInput) (*orders.Order, error) {
	cfg := s.settings.Current()
	switch in.ItemType {
	case orders.ItemCourse:
		if !cfg.EnableOneTimePurchase {
			return nil, ErrPurchasesDisabled
		}
	case orders.ItemSubscriptionPlan:
		if !cfg.EnableSubscriptions {
			return nil, ErrPurchasesDisabled
		}
	}

	item, err := s.loadItem(in.ItemType, in.ItemID)
	if err != nil {
		return nil, err
	}

	var providerRow orders.PaymentProvider
	err = s.db.Where("provider_type = ? AND is_active = ?", in.ProviderType, true).
		First(&providerRow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}
	if !s.registry.Known(providerRow.ProviderType) || !providerRow.AvailableFor(item.price, item.currency) {
		return nil, ErrProviderUnavailable
	}
	if in.ItemType == orders.ItemSubscriptionPlan && !providerRow.SupportsSubscription {
		return nil, ErrProviderUnavailable
	}
	if in.ItemType == orders.ItemSubscriptionPlan {
		// At most one subscription may be active at a time.
		// Renewing the current plan stays allowed.
		var active int64
		err := s.db.Model(&subscriptions.UserSubscription{}).
			Where("user_id = ? AND plan_id <> ? AND status IN ? AND current_period_end > ?",
				in.UserID, in.ItemID,
				[]subscriptions.Status{subscriptions.StatusActive, subscriptions.StatusTrial}, time.Now()).
			Count(&active).Error
		if err != nil {
			return nil, err
		}
		if active > 0 {
			return nil, ErrAlreadySubscribed
		}
	}

	now := time.Now()
	expiry := now.Add(time.Duration(s.settings.Current().OrderExpiryHours) * time.Hour)

	order := orders.Order{
		OrderNumber:       orders.NewOrderNumber(now),
		UserID:            in.UserID,
		ItemType:          in.ItemType,
		ItemID:            in.ItemID,
		Subtotal:          item.price,
		TotalAmount:       item.price,
		Currency:          item.currency,
		PaymentProviderID: &providerRow.ID,
		Status:            orders.StatusPending,
		ExpiresAt:         &expiry,
		IPAddress:         in.IPAddress,
		UserAgent:         in.UserAgent,
	}
	if err := s.db.Create(&order).Error; err != nil {
		return nil, err
	}
	order.PaymentProvider = &providerRow
	return &order, nil
}

func (s *PaymentService) buildProvider(order *orders.Order) (providers.Provider, error) {
	row := order.PaymentProvider
	if row == nil && order.PaymentProviderID != nil {
		var loaded orders.PaymentProvider
		if err := s.db.First(&loaded, *order.PaymentProviderID).Error; err != nil {
			return nil, err
		}
		row = &loaded
		order.PaymentProvider = row
	}
	if row == nil {
		return nil, ErrProviderUnavailable
	}
	return s.registry.Build(s.db, row)
}

// InitiatePayment hands a pending order to its gateway. A gateway
// failure leaves the order pending so the user can retry; success
// moves it to processing, or straight to awaiting_verification for
// manual transfers.
func (s *PaymentService) InitiatePayment(order *orders.Order) (*providers.CreatePaymentResult, error) {
	if order.Status != orders.StatusPending {
		return nil, ErrOrderNotPending
	}
	if order.IsExpired(time.Now()) {
		return nil, ErrOrderExpired
	}

	p, err := s.buildProvider(order)
	if err != nil {
		return nil, err
	}

	res, err := p.CreatePayment(order)
	if err != nil {
		logger.Log.WithError(err).WithField("order_number", order.OrderNumber).
			Warn("gateway payment initiation failed, order left pending")
		return nil, err
	}

	updates := map[string]interface{}{}
	if res.ManualTransfer {
		updates["status"] = orders.StatusAwaitingVerification
		if res.ExpiresAt != nil {
			updates["expires_at"] = *res.ExpiresAt
		}
	} else {
		updates["status"] = orders.StatusProcessing
		if res.GatewayOrderID != "" {
			updates["gateway_order_id"] = res.GatewayOrderID
		}
	}
	if len(updates) > 0 {
		if err := s.db.Model(order).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return res, nil
}

// SubmitTransferProof attaches the student's transfer evidence to an
// order awaiting verification.
func (s *PaymentService) SubmitTransferProof(userID uint, orderNumber, proofRef string, amount float64, transferDate time.Time, notes string) (*orders.Order, error) {
	var order orders.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_number = ? AND user_id = ?", orderNumber, userID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		switch order.Status {
		case orders.StatusPending, orders.StatusAwaitingVerification:
		default:
			return ErrOrderNotPending
		}
		if order.PaymentProof != "" {
			return ErrProofAlreadyUploaded
		}
		if order.IsExpired(time.Now()) {
			return ErrOrderExpired
		}
		order.Status = orders.StatusAwaitingVerification
		order.PaymentProof = proofRef
		order.TransferAmount = &amount
		order.TransferDate = &transferDate
		order.TransferNotes = notes
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder lets the buyer abandon any order that has not settled.
func (s *PaymentService) CancelOrder(userID uint, orderNumber string) (*orders.Order, error) {
	var order orders.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_number = ? AND user_id = ?", orderNumber, userID).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return ErrOrderTerminal
		}
		order.Status = orders.StatusCancelled
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// RefundOrder is the administrative transition out of completed. The
// enrollment it paid for is left alone; revoking purchased access is a
// separate manual decision.
func (s *PaymentService) RefundOrder(orderNumber string, adminID uint, reason string) (*orders.Order, error) {
	var order orders.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_number = ?", orderNumber).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Status != orders.StatusCompleted {
			return ErrOrderTerminal
		}
		now := time.Now()
		order.Status = orders.StatusRefunded
		order.VerifiedByID = &adminID
		order.VerifiedAt = &now
		order.RejectionReason = reason
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"order_number": order.OrderNumber,
		"amount":       order.TotalAmount,
	}).Info("order refunded")
	return &order, nil
}

// MarkCompleted settles an order: status flip, PaidAt, and every
// completion listener, inside one transaction. The row lock plus the
// terminal-status check make duplicate webhooks harmless.
func (s *PaymentService) MarkCompleted(orderNumber, gatewayPaymentID string) (*orders.Order, error) {
	var order orders.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_number = ?", orderNumber).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Status == orders.StatusCompleted {
			return nil // idempotent
		}
		if order.Status.IsTerminal() {
			return ErrOrderTerminal
		}

		now := time.Now()
		order.Status = orders.StatusCompleted
		order.PaidAt = &now
		if gatewayPaymentID != "" {
			order.GatewayPaymentID = gatewayPaymentID
		}
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		return s.bus.EmitPaymentCompleted(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"order_number": order.OrderNumber,
		"amount":       order.TotalAmount,
		"item_type":    order.ItemType,
	}).Info("order completed")
	return &order, nil
}

// MarkFailed moves a live order to failed and notifies listeners.
func (s *PaymentService) MarkFailed(orderNumber, reason string) (*orders.Order, error) {
	var order orders.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_number = ?", orderNumber).
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Status == orders.StatusFailed {
			return nil
		}
		if order.Status.IsTerminal() {
			return ErrOrderTerminal
		}
		order.Status = orders.StatusFailed
		order.RejectionReason = reason
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		return s.bus.EmitPaymentFailed(tx, &order, reason)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// HandleWebhook verifies and applies a gateway notification. The
// strategy authenticates and normalizes; this method applies the
// transition.
func (s *PaymentService) HandleWebhook(providerType string, r *http.Request, body []byte) (*orders.Order, error) {
	var row orders.PaymentProvider
	err := s.db.Where("provider_type = ? AND is_active = ?", providerType, true).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}
	p, err := s.registry.Build(s.db, &row)
	if err != nil {
		return nil, err
	}

	res, err := p.HandleWebhook(r, body)
	if err != nil {
		return nil, err
	}
	return s.applyResult(res)
}

// VerifyReturn polls the gateway after the user lands back on the
// site. The webhook usually wins the race; this is the fallback.
func (s *PaymentService) VerifyReturn(orderNumber string) (*orders.Order, error) {
	var order orders.Order
	err := s.db.Where("order_number = ?", orderNumber).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return &order, nil
	}

	p, err := s.buildProvider(&order)
	if err != nil {
		return nil, err
	}
	res, err := p.VerifyPayment(&order)
	if err != nil {
		return nil, err
	}
	return s.applyResult(res)
}

func (s *PaymentService) applyResult(res *providers.WebhookResult) (*orders.Order, error) {
	if res == nil || res.OrderNumber == "" || res.Status == "" {
		// Acknowledged but no transition.
		return nil, nil
	}
	switch res.Status {
	case orders.StatusCompleted:
		return s.MarkCompleted(res.OrderNumber, res.GatewayPaymentID)
	case orders.StatusFailed:
		return s.MarkFailed(res.OrderNumber, res.Reason)
	default:
		var order orders.Order
		if err := s.db.Where("order_number = ?", res.OrderNumber).First(&order).Error; err != nil {
			return nil, ErrOrderNotFound
		}
		return &order, nil
	}
}

// VerifyManualPayment is the admin approval of a bank transfer. The
// verifier stamps and the completion commit or roll back together, so
// a listener failure never leaves a stamped order still awaiting
// verification.
func (s *PaymentService) VerifyManualPayment(orderNumber string, adminID uint, notes string) (*orders.Order, error) {
	var order orders.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lockAwaitingVerification(tx, orderNumber, &order); err != nil {
			return err
		}
		now := time.Now()
		order.VerifiedByID = &adminID
		order.VerifiedAt = &now
		order.VerificationNotes = notes
		order.Status = orders.StatusCompleted
		order.PaidAt = &now
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		return s.bus.EmitPaymentCompleted(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"order_number": order.OrderNumber,
		"amount":       order.TotalAmount,
		"item_type":    order.ItemType,
	}).Info("order completed")
	return &order, nil
}

// RejectManualPayment declines a submitted transfer proof.
func (s *PaymentService) RejectManualPayment(orderNumber string, adminID uint, reason string) (*orders.Order, error) {
	var order orders.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lockAwaitingVerification(tx, orderNumber, &order); err != nil {
			return err
		}
		now := time.Now()
		order.VerifiedByID = &adminID
		order.VerifiedAt = &now
		order.Status = orders.StatusFailed
		order.RejectionReason = reason
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		return s.bus.EmitPaymentFailed(tx, &order, reason)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *PaymentService) lockAwaitingVerification(tx *gorm.DB, orderNumber string, order *orders.Order) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_number = ?", orderNumber).
		First(order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}
	if order.Status != orders.StatusAwaitingVerification {
		return ErrOrderNotVerifiable
	}
	return nil
}

// ExpireOverdueOrders is the periodic sweep over stale pending and
// awaiting-verification orders. An expired order cannot come back; the
// user has to start a fresh one.
func (s *PaymentService) ExpireOverdueOrders() (int64, error) {
	now := time.Now()
	res := s.db.Model(&orders.Order{}).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?",
			[]orders.Status{orders.StatusPending, orders.StatusAwaitingVerification}, now).
		Update("status", orders.StatusExpired)
	return res.RowsAffected, res.Error
}
