package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ta3lem-app/internal/domain/courses"
	"ta3lem-app/internal/domain/earnings"
	"ta3lem-app/internal/domain/orders"
	"ta3lem-app/internal/platform/settings"
	"ta3lem-app/logger"
)

var (
	ErrBelowMinimumPayout  = errors.New("amount is below the minimum payout")
	ErrInsufficientBalance = errors.New("requested amount exceeds available balance")
	ErrPayoutNotPending    = errors.New("payout is not pending")
	ErrPayoutNotPayable    = errors.New("payout is not approved or processing")
)

type EarningsService struct {
	db       *gorm.DB
	settings *settings.Store
}

func NewEarningsService(db *gorm.DB, settings *settings.Store) *EarningsService {
	return &EarningsService{db: db, settings: settings}
}

// CreateEarningFromOrderTx records the instructor's share of a
// completed course order. Subscription orders and ownerless courses
// produce no earning. The commission rate in force right now is
// snapshotted onto the row.
func (s *EarningsService) CreateEarningFromOrderTx(tx *gorm.DB, order *orders.Order) error {
	if order.ItemType != orders.ItemCourse {
		return nil
	}
	var course courses.Course
	if err := tx.First(&course, order.ItemID).Error; err != nil {
		return err
	}
	if course.OwnerID == 0 {
		return nil
	}

	rate := s.settings.Current().CommissionRate
	fee, earning := earnings.Split(order.TotalAmount, rate)

	row := earnings.InstructorEarning{
		OrderID:        order.ID,
		InstructorID:   course.OwnerID,
		OrderAmount:    order.TotalAmount,
		CommissionRate: rate,
		PlatformFee:    fee,
		Earning:        earning,
		Currency:       order.Currency,
	}
	// The unique index on order_id makes a duplicate settlement a
	// conflict, which we swallow by doing nothing.
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

// Balance is the instructor's earnings position.
type Balance struct {
	TotalEarned float64 `json:"total_earned"`
	PaidOut     float64 `json:"paid_out"`
	Reserved    float64 `json:"reserved"`
	Available   float64 `json:"available"`
}

// GetInstructorBalance sums earnings against completed and in-flight
// payouts.
func (s *EarningsService) GetInstructorBalance(instructorID uint) (*Balance, error) {
	var b Balance
	err := s.db.Model(&earnings.InstructorEarning{}).
		Where("instructor_id = ?", instructorID).
		Select("COALESCE(SUM(instructor_earning), 0)").
		Scan(&b.TotalEarned).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&earnings.InstructorEarning{}).
		Where("instructor_id = ? AND is_paid_out = ?", instructorID, true).
		Select("COALESCE(SUM(instructor_earning), 0)").
		Scan(&b.PaidOut).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&earnings.Payout{}).
		Where("instructor_id = ? AND status IN ?", instructorID,
			[]earnings.PayoutStatus{earnings.PayoutPending, earnings.PayoutApproved, earnings.PayoutProcessing}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&b.Reserved).Error
	if err != nil {
		return nil, err
	}

	b.Available = b.TotalEarned - b.PaidOut - b.Reserved
	if b.Available < 0 {
		b.Available = 0
	}
	return &b, nil
}

// PayoutRequest is the instructor's withdrawal ask.
type PayoutRequest struct {
	Amount            float64
	BankName          string
	BankAccountNumber string
	BankAccountHolder string
}

// RequestPayout creates a pending payout and greedily links the oldest
// unlinked earnings until their sum covers the amount. A zero amount
// withdraws the full available balance. Linked rows are reserved but
// not yet paid; completion flips them.
func (s *EarningsService) RequestPayout(instructorID uint, req PayoutRequest) (*earnings.Payout, error) {
	cfg := s.settings.Current()

	var payout earnings.Payout
	err := s.db.Transaction(func(tx *gorm.DB) error {
		balance, err := s.balanceTx(tx, instructorID)
		if err != nil {
			return err
		}
		amount := req.Amount
		if amount <= 0 {
			amount = balance
		}
		if amount < cfg.MinimumPayout {
			return ErrBelowMinimumPayout
		}
		if amount > balance {
			return ErrInsufficientBalance
		}

		payout = earnings.Payout{
			PayoutNumber:      uuid.NewString(),
			InstructorID:      instructorID,
			Amount:            amount,
			Currency:          cfg.DefaultCurrency,
			Status:            earnings.PayoutPending,
			BankName:          req.BankName,
			BankAccountNumber: req.BankAccountNumber,
			BankAccountHolder: req.BankAccountHolder,
		}
		if !cfg.PayoutRequiresApproval {
			payout.Status = earnings.PayoutApproved
		}
		if err := tx.Create(&payout).Error; err != nil {
			return err
		}

		var rows []earnings.InstructorEarning
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("instructor_id = ? AND is_paid_out = ? AND payout_id IS NULL", instructorID, false).
			Order("created_at ASC").
			Find(&rows).Error
		if err != nil {
			return err
		}

		covered := 0.0
		var linked []uint
		for _, row := range rows {
			if covered >= payout.Amount {
				break
			}
			covered += row.Earning
			linked = append(linked, row.ID)
		}
		if len(linked) == 0 {
			return nil
		}
		return tx.Model(&earnings.InstructorEarning{}).
			Where("id IN ?", linked).
			Update("payout_id", payout.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (s *EarningsService) balanceTx(tx *gorm.DB, instructorID uint) (float64, error) {
	var earned, paid, reserved float64
	err := tx.Model(&earnings.InstructorEarning{}).
		Where("instructor_id = ?", instructorID).
		Select("COALESCE(SUM(instructor_earning), 0)").
		Scan(&earned).Error
	if err != nil {
		return 0, err
	}
	err = tx.Model(&earnings.InstructorEarning{}).
		Where("instructor_id = ? AND is_paid_out = ?", instructorID, true).
		Select("COALESCE(SUM(instructor_earning), 0)").
		Scan(&paid).Error
	if err != nil {
		return 0, err
	}
	err = tx.Model(&earnings.Payout{}).
		Where("instructor_id = ? AND status IN ?", instructorID,
			[]earnings.PayoutStatus{earnings.PayoutPending, earnings.PayoutApproved, earnings.PayoutProcessing}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&reserved).Error
	if err != nil {
		return 0, err
	}
	return earned - paid - reserved, nil
}

// ApprovePayout moves a pending payout forward.
func (s *EarningsService) ApprovePayout(payoutID, adminID uint, notes string) (*earnings.Payout, error) {
	var payout earnings.Payout
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, payoutID).Error; err != nil {
			return err
		}
		if payout.Status != earnings.PayoutPending {
			return ErrPayoutNotPending
		}
		now := time.Now()
		payout.Status = earnings.PayoutApproved
		payout.ProcessedByID = &adminID
		payout.ProcessedAt = &now
		payout.Notes = notes
		return tx.Save(&payout).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// CompletePayout records the finished bank transfer and marks every
// linked earning paid out.
func (s *EarningsService) CompletePayout(payoutID, adminID uint, transferReference string) (*earnings.Payout, error) {
	var payout earnings.Payout
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, payoutID).Error; err != nil {
			return err
		}
		if payout.Status != earnings.PayoutApproved && payout.Status != earnings.PayoutProcessing {
			return ErrPayoutNotPayable
		}
		now := time.Now()
		payout.Status = earnings.PayoutCompleted
		payout.ProcessedByID = &adminID
		payout.ProcessedAt = &now
		payout.TransferReference = transferReference
		if err := tx.Save(&payout).Error; err != nil {
			return err
		}
		return tx.Model(&earnings.InstructorEarning{}).
			Where("payout_id = ?", payout.ID).
			Update("is_paid_out", true).Error
	})
	if err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"payout_id": payout.ID,
		"amount":    payout.Amount,
	}).Info("payout completed")
	return &payout, nil
}

// RejectPayout releases the reserved amount and unlinks its earnings.
func (s *EarningsService) RejectPayout(payoutID, adminID uint, reason string) (*earnings.Payout, error) {
	var payout earnings.Payout
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payout, payoutID).Error; err != nil {
			return err
		}
		if payout.Status != earnings.PayoutPending && payout.Status != earnings.PayoutApproved {
			return ErrPayoutNotPending
		}
		now := time.Now()
		payout.Status = earnings.PayoutRejected
		payout.ProcessedByID = &adminID
		payout.ProcessedAt = &now
		payout.RejectionReason = reason
		if err := tx.Save(&payout).Error; err != nil {
			return err
		}
		return tx.Model(&earnings.InstructorEarning{}).
			Where("payout_id = ?", payout.ID).
			Update("payout_id", nil).Error
	})
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// RevenueSummary aggregates platform-wide settlement totals for the
// admin dashboard.
type RevenueSummary struct {
	CompletedOrders    int64   `json:"completed_orders"`
	GrossRevenue       float64 `json:"gross_revenue"`
	PlatformFees       float64 `json:"platform_fees"`
	InstructorEarnings float64 `json:"instructor_earnings"`
	PendingPayouts     float64 `json:"pending_payouts"`
}

func (s *EarningsService) GetRevenueSummary() (*RevenueSummary, error) {
	var sum RevenueSummary
	err := s.db.Model(&orders.Order{}).
		Where("status = ?", orders.StatusCompleted).
		Count(&sum.CompletedOrders).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&orders.Order{}).
		Where("status = ?", orders.StatusCompleted).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&sum.GrossRevenue).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&earnings.InstructorEarning{}).
		Select("COALESCE(SUM(platform_fee), 0)").
		Scan(&sum.PlatformFees).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&earnings.InstructorEarning{}).
		Select("COALESCE(SUM(instructor_earning), 0)").
		Scan(&sum.InstructorEarnings).Error
	if err != nil {
		return nil, err
	}
	err = s.db.Model(&earnings.Payout{}).
		Where("status IN ?", []earnings.PayoutStatus{earnings.PayoutPending, earnings.PayoutApproved, earnings.PayoutProcessing}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum.PendingPayouts).Error
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *EarningsService) ListEarnings(instructorID uint, limit, offset int) ([]earnings.InstructorEarning, error) {
	var rows []earnings.InstructorEarning
	err := s.db.Where("instructor_id = ?", instructorID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	return rows, err
}

func (s *EarningsService) ListPayouts(instructorID uint) ([]earnings.Payout, error) {
	var rows []earnings.Payout
	err := s.db.Where("instructor_id = ?", instructorID).
		Order("requested_at DESC").
		Find(&rows).Error
	return rows, err
}
