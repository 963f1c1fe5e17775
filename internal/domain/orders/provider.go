package orders

import (
	"encoding/json"
	"time"
)

const (
	ProviderStripe         = "stripe"
	ProviderMidtrans       = "midtrans"
	ProviderManualTransfer = "manual_transfer"
)

// PaymentProvider is the configuration row for one gateway. The Config
// blob is opaque to the settlement core; only the matching strategy
// parses it.
type PaymentProvider struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	ProviderType string `gorm:"type:varchar(30);not null;uniqueIndex:idx_payment_providers_type"`
	DisplayName  string `gorm:"not null"`
	Description  string `gorm:"type:text"`

	Config json.RawMessage `gorm:"type:jsonb"`

	SupportsSubscription bool
	SupportsRefund       bool

	IsActive     bool `gorm:"default:true"`
	DisplayOrder int  `gorm:"not null;default:0"`

	SupportedCurrencies json.RawMessage `gorm:"type:jsonb"`
	MinAmount           float64         `gorm:"not null;default:0"`
	MaxAmount           *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailableFor checks activity, currency support and the amount window.
func (p *PaymentProvider) AvailableFor(amount float64, currency string) bool {
	if !p.IsActive {
		return false
	}
	var currencies []string
	if len(p.SupportedCurrencies) > 0 {
		if err := json.Unmarshal(p.SupportedCurrencies, &currencies); err != nil {
			return false
		}
	}
	found := false
	for _, c := range currencies {
		if c == currency {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if amount < p.MinAmount {
		return false
	}
	if p.MaxAmount != nil && amount > *p.MaxAmount {
		return false
	}
	return true
}

// BankAccount is a destination account for manual transfers.
type BankAccount struct {
	ID         uint            `gorm:"primaryKey"`
	ProviderID uint            `gorm:"not null;index"`
	Provider   PaymentProvider `gorm:"foreignKey:ProviderID;constraint:OnDelete:CASCADE"`

	BankName      string `gorm:"not null"`
	BankCode      string `gorm:"type:varchar(20);not null"`
	AccountNumber string `gorm:"type:varchar(50);not null"`
	AccountHolder string `gorm:"not null"`
	Branch        string

	Instructions string `gorm:"type:text"`
	IsActive     bool   `gorm:"default:true"`
	DisplayOrder int    `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
