package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"ta3lem-app/internal/domain/orders"
)

type manualConfig struct {
	ExpiryHours  int    `json:"expiry_hours"`
	Instructions string `json:"instructions"`
}

// ManualProvider handles bank transfers. There is no gateway: the
// student uploads proof, an admin verifies, and the settlement service
// completes the order.
type ManualProvider struct {
	db  *gorm.DB
	cfg manualConfig
}

func NewManualProvider(db *gorm.DB, raw json.RawMessage) (Provider, error) {
	cfg := manualConfig{ExpiryHours: 24}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("manual transfer provider config: %w", err)
		}
	}
	if cfg.ExpiryHours <= 0 {
		cfg.ExpiryHours = 24
	}
	return &ManualProvider{db: db, cfg: cfg}, nil
}

func (p *ManualProvider) Type() string               { return orders.ProviderManualTransfer }
func (p *ManualProvider) SupportsSubscription() bool { return false }

func (p *ManualProvider) CreatePayment(order *orders.Order) (*CreatePaymentResult, error) {
	var accounts []orders.BankAccount
	err := p.db.
		Joins("JOIN payment_providers ON payment_providers.id = bank_accounts.provider_id").
		Where("payment_providers.provider_type = ? AND bank_accounts.is_active = ?", orders.ProviderManualTransfer, true).
		Order("bank_accounts.display_order ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, errors.New("no active bank accounts configured for manual transfer")
	}

	expires := time.Now().Add(time.Duration(p.cfg.ExpiryHours) * time.Hour)
	return &CreatePaymentResult{
		ManualTransfer: true,
		BankAccounts:   accounts,
		ExpiresAt:      &expires,
		Instructions:   p.cfg.Instructions,
	}, nil
}

// VerifyPayment never settles a manual transfer; only admin review does.
func (p *ManualProvider) VerifyPayment(order *orders.Order) (*WebhookResult, error) {
	return &WebhookResult{
		OrderNumber: order.OrderNumber,
		Status:      "",
		Reason:      "manual transfers settle through admin verification",
	}, nil
}

func (p *ManualProvider) HandleWebhook(_ *http.Request, _ []byte) (*WebhookResult, error) {
	return nil, errors.New("manual transfer provider has no webhook")
}
