package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"ta3lem-app/internal/domain/orders"
)

// CreatePaymentResult is what a gateway hands back after initiating a
// payment. Strategies never touch order status; the settlement service
// owns every transition.
type CreatePaymentResult struct {
	RedirectURL    string
	Token          string
	GatewayOrderID string

	// Manual transfer only.
	ManualTransfer bool
	BankAccounts   []orders.BankAccount
	ExpiresAt      *time.Time
	Instructions   string
}

// WebhookResult is the normalized outcome of a gateway notification.
type WebhookResult struct {
	Success          bool
	OrderNumber      string
	Status           orders.Status
	GatewayPaymentID string
	Reason           string
}

// Provider is one payment gateway strategy.
type Provider interface {
	Type() string
	SupportsSubscription() bool
	CreatePayment(order *orders.Order) (*CreatePaymentResult, error)
	VerifyPayment(order *orders.Order) (*WebhookResult, error)
	HandleWebhook(r *http.Request, body []byte) (*WebhookResult, error)
}

// Factory builds a strategy from its provider row config blob.
type Factory func(db *gorm.DB, cfg json.RawMessage) (Provider, error)

// Registry maps provider type tags to factories. Registration is
// explicit wiring at startup, never an import side effect.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(providerType string, f Factory) {
	r.factories[providerType] = f
}

// Build instantiates the strategy for a configured provider row.
func (r *Registry) Build(db *gorm.DB, row *orders.PaymentProvider) (Provider, error) {
	f, ok := r.factories[row.ProviderType]
	if !ok {
		return nil, fmt.Errorf("no payment provider registered for type %q", row.ProviderType)
	}
	return f(db, row.Config)
}

func (r *Registry) Known(providerType string) bool {
	_, ok := r.factories[providerType]
	return ok
}
