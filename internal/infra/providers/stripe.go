package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/webhook"
	"gorm.io/gorm"

	"ta3lem-app/internal/domain/orders"
)

type stripeConfig struct {
	SecretKey     string `json:"secret_key"`
	WebhookSecret string `json:"webhook_secret"`
	SuccessURL    string `json:"success_url"`
	CancelURL     string `json:"cancel_url"`
}

// StripeProvider drives hosted Checkout sessions. The order number
// rides in client_reference_id so the webhook can find the order back.
type StripeProvider struct {
	cfg stripeConfig
}

func NewStripeProvider(_ *gorm.DB, raw json.RawMessage) (Provider, error) {
	var cfg stripeConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("stripe provider config: %w", err)
		}
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe provider: secret_key not configured")
	}
	return &StripeProvider{cfg: cfg}, nil
}

func (p *StripeProvider) Type() string               { return orders.ProviderStripe }
func (p *StripeProvider) SupportsSubscription() bool { return true }

func (p *StripeProvider) CreatePayment(order *orders.Order) (*CreatePaymentResult, error) {
	stripe.Key = p.cfg.SecretKey

	params := &stripe.CheckoutSessionParams{
		SuccessURL:        stripe.String(p.cfg.SuccessURL + "?order=" + order.OrderNumber),
		CancelURL:         stripe.String(p.cfg.CancelURL + "?order=" + order.OrderNumber),
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(order.OrderNumber),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(order.Currency),
					UnitAmount: stripe.Int64(int64(order.TotalAmount * 100)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Order %s", order.OrderNumber)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"order_number": order.OrderNumber,
			"item_type":    string(order.ItemType),
		},
	}

	s, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &CreatePaymentResult{
		RedirectURL:    s.URL,
		GatewayOrderID: s.ID,
	}, nil
}

func (p *StripeProvider) VerifyPayment(order *orders.Order) (*WebhookResult, error) {
	stripe.Key = p.cfg.SecretKey
	if order.GatewayOrderID == "" {
		return nil, errors.New("order has no checkout session id")
	}
	s, err := checkoutsession.Get(order.GatewayOrderID, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe session get: %w", err)
	}
	res := &WebhookResult{OrderNumber: order.OrderNumber}
	if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		res.Success = true
		res.Status = orders.StatusCompleted
		if s.PaymentIntent != nil {
			res.GatewayPaymentID = s.PaymentIntent.ID
		}
	} else {
		res.Status = orders.StatusProcessing
		res.Reason = "payment not settled yet"
	}
	return res, nil
}

func (p *StripeProvider) HandleWebhook(r *http.Request, body []byte) (*WebhookResult, error) {
	event, err := webhook.ConstructEventWithOptions(
		body,
		r.Header.Get("Stripe-Signature"),
		p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("stripe signature verification: %w", err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("parse checkout session: %w", err)
		}
		res := &WebhookResult{
			Success:     true,
			OrderNumber: session.ClientReferenceID,
			Status:      orders.StatusCompleted,
		}
		if session.PaymentIntent != nil {
			res.GatewayPaymentID = session.PaymentIntent.ID
		}
		return res, nil

	case "checkout.session.async_payment_failed", "checkout.session.expired":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("parse checkout session: %w", err)
		}
		return &WebhookResult{
			OrderNumber: session.ClientReferenceID,
			Status:      orders.StatusFailed,
			Reason:      string(event.Type),
		}, nil
	}

	// Unknown events are acknowledged, not errors.
	return &WebhookResult{Status: ""}, nil
}
