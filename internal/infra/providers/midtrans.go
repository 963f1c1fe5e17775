package providers

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"gorm.io/gorm"

	"ta3lem-app/internal/domain/orders"
)

type midtransConfig struct {
	ServerKey    string `json:"server_key"`
	ClientKey    string `json:"client_key"`
	IsProduction bool   `json:"is_production"`
	FinishURL    string `json:"finish_url"`
}

// MidtransProvider uses hosted Snap pages for payment and the Core API
// for status checks. The order number doubles as the Midtrans order id.
type MidtransProvider struct {
	cfg        midtransConfig
	snapClient snap.Client
	coreClient coreapi.Client
}

func NewMidtransProvider(_ *gorm.DB, raw json.RawMessage) (Provider, error) {
	var cfg midtransConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("midtrans provider config: %w", err)
		}
	}
	if cfg.ServerKey == "" {
		return nil, errors.New("midtrans provider: server_key not configured")
	}

	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}

	p := &MidtransProvider{cfg: cfg}
	p.snapClient.New(cfg.ServerKey, env)
	p.coreClient.New(cfg.ServerKey, env)
	return p, nil
}

func (p *MidtransProvider) Type() string               { return orders.ProviderMidtrans }
func (p *MidtransProvider) SupportsSubscription() bool { return true }

func (p *MidtransProvider) CreatePayment(order *orders.Order) (*CreatePaymentResult, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  order.OrderNumber,
			GrossAmt: int64(order.TotalAmount),
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    fmt.Sprintf("%s-%d", order.ItemType, order.ItemID),
				Name:  fmt.Sprintf("Order %s", order.OrderNumber),
				Price: int64(order.TotalAmount),
				Qty:   1,
			},
		},
	}
	if p.cfg.FinishURL != "" {
		req.Callbacks = &snap.Callbacks{Finish: p.cfg.FinishURL}
	}

	resp, err := p.snapClient.CreateTransaction(req)
	if err != nil {
		return nil, fmt.Errorf("midtrans create transaction: %v", err)
	}
	return &CreatePaymentResult{
		RedirectURL:    resp.RedirectURL,
		Token:          resp.Token,
		GatewayOrderID: order.OrderNumber,
	}, nil
}

func (p *MidtransProvider) VerifyPayment(order *orders.Order) (*WebhookResult, error) {
	statusResp, err := p.coreClient.CheckTransaction(order.OrderNumber)
	if err != nil {
		return nil, fmt.Errorf("midtrans check transaction: %v", err)
	}
	return p.mapStatus(order.OrderNumber, statusResp.TransactionStatus, statusResp.TransactionID), nil
}

type midtransNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
	FraudStatus       string `json:"fraud_status"`
}

func (p *MidtransProvider) HandleWebhook(_ *http.Request, body []byte) (*WebhookResult, error) {
	var n midtransNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("parse midtrans notification: %w", err)
	}
	if !validSignature(n.OrderID, n.StatusCode, n.GrossAmount, p.cfg.ServerKey, n.SignatureKey) {
		return nil, errors.New("midtrans signature verification failed")
	}
	if n.TransactionStatus == "capture" && n.FraudStatus == "challenge" {
		// Held for manual review at the gateway; leave the order as is.
		return &WebhookResult{OrderNumber: n.OrderID, Status: ""}, nil
	}
	return p.mapStatus(n.OrderID, n.TransactionStatus, n.TransactionID), nil
}

func (p *MidtransProvider) mapStatus(orderNumber, txStatus, txID string) *WebhookResult {
	res := &WebhookResult{OrderNumber: orderNumber, GatewayPaymentID: txID}
	switch txStatus {
	case "settlement", "capture":
		res.Success = true
		res.Status = orders.StatusCompleted
	case "deny", "cancel", "expire", "failure":
		res.Status = orders.StatusFailed
		res.Reason = txStatus
	default:
		// pending and friends: no transition yet
		res.Status = ""
	}
	return res
}

// validSignature checks SHA512(order_id + status_code + gross_amount + server_key).
func validSignature(orderID, statusCode, grossAmount, serverKey, signature string) bool {
	h := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(h[:]) == signature
}
