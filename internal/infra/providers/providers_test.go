package providers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ta3lem-app/internal/domain/orders"
)

func TestRegistryBuild(t *testing.T) {
	reg := NewRegistry()
	reg.Register(orders.ProviderManualTransfer, NewManualProvider)

	assert.True(t, reg.Known(orders.ProviderManualTransfer))
	assert.False(t, reg.Known(orders.ProviderStripe))

	p, err := reg.Build(nil, &orders.PaymentProvider{ProviderType: orders.ProviderManualTransfer})
	require.NoError(t, err)
	assert.Equal(t, orders.ProviderManualTransfer, p.Type())

	_, err = reg.Build(nil, &orders.PaymentProvider{ProviderType: "paypal"})
	assert.ErrorContains(t, err, "no payment provider registered")
}

func TestManualProviderConfigDefaults(t *testing.T) {
	p, err := NewManualProvider(nil, nil)
	require.NoError(t, err)
	mp := p.(*ManualProvider)
	assert.Equal(t, 24, mp.cfg.ExpiryHours)

	p, err = NewManualProvider(nil, json.RawMessage(`{"expiry_hours": -3}`))
	require.NoError(t, err)
	assert.Equal(t, 24, p.(*ManualProvider).cfg.ExpiryHours)

	p, err = NewManualProvider(nil, json.RawMessage(`{"expiry_hours": 48, "instructions": "include the order number"}`))
	require.NoError(t, err)
	mp = p.(*ManualProvider)
	assert.Equal(t, 48, mp.cfg.ExpiryHours)
	assert.Equal(t, "include the order number", mp.cfg.Instructions)

	assert.False(t, p.SupportsSubscription())

	_, err = p.HandleWebhook(nil, nil)
	assert.Error(t, err)
}

func TestStripeProviderRequiresSecretKey(t *testing.T) {
	_, err := NewStripeProvider(nil, json.RawMessage(`{"webhook_secret": "whsec_x"}`))
	assert.ErrorContains(t, err, "secret_key")
}

func TestMidtransProviderRequiresServerKey(t *testing.T) {
	_, err := NewMidtransProvider(nil, nil)
	assert.ErrorContains(t, err, "server_key")
}

func TestMidtransSignature(t *testing.T) {
	// SHA512("TA3-20260301-XY9K2" + "200" + "150000.00" + "SB-Mid-server-abc123")
	sig := "c7e7e705536c5fcce07438d617b3f7e70269a17f75db116873f44e183cf010e1a1bda8d1389a36470e59139175ffc68749a377bfce8b73d9ec57606cd8ae233b"

	assert.True(t, validSignature("TA3-20260301-XY9K2", "200", "150000.00", "SB-Mid-server-abc123", sig))
	assert.False(t, validSignature("TA3-20260301-XY9K2", "200", "150000.00", "SB-Mid-server-other", sig))
	assert.False(t, validSignature("TA3-20260301-ZZZZZ", "200", "150000.00", "SB-Mid-server-abc123", sig))
	assert.False(t, validSignature("TA3-20260301-XY9K2", "200", "150000.00", "SB-Mid-server-abc123", "deadbeef"))
}

func midtransForTest(t *testing.T) *MidtransProvider {
	t.Helper()
	p, err := NewMidtransProvider(nil, json.RawMessage(`{"server_key": "SB-Mid-server-abc123"}`))
	require.NoError(t, err)
	return p.(*MidtransProvider)
}

func TestMidtransMapStatus(t *testing.T) {
	p := midtransForTest(t)

	res := p.mapStatus("TA3-20260301-AAAAA", "settlement", "tx-1")
	assert.True(t, res.Success)
	assert.Equal(t, orders.StatusCompleted, res.Status)
	assert.Equal(t, "tx-1", res.GatewayPaymentID)

	res = p.mapStatus("TA3-20260301-AAAAA", "capture", "tx-2")
	assert.Equal(t, orders.StatusCompleted, res.Status)

	for _, s := range []string{"deny", "cancel", "expire", "failure"} {
		res = p.mapStatus("TA3-20260301-AAAAA", s, "tx-3")
		assert.False(t, res.Success)
		assert.Equal(t, orders.StatusFailed, res.Status)
		assert.Equal(t, s, res.Reason)
	}

	res = p.mapStatus("TA3-20260301-AAAAA", "pending", "tx-4")
	assert.Equal(t, orders.Status(""), res.Status, "pending must not transition the order")
}

func TestMidtransWebhook(t *testing.T) {
	p := midtransForTest(t)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/midtrans", nil)

	body := `{
		"order_id": "TA3-20260301-XY9K2",
		"status_code": "200",
		"gross_amount": "150000.00",
		"signature_key": "c7e7e705536c5fcce07438d617b3f7e70269a17f75db116873f44e183cf010e1a1bda8d1389a36470e59139175ffc68749a377bfce8b73d9ec57606cd8ae233b",
		"transaction_status": "settlement",
		"transaction_id": "mt-tx-77"
	}`
	res, err := p.HandleWebhook(req, []byte(body))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "TA3-20260301-XY9K2", res.OrderNumber)
	assert.Equal(t, orders.StatusCompleted, res.Status)
	assert.Equal(t, "mt-tx-77", res.GatewayPaymentID)

	tampered := strings.Replace(body, `"150000.00"`, `"1.00"`, 1)
	_, err = p.HandleWebhook(req, []byte(tampered))
	assert.ErrorContains(t, err, "signature")

	challenge := strings.Replace(body, `"transaction_status": "settlement"`,
		`"transaction_status": "capture", "fraud_status": "challenge"`, 1)
	// The signature covers order_id/status_code/gross_amount only, so it
	// still verifies; a challenged capture must hold the order in place.
	res, err = p.HandleWebhook(req, []byte(challenge))
	require.NoError(t, err)
	assert.Equal(t, orders.Status(""), res.Status)

	_, err = p.HandleWebhook(req, []byte("not json"))
	assert.Error(t, err)
}
