package dlocal

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-connectors/internal/connector"
)

func testConfig() Config {
	return Config{
		BaseURL:         "https://sandbox.dlocal.test/",
		NotificationURL: "https://platform.example/webhooks/dlocal",
	}
}

func authorizeData() *connector.RouterData {
	return &connector.RouterData{
		Flow:      connector.FlowAuthorize,
		PaymentID: "pay_123",
		Auth:      connector.SignatureKeyAuth{APIKey: "login", Key1: "trans", APISecret: "secret"},
		ReturnURL: "https://merchant.example/return",
		Authorize: &connector.AuthorizeData{
			Amount:   1050,
			Currency: "BRL",
			PaymentMethod: connector.Card{
				Number:     "4111111111111111",
				ExpMonth:   "12",
				ExpYear:    "2027",
				CVC:        "123",
				HolderName: "Ana Souza",
			},
			Email:         "ana@example.com",
			PayerDocument: "36691251830",
			CaptureMethod: connector.CaptureMethodAutomatic,
			Billing:       &connector.Address{Country: "BR"},
		},
	}
}

func TestPaymentsRequestFromCard(t *testing.T) {
	req, err := paymentsRequestFrom(authorizeData(), testConfig())
	require.NoError(t, err)

	assert.Equal(t, int64(1050), req.Amount)
	assert.Equal(t, "BRL", req.Currency)
	assert.Equal(t, "BR", req.Country)
	assert.Equal(t, "CARD", req.PaymentMethodID)
	assert.Equal(t, "DIRECT", req.PaymentMethodFlow)
	assert.Equal(t, "pay_123", req.OrderID)
	assert.Equal(t, "https://merchant.example/return", req.NotificationURL)
	assert.Equal(t, "https://merchant.example/return", req.CallbackURL)
	assert.Nil(t, req.ThreeDSecure)

	require.NotNil(t, req.Card)
	assert.Equal(t, "Ana Souza", req.Card.HolderName)
	assert.Equal(t, "4111111111111111", req.Card.Number)
	assert.Equal(t, "123", req.Card.CVV)
	assert.Equal(t, "12", req.Card.ExpirationMonth)
	assert.Equal(t, "2027", req.Card.ExpirationYear)
	assert.Equal(t, "true", req.Card.Capture)
	assert.Empty(t, req.Card.Installments)

	assert.Equal(t, "Ana Souza", req.Payer.Name)
	assert.Equal(t, "ana@example.com", req.Payer.Email)
	assert.Equal(t, "36691251830", req.Payer.Document)
}

func TestPaymentsRequestManualCaptureFlag(t *testing.T) {
	data := authorizeData()
	data.Authorize.CaptureMethod = connector.CaptureMethodManual

	req, err := paymentsRequestFrom(data, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "false", req.Card.Capture)
}

func TestPaymentsRequestMandateSetsInstallments(t *testing.T) {
	data := authorizeData()
	data.Authorize.MandateID = "man_42"

	req, err := paymentsRequestFrom(data, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "man_42", req.Card.InstallmentsID)
	assert.Equal(t, "1", req.Card.Installments)
}

func TestPaymentsRequestForcedThreeDSecure(t *testing.T) {
	cfg := testConfig()
	cfg.ForceThreeDSecure = true

	req, err := paymentsRequestFrom(authorizeData(), cfg)
	require.NoError(t, err)
	require.NotNil(t, req.ThreeDSecure)
	assert.True(t, req.ThreeDSecure.Force)
}

func TestPaymentsRequestMissingEmail(t *testing.T) {
	data := authorizeData()
	data.Authorize.Email = ""

	_, err := paymentsRequestFrom(data, testConfig())
	var missing *connector.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "email_id", missing.Field)
}

func TestPaymentsRequestMissingBillingCountry(t *testing.T) {
	data := authorizeData()
	data.Authorize.Billing = nil

	_, err := paymentsRequestFrom(data, testConfig())
	var missing *connector.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "billing_address.country", missing.Field)
}

func TestPaymentsRequestMissingPayerDocument(t *testing.T) {
	data := authorizeData()
	data.Authorize.PayerDocument = ""

	_, err := paymentsRequestFrom(data, testConfig())
	var missing *connector.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "payer_document", missing.Field)
}

func TestPaymentsRequestWallet(t *testing.T) {
	data := authorizeData()
	data.Authorize.PaymentMethod = connector.Wallet{Provider: "mercadopago"}
	data.Authorize.PayerName = "Ana Souza"

	req, err := paymentsRequestFrom(data, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "MP", req.PaymentMethodID)
	assert.Equal(t, "REDIRECT", req.PaymentMethodFlow)
	assert.Nil(t, req.Card)
	assert.Equal(t, "Ana Souza", req.Payer.Name)
}

func TestPaymentsRequestUnsupportedMethod(t *testing.T) {
	data := authorizeData()
	data.Authorize.PaymentMethod = connector.BankTransfer{AccountNumber: "001"}

	_, err := paymentsRequestFrom(data, testConfig())
	assert.ErrorIs(t, err, connector.ErrNotImplemented)
}

func TestNotificationURLFallsBackToConfig(t *testing.T) {
	data := authorizeData()
	data.ReturnURL = ""

	req, err := paymentsRequestFrom(data, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://platform.example/webhooks/dlocal", req.NotificationURL)
	assert.Empty(t, req.CallbackURL)
}

func TestNotificationURLMissingEverywhere(t *testing.T) {
	data := authorizeData()
	data.ReturnURL = ""
	cfg := testConfig()
	cfg.NotificationURL = ""

	_, err := paymentsRequestFrom(data, cfg)
	var missing *connector.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "return_url", missing.Field)
}

func TestCaptureRequestDefaultsToFullAmount(t *testing.T) {
	data := &connector.RouterData{
		Flow:      connector.FlowCapture,
		PaymentID: "pay_9",
		Capture: &connector.CaptureData{
			ConnectorTransactionID: "D-1",
			Amount:                 5000,
			Currency:               "BRL",
		},
	}

	req, err := captureRequestFrom(data)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), req.Amount)
	assert.Equal(t, "D-1", req.AuthorizationID)
	assert.Equal(t, "pay_9", req.OrderID)
}

func TestCaptureRequestPartialAmount(t *testing.T) {
	partial := int64(1200)
	data := &connector.RouterData{
		Flow: connector.FlowCapture,
		Capture: &connector.CaptureData{
			ConnectorTransactionID: "D-1",
			Amount:                 5000,
			AmountToCapture:        &partial,
			Currency:               "BRL",
		},
	}

	req, err := captureRequestFrom(data)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), req.Amount)
}

func TestCaptureRequestMissingTransactionID(t *testing.T) {
	data := &connector.RouterData{
		Flow:    connector.FlowCapture,
		Capture: &connector.CaptureData{Amount: 100, Currency: "BRL"},
	}
	_, err := captureRequestFrom(data)
	assert.ErrorIs(t, err, connector.ErrMissingConnectorTransactionID)
}

func TestSyncTransactionIDMissing(t *testing.T) {
	_, err := syncTransactionID(&connector.RouterData{Flow: connector.FlowPSync, Sync: &connector.SyncData{}})
	assert.ErrorIs(t, err, connector.ErrMissingConnectorTransactionID)
}

func TestRefundSyncIDPrefersGatewayID(t *testing.T) {
	data := &connector.RouterData{
		Refund: &connector.RefundData{RefundID: "ref_local", ConnectorRefundID: "D-REF-1"},
	}
	id, err := refundSyncID(data)
	require.NoError(t, err)
	assert.Equal(t, "D-REF-1", id)
}

func TestRefundSyncIDFallsBackToRefundID(t *testing.T) {
	data := &connector.RouterData{Refund: &connector.RefundData{RefundID: "ref_local"}}
	id, err := refundSyncID(data)
	require.NoError(t, err)
	assert.Equal(t, "ref_local", id)
}

func TestRefundRequestUsesExplicitAmount(t *testing.T) {
	data := &connector.RouterData{
		Flow:      connector.FlowRefundExecute,
		ReturnURL: "https://merchant.example/return",
		Refund: &connector.RefundData{
			RefundID:               "ref_1",
			ConnectorTransactionID: "D-1",
			RefundAmount:           750,
			Currency:               "BRL",
		},
	}

	req, err := refundRequestFrom(data, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "750", req.Amount)
	assert.Equal(t, "D-1", req.PaymentID)
	assert.Equal(t, "ref_1", req.ID)
	assert.Equal(t, "BRL", req.Currency)
	assert.Equal(t, "https://merchant.example/return", req.NotificationURL)
}

func TestAttemptStatusMappingIsTotal(t *testing.T) {
	cases := map[paymentStatus]connector.AttemptStatus{
		paymentStatusAuthorized: connector.AttemptStatusAuthorized,
		paymentStatusVerified:   connector.AttemptStatusAuthorized,
		paymentStatusPaid:       connector.AttemptStatusCharged,
		paymentStatusPending:    connector.AttemptStatusAuthenticationPending,
		paymentStatusCancelled:  connector.AttemptStatusVoided,
		paymentStatusRejected:   connector.AttemptStatusAuthenticationFailed,
	}
	for gateway, want := range cases {
		assert.Equal(t, want, attemptStatusOf(gateway), "status %s", gateway)
		// Deterministic: the same input maps the same way every time.
		assert.Equal(t, attemptStatusOf(gateway), attemptStatusOf(gateway))
	}
}

func TestRefundStatusMappingIsTotal(t *testing.T) {
	cases := map[refundStatus]connector.RefundStatus{
		refundStatusSuccess:   connector.RefundStatusSuccess,
		refundStatusPending:   connector.RefundStatusPending,
		refundStatusRejected:  connector.RefundStatusManualReview,
		refundStatusCancelled: connector.RefundStatusFailure,
	}
	for gateway, want := range cases {
		assert.Equal(t, want, refundStatusOf(gateway), "status %s", gateway)
	}
}

func TestPaymentStatusRejectsUnknownValue(t *testing.T) {
	var res paymentsResponse
	err := json.Unmarshal([]byte(`{"status":"EXPLODED","id":"D-1"}`), &res)
	assert.Error(t, err)
}

func TestPaymentsRouterDataOverlayPreservesSnapshot(t *testing.T) {
	data := authorizeData()
	out, err := paymentsRouterData(data, paymentsResponse{Status: paymentStatusPaid, ID: "D-77"})
	require.NoError(t, err)

	assert.Equal(t, connector.AttemptStatusCharged, out.Status)
	assert.Equal(t, "D-77", out.PaymentResponse.ResourceID)
	assert.Nil(t, out.PaymentResponse.Redirection)

	// Everything except status and response carries forward untouched.
	assert.Equal(t, data.PaymentID, out.PaymentID)
	assert.Equal(t, data.Flow, out.Flow)
	assert.Equal(t, data.Auth, out.Auth)
	assert.Equal(t, data.ReturnURL, out.ReturnURL)
	assert.Same(t, data.Authorize, out.Authorize)

	// The original snapshot is untouched: overlay copies, never mutates.
	assert.Empty(t, data.Status)
	assert.Nil(t, data.PaymentResponse)
}

func TestRedirectFormExtraction(t *testing.T) {
	form, err := redirectFormOf(&threeDSecureResponse{
		RedirectURL: "https://pay.example/challenge?token=abc&step=2",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/challenge?token=abc&step=2", form.URL)
	assert.Equal(t, http.MethodGet, form.Method)
	assert.Equal(t, map[string]string{"token": "abc", "step": "2"}, form.FormFields)
}

func TestRedirectFormDuplicateKeyLastWins(t *testing.T) {
	form, err := redirectFormOf(&threeDSecureResponse{
		RedirectURL: "https://pay.example/challenge?token=old&token=new",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", form.FormFields["token"])
}

func TestRedirectFormAbsent(t *testing.T) {
	form, err := redirectFormOf(nil)
	require.NoError(t, err)
	assert.Nil(t, form)

	form, err = redirectFormOf(&threeDSecureResponse{})
	require.NoError(t, err)
	assert.Nil(t, form)
}

func TestRedirectFormMalformedURL(t *testing.T) {
	_, err := redirectFormOf(&threeDSecureResponse{RedirectURL: "https://pay.example/%zz"})
	assert.ErrorIs(t, err, connector.ErrResponseHandlingFailed)
}

func TestAuthFromConnector(t *testing.T) {
	auth, err := authFromConnector(connector.SignatureKeyAuth{
		APIKey: "login", Key1: "trans", APISecret: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "login", auth.login)
	assert.Equal(t, "trans", auth.transKey)
	assert.Equal(t, "secret", auth.secret)
}

func TestAuthFromConnectorWrongVariant(t *testing.T) {
	_, err := authFromConnector(connector.HeaderKeyAuth{APIKey: "only"})
	assert.True(t, errors.Is(err, connector.ErrFailedToObtainAuthType))
}
