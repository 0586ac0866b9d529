package dlocal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yourorg/payment-connectors/internal/connector"
)

// authType holds the resolved dLocal credentials.
type authType struct {
	login    string
	transKey string
	secret   string
}

// authFromConnector extracts dLocal credentials from the opaque auth
// bundle. Only the signature-key variant is recognized.
func authFromConnector(a connector.AuthType) (authType, error) {
	sig, ok := a.(connector.SignatureKeyAuth)
	if !ok {
		return authType{}, connector.ErrFailedToObtainAuthType
	}
	return authType{
		login:    sig.APIKey,
		transKey: sig.Key1,
		secret:   sig.APISecret,
	}, nil
}

type payer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document"`
}

type card struct {
	HolderName      string `json:"holder_name"`
	Number          string `json:"number"`
	CVV             string `json:"cvv"`
	ExpirationMonth string `json:"expiration_month"`
	ExpirationYear  string `json:"expiration_year"`
	Capture         string `json:"capture"`
	InstallmentsID  string `json:"installments_id,omitempty"`
	Installments    string `json:"installments,omitempty"`
}

type threeDSecureRequest struct {
	Force bool `json:"force"`
}

// paymentsRequest is the body for POST secure_payments.
type paymentsRequest struct {
	Amount            int64                `json:"amount"`
	Currency          string               `json:"currency"`
	Country           string               `json:"country,omitempty"`
	PaymentMethodID   string               `json:"payment_method_id"`
	PaymentMethodFlow string               `json:"payment_method_flow"`
	Payer             payer                `json:"payer"`
	Card              *card                `json:"card,omitempty"`
	OrderID           string               `json:"order_id"`
	NotificationURL   string               `json:"notification_url"`
	ThreeDSecure      *threeDSecureRequest `json:"three_dsecure,omitempty"`
	CallbackURL       string               `json:"callback_url,omitempty"`
}

// paymentsRequestFrom maps the canonical authorize snapshot to the gateway
// request, branching on the payment method variant. Unsupported variants
// fail outright; no partial request is ever built.
func paymentsRequestFrom(data *connector.RouterData, cfg Config) (*paymentsRequest, error) {
	req := data.Authorize
	if req == nil {
		return nil, &connector.MissingFieldError{Field: "authorize_data"}
	}
	if req.Email == "" {
		return nil, &connector.MissingFieldError{Field: "email_id"}
	}
	if req.PayerDocument == "" {
		return nil, &connector.MissingFieldError{Field: "payer_document"}
	}
	notification, err := notificationURLFor(data, cfg)
	if err != nil {
		return nil, err
	}

	switch pm := req.PaymentMethod.(type) {
	case connector.Card:
		if req.Billing == nil || req.Billing.Country == "" {
			return nil, &connector.MissingFieldError{Field: "billing_address.country"}
		}
		capture := req.CaptureMethod == connector.CaptureMethodAutomatic
		cardData := &card{
			HolderName:      pm.HolderName,
			Number:          pm.Number,
			CVV:             pm.CVC,
			ExpirationMonth: pm.ExpMonth,
			ExpirationYear:  pm.ExpYear,
			Capture:         strconv.FormatBool(capture),
		}
		if req.MandateID != "" {
			cardData.InstallmentsID = req.MandateID
			cardData.Installments = "1"
		}
		var threeDS *threeDSecureRequest
		if cfg.ForceThreeDSecure {
			threeDS = &threeDSecureRequest{Force: true}
		}
		return &paymentsRequest{
			Amount:            req.Amount,
			Currency:          req.Currency,
			Country:           req.Billing.Country,
			PaymentMethodID:   "CARD",
			PaymentMethodFlow: "DIRECT",
			Payer: payer{
				Name:     pm.HolderName,
				Email:    req.Email,
				Document: req.PayerDocument,
			},
			Card:            cardData,
			OrderID:         data.PaymentID,
			NotificationURL: notification,
			ThreeDSecure:    threeDS,
			CallbackURL:     data.ReturnURL,
		}, nil
	case connector.Wallet:
		country := ""
		if req.Billing != nil {
			country = req.Billing.Country
		}
		return &paymentsRequest{
			Amount:            req.Amount,
			Currency:          req.Currency,
			Country:           country,
			PaymentMethodID:   "MP",
			PaymentMethodFlow: "REDIRECT",
			Payer: payer{
				Name:     req.PayerName,
				Email:    req.Email,
				Document: req.PayerDocument,
			},
			OrderID:         data.PaymentID,
			NotificationURL: notification,
			CallbackURL:     data.ReturnURL,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %T", connector.ErrNotImplemented, pm)
	}
}

// notificationURLFor picks the gateway callback target: the request's
// return URL when present, otherwise the configured fallback.
func notificationURLFor(data *connector.RouterData, cfg Config) (string, error) {
	if data.ReturnURL != "" {
		return data.ReturnURL, nil
	}
	if cfg.NotificationURL != "" {
		return cfg.NotificationURL, nil
	}
	return "", &connector.MissingFieldError{Field: "return_url"}
}

// captureRequest is the body for POST payments (capture).
type captureRequest struct {
	AuthorizationID string `json:"authorization_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	OrderID         string `json:"order_id"`
}

// captureRequestFrom defaults the amount to the full original amount when
// no partial amount is supplied: capture at most, default to all.
func captureRequestFrom(data *connector.RouterData) (*captureRequest, error) {
	req := data.Capture
	if req == nil {
		return nil, &connector.MissingFieldError{Field: "capture_data"}
	}
	if req.ConnectorTransactionID == "" {
		return nil, connector.ErrMissingConnectorTransactionID
	}
	amount := req.Amount
	if req.AmountToCapture != nil {
		amount = *req.AmountToCapture
	}
	return &captureRequest{
		AuthorizationID: req.ConnectorTransactionID,
		Amount:          amount,
		Currency:        req.Currency,
		OrderID:         data.PaymentID,
	}, nil
}

// syncTransactionID extracts the gateway payment id for PSync.
func syncTransactionID(data *connector.RouterData) (string, error) {
	if data.Sync == nil || data.Sync.ConnectorTransactionID == "" {
		return "", connector.ErrMissingConnectorTransactionID
	}
	return data.Sync.ConnectorTransactionID, nil
}

// cancelTransactionID extracts the gateway payment id for Void.
func cancelTransactionID(data *connector.RouterData) (string, error) {
	if data.Cancel == nil || data.Cancel.ConnectorTransactionID == "" {
		return "", connector.ErrMissingConnectorTransactionID
	}
	return data.Cancel.ConnectorTransactionID, nil
}

// refundSyncID extracts the refund id for RSync. The gateway echoes the
// caller-supplied id on refund creation, so the internal refund id is a
// valid lookup key when no gateway refund id was recorded.
func refundSyncID(data *connector.RouterData) (string, error) {
	if data.Refund == nil {
		return "", connector.ErrMissingConnectorTransactionID
	}
	if data.Refund.ConnectorRefundID != "" {
		return data.Refund.ConnectorRefundID, nil
	}
	if data.Refund.RefundID != "" {
		return data.Refund.RefundID, nil
	}
	return "", connector.ErrMissingConnectorTransactionID
}

// refundRequest is the body for POST refunds.
type refundRequest struct {
	Amount          string `json:"amount"`
	PaymentID       string `json:"payment_id"`
	Currency        string `json:"currency"`
	ID              string `json:"id"`
	NotificationURL string `json:"notification_url"`
}

func refundRequestFrom(data *connector.RouterData, cfg Config) (*refundRequest, error) {
	req := data.Refund
	if req == nil {
		return nil, &connector.MissingFieldError{Field: "refund_data"}
	}
	if req.ConnectorTransactionID == "" {
		return nil, connector.ErrMissingConnectorTransactionID
	}
	notification, err := notificationURLFor(data, cfg)
	if err != nil {
		return nil, err
	}
	return &refundRequest{
		Amount:          strconv.FormatInt(req.RefundAmount, 10),
		PaymentID:       req.ConnectorTransactionID,
		Currency:        req.Currency,
		ID:              req.RefundID,
		NotificationURL: notification,
	}, nil
}

// paymentStatus is the gateway's closed payment status set. Decoding an
// unlisted value fails, which surfaces as a deserialization error: an
// unmapped status is a contract violation, never a runtime default.
type paymentStatus string

const (
	paymentStatusAuthorized paymentStatus = "AUTHORIZED"
	paymentStatusPaid       paymentStatus = "PAID"
	paymentStatusVerified   paymentStatus = "VERIFIED"
	paymentStatusCancelled  paymentStatus = "CANCELLED"
	paymentStatusPending    paymentStatus = "PENDING"
	paymentStatusRejected   paymentStatus = "REJECTED"
)

func (s *paymentStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := paymentStatus(raw); v {
	case paymentStatusAuthorized, paymentStatusPaid, paymentStatusVerified,
		paymentStatusCancelled, paymentStatusPending, paymentStatusRejected:
		*s = v
		return nil
	default:
		return fmt.Errorf("unknown payment status %q", raw)
	}
}

// attemptStatusOf is the authoritative payment status mapping. It is total
// over the decoded set; there is deliberately no fallback branch.
func attemptStatusOf(s paymentStatus) connector.AttemptStatus {
	switch s {
	case paymentStatusAuthorized:
		return connector.AttemptStatusAuthorized
	case paymentStatusVerified:
		return connector.AttemptStatusAuthorized
	case paymentStatusPaid:
		return connector.AttemptStatusCharged
	case paymentStatusPending:
		return connector.AttemptStatusAuthenticationPending
	case paymentStatusCancelled:
		return connector.AttemptStatusVoided
	case paymentStatusRejected:
		return connector.AttemptStatusAuthenticationFailed
	}
	panic("unreachable payment status: " + string(s))
}

type threeDSecureResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// paymentsResponse is the gateway response for every payment flow. The
// status field is mandatory; a body without it is rejected at decode time.
type paymentsResponse struct {
	Status       paymentStatus         `json:"status"`
	ID           string                `json:"id"`
	ThreeDSecure *threeDSecureResponse `json:"three_dsecure"`
}

// paymentsRouterData overlays the gateway payment response onto a copy of
// the original snapshot. All request-scoped fields carry forward.
func paymentsRouterData(data *connector.RouterData, res paymentsResponse) (*connector.RouterData, error) {
	redirect, err := redirectFormOf(res.ThreeDSecure)
	if err != nil {
		return nil, err
	}
	return data.WithPaymentResponse(attemptStatusOf(res.Status), &connector.PaymentsResponseData{
		ResourceID:  res.ID,
		Redirection: redirect,
	}), nil
}

// redirectFormOf parses the 3-D Secure redirect URL, if any, and
// decomposes its query string into form fields for resubmission. For
// duplicate query keys the last occurrence wins. No URL means no redirect.
func redirectFormOf(threeDS *threeDSecureResponse) (*connector.RedirectForm, error) {
	if threeDS == nil || threeDS.RedirectURL == "" {
		return nil, nil
	}
	parsed, err := url.Parse(threeDS.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redirect url: %v", connector.ErrResponseHandlingFailed, err)
	}
	query := parsed.Query()
	fields := make(map[string]string, len(query))
	for key, values := range query {
		if len(values) > 0 {
			fields[key] = values[len(values)-1]
		}
	}
	return &connector.RedirectForm{
		URL:        threeDS.RedirectURL,
		Method:     http.MethodGet,
		FormFields: fields,
	}, nil
}

// refundStatus is the gateway's closed refund status set.
type refundStatus string

const (
	refundStatusSuccess   refundStatus = "SUCCESS"
	refundStatusPending   refundStatus = "PENDING"
	refundStatusRejected  refundStatus = "REJECTED"
	refundStatusCancelled refundStatus = "CANCELLED"
)

func (s *refundStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := refundStatus(raw); v {
	case refundStatusSuccess, refundStatusPending, refundStatusRejected, refundStatusCancelled:
		*s = v
		return nil
	default:
		return fmt.Errorf("unknown refund status %q", raw)
	}
}

func refundStatusOf(s refundStatus) connector.RefundStatus {
	switch s {
	case refundStatusSuccess:
		return connector.RefundStatusSuccess
	case refundStatusPending:
		return connector.RefundStatusPending
	case refundStatusRejected:
		return connector.RefundStatusManualReview
	case refundStatusCancelled:
		return connector.RefundStatusFailure
	}
	panic("unreachable refund status: " + string(s))
}

// refundResponse is the gateway response for both refund flows.
type refundResponse struct {
	ID     string       `json:"id"`
	Status refundStatus `json:"status"`
}

func refundRouterData(data *connector.RouterData, res refundResponse) (*connector.RouterData, error) {
	return data.WithRefundResponse(&connector.RefundsResponseData{
		ConnectorRefundID: res.ID,
		Status:            refundStatusOf(res.Status),
	}), nil
}

// errorResponse is the gateway's error shape. Code and message are
// pointers so a body missing either is rejected instead of defaulted.
type errorResponse struct {
	Code    *int    `json:"code"`
	Message *string `json:"message"`
	Param   *string `json:"param"`
}
