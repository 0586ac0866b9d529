package connector

// AttemptStatus is the platform-wide payment attempt status.
type AttemptStatus string

const (
	AttemptStatusStarted               AttemptStatus = "started"
	AttemptStatusAuthorized            AttemptStatus = "authorized"
	AttemptStatusCharged               AttemptStatus = "charged"
	AttemptStatusAuthenticationPending AttemptStatus = "authentication_pending"
	AttemptStatusAuthenticationFailed  AttemptStatus = "authentication_failed"
	AttemptStatusVoided                AttemptStatus = "voided"
)

// RefundStatus is the platform-wide refund status.
type RefundStatus string

const (
	RefundStatusSuccess      RefundStatus = "success"
	RefundStatusPending      RefundStatus = "pending"
	RefundStatusManualReview RefundStatus = "manual_review"
	RefundStatusFailure      RefundStatus = "failure"
)

// CaptureMethod controls whether an authorization is captured immediately.
type CaptureMethod string

const (
	CaptureMethodAutomatic CaptureMethod = "automatic"
	CaptureMethodManual    CaptureMethod = "manual"
)

// AuthType is the opaque, polymorphic credential bundle handed to a
// connector. Each gateway recognizes exactly the variants it supports and
// fails resolution for anything else; credentials are never defaulted.
type AuthType interface {
	isAuthType()
}

// HeaderKeyAuth carries a single API key sent as a header.
type HeaderKeyAuth struct {
	APIKey string
}

// BodyKeyAuth carries an API key plus a secondary key sent in the body.
type BodyKeyAuth struct {
	APIKey string
	Key1   string
}

// SignatureKeyAuth carries the three secrets of HMAC-signing gateways:
// a login identifier, a transaction key, and the signing secret.
type SignatureKeyAuth struct {
	APIKey    string // login id
	Key1      string // transaction key
	APISecret string // signing secret
}

func (HeaderKeyAuth) isAuthType()    {}
func (BodyKeyAuth) isAuthType()      {}
func (SignatureKeyAuth) isAuthType() {}

// PaymentMethodData is the closed set of payment method variants. Gateway
// transformers switch over it exhaustively so adding a variant is a
// compile-time-visible change everywhere it matters.
type PaymentMethodData interface {
	isPaymentMethod()
}

// Card is a raw card payment method.
type Card struct {
	Number     string
	ExpMonth   string
	ExpYear    string
	CVC        string
	HolderName string
}

// Wallet is a redirect-style wallet payment method.
type Wallet struct {
	Provider string
}

// BankTransfer is carried in the canonical enum but unsupported by most
// gateways; transformers reject it rather than emit a partial request.
type BankTransfer struct {
	AccountNumber string
}

func (Card) isPaymentMethod()         {}
func (Wallet) isPaymentMethod()       {}
func (BankTransfer) isPaymentMethod() {}

// Address is a billing address. Country is an ISO 3166-1 alpha-2 code.
type Address struct {
	Country string
	City    string
	Line1   string
	Zip     string
}

// AuthorizeData is the canonical request for the Authorize flow. Amount is
// in minor currency units.
type AuthorizeData struct {
	Amount        int64
	Currency      string
	PaymentMethod PaymentMethodData
	Email         string
	PayerName     string
	PayerDocument string // customer tax/identity document, gateway-required PII
	CaptureMethod CaptureMethod
	MandateID     string
	Billing       *Address
}

// SyncData is the canonical request for the PSync flow.
type SyncData struct {
	ConnectorTransactionID string
}

// CaptureData is the canonical request for the Capture flow.
// AmountToCapture nil means "capture the full original amount".
type CaptureData struct {
	ConnectorTransactionID string
	Amount                 int64
	AmountToCapture        *int64
	Currency               string
}

// CancelData is the canonical request for the Void flow.
type CancelData struct {
	ConnectorTransactionID string
}

// RefundData is the canonical request for RefundExecute and RSync.
// RefundAmount is always explicit, never derived from the payment amount.
type RefundData struct {
	RefundID               string
	ConnectorTransactionID string
	ConnectorRefundID      string
	RefundAmount           int64
	Currency               string
}

// PaymentsResponseData is the canonical outcome of a payment flow.
type PaymentsResponseData struct {
	ResourceID       string        `json:"resource_id"`
	Redirection      *RedirectForm `json:"redirection,omitempty"`
	MandateReference string        `json:"mandate_reference,omitempty"`
}

// RefundsResponseData is the canonical outcome of a refund flow.
type RefundsResponseData struct {
	ConnectorRefundID string       `json:"connector_refund_id"`
	Status            RefundStatus `json:"status"`
}

// RouterData is the per-call snapshot flowing through a connector: the
// canonical request on the way out, and the same snapshot overlaid with
// status and response payload on the way back. Exactly one of the per-flow
// request fields is populated, matching Flow. Instances are call-scoped
// and immutable once built; response mapping copies rather than mutates.
type RouterData struct {
	Flow      Flow
	PaymentID string
	Auth      AuthType
	ReturnURL string

	Authorize *AuthorizeData
	Sync      *SyncData
	Capture   *CaptureData
	Cancel    *CancelData
	Refund    *RefundData

	Status          AttemptStatus
	PaymentResponse *PaymentsResponseData
	RefundResponse  *RefundsResponseData
	Error           *ErrorResponse
}

// WithPaymentResponse returns a copy of the snapshot with status and
// payment response overlaid. Every other field carries forward unchanged.
func (rd *RouterData) WithPaymentResponse(status AttemptStatus, res *PaymentsResponseData) *RouterData {
	out := *rd
	out.Status = status
	out.PaymentResponse = res
	out.Error = nil
	return &out
}

// WithRefundResponse returns a copy of the snapshot with the refund
// response overlaid.
func (rd *RouterData) WithRefundResponse(res *RefundsResponseData) *RouterData {
	out := *rd
	out.RefundResponse = res
	out.Error = nil
	return &out
}

// WithError returns a copy of the snapshot carrying the normalized error
// envelope reported by the gateway.
func (rd *RouterData) WithError(envelope *ErrorResponse) *RouterData {
	out := *rd
	out.Error = envelope
	return &out
}
