// Package connector defines the gateway-agnostic contract every payment
// connector implements. A connector translates the platform's canonical
// payment/refund representations into one external processor's wire format
// and normalizes that processor's responses back into canonical state.
// Connectors hold no mutable state: a single value is shared across
// concurrent calls, and every request/response model lives and dies within
// one orchestrator-initiated operation. The outbound HTTP round trip itself
// is owned by the transport collaborator (see internal/processor), never by
// the connector.
package connector

import (
	"encoding/json"
	"net/url"
)

// Flow identifies one payment or refund lifecycle operation.
type Flow string

const (
	FlowAuthorize     Flow = "authorize"
	FlowPSync         Flow = "psync"
	FlowCapture       Flow = "capture"
	FlowVoid          Flow = "void"
	FlowRefundExecute Flow = "refund_execute"
	FlowRSync         Flow = "rsync"

	// Flows with no gateway support. They expose the uniform contract but
	// perform no network call; BuildRequest returns (nil, nil) for them.
	FlowVerify      Flow = "verify"
	FlowAccessToken Flow = "access_token"
	FlowSession     Flow = "session"
)

// Header is a single outbound header pair. Headers are kept as an ordered
// slice rather than an http.Header so connectors control emission order.
type Header struct {
	Key   string
	Value string
}

// Request is a transport-ready outbound call assembled by a connector.
type Request struct {
	Method  string
	URL     string
	Headers []Header
	Body    []byte // nil for bodiless flows
}

// Response is the raw result of the transport round trip, handed back to
// the connector for decoding.
type Response struct {
	StatusCode int
	Body       []byte
}

// ErrorResponse is the canonical error envelope produced uniformly
// regardless of which flow failed.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Reason     string `json:"reason,omitempty"`
}

// RedirectForm describes a customer-facing redirect (e.g. a 3-D Secure
// challenge): the redirect URL, the HTTP method, and the query parameters
// decomposed into form fields for client-side resubmission.
type RedirectForm struct {
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	FormFields map[string]string `json:"form_fields"`
}

// RedirectAction is the directive a connector reports when a customer
// returns from a completed redirect flow.
type RedirectAction string

// RedirectActionTrigger instructs the orchestrator to call the connector
// next (a payment sync) rather than resolving the attempt locally.
const RedirectActionTrigger RedirectAction = "trigger"

// WebhookEvent classifies an incoming gateway webhook.
type WebhookEvent string

const WebhookEventUnknown WebhookEvent = "unknown"

// Connector is the uniform entry point the orchestration engine invokes.
//
// BuildRequest runs the request direction of the flow transformer and
// returns a transport-ready request, or (nil, nil) when the flow performs
// no network call. HandleResponse runs the response direction: it decodes
// the raw body into the flow's gateway response type and overlays the
// canonical result onto a copy of the original snapshot. ErrorResponse is
// invoked whenever the transport reports a non-success status and funnels
// every flow through the same error normalizer.
type Connector interface {
	Name() string

	BuildRequest(data *RouterData) (*Request, error)
	HandleResponse(data *RouterData, res Response) (*RouterData, error)
	ErrorResponse(res Response) (ErrorResponse, error)

	// Incoming webhook contract. Connectors without webhook support return
	// ErrWebhooksNotImplemented from all three.
	WebhookReferenceID(body []byte) (string, error)
	WebhookEventType(body []byte) (WebhookEvent, error)
	WebhookResourceObject(body []byte) (json.RawMessage, error)

	// RedirectCompletion reports the next action after a customer returns
	// from a redirect flow with the given return-URL query parameters.
	RedirectCompletion(query url.Values) (RedirectAction, error)
}
