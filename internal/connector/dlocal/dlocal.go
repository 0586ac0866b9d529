// Package dlocal implements the connector contract for the dLocal
// payments API. Every call follows the same four-step build contract:
// headers (which signs the serialized body with a fresh timestamp), URL,
// body, assembled request; responses are decoded per flow and overlaid
// onto the original snapshot.
package dlocal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/signing"
)

const (
	connectorName = "dlocal"
	apiVersion    = "2.1"
	contentType   = "application/json"
)

// Config carries the deployment-specific settings for the connector.
type Config struct {
	// BaseURL of the gateway environment, e.g. the sandbox or live host.
	BaseURL string
	// NotificationURL is the fallback webhook target used when a request
	// carries no return URL.
	NotificationURL string
	// ForceThreeDSecure makes card authorizations demand a 3-DS challenge
	// instead of letting the gateway decide.
	ForceThreeDSecure bool
}

// Connector is the dLocal connector facade. It holds no mutable state and
// is safe to share across concurrent calls.
type Connector struct {
	cfg Config
}

// New validates the config and returns a connector. The base URL must be
// absolute http(s) with a host so a typo'd setting fails at startup, not
// on the first call.
func New(cfg Config) (*Connector, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("dlocal: base url is required")
	}
	parsed, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("dlocal: invalid base url: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("dlocal: base url %q must be absolute http(s)", cfg.BaseURL)
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	return &Connector{cfg: cfg}, nil
}

// Name implements connector.Connector.
func (c *Connector) Name() string {
	return connectorName
}

// Headers builds the authenticated header set. The signature covers
// login + timestamp + serialized body (empty for bodiless flows), keyed
// with the signing secret. The timestamp is taken here, not earlier:
// it is part of the signed material and must be fresh on every call.
func (c *Connector) Headers(data *connector.RouterData) ([]connector.Header, error) {
	body, err := c.RequestBody(data)
	if err != nil {
		return nil, err
	}
	auth, err := authFromConnector(data.Auth)
	if err != nil {
		return nil, err
	}
	date := signing.Now()
	digest := signing.SignHMACSHA256([]byte(auth.secret), []byte(auth.login+date+string(body)))
	return []connector.Header{
		{Key: "Authorization", Value: "V2-HMAC-SHA256, Signature: " + digest},
		{Key: "X-Login", Value: auth.login},
		{Key: "X-Trans-Key", Value: auth.transKey},
		{Key: "X-Version", Value: apiVersion},
		{Key: "X-Date", Value: date},
		{Key: "Content-Type", Value: contentType},
	}, nil
}

// URL joins the base URL with the flow's path segment, embedding the
// gateway-side identifier where the path requires one.
func (c *Connector) URL(data *connector.RouterData) (string, error) {
	switch data.Flow {
	case connector.FlowAuthorize:
		return c.cfg.BaseURL + "secure_payments", nil
	case connector.FlowPSync:
		id, err := syncTransactionID(data)
		if err != nil {
			return "", err
		}
		return c.cfg.BaseURL + "payments/" + id + "/status", nil
	case connector.FlowCapture:
		return c.cfg.BaseURL + "payments", nil
	case connector.FlowVoid:
		id, err := cancelTransactionID(data)
		if err != nil {
			return "", err
		}
		return c.cfg.BaseURL + "payments/" + id + "/cancel", nil
	case connector.FlowRefundExecute:
		return c.cfg.BaseURL + "refunds", nil
	case connector.FlowRSync:
		id, err := refundSyncID(data)
		if err != nil {
			return "", err
		}
		return c.cfg.BaseURL + "refunds/" + id + "/status", nil
	default:
		return "", fmt.Errorf("dlocal: flow %q performs no gateway call", data.Flow)
	}
}

// RequestBody serializes the flow's gateway request, or returns nil for
// bodiless flows.
func (c *Connector) RequestBody(data *connector.RouterData) ([]byte, error) {
	switch data.Flow {
	case connector.FlowAuthorize:
		req, err := paymentsRequestFrom(data, c.cfg)
		if err != nil {
			return nil, err
		}
		return encodeBody(req)
	case connector.FlowCapture:
		req, err := captureRequestFrom(data)
		if err != nil {
			return nil, err
		}
		return encodeBody(req)
	case connector.FlowRefundExecute:
		req, err := refundRequestFrom(data, c.cfg)
		if err != nil {
			return nil, err
		}
		return encodeBody(req)
	default:
		return nil, nil
	}
}

func encodeBody(v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrRequestEncodingFailed, err)
	}
	return body, nil
}

// BuildRequest implements connector.Connector. Evaluation order is fixed:
// headers first (they sign the serialized body), then URL, then body, then
// assembly. Flows without gateway support return (nil, nil).
func (c *Connector) BuildRequest(data *connector.RouterData) (*connector.Request, error) {
	switch data.Flow {
	case connector.FlowVerify, connector.FlowAccessToken, connector.FlowSession:
		return nil, nil
	}

	headers, err := c.Headers(data)
	if err != nil {
		return nil, err
	}
	target, err := c.URL(data)
	if err != nil {
		return nil, err
	}
	body, err := c.RequestBody(data)
	if err != nil {
		return nil, err
	}

	method := http.MethodPost
	if data.Flow == connector.FlowPSync || data.Flow == connector.FlowRSync {
		method = http.MethodGet
	}
	return &connector.Request{
		Method:  method,
		URL:     target,
		Headers: headers,
		Body:    body,
	}, nil
}

// HandleResponse implements connector.Connector. The body is decoded into
// the flow's gateway response type; decode failures surface as
// deserialization errors, downstream mapping failures as handling errors.
func (c *Connector) HandleResponse(data *connector.RouterData, res connector.Response) (*connector.RouterData, error) {
	switch data.Flow {
	case connector.FlowAuthorize, connector.FlowPSync, connector.FlowCapture, connector.FlowVoid:
		var gw paymentsResponse
		if err := json.Unmarshal(res.Body, &gw); err != nil {
			return nil, fmt.Errorf("%w: %v", connector.ErrResponseDeserializationFailed, err)
		}
		if gw.Status == "" {
			return nil, fmt.Errorf("%w: payment body missing status", connector.ErrResponseDeserializationFailed)
		}
		return paymentsRouterData(data, gw)
	case connector.FlowRefundExecute, connector.FlowRSync:
		var gw refundResponse
		if err := json.Unmarshal(res.Body, &gw); err != nil {
			return nil, fmt.Errorf("%w: %v", connector.ErrResponseDeserializationFailed, err)
		}
		if gw.Status == "" {
			return nil, fmt.Errorf("%w: refund body missing status", connector.ErrResponseDeserializationFailed)
		}
		return refundRouterData(data, gw)
	default:
		return data, nil
	}
}

// ErrorResponse implements connector.Connector. The gateway's
// {code, message, param} shape is required in full: an error body that
// cannot be parsed is itself an error, never a best-effort envelope.
func (c *Connector) ErrorResponse(res connector.Response) (connector.ErrorResponse, error) {
	var gw errorResponse
	if err := json.Unmarshal(res.Body, &gw); err != nil {
		return connector.ErrorResponse{}, fmt.Errorf("%w: %v", connector.ErrResponseDeserializationFailed, err)
	}
	if gw.Code == nil || gw.Message == nil {
		return connector.ErrorResponse{}, fmt.Errorf("%w: error body missing code or message", connector.ErrResponseDeserializationFailed)
	}
	envelope := connector.ErrorResponse{
		StatusCode: res.StatusCode,
		Code:       strconv.Itoa(*gw.Code),
		Message:    *gw.Message,
	}
	if gw.Param != nil {
		envelope.Reason = *gw.Param
	}
	return envelope, nil
}

// WebhookReferenceID implements connector.Connector. Webhooks are a
// declared stub: enabling them needs the gateway's payload shape and
// signature verification defined first.
func (c *Connector) WebhookReferenceID(_ []byte) (string, error) {
	return "", connector.ErrWebhooksNotImplemented
}

// WebhookEventType implements connector.Connector.
func (c *Connector) WebhookEventType(_ []byte) (connector.WebhookEvent, error) {
	return connector.WebhookEventUnknown, connector.ErrWebhooksNotImplemented
}

// WebhookResourceObject implements connector.Connector.
func (c *Connector) WebhookResourceObject(_ []byte) (json.RawMessage, error) {
	return nil, connector.ErrWebhooksNotImplemented
}

// RedirectCompletion implements connector.Connector. The gateway encodes
// the outcome server-side, so completion always triggers a follow-up sync
// with no parameter-specific branching.
func (c *Connector) RedirectCompletion(_ url.Values) (connector.RedirectAction, error) {
	return connector.RedirectActionTrigger, nil
}
