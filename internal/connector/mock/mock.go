// Package mock provides a scriptable connector for testing the transport
// and serving layers without a real gateway.
package mock

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/yourorg/payment-connectors/internal/connector"
)

// Connector is a mock implementation of connector.Connector. Each hook,
// when set, overrides the default behavior for the matching operation.
type Connector struct {
	ConnectorName string

	BuildRequestFunc   func(data *connector.RouterData) (*connector.Request, error)
	HandleResponseFunc func(data *connector.RouterData, res connector.Response) (*connector.RouterData, error)
	ErrorResponseFunc  func(res connector.Response) (connector.ErrorResponse, error)
}

// New creates a mock connector with the given name.
func New(name string) *Connector {
	return &Connector{ConnectorName: name}
}

// Name implements connector.Connector.
func (m *Connector) Name() string {
	return m.ConnectorName
}

// BuildRequest calls BuildRequestFunc if set, otherwise returns a minimal
// POST against a placeholder host.
func (m *Connector) BuildRequest(data *connector.RouterData) (*connector.Request, error) {
	if m.BuildRequestFunc != nil {
		return m.BuildRequestFunc(data)
	}
	return &connector.Request{
		Method:  http.MethodPost,
		URL:     "https://" + m.ConnectorName + ".invalid/payments",
		Headers: []connector.Header{{Key: "Content-Type", Value: "application/json"}},
		Body:    []byte(`{}`),
	}, nil
}

// HandleResponse calls HandleResponseFunc if set, otherwise overlays a
// charged payment response with a fresh transaction id.
func (m *Connector) HandleResponse(data *connector.RouterData, res connector.Response) (*connector.RouterData, error) {
	if m.HandleResponseFunc != nil {
		return m.HandleResponseFunc(data, res)
	}
	return data.WithPaymentResponse(connector.AttemptStatusCharged, &connector.PaymentsResponseData{
		ResourceID: uuid.NewString(),
	}), nil
}

// ErrorResponse calls ErrorResponseFunc if set, otherwise echoes the raw
// body as the message.
func (m *Connector) ErrorResponse(res connector.Response) (connector.ErrorResponse, error) {
	if m.ErrorResponseFunc != nil {
		return m.ErrorResponseFunc(res)
	}
	return connector.ErrorResponse{
		StatusCode: res.StatusCode,
		Code:       "mock_error",
		Message:    string(res.Body),
	}, nil
}

// WebhookReferenceID implements connector.Connector.
func (m *Connector) WebhookReferenceID(_ []byte) (string, error) {
	return "", connector.ErrWebhooksNotImplemented
}

// WebhookEventType implements connector.Connector.
func (m *Connector) WebhookEventType(_ []byte) (connector.WebhookEvent, error) {
	return connector.WebhookEventUnknown, connector.ErrWebhooksNotImplemented
}

// WebhookResourceObject implements connector.Connector.
func (m *Connector) WebhookResourceObject(_ []byte) (json.RawMessage, error) {
	return nil, connector.ErrWebhooksNotImplemented
}

// RedirectCompletion implements connector.Connector.
func (m *Connector) RedirectCompletion(_ url.Values) (connector.RedirectAction, error) {
	return connector.RedirectActionTrigger, nil
}
