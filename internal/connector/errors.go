package connector

import "errors"

// Connector error taxonomy. Every failure surfaces to the orchestrator as
// a typed error; nothing is swallowed or retried inside a connector.
// Deserialization and mapping failures are distinct so callers can tell
// "gateway sent garbage" from "gateway sent a well-formed but unexpected
// value".
var (
	// ErrFailedToObtainAuthType is returned when the supplied auth bundle
	// is not the variant the gateway recognizes.
	ErrFailedToObtainAuthType = errors.New("failed to obtain auth type")

	// ErrRequestEncodingFailed covers serialization and signing failures
	// while constructing an outbound request.
	ErrRequestEncodingFailed = errors.New("request encoding failed")

	// ErrMissingConnectorTransactionID is returned when a flow needs the
	// gateway-side transaction or refund identifier and none is present.
	ErrMissingConnectorTransactionID = errors.New("missing connector transaction id")

	// ErrNotImplemented is returned for payment method variants the
	// gateway does not support. No partial request is ever emitted.
	ErrNotImplemented = errors.New("payment method not implemented")

	// ErrResponseDeserializationFailed means the response body did not
	// match the expected shape, on either the success or the error path.
	ErrResponseDeserializationFailed = errors.New("response deserialization failed")

	// ErrResponseHandlingFailed means deserialization succeeded but the
	// downstream mapping (status, redirect URL parsing) failed.
	ErrResponseHandlingFailed = errors.New("response handling failed")

	// ErrWebhooksNotImplemented is returned by the declared webhook stubs.
	ErrWebhooksNotImplemented = errors.New("webhooks not implemented")
)

// MissingFieldError reports a required canonical request field that was
// absent, by its wire-facing name.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field: " + e.Field
}
