// Package processor is the transport collaborator: it executes the
// request a connector built, hands the raw response back to the connector
// for decoding, and records observability for the round trip. It performs
// exactly one network call per invocation: no retries, no backoff, no
// masking of failures.
package processor

import (
	"bytes"
	stdcontext "context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yourorg/payment-connectors/internal/connector"
	custom_context "github.com/yourorg/payment-connectors/internal/context"
	"github.com/yourorg/payment-connectors/internal/monitor"
)

const defaultTimeout = 10 * time.Second

// Processor executes connector calls over HTTP.
type Processor struct {
	client   *http.Client
	registry map[string]connector.Connector
	logger   *zap.Logger
	metrics  *monitor.CallMetrics
	tracer   trace.Tracer
}

// New creates a Processor. A nil client gets a default with a 10s timeout;
// a nil logger logs nowhere; metrics may be nil when scraping is disabled.
func New(client *http.Client, logger *zap.Logger, metrics *monitor.CallMetrics) *Processor {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		client:   client,
		registry: make(map[string]connector.Connector),
		logger:   logger,
		metrics:  metrics,
		tracer:   otel.Tracer("processor"),
	}
}

// Register adds a connector under its own name.
func (p *Processor) Register(c connector.Connector) {
	p.registry[c.Name()] = c
}

// Execute runs one connector call: build the request, perform the single
// round trip, and map the response. A non-2xx status is normalized through
// the connector's error path and returned as data carrying the envelope,
// not as a Go error: the gateway answered, it just said no.
func (p *Processor) Execute(
	ctx stdcontext.Context,
	stepCtx custom_context.StepExecutionContext,
	name string,
	data *connector.RouterData,
) (*connector.RouterData, error) {
	ctx, span := p.tracer.Start(ctx, "connector."+string(data.Flow),
		trace.WithAttributes(
			attribute.String("connector.name", name),
			attribute.String("connector.flow", string(data.Flow)),
		))
	defer span.End()

	conn, ok := p.registry[name]
	if !ok {
		return nil, fmt.Errorf("processor: no connector registered for %q", name)
	}

	logger := p.logger.With(
		zap.String("connector", name),
		zap.String("flow", string(data.Flow)),
		zap.String("trace_id", stepCtx.TraceID),
		zap.Int("attempt", stepCtx.AttemptNumber),
	)

	start := time.Now()
	req, err := conn.BuildRequest(data)
	if err != nil {
		p.observe(name, data.Flow, monitor.OutcomeBuildError, start)
		logger.Warn("request build failed", zap.Error(err))
		return nil, err
	}
	if req == nil {
		// Flow with no gateway support: uniform contract, no call.
		logger.Debug("flow performs no gateway call")
		return data, nil
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		p.observe(name, data.Flow, monitor.OutcomeTransportError, start)
		return nil, fmt.Errorf("processor: create http request: %w", err)
	}
	for _, h := range req.Headers {
		httpReq.Header.Set(h.Key, h.Value)
	}

	httpRes, err := p.client.Do(httpReq)
	if err != nil {
		p.observe(name, data.Flow, monitor.OutcomeTransportError, start)
		logger.Warn("transport error", zap.Error(err))
		return nil, fmt.Errorf("processor: %s %s: %w", req.Method, req.URL, err)
	}
	defer httpRes.Body.Close()

	resBody, err := io.ReadAll(httpRes.Body)
	if err != nil {
		p.observe(name, data.Flow, monitor.OutcomeTransportError, start)
		return nil, fmt.Errorf("processor: read response body: %w", err)
	}
	res := connector.Response{StatusCode: httpRes.StatusCode, Body: resBody}

	if httpRes.StatusCode >= 200 && httpRes.StatusCode < 300 {
		out, err := conn.HandleResponse(data, res)
		if err != nil {
			p.observe(name, data.Flow, monitor.OutcomeHandlingError, start)
			logger.Warn("response handling failed", zap.Int("http_status", httpRes.StatusCode), zap.Error(err))
			return nil, err
		}
		p.observe(name, data.Flow, monitor.OutcomeSuccess, start)
		logger.Info("connector call succeeded",
			zap.Int("http_status", httpRes.StatusCode),
			zap.String("status", string(out.Status)),
			zap.Duration("latency", time.Since(start)),
		)
		return out, nil
	}

	envelope, err := conn.ErrorResponse(res)
	if err != nil {
		p.observe(name, data.Flow, monitor.OutcomeHandlingError, start)
		logger.Warn("error response unparsable", zap.Int("http_status", httpRes.StatusCode), zap.Error(err))
		return nil, err
	}
	p.observe(name, data.Flow, monitor.OutcomeGatewayError, start)
	logger.Warn("gateway declined",
		zap.Int("http_status", envelope.StatusCode),
		zap.String("code", envelope.Code),
		zap.String("message", envelope.Message),
	)
	return data.WithError(&envelope), nil
}

func (p *Processor) observe(name string, flow connector.Flow, outcome string, start time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.Observe(name, string(flow), outcome, time.Since(start))
}
