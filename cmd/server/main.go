// Command server exposes the connector flows over HTTP. It is a thin
// harness: handlers translate JSON payloads into canonical snapshots,
// hand them to the processor, and report the outcome together with a
// policy verdict. Retry execution belongs to the caller.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/yourorg/payment-connectors/internal/config"
	"github.com/yourorg/payment-connectors/internal/connector"
	"github.com/yourorg/payment-connectors/internal/connector/dlocal"
	custom_context "github.com/yourorg/payment-connectors/internal/context"
	"github.com/yourorg/payment-connectors/internal/logging"
	"github.com/yourorg/payment-connectors/internal/monitor"
	"github.com/yourorg/payment-connectors/internal/policy"
	"github.com/yourorg/payment-connectors/internal/processor"
)

const callBudgetMs = 30_000

type server struct {
	settings *config.Settings
	proc     *processor.Processor
	enforcer *policy.Enforcer
	logger   *zap.Logger
	registry *prometheus.Registry
}

type cardPayload struct {
	Number     string `json:"number" binding:"required"`
	ExpMonth   string `json:"exp_month" binding:"required"`
	ExpYear    string `json:"exp_year" binding:"required"`
	CVC        string `json:"cvc" binding:"required"`
	HolderName string `json:"holder_name"`
}

type walletPayload struct {
	Provider string `json:"provider" binding:"required"`
}

type addressPayload struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Line1   string `json:"line1"`
	Zip     string `json:"zip"`
}

type authorizePayload struct {
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	Email         string          `json:"email"`
	PayerName     string          `json:"payer_name"`
	PayerDocument string          `json:"payer_document"`
	CaptureMethod string          `json:"capture_method"`
	MandateID     string          `json:"mandate_id"`
	ReturnURL     string          `json:"return_url"`
	Card          *cardPayload    `json:"card"`
	Wallet        *walletPayload  `json:"wallet"`
	Billing       *addressPayload `json:"billing"`
}

type capturePayload struct {
	Amount          int64  `json:"amount"`
	AmountToCapture *int64 `json:"amount_to_capture"`
	Currency        string `json:"currency"`
}

type refundPayload struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// callResult is the uniform response body for every flow endpoint.
type callResult struct {
	TraceID   string                          `json:"trace_id"`
	PaymentID string                          `json:"payment_id,omitempty"`
	RefundID  string                          `json:"refund_id,omitempty"`
	Status    connector.AttemptStatus         `json:"status,omitempty"`
	Payment   *connector.PaymentsResponseData `json:"payment,omitempty"`
	Refund    *connector.RefundsResponseData  `json:"refund,omitempty"`
	Error     *connector.ErrorResponse        `json:"error,omitempty"`
	Policy    *policy.Decision                `json:"policy,omitempty"`
}

func newServer(settings *config.Settings, proc *processor.Processor, enforcer *policy.Enforcer, logger *zap.Logger, registry *prometheus.Registry) *server {
	return &server{
		settings: settings,
		proc:     proc,
		enforcer: enforcer,
		logger:   logger,
		registry: registry,
	}
}

func (s *server) gatewayAuth(c *gin.Context) (connector.AuthType, bool) {
	gw, err := s.settings.Gateway(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return gw.Auth(), true
}

// run executes one connector call and writes the uniform response. Build
// and decode failures are the platform's fault (502); a gateway decline is
// reported as 422 with the normalized envelope and a policy verdict.
func (s *server) run(c *gin.Context, data *connector.RouterData) {
	tc := custom_context.NewTraceContext(c.Request.Context())
	stepCtx := custom_context.DeriveStepContext(tc, data.Auth, callBudgetMs, time.Now(), 1)

	out, err := s.proc.Execute(c.Request.Context(), stepCtx, c.Param("name"), data)
	if err != nil {
		decision := s.decide(data.Flow, 0, "")
		c.JSON(http.StatusBadGateway, callResult{
			TraceID:   tc.TraceID,
			PaymentID: data.PaymentID,
			Error:     &connector.ErrorResponse{Message: err.Error()},
			Policy:    decision,
		})
		return
	}

	result := callResult{
		TraceID:   tc.TraceID,
		PaymentID: out.PaymentID,
		Status:    out.Status,
		Payment:   out.PaymentResponse,
		Refund:    out.RefundResponse,
	}
	if out.Refund != nil {
		result.RefundID = out.Refund.RefundID
	}
	if out.Error != nil {
		result.Error = out.Error
		result.Policy = s.decide(data.Flow, out.Error.StatusCode, string(out.Status))
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) decide(flow connector.Flow, httpStatus int, status string) *policy.Decision {
	decision, err := s.enforcer.Evaluate(policy.Outcome{
		Flow:          string(flow),
		AttemptNumber: 1,
		Success:       false,
		HTTPStatus:    httpStatus,
		Status:        status,
	})
	if err != nil {
		s.logger.Warn("policy evaluation failed", zap.Error(err))
		return nil
	}
	return &decision
}

func (s *server) authorizeHandler(c *gin.Context) {
	var req authorizePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if req.Currency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency is required"})
		return
	}
	if (req.Card == nil) == (req.Wallet == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of card or wallet is required"})
		return
	}

	auth, ok := s.gatewayAuth(c)
	if !ok {
		return
	}

	var method connector.PaymentMethodData
	if req.Card != nil {
		method = connector.Card{
			Number:     req.Card.Number,
			ExpMonth:   req.Card.ExpMonth,
			ExpYear:    req.Card.ExpYear,
			CVC:        req.Card.CVC,
			HolderName: req.Card.HolderName,
		}
	} else {
		method = connector.Wallet{Provider: req.Wallet.Provider}
	}

	captureMethod := connector.CaptureMethodAutomatic
	if req.CaptureMethod == string(connector.CaptureMethodManual) {
		captureMethod = connector.CaptureMethodManual
	}

	var billing *connector.Address
	if req.Billing != nil {
		billing = &connector.Address{
			Country: req.Billing.Country,
			City:    req.Billing.City,
			Line1:   req.Billing.Line1,
			Zip:     req.Billing.Zip,
		}
	}

	s.run(c, &connector.RouterData{
		Flow:      connector.FlowAuthorize,
		PaymentID: uuid.NewString(),
		Auth:      auth,
		ReturnURL: req.ReturnURL,
		Authorize: &connector.AuthorizeData{
			Amount:        req.Amount,
			Currency:      req.Currency,
			PaymentMethod: method,
			Email:         req.Email,
			PayerName:     req.PayerName,
			PayerDocument: req.PayerDocument,
			CaptureMethod: captureMethod,
			MandateID:     req.MandateID,
			Billing:       billing,
		},
	})
}

func (s *server) syncHandler(c *gin.Context) {
	auth, ok := s.gatewayAuth(c)
	if !ok {
		return
	}
	s.run(c, &connector.RouterData{
		Flow:      connector.FlowPSync,
		PaymentID: uuid.NewString(),
		Auth:      auth,
		Sync:      &connector.SyncData{ConnectorTransactionID: c.Param("id")},
	})
}

func (s *server) captureHandler(c *gin.Context) {
	var req capturePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	auth, ok := s.gatewayAuth(c)
	if !ok {
		return
	}
	s.run(c, &connector.RouterData{
		Flow:      connector.FlowCapture,
		PaymentID: uuid.NewString(),
		Auth:      auth,
		Capture: &connector.CaptureData{
			ConnectorTransactionID: c.Param("id"),
			Amount:                 req.Amount,
			AmountToCapture:        req.AmountToCapture,
			Currency:               req.Currency,
		},
	})
}

func (s *server) cancelHandler(c *gin.Context) {
	auth, ok := s.gatewayAuth(c)
	if !ok {
		return
	}
	s.run(c, &connector.RouterData{
		Flow:      connector.FlowVoid,
		PaymentID: uuid.NewString(),
		Auth:      auth,
		Cancel:    &connector.CancelData{ConnectorTransactionID: c.Param("id")},
	})
}

func (s *server) refundHandler(c *gin.Context) {
	var req refundPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format: " + err.Error()})
		return
	}
	if req.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	auth, ok := s.gatewayAuth(c)
	if !ok {
		return
	}
	s.run(c, &connector.RouterData{
		Flow:      connector.FlowRefundExecute,
		PaymentID: uuid.NewString(),
		Auth:      auth,
		Refund: &connector.RefundData{
			RefundID:               uuid.NewString(),
			ConnectorTransactionID: c.Param("id"),
			RefundAmount:           req.Amount,
			Currency:               req.Currency,
		},
	})
}

func (s *server) refundSyncHandler(c *gin.Context) {
	auth, ok := s.gatewayAuth(c)
	if !ok {
		return
	}
	s.run(c, &connector.RouterData{
		Flow:      connector.FlowRSync,
		PaymentID: uuid.NewString(),
		Auth:      auth,
		Refund: &connector.RefundData{
			RefundID:          c.Param("id"),
			ConnectorRefundID: c.Param("id"),
		},
	})
}

func setupRouter(s *server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("payment-connectors"))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	g := r.Group("/connectors/:name")
	g.POST("/payments", s.authorizeHandler)
	g.GET("/payments/:id", s.syncHandler)
	g.POST("/payments/:id/capture", s.captureHandler)
	g.POST("/payments/:id/cancel", s.cancelHandler)
	g.POST("/payments/:id/refunds", s.refundHandler)
	g.GET("/refunds/:id", s.refundSyncHandler)
	return r
}

func initTracing() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}

func main() {
	logger := logging.MustNewLogger("payment-connectors", os.Getenv("APP_ENV"))
	defer logger.Sync()

	tp, err := initTracing()
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	configPath := os.Getenv("CONNECTOR_CONFIG")
	if configPath == "" {
		configPath = "connectors.json"
	}
	settings, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("load settings", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	metrics := monitor.NewCallMetrics(registry)
	proc := processor.New(nil, logger, metrics)

	for name, gw := range settings.Connectors {
		if name != "dlocal" {
			logger.Warn("no connector implementation for configured gateway", zap.String("connector", name))
			continue
		}
		conn, err := dlocal.New(dlocal.Config{
			BaseURL:           gw.BaseURL,
			NotificationURL:   gw.NotificationURL,
			ForceThreeDSecure: gw.ForceThreeDSecure,
		})
		if err != nil {
			logger.Fatal("build connector", zap.String("connector", name), zap.Error(err))
		}
		proc.Register(conn)
	}

	enforcer, err := policy.NewEnforcer(policy.DefaultRules())
	if err != nil {
		logger.Fatal("compile policy rules", zap.Error(err))
	}

	srv := newServer(settings, proc, enforcer, logger, registry)
	logger.Info("starting server", zap.String("addr", ":8080"))
	if err := setupRouter(srv).Run(":8080"); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
