// Package context carries the per-call execution contexts the platform
// threads through connector invocations: trace identifiers for
// observability and a step context with resolved gateway credentials and
// the remaining SLA budget.
package context

import (
	"time"

	"github.com/yourorg/payment-connectors/internal/connector"
)

// StepExecutionContext is derived for each connector call.
type StepExecutionContext struct {
	TraceID           string             // Taken directly from TraceContext
	SpanID            string             // Current span ID for this call
	StartTime         time.Time          // When this call's processing began
	RemainingBudgetMs int64              // How many ms remain before the overall SLA expires
	Auth              connector.AuthType // Resolved credentials for the target gateway
	AttemptNumber     int                // 1 for the first attempt, 2 for the second, etc.
}

// DeriveStepContext creates a StepExecutionContext for one connector call.
// The remaining budget is the overall budget minus what has elapsed since
// the operation started; it never goes negative.
func DeriveStepContext(tc TraceContext, auth connector.AuthType, overallBudgetMs int64, startTime time.Time, attemptNumber int) StepExecutionContext {
	elapsedMs := time.Since(startTime).Milliseconds()
	remaining := overallBudgetMs - elapsedMs
	if remaining < 0 {
		remaining = 0
	}
	return StepExecutionContext{
		TraceID:           tc.TraceID,
		SpanID:            tc.NewSpan(),
		StartTime:         time.Now(),
		RemainingBudgetMs: remaining,
		Auth:              auth,
		AttemptNumber:     attemptNumber,
	}
}
