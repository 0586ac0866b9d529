package context

import (
	stdcontext "context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceContext correlates one inbound operation's log lines with its
// telemetry. The trace id is adopted from the otel span recorded on the
// surrounding context when one exists (the server middleware starts one
// per request), so log lines and exported spans share an identifier; a
// fresh uuid is issued only when no span is active.
type TraceContext struct {
	TraceID string
	SpanID  string
}

// NewTraceContext derives a TraceContext from ctx.
func NewTraceContext(ctx stdcontext.Context) TraceContext {
	tc := TraceContext{SpanID: uuid.NewString()}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		tc.TraceID = sc.TraceID().String()
		return tc
	}
	tc.TraceID = uuid.NewString()
	return tc
}

// NewSpan rotates the span id for a child operation within the same trace.
func (tc *TraceContext) NewSpan() string {
	tc.SpanID = uuid.NewString()
	return tc.SpanID
}
