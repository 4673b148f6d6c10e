package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times a named unit of work inside a request trace.
type Span struct {
	logger *slog.Logger
	start  time.Time
	err    error
}

// StartSpan derives a child span from the provided context. The returned
// context carries a logger enriched with trace and span identifiers; the span
// handle reports the outcome when ended.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	spanID := uuid.NewString()
	attrs := []any{
		slog.String("span_id", spanID),
		slog.String("span_name", name),
	}
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	if parent := SpanIDFromContext(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}

	logger = logger.With(attrs...)
	ctx = WithLogger(ctx, logger)
	ctx = WithSpanID(ctx, spanID)

	return ctx, &Span{logger: logger, start: time.Now()}
}

// Fail records the error the span ended with.
func (s *Span) Fail(err error) {
	if s != nil {
		s.err = err
	}
}

// End emits the completion entry: Debug on success, Warn when Fail was called.
func (s *Span) End() {
	if s == nil {
		return
	}
	duration := slog.Duration("duration", time.Since(s.start))
	if s.err != nil {
		s.logger.Warn("span failed", duration, slog.String("error", s.err.Error()))
		return
	}
	s.logger.Debug("span completed", duration)
}
