package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/runeforge/internal/errors"
)

// StartCommandSpan creates a span for a CLI command execution.
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "plan")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	ctx, span := TracerProvider().Tracer("runeforge/commands").Start(ctx, "command."+cmdName)
	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)
	return ctx, span
}

// StartSelectionSpan creates a span around one engine selection.
func StartSelectionSpan(ctx context.Context, project string, seed uint64, rulesFingerprint string) (context.Context, trace.Span) {
	ctx, span := TracerProvider().Tracer("runeforge/engine").Start(ctx, "engine.select")
	span.SetAttributes(
		attribute.String("project", project),
		attribute.Int64("seed", int64(seed)),
		attribute.String("rules.fingerprint", rulesFingerprint),
	)
	return ctx, span
}

// StartRequestSpan creates a server span for an HTTP request.
func StartRequestSpan(ctx context.Context, method, route string) (context.Context, trace.Span) {
	ctx, span := TracerProvider().Tracer("runeforge/server").Start(ctx, method+" "+route,
		trace.WithSpanKind(trace.SpanKindServer))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
	)
	return ctx, span
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status. Coded errors
// add an error.code attribute.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if code, ok := errors.CodeOf(err); ok {
		span.SetAttributes(attribute.String("error.code", string(code)))
	}
}
