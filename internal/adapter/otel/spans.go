package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "paperdesk"

// StartWorkflowSpan starts a span for one coordinated workflow.
func StartWorkflowSpan(ctx context.Context, workflowID, reqType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "workflow",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
			attribute.String("request.type", reqType),
		),
	)
}

// StartStepSpan starts a span for a worker step within a workflow.
func StartStepSpan(ctx context.Context, agent string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "step",
		trace.WithAttributes(attribute.String("worker.agent", agent)),
	)
}

// StartOperationSpan starts a span for a gateway operation.
func StartOperationSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "operation",
		trace.WithAttributes(attribute.String("operation.name", name)),
	)
}
