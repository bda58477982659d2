package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "paperdesk"

// Metrics holds all PaperDesk metric instruments.
type Metrics struct {
	WorkflowsStarted  metric.Int64Counter
	WorkflowsFinished metric.Int64Counter
	WorkflowDuration  metric.Float64Histogram
	StepAttempts      metric.Int64Counter
	StepDuration      metric.Float64Histogram
	OperationCalls    metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.WorkflowsStarted, err = meter.Int64Counter("paperdesk.workflows.started",
		metric.WithDescription("Number of workflows started"))
	if err != nil {
		return nil, err
	}

	m.WorkflowsFinished, err = meter.Int64Counter("paperdesk.workflows.finished",
		metric.WithDescription("Number of workflows that reached a terminal status"))
	if err != nil {
		return nil, err
	}

	m.WorkflowDuration, err = meter.Float64Histogram("paperdesk.workflow.duration_seconds",
		metric.WithDescription("Workflow duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.StepAttempts, err = meter.Int64Counter("paperdesk.step.attempts",
		metric.WithDescription("Number of worker attempts, including retries"))
	if err != nil {
		return nil, err
	}

	m.StepDuration, err = meter.Float64Histogram("paperdesk.step.duration_ms",
		metric.WithDescription("Worker step duration in milliseconds"))
	if err != nil {
		return nil, err
	}

	m.OperationCalls, err = meter.Int64Counter("paperdesk.operations",
		metric.WithDescription("Number of gateway operation calls"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordStart counts a started workflow. Safe on a nil receiver.
func (m *Metrics) RecordStart(ctx context.Context, reqType string) {
	if m == nil {
		return
	}
	m.WorkflowsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("request.type", reqType)))
}

// RecordWorkflow records a finished workflow. Safe on a nil receiver.
func (m *Metrics) RecordWorkflow(ctx context.Context, reqType, status string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("request.type", reqType),
		attribute.String("status", status),
	)
	m.WorkflowsFinished.Add(ctx, 1, attrs)
	m.WorkflowDuration.Record(ctx, seconds, attrs)
}

// RecordStep records one worker step. Safe on a nil receiver.
func (m *Metrics) RecordStep(ctx context.Context, agent string, attempts int, success bool, ms float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.Bool("success", success),
	)
	m.StepAttempts.Add(ctx, int64(attempts), attrs)
	m.StepDuration.Record(ctx, ms, attrs)
}

// RecordOperation counts one gateway call. Safe on a nil receiver.
func (m *Metrics) RecordOperation(ctx context.Context, name, outcome string) {
	if m == nil {
		return
	}
	m.OperationCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", name),
		attribute.String("outcome", outcome),
	))
}
