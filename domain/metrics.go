package domain

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName        = "taskpad/domain"
	mutationEventName = "store.mutation.metrics"
)

// mutationMetrics collects staged timings for a single store mutation and
// reports them as one span and one structured log entry when the mutation
// finishes.
type mutationMetrics struct {
	logger          *log.Logger
	span            trace.Span
	op              string
	start           time.Time
	applyDuration   time.Duration
	persistDuration time.Duration
	errorStage      string
}

func newMutationMetrics(ctx context.Context, logger *log.Logger, op string) (*mutationMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, "taskpad.store."+op)
	return &mutationMetrics{
		logger: logger,
		span:   span,
		op:     op,
		start:  time.Now(),
	}, spanCtx
}

func (m *mutationMetrics) ObserveApply(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.applyDuration = duration
}

func (m *mutationMetrics) ObservePersist(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.persistDuration = duration
}

func (m *mutationMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Done closes the span and emits the log entry. taskCount is the collection
// size after the mutation.
func (m *mutationMetrics) Done(taskCount int, err error) {
	if m == nil {
		return
	}
	total := time.Since(m.start)

	attrs := []attribute.KeyValue{
		attribute.String("taskpad.store.op", m.op),
		attribute.Int("taskpad.store.tasks", taskCount),
		attribute.Float64("taskpad.store.total_ms", durationToMillis(total)),
	}
	if m.applyDuration > 0 {
		attrs = append(attrs, attribute.Float64("taskpad.store.apply_ms", durationToMillis(m.applyDuration)))
	}
	if m.persistDuration > 0 {
		attrs = append(attrs, attribute.Float64("taskpad.store.persist_ms", durationToMillis(m.persistDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("taskpad.store.error_stage", m.errorStage))
	}
	m.span.SetAttributes(attrs...)
	if err != nil {
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, m.errorStage)
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"op":       m.op,
		"tasks":    taskCount,
		"total_ms": durationToMillis(total),
	}
	if m.applyDuration > 0 {
		fields["apply_ms"] = durationToMillis(m.applyDuration)
	}
	if m.persistDuration > 0 {
		fields["persist_ms"] = durationToMillis(m.persistDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info(mutationEventName)
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
