package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dpt/internal/infrastructure"
)

// TracerName is the OpenTelemetry tracer name used by the operations package
const TracerName = "dpt/operations"

// Manager runs a fixed sequence of steps.
type Manager struct {
	steps       []Step
	stepTimeout time.Duration
	metrics     *infrastructure.BusinessMetrics
	observer    Observer
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewManager creates a manager for steps, run in the given order.
func NewManager(logger *slog.Logger, metrics *infrastructure.BusinessMetrics, steps ...Step) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		steps:       steps,
		stepTimeout: DefaultStepTimeout,
		metrics:     metrics,
		logger:      infrastructure.WithComponent(logger, "operation_manager"),
		tracer:      otel.Tracer(TracerName),
	}
}

// SetStepTimeout bounds each step. Zero disables the bound.
func (m *Manager) SetStepTimeout(d time.Duration) {
	m.stepTimeout = d
}

// SetObserver registers o to receive progress events.
func (m *Manager) SetObserver(o Observer) {
	m.observer = o
}

func (m *Manager) notify(ctx context.Context, ev Event) {
	if m.observer == nil {
		return
	}
	ev.Time = time.Now()
	m.observer.Notify(ctx, ev)
}

// Steps returns the registered step ids in execution order.
func (m *Manager) Steps() []string {
	ids := make([]string, len(m.steps))
	for i, s := range m.steps {
		ids[i] = s.ID()
	}
	return ids
}

// Execute runs every step against a fresh OperationState. The state is
// returned even on failure so callers can inspect per-step status.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationState, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ctx = infrastructure.EnsureTraceID(ctx)

	ctx, span := m.tracer.Start(ctx, "operation.execute",
		trace.WithAttributes(
			attribute.String("operation.id", req.ID),
			attribute.Int("operation.steps", len(m.steps)),
		),
	)
	defer span.End()

	logger := m.logger.With(slog.String("operation_id", req.ID))

	state := NewOperationState(req)
	for _, s := range m.steps {
		state.SetStep(s.ID(), NewStepState(s.ID(), s.Name()))
	}
	state.Start()

	logger.InfoContext(ctx, "operation_started", slog.Int("steps", len(m.steps)))
	m.notify(ctx, Event{Type: EventOperationStarted, OperationID: req.ID})

	var failed error
	for _, s := range m.steps {
		stepState := state.GetStep(s.ID())

		if failed != nil {
			stepState.Skip("previous step failed")
			m.notify(ctx, Event{Type: EventStepSkipped, OperationID: req.ID, Step: s.ID(), Message: "previous step failed"})
			continue
		}
		if err := ctx.Err(); err != nil {
			failed = NewCancellationError(s.ID(), err)
			stepState.Fail(failed)
			m.notify(ctx, Event{Type: EventStepFailed, OperationID: req.ID, Step: s.ID(), Error: failed.Error()})
			continue
		}

		failed = m.executeStep(ctx, logger, s, stepState, state)
	}

	if failed != nil {
		state.Fail(failed)
		span.RecordError(failed)
		span.SetStatus(codes.Error, failed.Error())
		logger.ErrorContext(ctx, "operation_failed",
			slog.String("error", failed.Error()),
			slog.Duration("duration", state.Duration()))
		m.notify(ctx, Event{Type: EventOperationFailed, OperationID: req.ID, Error: failed.Error()})
		return state, failed
	}

	state.Complete()
	span.SetStatus(codes.Ok, "")
	logger.InfoContext(ctx, "operation_completed", slog.Duration("duration", state.Duration()))
	m.notify(ctx, Event{Type: EventOperationCompleted, OperationID: req.ID})
	return state, nil
}

func (m *Manager) executeStep(ctx context.Context, logger *slog.Logger, s Step, stepState *StepState, state *OperationState) error {
	ctx, span := m.tracer.Start(ctx, "operation.step."+s.ID(),
		trace.WithAttributes(
			attribute.String("step.id", s.ID()),
			attribute.String("step.name", s.Name()),
		),
	)
	defer span.End()

	if m.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.stepTimeout)
		defer cancel()
	}

	logger.InfoContext(ctx, "executing_stage", slog.String("step", s.ID()))
	stepState.Start()
	m.notify(ctx, Event{Type: EventStepStarted, OperationID: state.ID, Step: s.ID(), Message: s.Name()})

	err := s.Execute(ctx, state)
	duration := stepState.Duration()

	switch {
	case errors.Is(err, ErrSkipped):
		stepState.Skip(err.Error())
		span.SetAttributes(attribute.Bool("step.skipped", true))
		logger.InfoContext(ctx, "stage_skipped", slog.String("step", s.ID()))
		m.notify(ctx, Event{Type: EventStepSkipped, OperationID: state.ID, Step: s.ID(), Message: err.Error()})
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		err = NewTimeoutError(s.ID(), m.stepTimeout.String())
	case err != nil:
		var opErr *OperationError
		if !errors.As(err, &opErr) {
			err = NewExecutionError(s.ID(), err)
		}
	}

	infrastructure.RecordStep(ctx, m.metrics, s.ID(), duration, err)

	if err != nil {
		stepState.Fail(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "stage_failed",
			slog.String("step", s.ID()),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration))
		m.notify(ctx, Event{Type: EventStepFailed, OperationID: state.ID, Step: s.ID(), Error: err.Error()})
		return err
	}

	stepState.Complete()
	span.SetStatus(codes.Ok, "")
	logger.InfoContext(ctx, "stage_completed",
		slog.String("step", s.ID()),
		slog.Duration("duration", stepState.Duration()))
	m.notify(ctx, Event{Type: EventStepCompleted, OperationID: state.ID, Step: s.ID()})
	return nil
}

// Response summarizes state for API callers.
func Response(state *OperationState) OperationResponse {
	resp := OperationResponse{
		ID:       state.ID,
		Status:   state.Status,
		Duration: state.Duration(),
		Steps:    state.Steps,
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}

func stepError(step, format string, args ...any) error {
	return NewExecutionError(step, fmt.Errorf(format, args...))
}
