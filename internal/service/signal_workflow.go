package service

import (
	"context"
	"fmt"
	"time"

	"grix-mcp/internal/domain"
	"grix-mcp/internal/grix"
	"grix-mcp/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPollAttempts = 10
	defaultPollDelay    = 2 * time.Second
)

type WorkflowState string

const (
	StateCreating   WorkflowState = "CREATING"
	StateSubmitting WorkflowState = "SUBMITTING"
	StatePolling    WorkflowState = "POLLING"
	StateCompleted  WorkflowState = "COMPLETED"
	StateTimedOut   WorkflowState = "TIMED_OUT"
	StateFailed     WorkflowState = "FAILED"
)

type AgentAPI interface {
	CreateAgent(ctx context.Context, cfg grix.TradeAgentConfig) (string, error)
	SubmitSignalRequest(ctx context.Context, agentID string, cfg grix.SignalRequestConfig) error
	GetAgentState(ctx context.Context, agentID string) (grix.AgentSnapshot, error)
}

type PollPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{MaxAttempts: defaultPollAttempts, Delay: defaultPollDelay}
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type SignalTimeoutError struct {
	AgentID  string
	Attempts int
	Delay    time.Duration
}

func (e *SignalTimeoutError) Error() string {
	return fmt.Sprintf("signal generation timed out after %d attempts (agent %s, delay %s)", e.Attempts, e.AgentID, e.Delay)
}

// ProgressFunc observes workflow transitions. step strictly increases within a
// run: CREATING is 0, SUBMITTING 1, poll attempt i is 1+i and the terminal
// state is always reported as total (maxAttempts+2).
type ProgressFunc func(state WorkflowState, step, total int)

type progressKey struct{}

func ContextWithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func progressFrom(ctx context.Context) ProgressFunc {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		return fn
	}
	return func(WorkflowState, int, int) {}
}

// SignalWorkflow runs create agent, submit request, then poll until the
// request completes or the poll budget is spent. Nothing is kept between runs.
type SignalWorkflow struct {
	tracer    trace.Tracer
	api       AgentAPI
	policy    PollPolicy
	sleep     Sleeper
	agentName string
	log       zerolog.Logger
}

func NewSignalWorkflow(tracer trace.Tracer, api AgentAPI, policy PollPolicy, sleep Sleeper, log zerolog.Logger) *SignalWorkflow {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaultPollAttempts
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	if sleep == nil {
		sleep = SleepContext
	}
	return &SignalWorkflow{
		tracer:    tracer,
		api:       api,
		policy:    policy,
		sleep:     sleep,
		agentName: domain.DefaultAgentName,
		log:       log.With().Str("component", "signal_workflow").Logger(),
	}
}

func (w *SignalWorkflow) Policy() PollPolicy {
	return w.policy
}

func (w *SignalWorkflow) GenerateSignals(ctx context.Context, req domain.SignalRequest) (signals []domain.Signal, err error) {
	ctx, span := w.tracer.Start(ctx, "signal-workflow.generate-signals")
	defer span.End()

	runID := uuid.NewString()
	log := w.log.With().Str("run_id", runID).Logger()
	progress := progressFrom(ctx)
	total := w.policy.MaxAttempts + 2
	span.SetAttributes(attribute.String("workflow.run_id", runID))

	state := StateCreating
	defer func() {
		metrics.SignalWorkflows.WithLabelValues(string(state)).Inc()
		span.SetAttributes(attribute.String("workflow.state", string(state)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		progress(state, total, total)
	}()

	progress(StateCreating, 0, total)
	agentID, err := w.api.CreateAgent(ctx, grix.NewTradeAgentConfig(w.agentName, req))
	if err != nil {
		state = StateFailed
		log.Error().Err(err).Msg("Agent creation failed")
		return nil, fmt.Errorf("create agent: %w", err)
	}
	log = log.With().Str("agent_id", agentID).Logger()
	span.SetAttributes(attribute.String("workflow.agent_id", agentID))

	state = StateSubmitting
	progress(state, 1, total)
	if err := w.api.SubmitSignalRequest(ctx, agentID, grix.NewSignalRequestConfig(req)); err != nil {
		state = StateFailed
		log.Error().Err(err).Msg("Signal request submission failed")
		return nil, fmt.Errorf("submit signal request: %w", err)
	}

	state = StatePolling
	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := w.sleep(ctx, w.policy.Delay); err != nil {
				state = StateFailed
				return nil, fmt.Errorf("poll agent %s: %w", agentID, err)
			}
		}

		progress(StatePolling, 1+attempt, total)
		metrics.SignalPollAttempts.Inc()
		snapshot, err := w.api.GetAgentState(ctx, agentID)
		if err != nil {
			state = StateFailed
			log.Error().Err(err).Int("attempt", attempt).Msg("Agent state poll failed")
			return nil, fmt.Errorf("poll agent %s: %w", agentID, err)
		}

		latest, ok := snapshot.LatestRequest()
		if ok && latest.Completed() {
			state = StateCompleted
			out := make([]domain.Signal, 0, len(latest.Signals))
			for _, rec := range latest.Signals {
				out = append(out, rec.Flatten())
			}
			log.Info().Int("attempt", attempt).Int("signals", len(out)).Msg("Signal generation completed")
			return out, nil
		}
		log.Debug().Int("attempt", attempt).Str("progress", latest.Progress).Msg("Signals not ready")
	}

	state = StateTimedOut
	log.Warn().Int("attempts", w.policy.MaxAttempts).Msg("Signal generation timed out")
	return nil, &SignalTimeoutError{AgentID: agentID, Attempts: w.policy.MaxAttempts, Delay: w.policy.Delay}
}
