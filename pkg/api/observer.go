package api

import (
	"context"
	"log/slog"
)

// Observer receives callbacks from the executor for logging and
// metrics. Implementations should be fast and non-blocking; heavy work
// should be done asynchronously so as not to delay flow execution.
//
// This mirrors the teacher's workflow-step Observer, retargeted from
// per-step callbacks to the flow-lifecycle events this core actually
// produces.
type Observer interface {
	OnFlowStart(ctx context.Context, id FlowId, flow Flow)
	OnFlowResolved(ctx context.Context, id FlowId, outcome *PollOutcome)
	OnFlowControl(ctx context.Context, id FlowId, op string)
}

// NoopObserver is an Observer that does nothing. It is the default when
// no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnFlowStart(context.Context, FlowId, Flow)              {}
func (NoopObserver) OnFlowResolved(context.Context, FlowId, *PollOutcome)   {}
func (NoopObserver) OnFlowControl(context.Context, FlowId, string)          {}

// SlogObserver logs flow lifecycle events through a *slog.Logger. It is
// the default non-trivial Observer, matching the teacher's preference
// for a structured logger over a bespoke events/metrics sink.
type SlogObserver struct {
	Logger *slog.Logger
}

// NewSlogObserver builds a SlogObserver. A nil logger falls back to
// slog.Default().
func NewSlogObserver(logger *slog.Logger) SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogObserver{Logger: logger}
}

func (o SlogObserver) OnFlowStart(_ context.Context, id FlowId, flow Flow) {
	o.Logger.Info("flow started", "flow_id", id, "kind", flow.Kind)
}

func (o SlogObserver) OnFlowResolved(_ context.Context, id FlowId, outcome *PollOutcome) {
	if outcome == nil {
		return
	}
	switch outcome.Kind {
	case PollDied:
		o.Logger.Error("flow died", "flow_id", id, "error_tag", outcome.Err.Tag())
	case PollFailed:
		o.Logger.Warn("flow failed", "flow_id", id, "value", outcome.Value.String())
	default:
		o.Logger.Info("flow resolved", "flow_id", id, "kind", outcome.Kind)
	}
}

func (o SlogObserver) OnFlowControl(_ context.Context, id FlowId, op string) {
	o.Logger.Info("flow control", "flow_id", id, "op", op)
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver builds an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnFlowStart(ctx context.Context, id FlowId, flow Flow) {
	for _, o := range c.observers {
		o.OnFlowStart(ctx, id, flow)
	}
}

func (c *CompositeObserver) OnFlowResolved(ctx context.Context, id FlowId, outcome *PollOutcome) {
	for _, o := range c.observers {
		o.OnFlowResolved(ctx, id, outcome)
	}
}

func (c *CompositeObserver) OnFlowControl(ctx context.Context, id FlowId, op string) {
	for _, o := range c.observers {
		o.OnFlowControl(ctx, id, op)
	}
}
