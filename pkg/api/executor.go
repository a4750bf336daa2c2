package api

import "context"

// DurablePromise is the handle Executor.Start returns: a persistent
// placeholder for a flow's eventual terminal result. Its Id is derived
// one-to-one from the FlowId (spec §9); only the executor fulfills it.
type DurablePromise struct {
	Id     PromiseId
	FlowId FlowId
}

// FlowStatusEntry is one row of Executor.GetAll: a flow id paired with
// its current lifecycle status.
type FlowStatusEntry struct {
	Id     FlowId
	Status FlowStatus
}

// FlowStatusSeq is the lazy-sequence shape Executor.GetAll returns.
type FlowStatusSeq func(yield func(FlowStatusEntry, error) bool)

// Executor is the lifecycle contract for running flows (spec §4.3). The
// core specifies this contract; backends implement it. This repository
// ships a reference implementation (internal/executor.Executor, generic
// over any KVStore) and a test double (internal/executor.MockExecutor).
type Executor interface {
	// Start registers a new flow instance under id and returns a handle
	// whose id is derived one-to-one from id. Returning from Start does
	// not imply the flow is complete — only that it has been durably
	// recorded and scheduled.
	Start(ctx context.Context, id FlowId, flow Flow) (DurablePromise, error)

	// Poll returns (nil, nil) while the flow is still Running. Once
	// resolved it returns the terminal PollOutcome.
	Poll(ctx context.Context, id FlowId) (*PollOutcome, error)

	// Pause, Resume, and Abort are semantically idempotent control
	// operations. They do not wait for the operation to take effect.
	Pause(ctx context.Context, id FlowId) error
	Resume(ctx context.Context, id FlowId) error
	Abort(ctx context.Context, id FlowId) error

	// Delete reclaims a finished flow's durable state. It fails with an
	// InvalidOperationArguments error if the flow is currently live, and
	// succeeds (as a no-op) if the flow is unknown.
	Delete(ctx context.Context, id FlowId) error

	// GetAll enumerates every known flow with its current status.
	GetAll(ctx context.Context) FlowStatusSeq

	// RestartAll re-schedules every persisted, non-terminal flow. Called
	// once at process startup before new work is accepted. It is a
	// no-op for pure in-memory backends, since nothing survives a
	// restart there.
	RestartAll(ctx context.Context) error

	// ForceGarbageCollection makes a best-effort attempt to reclaim
	// finished-flow state.
	ForceGarbageCollection(ctx context.Context) error
}
