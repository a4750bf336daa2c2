// Package executor provides the reference implementation of
// api.Executor (built on any api.KVStore) and a scriptable test double
// used to drive the HTTP façade's lifecycle scenarios.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/flowzero/zflow/pkg/api"
)

const (
	stateNamespace  = "_zflow_flow_state"
	resultNamespace = "_zflow_flow_result"
)

// Executor is the reference api.Executor implementation. It is generic
// over the backing api.KVStore: the same code runs against the
// in-memory store, SQLite, or any networked backend.
//
// Start durably records (flow, status) and hands the flow to a single
// background worker goroutine (adapted from the teacher's pkg/worker.Worker
// pulling from an internal/taskqueue.Queue) for evaluation. Because the
// only flow shapes this core evaluates (Succeed/Fail/Die/Provide) are
// immediately resolvable, evaluation never actually suspends — but
// routing it through a queue keeps Start non-blocking and gives
// RestartAll real work to do against a persistent backend.
type Executor struct {
	store    api.KVStore
	observer api.Observer
	queue    queue
	ts       atomic.Uint64

	workerCtx    context.Context
	workerCancel context.CancelFunc
}

// New builds an Executor backed by store. The returned Executor owns a
// background worker; call Close to stop it.
func New(store api.KVStore, observer api.Observer) *Executor {
	if observer == nil {
		observer = api.NoopObserver{}
	}
	workerCtx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		store:        store,
		observer:     observer,
		queue:        newInMemoryQueue(1024),
		workerCtx:    workerCtx,
		workerCancel: cancel,
	}
	go e.runWorker()
	return e
}

var _ api.Executor = (*Executor)(nil)

// Close stops the background worker. Pending tasks are abandoned.
func (e *Executor) Close() {
	e.workerCancel()
}

func (e *Executor) nextTS() uint64 {
	return e.ts.Add(1)
}

func (e *Executor) runWorker() {
	for {
		task, err := e.queue.Dequeue(e.workerCtx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			continue
		}
		e.evaluate(e.workerCtx, task.FlowId, task.Flow)
	}
}

// evaluate resolves a flow's outcome and durably records it, unless the
// flow has already been resolved (e.g. by Abort) in the meantime.
func (e *Executor) evaluate(ctx context.Context, id api.FlowId, flow api.Flow) {
	if _, found, err := e.store.GetLatest(ctx, resultNamespace, []byte(id), nil); err != nil {
		slog.Default().Error("executor: checking existing result", "flow_id", id, "error", err)
		return
	} else if found {
		return
	}

	outcome := resolveFlow(flow)
	data, err := encodeResult(*outcome)
	if err != nil {
		slog.Default().Error("executor: encoding result", "flow_id", id, "error", err)
		return
	}
	if err := e.store.Put(ctx, resultNamespace, []byte(id), data, e.nextTS()); err != nil {
		slog.Default().Error("executor: persisting result", "flow_id", id, "error", err)
		return
	}
	e.observer.OnFlowResolved(ctx, id, outcome)
}

// resolveFlow evaluates the closed set of flow node kinds this core
// understands. Provide only rebinds a parameter onto an inner node; the
// three terminal kinds resolve directly.
func resolveFlow(flow api.Flow) *api.PollOutcome {
	switch flow.Kind {
	case api.FlowSucceed:
		return api.Succeeded(valueOrZero(flow.Value))
	case api.FlowFail:
		return api.Failed(valueOrZero(flow.Value))
	case api.FlowDie:
		execErr, err := api.DecodeExecutorError(*flow.Err)
		if err != nil {
			execErr = api.InvalidOperationArguments{Msg: "malformed executor error in flow"}
		}
		return api.Died(execErr)
	case api.FlowProvide:
		if flow.Inner != nil {
			return resolveFlow(*flow.Inner)
		}
		return api.Died(api.InvalidOperationArguments{Msg: "Provide with no inner flow"})
	default:
		return api.Died(api.InvalidOperationArguments{Msg: "unknown flow kind: " + string(flow.Kind)})
	}
}

func valueOrZero(v *api.DynamicValue) api.DynamicValue {
	if v == nil {
		return api.DynamicValue{}
	}
	return *v
}

func (e *Executor) Start(ctx context.Context, id api.FlowId, flow api.Flow) (api.DurablePromise, error) {
	rec := flowStateRecord{Flow: flow, Status: api.FlowRunning}
	data, err := encodeState(rec)
	if err != nil {
		return api.DurablePromise{}, api.NewDecodeError("flow state", err)
	}
	if err := e.store.Put(ctx, stateNamespace, []byte(id), data, e.nextTS()); err != nil {
		return api.DurablePromise{}, err
	}

	promise := api.DurablePromise{Id: api.PromiseIdForFlow(id), FlowId: id}
	e.observer.OnFlowStart(ctx, id, flow)

	if err := e.queue.Enqueue(ctx, evalTask{FlowId: id, Flow: flow}); err != nil {
		return promise, err
	}
	return promise, nil
}

func (e *Executor) Poll(ctx context.Context, id api.FlowId) (*api.PollOutcome, error) {
	raw, found, err := e.store.GetLatest(ctx, resultNamespace, []byte(id), nil)
	if err != nil {
		return nil, err
	}
	if found {
		outcome, err := decodeResult(raw)
		if err != nil {
			return nil, api.NewDecodeError("flow result", err)
		}
		return outcome, nil
	}

	if _, stateFound, err := e.store.GetLatest(ctx, stateNamespace, []byte(id), nil); err != nil {
		return nil, err
	} else if !stateFound {
		return nil, api.NewNotFoundError("flow", string(id))
	}
	return nil, nil
}

func (e *Executor) setStatus(ctx context.Context, id api.FlowId, status api.FlowStatus) error {
	raw, found, err := e.store.GetLatest(ctx, stateNamespace, []byte(id), nil)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	rec, err := decodeState(raw)
	if err != nil {
		return api.NewDecodeError("flow state", err)
	}
	rec.Status = status
	data, err := encodeState(rec)
	if err != nil {
		return api.NewDecodeError("flow state", err)
	}
	return e.store.Put(ctx, stateNamespace, []byte(id), data, e.nextTS())
}

func (e *Executor) Pause(ctx context.Context, id api.FlowId) error {
	e.observer.OnFlowControl(ctx, id, "pause")
	return e.setStatus(ctx, id, api.FlowPaused)
}

func (e *Executor) Resume(ctx context.Context, id api.FlowId) error {
	e.observer.OnFlowControl(ctx, id, "resume")
	return e.setStatus(ctx, id, api.FlowRunning)
}

// Abort marks the flow aborted and, if it has not already resolved on
// its own, immediately fulfills its promise as a Died(Aborted) outcome —
// abort is a terminal operation, not merely advisory.
func (e *Executor) Abort(ctx context.Context, id api.FlowId) error {
	e.observer.OnFlowControl(ctx, id, "abort")

	if _, found, err := e.store.GetLatest(ctx, resultNamespace, []byte(id), nil); err != nil {
		return err
	} else if found {
		return nil
	}

	outcome := api.Died(api.Aborted{})
	data, err := encodeResult(*outcome)
	if err != nil {
		return api.NewDecodeError("flow result", err)
	}
	if err := e.store.Put(ctx, resultNamespace, []byte(id), data, e.nextTS()); err != nil {
		return err
	}
	e.observer.OnFlowResolved(ctx, id, outcome)
	return nil
}

func (e *Executor) Delete(ctx context.Context, id api.FlowId) error {
	_, resultFound, err := e.store.GetLatest(ctx, resultNamespace, []byte(id), nil)
	if err != nil {
		return err
	}
	_, stateFound, err := e.store.GetLatest(ctx, stateNamespace, []byte(id), nil)
	if err != nil {
		return err
	}

	if stateFound && !resultFound {
		return api.NewInvalidOperationArguments("flow is running")
	}
	if !stateFound && !resultFound {
		return nil
	}

	if err := e.store.Delete(ctx, stateNamespace, []byte(id), nil); err != nil {
		return err
	}
	return e.store.Delete(ctx, resultNamespace, []byte(id), nil)
}

func (e *Executor) GetAll(ctx context.Context) api.FlowStatusSeq {
	return func(yield func(api.FlowStatusEntry, error) bool) {
		statuses := make(map[api.FlowId]api.FlowStatus)

		for key, err := range e.store.ScanAllKeys(ctx, stateNamespace) {
			if err != nil {
				yield(api.FlowStatusEntry{}, err)
				return
			}
			id := api.FlowId(key)
			raw, found, err := e.store.GetLatest(ctx, stateNamespace, key, nil)
			if err != nil {
				yield(api.FlowStatusEntry{}, err)
				return
			}
			if !found {
				continue
			}
			rec, err := decodeState(raw)
			if err != nil {
				yield(api.FlowStatusEntry{}, api.NewDecodeError("flow state", err))
				return
			}
			statuses[id] = rec.Status
		}

		for key, err := range e.store.ScanAllKeys(ctx, resultNamespace) {
			if err != nil {
				yield(api.FlowStatusEntry{}, err)
				return
			}
			statuses[api.FlowId(key)] = api.FlowDone
		}

		for id, status := range statuses {
			if !yield(api.FlowStatusEntry{Id: id, Status: status}, nil) {
				return
			}
		}
	}
}

// RestartAll re-schedules every persisted flow that has no result yet.
// Against a persistent backend this recovers work interrupted by a
// process restart; against a fresh in-memory store there is nothing to
// recover, since the state namespace itself does not survive restart.
func (e *Executor) RestartAll(ctx context.Context) error {
	for key, err := range e.store.ScanAllKeys(ctx, stateNamespace) {
		if err != nil {
			return err
		}
		id := api.FlowId(key)

		_, resultFound, err := e.store.GetLatest(ctx, resultNamespace, key, nil)
		if err != nil {
			return err
		}
		if resultFound {
			continue
		}

		raw, stateFound, err := e.store.GetLatest(ctx, stateNamespace, key, nil)
		if err != nil {
			return err
		}
		if !stateFound {
			continue
		}
		rec, err := decodeState(raw)
		if err != nil {
			return api.NewDecodeError("flow state", err)
		}
		if err := e.queue.Enqueue(ctx, evalTask{FlowId: id, Flow: rec.Flow}); err != nil {
			return err
		}
	}
	return nil
}

// ForceGarbageCollection drops the flow-description half of finished
// flows' state, retaining only their results. Poll and GetAll read both
// namespaces, so finished flows remain visible after collection.
func (e *Executor) ForceGarbageCollection(ctx context.Context) error {
	for key, err := range e.store.ScanAllKeys(ctx, resultNamespace) {
		if err != nil {
			return err
		}
		if _, found, err := e.store.GetLatest(ctx, stateNamespace, key, nil); err != nil {
			return err
		} else if found {
			if err := e.store.Delete(ctx, stateNamespace, key, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
