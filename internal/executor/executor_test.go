package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowzero/zflow/internal/kv"
	"github.com/flowzero/zflow/pkg/api"
)

func waitForPoll(t *testing.T, e *Executor, id api.FlowId) *api.PollOutcome {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		outcome, err := e.Poll(ctx, id)
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if outcome != nil {
			return outcome
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("flow %s never resolved", id)
	return nil
}

func TestExecutorSucceeds(t *testing.T) {
	e := New(kv.NewMemoryStore(), nil)
	defer e.Close()
	ctx := context.Background()

	id := api.FlowId("f1")
	flow := api.Succeed(api.StringValue("hello"))
	if _, err := e.Start(ctx, id, flow); err != nil {
		t.Fatalf("start: %v", err)
	}

	outcome := waitForPoll(t, e, id)
	if outcome.Kind != api.PollSucceeded || outcome.Value.StringVal != "hello" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestExecutorDies(t *testing.T) {
	e := New(kv.NewMemoryStore(), nil)
	defer e.Close()
	ctx := context.Background()

	id := api.FlowId("f1")
	flow := api.Die(api.MissingVariable{Name: "x", Context: "y"})
	if _, err := e.Start(ctx, id, flow); err != nil {
		t.Fatalf("start: %v", err)
	}

	outcome := waitForPoll(t, e, id)
	if outcome.Kind != api.PollDied {
		t.Fatalf("expected Died, got %+v", outcome)
	}
	mv, ok := outcome.Err.(api.MissingVariable)
	if !ok || mv.Name != "x" || mv.Context != "y" {
		t.Fatalf("unexpected died error: %+v", outcome.Err)
	}
}

func TestExecutorProvideBindsParameter(t *testing.T) {
	e := New(kv.NewMemoryStore(), nil)
	defer e.Close()
	ctx := context.Background()

	id := api.FlowId("f1")
	flow := api.Succeed(api.IntValue(0)).Provide(api.IntValue(11))
	if _, err := e.Start(ctx, id, flow); err != nil {
		t.Fatalf("start: %v", err)
	}

	outcome := waitForPoll(t, e, id)
	if outcome.Kind != api.PollSucceeded {
		t.Fatalf("expected Succeeded, got %+v", outcome)
	}
}

func TestExecutorDeleteFailsWhileRunning(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, nil)
	defer e.Close()
	ctx := context.Background()

	// Put state directly so nothing resolves it.
	id := api.FlowId("f1")
	rec := flowStateRecord{Flow: api.Succeed(api.IntValue(1)), Status: api.FlowRunning}
	data, err := encodeState(rec)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	if err := store.Put(ctx, stateNamespace, []byte(id), data, 1); err != nil {
		t.Fatalf("put: %v", err)
	}

	err = e.Delete(ctx, id)
	if err == nil {
		t.Fatalf("expected error deleting a running flow")
	}
	var ioa api.InvalidOperationArguments
	if !errors.As(err, &ioa) {
		t.Fatalf("expected InvalidOperationArguments, got %v (%T)", err, err)
	}
}

func TestExecutorDeleteUnknownIsNoop(t *testing.T) {
	e := New(kv.NewMemoryStore(), nil)
	defer e.Close()

	if err := e.Delete(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("expected no-op delete, got %v", err)
	}
}

func TestExecutorDeleteSucceedsOnceResolved(t *testing.T) {
	e := New(kv.NewMemoryStore(), nil)
	defer e.Close()
	ctx := context.Background()

	id := api.FlowId("f1")
	if _, err := e.Start(ctx, id, api.Succeed(api.IntValue(1))); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForPoll(t, e, id)

	if err := e.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := e.Poll(ctx, id); err == nil {
		t.Fatalf("expected not-found polling a deleted flow")
	}
}

func TestExecutorAbortResolvesPendingFlow(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, nil)
	defer e.Close()
	ctx := context.Background()

	id := api.FlowId("f1")
	rec := flowStateRecord{Flow: api.Succeed(api.IntValue(1)), Status: api.FlowRunning}
	data, err := encodeState(rec)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	if err := store.Put(ctx, stateNamespace, []byte(id), data, 1); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := e.Abort(ctx, id); err != nil {
		t.Fatalf("abort: %v", err)
	}

	outcome, err := e.Poll(ctx, id)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if outcome == nil || outcome.Kind != api.PollDied {
		t.Fatalf("expected aborted flow to have died, got %+v", outcome)
	}
	if _, ok := outcome.Err.(api.Aborted); !ok {
		t.Fatalf("expected Aborted error, got %T", outcome.Err)
	}
}

func TestExecutorPauseAndResume(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, nil)
	defer e.Close()
	ctx := context.Background()

	id := api.FlowId("f1")
	rec := flowStateRecord{Flow: api.Succeed(api.IntValue(1)), Status: api.FlowRunning}
	data, err := encodeState(rec)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	if err := store.Put(ctx, stateNamespace, []byte(id), data, 1); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := e.Pause(ctx, id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	raw, found, err := store.GetLatest(ctx, stateNamespace, []byte(id), nil)
	if err != nil || !found {
		t.Fatalf("get state: found=%v err=%v", found, err)
	}
	got, err := decodeState(raw)
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if got.Status != api.FlowPaused {
		t.Fatalf("expected paused status, got %v", got.Status)
	}

	if err := e.Resume(ctx, id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	raw, _, _ = store.GetLatest(ctx, stateNamespace, []byte(id), nil)
	got, _ = decodeState(raw)
	if got.Status != api.FlowRunning {
		t.Fatalf("expected running status after resume, got %v", got.Status)
	}
}

func TestExecutorGetAll(t *testing.T) {
	e := New(kv.NewMemoryStore(), nil)
	defer e.Close()
	ctx := context.Background()

	if _, err := e.Start(ctx, "done", api.Succeed(api.IntValue(1))); err != nil {
		t.Fatalf("start done: %v", err)
	}
	waitForPoll(t, e, "done")

	got := map[api.FlowId]api.FlowStatus{}
	for entry, err := range e.GetAll(ctx) {
		if err != nil {
			t.Fatalf("get all: %v", err)
		}
		got[entry.Id] = entry.Status
	}
	if got["done"] != api.FlowDone {
		t.Fatalf("expected done flow, got %v", got)
	}
}

func TestExecutorRestartAllReschedulesUnresolvedFlows(t *testing.T) {
	store := kv.NewMemoryStore()
	e := New(store, nil)
	ctx := context.Background()

	id := api.FlowId("f1")
	rec := flowStateRecord{Flow: api.Succeed(api.IntValue(42)), Status: api.FlowRunning}
	data, err := encodeState(rec)
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}
	if err := store.Put(ctx, stateNamespace, []byte(id), data, 1); err != nil {
		t.Fatalf("put: %v", err)
	}
	e.Close()

	e2 := New(store, nil)
	defer e2.Close()
	if err := e2.RestartAll(ctx); err != nil {
		t.Fatalf("restart all: %v", err)
	}

	outcome := waitForPoll(t, e2, id)
	if outcome.Kind != api.PollSucceeded {
		t.Fatalf("expected restarted flow to succeed, got %+v", outcome)
	}
}
