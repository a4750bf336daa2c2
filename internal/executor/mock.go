package executor

import (
	"context"
	"sync"

	"github.com/flowzero/zflow/pkg/api"
)

// scriptedOutcome pairs a poll outcome with how many Poll calls must
// elapse (returning Running) before it is delivered.
type scriptedOutcome struct {
	resolveAfterPolls int
	outcome           *api.PollOutcome
}

// MockExecutor is a scriptable api.Executor test double. It records
// every lifecycle call it receives so a test can assert on exactly what
// the HTTP façade asked the executor to do, and lets a test script a
// flow's outcome to arrive after a chosen number of polls — the "after
// N polls" counter spec's Open Questions section flags as a test
// affordance, not part of any real executor's contract.
type MockExecutor struct {
	mu sync.Mutex

	started  map[api.FlowId]api.Flow
	paused   map[api.FlowId]int
	resumed  map[api.FlowId]int
	aborted  map[api.FlowId]int
	deleted  map[api.FlowId]int
	polls    map[api.FlowId]int
	outcomes map[api.FlowId]scriptedOutcome
}

var _ api.Executor = (*MockExecutor)(nil)

// NewMockExecutor builds an empty MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		started:  make(map[api.FlowId]api.Flow),
		paused:   make(map[api.FlowId]int),
		resumed:  make(map[api.FlowId]int),
		aborted:  make(map[api.FlowId]int),
		deleted:  make(map[api.FlowId]int),
		polls:    make(map[api.FlowId]int),
		outcomes: make(map[api.FlowId]scriptedOutcome),
	}
}

// ScriptOutcome arranges for id's Nth-and-later Poll calls (after
// `resolveAfterPolls` calls that return Running) to return outcome.
// resolveAfterPolls == 0 resolves on the very first poll.
func (m *MockExecutor) ScriptOutcome(id api.FlowId, resolveAfterPolls int, outcome *api.PollOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[id] = scriptedOutcome{resolveAfterPolls: resolveAfterPolls, outcome: outcome}
}

// Started returns the flow Start was last called with for id, and
// whether Start was called at all.
func (m *MockExecutor) Started(id api.FlowId) (api.Flow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.started[id]
	return f, ok
}

// PauseCount, ResumeCount, AbortCount, DeleteCount report how many times
// each control operation was invoked for id.
func (m *MockExecutor) PauseCount(id api.FlowId) int  { return m.count(m.paused, id) }
func (m *MockExecutor) ResumeCount(id api.FlowId) int { return m.count(m.resumed, id) }
func (m *MockExecutor) AbortCount(id api.FlowId) int  { return m.count(m.aborted, id) }
func (m *MockExecutor) DeleteCount(id api.FlowId) int { return m.count(m.deleted, id) }

func (m *MockExecutor) count(set map[api.FlowId]int, id api.FlowId) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return set[id]
}

func (m *MockExecutor) Start(_ context.Context, id api.FlowId, flow api.Flow) (api.DurablePromise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[id] = flow
	return api.DurablePromise{Id: api.PromiseIdForFlow(id), FlowId: id}, nil
}

func (m *MockExecutor) Poll(_ context.Context, id api.FlowId) (*api.PollOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	script, ok := m.outcomes[id]
	if !ok {
		return nil, nil
	}

	polls := m.polls[id]
	m.polls[id] = polls + 1

	if polls < script.resolveAfterPolls {
		return nil, nil
	}
	return script.outcome, nil
}

func (m *MockExecutor) Pause(_ context.Context, id api.FlowId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused[id]++
	return nil
}

func (m *MockExecutor) Resume(_ context.Context, id api.FlowId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumed[id]++
	return nil
}

func (m *MockExecutor) Abort(_ context.Context, id api.FlowId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborted[id]++
	return nil
}

func (m *MockExecutor) Delete(_ context.Context, id api.FlowId) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if script, ok := m.outcomes[id]; ok {
		polls := m.polls[id]
		if polls < script.resolveAfterPolls {
			return api.NewInvalidOperationArguments("flow is running")
		}
	} else if _, ok := m.started[id]; ok {
		return api.NewInvalidOperationArguments("flow is running")
	}

	m.deleted[id]++
	delete(m.started, id)
	delete(m.outcomes, id)
	delete(m.polls, id)
	return nil
}

func (m *MockExecutor) GetAll(_ context.Context) api.FlowStatusSeq {
	m.mu.Lock()
	entries := make([]api.FlowStatusEntry, 0, len(m.started))
	for id := range m.started {
		status := api.FlowRunning
		if script, ok := m.outcomes[id]; ok && m.polls[id] >= script.resolveAfterPolls {
			status = api.FlowDone
		}
		entries = append(entries, api.FlowStatusEntry{Id: id, Status: status})
	}
	m.mu.Unlock()

	return func(yield func(api.FlowStatusEntry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *MockExecutor) RestartAll(context.Context) error { return nil }

func (m *MockExecutor) ForceGarbageCollection(context.Context) error { return nil }
