package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowzero/zflow/internal/executor"
	"github.com/flowzero/zflow/internal/kv"
	"github.com/flowzero/zflow/internal/registry"
	"github.com/flowzero/zflow/pkg/api"
)

func newTestServer() (*Server, *executor.MockExecutor, *registry.Registry) {
	mock := executor.NewMockExecutor()
	reg := registry.New(kv.NewMemoryStore())
	return New(reg, mock, nil), mock, reg
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

// TestE1StartPollSequence reproduces scenario E1: Running, Running, then
// Succeeded on the third poll, with the started flow recorded verbatim.
func TestE1StartPollSequence(t *testing.T) {
	s, mock, _ := newTestServer()

	flow1 := api.Succeed(api.IntValue(11))
	rec := doRequest(t, s, "POST", "/flows", map[string]any{"Flow": flow1})
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var started startResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}

	gotFlow, ok := mock.Started(started.FlowId)
	if !ok || !gotFlow.Equal(flow1) {
		t.Fatalf("expected executor to record flow1, got %+v ok=%v", gotFlow, ok)
	}

	mock.ScriptOutcome(started.FlowId, 2, api.Succeeded(api.StringValue("hello")))

	for i := 0; i < 2; i++ {
		rec = doRequest(t, s, "GET", "/flows/"+string(started.FlowId), nil)
		assertJSONBody(t, rec, `{"Running":{}}`)
	}

	rec = doRequest(t, s, "GET", "/flows/"+string(started.FlowId), nil)
	assertJSONBody(t, rec, `{"Succeeded":{"String":"hello"}}`)
}

// TestE2Failed reproduces scenario E2: a user-level Failed outcome.
func TestE2Failed(t *testing.T) {
	s, mock, _ := newTestServer()

	rec := doRequest(t, s, "POST", "/flows", map[string]any{"Flow": api.Succeed(api.IntValue(11))})
	var started startResponse
	mustDecode(t, rec, &started)

	mock.ScriptOutcome(started.FlowId, 0, api.Failed(api.StringValue("hello")))

	rec = doRequest(t, s, "GET", "/flows/"+string(started.FlowId), nil)
	assertJSONBody(t, rec, `{"Failed":{"String":"hello"}}`)
}

// TestE3Died reproduces scenario E3: an executor death.
func TestE3Died(t *testing.T) {
	s, mock, _ := newTestServer()

	rec := doRequest(t, s, "POST", "/flows", map[string]any{"Flow": api.Succeed(api.IntValue(11))})
	var started startResponse
	mustDecode(t, rec, &started)

	mock.ScriptOutcome(started.FlowId, 0, api.Died(api.MissingVariable{Name: "x", Context: "y"}))

	rec = doRequest(t, s, "GET", "/flows/"+string(started.FlowId), nil)
	assertJSONBody(t, rec, `{"Died":{"MissingVariable":{"name":"x","context":"y"}}}`)
}

// TestE4FlowWithParameter reproduces scenario E4: binding a parameter
// into an inline flow before it is persisted.
func TestE4FlowWithParameter(t *testing.T) {
	s, mock, _ := newTestServer()

	flow2 := api.Succeed(api.IntValue(0))
	body := map[string]any{
		"FlowWithParameter": map[string]any{
			"flow":        flow2,
			"inputSchema": api.IntSchema(),
			"parameter":   11,
		},
	}
	rec := doRequest(t, s, "POST", "/flows", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var started startResponse
	mustDecode(t, rec, &started)

	gotFlow, ok := mock.Started(started.FlowId)
	want := flow2.Provide(api.IntValue(11))
	if !ok || !gotFlow.Equal(want) {
		t.Fatalf("expected persisted flow to equal flow2.Provide(11), got %+v ok=%v", gotFlow, ok)
	}

	mock.ScriptOutcome(started.FlowId, 0, api.Succeeded(api.IntValue(1)))
	rec = doRequest(t, s, "GET", "/flows/"+string(started.FlowId), nil)
	assertJSONBody(t, rec, `{"Succeeded":{"Int":1}}`)
}

// TestE5TemplateWithParameter reproduces scenario E5: starting a stored,
// parameterized template.
func TestE5TemplateWithParameter(t *testing.T) {
	s, mock, _ := newTestServer()

	flow2 := api.Succeed(api.IntValue(0))
	rec := doRequest(t, s, "PUT", "/templates/test", map[string]any{
		"flow":        flow2,
		"inputSchema": api.IntSchema(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put template: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	body := map[string]any{
		"TemplateWithParameter": map[string]any{
			"id":        "test",
			"parameter": 11,
		},
	}
	rec = doRequest(t, s, "POST", "/flows", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var started startResponse
	mustDecode(t, rec, &started)

	gotFlow, ok := mock.Started(started.FlowId)
	want := flow2.Provide(api.IntValue(11))
	if !ok || !gotFlow.Equal(want) {
		t.Fatalf("expected started flow to equal flow2.Provide(11), got %+v ok=%v", gotFlow, ok)
	}
}

// TestE6Delete reproduces scenario E6: deleting a running flow is 400;
// deleting an unknown flow is 200.
func TestE6Delete(t *testing.T) {
	s, mock, _ := newTestServer()

	rec := doRequest(t, s, "POST", "/flows", map[string]any{"Flow": api.Succeed(api.IntValue(11))})
	var started startResponse
	mustDecode(t, rec, &started)
	_ = mock

	rec = doRequest(t, s, "DELETE", "/flows/"+string(started.FlowId), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 deleting a running flow, got %d: %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, s, "DELETE", "/flows/does-not-exist", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting an unknown flow, got %d: %s", rec.Code, rec.Body)
	}
}

// TestE7PauseResumeAbort reproduces scenario E7: each control endpoint
// returns 200 and is recorded exactly once.
func TestE7PauseResumeAbort(t *testing.T) {
	s, mock, _ := newTestServer()

	id := api.FlowId("F")
	for _, op := range []string{"pause", "resume", "abort"} {
		rec := doRequest(t, s, "POST", "/flows/"+string(id)+"/"+op, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", op, rec.Code, rec.Body)
		}
	}

	if mock.PauseCount(id) != 1 || mock.ResumeCount(id) != 1 || mock.AbortCount(id) != 1 {
		t.Fatalf("expected exactly one of each op: pause=%d resume=%d abort=%d",
			mock.PauseCount(id), mock.ResumeCount(id), mock.AbortCount(id))
	}
}

// TestListTemplates checks that GET /templates returns an object keyed by
// template id, not a bare array.
func TestListTemplates(t *testing.T) {
	s, _, _ := newTestServer()

	rec := doRequest(t, s, "PUT", "/templates/alpha", map[string]any{
		"flow": api.Succeed(api.IntValue(1)),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put alpha: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	rec = doRequest(t, s, "PUT", "/templates/beta", map[string]any{
		"flow":        api.Succeed(api.IntValue(2)),
		"inputSchema": api.IntSchema(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("put beta: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = doRequest(t, s, "GET", "/templates", nil)
	var got listTemplatesResponse
	mustDecode(t, rec, &got)

	if len(got.Templates) != 2 {
		t.Fatalf("expected 2 templates, got %d: %s", len(got.Templates), rec.Body)
	}
	alpha, ok := got.Templates["alpha"]
	if !ok || alpha.Id != "alpha" || !alpha.Flow.Equal(api.Succeed(api.IntValue(1))) {
		t.Fatalf("unexpected alpha entry: %+v ok=%v", alpha, ok)
	}
	beta, ok := got.Templates["beta"]
	if !ok || beta.Id != "beta" || beta.InputSchema == nil {
		t.Fatalf("unexpected beta entry: %+v ok=%v", beta, ok)
	}
}

func mustDecode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %s: %v", rec.Body.String(), err)
	}
}

func assertJSONBody(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var got, wantVal any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON body %s: %v", rec.Body.String(), err)
	}
	if err := json.Unmarshal([]byte(want), &wantVal); err != nil {
		t.Fatalf("invalid expected JSON %s: %v", want, err)
	}
	gotCanon, _ := json.Marshal(got)
	wantCanon, _ := json.Marshal(wantVal)
	if string(gotCanon) != string(wantCanon) {
		t.Fatalf("got %s, want %s", rec.Body.String(), want)
	}
}
