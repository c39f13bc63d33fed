package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"evald/internal/engine"
	"evald/internal/runner"
	"evald/internal/tasks"
	"evald/pkg/types"
)

// fakeService implements Service with scripted behavior.
type fakeService struct {
	ready   bool
	runErr  error
	report  types.RunReport
	lastReq types.RunRequest
	runs    []types.RunSummary
	getRep  types.RunReport
	getOK   bool
}

func (f *fakeService) ListModels() []types.Model {
	return []types.Model{{ID: "m.gguf", Name: "m.gguf", Path: "/models/m.gguf"}}
}

func (f *fakeService) ListTasks() []types.TaskInfo {
	return []types.TaskInfo{{Name: "anatomy", Group: "mmlu_mt", Kind: "multiple_choice", Metric: "acc"}}
}

func (f *fakeService) Status() types.StatusResponse {
	return types.StatusResponse{State: "idle", TasksLoaded: 1, ModelsLoaded: 1}
}

func (f *fakeService) Ready() bool { return f.ready }

func (f *fakeService) Run(ctx context.Context, req types.RunRequest) (types.RunReport, error) {
	f.lastReq = req
	if f.runErr != nil {
		return types.RunReport{}, f.runErr
	}
	return f.report, nil
}

func (f *fakeService) ListRuns(ctx context.Context) ([]types.RunSummary, error) {
	return f.runs, nil
}

func (f *fakeService) GetRun(ctx context.Context, id string) (types.RunReport, bool, error) {
	return f.getRep, f.getOK, nil
}

func postRuns(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestModelsEndpoint(t *testing.T) {
	h := NewMux(&fakeService{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/models", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp types.ModelsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].ID != "m.gguf" {
		t.Fatalf("models: %+v", resp)
	}
}

func TestTasksEndpoint(t *testing.T) {
	h := NewMux(&fakeService{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp types.TasksResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].Name != "anatomy" {
		t.Fatalf("tasks: %+v", resp)
	}
}

func TestRunsPost_Success(t *testing.T) {
	svc := &fakeService{report: types.RunReport{ID: "r1", Model: "m.gguf", State: "done", PrimaryReleased: true}}
	h := NewMux(svc)
	rr := postRuns(t, h, `{"model":"m.gguf","tasks":["anatomy"],"unload_lm_before_eval":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	if !svc.lastReq.UnloadLMBeforeEval {
		t.Fatalf("unload flag not decoded: %+v", svc.lastReq)
	}
	var rep types.RunReport
	if err := json.Unmarshal(rr.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.ID != "r1" || !rep.PrimaryReleased {
		t.Fatalf("report: %+v", rep)
	}
}

func TestRunsPost_RequiresJSONContentType(t *testing.T) {
	h := NewMux(&fakeService{})
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"tasks":["a"]}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status %d", rr.Code)
	}
}

func TestRunsPost_InvalidBody(t *testing.T) {
	h := NewMux(&fakeService{})
	if rr := postRuns(t, h, "{not json"); rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	if rr := postRuns(t, h, `{"model":"m.gguf"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("missing tasks: status %d", rr.Code)
	}
}

func TestRunsPost_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{runner.ErrRunBusy(), http.StatusConflict},
		{runner.ErrModelNotFound("x.gguf"), http.StatusNotFound},
		{tasks.ErrTaskNotFound("nope"), http.StatusNotFound},
		{engine.ErrDependencyUnavailable("llama.cpp support not built"), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		h := NewMux(&fakeService{runErr: c.err})
		rr := postRuns(t, h, `{"tasks":["anatomy"]}`)
		if rr.Code != c.want {
			t.Errorf("err %v: status %d, want %d", c.err, rr.Code, c.want)
		}
		var er types.ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &er); err != nil {
			t.Errorf("decode error body: %v", err)
		}
		if er.Code != c.want {
			t.Errorf("error body code %d, want %d", er.Code, c.want)
		}
	}
}

func TestRunsGet(t *testing.T) {
	svc := &fakeService{runs: []types.RunSummary{{ID: "r1", Model: "m.gguf", State: "done"}}}
	h := NewMux(svc)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp types.RunsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 1 || resp.Runs[0].ID != "r1" {
		t.Fatalf("runs: %+v", resp)
	}
}

func TestRunsGetByID(t *testing.T) {
	svc := &fakeService{getRep: types.RunReport{ID: "r1", State: "done"}, getOK: true}
	h := NewMux(svc)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/r1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}

	svc.getOK = false
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/runs/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d for unknown run", rr.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	svc := &fakeService{}
	h := NewMux(svc)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz not ready: %d", rr.Code)
	}

	svc.ready = true
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("readyz ready: %d", rr.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := NewMux(&fakeService{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != "idle" {
		t.Fatalf("state %q", st.State)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(&fakeService{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	// The inflight gauge is incremented before the handler runs, so it is
	// visible even on the very first scrape.
	if !strings.Contains(rr.Body.String(), "evald_http_inflight_requests") {
		t.Fatalf("metrics body missing gauge")
	}
}
