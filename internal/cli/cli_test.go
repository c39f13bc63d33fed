package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"evald/pkg/types"
)

func testServer(t *testing.T, lastRun *types.RunRequest) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /runs", func(w http.ResponseWriter, r *http.Request) {
		var req types.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if lastRun != nil {
			*lastRun = req
		}
		json.NewEncoder(w).Encode(types.RunReport{
			ID: "r1", Model: req.Model, State: "done",
			UnloadLMBeforeEval: req.UnloadLMBeforeEval, PrimaryReleased: req.UnloadLMBeforeEval,
			Scores: []types.TaskScore{{Task: "anatomy", Metric: "acc", Score: 0.5, Samples: 2}},
		})
	})
	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.TasksResponse{Tasks: []types.TaskInfo{{Name: "anatomy", Kind: "multiple_choice", Metric: "acc"}}})
	})
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.ModelsResponse{Models: []types.Model{{ID: "m.gguf", Path: "/models/m.gguf"}}})
	})
	mux.HandleFunc("GET /runs", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.RunsResponse{Runs: []types.RunSummary{{ID: "r1", Model: "m.gguf", State: "done"}}})
	})
	mux.HandleFunc("GET /runs/r1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.RunReport{ID: "r1", Model: "m.gguf", State: "done"})
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.StatusResponse{State: "idle"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func execArgs(t *testing.T, srv *httptest.Server, args ...string) error {
	t.Helper()
	root := BuildRootCmd()
	root.SetArgs(append(args, "--addr", srv.URL))
	return root.Execute()
}

func TestRunCommand_SendsUnloadFlag(t *testing.T) {
	var got types.RunRequest
	srv := testServer(t, &got)

	err := execArgs(t, srv, "run", "--model", "m.gguf", "--task", "anatomy", "--unload_lm_before_eval")
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !got.UnloadLMBeforeEval {
		t.Fatalf("unload_lm_before_eval not sent: %+v", got)
	}
	if got.Model != "m.gguf" || len(got.Tasks) != 1 || got.Tasks[0] != "anatomy" {
		t.Fatalf("request: %+v", got)
	}
}

func TestRunCommand_FlagDefaultsOff(t *testing.T) {
	var got types.RunRequest
	srv := testServer(t, &got)

	if err := execArgs(t, srv, "run", "--model", "m.gguf", "--task", "anatomy"); err != nil {
		t.Fatalf("run command: %v", err)
	}
	if got.UnloadLMBeforeEval {
		t.Fatalf("unload flag must default to false")
	}
}

func TestRunCommand_RequiresTask(t *testing.T) {
	srv := testServer(t, nil)
	if err := execArgs(t, srv, "run", "--model", "m.gguf"); err == nil {
		t.Fatalf("expected error without --task")
	}
}

func TestRunCommand_RepeatedTasks(t *testing.T) {
	var got types.RunRequest
	srv := testServer(t, &got)

	if err := execArgs(t, srv, "run", "--task", "anatomy", "--task", "kv"); err != nil {
		t.Fatalf("run command: %v", err)
	}
	if len(got.Tasks) != 2 || got.Tasks[1] != "kv" {
		t.Fatalf("tasks: %+v", got.Tasks)
	}
}

func TestRunCommand_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /runs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(types.ErrorResponse{Error: "a run is already active", Code: 409})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	err := execArgs(t, srv, "run", "--task", "anatomy")
	if err == nil {
		t.Fatalf("expected error from 409")
	}
	ae, ok := err.(apiError)
	if !ok || ae.Status != http.StatusConflict {
		t.Fatalf("expected apiError 409, got %v", err)
	}
}

func TestListingCommands(t *testing.T) {
	srv := testServer(t, nil)
	for _, args := range [][]string{{"tasks"}, {"models"}, {"results"}, {"results", "r1"}, {"status"}} {
		if err := execArgs(t, srv, args...); err != nil {
			t.Errorf("%v: %v", args, err)
		}
	}
}
