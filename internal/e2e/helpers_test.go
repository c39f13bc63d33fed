package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"evald/internal/engine"
	"evald/internal/httpapi"
	"evald/internal/registry"
	"evald/internal/results"
	"evald/internal/runner"
	"evald/internal/tasks"
)

// createTempModelsDir creates a temporary directory populated with empty .gguf files
// and returns the directory path and the list of model IDs (filenames).
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir, names
}

// createTempTasksDir writes a minimal multiple-choice task catalog.
func createTempTasksDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"anatomy.yaml": "task: anatomy\nkind: multiple_choice\nmetric: acc\ndataset_path: anatomy.jsonl\n",
		"anatomy.jsonl": `{"question":"Q1","choices":["a","b","c","d"],"answer":1}` + "\n" +
			`{"question":"Q2","choices":["a","b","c","d"],"answer":0}` + "\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

// newCompletionsServer fakes a llama.cpp server's OpenAI-compatible streaming
// endpoint, answering every prompt with the given text.
func newCompletionsServer(t *testing.T, answer string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"object\":\"text_completion\",\"choices\":[{\"text\":%q}]}\n\n", answer)
		fmt.Fprintf(w, "data: {\"object\":\"text_completion\",\"choices\":[{\"text\":\"\",\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newEvalServer wires registry, catalog, results store, engine, runner, and the
// HTTP mux the same way cmd/evald does.
func newEvalServer(t *testing.T, modelsDir, tasksDir, engineName string, eng engine.Engine) *httptest.Server {
	t.Helper()
	reg, err := registry.LoadDir(modelsDir)
	if err != nil {
		t.Fatalf("load models: %v", err)
	}
	catalog, err := tasks.LoadDir(tasksDir)
	if err != nil {
		t.Fatalf("load tasks: %v", err)
	}
	store, err := results.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	run := runner.NewWithConfig(runner.RunnerConfig{
		Registry:   reg,
		Catalog:    catalog,
		Engine:     eng,
		EngineName: engineName,
		Store:      store,
	})
	srv := httptest.NewServer(httpapi.NewMux(run))
	t.Cleanup(srv.Close)
	return srv
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
