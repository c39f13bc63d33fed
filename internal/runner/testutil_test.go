package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"evald/internal/engine"
	"evald/internal/tasks"
	"evald/pkg/types"
)

// fakeEngine is an in-memory Engine for runner tests. When unloadable is set,
// its instances implement engine.Unloadable (mirroring the in-process llama
// engine); otherwise they behave like the server-backed engine.
type fakeEngine struct {
	mu         sync.Mutex
	unloadable bool
	respond    func(prompt string) string
	loads      []string
	instances  []engine.Instance
	failLoad   error
}

func (e *fakeEngine) Load(path string) (engine.Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failLoad != nil {
		return nil, e.failLoad
	}
	e.loads = append(e.loads, path)
	base := &fakeInstance{eng: e, path: path}
	var inst engine.Instance = base
	if e.unloadable {
		inst = &fakeUnloadableInstance{fakeInstance: base}
	}
	e.instances = append(e.instances, inst)
	return inst, nil
}

func (e *fakeEngine) loadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loads)
}

func (e *fakeEngine) instance(i int) engine.Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.instances[i]
}

type fakeInstance struct {
	eng    *fakeEngine
	path   string
	mu     sync.Mutex
	gens   int
	closed bool
}

func (s *fakeInstance) Generate(ctx context.Context, prompt string, params engine.GenParams, onToken func(string) error) (engine.Result, error) {
	if err := ctx.Err(); err != nil {
		return engine.Result{}, err
	}
	s.mu.Lock()
	s.gens++
	s.mu.Unlock()
	out := "ok"
	if s.eng.respond != nil {
		out = s.eng.respond(prompt)
	}
	if onToken != nil {
		if err := onToken(out); err != nil {
			return engine.Result{}, err
		}
	}
	return engine.Result{Content: out, FinishReason: "stop"}, nil
}

func (s *fakeInstance) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// fakeUnloadableInstance adds the Unload capability.
type fakeUnloadableInstance struct {
	*fakeInstance
	rmu      sync.Mutex
	released bool
}

func (s *fakeUnloadableInstance) Unload() error {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	s.released = true
	return nil
}

func (s *fakeUnloadableInstance) Generate(ctx context.Context, prompt string, params engine.GenParams, onToken func(string) error) (engine.Result, error) {
	s.rmu.Lock()
	rel := s.released
	s.rmu.Unlock()
	if rel {
		return engine.Result{}, engine.ErrReleased(s.path)
	}
	return s.fakeInstance.Generate(ctx, prompt, params, onToken)
}

func (s *fakeUnloadableInstance) isReleased() bool {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return s.released
}

// writeTestCatalog builds a small catalog: one multiple-choice task, one
// judge-scored generate task, one synthetic kv_extract task.
func writeTestCatalog(t *testing.T) *tasks.Catalog {
	t.Helper()
	d := t.TempDir()
	files := map[string]string{
		"anatomy.yaml": "task: anatomy\ngroup: mmlu_mt\nkind: multiple_choice\nmetric: acc\ndataset_path: anatomy.jsonl\n",
		"anatomy.jsonl": `{"question":"Q1","choices":["a","b","c","d"],"answer":1}` + "\n" +
			`{"question":"Q2","choices":["a","b","c","d"],"answer":0}` + "\n",
		"haiku.yaml":  "task: haiku\nkind: generate\nmetric: judge\ndataset_path: haiku.jsonl\nmax_tokens: 32\n",
		"haiku.jsonl": `{"input":"Write a haiku about the ocean.","target":"any ocean haiku"}` + "\n",
		"kv.yaml":     "task: kv\nkind: kv_extract\nmetric: exact_match\nkv_extract:\n  context_chars: 256\n  num_samples: 2\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(d, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	c, err := tasks.LoadDir(d)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func testRegistry() []types.Model {
	return []types.Model{
		{ID: "m.gguf", Name: "m.gguf", Path: "/models/m.gguf"},
		{ID: "j.gguf", Name: "j.gguf", Path: "/models/j.gguf"},
	}
}

func newTestRunner(t *testing.T, eng *fakeEngine, pub EventPublisher) *Runner {
	t.Helper()
	return NewWithConfig(RunnerConfig{
		Registry:   testRegistry(),
		Catalog:    writeTestCatalog(t),
		Engine:     eng,
		EngineName: "fake",
		Publisher:  pub,
	})
}
