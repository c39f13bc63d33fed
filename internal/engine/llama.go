//go:build llama

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaEngine holds global config used to initialize a model instance.
type llamaEngine struct {
	ctxSize int
	threads int
}

// NewLlamaEngine returns the in-process llama.cpp engine. Instances it loads
// own their weights and therefore support Unload.
func NewLlamaEngine(ctxSize, threads int) Engine {
	return &llamaEngine{ctxSize: ctxSize, threads: threads}
}

// llamaInstance owns the loaded model.
type llamaInstance struct {
	mu        sync.Mutex
	model     *llama.LLama
	modelPath string
	threads   int
	released  bool
}

func (e *llamaEngine) Load(modelPath string) (Instance, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(e.ctxSize),
	}
	m, err := llama.New(modelPath, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaInstance{model: m, modelPath: modelPath, threads: e.threads}, nil
}

func (s *llamaInstance) Generate(ctx context.Context, prompt string, params GenParams, onToken func(string) error) (Result, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return Result{}, ErrReleased(s.modelPath)
	}
	m := s.model
	s.mu.Unlock()
	if m == nil {
		return Result{}, errors.New("llama model not initialized")
	}

	// Bridge token streaming to onToken and respect cancellation.
	m.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if err := onToken(tok); err != nil {
			return false
		}
		return true
	})
	po := mapGenParamsToPredictOptions(params, s.threads)
	text, err := m.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}
	// Token counts are not available without deeper hooks.
	return Result{Content: text, FinishReason: "stop"}, nil
}

// Unload frees the device-resident weights. Idempotent: a second call is a no-op.
func (s *llamaInstance) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	s.released = true
	return nil
}

func (s *llamaInstance) Close() error {
	// Close and Unload free the same resource; Close on a released instance is a no-op.
	return s.Unload()
}

// helpers
func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// mapGenParamsToPredictOptions converts our engine params into go-llama.cpp options.
func mapGenParamsToPredictOptions(params GenParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, params.MaxTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTopP(zf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if params.Seed != 0 {
		po = append(po, llama.SetSeed(params.Seed))
	}
	if len(params.Stop) > 0 {
		po = append(po, llama.SetStopWords(params.Stop...))
	}
	return po
}
