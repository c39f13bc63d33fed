// Package engine abstracts the inference runtimes evald can drive.
//
// An Engine loads model weights and hands back an Instance that generates
// completions. Whether an Instance can release its weights mid-run is a
// capability, discovered via the Unloadable interface, never by inspecting
// the concrete engine type.
package engine

import "context"

// Engine abstracts a model runtime. Concrete implementations
// (in-process llama.cpp, llama-server over HTTP) satisfy this interface.
type Engine interface {
	// Load prepares an instance for the given model path (or server-side model id).
	Load(modelPath string) (Instance, error)
}

// Instance represents one loaded model. One instance serves many generations
// with per-call parameters, since evaluation tasks differ in stop sequences
// and token budgets.
type Instance interface {
	// Generate streams tokens for the given prompt. The onToken callback is
	// invoked per token. Implementations must return when the context is canceled.
	Generate(ctx context.Context, prompt string, params GenParams, onToken func(string) error) (Result, error)
	// Close releases any resources associated with the instance.
	Close() error
}

// Unloadable is the optional capability of releasing an instance's
// device-resident weights while the process keeps running. Only the
// in-process llama engine implements it; callers assert for it and treat
// absence as "keep the model resident".
type Unloadable interface {
	// Unload frees the weights and marks the instance released. Generate on a
	// released instance fails with a released error; a second Unload is a no-op.
	Unload() error
}

// GenParams captures generation parameters passed to the engine.
type GenParams struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// Result summarizes the generation after streaming.
type Result struct {
	Content      string
	Usage        Usage
	FinishReason string
}

// Usage contains token accounting.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
