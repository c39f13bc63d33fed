//go:build !llama

package engine

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in llama.go (tagged 'llama').

import (
	"context"
)

// llamaEngine is a stub that satisfies Engine but refuses to load models
// without the 'llama' build tag. This avoids any mocked behavior in
// production binaries built without CGO support.
type llamaEngine struct {
	ctxSize int
	threads int
}

// NewLlamaEngine returns the in-process llama.cpp engine. Without the 'llama'
// build tag, Load fails fast with a dependency-unavailable error.
func NewLlamaEngine(ctxSize, threads int) Engine {
	return &llamaEngine{ctxSize: ctxSize, threads: threads}
}

type llamaInstance struct {
	// No real resources in the stub.
}

func (e *llamaEngine) Load(modelPath string) (Instance, error) {
	// Fail fast: llama runtime not available in this build.
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (s *llamaInstance) Generate(ctx context.Context, prompt string, params GenParams, onToken func(string) error) (Result, error) {
	// Should never be called because Load returns an error, but return a clear error anyway.
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}
	return Result{}, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

// Unload keeps the stub's capability surface identical to the real engine.
func (s *llamaInstance) Unload() error { return nil }

func (s *llamaInstance) Close() error { return nil }
