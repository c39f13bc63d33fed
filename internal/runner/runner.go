// Package runner drives evaluation runs: it loads the model under test,
// generates an answer for every task sample, optionally releases the model's
// weights, and then scores free-form answers with a judge model.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"evald/internal/engine"
	"evald/internal/results"
	"evald/internal/tasks"
	"evald/pkg/types"
)

// Defaults applied when corresponding RunnerConfig fields are unset.
const (
	defaultConcurrency = 1
	defaultMaxTokens   = 256
)

// RunnerConfig encapsulates all tunables for Runner construction.
type RunnerConfig struct {
	Registry   []types.Model
	Catalog    *tasks.Catalog
	Engine     engine.Engine
	EngineName string
	Store      *results.Store
	Publisher  EventPublisher
	Logger     *zerolog.Logger

	DefaultModel      string
	DefaultJudgeModel string
	// MaxSamples caps samples per task when the request does not; 0 means all.
	MaxSamples int
	// Concurrency bounds in-flight generations per phase. The in-process llama
	// engine is effectively single-slot; server engines can go wider.
	Concurrency int
	// UnloadLMBeforeEval is the config-file default for the per-run flag.
	UnloadLMBeforeEval bool
}

// Runner executes evaluation runs one at a time.
type Runner struct {
	mu         sync.RWMutex
	registry   []types.Model
	catalog    *tasks.Catalog
	engine     engine.Engine
	engineName string
	store      *results.Store
	publisher  EventPublisher
	log        zerolog.Logger

	defaultModel  string
	defaultJudge  string
	maxSamples    int
	concurrency   int
	unloadDefault bool

	// runCh size 1: single active run, extra submissions get a busy error.
	runCh chan struct{}

	active      *types.ActiveRun
	statRuns    uint64
	statSamples uint64
	statUnloads uint64
	lastError   string
	startTime   time.Time
}

// NewWithConfig constructs a Runner from RunnerConfig.
func NewWithConfig(cfg RunnerConfig) *Runner {
	r := &Runner{
		registry:      cfg.Registry,
		catalog:       cfg.Catalog,
		engine:        cfg.Engine,
		engineName:    cfg.EngineName,
		store:         cfg.Store,
		defaultModel:  cfg.DefaultModel,
		defaultJudge:  cfg.DefaultJudgeModel,
		maxSamples:    cfg.MaxSamples,
		unloadDefault: cfg.UnloadLMBeforeEval,
		runCh:         make(chan struct{}, 1),
		startTime:     time.Now(),
	}
	if cfg.Publisher != nil {
		r.publisher = cfg.Publisher
	} else {
		r.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		r.log = *cfg.Logger
	} else {
		r.log = zerolog.Nop()
	}
	if cfg.Concurrency > 0 {
		r.concurrency = cfg.Concurrency
	} else {
		r.concurrency = defaultConcurrency
	}
	return r
}

// Ready reports whether the runner can accept a run.
func (r *Runner) Ready() bool {
	return r.catalog != nil && r.catalog.Len() > 0 && r.engine != nil
}

// ListModels returns a copy of the model registry.
func (r *Runner) ListModels() []types.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Model, len(r.registry))
	copy(out, r.registry)
	return out
}

// ListTasks returns catalog summaries.
func (r *Runner) ListTasks() []types.TaskInfo {
	return r.catalog.List()
}

// Store exposes the results store for read endpoints.
func (r *Runner) Store() *results.Store { return r.store }

// ListRuns returns summaries of persisted runs, newest first.
func (r *Runner) ListRuns(ctx context.Context) ([]types.RunSummary, error) {
	if r.store == nil {
		return nil, nil
	}
	return r.store.ListRuns(ctx)
}

// GetRun fetches one persisted run by id.
func (r *Runner) GetRun(ctx context.Context, id string) (types.RunReport, bool, error) {
	if r.store == nil {
		return types.RunReport{}, false, nil
	}
	return r.store.GetRun(ctx, id)
}

// Status builds a status response for GET /status.
func (r *Runner) Status() types.StatusResponse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	resp := types.StatusResponse{
		State:          "idle",
		TasksLoaded:    r.catalog.Len(),
		ModelsLoaded:   len(r.registry),
		RunsTotal:      r.statRuns,
		SamplesTotal:   r.statSamples,
		UnloadsTotal:   r.statUnloads,
		LastError:      r.lastError,
		UptimeSeconds:  int64(time.Since(r.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	if r.active != nil {
		resp.State = "running"
		cp := *r.active
		resp.ActiveRun = &cp
	}
	return resp
}

func (r *Runner) setActive(a *types.ActiveRun) {
	r.mu.Lock()
	r.active = a
	r.mu.Unlock()
}

func (r *Runner) updateActive(fn func(a *types.ActiveRun)) {
	r.mu.Lock()
	if r.active != nil {
		fn(r.active)
	}
	r.mu.Unlock()
}
