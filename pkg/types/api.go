package types

// RunRequest describes an evaluation run submitted via POST /runs or evalctl.
type RunRequest struct {
	// Model identifier of the model under test. If empty, the server default is used.
	// example: tinyllama-q4
	Model string `json:"model,omitempty" example:"tinyllama-q4"`
	// Optional judge model identifier, required when any selected task uses the judge metric.
	// example: qwen2.5-7b-q5
	JudgeModel string `json:"judge_model,omitempty" example:"qwen2.5-7b-q5"`
	// Task or group names to evaluate. Groups expand to their member tasks.
	// example: ["kv_extract","mmlu_mt_anatomy"]
	Tasks []string `json:"tasks" example:"[\"kv_extract\"]"`
	// Cap on samples evaluated per task; 0 means all.
	// example: 100
	MaxSamples int `json:"max_samples,omitempty" example:"100"`
	// Random seed for sample shuffling and synthetic data; 0 lets the server choose.
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
	// Release the primary model's weights after generation, before the judge
	// model loads. No-op when the active engine cannot unload.
	// example: true
	UnloadLMBeforeEval bool `json:"unload_lm_before_eval,omitempty" example:"true"`
	// Maximum number of new tokens generated per sample. Tasks may override.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random). Evaluation defaults to 0.
	// example: 0
	Temperature float64 `json:"temperature,omitempty" example:"0"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Extra stop sequences appended to task-defined ones.
	// example: ["\n\n"]
	Stop []string `json:"stop,omitempty" example:"[\"\\n\\n\"]"`
	// Repeat penalty applied by some llama runtimes.
	// example: 1.1
	RepeatPenalty float64 `json:"repeat_penalty,omitempty" example:"1.1"`
}

// TaskScore holds the aggregated metric for one task (or group) within a run.
type TaskScore struct {
	// Task (or group) name.
	// example: mmlu_mt_anatomy
	Task string `json:"task" example:"mmlu_mt_anatomy"`
	// Group the task belongs to, empty for group rows themselves.
	Group string `json:"group,omitempty" example:"mmlu_mt"`
	// Metric that produced the score.
	// example: acc
	Metric string `json:"metric" example:"acc"`
	// Aggregated score in [0,1].
	// example: 0.62
	Score float64 `json:"score" example:"0.62"`
	// Number of samples scored.
	// example: 100
	Samples int `json:"samples" example:"100"`
	// Judge verdicts that could not be parsed (judge metric only, scored as incorrect).
	Unparsed int `json:"unparsed,omitempty" example:"2"`
}

// RunReport is the final result of an evaluation run.
type RunReport struct {
	// Unique run identifier.
	// example: 2f1f3c1e-9a0f-4a0e-8f9f-1d2b3c4d5e6f
	ID string `json:"id"`
	// Model under test.
	Model string `json:"model"`
	// Judge model, when a judge phase ran.
	JudgeModel string `json:"judge_model,omitempty"`
	// Whether the run requested unloading the primary model before judging.
	UnloadLMBeforeEval bool `json:"unload_lm_before_eval"`
	// Whether the primary model's weights were actually released.
	PrimaryReleased bool `json:"primary_released"`
	// Per-task scores.
	Scores []TaskScore `json:"scores"`
	// Per-group mean scores, present when grouped tasks were evaluated.
	GroupScores []TaskScore `json:"group_scores,omitempty"`
	// Run lifecycle state: done or error.
	State string `json:"state" example:"done"`
	// Error message when State is error.
	Error string `json:"error,omitempty"`
	// Start time in unix seconds.
	StartedUnix int64 `json:"started_unix"`
	// Finish time in unix seconds.
	FinishedUnix int64 `json:"finished_unix"`
}

// RunSummary is the list view of a stored run for GET /runs.
type RunSummary struct {
	ID                 string `json:"id"`
	Model              string `json:"model"`
	JudgeModel         string `json:"judge_model,omitempty"`
	State              string `json:"state"`
	UnloadLMBeforeEval bool   `json:"unload_lm_before_eval"`
	StartedUnix        int64  `json:"started_unix"`
	FinishedUnix       int64  `json:"finished_unix"`
	Error              string `json:"error,omitempty"`
}

// ActiveRun describes the run currently executing, if any.
type ActiveRun struct {
	// Run identifier.
	ID string `json:"id"`
	// Model under test.
	Model string `json:"model"`
	// Current phase: generating, judging, or finalizing.
	// example: generating
	Phase string `json:"phase" example:"generating"`
	// Task currently being evaluated.
	Task string `json:"task,omitempty"`
	// Samples completed so far across all tasks.
	SamplesDone int `json:"samples_done"`
	// Total samples scheduled for the run.
	SamplesTotal int `json:"samples_total"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall service state: idle, running, or error.
	// example: idle
	State string `json:"state" example:"idle"`
	// The in-flight run, if one is active.
	ActiveRun *ActiveRun `json:"active_run,omitempty"`
	// Number of tasks in the catalog.
	// example: 12
	TasksLoaded int `json:"tasks_loaded" example:"12"`
	// Number of models in the registry.
	// example: 3
	ModelsLoaded int `json:"models_loaded" example:"3"`
	// Total completed runs since start.
	// example: 4
	RunsTotal uint64 `json:"runs_total" example:"4"`
	// Total samples generated since start.
	// example: 1200
	SamplesTotal uint64 `json:"samples_total" example:"1200"`
	// Total primary-model unloads performed before judge phases.
	// example: 2
	UnloadsTotal uint64 `json:"unloads_total" example:"2"`
	// Last error observed by the runner (if any).
	LastError string `json:"last_error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models.
	Models []Model `json:"models"`
}

// TasksResponse wraps the catalog listing returned by GET /tasks.
type TasksResponse struct {
	// List of catalog tasks.
	Tasks []TaskInfo `json:"tasks"`
}

// RunsResponse wraps the stored-run listing returned by GET /runs.
type RunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
