package types

// Model represents a discoverable or loadable LLM model on disk.
type Model struct {
	// Stable identifier for the model.
	// example: tinyllama-q4
	ID string `json:"id" example:"tinyllama-q4"`
	// Human-friendly name.
	// example: TinyLlama (Q4)
	Name string `json:"name" example:"TinyLlama (Q4)"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/TinyLlama.Q4_K_M.gguf"`
	// Quantization level or variant string.
	// example: Q4_K_M
	Quant string `json:"quant" example:"Q4_K_M"`
	// Optional family (e.g., llama, mistral, phi).
	// example: llama
	Family string `json:"family,omitempty" example:"llama"`
}

// TaskInfo summarizes a benchmark task from the catalog.
type TaskInfo struct {
	// Task name as referenced in run requests.
	// example: mmlu_mt_anatomy
	Name string `json:"name" example:"mmlu_mt_anatomy"`
	// Optional group this task aggregates under.
	// example: mmlu_mt
	Group string `json:"group,omitempty" example:"mmlu_mt"`
	// Task kind: multiple_choice, generate, or kv_extract.
	// example: multiple_choice
	Kind string `json:"kind" example:"multiple_choice"`
	// Scoring metric: acc, exact_match, or judge.
	// example: acc
	Metric string `json:"metric" example:"acc"`
	// Number of few-shot demonstrations prepended to each prompt.
	// example: 5
	NumFewshot int `json:"num_fewshot" example:"5"`
}
