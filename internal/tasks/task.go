// Package tasks loads the benchmark catalog: YAML task definitions plus their
// JSONL sample files, and the synthetic kv_extract generator.
package tasks

// Task kinds.
const (
	KindMultipleChoice = "multiple_choice"
	KindGenerate       = "generate"
	KindKVExtract      = "kv_extract"
)

// Metrics.
const (
	MetricAcc        = "acc"
	MetricExactMatch = "exact_match"
	MetricJudge      = "judge"
)

// Task is one benchmark task definition parsed from a catalog YAML file.
type Task struct {
	Name        string   `yaml:"task"`
	Group       string   `yaml:"group"`
	Kind        string   `yaml:"kind"`
	DatasetPath string   `yaml:"dataset_path"`
	Description string   `yaml:"description"`
	Metric      string   `yaml:"metric"`
	NumFewshot  int      `yaml:"num_fewshot"`
	Stop        []string `yaml:"stop"`
	MaxTokens   int      `yaml:"max_tokens"`
	// KV configures the synthetic kv_extract generator; used when Kind is
	// kv_extract and no dataset_path is given.
	KV KVSettings `yaml:"kv_extract"`

	// dir is the directory the definition was loaded from; dataset paths
	// resolve relative to it.
	dir string
}

// KVSettings controls synthetic key-value extraction sample generation.
type KVSettings struct {
	// ContextChars is the minimum context length in characters.
	ContextChars int `yaml:"context_chars"`
	// NumQueries is how many keys each sample asks to extract.
	NumQueries int `yaml:"num_queries"`
	// NumDemos is how many in-context demonstration groups precede the query.
	NumDemos int `yaml:"num_demos"`
	// Format is the context serialization: json, csv, tsv, or text.
	Format string `yaml:"format"`
	// NumSamples is how many samples to generate.
	NumSamples int `yaml:"num_samples"`
}

// groupDef is the aggregated-group YAML shape (lm-eval style "_<group>.yaml").
type groupDef struct {
	Group string   `yaml:"group"`
	Tasks []string `yaml:"tasks"`
}

// Sample is one evaluation record.
type Sample struct {
	// Multiple-choice fields.
	Question string   `json:"question,omitempty"`
	Choices  []string `json:"choices,omitempty"`
	Answer   int      `json:"answer,omitempty"`
	// Generation fields.
	Input  string `json:"input,omitempty"`
	Target string `json:"target,omitempty"`
}
