package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	TasksDir  string `json:"tasks_dir" yaml:"tasks_dir" toml:"tasks_dir"`
	// ResultsDB is the sqlite file runs are persisted to. Empty means in-memory.
	ResultsDB    string `json:"results_db" yaml:"results_db" toml:"results_db"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
	JudgeModel   string `json:"judge_model" yaml:"judge_model" toml:"judge_model"`
	// Engine selects the inference backend: "llama" (in-process) or "llama-server".
	Engine        string `json:"engine" yaml:"engine" toml:"engine"`
	ServerBaseURL string `json:"server_base_url" yaml:"server_base_url" toml:"server_base_url"`
	ServerAPIKey  string `json:"server_api_key" yaml:"server_api_key" toml:"server_api_key"`
	MaxSamples    int    `json:"max_samples" yaml:"max_samples" toml:"max_samples"`
	Concurrency   int    `json:"concurrency" yaml:"concurrency" toml:"concurrency"`
	LlamaCtx      int    `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads  int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	// UnloadLMBeforeEval releases the primary model's weights after generation
	// and before the judge model loads. No-op on engines that cannot unload.
	UnloadLMBeforeEval bool `json:"unload_lm_before_eval" yaml:"unload_lm_before_eval" toml:"unload_lm_before_eval"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
