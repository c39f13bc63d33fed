package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"evald/internal/config"
	"evald/internal/engine"
	"evald/internal/httpapi"
	"evald/internal/registry"
	"evald/internal/results"
	"evald/internal/runner"
	"evald/internal/tasks"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8090"
	if v := os.Getenv("EVALD_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8090")
	configPath := flag.String("config", os.Getenv("EVALD_CONFIG"), "Path to config file (yaml/json/toml)")
	modelsDir := flag.String("models-dir", "~/models/llm", "Directory to scan for *.gguf model files")
	tasksDir := flag.String("tasks-dir", "./tasks", "Directory to scan for task yaml files")
	resultsDB := flag.String("results-db", "", "Sqlite file for run results (empty = in-memory)")
	engineName := flag.String("engine", "llama", "Inference backend: llama or llama-server")
	serverURL := flag.String("server-url", "http://127.0.0.1:8080", "Base URL for the llama-server backend")
	defaultModel := flag.String("default-model", "", "Default model id when request omits model")
	judgeModel := flag.String("judge-model", "", "Default judge model id for judge-metric tasks")
	unloadBeforeEval := flag.Bool("unload-lm-before-eval", false, "Release primary model weights before the judge phase by default")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Config file values win over flag defaults; explicit flags win over both
	// only when the file leaves them unset.
	cfg := config.Config{
		Addr: *addr, ModelsDir: *modelsDir, TasksDir: *tasksDir, ResultsDB: *resultsDB,
		Engine: *engineName, ServerBaseURL: *serverURL,
		DefaultModel: *defaultModel, JudgeModel: *judgeModel,
		UnloadLMBeforeEval: *unloadBeforeEval,
	}
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ModelsDir).Msg("load models")
	}
	catalog, err := tasks.LoadDir(cfg.TasksDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.TasksDir).Msg("load tasks")
	}
	store, err := results.Open(cfg.ResultsDB)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ResultsDB).Msg("open results store")
	}
	defer store.Close()

	var eng engine.Engine
	switch cfg.Engine {
	case "llama-server":
		eng = engine.NewServerEngine(cfg.ServerBaseURL, cfg.ServerAPIKey, 0, 10*time.Second)
	default:
		eng = engine.NewLlamaEngine(cfg.LlamaCtx, cfg.LlamaThreads)
	}

	run := runner.NewWithConfig(runner.RunnerConfig{
		Registry:           reg,
		Catalog:            catalog,
		Engine:             eng,
		EngineName:         cfg.Engine,
		Store:              store,
		Logger:             &log,
		DefaultModel:       cfg.DefaultModel,
		DefaultJudgeModel:  cfg.JudgeModel,
		MaxSamples:         cfg.MaxSamples,
		Concurrency:        cfg.Concurrency,
		UnloadLMBeforeEval: cfg.UnloadLMBeforeEval,
	})

	baseCtx, stopAll := context.WithCancel(context.Background())
	defer stopAll()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)

	mux := httpapi.NewMux(run)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).
			Str("tasks_dir", cfg.TasksDir).Str("engine", cfg.Engine).
			Bool("unload_lm_before_eval", cfg.UnloadLMBeforeEval).
			Msg("evald listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
}

// mergeConfig overlays non-zero file values onto flag values.
func mergeConfig(base, file config.Config) config.Config {
	out := base
	if file.Addr != "" {
		out.Addr = file.Addr
	}
	if file.ModelsDir != "" {
		out.ModelsDir = file.ModelsDir
	}
	if file.TasksDir != "" {
		out.TasksDir = file.TasksDir
	}
	if file.ResultsDB != "" {
		out.ResultsDB = file.ResultsDB
	}
	if file.DefaultModel != "" {
		out.DefaultModel = file.DefaultModel
	}
	if file.JudgeModel != "" {
		out.JudgeModel = file.JudgeModel
	}
	if file.Engine != "" {
		out.Engine = file.Engine
	}
	if file.ServerBaseURL != "" {
		out.ServerBaseURL = file.ServerBaseURL
	}
	if file.ServerAPIKey != "" {
		out.ServerAPIKey = file.ServerAPIKey
	}
	if file.MaxSamples > 0 {
		out.MaxSamples = file.MaxSamples
	}
	if file.Concurrency > 0 {
		out.Concurrency = file.Concurrency
	}
	if file.LlamaCtx > 0 {
		out.LlamaCtx = file.LlamaCtx
	}
	if file.LlamaThreads > 0 {
		out.LlamaThreads = file.LlamaThreads
	}
	if file.UnloadLMBeforeEval {
		out.UnloadLMBeforeEval = true
	}
	return out
}
