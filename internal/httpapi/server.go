package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evald/internal/engine"
	"evald/internal/runner"
	"evald/internal/tasks"
	"evald/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	ListTasks() []types.TaskInfo
	Status() types.StatusResponse
	Ready() bool
	Run(ctx context.Context, req types.RunRequest) (types.RunReport, error)
	ListRuns(ctx context.Context) ([]types.RunSummary, error)
	GetRun(ctx context.Context, id string) (types.RunReport, bool, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.ListModels()})
	})

	r.Get("/tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.TasksResponse{Tasks: svc.ListTasks()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/runs", func(w http.ResponseWriter, r *http.Request) {
		runs, err := svc.ListRuns(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if runs == nil {
			runs = []types.RunSummary{}
		}
		writeJSON(w, http.StatusOK, types.RunsResponse{Runs: runs})
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rep, ok, err := svc.GetRun(r.Context(), id)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !ok {
			writeJSONError(w, http.StatusNotFound, "run not found: "+id)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	})

	r.Post("/runs", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.RunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(req.Tasks) == 0 {
			writeJSONError(w, http.StatusBadRequest, "tasks is required")
			return
		}

		start := time.Now()
		lvl := requestLogLevel(r)
		if lvl >= LevelInfo {
			logRunStart(r, req)
		}

		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if sec := runTimeout; sec > 0 {
			var tcancel context.CancelFunc
			joinedCtx, tcancel = context.WithTimeout(joinedCtx, time.Duration(sec)*time.Second)
			defer tcancel()
		}

		rep, err := svc.Run(joinedCtx, req)
		if err != nil {
			// Client disconnected or server shutting down; nothing to write.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := errStatus(err)
			if status == http.StatusConflict {
				IncrementBusy("active_run")
			}
			writeJSONError(w, status, err.Error())
			if lvl >= LevelInfo {
				logRunEnd(r, status, time.Since(start), err)
			}
			return
		}
		writeJSON(w, http.StatusOK, rep)
		if lvl >= LevelInfo {
			logRunEnd(r, http.StatusOK, time.Since(start), nil)
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// errStatus maps well-known runner errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case runner.IsRunBusy(err):
		return http.StatusConflict
	case runner.IsModelNotFound(err), tasks.IsTaskNotFound(err):
		return http.StatusNotFound
	case runner.IsJudgeModelRequired(err):
		return http.StatusBadRequest
	case engine.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already written; nothing better to do than log.
		if zlog != nil {
			zlog.Error().Err(err).Msg("encode response")
		}
	}
}
