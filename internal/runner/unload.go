package runner

import (
	"evald/internal/engine"
)

// maybeUnloadPrimary releases the primary model's weights between the
// generation and judge phases, freeing device memory for the judge model.
// Reports whether the weights were actually released.
//
// The decision tree is deliberately forgiving:
//   - flag off: nothing happens, the instance stays resident;
//   - flag on, engine cannot unload: logged no-op, the run continues with the
//     model resident (only the in-process llama engine implements Unloadable);
//   - flag on, unload fails: logged, non-fatal, treated as not released.
//
// After a successful release the caller must not route another generation
// through the instance; the engine enforces this by rejecting Generate on a
// released instance.
func (r *Runner) maybeUnloadPrimary(inst engine.Instance, want bool, runID string) bool {
	if !want {
		return false
	}
	u, ok := inst.(engine.Unloadable)
	if !ok {
		r.log.Info().Str("run_id", runID).Str("engine", r.engineName).
			Msg("unload_lm_before_eval requested but engine cannot release weights; model stays resident")
		r.publisher.Publish(Event{Name: "unload_skipped", RunID: runID, Fields: map[string]any{"engine": r.engineName}})
		unloadsTotal.WithLabelValues("unsupported").Inc()
		return false
	}
	r.publisher.Publish(Event{Name: "unload_start", RunID: runID, Fields: map[string]any{}})
	if err := u.Unload(); err != nil {
		// Partial-release behavior is unspecified upstream; failing the run
		// would lose finished generations, so log and continue resident.
		r.log.Warn().Str("run_id", runID).Err(err).Msg("unload failed; continuing with model resident")
		r.publisher.Publish(Event{Name: "unload_error", RunID: runID, Fields: map[string]any{"error": err.Error()}})
		unloadsTotal.WithLabelValues("error").Inc()
		return false
	}
	r.mu.Lock()
	r.statUnloads++
	r.mu.Unlock()
	unloadsTotal.WithLabelValues("released").Inc()
	r.publisher.Publish(Event{Name: "unload_done", RunID: runID, Fields: map[string]any{}})
	return true
}
