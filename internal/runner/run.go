package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"evald/internal/engine"
	"evald/internal/registry"
	"evald/internal/results"
	"evald/internal/tasks"
	"evald/pkg/types"
)

// sampleRecord tracks one sample through generation, scoring, and judging.
type sampleRecord struct {
	task   *tasks.Task
	index  int
	sample tasks.Sample
	prompt string
	output string
	score  float64
	judged bool
	genErr error
}

// Run executes a full evaluation run synchronously. Only one run may be
// active at a time; concurrent submissions fail with a busy error.
func (r *Runner) Run(ctx context.Context, req types.RunRequest) (types.RunReport, error) {
	select {
	case r.runCh <- struct{}{}:
	default:
		return types.RunReport{}, runBusyError{}
	}
	defer func() { <-r.runCh }()

	// Resolve the model under test.
	modelID := req.Model
	if modelID == "" {
		modelID = r.defaultModel
		if modelID == "" {
			return types.RunReport{}, ErrModelNotFound("(unspecified)")
		}
	}
	mdl, ok := registry.Find(r.registry, modelID)
	if !ok {
		return types.RunReport{}, ErrModelNotFound(modelID)
	}

	// Resolve tasks (groups expand to members).
	if len(req.Tasks) == 0 {
		return types.RunReport{}, fmt.Errorf("no tasks requested")
	}
	taskDefs, err := r.catalog.Resolve(req.Tasks)
	if err != nil {
		return types.RunReport{}, err
	}

	// Judge-metric tasks need a judge model up front, not after generation.
	var judgeMdl types.Model
	needJudge := false
	for _, t := range taskDefs {
		if t.Metric == tasks.MetricJudge {
			needJudge = true
			judgeID := req.JudgeModel
			if judgeID == "" {
				judgeID = r.defaultJudge
			}
			if judgeID == "" {
				return types.RunReport{}, judgeModelRequiredError{task: t.Name}
			}
			judgeMdl, ok = registry.Find(r.registry, judgeID)
			if !ok {
				return types.RunReport{}, ErrModelNotFound(judgeID)
			}
			break
		}
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	unload := req.UnloadLMBeforeEval || r.unloadDefault

	report := types.RunReport{
		ID:                 uuid.NewString(),
		Model:              mdl.ID,
		UnloadLMBeforeEval: unload,
		StartedUnix:        time.Now().Unix(),
	}
	if needJudge {
		report.JudgeModel = judgeMdl.ID
	}

	// Materialize all records before loading weights so dataset errors
	// surface cheaply.
	records, err := r.prepare(taskDefs, req, seed)
	if err != nil {
		return types.RunReport{}, err
	}

	r.setActive(&types.ActiveRun{ID: report.ID, Model: mdl.ID, Phase: "generating", SamplesTotal: len(records)})
	defer r.setActive(nil)
	r.publisher.Publish(Event{Name: "run_start", RunID: report.ID, Fields: map[string]any{
		"model": mdl.ID, "tasks": len(taskDefs), "samples": len(records), "unload_lm_before_eval": unload,
	}})

	primary, err := r.loadPrimary(mdl)
	if err != nil {
		return r.finish(ctx, report, records, err)
	}

	if err := r.generatePhase(ctx, primary, req, records, report.ID); err != nil {
		primary.Close()
		return r.finish(ctx, report, records, err)
	}

	// Score everything the judge does not handle.
	for i := range records {
		if records[i].task.Metric != tasks.MetricJudge {
			records[i].score = scoreSample(records[i].task, records[i].sample, records[i].output)
		}
	}

	// The unload hook sits between generation and judging: from here on the
	// primary instance is never used again when released.
	report.PrimaryReleased = r.maybeUnloadPrimary(primary, unload, report.ID)

	if needJudge {
		r.updateActive(func(a *types.ActiveRun) { a.Phase = "judging" })
		r.publisher.Publish(Event{Name: "judge_start", RunID: report.ID, Fields: map[string]any{"judge_model": judgeMdl.ID}})
		if err := r.judgePhase(ctx, judgeMdl, req, records, report.ID); err != nil {
			if !report.PrimaryReleased {
				primary.Close()
			}
			return r.finish(ctx, report, records, err)
		}
	}

	if !report.PrimaryReleased {
		primary.Close()
	}
	return r.finish(ctx, report, records, nil)
}

// prepare loads samples for each task and splits off few-shot demonstrations.
func (r *Runner) prepare(taskDefs []*tasks.Task, req types.RunRequest, seed int64) ([]sampleRecord, error) {
	maxSamples := req.MaxSamples
	if maxSamples <= 0 {
		maxSamples = r.maxSamples
	}
	var records []sampleRecord
	for _, t := range taskDefs {
		samples, err := t.LoadSamples(seed)
		if err != nil {
			return nil, err
		}
		var demos []tasks.Sample
		if t.NumFewshot > 0 && len(samples) > t.NumFewshot {
			demos = samples[:t.NumFewshot]
			samples = samples[t.NumFewshot:]
		}
		if maxSamples > 0 && len(samples) > maxSamples {
			samples = samples[:maxSamples]
		}
		for i, s := range samples {
			records = append(records, sampleRecord{
				task:   t,
				index:  i,
				sample: s,
				prompt: t.BuildPrompt(s, demos),
			})
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no samples to evaluate")
	}
	return records, nil
}

// loadPrimary loads the model under test. Server engines address models by id,
// in-process engines by file path.
func (r *Runner) loadPrimary(mdl types.Model) (engine.Instance, error) {
	return r.engine.Load(r.modelRef(mdl))
}

func (r *Runner) modelRef(mdl types.Model) string {
	if r.engineName == "llama-server" {
		return mdl.ID
	}
	return mdl.Path
}

// generatePhase runs the primary model over every record with bounded
// concurrency via a slot channel.
func (r *Runner) generatePhase(ctx context.Context, inst engine.Instance, req types.RunRequest, records []sampleRecord, runID string) error {
	slots := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := range records {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}
		mu.Lock()
		stop := firstErr != nil
		mu.Unlock()
		if stop {
			<-slots
			break
		}
		wg.Add(1)
		go func(rec *sampleRecord) {
			defer wg.Done()
			defer func() { <-slots }()
			params := r.genParams(req, rec.task)
			res, err := inst.Generate(ctx, rec.prompt, params, func(string) error { return nil })
			if err != nil {
				rec.genErr = err
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("task %s sample %d: %w", rec.task.Name, rec.index, err)
				}
				mu.Unlock()
				return
			}
			rec.output = res.Content
			r.mu.Lock()
			r.statSamples++
			r.mu.Unlock()
			samplesTotal.Inc()
			r.updateActive(func(a *types.ActiveRun) {
				a.Task = rec.task.Name
				a.SamplesDone++
			})
			r.publisher.Publish(Event{Name: "sample_done", RunID: runID, Task: rec.task.Name, Fields: map[string]any{"index": rec.index}})
		}(&records[i])
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// genParams merges request-level sampling options with per-task budgets.
// Evaluation defaults to greedy decoding (temperature 0).
func (r *Runner) genParams(req types.RunRequest, t *tasks.Task) engine.GenParams {
	p := engine.GenParams{
		Temperature:   float32(req.Temperature),
		TopP:          float32(req.TopP),
		TopK:          req.TopK,
		RepeatPenalty: float32(req.RepeatPenalty),
		Seed:          int(req.Seed),
	}
	p.MaxTokens = t.MaxTokens
	if p.MaxTokens <= 0 {
		p.MaxTokens = req.MaxTokens
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = defaultMaxTokens
	}
	p.Stop = append(append([]string(nil), t.Stop...), req.Stop...)
	return p
}

// finish aggregates scores, persists the run, and publishes the final event.
func (r *Runner) finish(ctx context.Context, report types.RunReport, records []sampleRecord, runErr error) (types.RunReport, error) {
	report.FinishedUnix = time.Now().Unix()
	if runErr != nil {
		report.State = "error"
		report.Error = runErr.Error()
	} else {
		report.State = "done"
		report.Scores, report.GroupScores = aggregate(records)
	}

	r.mu.Lock()
	r.statRuns++
	if runErr != nil {
		r.lastError = runErr.Error()
	} else {
		r.lastError = ""
	}
	r.mu.Unlock()
	runsTotal.WithLabelValues(report.State).Inc()

	if r.store != nil {
		rows := make([]results.SampleRow, 0, len(records))
		for _, rec := range records {
			if rec.genErr != nil {
				continue
			}
			rows = append(rows, results.SampleRow{
				Task:   rec.task.Name,
				Index:  rec.index,
				Prompt: rec.prompt,
				Output: rec.output,
				Score:  rec.score,
				Judged: rec.judged,
			})
		}
		if err := r.store.SaveRun(ctx, report, r.engineName, rows); err != nil {
			r.log.Error().Err(err).Str("run_id", report.ID).Msg("persist run")
			if runErr == nil {
				runErr = err
				report.State = "error"
				report.Error = err.Error()
			}
		}
	}

	r.publisher.Publish(Event{Name: "run_done", RunID: report.ID, Fields: map[string]any{"state": report.State}})
	return report, runErr
}

// aggregate folds per-sample scores into task scores and group means.
func aggregate(records []sampleRecord) (scores, groupScores []types.TaskScore) {
	type acc struct {
		task     *tasks.Task
		sum      float64
		n        int
		unparsed int
	}
	var order []string
	byTask := map[string]*acc{}
	for _, rec := range records {
		a, ok := byTask[rec.task.Name]
		if !ok {
			a = &acc{task: rec.task}
			byTask[rec.task.Name] = a
			order = append(order, rec.task.Name)
		}
		a.sum += rec.score
		a.n++
		if rec.task.Metric == tasks.MetricJudge && !rec.judged {
			a.unparsed++
		}
	}

	type gacc struct {
		metric string
		sum    float64
		n      int
		total  int
	}
	var gorder []string
	byGroup := map[string]*gacc{}
	for _, name := range order {
		a := byTask[name]
		sc := types.TaskScore{
			Task:     name,
			Group:    a.task.Group,
			Metric:   a.task.Metric,
			Score:    a.sum / float64(a.n),
			Samples:  a.n,
			Unparsed: a.unparsed,
		}
		scores = append(scores, sc)
		if a.task.Group != "" {
			g, ok := byGroup[a.task.Group]
			if !ok {
				g = &gacc{metric: a.task.Metric}
				byGroup[a.task.Group] = g
				gorder = append(gorder, a.task.Group)
			}
			g.sum += sc.Score
			g.n++
			g.total += a.n
		}
	}
	for _, name := range gorder {
		g := byGroup[name]
		groupScores = append(groupScores, types.TaskScore{
			Task:    name,
			Metric:  g.metric,
			Score:   g.sum / float64(g.n),
			Samples: g.total,
		})
	}
	return scores, groupScores
}
