package runner

import (
	"context"
	"fmt"
	"strings"

	"evald/internal/tasks"
	"evald/pkg/types"
)

// judgeParams keeps the judge deterministic and terse: one verdict line.
var judgeParams = struct {
	maxTokens int
	stop      []string
}{maxTokens: 64, stop: []string{"\n\n"}}

// judgePhase loads the judge model and scores every judge-metric record.
// Runs sequentially: the judge prompt is short and the phase is dominated by
// model load time, not throughput.
func (r *Runner) judgePhase(ctx context.Context, judgeMdl types.Model, req types.RunRequest, records []sampleRecord, runID string) error {
	inst, err := r.engine.Load(r.modelRef(judgeMdl))
	if err != nil {
		return fmt.Errorf("load judge model: %w", err)
	}
	defer inst.Close()

	params := r.genParams(req, &tasks.Task{MaxTokens: judgeParams.maxTokens, Stop: judgeParams.stop})
	params.Temperature = 0

	for i := range records {
		rec := &records[i]
		if rec.task.Metric != tasks.MetricJudge {
			continue
		}
		res, err := inst.Generate(ctx, buildJudgePrompt(rec), params, func(string) error { return nil })
		if err != nil {
			return fmt.Errorf("judge task %s sample %d: %w", rec.task.Name, rec.index, err)
		}
		correct, parsed := parseVerdict(res.Content)
		rec.judged = parsed
		if parsed && correct {
			rec.score = 1
		} else {
			rec.score = 0
		}
		r.publisher.Publish(Event{Name: "sample_judged", RunID: runID, Task: rec.task.Name, Fields: map[string]any{
			"index": rec.index, "parsed": parsed, "correct": parsed && correct,
		}})
	}
	return nil
}

// buildJudgePrompt asks for a single GRADE line so parsing stays trivial.
func buildJudgePrompt(rec *sampleRecord) string {
	var b strings.Builder
	b.WriteString("You are grading a model's answer to an evaluation question.\n\n")
	b.WriteString("Question:\n")
	if rec.sample.Question != "" {
		b.WriteString(strings.TrimSpace(rec.sample.Question))
	} else {
		b.WriteString(strings.TrimSpace(rec.sample.Input))
	}
	b.WriteString("\n\n")
	if rec.sample.Target != "" {
		b.WriteString("Reference answer:\n")
		b.WriteString(rec.sample.Target)
		b.WriteString("\n\n")
	}
	b.WriteString("Model answer:\n")
	b.WriteString(strings.TrimSpace(rec.output))
	b.WriteString("\n\nIs the model answer correct? Reply with exactly one line:\nGRADE: CORRECT or GRADE: INCORRECT\n")
	return b.String()
}

// parseVerdict extracts the judge's grade. The second return is false when no
// grade could be read; callers score that as incorrect and count it separately.
func parseVerdict(out string) (correct, parsed bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.ToUpper(strings.TrimSpace(line))
		idx := strings.Index(line, "GRADE:")
		if idx < 0 {
			continue
		}
		verdict := strings.TrimSpace(line[idx+len("GRADE:"):])
		// INCORRECT contains CORRECT; check the longer token first.
		if strings.HasPrefix(verdict, "INCORRECT") {
			return false, true
		}
		if strings.HasPrefix(verdict, "CORRECT") {
			return true, true
		}
	}
	return false, false
}
