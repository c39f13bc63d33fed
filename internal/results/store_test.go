package results

import (
	"context"
	"path/filepath"
	"testing"

	"evald/pkg/types"
)

func sampleReport() types.RunReport {
	return types.RunReport{
		ID:                 "run-1",
		Model:              "m.gguf",
		JudgeModel:         "j.gguf",
		UnloadLMBeforeEval: true,
		PrimaryReleased:    true,
		State:              "done",
		StartedUnix:        100,
		FinishedUnix:       160,
		Scores: []types.TaskScore{
			{Task: "anatomy", Group: "mmlu_mt", Metric: "acc", Score: 0.5, Samples: 10},
			{Task: "haiku", Metric: "judge", Score: 0.8, Samples: 5, Unparsed: 1},
		},
		GroupScores: []types.TaskScore{
			{Task: "mmlu_mt", Metric: "acc", Score: 0.5, Samples: 10},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	rows := []SampleRow{
		{Task: "anatomy", Index: 0, Prompt: "p0", Output: "B", Score: 1},
		{Task: "anatomy", Index: 1, Prompt: "p1", Output: "C", Score: 0},
		{Task: "haiku", Index: 0, Prompt: "p2", Output: "waves...", Score: 1, Judged: true},
	}
	if err := s.SaveRun(ctx, sampleReport(), "llama", rows); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.GetRun(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !got.UnloadLMBeforeEval || !got.PrimaryReleased {
		t.Fatalf("unload fields lost: %+v", got)
	}
	if len(got.Scores) != 2 || len(got.GroupScores) != 1 {
		t.Fatalf("scores lost: %+v", got)
	}
	if got.Scores[0].Task != "anatomy" || got.Scores[0].Group != "mmlu_mt" {
		t.Fatalf("unexpected score row: %+v", got.Scores[0])
	}
	if got.Scores[1].Unparsed != 1 {
		t.Fatalf("unparsed count lost: %+v", got.Scores[1])
	}

	n, err := s.SampleCount(ctx, "run-1")
	if err != nil || n != 3 {
		t.Fatalf("sample count: n=%d err=%v", n, err)
	}
}

func TestGetRunUnknown(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open in-memory: %v", err)
	}
	defer s.Close()
	_, ok, err := s.GetRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("unexpected hit for unknown run")
	}
}

func TestListRunsOrder(t *testing.T) {
	ctx := context.Background()
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	first := sampleReport()
	first.ID, first.StartedUnix = "run-a", 100
	second := sampleReport()
	second.ID, second.StartedUnix = "run-b", 200
	if err := s.SaveRun(ctx, first, "llama", nil); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := s.SaveRun(ctx, second, "llama", nil); err != nil {
		t.Fatalf("save b: %v", err)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-b" || runs[1].ID != "run-a" {
		t.Fatalf("unexpected order: %+v", runs)
	}
}
