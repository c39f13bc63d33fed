package tasks

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadSamples returns the evaluation records for a task. kv_extract tasks
// without a dataset_path synthesize their samples deterministically from seed;
// everything else reads JSONL from dataset_path (relative to the task file).
func (t *Task) LoadSamples(seed int64) ([]Sample, error) {
	if t.Kind == KindKVExtract && t.DatasetPath == "" {
		return GenerateKVExtract(t.KV, seed)
	}
	p := t.DatasetPath
	if !filepath.IsAbs(p) {
		p = filepath.Join(t.dir, p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("task %q dataset: %w", t.Name, err)
	}
	defer f.Close()

	var samples []Sample
	sc := bufio.NewScanner(f)
	// Long-context datasets can carry lines well past the default 64K.
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var s Sample
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("task %q dataset line %d: %w", t.Name, lineNo, err)
		}
		if err := t.checkSample(&s, lineNo); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("task %q dataset: %w", t.Name, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("task %q dataset is empty", t.Name)
	}
	return samples, nil
}

func (t *Task) checkSample(s *Sample, lineNo int) error {
	switch t.Kind {
	case KindMultipleChoice:
		if s.Question == "" || len(s.Choices) < 2 {
			return fmt.Errorf("task %q line %d: multiple_choice sample needs question and >=2 choices", t.Name, lineNo)
		}
		if s.Answer < 0 || s.Answer >= len(s.Choices) {
			return fmt.Errorf("task %q line %d: answer index %d out of range", t.Name, lineNo, s.Answer)
		}
	default:
		if s.Input == "" {
			return fmt.Errorf("task %q line %d: sample needs input", t.Name, lineNo)
		}
	}
	return nil
}
