package tasks

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"evald/internal/common/fsutil"
	"evald/pkg/types"
)

// Catalog indexes task definitions and groups loaded from a tasks directory.
type Catalog struct {
	tasks  map[string]*Task
	groups map[string][]string
}

// LoadDir scans dir (recursively) for *.yaml task and group definitions.
// A file with a `task:` key is a task; a file with `group:` and `tasks:` is a
// group (lm-eval convention: group files are usually named "_<group>.yaml").
func LoadDir(dir string) (*Catalog, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	c := &Catalog{tasks: map[string]*Task{}, groups: map[string][]string{}}
	err = filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var t Task
		if err := yaml.Unmarshal(b, &t); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if t.Name != "" {
			t.dir = filepath.Dir(path)
			if err := validate(&t); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if _, dup := c.tasks[t.Name]; dup {
				return fmt.Errorf("%s: duplicate task %q", path, t.Name)
			}
			c.tasks[t.Name] = &t
			if t.Group != "" {
				c.groups[t.Group] = append(c.groups[t.Group], t.Name)
			}
			return nil
		}
		var g groupDef
		if err := yaml.Unmarshal(b, &g); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if g.Group != "" && len(g.Tasks) > 0 {
			c.groups[g.Group] = append(c.groups[g.Group], g.Tasks...)
			return nil
		}
		// Not a task or group file; ignore (template fragments etc).
		return nil
	})
	if err != nil {
		return nil, err
	}
	for g := range c.groups {
		sort.Strings(c.groups[g])
	}
	return c, nil
}

func validate(t *Task) error {
	switch t.Kind {
	case KindMultipleChoice, KindGenerate, KindKVExtract:
	default:
		return fmt.Errorf("task %q: unknown kind %q", t.Name, t.Kind)
	}
	switch t.Metric {
	case MetricAcc, MetricExactMatch, MetricJudge:
	default:
		return fmt.Errorf("task %q: unknown metric %q", t.Name, t.Metric)
	}
	if t.Kind == KindMultipleChoice && t.Metric == MetricExactMatch {
		return fmt.Errorf("task %q: multiple_choice tasks score with acc", t.Name)
	}
	if t.Kind != KindKVExtract && t.DatasetPath == "" {
		return fmt.Errorf("task %q: dataset_path is required", t.Name)
	}
	return nil
}

// Get returns the task definition for name.
func (c *Catalog) Get(name string) (*Task, bool) {
	t, ok := c.tasks[name]
	return t, ok
}

// Len reports the number of tasks in the catalog.
func (c *Catalog) Len() int { return len(c.tasks) }

// List returns catalog summaries sorted by task name.
func (c *Catalog) List() []types.TaskInfo {
	out := make([]types.TaskInfo, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, types.TaskInfo{
			Name:       t.Name,
			Group:      t.Group,
			Kind:       t.Kind,
			Metric:     t.Metric,
			NumFewshot: t.NumFewshot,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resolve expands task and group names into concrete task definitions,
// de-duplicated, in first-mention order.
func (c *Catalog) Resolve(names []string) ([]*Task, error) {
	var out []*Task
	seen := map[string]bool{}
	add := func(name string) error {
		if seen[name] {
			return nil
		}
		t, ok := c.tasks[name]
		if !ok {
			return ErrTaskNotFound(name)
		}
		seen[name] = true
		out = append(out, t)
		return nil
	}
	for _, n := range names {
		if members, ok := c.groups[n]; ok {
			for _, m := range members {
				if err := add(m); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := add(n); err != nil {
			return nil, err
		}
	}
	return out, nil
}
