// Package results persists evaluation runs and per-sample outputs to sqlite.
package results

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "modernc.org/sqlite"

	"evald/pkg/types"
)

// Store wraps the sqlite database holding runs, per-sample outputs, and
// aggregated scores.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	model TEXT NOT NULL,
	judge_model TEXT NOT NULL DEFAULT '',
	engine TEXT NOT NULL DEFAULT '',
	unload_lm_before_eval INTEGER NOT NULL DEFAULT 0,
	primary_released INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	started_unix INTEGER NOT NULL,
	finished_unix INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scores (
	run_id TEXT NOT NULL REFERENCES runs(id),
	task TEXT NOT NULL,
	grp TEXT NOT NULL DEFAULT '',
	metric TEXT NOT NULL,
	score REAL NOT NULL,
	samples INTEGER NOT NULL,
	unparsed INTEGER NOT NULL DEFAULT 0,
	is_group INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, task, is_group)
);
CREATE TABLE IF NOT EXISTS samples (
	run_id TEXT NOT NULL REFERENCES runs(id),
	task TEXT NOT NULL,
	idx INTEGER NOT NULL,
	prompt_sha TEXT NOT NULL,
	output TEXT NOT NULL,
	score REAL NOT NULL,
	judged INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, task, idx)
);
`

// Open opens (and if needed initializes) the results database.
// An empty path opens an in-memory database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	// modernc sqlite serializes writes itself; a single conn avoids
	// table-locked errors from concurrent handles.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init results schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SampleRow is one generated (and scored) sample output.
type SampleRow struct {
	Task   string
	Index  int
	Prompt string
	Output string
	Score  float64
	Judged bool
}

// SaveRun persists a finished run report together with its sample rows.
func (s *Store) SaveRun(ctx context.Context, report types.RunReport, engineName string, rows []SampleRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, model, judge_model, engine, unload_lm_before_eval, primary_released, state, error, started_unix, finished_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Model, report.JudgeModel, engineName,
		boolInt(report.UnloadLMBeforeEval), boolInt(report.PrimaryReleased),
		report.State, report.Error, report.StartedUnix, report.FinishedUnix)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, sc := range report.Scores {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scores (run_id, task, grp, metric, score, samples, unparsed, is_group) VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
			report.ID, sc.Task, sc.Group, sc.Metric, sc.Score, sc.Samples, sc.Unparsed); err != nil {
			return fmt.Errorf("insert score: %w", err)
		}
	}
	for _, sc := range report.GroupScores {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scores (run_id, task, grp, metric, score, samples, unparsed, is_group) VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
			report.ID, sc.Task, sc.Group, sc.Metric, sc.Score, sc.Samples, sc.Unparsed); err != nil {
			return fmt.Errorf("insert group score: %w", err)
		}
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO samples (run_id, task, idx, prompt_sha, output, score, judged) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.ID, r.Task, r.Index, hashPrompt(r.Prompt), r.Output, r.Score, boolInt(r.Judged)); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns stored runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]types.RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, model, judge_model, state, unload_lm_before_eval, started_unix, finished_unix, error
		 FROM runs ORDER BY started_unix DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.RunSummary
	for rows.Next() {
		var r types.RunSummary
		var unload int
		if err := rows.Scan(&r.ID, &r.Model, &r.JudgeModel, &r.State, &unload, &r.StartedUnix, &r.FinishedUnix, &r.Error); err != nil {
			return nil, err
		}
		r.UnloadLMBeforeEval = unload != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun reconstructs a stored run report. The second return is false when the
// id is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (types.RunReport, bool, error) {
	var rep types.RunReport
	var unload, released int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, model, judge_model, unload_lm_before_eval, primary_released, state, error, started_unix, finished_unix
		 FROM runs WHERE id = ?`, id).
		Scan(&rep.ID, &rep.Model, &rep.JudgeModel, &unload, &released, &rep.State, &rep.Error, &rep.StartedUnix, &rep.FinishedUnix)
	if err == sql.ErrNoRows {
		return rep, false, nil
	}
	if err != nil {
		return rep, false, err
	}
	rep.UnloadLMBeforeEval = unload != 0
	rep.PrimaryReleased = released != 0

	rows, err := s.db.QueryContext(ctx,
		`SELECT task, grp, metric, score, samples, unparsed, is_group FROM scores WHERE run_id = ? ORDER BY is_group, task`, id)
	if err != nil {
		return rep, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc types.TaskScore
		var isGroup int
		if err := rows.Scan(&sc.Task, &sc.Group, &sc.Metric, &sc.Score, &sc.Samples, &sc.Unparsed, &isGroup); err != nil {
			return rep, false, err
		}
		if isGroup != 0 {
			rep.GroupScores = append(rep.GroupScores, sc)
		} else {
			rep.Scores = append(rep.Scores, sc)
		}
	}
	return rep, true, rows.Err()
}

// SampleCount reports stored sample rows for a run (used by tests and status).
func (s *Store) SampleCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// hashPrompt stores a digest instead of the raw prompt: long-context prompts
// would bloat the database and the text is reproducible from task + seed.
func hashPrompt(p string) string {
	h := sha256.Sum256([]byte(p))
	return hex.EncodeToString(h[:])
}
