package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/modelcontextprotocol/go-sdk/examples/server/archireview/internal/archireview/review"
)

// ErrRunNotFound is returned by LoadReport for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run describes one persisted review of a file.
type Run struct {
	ID        string         `json:"id"`
	Project   string         `json:"project"`
	File      string         `json:"file"`
	CreatedAt time.Time      `json:"created_at"`
	Worst     review.Quality `json:"worst"`
	Results   int            `json:"results"`
	Faults    int            `json:"faults"`
}

// SaveReport persists a report as a new run and returns it.
func (s *Store) SaveReport(ctx context.Context, report *review.Report) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Project:   report.Project,
		File:      report.File,
		CreatedAt: time.Now().UTC(),
		Worst:     report.Worst(),
		Results:   len(report.Results),
		Faults:    len(report.Faults),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, project, file, created_at, worst, result_count, fault_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Project, run.File, run.CreatedAt.UnixNano(), int(run.Worst), run.Results, run.Faults); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	for i, r := range report.Results {
		meta, err := json.Marshal(r.Rule)
		if err != nil {
			return Run{}, err
		}
		span, err := json.Marshal(r.Location.Span)
		if err != nil {
			return Run{}, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO results (run_id, seq, rule_id, metadata, snippet, span)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, r.Rule.ID, string(meta), r.Snippet, string(span)); err != nil {
			return Run{}, fmt.Errorf("insert result: %w", err)
		}
	}

	for i, f := range report.Faults {
		span, err := json.Marshal(f.Span)
		if err != nil {
			return Run{}, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO faults (run_id, seq, rule_id, kind, span, message)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, f.RuleID, string(f.Kind), string(span), f.Message); err != nil {
			return Run{}, fmt.Errorf("insert fault: %w", err)
		}
	}

	return run, tx.Commit()
}

// History lists the runs of a file, newest first. A limit <= 0 returns all.
func (s *Store) History(ctx context.Context, file string, limit int) ([]Run, error) {
	q := `SELECT id, project, file, created_at, worst, result_count, fault_count
		FROM runs WHERE file = ? ORDER BY created_at DESC, rowid DESC`
	args := []any{file}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// LatestRuns returns the newest run of every file, ordered by file.
func (s *Store) LatestRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project, file, created_at, worst, result_count, fault_count
		FROM runs r
		WHERE rowid = (SELECT MAX(rowid) FROM runs WHERE file = r.file)
		ORDER BY file
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

// LatestReports loads the newest report of every file, ordered by file.
func (s *Store) LatestReports(ctx context.Context) ([]*review.Report, error) {
	runs, err := s.LatestRuns(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]*review.Report, 0, len(runs))
	for _, run := range runs {
		r, err := s.LoadReport(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// LoadReport rebuilds the report persisted under runID.
func (s *Store) LoadReport(ctx context.Context, runID string) (*review.Report, error) {
	report := &review.Report{Results: []review.Result{}}
	err := s.db.QueryRowContext(ctx, `SELECT project, file FROM runs WHERE id = ?`, runID).
		Scan(&report.Project, &report.File)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT metadata, snippet, span FROM results WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var meta, snippet, span string
		if err := rows.Scan(&meta, &snippet, &span); err != nil {
			return nil, err
		}
		res := review.Result{
			Snippet:  snippet,
			Location: review.Location{Project: report.Project, File: report.File},
		}
		if err := json.Unmarshal([]byte(meta), &res.Rule); err != nil {
			return nil, fmt.Errorf("result metadata: %w", err)
		}
		if err := json.Unmarshal([]byte(span), &res.Location.Span); err != nil {
			return nil, fmt.Errorf("result span: %w", err)
		}
		report.Results = append(report.Results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	faultRows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, kind, span, message FROM faults WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer faultRows.Close()
	for faultRows.Next() {
		var f review.Fault
		var kind, span string
		if err := faultRows.Scan(&f.RuleID, &kind, &span, &f.Message); err != nil {
			return nil, err
		}
		f.Kind = review.Kind(kind)
		if err := json.Unmarshal([]byte(span), &f.Span); err != nil {
			return nil, fmt.Errorf("fault span: %w", err)
		}
		report.Faults = append(report.Faults, f)
	}
	return report, faultRows.Err()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var created int64
		var worst int
		if err := rows.Scan(&r.ID, &r.Project, &r.File, &created, &worst, &r.Results, &r.Faults); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		r.Worst = review.Quality(worst)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
