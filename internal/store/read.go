package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/statefuzz/internal/finding"
)

const runColumns = `id, target, model_hash, seed, max_depth, max_branches, step_budget,
	success, error, explored_traces, unique_states, popped, duration_seconds, engine_version`

// ReadRun returns a run with its coverage and findings.
// Returns ErrRunNotFound if no run has the given ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	if run.Coverage, err = s.readCoverage(ctx, id); err != nil {
		return Run{}, err
	}

	stored, err := s.ListFindings(ctx, FindingFilter{RunID: id})
	if err != nil {
		return Run{}, err
	}
	run.Findings = make([]finding.Finding, len(stored))
	for i, sf := range stored {
		run.Findings[i] = sf.Finding
	}

	return run, nil
}

// ListRuns returns every run in insertion order, without coverage or
// findings. Returns an empty slice (not nil) for an empty store.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ListFindings returns the findings matching filter, ordered by run and
// then by position within the run. Returns an empty slice (not nil) if
// nothing matches.
func (s *Store) ListFindings(ctx context.Context, filter FindingFilter) ([]StoredFinding, error) {
	query, params := filter.compile()
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	findings := []StoredFinding{}
	for rows.Next() {
		var (
			sf   StoredFinding
			body string
		)
		if err := rows.Scan(&sf.RunID, &sf.Seq, &sf.Fingerprint, &body); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		if sf.Finding, err = unmarshalFinding(body); err != nil {
			return nil, err
		}
		findings = append(findings, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate findings: %w", err)
	}
	return findings, nil
}

// readCoverage returns a run's signatures in first-seen order.
func (s *Store) readCoverage(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT signature
		FROM coverage
		WHERE run_id = ?
		ORDER BY seq ASC, signature COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	coverage := []string{}
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			return nil, fmt.Errorf("scan coverage: %w", err)
		}
		coverage = append(coverage, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage: %w", err)
	}
	return coverage, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run  Run
		seed string
	)
	err := row.Scan(
		&run.ID,
		&run.Target,
		&run.ModelHash,
		&seed,
		&run.MaxDepth,
		&run.MaxBranches,
		&run.StepBudget,
		&run.Success,
		&run.Error,
		&run.ExploredTraces,
		&run.UniqueStates,
		&run.Popped,
		&run.DurationSeconds,
		&run.EngineVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if run.Seed, err = unmarshalSeed(seed); err != nil {
		return Run{}, err
	}
	return run, nil
}
