package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run with its coverage and findings in one transaction.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same run ID
// twice keeps the first record and reports inserted=false. Coverage and
// findings are only written together with a newly inserted run.
//
// Findings are serialized to canonical JSON per RFC 8785; their fingerprint,
// invariant and severity are copied into indexed columns.
func (s *Store) WriteRun(ctx context.Context, run Run) (inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// seq is assigned inside the transaction, so it is gap-free per database.
	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, target, model_hash, seed, max_depth, max_branches, step_budget,
		 success, error, explored_traces, unique_states, popped, duration_seconds, engine_version)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Target,
		run.ModelHash,
		marshalSeed(run.Seed),
		run.MaxDepth,
		run.MaxBranches,
		run.StepBudget,
		run.Success,
		run.Error,
		run.ExploredTraces,
		run.UniqueStates,
		run.Popped,
		run.DurationSeconds,
		run.EngineVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	for i, sig := range run.Coverage {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO coverage (run_id, seq, signature)
			VALUES (?, ?, ?)
		`, run.ID, i, sig); err != nil {
			return false, fmt.Errorf("write coverage: %w", err)
		}
	}

	for i, f := range run.Findings {
		fingerprint, err := f.Fingerprint()
		if err != nil {
			return false, fmt.Errorf("write finding: %w", err)
		}
		body, err := marshalFinding(f)
		if err != nil {
			return false, fmt.Errorf("write finding: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO findings
			(run_id, seq, fingerprint, invariant, severity, title, depth, body)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i,
			fingerprint,
			f.Invariant,
			f.Severity,
			f.Title,
			len(f.Actions),
			body,
		); err != nil {
			return false, fmt.Errorf("write finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}
	return true, nil
}
