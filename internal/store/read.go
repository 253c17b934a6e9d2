package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/stampede/internal/trace"
)

// RecordSnapshot is one record's final state as read back from the store.
// Payload is the stored canonical JSON TEXT, compared as raw text; the
// store never parses it.
type RecordSnapshot struct {
	Index   int64
	State   string
	Payload string
}

// ReadRun retrieves a single run registry row by token.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, token string) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT token, kind, population, frames, run_digest
		FROM runs
		WHERE token = ?
	`, token).Scan(
		&run.Token, &run.Kind, &run.Population, &run.Frames, &run.RunDigest,
	)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns all run registry rows.
// Tokens are UUIDv7, so ORDER BY token is creation order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, kind, population, frames, run_digest
		FROM runs
		ORDER BY token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.Token, &run.Kind, &run.Population, &run.Frames, &run.RunDigest,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	// Return empty slice instead of nil
	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// ReadFrames returns all frame rows for a run, without their dispatches.
// Results ordered by stamp ASC for deterministic replay.
func (s *Store) ReadFrames(ctx context.Context, runToken string) ([]StoredFrame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stamp, dispatched, unrouted, digest
		FROM frames
		WHERE run_token = ?
		ORDER BY stamp ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []StoredFrame
	for rows.Next() {
		var f StoredFrame
		if err := rows.Scan(&f.Stamp, &f.Dispatched, &f.Unrouted, &f.Digest); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate frames: %w", err)
	}

	if frames == nil {
		frames = []StoredFrame{}
	}

	return frames, nil
}

// ReadDispatches returns the full dispatch log for a run.
// Results ordered by seq ASC, id ASC for deterministic replay.
func (s *Store) ReadDispatches(ctx context.Context, runToken string) ([]trace.Dispatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, stamp, bucket, record_idx, from_state, to_state, steps
		FROM dispatches
		WHERE run_token = ?
		ORDER BY seq ASC, id ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}

	return collectDispatches(rows)
}

// ReadFrameDispatches returns the dispatch log of a single frame.
// Results ordered by seq ASC, id ASC for deterministic replay.
func (s *Store) ReadFrameDispatches(ctx context.Context, runToken string, stamp uint64) ([]trace.Dispatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, stamp, bucket, record_idx, from_state, to_state, steps
		FROM dispatches
		WHERE run_token = ? AND stamp = ?
		ORDER BY seq ASC, id ASC
	`, runToken, stamp)
	if err != nil {
		return nil, fmt.Errorf("query frame dispatches: %w", err)
	}

	return collectDispatches(rows)
}

// collectDispatches drains rows into a dispatch slice.
// Caller passes ownership of rows; this function closes them.
func collectDispatches(rows *sql.Rows) ([]trace.Dispatch, error) {
	defer rows.Close()

	var dispatches []trace.Dispatch
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		dispatches = append(dispatches, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}

	if dispatches == nil {
		dispatches = []trace.Dispatch{}
	}

	return dispatches, nil
}

// scanDispatch scans a row into a trace.Dispatch.
func scanDispatch(rows *sql.Rows) (trace.Dispatch, error) {
	var d trace.Dispatch
	if err := rows.Scan(
		&d.Seq, &d.Frame, &d.Bucket, &d.Index, &d.From, &d.To, &d.Steps,
	); err != nil {
		return trace.Dispatch{}, fmt.Errorf("scan dispatch: %w", err)
	}
	return d, nil
}

// ReadRecordStates returns the final record snapshots for a run.
// Results ordered by record_idx ASC, matching collection order.
func (s *Store) ReadRecordStates(ctx context.Context, runToken string) ([]RecordSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_idx, state, payload
		FROM record_states
		WHERE run_token = ?
		ORDER BY record_idx ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query record states: %w", err)
	}
	defer rows.Close()

	var snapshots []RecordSnapshot
	for rows.Next() {
		var rs RecordSnapshot
		if err := rows.Scan(&rs.Index, &rs.State, &rs.Payload); err != nil {
			return nil, fmt.Errorf("scan record state: %w", err)
		}
		snapshots = append(snapshots, rs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record states: %w", err)
	}

	if snapshots == nil {
		snapshots = []RecordSnapshot{}
	}

	return snapshots, nil
}

// LastSeq returns the highest dispatch seq recorded for a run, 0 if none.
// Used by the recorder to resume the sequence counter after a crash.
func (s *Store) LastSeq(ctx context.Context, runToken string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM dispatches WHERE run_token = ?
	`, runToken).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// LastStamp returns the highest frame stamp recorded for a run, 0 if none.
// Used by replay to position the tracker before re-execution.
func (s *Store) LastStamp(ctx context.Context, runToken string) (uint64, error) {
	var stamp uint64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(stamp), 0) FROM frames WHERE run_token = ?
	`, runToken).Scan(&stamp)
	if err != nil {
		return 0, fmt.Errorf("last stamp: %w", err)
	}
	return stamp, nil
}
