package store

import (
	"context"
	"fmt"

	"github.com/roach88/stampede/internal/trace"
)

// Run is one recorded run's registry row. Frames is the declared frame
// count; RunDigest stays empty until FinishRun.
type Run struct {
	Token      string
	Kind       string
	Population int64
	Frames     int64
	RunDigest  string
}

// StoredFrame is one frame as written to and read from the store: the
// trace fields plus the unrouted tally and the frame's content digest.
type StoredFrame struct {
	Stamp      uint64
	Dispatched int64
	Unrouted   int64
	Digest     string
	Dispatches []trace.Dispatch
}

// CreateRun inserts the run registry row.
// Uses ON CONFLICT(token) DO NOTHING for idempotency - a re-created run
// with the same token is silently ignored.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(token, kind, population, frames, run_digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		run.Token,
		run.Kind,
		run.Population,
		run.Frames,
		run.RunDigest,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	return nil
}

// WriteFrame atomically writes one frame row and all its dispatch rows in a
// single transaction. A crash never leaves a frame half-recorded.
//
// Uses ON CONFLICT DO NOTHING throughout for idempotency: if the frame row
// already exists, its dispatches were committed with it, so the write
// commits early without touching the dispatch log.
//
// Note: The run referenced by runToken must exist (foreign key constraint).
func (s *Store) WriteFrame(ctx context.Context, runToken string, frame StoredFrame) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frame: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO frames
		(run_token, stamp, dispatched, unrouted, digest)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_token, stamp) DO NOTHING
	`,
		runToken,
		frame.Stamp,
		frame.Dispatched,
		frame.Unrouted,
		frame.Digest,
	)
	if err != nil {
		return fmt.Errorf("write frame: insert frame: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write frame: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Frame already recorded - its dispatches committed with it
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("write frame: commit (existing): %w", err)
		}
		return nil
	}

	for _, d := range frame.Dispatches {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dispatches
			(run_token, seq, stamp, bucket, record_idx, from_state, to_state, steps)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_token, seq) DO NOTHING
		`,
			runToken,
			d.Seq,
			d.Frame,
			d.Bucket,
			d.Index,
			d.From,
			d.To,
			d.Steps,
		)
		if err != nil {
			return fmt.Errorf("write frame: insert dispatch seq %d: %w", d.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frame: commit: %w", err)
	}

	return nil
}

// WriteRecordStates writes the final per-record snapshots for a run in a
// single transaction. Payloads are serialized to canonical JSON TEXT.
//
// Uses ON CONFLICT DO NOTHING for idempotency - snapshots written twice
// are silently ignored.
func (s *Store) WriteRecordStates(ctx context.Context, runToken string, states []trace.RecordState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write record states: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, rs := range states {
		payload, err := marshalPayload(rs.Payload)
		if err != nil {
			return fmt.Errorf("write record states: record %d: %w", rs.Index, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO record_states
			(run_token, record_idx, state, payload)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(run_token, record_idx) DO NOTHING
		`,
			runToken,
			rs.Index,
			rs.State,
			payload,
		)
		if err != nil {
			return fmt.Errorf("write record states: insert record %d: %w", rs.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write record states: commit: %w", err)
	}

	return nil
}

// FinishRun records the run digest, marking the run complete. This is the
// one non-append write in the store: the registry row's run_digest column
// goes from empty to final exactly once.
func (s *Store) FinishRun(ctx context.Context, token, runDigest string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET run_digest = ? WHERE token = ? AND run_digest = ''
	`, runDigest, token)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the run is unknown or it already finished; distinguish
		// for the caller.
		var existing string
		err := s.db.QueryRowContext(ctx, `
			SELECT run_digest FROM runs WHERE token = ?
		`, token).Scan(&existing)
		if err != nil {
			return fmt.Errorf("finish run: unknown run %q: %w", token, err)
		}
		if existing != runDigest {
			return fmt.Errorf("finish run: run %q already finished with a different digest", token)
		}
	}

	return nil
}

// marshalPayload converts a payload snapshot to canonical JSON TEXT for
// storage. Uses RFC 8785 canonical JSON so stored payloads are comparable
// as raw text.
func marshalPayload(payload trace.Object) (string, error) {
	if payload == nil {
		payload = trace.Object{}
	}
	data, err := trace.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}
