package store

import (
	"context"
	"fmt"

	"github.com/roach88/stampede/internal/trace"
)

// RunHistory is the complete recorded state of one run, assembled for
// replay and inspection.
type RunHistory struct {
	Run        Run
	Frames     []StoredFrame    // dispatches attached, ordered by stamp
	Records    []RecordSnapshot // final snapshots, ordered by record index
	IsComplete bool             // all declared frames recorded and run digest set
}

// LoadHistory assembles the full history of a run: the registry row, every
// frame with its dispatch log attached, and the final record snapshots.
//
// Returns sql.ErrNoRows (wrapped) if the run token is unknown.
func (s *Store) LoadHistory(ctx context.Context, token string) (RunHistory, error) {
	run, err := s.ReadRun(ctx, token)
	if err != nil {
		return RunHistory{}, fmt.Errorf("load history: %w", err)
	}

	frames, err := s.ReadFrames(ctx, token)
	if err != nil {
		return RunHistory{}, fmt.Errorf("load history: %w", err)
	}

	// One query for the whole dispatch log, grouped by stamp afterwards.
	// Avoids a per-frame query for long runs.
	dispatches, err := s.ReadDispatches(ctx, token)
	if err != nil {
		return RunHistory{}, fmt.Errorf("load history: %w", err)
	}

	frameAt := make(map[uint64]int, len(frames))
	for i, f := range frames {
		frameAt[f.Stamp] = i
	}
	for _, d := range dispatches {
		i, ok := frameAt[d.Frame]
		if !ok {
			return RunHistory{}, fmt.Errorf("load history: dispatch seq %d references unrecorded frame %d", d.Seq, d.Frame)
		}
		frames[i].Dispatches = append(frames[i].Dispatches, d)
	}

	records, err := s.ReadRecordStates(ctx, token)
	if err != nil {
		return RunHistory{}, fmt.Errorf("load history: %w", err)
	}

	history := RunHistory{
		Run:     run,
		Frames:  frames,
		Records: records,
	}
	history.IsComplete = int64(len(frames)) == run.Frames && run.RunDigest != ""

	return history, nil
}

// TraceFrame converts a stored frame back to its trace form, the shape
// digests are computed over. Replay digests TraceFrame output and compares
// against the stored digest; the first mismatch names the frame where
// behavior diverged.
func (f StoredFrame) TraceFrame() trace.Frame {
	return trace.Frame{
		Stamp:      f.Stamp,
		Dispatched: f.Dispatched,
		Dispatches: f.Dispatches,
	}
}

// VerifyFrameDigests recomputes every stored frame's digest from its
// dispatch log and compares against the recorded digest. Returns the
// stamps of mismatched frames, empty if the log is internally consistent.
//
// This checks log integrity only; replaying the kind against the log is
// the harness's job.
func (h RunHistory) VerifyFrameDigests() ([]uint64, error) {
	var mismatched []uint64
	for _, f := range h.Frames {
		digest, err := trace.FrameDigest(f.TraceFrame())
		if err != nil {
			return nil, fmt.Errorf("verify frame %d: %w", f.Stamp, err)
		}
		if digest != f.Digest {
			mismatched = append(mismatched, f.Stamp)
		}
	}
	return mismatched, nil
}

// FindIncompleteRuns returns registry rows for runs that need attention:
// fewer frames recorded than declared, or no run digest. Used after a
// crash to identify runs whose recording never finished.
//
// Results ordered by token, which is creation order for UUIDv7 tokens.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.token, r.kind, r.population, r.frames, r.run_digest
		FROM runs r
		LEFT JOIN frames f ON r.token = f.run_token
		GROUP BY r.token
		HAVING COUNT(f.stamp) < r.frames OR r.run_digest = ''
		ORDER BY r.token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("find incomplete runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.Token, &run.Kind, &run.Population, &run.Frames, &run.RunDigest,
		); err != nil {
			return nil, fmt.Errorf("scan incomplete run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incomplete runs: %w", err)
	}

	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}
