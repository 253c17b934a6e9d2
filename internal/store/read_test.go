package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/stampede/internal/testutil"
	"github.com/roach88/stampede/internal/trace"
)

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "no-such-run")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, expected 0", len(runs))
	}
}

func TestListRuns_TokenOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// UUIDv7 tokens sort by creation time; a fixed sequence here exercises
	// the same ORDER BY.
	gen := testutil.NewSequenceTokenGenerator("run-c", "run-a", "run-b")
	createTestRun(t, s, gen.Generate(), "drifter", 1, 1)
	createTestRun(t, s, gen.Generate(), "beacon", 1, 1)
	createTestRun(t, s, gen.Generate(), "drifter", 1, 1)
	if gen.Remaining() != 0 {
		t.Fatalf("generator has %d tokens left, expected 0", gen.Remaining())
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, expected 3", len(runs))
	}
	for i, want := range []string{"run-a", "run-b", "run-c"} {
		if runs[i].Token != want {
			t.Errorf("runs[%d].Token = %q, expected %q", i, runs[i].Token, want)
		}
	}
}

func TestReadFrames_StampOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 1, 3)

	// Insert out of order; read must come back stamp-ordered.
	for _, stamp := range []uint64{3, 1, 2} {
		seq := int64(stamp)
		if err := s.WriteFrame(ctx, "run-1", testFrame(t, stamp, testDispatch(seq, stamp, 0))); err != nil {
			t.Fatalf("WriteFrame(stamp=%d) failed: %v", stamp, err)
		}
	}

	frames, err := s.ReadFrames(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadFrames() failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, expected 3", len(frames))
	}
	for i, want := range []uint64{1, 2, 3} {
		if frames[i].Stamp != want {
			t.Errorf("frames[%d].Stamp = %d, expected %d", i, frames[i].Stamp, want)
		}
	}
}

func TestReadFrames_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	createTestRun(t, s, "run-1", "drifter", 1, 1)

	frames, err := s.ReadFrames(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadFrames() failed: %v", err)
	}
	if frames == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestReadDispatches_SeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 2, 2)

	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 1,
		testDispatch(1, 1, 0),
		testDispatch(2, 1, 1),
	)); err != nil {
		t.Fatalf("WriteFrame(1) failed: %v", err)
	}
	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 2,
		testDispatch(3, 2, 0),
	)); err != nil {
		t.Fatalf("WriteFrame(2) failed: %v", err)
	}

	dispatches, err := s.ReadDispatches(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadDispatches() failed: %v", err)
	}
	if len(dispatches) != 3 {
		t.Fatalf("got %d dispatches, expected 3", len(dispatches))
	}
	for i, d := range dispatches {
		if d.Seq != int64(i+1) {
			t.Errorf("dispatches[%d].Seq = %d, expected %d", i, d.Seq, i+1)
		}
	}
}

func TestReadDispatches_RoundTripsFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 1, 1)

	want := testDispatch(7, 1, 4)
	want.Bucket = "moody"
	want.From = "shift"
	want.To = "settle"
	want.Steps = 2

	frame := testFrame(t, 1, want)
	if err := s.WriteFrame(ctx, "run-1", frame); err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}

	dispatches, err := s.ReadDispatches(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadDispatches() failed: %v", err)
	}
	if len(dispatches) != 1 {
		t.Fatalf("got %d dispatches, expected 1", len(dispatches))
	}
	got := dispatches[0]
	if got != want {
		t.Errorf("dispatch round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestReadFrameDispatches_FiltersByStamp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 1, 2)

	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 1, testDispatch(1, 1, 0))); err != nil {
		t.Fatalf("WriteFrame(1) failed: %v", err)
	}
	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 2, testDispatch(2, 2, 0), testDispatch(3, 2, 1))); err != nil {
		t.Fatalf("WriteFrame(2) failed: %v", err)
	}

	dispatches, err := s.ReadFrameDispatches(ctx, "run-1", 2)
	if err != nil {
		t.Fatalf("ReadFrameDispatches() failed: %v", err)
	}
	if len(dispatches) != 2 {
		t.Fatalf("got %d dispatches for stamp 2, expected 2", len(dispatches))
	}
	for _, d := range dispatches {
		if d.Frame != 2 {
			t.Errorf("dispatch seq %d has stamp %d, expected 2", d.Seq, d.Frame)
		}
	}
}

func TestReadRecordStates_IndexOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 3, 1)

	// Written out of order; read back in collection order.
	states := []struct {
		idx   int64
		state string
	}{{2, "rest"}, {0, "shift"}, {1, "settle"}}
	for _, st := range states {
		err := s.WriteRecordStates(ctx, "run-1", []trace.RecordState{
			{Index: st.idx, State: st.state},
		})
		if err != nil {
			t.Fatalf("WriteRecordStates(%d) failed: %v", st.idx, err)
		}
	}

	snapshots, err := s.ReadRecordStates(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRecordStates() failed: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("got %d snapshots, expected 3", len(snapshots))
	}
	for i, want := range []string{"shift", "settle", "rest"} {
		if snapshots[i].Index != int64(i) || snapshots[i].State != want {
			t.Errorf("snapshots[%d] = {%d %q}, expected {%d %q}",
				i, snapshots[i].Index, snapshots[i].State, i, want)
		}
	}
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 1, 2)

	seq, err := s.LastSeq(ctx, "run-1")
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq on empty run = %d, expected 0", seq)
	}

	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 1, testDispatch(1, 1, 0), testDispatch(2, 1, 0))); err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}

	seq, err = s.LastSeq(ctx, "run-1")
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 2 {
		t.Errorf("LastSeq = %d, expected 2", seq)
	}
}

func TestLastStamp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 1, 2)

	stamp, err := s.LastStamp(ctx, "run-1")
	if err != nil {
		t.Fatalf("LastStamp() failed: %v", err)
	}
	if stamp != 0 {
		t.Errorf("LastStamp on empty run = %d, expected 0", stamp)
	}

	for _, st := range []uint64{1, 2} {
		if err := s.WriteFrame(ctx, "run-1", testFrame(t, st)); err != nil {
			t.Fatalf("WriteFrame(%d) failed: %v", st, err)
		}
	}

	stamp, err = s.LastStamp(ctx, "run-1")
	if err != nil {
		t.Fatalf("LastStamp() failed: %v", err)
	}
	if stamp != 2 {
		t.Errorf("LastStamp = %d, expected 2", stamp)
	}
}
