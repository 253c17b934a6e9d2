package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/stampede/internal/trace"
)

func TestLoadHistory_AssemblesFramesWithDispatches(t *testing.T) {
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
	if err := s.WriteRecordStates(ctx, "run-1", []trace.RecordState{
		{Index: 0, State: "shift"},
		{Index: 1, State: "rest"},
	}); err != nil {
		t.Fatalf("WriteRecordStates() failed: %v", err)
	}

	history, err := s.LoadHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadHistory() failed: %v", err)
	}

	if history.Run.Token != "run-1" {
		t.Errorf("token = %q, expected %q", history.Run.Token, "run-1")
	}
	if len(history.Frames) != 2 {
		t.Fatalf("got %d frames, expected 2", len(history.Frames))
	}
	if len(history.Frames[0].Dispatches) != 2 {
		t.Errorf("frame 1 has %d dispatches, expected 2", len(history.Frames[0].Dispatches))
	}
	if len(history.Frames[1].Dispatches) != 1 {
		t.Errorf("frame 2 has %d dispatches, expected 1", len(history.Frames[1].Dispatches))
	}
	if len(history.Records) != 2 {
		t.Errorf("got %d record snapshots, expected 2", len(history.Records))
	}
}

func TestLoadHistory_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadHistory(context.Background(), "no-such-run")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected wrapped sql.ErrNoRows, got %v", err)
	}
}

func TestLoadHistory_IsComplete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 1, 2)

	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 1)); err != nil {
		t.Fatalf("WriteFrame(1) failed: %v", err)
	}

	// One of two declared frames: incomplete.
	history, err := s.LoadHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadHistory() failed: %v", err)
	}
	if history.IsComplete {
		t.Error("run with missing frames reported complete")
	}

	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 2)); err != nil {
		t.Fatalf("WriteFrame(2) failed: %v", err)
	}

	// All frames but no run digest: still incomplete.
	history, err = s.LoadHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadHistory() failed: %v", err)
	}
	if history.IsComplete {
		t.Error("run without digest reported complete")
	}

	if err := s.FinishRun(ctx, "run-1", "digest"); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	history, err = s.LoadHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadHistory() failed: %v", err)
	}
	if !history.IsComplete {
		t.Error("finished run reported incomplete")
	}
}

func TestVerifyFrameDigests_CleanLog(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 1, 2)
	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 1, testDispatch(1, 1, 0))); err != nil {
		t.Fatalf("WriteFrame(1) failed: %v", err)
	}
	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 2, testDispatch(2, 2, 0))); err != nil {
		t.Fatalf("WriteFrame(2) failed: %v", err)
	}

	history, err := s.LoadHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadHistory() failed: %v", err)
	}

	mismatched, err := history.VerifyFrameDigests()
	if err != nil {
		t.Fatalf("VerifyFrameDigests() failed: %v", err)
	}
	if len(mismatched) != 0 {
		t.Errorf("clean log reported mismatched frames: %v", mismatched)
	}
}

func TestVerifyFrameDigests_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRun(t, s, "run-1", "drifter", 1, 2)
	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 1, testDispatch(1, 1, 0))); err != nil {
		t.Fatalf("WriteFrame(1) failed: %v", err)
	}
	if err := s.WriteFrame(ctx, "run-1", testFrame(t, 2, testDispatch(2, 2, 0))); err != nil {
		t.Fatalf("WriteFrame(2) failed: %v", err)
	}

	// Tamper with frame 2's dispatch log behind the digest's back.
	_, err := s.db.Exec(`UPDATE dispatches SET steps = 99 WHERE run_token = 'run-1' AND stamp = 2`)
	if err != nil {
		t.Fatalf("tamper update failed: %v", err)
	}

	history, err := s.LoadHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadHistory() failed: %v", err)
	}

	mismatched, err := history.VerifyFrameDigests()
	if err != nil {
		t.Fatalf("VerifyFrameDigests() failed: %v", err)
	}
	if len(mismatched) != 1 || mismatched[0] != 2 {
		t.Errorf("mismatched = %v, expected [2]", mismatched)
	}
}

func TestTraceFrame_DropsStoreOnlyFields(t *testing.T) {
	f := StoredFrame{
		Stamp:      5,
		Dispatched: 1,
		Unrouted:   1,
		Digest:     "ignored",
		Dispatches: []trace.Dispatch{testDispatch(1, 5, 0)},
	}

	tf := f.TraceFrame()
	if tf.Stamp != 5 || tf.Dispatched != 1 || len(tf.Dispatches) != 1 {
		t.Errorf("TraceFrame() = %+v, trace fields not carried", tf)
	}
}

func TestFindIncompleteRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// run-a: complete. run-b: missing a frame. run-c: frames done, no digest.
	createTestRun(t, s, "run-a", "drifter", 1, 1)
	if err := s.WriteFrame(ctx, "run-a", testFrame(t, 1)); err != nil {
		t.Fatalf("WriteFrame(run-a) failed: %v", err)
	}
	if err := s.FinishRun(ctx, "run-a", "digest-a"); err != nil {
		t.Fatalf("FinishRun(run-a) failed: %v", err)
	}

	createTestRun(t, s, "run-b", "drifter", 1, 2)
	if err := s.WriteFrame(ctx, "run-b", testFrame(t, 1)); err != nil {
		t.Fatalf("WriteFrame(run-b) failed: %v", err)
	}

	createTestRun(t, s, "run-c", "beacon", 1, 1)
	if err := s.WriteFrame(ctx, "run-c", testFrame(t, 1)); err != nil {
		t.Fatalf("WriteFrame(run-c) failed: %v", err)
	}

	incomplete, err := s.FindIncompleteRuns(ctx)
	if err != nil {
		t.Fatalf("FindIncompleteRuns() failed: %v", err)
	}
	if len(incomplete) != 2 {
		t.Fatalf("got %d incomplete runs, expected 2: %+v", len(incomplete), incomplete)
	}
	if incomplete[0].Token != "run-b" || incomplete[1].Token != "run-c" {
		t.Errorf("incomplete tokens = %q,%q, expected run-b,run-c",
			incomplete[0].Token, incomplete[1].Token)
	}
}
