package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/stampede/internal/trace"
)

// createTestStore creates a file-backed store in a test temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run registry row with minimal required fields.
func createTestRun(t *testing.T, s *Store, token, kind string, population, frames int64) Run {
	t.Helper()
	run := Run{
		Token:      token,
		Kind:       kind,
		Population: population,
		Frames:     frames,
	}
	if err := s.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	return run
}

// testDispatch builds a dispatch with the given seq and stamp.
func testDispatch(seq int64, stamp uint64, recordIdx int64) trace.Dispatch {
	return trace.Dispatch{
		Seq:    seq,
		Frame:  stamp,
		Bucket: "catch-all",
		Index:  recordIdx,
		From:   "start",
		To:     "shift",
		Steps:  1,
	}
}

// testFrame builds a stored frame with its digest computed from content.
func testFrame(t *testing.T, stamp uint64, dispatches ...trace.Dispatch) StoredFrame {
	t.Helper()
	f := StoredFrame{
		Stamp:      stamp,
		Dispatched: int64(len(dispatches)),
		Dispatches: dispatches,
	}
	digest, err := trace.FrameDigest(f.TraceFrame())
	if err != nil {
		t.Fatalf("FrameDigest() failed: %v", err)
	}
	f.Digest = digest
	return f
}
