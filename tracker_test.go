package stampede

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_NewTracker(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, Generation(0), tr.Current(), "new tracker should start at 0")
}

func TestTracker_NewTrackerAt(t *testing.T) {
	tr := NewTrackerAt(100)
	assert.Equal(t, Generation(100), tr.Current(), "tracker should start at specified stamp")
	assert.Equal(t, Generation(101), tr.Advance(), "next advance should continue from start")
}

func TestTracker_Advance_Incrementing(t *testing.T) {
	tr := NewTracker()

	// First call returns 1 (increments then returns)
	assert.Equal(t, Generation(1), tr.Advance())
	assert.Equal(t, Generation(2), tr.Advance())
	assert.Equal(t, Generation(3), tr.Advance())

	// Current should reflect increments
	assert.Equal(t, Generation(3), tr.Current())
}

func TestTracker_FirstAdvance_StaleForZeroRecord(t *testing.T) {
	tr := NewTracker()
	r := NewRecord(StateID(7), struct{}{})

	stamp := tr.Advance()
	assert.True(t, r.Stale(stamp), "fresh record must be stale against the first frame stamp")
}

func TestTracker_Advance_Unique(t *testing.T) {
	tr := NewTracker()
	const iterations = 1000

	seen := make(map[Generation]bool)
	for i := 0; i < iterations; i++ {
		stamp := tr.Advance()
		assert.False(t, seen[stamp], "stamp %d issued twice", stamp)
		seen[stamp] = true
	}

	assert.Len(t, seen, iterations, "all stamps should be unique")
}

func TestTracker_ThreadSafe(t *testing.T) {
	tr := NewTracker()
	const goroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	stamps := make(chan Generation, goroutines*callsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				stamps <- tr.Advance()
			}
		}()
	}

	wg.Wait()
	close(stamps)

	// Verify all stamps are unique
	seen := make(map[Generation]bool)
	for stamp := range stamps {
		assert.False(t, seen[stamp], "stamp %d issued twice", stamp)
		seen[stamp] = true
	}

	expected := goroutines * callsPerGoroutine
	assert.Len(t, seen, expected, "should have %d unique stamps", expected)
}

func TestTracker_Current_DoesNotAdvance(t *testing.T) {
	tr := NewTracker()

	tr.Advance() // 1
	tr.Advance() // 2

	// Current should not change the value
	assert.Equal(t, Generation(2), tr.Current())
	assert.Equal(t, Generation(2), tr.Current())
	assert.Equal(t, Generation(2), tr.Current())
}
