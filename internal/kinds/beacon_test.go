package kinds

import (
	"testing"

	"github.com/roach88/stampede/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeacon_States(t *testing.T) {
	r, err := New("beacon")
	require.NoError(t, err)

	assert.Equal(t, []string{"dark", "lit", "flare"}, r.States())
}

func TestBeacon_PulseCadence(t *testing.T) {
	r, err := New("beacon")
	require.NoError(t, err)
	r.Populate(1) // charge 0

	// Three dark frames charge, the fourth frame is lit: first pulse lands
	// on frame 3, then every fourth frame after.
	for i := 0; i < 3; i++ {
		r.RunFrame()
	}
	snapshot := r.Snapshot()
	assert.Equal(t, "lit", snapshot[0].State)
	assert.Equal(t, trace.Int(1), snapshot[0].Payload["pulses"])

	for i := 0; i < 4; i++ {
		r.RunFrame()
	}
	snapshot = r.Snapshot()
	assert.Equal(t, "lit", snapshot[0].State)
	assert.Equal(t, trace.Int(2), snapshot[0].Payload["pulses"])
}

func TestBeacon_FifthPulseFlares(t *testing.T) {
	r, err := New("beacon")
	require.NoError(t, err)
	r.Populate(1)

	// Pulses land on frames 3, 7, 11, 15, 19. Frame 20 is the lit frame
	// after the fifth pulse: lit falls through into flare.
	var last trace.Frame
	for i := 0; i < 20; i++ {
		_, last = r.RunFrame()
	}

	require.Len(t, last.Dispatches, 1)
	d := last.Dispatches[0]
	assert.Equal(t, "lit", d.From)
	assert.Equal(t, "dark", d.To)
	assert.Equal(t, int64(2), d.Steps, "lit chains into flare in one call")

	snapshot := r.Snapshot()
	assert.Equal(t, "dark", snapshot[0].State)
	assert.Equal(t, trace.Int(5), snapshot[0].Payload["pulses"])
	assert.Equal(t, trace.Int(1), snapshot[0].Payload["flares"])
}

func TestBeacon_PopulateDesynchronizes(t *testing.T) {
	r, err := New("beacon")
	require.NoError(t, err)
	r.Populate(3) // charges 0, 1, 2

	// Record 2 starts one frame from full charge and pulses first.
	r.RunFrame()
	snapshot := r.Snapshot()
	assert.Equal(t, "dark", snapshot[0].State)
	assert.Equal(t, "dark", snapshot[1].State)
	assert.Equal(t, "lit", snapshot[2].State)
}

func TestBeacon_SpawnAtLitFlaresImmediately(t *testing.T) {
	r, err := New("beacon")
	require.NoError(t, err)

	// A zero-payload record in lit has zero pulses, and 0%5==0 means the
	// very first frame falls through into flare.
	require.NoError(t, r.SpawnAt("lit", 1))

	_, frame := r.RunFrame()
	require.Len(t, frame.Dispatches, 1)
	assert.Equal(t, int64(2), frame.Dispatches[0].Steps)

	snapshot := r.Snapshot()
	assert.Equal(t, trace.Int(1), snapshot[0].Payload["flares"])
}

func TestBeacon_BucketTallies(t *testing.T) {
	r, err := New("beacon")
	require.NoError(t, err)
	r.Populate(3) // charges 0, 1, 2

	// Frame 2: records 0 and 1 still dark, record 2 is lit.
	r.RunFrame()
	report, _ := r.RunFrame()

	require.Len(t, report.Buckets, 2)
	assert.Equal(t, "charging", report.Buckets[0].Name)
	assert.Equal(t, 2, report.Buckets[0].Dispatched)
	assert.Equal(t, 1, report.Buckets[1].Dispatched, "lit record goes through catch-all")
}
