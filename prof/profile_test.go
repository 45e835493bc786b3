package prof

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New()
	start := time.Now().Add(-time.Millisecond)
	r.Track(start, "naive")
	r.Track(start, "naive")
	r.Track(start, "reduce")

	tot := r.Totals()
	assert.Len(t, tot, 2)
	assert.GreaterOrEqual(t, tot["naive"], 2*time.Millisecond)

	snap := r.SnapshotAndReset()
	assert.Len(t, snap, 3)
	assert.Equal(t, "reduce", snap[2].Label)
	assert.Empty(t, r.SnapshotAndReset())
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Track(time.Now(), "agm")
	assert.Nil(t, r.SnapshotAndReset())
	assert.Empty(t, r.Totals())
}
