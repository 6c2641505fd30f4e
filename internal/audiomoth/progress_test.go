package audiomoth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestProgressTracker_ReportsOnlyOnPercentTransitions(t *testing.T) {
	var calls []int
	var pt = newProgressTracker(func(p int) { calls = append(calls, p) })

	for done := int64(0); done <= 100; done++ {
		pt.update(done, 100)
	}
	pt.finish()

	assert.Equal(t, 101, len(calls)) // one call per distinct percent, 0..100
	assert.Equal(t, 100, calls[len(calls)-1])
}

func TestProgressTracker_FinishAlwaysReports100(t *testing.T) {
	var calls []int
	var pt = newProgressTracker(func(p int) { calls = append(calls, p) })

	pt.update(1, 10) // 10%
	pt.finish()

	assert.Equal(t, []int{10, 100}, calls)
}

func TestProgressTracker_NilCallbackNeverPanics(t *testing.T) {
	var pt = newProgressTracker(nil)
	pt.update(5, 10)
	pt.finish()
}

// Property: whatever sequence of non-decreasing done values is fed in,
// the tracker's last reported percent is always 100 once finish is called.
func TestProgressTracker_AlwaysEndsAt100(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var total = rapid.Int64Range(1, 1_000_000).Draw(t, "total")
		var steps = rapid.IntRange(0, 20).Draw(t, "steps")

		var last = -1
		var pt = newProgressTracker(func(p int) { last = p })

		for i := 0; i <= steps; i++ {
			var done = total * int64(i) / int64(steps+1)
			pt.update(done, total)
		}
		pt.finish()

		if last != 100 {
			t.Fatalf("expected final percent 100, got %d", last)
		}
	})
}
