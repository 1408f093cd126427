package gc_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trueai-org/ultrakv/internal/gc"
)

func Test_Start_InvokesTickRepeatedly(t *testing.T) {
	t.Parallel()

	var ticks atomic.Int32
	w := gc.Start(5*time.Millisecond, func() { ticks.Add(1) })
	defer w.Stop()

	require_AtLeastOneTick(t, &ticks)
}

func Test_Stop_HaltsFurtherTicks(t *testing.T) {
	t.Parallel()

	var ticks atomic.Int32
	w := gc.Start(5*time.Millisecond, func() { ticks.Add(1) })
	require_AtLeastOneTick(t, &ticks)

	w.Stop()
	afterStop := ticks.Load()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, afterStop, ticks.Load())
}

func Test_Stop_IsSafeAfterNoTicksFired(t *testing.T) {
	t.Parallel()

	w := gc.Start(time.Hour, func() {})
	w.Stop() // must return promptly, not block forever
}

func require_AtLeastOneTick(t *testing.T, ticks *atomic.Int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ticks.Load() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected at least one tick before deadline")
}
