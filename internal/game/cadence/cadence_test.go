package cadence

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCadence_FiresRepeatedly(t *testing.T) {
	var count atomic.Int32
	c := Start(5*time.Millisecond, func() { count.Add(1) })
	defer c.Stop()

	require.Eventually(t, func() bool { return count.Load() >= 3 },
		time.Second, time.Millisecond)
}

func TestCadence_StopHaltsFiring(t *testing.T) {
	var count atomic.Int32
	c := Start(5*time.Millisecond, func() { count.Add(1) })

	require.Eventually(t, func() bool { return count.Load() >= 1 },
		time.Second, time.Millisecond)
	c.Stop()
	assert.True(t, c.Stopped())

	settled := count.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, count.Load(), "a stopped cadence must not fire")
}

func TestCadence_StopIdempotentAndConcurrent(t *testing.T) {
	c := Start(time.Hour, func() {})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Stop()
		}()
	}
	wg.Wait()
	assert.True(t, c.Stopped())
}

func TestCadence_StopFromCallback(t *testing.T) {
	var count atomic.Int32
	var c *Cadence
	ready := make(chan struct{})
	c = Start(5*time.Millisecond, func() {
		if count.Add(1) == 1 {
			c.Stop()
			close(ready)
		}
	})

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("cadence never fired")
	}
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), count.Load())
}
