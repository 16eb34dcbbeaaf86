package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	collisions atomic.Int32
	stale      atomic.Int32
}

func (o *countingObserver) IDCollision()   { o.collisions.Add(1) }
func (o *countingObserver) StaleDelivery() { o.stale.Add(1) }

func TestRegisterAndInvoke(t *testing.T) {
	r := New()
	var got any
	require.NoError(t, r.Register("xsr_a", func(p any) { got = p }))

	assert.True(t, r.Contains("xsr_a"))
	assert.True(t, r.IsLive("xsr_a"))
	assert.True(t, r.Invoke("xsr_a", "ok"))
	assert.Equal(t, "ok", got)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("xsr_a", func(any) {}))

	err := r.Register("xsr_a", func(any) {})
	assert.ErrorIs(t, err, ErrIDInUse)
	assert.Equal(t, 1, r.Len())
}

func TestInvokeUnknown(t *testing.T) {
	r := New()
	assert.False(t, r.Invoke("xsr_missing", "x"))
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	obs := &countingObserver{}
	r := New(WithObserver(obs))
	require.NoError(t, r.Register("xsr_taken", func(any) {}))

	ids := []string{"xsr_taken", "xsr_taken", "xsr_fresh"}
	i := 0
	gen := func() string {
		id := ids[i]
		i++
		return id
	}

	id, err := r.Allocate(gen, func(any) {})
	require.NoError(t, err)
	assert.Equal(t, "xsr_fresh", id)
	assert.True(t, r.IsLive("xsr_fresh"))
	assert.Equal(t, int32(2), obs.collisions.Load())
}

func TestAllocateExhausted(t *testing.T) {
	r := New(WithMaxAttempts(3))
	require.NoError(t, r.Register("xsr_same", func(any) {}))

	calls := 0
	_, err := r.Allocate(func() string { calls++; return "xsr_same" }, func(any) {})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, r.Len())
}

func TestAllocateConcurrentUnique(t *testing.T) {
	r := New()
	// A tiny id space forces collisions between goroutines.
	var n atomic.Int32
	gen := func() string { return fmt.Sprintf("xsr_%d", n.Add(1)%64) }

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.Allocate(gen, func(any) {})
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}()
	}
	wg.Wait()
	assert.Equal(t, len(seen), r.Len())
}

func TestNeutralizeAbsorbsLateDelivery(t *testing.T) {
	obs := &countingObserver{}
	r := New(WithObserver(obs))
	called := false
	require.NoError(t, r.Register("xsr_a", func(any) { called = true }))

	assert.True(t, r.Neutralize("xsr_a"))
	assert.True(t, r.Contains("xsr_a"))
	assert.False(t, r.IsLive("xsr_a"))

	assert.True(t, r.Invoke("xsr_a", "late"))
	assert.False(t, called, "live handler must not run after neutralize")
	assert.False(t, r.Contains("xsr_a"), "absorber removes its own entry")
	assert.Equal(t, int32(1), obs.stale.Load())

	assert.False(t, r.Invoke("xsr_a", "later"))
}

func TestNeutralizeTwice(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("xsr_a", func(any) {}))

	assert.True(t, r.Neutralize("xsr_a"))
	assert.False(t, r.Neutralize("xsr_a"))
	assert.False(t, r.Neutralize("xsr_missing"))
}

func TestAbsorberRemovesOnlyItself(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("xsr_a", func(any) {}))
	require.True(t, r.Neutralize("xsr_a"))

	// The absorber is reaped and the id is reused by a new live entry.
	r.Remove("xsr_a")
	var got any
	require.NoError(t, r.Register("xsr_a", func(p any) { got = p }))

	assert.True(t, r.Invoke("xsr_a", "fresh"))
	assert.Equal(t, "fresh", got)
	assert.True(t, r.IsLive("xsr_a"))
}

func TestAbsorberReapedAfterTTL(t *testing.T) {
	mock := clock.NewMock()
	r := New(WithClock(mock), WithAbsorbTTL(time.Minute))
	require.NoError(t, r.Register("xsr_a", func(any) {}))
	require.True(t, r.Neutralize("xsr_a"))

	mock.Add(30 * time.Second)
	assert.True(t, r.Contains("xsr_a"))

	mock.Add(31 * time.Second)
	assert.Eventually(t, func() bool { return !r.Contains("xsr_a") }, time.Second, time.Millisecond)
}

func TestReapDoesNotRemoveReplacement(t *testing.T) {
	mock := clock.NewMock()
	r := New(WithClock(mock), WithAbsorbTTL(time.Minute))
	require.NoError(t, r.Register("xsr_a", func(any) {}))
	require.True(t, r.Neutralize("xsr_a"))

	// Late delivery absorbs, then the id is registered again.
	r.Invoke("xsr_a", nil)
	require.NoError(t, r.Register("xsr_a", func(any) {}))

	mock.Add(2 * time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.True(t, r.IsLive("xsr_a"))
}

func TestAbsorbTTLDisabled(t *testing.T) {
	mock := clock.NewMock()
	r := New(WithClock(mock), WithAbsorbTTL(0))
	require.NoError(t, r.Register("xsr_a", func(any) {}))
	require.True(t, r.Neutralize("xsr_a"))

	mock.Add(24 * time.Hour)
	time.Sleep(10 * time.Millisecond)
	assert.True(t, r.Contains("xsr_a"))
}

func TestHandlerMayReenterRegistry(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("xsr_a", func(any) { r.Remove("xsr_a") }))

	done := make(chan struct{})
	go func() {
		r.Invoke("xsr_a", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler deadlocked on registry lock")
	}
	assert.Equal(t, 0, r.Len())
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestRemoveAbsorber(t *testing.T) {
	mock := clock.NewMock()
	r := New(WithClock(mock), WithAbsorbTTL(0))
	require.NoError(t, r.Register("xsr_a", func(any) {}))

	assert.False(t, r.RemoveAbsorber("xsr_a"), "live entry must stay")
	assert.True(t, r.IsLive("xsr_a"))

	require.True(t, r.Neutralize("xsr_a"))
	assert.True(t, r.RemoveAbsorber("xsr_a"))
	assert.False(t, r.Contains("xsr_a"))
	assert.False(t, r.RemoveAbsorber("xsr_a"))
}
