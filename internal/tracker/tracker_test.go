package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLayout maps a class to the path length of each of its trips.
type fakeLayout map[string][]int

func (l fakeLayout) TripCount(class string) int { return len(l[class]) }

func (l fakeLayout) PathLen(class string, trip int) int {
	paths := l[class]
	if trip < 0 || trip >= len(paths) {
		return 0
	}
	return paths[trip]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func TestEnsureClass_InitializesOnce(t *testing.T) {
	clk := newClock()
	tr := New(fakeLayout{"suv": {4}}, clk.Now)

	c := tr.EnsureClass("suv")
	assert.Equal(t, Cursor{LastTickAt: clk.Now()}, c)

	tr.Advance("suv", 2, clk.Now())
	clk.Add(time.Minute)
	again := tr.EnsureClass("suv")
	assert.Equal(t, 2, again.WaypointIndex, "existing cursor must not be reset")
	assert.Equal(t, clk.Now().Add(-time.Minute), again.LastTickAt)
}

func TestEnsureClass_ConcurrentFirstUse(t *testing.T) {
	clk := newClock()
	tr := New(fakeLayout{"suv": {10}}, clk.Now)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tr.EnsureClass("suv")
			if i%8 == 0 {
				tr.Step("suv", clk.Now())
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, []string{"suv"}, tr.Classes())
	c, ok := tr.Cursor("suv")
	require.True(t, ok)
	assert.Equal(t, 8, c.WaypointIndex, "every step must survive concurrent EnsureClass calls")
}

func TestCursor_ReturnsCopy(t *testing.T) {
	tr := New(fakeLayout{"suv": {4}}, nil)
	tr.EnsureClass("suv")
	c, _ := tr.Cursor("suv")
	c.WaypointIndex = 3
	again, _ := tr.Cursor("suv")
	assert.Equal(t, 0, again.WaypointIndex)

	_, ok := tr.Cursor("unknown")
	assert.False(t, ok)
}

func TestAdvance_UnknownClassIsNoop(t *testing.T) {
	tr := New(fakeLayout{}, nil)
	tr.Advance("ghost", 1, time.Now())
	_, ok := tr.Cursor("ghost")
	assert.False(t, ok)
	assert.Empty(t, tr.Classes())
}

func TestStep_WrapsOncePerTrip(t *testing.T) {
	clk := newClock()
	tr := New(fakeLayout{"suv": {4, 2}}, clk.Now)
	tr.EnsureClass("suv")

	var wraps int
	for i := 0; i < 4; i++ {
		before, ok := tr.Step("suv", clk.Now())
		require.True(t, ok)
		assert.Equal(t, 0, before.TripIndex)
		assert.Equal(t, i, before.WaypointIndex)
		after, _ := tr.Cursor("suv")
		if after.TripIndex != before.TripIndex {
			wraps++
		}
	}
	assert.Equal(t, 1, wraps)
	c, _ := tr.Cursor("suv")
	assert.Equal(t, Cursor{TripIndex: 1, WaypointIndex: 0, LastTickAt: clk.Now()}, c)
}

func TestStep_TripIndexCycles(t *testing.T) {
	tr := New(fakeLayout{"suv": {1, 1, 1}}, nil)
	tr.EnsureClass("suv")
	seen := []int{}
	for i := 0; i < 5; i++ {
		before, _ := tr.Step("suv", time.Now())
		seen = append(seen, before.TripIndex)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1}, seen)
}

func TestStep_EmptyPathSkipsToNextTrip(t *testing.T) {
	tr := New(fakeLayout{"suv": {0, 3}}, nil)
	tr.EnsureClass("suv")
	before, _ := tr.Step("suv", time.Now())
	assert.Equal(t, 0, before.TripIndex)
	c, _ := tr.Cursor("suv")
	assert.Equal(t, 1, c.TripIndex)
	assert.Equal(t, 0, c.WaypointIndex)
}

func TestStep_NoTripsStaysAtZero(t *testing.T) {
	clk := newClock()
	tr := New(fakeLayout{}, clk.Now)
	tr.EnsureClass("idle")
	clk.Add(5 * time.Second)
	tr.Step("idle", clk.Now())
	c, _ := tr.Cursor("idle")
	assert.Equal(t, Cursor{LastTickAt: clk.Now()}, c)
}

func TestAdvance_NeverLeavesWaypointAtPathLength(t *testing.T) {
	tr := New(fakeLayout{"suv": {4, 4}}, nil)
	tr.EnsureClass("suv")
	tr.Advance("suv", 4, time.Now())
	c, _ := tr.Cursor("suv")
	assert.Equal(t, 1, c.TripIndex)
	assert.Equal(t, 0, c.WaypointIndex)

	tr.Advance("suv", -3, time.Now())
	c, _ = tr.Cursor("suv")
	assert.Equal(t, 0, c.WaypointIndex)
}

func TestSetSpeedMultiplier_Clamps(t *testing.T) {
	tr := New(fakeLayout{}, nil)
	tests := []struct {
		in   float64
		want float64
	}{
		{50, 10.0},
		{-5, 0.1},
		{0, 0.1},
		{2.5, 2.5},
		{10, 10},
		{0.1, 0.1},
	}
	for _, tt := range tests {
		got := tr.SetSpeedMultiplier("VIN001", tt.in)
		assert.Equal(t, tt.want, got, "input %v", tt.in)
		assert.Equal(t, tt.want, tr.SpeedMultiplier("VIN001"))
	}
	assert.Equal(t, DefaultSpeedMultiplier, tr.SpeedMultiplier("never-set"))
}

func TestReset(t *testing.T) {
	clk := newClock()
	tr := New(fakeLayout{"suv": {4, 4}, "urban": {2}}, clk.Now)
	tr.EnsureClass("suv")
	tr.EnsureClass("urban")
	for i := 0; i < 6; i++ {
		tr.Step("suv", clk.Now())
	}
	tr.Step("urban", clk.Now())
	tr.SetSpeedMultiplier("VIN001", 3)

	clk.Add(time.Hour)
	tr.Reset()

	for _, class := range []string{"suv", "urban"} {
		c, _ := tr.Cursor(class)
		assert.Equal(t, Cursor{LastTickAt: clk.Now()}, c, class)
	}
	assert.Equal(t, DefaultSpeedMultiplier, tr.SpeedMultiplier("VIN001"))

	before, _ := tr.Step("suv", clk.Now())
	assert.Equal(t, 0, before.TripIndex)
	assert.Equal(t, 0, before.WaypointIndex)
}

func TestConcurrentReadersSeeConsistentCursor(t *testing.T) {
	tr := New(fakeLayout{"suv": {3, 5, 7}}, nil)
	tr.EnsureClass("suv")
	paths := []int{3, 5, 7}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				c, _ := tr.Cursor("suv")
				if c.WaypointIndex >= paths[c.TripIndex] {
					t.Errorf("torn cursor %+v", c)
					return
				}
			}
		}()
	}
	for i := 0; i < 2000; i++ {
		tr.Step("suv", time.Now())
	}
	close(done)
	wg.Wait()
}
