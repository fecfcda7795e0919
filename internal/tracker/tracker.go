// Package tracker owns the replay cursors of every vehicle class and the
// per-vehicle speed multipliers.
package tracker

import (
	"sort"
	"sync"
	"time"
)

const (
	MinSpeedMultiplier     = 0.1
	MaxSpeedMultiplier     = 10.0
	DefaultSpeedMultiplier = 1.0
)

// Layout describes the shape of the trips a cursor walks over.
type Layout interface {
	TripCount(class string) int
	PathLen(class string, trip int) int
}

// Cursor is the replay position of one vehicle class.
type Cursor struct {
	TripIndex     int       `json:"tripIndex"`
	WaypointIndex int       `json:"waypointIndex"`
	LastTickAt    time.Time `json:"lastTickAt"`
}

// Tracker is safe for concurrent use. All cursor reads return copies.
type Tracker struct {
	mu      sync.RWMutex
	layout  Layout
	now     func() time.Time
	cursors map[string]*Cursor
	speeds  map[string]float64
}

// New creates a tracker over layout. now defaults to time.Now.
func New(layout Layout, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		layout:  layout,
		now:     now,
		cursors: make(map[string]*Cursor),
		speeds:  make(map[string]float64),
	}
}

// EnsureClass creates a zeroed cursor for class if none exists and returns the current cursor.
// An existing cursor is never reset.
func (t *Tracker) EnsureClass(class string) Cursor {
	t.mu.RLock()
	c, ok := t.cursors[class]
	if ok {
		out := *c
		t.mu.RUnlock()
		return out
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.cursors[class]; ok {
		return *c
	}
	c = &Cursor{LastTickAt: t.now()}
	t.cursors[class] = c
	return *c
}

// Cursor returns a copy of the class cursor.
func (t *Tracker) Cursor(class string) (Cursor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.cursors[class]
	if !ok {
		return Cursor{}, false
	}
	return *c, true
}

// Classes returns the classes that have a cursor, sorted.
func (t *Tracker) Classes() []string {
	t.mu.RLock()
	out := make([]string, 0, len(t.cursors))
	for k := range t.cursors {
		out = append(out, k)
	}
	t.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Advance moves the class cursor to waypoint next. Reaching the end of the
// current trip rolls over to the first waypoint of the next trip, cycling
// through the trip list. Unknown classes are ignored.
func (t *Tracker) Advance(class string, next int, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.cursors[class]
	if !ok {
		return
	}
	t.advanceLocked(class, c, next, now)
}

// Step atomically advances the class cursor by one waypoint and returns the
// cursor as it was before the move.
func (t *Tracker) Step(class string, now time.Time) (Cursor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.cursors[class]
	if !ok {
		return Cursor{}, false
	}
	before := *c
	t.advanceLocked(class, c, c.WaypointIndex+1, now)
	return before, true
}

func (t *Tracker) advanceLocked(class string, c *Cursor, next int, now time.Time) {
	c.LastTickAt = now
	trips := t.layout.TripCount(class)
	if trips <= 0 {
		c.TripIndex = 0
		c.WaypointIndex = 0
		return
	}
	if c.TripIndex < 0 || c.TripIndex >= trips {
		c.TripIndex = 0
	}
	if next < 0 {
		next = 0
	}
	if next >= t.layout.PathLen(class, c.TripIndex) {
		c.TripIndex = (c.TripIndex + 1) % trips
		c.WaypointIndex = 0
		return
	}
	c.WaypointIndex = next
}

// SetSpeedMultiplier stores a clamped multiplier for a vehicle and returns the stored value.
func (t *Tracker) SetSpeedMultiplier(vin string, value float64) float64 {
	v := ClampSpeedMultiplier(value)
	t.mu.Lock()
	t.speeds[vin] = v
	t.mu.Unlock()
	return v
}

// SpeedMultiplier returns the vehicle's multiplier, DefaultSpeedMultiplier when unset.
func (t *Tracker) SpeedMultiplier(vin string) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.speeds[vin]; ok {
		return v
	}
	return DefaultSpeedMultiplier
}

// Reset rewinds every cursor to the first waypoint of the first trip and clears multipliers.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for _, c := range t.cursors {
		c.TripIndex = 0
		c.WaypointIndex = 0
		c.LastTickAt = now
	}
	t.speeds = make(map[string]float64)
}

// ClampSpeedMultiplier limits v to [MinSpeedMultiplier, MaxSpeedMultiplier]. NaN maps to the default.
func ClampSpeedMultiplier(v float64) float64 {
	if v != v {
		return DefaultSpeedMultiplier
	}
	if v < MinSpeedMultiplier {
		return MinSpeedMultiplier
	}
	if v > MaxSpeedMultiplier {
		return MaxSpeedMultiplier
	}
	return v
}
