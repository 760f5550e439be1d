// Package window tracks the minimum of a fixed-size sliding window of hash
// values.
//
// The window is a ring buffer of exactly Capacity values once full. The
// logical index of the tracked minimum is kept alongside it; when the minimum
// leaves the window the remaining values are rescanned, O(n) in the worst
// case.
//
// TODO: a monotonic deque of (index, value) pairs makes every push amortized
// O(1); worth switching if profiles show rescans for large windows.
package window

// Policy decides which of several equal minimal values is tracked.
type Policy uint8

const (
	// Sticky keeps the tracked minimum as long as it stays in the window: an
	// entering value must be strictly smaller to replace it. When the minimum
	// departs, the rescan picks the newest minimal value, the one that will
	// stay in the window the longest. Used for minimisers.
	Sticky Policy = iota

	// Leftmost always tracks the oldest minimal value.
	Leftmost

	// Rightmost always tracks the newest minimal value.
	Rightmost
)

// Tracker is a sliding window with a tracked minimum.
// A Tracker is not safe for concurrent use.
type Tracker struct {
	ring   []uint64
	head   int // ring index of the oldest value
	n      int // values currently held
	minPos int // logical index of the minimum, 0 = oldest
	policy Policy
}

// New returns an empty tracker holding capacity values.
// Precondition: capacity >= 1.
func New(capacity int, policy Policy) *Tracker {
	return &Tracker{
		ring:   make([]uint64, capacity),
		policy: policy,
	}
}

// Capacity returns the window size in values.
func (t *Tracker) Capacity() int {
	return len(t.ring)
}

// Full reports whether the window holds Capacity values.
func (t *Tracker) Full() bool {
	return t.n == len(t.ring)
}

// Len returns the number of values currently held.
func (t *Tracker) Len() int {
	return t.n
}

// Reset empties the window, keeping its capacity and policy.
func (t *Tracker) Reset() {
	t.head = 0
	t.n = 0
	t.minPos = 0
}

// At returns the value at logical index i (0 = oldest).
func (t *Tracker) At(i int) uint64 {
	return t.ring[t.slot(i)]
}

// Min returns the tracked minimum and its logical index (0 = oldest).
// Only meaningful once the window is Full.
func (t *Tracker) Min() (uint64, int) {
	return t.ring[t.slot(t.minPos)], t.minPos
}

// Push appends v, evicting the oldest value once the window is full.
//
// It reports whether the identity of the tracked minimum changed: true on
// the push that first fills the window, then true whenever a new element
// becomes the tracked minimum. While the window is still filling it always
// returns false.
func (t *Tracker) Push(v uint64) bool {
	capacity := len(t.ring)
	if t.n < capacity {
		t.ring[t.slot(t.n)] = v
		t.n++
		if t.n < capacity {
			return false
		}
		t.rescan()
		return true
	}

	// Steady state: overwrite the oldest slot, which becomes the newest.
	t.ring[t.head] = v
	t.head++
	if t.head == capacity {
		t.head = 0
	}

	if t.minPos == 0 {
		t.rescan()
		return true
	}

	current := t.ring[t.slot(t.minPos-1)]
	if v < current || (t.policy == Rightmost && v == current) {
		t.minPos = capacity - 1
		return true
	}
	t.minPos--
	return false
}

func (t *Tracker) rescan() {
	best := 0
	bestValue := t.ring[t.slot(0)]
	for i := 1; i < t.n; i++ {
		v := t.ring[t.slot(i)]
		if v < bestValue || (v == bestValue && t.policy != Leftmost) {
			best = i
			bestValue = v
		}
	}
	t.minPos = best
}

func (t *Tracker) slot(i int) int {
	s := t.head + i
	if s >= len(t.ring) {
		s -= len(t.ring)
	}
	return s
}
