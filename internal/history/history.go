// Package history keeps a bounded window of recent orientation estimates for
// live consumers such as charts, displays and the web stream.
package history

import (
	"sync"

	"github.com/relabs-tech/inertial_recorder/internal/orientation"
)

const (
	// DefaultCapacity is the number of points retained when none is configured.
	DefaultCapacity = 1000
	// DefaultInterval is the synthetic time step between points, in seconds.
	DefaultInterval = 1.0 / 50.0
)

// Point is one retained estimate on a uniform time axis.
type Point struct {
	Index uint64  `json:"index"` // insertion order, 0-based
	Time  float64 `json:"time"`  // Index * interval
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// History is a fixed-capacity FIFO ring. Appends evict the oldest point once
// full. All methods are safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	buf      []Point
	head     int // index of the oldest point
	size     int
	appended uint64
	interval float64
}

// New returns an empty history. Non-positive arguments select the defaults.
func New(capacity int, interval float64) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &History{
		buf:      make([]Point, capacity),
		interval: interval,
	}
}

// Append stores e and returns the stored point.
func (h *History) Append(e orientation.Estimate) Point {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := Point{
		Index: h.appended,
		Time:  float64(h.appended) * h.interval,
		Roll:  e.Roll,
		Pitch: e.Pitch,
		Yaw:   e.Yaw,
	}
	h.appended++

	n := len(h.buf)
	if h.size < n {
		h.buf[(h.head+h.size)%n] = p
		h.size++
		return p
	}
	// full: overwrite the oldest slot and advance head
	h.buf[h.head] = p
	h.head = (h.head + 1) % n
	return p
}

// Snapshot returns the retained points, oldest first.
func (h *History) Snapshot() []Point {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Point, h.size)
	n := len(h.buf)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.head+i)%n]
	}
	return out
}

// Latest returns the newest point.
func (h *History) Latest() (Point, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return Point{}, false
	}
	return h.buf[(h.head+h.size-1)%len(h.buf)], true
}

// Len returns the number of retained points.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Cap returns the configured capacity.
func (h *History) Cap() int {
	return len(h.buf)
}

// Interval returns the synthetic time step.
func (h *History) Interval() float64 {
	return h.interval
}

// Appended returns the total number of appends, including evicted points.
func (h *History) Appended() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.appended
}

// Clear drops every point and restarts the time axis.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = 0
	h.size = 0
	h.appended = 0
}
