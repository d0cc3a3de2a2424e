// Package ringbuf provides a fixed-capacity circular buffer for
// model.PriceSample, adapted from the teacher's internal/ringbuf package
// (originally a lock-free SPSC queue used by the marketdata gateway). The
// token engine's price buffer (spec §3: "Circular price buffer, capacity
// 30, timestamped") needs a sliding window with random access to the last
// N samples rather than a drain-once queue, so Push here overwrites the
// oldest sample once the buffer is full instead of rejecting the write;
// every access happens under the owning Token's own mutex, so the
// lock-free/atomic machinery of the teacher's original does not carry
// over (see DESIGN.md).
package ringbuf

import "sniper-engine/internal/model"

// Ring is a fixed-capacity circular buffer of PriceSample values. Not safe
// for concurrent use — callers serialize access externally (spec §5: "no
// suspension may occur while a token's mutable state is being modified").
type Ring struct {
	buf      []model.PriceSample
	start    int
	size     int
	overflow uint64
}

// New creates a ring buffer of the given capacity. Minimum capacity is 1.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]model.PriceSample, capacity)}
}

// Push appends a sample, overwriting the oldest one once the buffer is at
// capacity.
func (r *Ring) Push(s model.PriceSample) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = s
		r.size++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
	r.overflow++
}

// Len returns the current number of retained samples.
func (r *Ring) Len() int { return r.size }

// Cap returns the buffer capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Overflow returns the total number of samples evicted by overwrite.
func (r *Ring) Overflow() uint64 { return r.overflow }

// Snapshot returns the retained samples, oldest first.
func (r *Ring) Snapshot() []model.PriceSample {
	out := make([]model.PriceSample, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
