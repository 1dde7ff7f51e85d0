// ABOUTME: Lock-free single-producer/single-consumer ring buffer of i16 samples
// ABOUTME: Grounded on the original ringbuf::HeapRb usage: wait-free push/pop, busy-poll on vacancy
package speaker

import "sync/atomic"

// RingBuffer is a bounded SPSC queue. Exactly one goroutine may call the
// producer methods (Push, Vacant) and exactly one goroutine may call the
// consumer method (Pop); that discipline is what makes both sides
// wait-free without a mutex. The real-time audio callback is the consumer:
// it must never block, allocate, or take a lock, which this type guarantees
// by construction.
type RingBuffer struct {
	buf  []int16
	mask uint64

	// writeIdx is only written by the producer, read by both.
	writeIdx atomic.Uint64
	// readIdx is only written by the consumer, read by both.
	readIdx atomic.Uint64
}

// NewRingBuffer creates a ring buffer with capacity rounded up to the next
// power of two, at least capacity samples.
func NewRingBuffer(capacity int) *RingBuffer {
	size := nextPowerOfTwo(capacity)
	return &RingBuffer{
		buf:  make([]int16, size),
		mask: uint64(size - 1),
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Len returns the number of samples currently queued.
func (r *RingBuffer) Len() int {
	return int(r.writeIdx.Load() - r.readIdx.Load())
}

// Vacant returns the number of samples that can currently be pushed without
// overwriting unread data.
func (r *RingBuffer) Vacant() int {
	return len(r.buf) - r.Len()
}

// Push writes samples into the buffer. The caller (spec §4.8's push path)
// is expected to have already confirmed Vacant() >= len(samples); Push
// itself never blocks and writes as many samples as fit, returning the
// count actually written.
func (r *RingBuffer) Push(samples []int16) int {
	vacant := r.Vacant()
	n := len(samples)
	if n > vacant {
		n = vacant
	}
	write := r.writeIdx.Load()
	for i := 0; i < n; i++ {
		r.buf[(write+uint64(i))&r.mask] = samples[i]
	}
	r.writeIdx.Store(write + uint64(n))
	return n
}

// Pop removes and returns up to len(dst) samples into dst, returning the
// number actually popped. Called only from the real-time callback: no
// allocation, no lock.
func (r *RingBuffer) Pop(dst []int16) int {
	avail := r.Len()
	n := len(dst)
	if n > avail {
		n = avail
	}
	read := r.readIdx.Load()
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(read+uint64(i))&r.mask]
	}
	r.readIdx.Store(read + uint64(n))
	return n
}
