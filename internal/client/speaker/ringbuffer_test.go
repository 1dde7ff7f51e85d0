// ABOUTME: Tests for the SPSC ring buffer
// ABOUTME: Covers vacancy accounting, wraparound, partial pop/push, and concurrent producer/consumer use
package speaker

import (
	"sync"
	"testing"
)

func TestRingBufferBasicPushPop(t *testing.T) {
	rb := NewRingBuffer(8)
	if got, want := rb.Vacant(), 8; got != want {
		t.Fatalf("Vacant() = %d, want %d", got, want)
	}

	n := rb.Push([]int16{1, 2, 3})
	if n != 3 {
		t.Fatalf("Push returned %d, want 3", n)
	}
	if got, want := rb.Len(), 3; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}

	dst := make([]int16, 2)
	n = rb.Pop(dst)
	if n != 2 || dst[0] != 1 || dst[1] != 2 {
		t.Fatalf("Pop = %d %v, want 2 [1 2]", n, dst)
	}
	if got, want := rb.Len(), 1; got != want {
		t.Fatalf("Len() after partial pop = %d, want %d", got, want)
	}
}

func TestRingBufferPushTruncatesAtCapacity(t *testing.T) {
	rb := NewRingBuffer(4)
	samples := []int16{1, 2, 3, 4, 5, 6}
	n := rb.Push(samples)
	if n != 4 {
		t.Fatalf("Push returned %d, want 4 (capacity-limited)", n)
	}
	if rb.Vacant() != 0 {
		t.Fatalf("Vacant() = %d, want 0", rb.Vacant())
	}
}

func TestRingBufferWraparound(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Push([]int16{1, 2, 3})
	out := make([]int16, 2)
	rb.Pop(out) // consume 1,2 -> read index advances past the buffer's start

	n := rb.Push([]int16{4, 5, 6})
	if n != 3 {
		t.Fatalf("Push after partial drain = %d, want 3", n)
	}

	dst := make([]int16, 4)
	got := rb.Pop(dst)
	if got != 4 {
		t.Fatalf("Pop = %d, want 4", got)
	}
	want := []int16{3, 4, 5, 6}
	for i, w := range want {
		if dst[i] != w {
			t.Fatalf("dst[%d] = %d, want %d (dst=%v)", i, dst[i], w, dst)
		}
	}
}

func TestRingBufferPopOnEmptyReturnsZero(t *testing.T) {
	rb := NewRingBuffer(4)
	dst := make([]int16, 4)
	if n := rb.Pop(dst); n != 0 {
		t.Fatalf("Pop on empty buffer = %d, want 0", n)
	}
}

func TestRingBufferConcurrentProducerConsumer(t *testing.T) {
	rb := NewRingBuffer(64)
	const total = 100000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		next := 0
		for next < total {
			chunk := []int16{int16(next)}
			for rb.Push(chunk) == 0 {
				// busy-poll on vacancy, per spec's push-side contract
			}
			next++
		}
	}()

	got := make([]int16, 0, total)
	go func() {
		defer wg.Done()
		buf := make([]int16, 1)
		for len(got) < total {
			if rb.Pop(buf) == 1 {
				got = append(got, buf[0])
			}
		}
	}()

	wg.Wait()

	for i := 0; i < total; i++ {
		if got[i] != int16(i) {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], int16(i))
		}
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8}, {1000, 1024},
	}
	for _, c := range cases {
		if got := nextPowerOfTwo(c.in); got != c.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
