package telemetry

import "pillarpuller/protocol"

// sampleRing is a fixed-capacity circular buffer of samples. Unlike a
// byte FIFO it never refuses a write: once full, each write replaces the
// oldest entry. Not safe for concurrent use; Buffer guards it.
type sampleRing struct {
	buf   []protocol.Sample
	read  int // index of the oldest sample
	count int
	size  int
}

// newSampleRing creates a new sampleRing with the specified capacity
func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{
		buf:  make([]protocol.Sample, capacity),
		size: capacity,
	}
}

// Write appends a sample, evicting the oldest one when full
func (r *sampleRing) Write(s protocol.Sample) {
	if r.count == r.size {
		r.buf[r.read] = s
		r.read = (r.read + 1) % r.size
		return
	}
	r.buf[(r.read+r.count)%r.size] = s
	r.count++
}

// Available returns the number of samples held
func (r *sampleRing) Available() int {
	return r.count
}

// Data copies the held samples, oldest first, into a new slice
func (r *sampleRing) Data() []protocol.Sample {
	result := make([]protocol.Sample, r.count)
	if r.count == 0 {
		return result
	}

	// Copy first segment (read to end of buffer), then the wrapped part
	end := r.read + r.count
	if end <= r.size {
		copy(result, r.buf[r.read:end])
		return result
	}
	firstLen := copy(result, r.buf[r.read:])
	copy(result[firstLen:], r.buf[:end-r.size])

	return result
}

// Reset clears the ring
func (r *sampleRing) Reset() {
	clear(r.buf)
	r.read = 0
	r.count = 0
}
