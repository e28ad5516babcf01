package kfmt

import "io"

// ringBufferSize defines the size of the ring buffer that holds Printf output
// while no sink is attached. It must be a power of 2.
const ringBufferSize = 2048

// ringBuffer keeps the most recent ringBufferSize bytes written to it. Once
// full, every write overwrites the oldest unread byte.
type ringBuffer struct {
	buffer [ringBufferSize]byte

	// head is the index of the oldest unread byte and count the number of
	// unread bytes.
	head, count int
}

// Write writes len(p) bytes from p to the ringBuffer.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[(rb.head+rb.count)&(ringBufferSize-1)] = b
		if rb.count == ringBufferSize {
			rb.head = (rb.head + 1) & (ringBufferSize - 1)
			continue
		}
		rb.count++
	}

	return len(p), nil
}

// Read reads up to len(p) unread bytes into p. It returns io.EOF once the
// buffer has been drained.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.count == 0 {
		return 0, io.EOF
	}

	n := 0
	for ; n < len(p) && rb.count > 0; n++ {
		p[n] = rb.buffer[rb.head]
		rb.head = (rb.head + 1) & (ringBufferSize - 1)
		rb.count--
	}

	return n, nil
}

// Len returns the number of unread bytes.
func (rb *ringBuffer) Len() int {
	return rb.count
}
