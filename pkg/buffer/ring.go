// Package buffer provides a generic bounded ring buffer.
package buffer

import (
	"slices"
	"sync"
)

// Ring is a thread-safe ring buffer that keeps the most recent elements.
// When the buffer is full, adding a new element drops the oldest one.
// It is used to hold sliding windows of recent data, such as log lines
// or live caption history.
type Ring[T any] struct {
	mu         sync.Mutex
	buf        []T
	head, tail int64
}

// NewRing creates a ring buffer holding at most size elements.
func NewRing[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{buf: make([]T, size)}
}

// Add appends an element, evicting the oldest if the buffer is full.
func (r *Ring[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.tail%int64(len(r.buf))] = v
	r.tail++
	if r.tail-r.head > int64(len(r.buf)) {
		r.head++
	}
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tail - r.head)
}

// Items returns the buffered elements in insertion order, oldest first.
// The returned slice is a copy.
func (r *Ring[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.head == r.tail {
		return nil
	}
	h := r.head % int64(len(r.buf))
	t := r.tail % int64(len(r.buf))
	if h < t {
		return slices.Clone(r.buf[h:t])
	}
	return slices.Concat(r.buf[h:], r.buf[:t])
}

// Reset discards all buffered elements.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.tail = 0
}
