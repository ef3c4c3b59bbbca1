package common

import "fmt"

// Ring is a fixed-capacity circular buffer. Storage is allocated once;
// Push overwrites the oldest element when full, so steady-state use never
// allocates. Index 0 is the oldest element.
type Ring[T any] struct {
	buf    []T
	head   int // index of the oldest element
	length int
}

// NewRing creates a ring holding at most capacity elements
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("common: ring capacity must be positive, got %d", capacity))
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the ring is full
func (r *Ring[T]) Push(v T) {
	if r.length < len(r.buf) {
		r.buf[(r.head+r.length)%len(r.buf)] = v
		r.length++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// PushSlice pushes every element of vs in order
func (r *Ring[T]) PushSlice(vs []T) {
	for _, v := range vs {
		r.Push(v)
	}
}

// At returns the i-th element counting from the oldest
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.length {
		panic(fmt.Sprintf("common: ring index %d out of range [0,%d)", i, r.length))
	}
	return r.buf[(r.head+i)%len(r.buf)]
}

// Last returns the newest element; ok is false when the ring is empty
func (r *Ring[T]) Last() (v T, ok bool) {
	if r.length == 0 {
		return v, false
	}
	return r.At(r.length - 1), true
}

// CopyTo copies the contents oldest-first into dst and returns the number
// of elements copied (min(len(dst), Len())).
func (r *Ring[T]) CopyTo(dst []T) int {
	n := min(len(dst), r.length)
	for i := range n {
		dst[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return n
}

// CopyLatest fills dst with the newest len(dst) elements, oldest first.
// When the ring holds fewer elements the front of dst is zeroed, which makes
// a partially filled sample history look like audio preceded by silence.
func (r *Ring[T]) CopyLatest(dst []T) {
	var zero T
	n := min(len(dst), r.length)
	pad := len(dst) - n
	for i := range pad {
		dst[i] = zero
	}
	start := r.length - n
	for i := range n {
		dst[pad+i] = r.buf[(r.head+start+i)%len(r.buf)]
	}
}

// Len returns the number of stored elements
func (r *Ring[T]) Len() int { return r.length }

// Cap returns the fixed capacity
func (r *Ring[T]) Cap() int { return len(r.buf) }

// IsFull returns true if the ring is at capacity
func (r *Ring[T]) IsFull() bool { return r.length == len(r.buf) }

// IsEmpty returns true if the ring holds nothing
func (r *Ring[T]) IsEmpty() bool { return r.length == 0 }

// Clear empties the ring without releasing storage
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = 0
	r.length = 0
}
