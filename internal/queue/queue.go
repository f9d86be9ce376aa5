// Package queue provides the unbounded FIFO the alert dispatcher hands jobs to
// its worker through.
package queue

// Queue is a FIFO of T values.
type Queue[T any] interface {
	// Enqueue adds an item to the tail of the queue.
	Enqueue(T)
	// Dequeue removes and returns the item at the head of the queue, ok is false when empty.
	Dequeue() (item T, ok bool)
	// Peek returns the item at the head of the queue without removing it.
	Peek() (item T, ok bool)
	// IsEmpty reports whether the queue holds no items.
	IsEmpty() bool
	// Len returns the number of items in the queue.
	Len() int
}
