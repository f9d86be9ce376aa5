package queue

import "sync/atomic"

type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// LockFree is a Michael-Scott lock-free queue. It is safe for any number of
// concurrent producers and consumers.
type LockFree[T any] struct {
	head   atomic.Pointer[node[T]]
	tail   atomic.Pointer[node[T]]
	length atomic.Int64
}

var _ Queue[int] = (*LockFree[int])(nil)

// NewLockFree creates an empty queue.
func NewLockFree[T any]() *LockFree[T] {
	q := &LockFree[T]{}
	sentinel := &node[T]{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	return q
}

// Enqueue adds item to the tail of the queue.
func (q *LockFree[T]) Enqueue(item T) {
	n := &node[T]{value: item}

	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if tail != q.tail.Load() {
			continue
		}

		if next != nil {
			// tail is lagging, help it forward
			q.tail.CompareAndSwap(tail, next)
			continue
		}

		if tail.next.CompareAndSwap(nil, n) {
			q.tail.CompareAndSwap(tail, n)
			q.length.Add(1)

			return
		}
	}
}

// Dequeue removes and returns the head item.
func (q *LockFree[T]) Dequeue() (T, bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}

		if head == tail {
			if next == nil {
				var zero T
				return zero, false
			}
			q.tail.CompareAndSwap(tail, next)

			continue
		}

		// read the value before the CAS, the node may be dequeued by another consumer afterwards
		value := next.value
		if q.head.CompareAndSwap(head, next) {
			q.length.Add(-1)
			return value, true
		}
	}
}

// Peek returns the head item without removing it.
func (q *LockFree[T]) Peek() (T, bool) {
	for {
		head := q.head.Load()
		tail := q.tail.Load()
		next := head.next.Load()
		if head != q.head.Load() {
			continue
		}

		if head != tail {
			return next.value, true
		}
		if next == nil {
			var zero T
			return zero, false
		}
		q.tail.CompareAndSwap(tail, next)
	}
}

// IsEmpty reports whether the queue holds no items.
func (q *LockFree[T]) IsEmpty() bool {
	return q.length.Load() == 0
}

// Len returns the number of items in the queue.
func (q *LockFree[T]) Len() int {
	return int(q.length.Load())
}
