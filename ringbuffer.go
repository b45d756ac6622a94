package monitorq

// ring is a fixed-capacity circular buffer.
// It is not safe for concurrent use: Channel guards it with its own mutex.
type ring[T any] struct {
	slots []T
	head  int // next slot to read
	tail  int // next slot to write
	count int // logical length, 0 <= count <= len(slots)
}

func newRing[T any](capacity int) ring[T] {
	return ring[T]{slots: make([]T, capacity)}
}

func (r *ring[T]) len() int { return r.count }

func (r *ring[T]) cap() int { return len(r.slots) }

func (r *ring[T]) full() bool { return r.count == len(r.slots) }

func (r *ring[T]) empty() bool { return r.count == 0 }

// push appends v at the tail.
// Returns false if the ring is full.
func (r *ring[T]) push(v T) bool {
	if r.full() {
		return false
	}
	r.slots[r.tail] = v
	r.tail++
	if r.tail == len(r.slots) {
		r.tail = 0
	}
	r.count++
	return true
}

// pop removes the element at the head.
// Returns (zero, false) if the ring is empty.
func (r *ring[T]) pop() (T, bool) {
	var zero T
	if r.empty() {
		return zero, false
	}
	v := r.slots[r.head]
	// drop the reference so the slot does not pin v
	r.slots[r.head] = zero
	r.head++
	if r.head == len(r.slots) {
		r.head = 0
	}
	r.count--
	return v, true
}
