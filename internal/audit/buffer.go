package audit

import "sync"

// ringBuffer is a bounded FIFO of pending records. Enqueue on a full
// buffer is refused so the caller can count the drop.
type ringBuffer struct {
	mu       sync.Mutex
	records  []Record
	head     int
	tail     int
	count    int
	capacity int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ringBuffer{
		records:  make([]Record, capacity),
		capacity: capacity,
	}
}

func (b *ringBuffer) tryEnqueue(r Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		return false
	}
	b.records[b.head] = r
	b.head = (b.head + 1) % b.capacity
	b.count++
	return true
}

// dequeueBatch removes up to n records in arrival order.
func (b *ringBuffer) dequeueBatch(n int) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}
	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = b.records[b.tail]
		b.records[b.tail] = Record{}
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return out
}

func (b *ringBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
