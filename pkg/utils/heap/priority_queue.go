package heap

import "container/heap"

// PriorityQueue is a generic min-queue ordered by lessFunc. Entries that
// compare equal are dequeued in insertion order: every Enqueue stamps the
// item with a monotonically increasing sequence number which breaks ties.
// Dequeue order is therefore fully deterministic for a given enqueue order.
type PriorityQueue[T any] struct {
	items    []*item[T]
	lessFunc func(a, b T) bool
	seq      uint64
}

type item[T any] struct {
	value T
	seq   uint64
	index int
}

func NewPriorityQueue[T any](lessFunc func(a, b T) bool) *PriorityQueue[T] {
	pq := &PriorityQueue[T]{
		items:    make([]*item[T], 0),
		lessFunc: lessFunc,
	}
	heap.Init(pq)

	return pq
}

func (pq *PriorityQueue[T]) Len() int { return len(pq.items) }

func (pq *PriorityQueue[T]) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if pq.lessFunc(a.value, b.value) {
		return true
	}
	if pq.lessFunc(b.value, a.value) {
		return false
	}

	return a.seq < b.seq
}

func (pq *PriorityQueue[T]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
	pq.items[i].index = i
	pq.items[j].index = j
}

func (pq *PriorityQueue[T]) Push(x any) {
	it := x.(*item[T])
	it.index = len(pq.items)
	pq.items = append(pq.items, it)
}

func (pq *PriorityQueue[T]) Pop() any {
	old := pq.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	pq.items = old[0 : n-1]
	return it
}

// Enqueue inserts value, stamping it with the next sequence number.
func (pq *PriorityQueue[T]) Enqueue(value T) {
	pq.seq++
	heap.Push(pq, &item[T]{value: value, seq: pq.seq})
}

// Dequeue removes and returns the minimum value. Among equal values, the
// one enqueued first wins.
func (pq *PriorityQueue[T]) Dequeue() (T, bool) {
	if pq.Len() == 0 {
		var zero T
		return zero, false
	}

	it := heap.Pop(pq).(*item[T])
	return it.value, true
}

func (pq *PriorityQueue[T]) Peek() (T, bool) {
	if pq.Len() == 0 {
		var zero T
		return zero, false
	}

	return pq.items[0].value, true
}
