package timer

import (
	"container/heap"
	"time"
)

type entry struct {
	due   time.Time
	seq   uint64
	queue Queue
	cb    Callback
}

// entryHeap orders entries by due time, then by submission order.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(*entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// pending is the shared backing store for both queues. Callers serialize access.
type pending struct {
	items  entryHeap
	next   uint64
	counts [2]int
}

func (p *pending) push(due time.Time, q Queue, cb Callback) {
	p.next++
	heap.Push(&p.items, &entry{due: due, seq: p.next, queue: q, cb: cb})
	p.counts[q]++
}

func (p *pending) peek() *entry {
	if len(p.items) == 0 {
		return nil
	}
	return p.items[0]
}

func (p *pending) pop() *entry {
	if len(p.items) == 0 {
		return nil
	}
	e := heap.Pop(&p.items).(*entry)
	p.counts[e.queue]--
	return e
}

func (p *pending) count(q Queue) int {
	return p.counts[q]
}
