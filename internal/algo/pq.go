package algo

import "container/heap"

type pqItem struct {
	node string
	dist float64
}

type pq []pqItem

func (p pq) Len() int           { return len(p) }
func (p pq) Less(i, j int) bool { return p[i].dist < p[j].dist }
func (p pq) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

func (p *pq) Push(x any) {
	*p = append(*p, x.(pqItem))
}

func (p *pq) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	*p = old[:n-1]
	return item
}

// PriorityQueue is a min-priority queue of (id, priority) pairs.
// Duplicate ids are kept as separate entries; callers discard stale
// ones when they come out.
type PriorityQueue struct {
	items pq
}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{}
}

func (q *PriorityQueue) Enqueue(id string, priority float64) {
	heap.Push(&q.items, pqItem{node: id, dist: priority})
}

// Dequeue removes the entry with the smallest priority. ok is false when
// the queue is empty.
func (q *PriorityQueue) Dequeue() (id string, priority float64, ok bool) {
	if q.items.Len() == 0 {
		return "", 0, false
	}
	it := heap.Pop(&q.items).(pqItem)
	return it.node, it.dist, true
}

func (q *PriorityQueue) IsEmpty() bool { return q.items.Len() == 0 }

func (q *PriorityQueue) Len() int { return q.items.Len() }
