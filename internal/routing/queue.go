package routing

import "container/heap"

// priorityQueue is a min-heap over pqItem.f, grounded on the
// container/heap idiom used by the pack's out-of-pack A* reference
// (impactsolutionsas-passbi_core's single-directional search), here
// instantiated twice — once per search direction.
type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// peekF returns the smallest f in the queue, or +Inf if empty.
func peekF(pq priorityQueue) float64 {
	if len(pq) == 0 {
		return posInf
	}
	return pq[0].f
}

func pushItem(pq *priorityQueue, seq *int, f float64, h Handle) {
	*seq++
	heap.Push(pq, &pqItem{f: f, station: h, seq: *seq})
}

func popItem(pq *priorityQueue) *pqItem {
	return heap.Pop(pq).(*pqItem)
}
