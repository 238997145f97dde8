package conflict

// conflictHeap is a container/heap.Interface over MaxUpdateLength, ordered
// by less (§4.3). Grounded in the same heap.Interface pattern the teacher
// uses for its own priority queue (dijkstra.nodePQ).
type conflictHeap []MaxUpdateLength

func (h conflictHeap) Len() int { return len(h) }

func (h conflictHeap) Less(i, j int) bool { return less(h[i], h[j]) }

func (h conflictHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *conflictHeap) Push(x any) {
	*h = append(*h, x.(MaxUpdateLength))
}

func (h *conflictHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}
