package scheduler

import "container/heap"

// scheduleHeap implements container/heap.Interface for pending runs,
// sorted by triggerAt (earliest first).
type scheduleHeap []pending

func (h scheduleHeap) Len() int           { return len(h) }
func (h scheduleHeap) Less(i, j int) bool { return h[i].triggerAt.Before(h[j].triggerAt) }
func (h scheduleHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *scheduleHeap) Push(x any) {
	*h = append(*h, x.(pending))
}

func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

func heapPush(h *scheduleHeap, p pending) {
	heap.Push(h, p)
}

// heapPop panics if the heap is empty.
func heapPop(h *scheduleHeap) pending {
	return heap.Pop(h).(pending)
}

// heapRemoveByName removes every pending run of the named job and reports
// whether any was found.
func heapRemoveByName(h *scheduleHeap, name string) bool {
	found := false
	for i := 0; i < h.Len(); {
		if (*h)[i].job.Name == name {
			heap.Remove(h, i)
			found = true
			continue
		}
		i++
	}
	return found
}
