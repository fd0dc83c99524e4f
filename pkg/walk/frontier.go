package walk

import "math"

// entry is a frontier record for one cage edge. It lives in the frontier's
// arena and is addressed by its arena index.
type entry struct {
	edge    int32
	length  float64
	minDist float64 // lower bound; never above dist0 or dist1
	dist0   float64 // tentative distance to the edge's V0
	dist1   float64 // tentative distance to the edge's V1
	src0    int32
	src1    int32
}

// bound recomputes minDist from the endpoint distances.
func (e *entry) bound() {
	e.minDist = math.Min(e.dist0, e.dist1)
}

// frontier is a binary min-heap over arena indices with a position table,
// giving O(log n) decrease-key without re-inserting.
type frontier struct {
	arena  []entry
	heap   []int32 // arena indices ordered by minDist
	pos    []int32 // arena index -> heap slot, -1 once popped
	byEdge []int32 // edge -> arena index, -1 when not queued
	free   []int32 // recycled arena slots
}

func newFrontier(edges, capacity int) *frontier {
	f := &frontier{
		arena:  make([]entry, 0, capacity),
		heap:   make([]int32, 0, capacity),
		pos:    make([]int32, 0, capacity),
		byEdge: make([]int32, edges),
	}
	for i := range f.byEdge {
		f.byEdge[i] = -1
	}
	return f
}

// Len returns the number of queued entries.
func (f *frontier) Len() int { return len(f.heap) }

// lookup returns the queued entry for edge, if any.
func (f *frontier) lookup(edge int32) (int32, *entry) {
	h := f.byEdge[edge]
	if h < 0 {
		return -1, nil
	}
	return h, &f.arena[h]
}

// push queues a new entry. The edge must not already be queued.
func (f *frontier) push(e entry) int32 {
	if f.byEdge[e.edge] >= 0 {
		panic("walk: edge already queued; use decreaseKey")
	}
	var h int32
	if n := len(f.free); n > 0 {
		h = f.free[n-1]
		f.free = f.free[:n-1]
		f.arena[h] = e
	} else {
		h = int32(len(f.arena))
		f.arena = append(f.arena, e)
		f.pos = append(f.pos, -1)
	}
	f.byEdge[e.edge] = h
	f.pos[h] = int32(len(f.heap))
	f.heap = append(f.heap, h)
	f.siftUp(len(f.heap) - 1)
	return h
}

// decreaseKey restores heap order after the entry at h got a smaller
// minDist.
func (f *frontier) decreaseKey(h int32) {
	f.siftUp(int(f.pos[h]))
}

// peek returns the entry with the smallest bound.
func (f *frontier) peek() (*entry, bool) {
	if len(f.heap) == 0 {
		return nil, false
	}
	return &f.arena[f.heap[0]], true
}

// pop removes and returns the entry with the smallest bound.
func (f *frontier) pop() (entry, bool) {
	n := len(f.heap)
	if n == 0 {
		return entry{}, false
	}
	h := f.heap[0]
	last := f.heap[n-1]
	f.heap = f.heap[:n-1]
	if n-1 > 0 {
		f.heap[0] = last
		f.pos[last] = 0
		f.siftDown(0)
	}

	e := f.arena[h]
	f.pos[h] = -1
	f.byEdge[e.edge] = -1
	f.free = append(f.free, h)
	return e, true
}

func (f *frontier) less(i, j int) bool {
	return f.arena[f.heap[i]].minDist < f.arena[f.heap[j]].minDist
}

func (f *frontier) swap(i, j int) {
	f.heap[i], f.heap[j] = f.heap[j], f.heap[i]
	f.pos[f.heap[i]] = int32(i)
	f.pos[f.heap[j]] = int32(j)
}

func (f *frontier) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !f.less(i, p) {
			return
		}
		f.swap(i, p)
		i = p
	}
}

func (f *frontier) siftDown(i int) {
	n := len(f.heap)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && f.less(r, l) {
			best = r
		}
		if !f.less(best, i) {
			return
		}
		f.swap(i, best)
		i = best
	}
}
