// Package walk runs a bounded multi-source shortest-path expansion over a
// cage. The frontier holds edges rather than vertices: each queued edge
// carries tentative distances to both endpoints and a lower bound used as
// its priority. A walker can be resumed with a larger radius; everything it
// committed for a smaller radius stays valid.
package walk

import (
	"math"

	"github.com/bits-and-blooms/bitset"

	"github.com/chazu/surfdist/pkg/cage"
)

// State is the lifecycle state of a Walker.
type State int

const (
	Idle      State = iota // constructed, no sources
	Seeded                 // sources placed, nothing popped yet
	Expanding              // popping, or interrupted mid-expansion
	Bounded                // stopped because the next bound exceeds the radius
	Exhausted              // frontier ran empty
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Seeded:
		return "seeded"
	case Expanding:
		return "expanding"
	case Bounded:
		return "bounded"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Source places a search origin on a cage vertex. ID is the identity
// reported as nearest source for everything reached from it.
type Source struct {
	Vertex int32
	ID     int32
}

// Options configures which parts of the cage a walker may traverse.
type Options struct {
	// Interior enables synthesized through-face edges and face-mate
	// propagation. Without it only boundary edges are walked.
	Interior bool
	// Mask restricts the walk to vertices with Mask[v] set. An edge is
	// traversable only when both endpoints are in the mask. Nil allows
	// every vertex.
	Mask []bool
	// Capacity pre-sizes the frontier arena.
	Capacity int
}

// Walker owns one side of a search.
type Walker struct {
	cage  *cage.Cage
	opts  Options
	state State

	queue   *frontier
	visited *bitset.BitSet // edges
	final   *bitset.BitSet // committed vertices

	dist []float64
	src  []int32

	pending   []int32 // touched but not committed
	committed []int32 // commit order
	pops      int
}

// New returns an idle walker over c.
func New(c *cage.Cage, opts Options) *Walker {
	nv, ne := len(c.Vertices), len(c.Edges)
	if opts.Capacity <= 0 {
		opts.Capacity = 64
	}
	w := &Walker{
		cage:    c,
		opts:    opts,
		queue:   newFrontier(ne, opts.Capacity),
		visited: bitset.New(uint(ne)),
		final:   bitset.New(uint(nv)),
		dist:    make([]float64, nv),
		src:     make([]int32, nv),
	}
	for i := range w.dist {
		w.dist[i] = math.Inf(1)
		w.src[i] = -1
	}
	return w
}

// State returns the lifecycle state.
func (w *Walker) State() State { return w.state }

// Pops returns how many frontier entries have been processed.
func (w *Walker) Pops() int { return w.pops }

// Queued returns the number of frontier entries awaiting expansion.
func (w *Walker) Queued() int { return w.queue.Len() }

// Allows reports whether v is inside the walker's mask.
func (w *Walker) Allows(v int32) bool {
	return w.opts.Mask == nil || w.opts.Mask[v]
}

// Seed places the sources. Sources outside the mask are ignored; when the
// same vertex is given twice the first identity wins. Every traversable edge
// incident to a source enters the frontier with bound 0.
func (w *Walker) Seed(sources []Source) {
	var seeded []int32
	for _, s := range sources {
		if !w.Allows(s.Vertex) || w.dist[s.Vertex] == 0 {
			continue
		}
		w.dist[s.Vertex] = 0
		w.src[s.Vertex] = s.ID
		w.commit(s.Vertex)
		seeded = append(seeded, s.Vertex)
	}
	for _, v := range seeded {
		for _, l := range w.cage.Vertices[v].Links {
			if w.traversable(l.Edge) {
				w.offer(l.Edge, v, v, false)
			}
		}
	}
	w.state = Seeded
}

// IsEmpty reports whether nothing is left to expand within radius: the
// frontier is empty or its smallest bound lies beyond radius.
func (w *Walker) IsEmpty(radius float64) bool {
	top, ok := w.queue.peek()
	return !ok || top.minDist > radius
}

// Expand pops frontier entries until the next bound exceeds radius or the
// frontier empties. interrupted, when non-nil, is polled once per pop; if it
// reports true the walker stops with its queue intact and Expand returns
// false. Every vertex committed so far is final.
func (w *Walker) Expand(radius float64, interrupted func() bool) bool {
	if w.state == Idle {
		return true
	}
	w.state = Expanding
	for {
		top, ok := w.queue.peek()
		if !ok {
			w.state = Exhausted
			w.settle(radius)
			return true
		}
		if top.minDist > radius {
			w.state = Bounded
			w.settle(radius)
			return true
		}
		if interrupted != nil && interrupted() {
			w.settle(top.minDist)
			return false
		}
		e, _ := w.queue.pop()
		w.pops++
		w.visit(e)
	}
}

// visit expands one popped edge.
func (w *Walker) visit(e entry) {
	ed := &w.cage.Edges[e.edge]
	a, b := ed.V0, ed.V1
	w.visited.Set(uint(e.edge))

	da, sa := e.dist0, e.src0
	if w.dist[a] < da {
		da, sa = w.dist[a], w.src[a]
	}
	db, sb := e.dist1, e.src1
	if w.dist[b] < db {
		db, sb = w.dist[b], w.src[b]
	}
	if d := da + ed.Length; d < db {
		db, sb = d, sa
	}
	if d := db + ed.Length; d < da {
		da, sa = d, sb
	}
	changedA := w.relax(a, da, sa)
	changedB := w.relax(b, db, sb)

	// Nothing still queued can improve on the popped bound.
	if w.dist[a] <= e.minDist {
		w.commit(a)
	}
	if w.dist[b] <= e.minDist {
		w.commit(b)
	}

	if changedA {
		w.offerIncident(a)
	}
	if changedB {
		w.offerIncident(b)
	}
	if w.opts.Interior && (changedA || changedB) {
		for _, f := range ed.Faces {
			for _, n := range w.cage.Faces[f].Edges {
				if n != e.edge && !w.visited.Test(uint(n)) && w.traversable(n) {
					w.offer(n, a, b, true)
				}
			}
		}
	}
}

func (w *Walker) offerIncident(v int32) {
	for _, l := range w.cage.Vertices[v].Links {
		if !w.visited.Test(uint(l.Edge)) && w.traversable(l.Edge) {
			w.offer(l.Edge, v, v, false)
		}
	}
}

// offer inserts or tightens the frontier entry for edge n. Endpoint
// candidates are the current vertex distances, the edge itself, and for
// face-mates the straight connection from a or b across the shared face,
// which the cage holds as an edge of exactly that length.
func (w *Walker) offer(n, a, b int32, viaFace bool) {
	ed := &w.cage.Edges[n]
	if ed.V0 >= ed.V1 {
		panic("walk: edge vertices not in canonical order")
	}
	d0, s0 := w.dist[ed.V0], w.src[ed.V0]
	d1, s1 := w.dist[ed.V1], w.src[ed.V1]

	if viaFace {
		for _, x := range [2]int32{a, b} {
			dx := w.dist[x]
			if math.IsInf(dx, 1) {
				continue
			}
			if x != ed.V0 {
				if d := dx + w.cage.Distance(x, ed.V0); d < d0 {
					d0, s0 = d, w.src[x]
				}
			}
			if x != ed.V1 {
				if d := dx + w.cage.Distance(x, ed.V1); d < d1 {
					d1, s1 = d, w.src[x]
				}
			}
		}
	}
	if d := d0 + ed.Length; d < d1 {
		d1, s1 = d, s0
	}
	if d := d1 + ed.Length; d < d0 {
		d0, s0 = d, s1
	}
	if math.IsInf(d0, 1) && math.IsInf(d1, 1) {
		return
	}

	h, cur := w.queue.lookup(n)
	if cur == nil {
		en := entry{edge: n, length: ed.Length, dist0: d0, dist1: d1, src0: s0, src1: s1}
		en.bound()
		w.queue.push(en)
		return
	}

	improved := false
	if d0 < cur.dist0 {
		cur.dist0, cur.src0 = d0, s0
		improved = true
	}
	if d1 < cur.dist1 {
		cur.dist1, cur.src1 = d1, s1
		improved = true
	}
	if !improved {
		return
	}
	old := cur.minDist
	cur.bound()
	if cur.minDist < old {
		w.queue.decreaseKey(h)
	}
}

// relax lowers the tentative distance of v. It reports whether v improved.
func (w *Walker) relax(v int32, d float64, s int32) bool {
	if d >= w.dist[v] || w.final.Test(uint(v)) {
		return false
	}
	if math.IsInf(w.dist[v], 1) {
		w.pending = append(w.pending, v)
	}
	w.dist[v] = d
	w.src[v] = s
	return true
}

func (w *Walker) commit(v int32) {
	if w.final.Test(uint(v)) {
		return
	}
	w.final.Set(uint(v))
	w.committed = append(w.committed, v)
}

// settle commits every touched vertex whose tentative distance is within
// bound. Callers pass a bound no larger than the smallest queued bound, so
// each such distance is already final.
func (w *Walker) settle(bound float64) {
	keep := w.pending[:0]
	for _, v := range w.pending {
		switch {
		case w.final.Test(uint(v)):
		case w.dist[v] <= bound:
			w.commit(v)
		default:
			keep = append(keep, v)
		}
	}
	w.pending = keep
}

func (w *Walker) traversable(e int32) bool {
	ed := &w.cage.Edges[e]
	if ed.Interior && !w.opts.Interior {
		return false
	}
	if w.opts.Mask != nil && (!w.opts.Mask[ed.V0] || !w.opts.Mask[ed.V1]) {
		return false
	}
	return true
}

// Distance returns the committed distance of v.
func (w *Walker) Distance(v int32) (float64, bool) {
	if !w.final.Test(uint(v)) {
		return 0, false
	}
	return w.dist[v], true
}

// Source returns the nearest-source identity of a committed vertex, or -1.
func (w *Walker) Source(v int32) int32 {
	if !w.final.Test(uint(v)) {
		return -1
	}
	return w.src[v]
}

// Committed returns the committed vertices in commit order. The slice is
// owned by the walker and grows on later expansions.
func (w *Walker) Committed() []int32 {
	return w.committed
}
