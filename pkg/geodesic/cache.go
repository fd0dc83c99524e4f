package geodesic

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/chazu/surfdist/pkg/walk"
)

// distanceCache keeps the walkers and merged results of the previous call
// together with the fingerprint they were computed for.
type distanceCache struct {
	fp        Fingerprint
	valid     bool
	completed bool

	walkers map[Side]*walk.Walker
	order   []Side // merge order; the first side wins exact ties

	affected *roaring.Bitmap
	dist     []float64
	src      []int32
}

func newDistanceCache() *distanceCache {
	return &distanceCache{
		walkers:  make(map[Side]*walk.Walker),
		affected: roaring.New(),
	}
}

// canReuse reports whether walker state computed for the cached fingerprint
// is still valid for fp. Radius is not compared.
func (c *distanceCache) canReuse(fp Fingerprint) bool {
	return c.valid && c.fp.sameInputs(fp)
}

func (c *distanceCache) plan(fp Fingerprint) Action {
	switch {
	case !c.canReuse(fp):
		return ActionRebuild
	case !c.completed || fp.Radius > c.fp.Radius:
		return ActionExtend
	case fp.Radius < c.fp.Radius:
		return ActionShrink
	default:
		return ActionReuse
	}
}

// reset discards every walker and result and installs fresh walkers.
func (c *distanceCache) reset(numPoints int, order []Side, walkers map[Side]*walk.Walker) {
	c.invalidate()
	c.order = order
	c.walkers = walkers
	if len(c.dist) != numPoints {
		c.dist = make([]float64, numPoints)
		c.src = make([]int32, numPoints)
		for i := range c.dist {
			c.dist[i] = math.Inf(1)
			c.src[i] = -1
		}
	}
}

// invalidate drops walker state and results; the next plan is a rebuild.
func (c *distanceCache) invalidate() {
	c.clearResults()
	c.walkers = make(map[Side]*walk.Walker)
	c.order = nil
	c.valid = false
	c.completed = false
}

func (c *distanceCache) clearResults() {
	it := c.affected.Iterator()
	for it.HasNext() {
		p := it.Next()
		c.dist[p] = math.Inf(1)
		c.src[p] = -1
	}
	c.affected.Clear()
}

// expand drives every walker toward radius in merge order. It stops at the
// first interrupted walker.
func (c *distanceCache) expand(radius float64, interrupted func() bool) bool {
	for _, side := range c.order {
		if !c.walkers[side].Expand(radius, interrupted) {
			return false
		}
	}
	return true
}

// merge rebuilds the results from the walkers' committed vertices, keeping
// only distances within radius. A point reached by several sides takes the
// smallest distance; on an exact tie the side merged first keeps it.
func (c *distanceCache) merge(radius float64) {
	c.clearResults()
	for _, side := range c.order {
		w := c.walkers[side]
		for _, v := range w.Committed() {
			d, _ := w.Distance(v)
			if d > radius {
				continue
			}
			p := uint32(v)
			if c.affected.Contains(p) && d >= c.dist[v] {
				continue
			}
			c.affected.Add(p)
			c.dist[v] = d
			c.src[v] = w.Source(v)
		}
	}
}

// commit records fp as the fingerprint the current results answer.
func (c *distanceCache) commit(fp Fingerprint, completed bool) {
	c.fp = fp
	c.valid = true
	c.completed = completed
}

func (c *distanceCache) pops() int {
	n := 0
	for _, w := range c.walkers {
		n += w.Pops()
	}
	return n
}
