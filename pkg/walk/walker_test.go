package walk

import (
	"container/heap"
	"math"
	"math/rand"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/surfdist/pkg/cage"
	"github.com/chazu/surfdist/pkg/mesh"
)

// ---------------------------------------------------------------------------
// Brute-force oracle
// ---------------------------------------------------------------------------

type oracleItem struct {
	v int32
	d float64
}

type oracleHeap []oracleItem

func (h oracleHeap) Len() int           { return len(h) }
func (h oracleHeap) Less(i, j int) bool { return h[i].d < h[j].d }
func (h oracleHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *oracleHeap) Push(x any)        { *h = append(*h, x.(oracleItem)) }
func (h *oracleHeap) Pop() any {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// dijkstra is a textbook vertex Dijkstra over the edges a walker with opts
// would be allowed to use.
func dijkstra(c *cage.Cage, sources []int32, opts Options) []float64 {
	dist := make([]float64, len(c.Vertices))
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	allowed := func(v int32) bool { return opts.Mask == nil || opts.Mask[v] }
	h := &oracleHeap{}
	for _, s := range sources {
		if allowed(s) {
			dist[s] = 0
			heap.Push(h, oracleItem{v: s})
		}
	}
	for h.Len() > 0 {
		it := heap.Pop(h).(oracleItem)
		if it.d > dist[it.v] {
			continue
		}
		for _, l := range c.Vertices[it.v].Links {
			e := &c.Edges[l.Edge]
			if e.Interior && !opts.Interior {
				continue
			}
			if !allowed(l.To) {
				continue
			}
			if nd := it.d + e.Length; nd < dist[l.To] {
				dist[l.To] = nd
				heap.Push(h, oracleItem{v: l.To, d: nd})
			}
		}
	}
	return dist
}

func sourcesOf(vs ...int32) []Source {
	out := make([]Source, len(vs))
	for i, v := range vs {
		out[i] = Source{Vertex: v, ID: v}
	}
	return out
}

func committedMap(w *Walker) map[int32]float64 {
	out := make(map[int32]float64)
	for _, v := range w.Committed() {
		d, ok := w.Distance(v)
		if ok {
			out[v] = d
		}
	}
	return out
}

// jitteredMesh builds a grid whose cells alternate between quads and
// triangle pairs, with perturbed positions and a dangling curve.
func jitteredMesh(rng *rand.Rand, rows, cols int) *mesh.Detail {
	d := mesh.NewDetail()
	for r := 0; r <= rows; r++ {
		for c := 0; c <= cols; c++ {
			d.AddPoint(v3.Vec{
				X: float64(c) + (rng.Float64()-0.5)*0.4,
				Y: float64(r) + (rng.Float64()-0.5)*0.4,
				Z: (rng.Float64() - 0.5) * 0.6,
			})
		}
	}
	at := func(r, c int) int { return r*(cols+1) + c }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if (r+c)%2 == 0 {
				_, _ = d.AddPolygon(at(r, c), at(r, c+1), at(r+1, c+1), at(r+1, c))
				continue
			}
			_, _ = d.AddPolygon(at(r, c), at(r, c+1), at(r+1, c+1))
			_, _ = d.AddPolygon(at(r, c), at(r+1, c+1), at(r+1, c))
		}
	}
	tail := d.AddPoint(v3.Vec{X: -1, Y: -1})
	tail2 := d.AddPoint(v3.Vec{X: -2, Y: -1.5})
	_, _ = d.AddCurve(false, at(0, 0), tail, tail2)
	return d
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestChainBoundedAtRadius(t *testing.T) {
	d, _ := mesh.Chain(5, 1)
	c := cage.Build(d)
	w := New(c, Options{Interior: true})
	assert.Equal(t, Idle, w.State())

	w.Seed(sourcesOf(0))
	assert.Equal(t, Seeded, w.State())

	require.True(t, w.Expand(2.5, nil))
	assert.Equal(t, Bounded, w.State())
	assert.True(t, w.IsEmpty(2.5))
	assert.False(t, w.IsEmpty(3))

	assert.Equal(t, map[int32]float64{0: 0, 1: 1, 2: 2}, committedMap(w))
	for _, v := range []int32{3, 4} {
		_, ok := w.Distance(v)
		assert.False(t, ok, "vertex %d is beyond the radius", v)
		assert.Equal(t, int32(-1), w.Source(v))
	}
	assert.Equal(t, int32(0), w.Source(2))
}

func TestChainResumesWithLargerRadius(t *testing.T) {
	d, _ := mesh.Chain(5, 1)
	c := cage.Build(d)
	w := New(c, Options{})
	w.Seed(sourcesOf(0))
	require.True(t, w.Expand(2.5, nil))
	pops := w.Pops()

	require.True(t, w.Expand(10, nil))
	assert.Equal(t, Exhausted, w.State())
	assert.Greater(t, w.Pops(), pops)
	assert.Equal(t, map[int32]float64{0: 0, 1: 1, 2: 2, 3: 3, 4: 4}, committedMap(w))
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, w.Committed())
}

func TestExpandOnIdleWalker(t *testing.T) {
	d, _ := mesh.Chain(3, 1)
	w := New(cage.Build(d), Options{})
	assert.True(t, w.Expand(5, nil))
	assert.Equal(t, Idle, w.State())
	assert.Empty(t, w.Committed())
}

func TestSeedWithoutEdgesExhaustsImmediately(t *testing.T) {
	d := mesh.NewDetail()
	d.AddPoint(v3.Vec{})
	w := New(cage.Build(d), Options{})
	w.Seed(sourcesOf(0))
	require.True(t, w.Expand(1, nil))
	assert.Equal(t, Exhausted, w.State())
	assert.Equal(t, map[int32]float64{0: 0}, committedMap(w))
}

func TestGridEdgeMetricIsManhattan(t *testing.T) {
	c := cage.Build(mesh.Grid(3, 3, 1, v3.Vec{}))
	w := New(c, Options{Interior: false})
	w.Seed(sourcesOf(0))
	require.True(t, w.Expand(4, nil))

	got := committedMap(w)
	for r := 0; r <= 3; r++ {
		for col := 0; col <= 3; col++ {
			v := int32(r*4 + col)
			steps := float64(r + col)
			d, ok := got[v]
			if steps <= 4 {
				require.True(t, ok, "vertex (%d,%d) should be reached", r, col)
				assert.Equal(t, steps, d)
			} else {
				assert.False(t, ok, "vertex (%d,%d) is %v steps away", r, col, steps)
			}
		}
	}
}

func TestGridSurfaceMetricCutsThroughFaces(t *testing.T) {
	c := cage.Build(mesh.Grid(3, 3, 1, v3.Vec{}))
	w := New(c, Options{Interior: true})
	w.Seed(sourcesOf(0))
	require.True(t, w.Expand(10, nil))

	d, ok := w.Distance(15)
	require.True(t, ok)
	assert.InDelta(t, 3*math.Sqrt2, d, 1e-9)

	d, ok = w.Distance(5)
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt2, d, 1e-9)
}

func TestNearestSourceIdentity(t *testing.T) {
	d, _ := mesh.Chain(7, 1)
	w := New(cage.Build(d), Options{})
	w.Seed([]Source{{Vertex: 0, ID: 100}, {Vertex: 6, ID: 600}})
	require.True(t, w.Expand(10, nil))

	assert.Equal(t, int32(100), w.Source(1))
	assert.Equal(t, int32(100), w.Source(2))
	assert.Equal(t, int32(600), w.Source(4))
	assert.Equal(t, int32(600), w.Source(5))
	d3, _ := w.Distance(3)
	assert.Equal(t, 3.0, d3)
}

func TestDuplicateSourceFirstIdentityWins(t *testing.T) {
	d, _ := mesh.Chain(3, 1)
	w := New(cage.Build(d), Options{})
	w.Seed([]Source{{Vertex: 0, ID: 1}, {Vertex: 0, ID: 2}})
	require.True(t, w.Expand(5, nil))
	assert.Equal(t, int32(1), w.Source(2))
}

func TestMaskRestrictsTraversal(t *testing.T) {
	d, _ := mesh.Chain(5, 1)
	c := cage.Build(d)
	mask := []bool{true, true, true, false, true}
	w := New(c, Options{Mask: mask})
	w.Seed(sourcesOf(0, 3))
	require.True(t, w.Expand(10, nil))

	got := committedMap(w)
	assert.Equal(t, map[int32]float64{0: 0, 1: 1, 2: 2}, got, "masked source ignored, masked vertex unreachable")
}

func TestInterruptPreservesStateForResume(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	c := cage.Build(jitteredMesh(rng, 8, 8))

	ref := New(c, Options{Interior: true})
	ref.Seed(sourcesOf(0, 40))
	require.True(t, ref.Expand(5, nil))

	w := New(c, Options{Interior: true})
	w.Seed(sourcesOf(0, 40))
	budget := 0
	interrupt := func() bool {
		budget++
		return budget%7 == 0
	}
	rounds := 0
	for !w.Expand(5, interrupt) {
		rounds++
		assert.Equal(t, Expanding, w.State())
		// Everything committed while interrupted must already be final.
		for v, d := range committedMap(w) {
			want, _ := ref.Distance(v)
			assert.Equal(t, want, d)
		}
	}
	assert.Greater(t, rounds, 1)
	assert.Equal(t, committedMap(ref), committedMap(w))
	assert.Equal(t, ref.Pops(), w.Pops())
}

func TestMatchesDijkstraOnRandomMeshes(t *testing.T) {
	for seed := int64(1); seed <= 12; seed++ {
		rng := rand.New(rand.NewSource(seed))
		c := cage.Build(jitteredMesh(rng, 6+rng.Intn(4), 6+rng.Intn(4)))
		n := len(c.Vertices)
		srcs := []int32{int32(rng.Intn(n)), int32(rng.Intn(n))}
		radius := 1 + rng.Float64()*4

		for _, interior := range []bool{false, true} {
			opts := Options{Interior: interior}
			want := dijkstra(c, srcs, opts)

			w := New(c, opts)
			w.Seed(sourcesOf(srcs...))
			require.True(t, w.Expand(radius, nil))
			got := committedMap(w)

			for v := range c.Vertices {
				d, ok := got[int32(v)]
				if want[v] <= radius {
					require.True(t, ok, "seed %d interior %v: vertex %d at %v missing", seed, interior, v, want[v])
					assert.InDelta(t, want[v], d, 1e-9, "seed %d vertex %d", seed, v)
				} else {
					assert.False(t, ok, "seed %d interior %v: vertex %d at %v beyond %v", seed, interior, v, want[v], radius)
				}
			}
		}
	}
}

func TestMaskedWalkMatchesMaskedDijkstra(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	c := cage.Build(jitteredMesh(rng, 8, 8))
	mask := make([]bool, len(c.Vertices))
	for i, v := range c.Vertices {
		mask[i] = v.Pos.X >= 3.5
	}
	var srcs []int32
	for i := range mask {
		if mask[i] {
			srcs = append(srcs, int32(i))
			break
		}
	}
	opts := Options{Interior: true, Mask: mask}
	want := dijkstra(c, srcs, opts)

	w := New(c, opts)
	w.Seed(sourcesOf(srcs...))
	require.True(t, w.Expand(math.Inf(1), nil))
	got := committedMap(w)
	for v := range c.Vertices {
		if math.IsInf(want[v], 1) {
			assert.NotContains(t, got, int32(v))
			continue
		}
		assert.InDelta(t, want[v], got[int32(v)], 1e-9)
	}
}

func TestRadiusPrefixProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	c := cage.Build(jitteredMesh(rng, 7, 7))

	small := New(c, Options{Interior: true})
	small.Seed(sourcesOf(3))
	require.True(t, small.Expand(2, nil))

	large := New(c, Options{Interior: true})
	large.Seed(sourcesOf(3))
	require.True(t, large.Expand(4, nil))

	ls := committedMap(large)
	for v, d := range committedMap(small) {
		require.Contains(t, ls, v)
		assert.Equal(t, d, ls[v], "vertex %d", v)
	}

	require.True(t, small.Expand(4, nil))
	assert.Equal(t, ls, committedMap(small), "resumed walk equals a fresh one")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "bounded", Bounded.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "unknown", State(99).String())
}
