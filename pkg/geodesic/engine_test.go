package geodesic

import (
	"container/heap"
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/surfdist/pkg/cage"
	"github.com/chazu/surfdist/pkg/mesh"
	"github.com/chazu/surfdist/pkg/walk"
)

func group(pts ...int) mesh.Group {
	return mesh.Group{Name: "src", Points: pts}
}

func results(t *testing.T, e *Engine) map[int]float64 {
	t.Helper()
	out := make(map[int]float64)
	for _, p := range e.AffectedSet().ToArray() {
		d, ok := e.Distance(int(p))
		require.True(t, ok)
		out[int(p)] = d
	}
	return out
}

type item struct {
	v int32
	d float64
}

type minHeap []item

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].d < h[j].d }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(item)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// dijkstra is a plain vertex Dijkstra over the cage edges, used as oracle.
func dijkstra(c *cage.Cage, interior bool, sources []int, radius float64) map[int]float64 {
	dist := make([]float64, len(c.Vertices))
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	h := &minHeap{}
	for _, s := range sources {
		dist[s] = 0
		heap.Push(h, item{int32(s), 0})
	}
	for h.Len() > 0 {
		it := heap.Pop(h).(item)
		if it.d > dist[it.v] {
			continue
		}
		for _, l := range c.Vertices[it.v].Links {
			if c.Edges[l.Edge].Interior && !interior {
				continue
			}
			if d := it.d + c.Edges[l.Edge].Length; d < dist[l.To] {
				dist[l.To] = d
				heap.Push(h, item{l.To, d})
			}
		}
	}
	out := make(map[int]float64)
	for v, d := range dist {
		if d <= radius {
			out[v] = d
		}
	}
	return out
}

// jittered returns a rows x cols quad grid with every point nudged randomly.
func jittered(rng *rand.Rand, rows, cols int) *mesh.Detail {
	d := mesh.Grid(rows, cols, 1, v3.Vec{})
	for pt := 0; pt < d.NumPoints(); pt++ {
		p := d.Position(pt)
		p.X += (rng.Float64() - 0.5) * 0.4
		p.Y += (rng.Float64() - 0.5) * 0.4
		p.Z += (rng.Float64() - 0.5) * 0.4
		d.SetPosition(pt, p)
	}
	d.BumpPositionVersion()
	return d
}

func TestChainScenario(t *testing.T) {
	doc, pts := mesh.Chain(5, 1)
	e := New()

	st, err := e.UpdateDistances(context.Background(), doc, Request{
		Group:  group(pts[0]),
		Radius: 2.5,
		Metric: MetricEdge,
	})
	require.NoError(t, err)
	assert.True(t, st.Completed)
	assert.Equal(t, ActionRebuild, st.Action)
	assert.Equal(t, 3, st.Affected)
	assert.Equal(t, map[int]float64{0: 0, 1: 1, 2: 2}, results(t, e))

	src, ok := e.NearestSource(2)
	require.True(t, ok)
	assert.Equal(t, 0, src)

	_, ok = e.Distance(3)
	assert.False(t, ok)
	_, ok = e.NearestSource(3)
	assert.False(t, ok)
}

func TestGridEdgeMetricIsManhattan(t *testing.T) {
	doc := mesh.Grid(3, 3, 1, v3.Vec{})
	e := New()

	_, err := e.UpdateDistances(context.Background(), doc, Request{
		Group:  group(0),
		Radius: 4,
		Metric: MetricEdge,
	})
	require.NoError(t, err)

	got := results(t, e)
	for r := 0; r <= 3; r++ {
		for c := 0; c <= 3; c++ {
			pt := r*4 + c
			if r+c > 4 {
				assert.NotContains(t, got, pt)
				continue
			}
			assert.InDelta(t, float64(r+c), got[pt], 1e-12, "point (%d,%d)", r, c)
		}
	}
}

func TestGridSurfaceMetricCutsFaces(t *testing.T) {
	doc := mesh.Grid(3, 3, 1, v3.Vec{})
	e := New()

	_, err := e.UpdateDistances(context.Background(), doc, Request{
		Group:  group(0),
		Radius: 10,
		Metric: MetricSurface,
	})
	require.NoError(t, err)

	d, ok := e.Distance(15)
	require.True(t, ok)
	assert.InDelta(t, 3*math.Sqrt2, d, 1e-12)
}

func TestUpdateIsIdempotent(t *testing.T) {
	doc := mesh.Grid(4, 4, 1, v3.Vec{})
	e := New()
	req := Request{Group: group(6), Radius: 2.5, Metric: MetricSurface}

	first, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	want := results(t, e)

	second, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionReuse, second.Action)
	assert.Equal(t, first.Pops, second.Pops, "reuse does no walker work")
	assert.Equal(t, want, results(t, e))
}

func TestLargerRadiusExtendsMonotonically(t *testing.T) {
	doc := jittered(rand.New(rand.NewSource(3)), 6, 6)
	e := New()
	req := Request{Group: group(0, 48), Radius: 1.5, Metric: MetricSurface}

	_, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	small := results(t, e)

	req.Radius = 4
	st, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionExtend, st.Action)
	large := results(t, e)

	for pt, d := range small {
		assert.Contains(t, large, pt)
		assert.Equal(t, d, large[pt])
	}
	assert.Greater(t, len(large), len(small))

	fresh := New()
	_, err = fresh.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, results(t, fresh), large)
}

func TestShrinkAfterGrowMatchesFreshRun(t *testing.T) {
	doc := jittered(rand.New(rand.NewSource(5)), 6, 6)
	e := New()
	req := Request{Group: group(24), Radius: 5, Metric: MetricEdge}

	_, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)

	req.Radius = 1.2
	st, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionShrink, st.Action)
	assert.True(t, st.Completed)

	fresh := New()
	_, err = fresh.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, results(t, fresh), results(t, e))

	// Growing back inside the explored radius needs no new pops.
	req.Radius = 3
	grown, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionExtend, grown.Action)
	assert.Equal(t, st.Pops, grown.Pops)
}

func TestMatchesDijkstraOnRandomMeshes(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		doc := jittered(rng, 3+rng.Intn(6), 3+rng.Intn(6))
		n := doc.NumPoints()
		sources := []int{rng.Intn(n), rng.Intn(n)}
		radius := 0.5 + rng.Float64()*4

		for _, metric := range []Metric{MetricEdge, MetricSurface} {
			e := New()
			_, err := e.UpdateDistances(context.Background(), doc, Request{
				Group:  group(sources...),
				Radius: radius,
				Metric: metric,
			})
			require.NoError(t, err)

			want := dijkstra(e.Cage(), metric == MetricSurface, sources, radius)
			got := results(t, e)
			require.Len(t, got, len(want), "trial %d metric %s", trial, metric)
			for pt, d := range want {
				assert.InDelta(t, d, got[pt], 1e-9, "trial %d metric %s point %d", trial, metric, pt)
			}
		}
	}
}

func TestPositionsWithoutVersionBumpReuseStaleResults(t *testing.T) {
	doc, pts := mesh.Chain(4, 1)
	e := New()
	req := Request{Group: group(pts[0]), Radius: 10, Metric: MetricEdge}

	_, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)

	doc.SetPosition(3, v3.Vec{X: 5})
	st, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionReuse, st.Action)
	d, _ := e.Distance(3)
	assert.Equal(t, 3.0, d, "unpublished edits are not seen")

	doc.BumpPositionVersion()
	before := e.Cage()
	st, err = e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionRebuild, st.Action)
	assert.Same(t, before, e.Cage(), "position change refreshes the cage in place")
	d, _ = e.Distance(3)
	assert.Equal(t, 5.0, d)
}

func TestTopologyChangeRebuildsCage(t *testing.T) {
	doc, pts := mesh.Chain(4, 1)
	e := New()
	req := Request{Group: group(pts[0]), Radius: 10, Metric: MetricEdge}

	_, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	before := e.Cage()

	tail := doc.AddPoint(v3.Vec{X: 3, Y: 4})
	_, err = doc.AddCurve(false, 3, tail)
	require.NoError(t, err)

	st, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionRebuild, st.Action)
	assert.NotSame(t, before, e.Cage())
	assert.Equal(t, 5, e.Cage().NumVertices())
	d, ok := e.Distance(tail)
	require.True(t, ok)
	assert.Equal(t, 7.0, d)

	doc.BumpTopologyVersion()
	st, err = e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionRebuild, st.Action)
}

func TestSourceChangeInvalidatesWalkers(t *testing.T) {
	doc, _ := mesh.Chain(6, 1)
	e := New()

	_, err := e.UpdateDistances(context.Background(), doc, Request{Group: group(0), Radius: 2, Metric: MetricEdge})
	require.NoError(t, err)

	st, err := e.UpdateDistances(context.Background(), doc, Request{Group: group(0, 5), Radius: 3, Metric: MetricEdge})
	require.NoError(t, err)
	assert.Equal(t, ActionRebuild, st.Action, "radius grew but sources changed")

	src, ok := e.NearestSource(4)
	require.True(t, ok)
	assert.Equal(t, 5, src)

	// Same members in another order keep the identity.
	st, err = e.UpdateDistances(context.Background(), doc, Request{Group: group(5, 0, 5), Radius: 3, Metric: MetricEdge})
	require.NoError(t, err)
	assert.Equal(t, ActionReuse, st.Action)
}

func TestMetricChangeRebuilds(t *testing.T) {
	doc := mesh.Grid(2, 2, 1, v3.Vec{})
	e := New()

	_, err := e.UpdateDistances(context.Background(), doc, Request{Group: group(0), Radius: 2, Metric: MetricEdge})
	require.NoError(t, err)
	d, _ := e.Distance(4)
	assert.Equal(t, 2.0, d)

	st, err := e.UpdateDistances(context.Background(), doc, Request{Group: group(0), Radius: 2, Metric: MetricSurface})
	require.NoError(t, err)
	assert.Equal(t, ActionRebuild, st.Action)
	d, _ = e.Distance(4)
	assert.InDelta(t, math.Sqrt2, d, 1e-12)
}

func TestInvalidMetricDoesNoWork(t *testing.T) {
	doc, _ := mesh.Chain(3, 1)
	e := New()

	for _, m := range []Metric{MetricEuclidean, MetricProjected, Metric(42)} {
		st, err := e.UpdateDistances(context.Background(), doc, Request{Group: group(0), Radius: 1, Metric: m})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidMetric))
		assert.Equal(t, ActionNone, st.Action)
	}
	assert.Nil(t, e.Cage())
	assert.True(t, e.AffectedSet().IsEmpty())
}

func TestDegenerateRequests(t *testing.T) {
	doc, _ := mesh.Chain(3, 1)
	e := New()

	_, err := e.UpdateDistances(context.Background(), doc, Request{Group: group(0), Radius: 5, Metric: MetricEdge})
	require.NoError(t, err)
	require.False(t, e.AffectedSet().IsEmpty())

	cases := []Request{
		{Group: group(), Radius: 5, Metric: MetricEdge},
		{Group: group(0), Radius: 0, Metric: MetricEdge},
		{Group: group(0), Radius: -1, Metric: MetricSurface},
		{Group: group(-1, 99), Radius: 5, Metric: MetricEdge},
	}
	for i, req := range cases {
		st, err := e.UpdateDistances(context.Background(), doc, req)
		require.NoError(t, err, "case %d", i)
		assert.True(t, st.Completed, "case %d", i)
		assert.Equal(t, ActionNone, st.Action, "case %d", i)
		assert.True(t, e.AffectedSet().IsEmpty(), "case %d", i)
		assert.True(t, e.Completed())
	}
}

func TestInterruptedRunResumes(t *testing.T) {
	doc := jittered(rand.New(rand.NewSource(9)), 8, 8)
	req := Request{Group: group(0, 40), Radius: 5, Metric: MetricSurface}

	ref := New()
	_, err := ref.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)

	polls := 0
	req.Interrupt = func() bool {
		polls++
		return polls%9 == 0
	}
	e := New()
	calls := 0
	for {
		calls++
		require.Less(t, calls, 10000)
		st, err := e.UpdateDistances(context.Background(), doc, req)
		require.NoError(t, err)
		if calls == 1 {
			assert.Equal(t, ActionRebuild, st.Action)
		} else {
			assert.Equal(t, ActionExtend, st.Action)
		}
		if st.Completed {
			break
		}
		assert.False(t, e.Completed())
		// Everything reported so far is already exact.
		for pt, d := range results(t, e) {
			want, ok := ref.Distance(pt)
			require.True(t, ok)
			assert.Equal(t, want, d)
		}
	}
	assert.Greater(t, calls, 1)
	assert.Equal(t, results(t, ref), results(t, e))
	for _, p := range ref.AffectedSet().ToArray() {
		a, _ := ref.NearestSource(int(p))
		b, _ := e.NearestSource(int(p))
		assert.Equal(t, a, b, "point %d", p)
	}
}

func TestCancelledContextStopsBeforeFirstPop(t *testing.T) {
	doc := mesh.Grid(3, 3, 1, v3.Vec{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New()
	st, err := e.UpdateDistances(ctx, doc, Request{Group: group(5), Radius: 3, Metric: MetricEdge})
	require.NoError(t, err)
	assert.False(t, st.Completed)
	assert.Equal(t, 0, st.Pops)
	assert.Equal(t, []uint32{5}, e.AffectedSet().ToArray(), "sources are committed at seeding")

	st, err = e.UpdateDistances(context.Background(), doc, Request{Group: group(5), Radius: 3, Metric: MetricEdge})
	require.NoError(t, err)
	assert.True(t, st.Completed)
	assert.Equal(t, ActionExtend, st.Action)
}

func TestSkippedPrimitivesAreReported(t *testing.T) {
	doc, _ := mesh.Chain(3, 1)
	_, err := doc.AddVolume(0, 1, 2)
	require.NoError(t, err)

	e := New()
	st, err := e.UpdateDistances(context.Background(), doc, Request{Group: group(0), Radius: 5, Metric: MetricEdge})
	require.NoError(t, err)
	require.Len(t, st.Skipped, 1)
	assert.True(t, errors.Is(st.Skipped[0], cage.ErrUnsupportedPrimitiveKind))
	assert.Equal(t, 3, st.Affected)
}

// symmetricChain lays five points on X from -2 to 2.
func symmetricChain() *mesh.Detail {
	doc, _ := mesh.Chain(5, 1)
	for pt := 0; pt < 5; pt++ {
		doc.SetPosition(pt, v3.Vec{X: float64(pt - 2)})
	}
	doc.BumpPositionVersion()
	return doc
}

func TestSymmetricTieGoesToPositiveSide(t *testing.T) {
	doc := symmetricChain()
	e := New()

	st, err := e.UpdateDistances(context.Background(), doc, Request{
		Group:    group(0),
		Radius:   10,
		Metric:   MetricEdge,
		Symmetry: Symmetry{Axis: AxisX},
	})
	require.NoError(t, err)
	assert.True(t, st.Completed)
	assert.Equal(t, []Side{SidePositive, SideNegative}, e.Sides())

	// Point 2 sits on the plane, two units from both the source and its mirror.
	d, ok := e.Distance(2)
	require.True(t, ok)
	assert.Equal(t, 2.0, d)
	src, _ := e.NearestSource(2)
	assert.Equal(t, 4, src)

	src, _ = e.NearestSource(1)
	assert.Equal(t, 0, src)
	src, _ = e.NearestSource(3)
	assert.Equal(t, 4, src)
	d, _ = e.Distance(4)
	assert.Equal(t, 0.0, d)
}

func TestSymmetryMergeTakesPerSideMinimum(t *testing.T) {
	doc := jittered(rand.New(rand.NewSource(21)), 6, 6)
	// Make the grid mirror-symmetric about x=3 before measuring.
	for r := 0; r <= 6; r++ {
		for c := 0; c <= 3; c++ {
			p := doc.Position(r*7 + c)
			if c == 3 {
				p.X = 3
			}
			doc.SetPosition(r*7+c, p)
			doc.SetPosition(r*7+(6-c), v3.Vec{X: 6 - p.X, Y: p.Y, Z: p.Z})
		}
	}
	doc.BumpPositionVersion()

	sym := Symmetry{Axis: AxisX, Origin: 3, Tolerance: 1e-6}
	req := Request{Group: group(8, 30), Radius: 4, Metric: MetricSurface, Symmetry: sym}
	e := New()
	_, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	got := results(t, e)

	c := e.Cage()
	idx := newMirrorIndex(c)
	seeds := mirrorSources(c, idx, sym, sym.Tolerance, []int32{8, 30})
	require.Len(t, seeds, 4, "both sources have mirror counterparts")

	want := make(map[int]float64)
	for _, side := range []Side{SidePositive, SideNegative} {
		w := walk.New(c, walk.Options{Interior: true, Mask: sideMask(c, sym, side, sym.Tolerance)})
		w.Seed(seeds)
		require.True(t, w.Expand(req.Radius, nil))
		for _, v := range w.Committed() {
			d, _ := w.Distance(v)
			if d > req.Radius {
				continue
			}
			if cur, ok := want[int(v)]; !ok || d < cur {
				want[int(v)] = d
			}
		}
	}
	assert.Equal(t, want, got)

	// Mirrored points carry mirrored distances.
	for r := 0; r <= 6; r++ {
		for col := 0; col < 3; col++ {
			a, aok := got[r*7+col]
			b, bok := got[r*7+6-col]
			require.Equal(t, aok, bok)
			if aok {
				assert.InDelta(t, a, b, 1e-9)
			}
		}
	}
}

func TestSymmetryChangeRebuilds(t *testing.T) {
	doc := symmetricChain()
	e := New()
	req := Request{Group: group(0), Radius: 10, Metric: MetricEdge}

	_, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, []Side{SideAll}, e.Sides())
	src, _ := e.NearestSource(4)
	assert.Equal(t, 0, src)

	req.Symmetry = Symmetry{Axis: AxisX}
	st, err := e.UpdateDistances(context.Background(), doc, req)
	require.NoError(t, err)
	assert.Equal(t, ActionRebuild, st.Action)
	src, _ = e.NearestSource(4)
	assert.Equal(t, 4, src)
}

func TestMirrorIndexNearest(t *testing.T) {
	doc := mesh.Grid(2, 2, 1, v3.Vec{})
	c := cage.Build(doc)
	idx := newMirrorIndex(c)
	require.True(t, idx.current(c))

	v, ok := idx.nearest(v3.Vec{X: 2.00001, Y: 1}, 1e-3)
	require.True(t, ok)
	assert.Equal(t, int32(5), v)

	_, ok = idx.nearest(v3.Vec{X: 0.5, Y: 0.5}, 1e-3)
	assert.False(t, ok)

	doc.BumpPositionVersion()
	c.UpdatePositions(doc)
	assert.False(t, idx.current(c))
}

func TestSourceIDIgnoresOrderAndDuplicates(t *testing.T) {
	a := normalizeSources([]int{3, 1, 2, 3, -4, 100}, 10)
	assert.Equal(t, []int32{1, 2, 3}, a)
	assert.Equal(t, sourceID("g", a), sourceID("g", normalizeSources([]int{2, 3, 1}, 10)))
	assert.NotEqual(t, sourceID("g", a), sourceID("h", a))
	assert.NotEqual(t, sourceID("g", a), sourceID("g", []int32{1, 2}))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "surface", MetricSurface.String())
	assert.Equal(t, "y", AxisY.String())
	assert.Equal(t, "negative", SideNegative.String())
	assert.Equal(t, "shrink", ActionShrink.String())
	assert.Equal(t, "unknown", Action(99).String())
}
