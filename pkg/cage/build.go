package cage

import (
	"strconv"

	"go.trai.ch/zerr"

	"github.com/chazu/surfdist/pkg/mesh"
)

// builder accumulates edges and faces while walking the primitives.
type builder struct {
	c *Cage
}

// Build converts doc into a cage. Primitives that cannot be represented are
// skipped and recorded in Skipped; the build itself never fails.
func Build(doc mesh.Document) *Cage {
	n := doc.NumPoints()
	c := &Cage{
		Vertices:        make([]Vertex, n),
		TopologyVersion: doc.TopologyVersion(),
		PositionVersion: doc.PositionVersion(),
		index:           make(map[uint64]int32, n*3),
	}
	for i := range c.Vertices {
		c.Vertices[i] = Vertex{Point: i, Pos: doc.Position(i)}
	}

	b := &builder{c: c}
	for prim := 0; prim < doc.NumPrimitives(); prim++ {
		b.primitive(doc, prim)
	}
	return c
}

func (b *builder) primitive(doc mesh.Document, prim int) {
	kind := doc.PrimKind(prim)
	verts := doc.PrimVertices(prim)

	switch kind {
	case mesh.PrimPolygon:
		switch {
		case len(verts) >= 3:
			b.face(prim, verts)
		case len(verts) == 2:
			b.segment(verts[0], verts[1], false)
		}

	case mesh.PrimPatch:
		rows, cols := doc.PrimGrid(prim)
		if rows < 1 || cols < 1 || rows*cols != len(verts) {
			b.skip(primError(ErrMalformedPrimitive, prim, kind))
			return
		}
		at := func(r, c int) int { return verts[r*cols+c] }
		for r := 0; r+1 < rows; r++ {
			for col := 0; col+1 < cols; col++ {
				b.face(prim, []int{at(r, col), at(r, col+1), at(r+1, col+1), at(r+1, col)})
			}
		}
		// Single-row or single-column hulls degrade to polylines.
		if rows == 1 || cols == 1 {
			for i := 0; i+1 < len(verts); i++ {
				b.segment(verts[i], verts[i+1], false)
			}
		}

	case mesh.PrimCurve:
		for i := 0; i+1 < len(verts); i++ {
			b.segment(verts[i], verts[i+1], false)
		}
		if doc.PrimClosed(prim) && len(verts) > 2 {
			b.segment(verts[len(verts)-1], verts[0], false)
		}

	case mesh.PrimPoints:
		// Points become isolated vertices; they have no connectivity.

	default:
		b.skip(primError(ErrUnsupportedPrimitiveKind, prim, kind))
	}
}

func (b *builder) skip(err error) {
	b.c.Skipped = append(b.c.Skipped, err)
}

func primError(err error, prim int, kind mesh.PrimKind) error {
	err = zerr.Wrap(err, "skipping primitive")
	return zerr.With(zerr.With(err, "prim", strconv.Itoa(prim)), "kind", kind.String())
}

// face registers a polygonal face: its boundary loop plus one interior
// connection for every non-adjacent vertex pair.
func (b *builder) face(prim int, loop []int) {
	c := b.c
	fi := int32(len(c.Faces))
	f := Face{Prim: prim, Vertices: make([]int32, len(loop))}
	for i, pt := range loop {
		f.Vertices[i] = int32(pt)
	}

	n := len(loop)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			boundary := j == i+1 || (i == 0 && j == n-1)
			e, ok := b.segment(loop[i], loop[j], !boundary)
			if !ok || containsEdge(f.Edges, e) {
				continue
			}
			f.Edges = append(f.Edges, e)
			c.Edges[e].Faces = append(c.Edges[e].Faces, fi)
		}
	}
	c.Faces = append(c.Faces, f)
}

// segment returns the edge joining two points, creating it on first use. An
// edge stays interior only while every primitive that produced it did so
// through a face interior.
func (b *builder) segment(p, q int, interior bool) (int32, bool) {
	if p == q {
		return -1, false
	}
	c := b.c
	a, z := int32(p), int32(q)
	if a > z {
		a, z = z, a
	}
	key := edgeKey(a, z)
	if e, ok := c.index[key]; ok {
		if !interior {
			c.Edges[e].Interior = false
		}
		return e, true
	}

	e := int32(len(c.Edges))
	c.Edges = append(c.Edges, Edge{
		V0:       a,
		V1:       z,
		Length:   c.Distance(a, z),
		Interior: interior,
	})
	c.index[key] = e
	c.Vertices[a].Links = append(c.Vertices[a].Links, Link{To: z, Edge: e})
	c.Vertices[z].Links = append(c.Vertices[z].Links, Link{To: a, Edge: e})
	return e, true
}

func containsEdge(edges []int32, e int32) bool {
	for _, x := range edges {
		if x == e {
			return true
		}
	}
	return false
}

// UpdatePositions refreshes vertex positions and edge lengths from doc
// without rebuilding connectivity. doc must have the topology the cage was
// built from.
func (c *Cage) UpdatePositions(doc mesh.Document) {
	for i := range c.Vertices {
		c.Vertices[i].Pos = doc.Position(c.Vertices[i].Point)
	}
	for i := range c.Edges {
		e := &c.Edges[i]
		e.Length = c.Distance(e.V0, e.V1)
	}
	c.PositionVersion = doc.PositionVersion()
}
