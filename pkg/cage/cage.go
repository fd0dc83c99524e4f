// Package cage converts heterogeneous mesh primitives into a uniform
// traversable graph: vertices with positions, edges with lengths, and the
// faces each edge borders. Polygon and patch faces additionally connect every
// pair of their vertices through the face interior so a search can cut
// across a face instead of following its boundary.
package cage

import (
	"fmt"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Link is one adjacency entry of a vertex.
type Link struct {
	To   int32 // neighbor vertex
	Edge int32 // connecting edge
}

// Vertex is a cage vertex. Its index equals the document point index.
type Vertex struct {
	Point int
	Pos   v3.Vec
	Links []Link
}

// Edge is an unordered vertex pair stored in canonical order (V0 < V1).
type Edge struct {
	V0, V1   int32
	Length   float64
	Faces    []int32
	Interior bool // only exists as a through-face connection
}

// Other returns the endpoint of e opposite v.
func (e *Edge) Other(v int32) int32 {
	if e.V0 == v {
		return e.V1
	}
	return e.V0
}

// Has reports whether v is an endpoint of e.
func (e *Edge) Has(v int32) bool {
	return e.V0 == v || e.V1 == v
}

// Face is a polygonal face contributed by a polygon or one patch cell.
type Face struct {
	Prim     int
	Vertices []int32
	Edges    []int32 // boundary and interior edges of the face
}

// Cage is the traversal graph derived from a mesh document.
type Cage struct {
	Vertices []Vertex
	Edges    []Edge
	Faces    []Face

	// Skipped collects the non-fatal conditions raised for primitives that
	// contributed nothing (ErrUnsupportedPrimitiveKind, ErrMalformedPrimitive).
	Skipped []error

	TopologyVersion uint64
	PositionVersion uint64

	index map[uint64]int32
}

// edgeKey packs a canonical pair into a map key.
func edgeKey(a, b int32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

// Edge returns the index of the edge joining a and b, in either order.
func (c *Cage) Edge(a, b int32) (int32, bool) {
	e, ok := c.index[edgeKey(a, b)]
	return e, ok
}

// Distance is the straight-line distance between two cage vertices.
func (c *Cage) Distance(a, b int32) float64 {
	return c.Vertices[a].Pos.Sub(c.Vertices[b].Pos).Length()
}

// NumVertices returns the vertex count.
func (c *Cage) NumVertices() int { return len(c.Vertices) }

// NumEdges returns the edge count.
func (c *Cage) NumEdges() int { return len(c.Edges) }

// BoundaryEdges returns the number of edges that are not interior-only.
func (c *Cage) BoundaryEdges() int {
	n := 0
	for i := range c.Edges {
		if !c.Edges[i].Interior {
			n++
		}
	}
	return n
}

func (c *Cage) String() string {
	return fmt.Sprintf("cage{vertices: %d, edges: %d, faces: %d, skipped: %d}",
		len(c.Vertices), len(c.Edges), len(c.Faces), len(c.Skipped))
}
