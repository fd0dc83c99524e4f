package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// PrimKind enumerates the primitive types a document may contain.
type PrimKind int

const (
	PrimPolygon PrimKind = iota // closed vertex loop
	PrimPatch                   // rows x cols hull of quads
	PrimCurve                   // open or closed polyline
	PrimPoints                  // unconnected point cloud
	PrimVolume                  // implicit volume, no flat connectivity
)

func (k PrimKind) String() string {
	switch k {
	case PrimPolygon:
		return "polygon"
	case PrimPatch:
		return "patch"
	case PrimCurve:
		return "curve"
	case PrimPoints:
		return "points"
	case PrimVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// Document is the read-only view of a mesh the distance core consumes.
//
// Versions must increase monotonically: TopologyVersion whenever points or
// primitives are added, removed or rewired, PositionVersion whenever point
// positions are edited. They are compared, never inspected.
type Document interface {
	NumPoints() int
	Position(pt int) v3.Vec

	NumPrimitives() int
	PrimKind(prim int) PrimKind
	// PrimVertices returns the point indices of the primitive's vertex
	// loop. Callers must not modify the returned slice.
	PrimVertices(prim int) []int
	// PrimClosed reports whether a curve wraps from its last vertex back
	// to its first. Polygons are always closed.
	PrimClosed(prim int) bool
	// PrimGrid returns the hull dimensions of a patch primitive.
	PrimGrid(prim int) (rows, cols int)

	TopologyVersion() uint64
	PositionVersion() uint64
}

// Group is a named set of points, used as the source set of a distance
// query.
type Group struct {
	Name   string
	Points []int
}

// Len returns the number of points in the group.
func (g Group) Len() int {
	return len(g.Points)
}
