package geodesic

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"

	"github.com/chazu/surfdist/pkg/cage"
	"github.com/chazu/surfdist/pkg/walk"
)

// vertexBox is a cage vertex stored in the mirror index.
type vertexBox struct {
	v   int32
	box rtreego.Rect
}

func (b *vertexBox) Bounds() rtreego.Rect { return b.box }

// mirrorIndex finds the vertex nearest a mirrored position. It is valid for
// one topology and position version of the cage it was built from.
type mirrorIndex struct {
	cage     *cage.Cage
	topology uint64
	position uint64
	tree     *rtreego.Rtree
}

func newMirrorIndex(c *cage.Cage) *mirrorIndex {
	objs := make([]rtreego.Spatial, len(c.Vertices))
	for i, v := range c.Vertices {
		objs[i] = &vertexBox{v: int32(i), box: point(v.Pos).ToRect(0)}
	}
	return &mirrorIndex{
		cage:     c,
		topology: c.TopologyVersion,
		position: c.PositionVersion,
		tree:     rtreego.NewTree(3, 25, 50, objs...),
	}
}

func (m *mirrorIndex) current(c *cage.Cage) bool {
	return m != nil && m.cage == c && m.topology == c.TopologyVersion && m.position == c.PositionVersion
}

// nearest returns the vertex closest to p within tol, preferring the lowest
// index on equal distance.
func (m *mirrorIndex) nearest(p v3.Vec, tol float64) (int32, bool) {
	best, bestDist := int32(-1), tol
	for _, s := range m.tree.SearchIntersect(point(p).ToRect(tol)) {
		vb := s.(*vertexBox)
		d := m.cage.Vertices[vb.v].Pos.Sub(p).Length()
		if d > bestDist || (d == bestDist && best >= 0 && vb.v > best) {
			continue
		}
		best, bestDist = vb.v, d
	}
	return best, best >= 0
}

func point(p v3.Vec) rtreego.Point {
	return rtreego.Point{p.X, p.Y, p.Z}
}

// mirrorSources adds the mirror counterpart of each source. A counterpart
// keeps its own point as identity. Sources with no counterpart within tol
// stay unmirrored.
func mirrorSources(c *cage.Cage, idx *mirrorIndex, sym Symmetry, tol float64, sources []int32) []walk.Source {
	out := make([]walk.Source, 0, 2*len(sources))
	for _, s := range sources {
		out = append(out, walk.Source{Vertex: s, ID: s})
	}
	for _, s := range sources {
		m, ok := idx.nearest(sym.Mirror(c.Vertices[s].Pos), tol)
		if ok && m != s {
			out = append(out, walk.Source{Vertex: m, ID: m})
		}
	}
	return out
}

// sideMask marks the cage vertices belonging to side. Vertices within tol of
// the plane belong to both sides.
func sideMask(c *cage.Cage, sym Symmetry, side Side, tol float64) []bool {
	mask := make([]bool, len(c.Vertices))
	for i, v := range c.Vertices {
		mask[i] = side.contains(sym.offset(v.Pos), tol)
	}
	return mask
}
