package mesh

import (
	"fmt"
	"sort"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ Document = (*Detail)(nil)

// Primitive is one primitive record of a Detail.
type Primitive struct {
	Kind     PrimKind `json:"kind"`
	Vertices []int    `json:"vertices"`
	Closed   bool     `json:"closed,omitempty"`
	Rows     int      `json:"rows,omitempty"` // patch hull rows
	Cols     int      `json:"cols,omitempty"` // patch hull columns
}

// Detail is an in-memory mesh document. Structural edits bump the topology
// version. SetPosition leaves the position version alone; batched edits are
// published with BumpPositionVersion.
type Detail struct {
	points []v3.Vec
	prims  []Primitive
	groups map[string][]int

	topology uint64
	position uint64
}

// NewDetail returns an empty document.
func NewDetail() *Detail {
	return &Detail{groups: make(map[string][]int)}
}

// AddPoint appends a point and returns its index.
func (d *Detail) AddPoint(p v3.Vec) int {
	d.points = append(d.points, p)
	d.topology++
	return len(d.points) - 1
}

// AddPoints appends several points and returns the index of the first.
func (d *Detail) AddPoints(ps ...v3.Vec) int {
	first := len(d.points)
	d.points = append(d.points, ps...)
	d.topology++
	return first
}

// AddPolygon appends a closed polygon over the given points.
func (d *Detail) AddPolygon(pts ...int) (int, error) {
	return d.addPrim(Primitive{Kind: PrimPolygon, Vertices: pts, Closed: true})
}

// AddCurve appends a polyline over the given points.
func (d *Detail) AddCurve(closed bool, pts ...int) (int, error) {
	return d.addPrim(Primitive{Kind: PrimCurve, Vertices: pts, Closed: closed})
}

// AddPatch appends a rows x cols hull; pts are given row-major.
func (d *Detail) AddPatch(rows, cols int, pts ...int) (int, error) {
	return d.addPrim(Primitive{Kind: PrimPatch, Vertices: pts, Rows: rows, Cols: cols})
}

// AddPointCloud appends an unconnected point primitive.
func (d *Detail) AddPointCloud(pts ...int) (int, error) {
	return d.addPrim(Primitive{Kind: PrimPoints, Vertices: pts})
}

// AddVolume appends an implicit volume primitive anchored on the given
// points.
func (d *Detail) AddVolume(pts ...int) (int, error) {
	return d.addPrim(Primitive{Kind: PrimVolume, Vertices: pts})
}

func (d *Detail) addPrim(p Primitive) (int, error) {
	for _, pt := range p.Vertices {
		if pt < 0 || pt >= len(d.points) {
			return -1, fmt.Errorf("mesh: %s vertex references point %d, document has %d points", p.Kind, pt, len(d.points))
		}
	}
	p.Vertices = append([]int(nil), p.Vertices...)
	d.prims = append(d.prims, p)
	d.topology++
	return len(d.prims) - 1, nil
}

// Merge appends every point and primitive of o, offsetting its indices, and
// returns the index of o's first point in d. Groups are not copied.
func (d *Detail) Merge(o *Detail) int {
	first := len(d.points)
	d.points = append(d.points, o.points...)
	for _, p := range o.prims {
		vs := make([]int, len(p.Vertices))
		for i, v := range p.Vertices {
			vs[i] = v + first
		}
		p.Vertices = vs
		d.prims = append(d.prims, p)
	}
	d.topology++
	return first
}

// SetPosition moves a point without bumping the position version.
func (d *Detail) SetPosition(pt int, p v3.Vec) {
	d.points[pt] = p
}

// MovePoint moves a point and bumps the position version.
func (d *Detail) MovePoint(pt int, p v3.Vec) {
	d.points[pt] = p
	d.position++
}

// BumpPositionVersion publishes position edits made with SetPosition.
func (d *Detail) BumpPositionVersion() {
	d.position++
}

// BumpTopologyVersion forces consumers to treat the document as rewired.
func (d *Detail) BumpTopologyVersion() {
	d.topology++
}

// SetGroup defines or replaces a named point group.
func (d *Detail) SetGroup(name string, pts ...int) error {
	for _, pt := range pts {
		if pt < 0 || pt >= len(d.points) {
			return fmt.Errorf("mesh: group %q references point %d, document has %d points", name, pt, len(d.points))
		}
	}
	d.groups[name] = append([]int(nil), pts...)
	return nil
}

// Group returns the named group and whether it exists.
func (d *Detail) Group(name string) (Group, bool) {
	pts, ok := d.groups[name]
	if !ok {
		return Group{}, false
	}
	return Group{Name: name, Points: pts}, true
}

// GroupNames returns the defined group names in sorted order.
func (d *Detail) GroupNames() []string {
	names := make([]string, 0, len(d.groups))
	for name := range d.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Primitive returns a copy of the primitive record.
func (d *Detail) Primitive(prim int) Primitive {
	return d.prims[prim]
}

// IsEmpty reports whether the document has no points.
func (d *Detail) IsEmpty() bool {
	return len(d.points) == 0
}

func (d *Detail) NumPoints() int               { return len(d.points) }
func (d *Detail) Position(pt int) v3.Vec       { return d.points[pt] }
func (d *Detail) NumPrimitives() int           { return len(d.prims) }
func (d *Detail) PrimKind(prim int) PrimKind   { return d.prims[prim].Kind }
func (d *Detail) PrimVertices(prim int) []int  { return d.prims[prim].Vertices }
func (d *Detail) PrimClosed(prim int) bool     { return d.prims[prim].Closed }
func (d *Detail) TopologyVersion() uint64      { return d.topology }
func (d *Detail) PositionVersion() uint64      { return d.position }
func (d *Detail) PrimGrid(prim int) (int, int) { return d.prims[prim].Rows, d.prims[prim].Cols }
