package kernel

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/surfdist/pkg/mesh"
)

// Mesh is a triangle soup as produced by tessellation.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// ErrNonPositiveTolerance is returned by Weld for tol <= 0.
var ErrNonPositiveTolerance = errors.New("kernel: weld tolerance must be positive")

// Weld merges vertices closer than tol and returns a document with one
// triangle polygon per non-degenerate triangle. Tessellators emit every
// triangle with its own vertices; welding restores the shared connectivity.
func (m *Mesh) Weld(tol float64) (*mesh.Detail, error) {
	if tol <= 0 {
		return nil, ErrNonPositiveTolerance
	}
	n := m.VertexCount()
	for _, idx := range m.Indices {
		if int(idx) >= n {
			return nil, fmt.Errorf("kernel: index %d out of range, mesh has %d vertices", idx, n)
		}
	}
	cluster := make([]int, n)
	reps := make([]v3.Vec, 0, n/3)
	cells := make(map[[3]int64][]int)

	key := func(p v3.Vec) [3]int64 {
		return [3]int64{
			int64(math.Floor(p.X / tol)),
			int64(math.Floor(p.Y / tol)),
			int64(math.Floor(p.Z / tol)),
		}
	}
	for i := 0; i < n; i++ {
		p := m.vertex(i)
		k := key(p)
		found := -1
	search:
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, r := range cells[[3]int64{k[0] + dx, k[1] + dy, k[2] + dz}] {
						if reps[r].Sub(p).Length() <= tol {
							found = r
							break search
						}
					}
				}
			}
		}
		if found < 0 {
			found = len(reps)
			reps = append(reps, p)
			cells[k] = append(cells[k], found)
		}
		cluster[i] = found
	}

	d := mesh.NewDetail()
	point := make([]int, len(reps))
	for i := range point {
		point[i] = -1
	}
	use := func(r int) int {
		if point[r] < 0 {
			point[r] = d.AddPoint(reps[r])
		}
		return point[r]
	}
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := cluster[m.Indices[t]], cluster[m.Indices[t+1]], cluster[m.Indices[t+2]]
		if a == b || b == c || a == c {
			continue
		}
		if _, err := d.AddPolygon(use(a), use(b), use(c)); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (m *Mesh) vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}
