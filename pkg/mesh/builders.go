package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Chain builds n points along +X spaced by step and joins them with one open
// curve. It returns the document and the curve's point indices.
func Chain(n int, step float64) (*Detail, []int) {
	d := NewDetail()
	return d, AppendChain(d, n, step, v3.Vec{})
}

// AppendChain adds a chain starting at origin to an existing document and
// returns its point indices.
func AppendChain(d *Detail, n int, step float64, origin v3.Vec) []int {
	pts := make([]int, n)
	for i := range pts {
		pts[i] = d.AddPoint(v3.Vec{X: origin.X + float64(i)*step, Y: origin.Y, Z: origin.Z})
	}
	if n > 1 {
		// Points are in range by construction.
		_, _ = d.AddCurve(false, pts...)
	}
	return pts
}

// Grid builds a (rows+1) x (cols+1) lattice of points in the XY plane with
// one quad polygon per cell. Point (r, c) has index r*(cols+1)+c and sits at
// (c*spacing + origin.X, r*spacing + origin.Y, origin.Z).
func Grid(rows, cols int, spacing float64, origin v3.Vec) *Detail {
	d := NewDetail()
	AppendGrid(d, rows, cols, spacing, origin)
	return d
}

// AppendGrid adds a quad grid to an existing document and returns the index
// of its first point.
func AppendGrid(d *Detail, rows, cols int, spacing float64, origin v3.Vec) int {
	first := d.NumPoints()
	for r := 0; r <= rows; r++ {
		for c := 0; c <= cols; c++ {
			d.AddPoint(v3.Vec{
				X: origin.X + float64(c)*spacing,
				Y: origin.Y + float64(r)*spacing,
				Z: origin.Z,
			})
		}
	}
	at := func(r, c int) int { return first + r*(cols+1) + c }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			_, _ = d.AddPolygon(at(r, c), at(r, c+1), at(r+1, c+1), at(r+1, c))
		}
	}
	return first
}
