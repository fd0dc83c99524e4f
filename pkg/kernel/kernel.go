// Package kernel defines the abstract solid modeling interface used to
// produce test and demo geometry. A kernel builds solids and tessellates
// them into triangle meshes, which Weld turns into mesh documents the
// distance engine can walk.
package kernel

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract solid modeling interface.
type Kernel interface {
	// Primitives, centered on the origin
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// ToMesh tessellates s on a grid of cells along its longest axis.
	// cells <= 0 selects the kernel default.
	ToMesh(s Solid, cells int) (*Mesh, error)
}
