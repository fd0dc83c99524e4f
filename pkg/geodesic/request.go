package geodesic

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/surfdist/pkg/mesh"
)

// Metric selects how distance is measured.
type Metric int

const (
	// MetricEdge walks only the edges the primitives declare.
	MetricEdge Metric = iota
	// MetricSurface also cuts straight through polygon and patch faces.
	MetricSurface
	// MetricEuclidean is straight-line distance; callers compute it.
	MetricEuclidean
	// MetricProjected is distance in a projection plane; callers compute it.
	MetricProjected
)

func (m Metric) String() string {
	switch m {
	case MetricEdge:
		return "edge"
	case MetricSurface:
		return "surface"
	case MetricEuclidean:
		return "euclidean"
	case MetricProjected:
		return "projected"
	default:
		return "unknown"
	}
}

// Supported reports whether the engine computes this metric.
func (m Metric) Supported() bool {
	return m == MetricEdge || m == MetricSurface
}

// Axis names the normal of a symmetry plane.
type Axis int

const (
	AxisNone Axis = iota
	AxisX
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisNone:
		return "none"
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Symmetry describes an optional mirror plane perpendicular to Axis at
// Origin. Points within Tolerance of the plane belong to both sides; zero
// Tolerance uses the engine default.
type Symmetry struct {
	Axis      Axis
	Origin    float64
	Tolerance float64
}

// Enabled reports whether symmetric falloff is requested.
func (s Symmetry) Enabled() bool {
	return s.Axis != AxisNone
}

// offset is the signed distance of p from the plane.
func (s Symmetry) offset(p v3.Vec) float64 {
	switch s.Axis {
	case AxisX:
		return p.X - s.Origin
	case AxisY:
		return p.Y - s.Origin
	case AxisZ:
		return p.Z - s.Origin
	}
	return 0
}

// Mirror reflects p across the plane.
func (s Symmetry) Mirror(p v3.Vec) v3.Vec {
	switch s.Axis {
	case AxisX:
		p.X = 2*s.Origin - p.X
	case AxisY:
		p.Y = 2*s.Origin - p.Y
	case AxisZ:
		p.Z = 2*s.Origin - p.Z
	}
	return p
}

// Side identifies the half of the mesh a walker covers.
type Side int

const (
	SideAll Side = iota
	SidePositive
	SideNegative
)

func (s Side) String() string {
	switch s {
	case SideAll:
		return "all"
	case SidePositive:
		return "positive"
	case SideNegative:
		return "negative"
	default:
		return "unknown"
	}
}

// contains reports whether a point at signed plane offset off lies on side s.
func (s Side) contains(off, tol float64) bool {
	switch s {
	case SidePositive:
		return off >= -tol
	case SideNegative:
		return off <= tol
	}
	return true
}

// Request holds the per-call parameters of UpdateDistances.
type Request struct {
	// Group is the source set. Out-of-range points are ignored.
	Group mesh.Group
	// Radius bounds the search; results are exact up to it.
	Radius float64
	Metric Metric
	// Attribute names the attribute the caller stores results under. It is
	// reported in logs and does not affect caching.
	Attribute string
	Symmetry  Symmetry
	// Interrupt, when set, is polled once per frontier pop alongside the
	// context.
	Interrupt func() bool
}

// Action is the cache decision taken for a call.
type Action int

const (
	ActionNone    Action = iota // degenerate input or unsupported metric
	ActionRebuild               // walkers discarded and reseeded
	ActionReuse                 // previous results returned as is
	ActionExtend                // walkers resumed toward a larger radius
	ActionShrink                // previous results re-filtered to a smaller radius
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRebuild:
		return "rebuild"
	case ActionReuse:
		return "reuse"
	case ActionExtend:
		return "extend"
	case ActionShrink:
		return "shrink"
	default:
		return "unknown"
	}
}

// Status reports the outcome of UpdateDistances.
type Status struct {
	// Completed is false when the run was interrupted; the committed
	// prefix is still exact and the next call resumes from it.
	Completed bool
	Action    Action
	Affected  int
	Pops      int
	// Skipped lists primitives the cage could not represent.
	Skipped []error
}
