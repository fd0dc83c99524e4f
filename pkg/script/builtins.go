package script

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/surfdist/pkg/geodesic"
	"github.com/chazu/surfdist/pkg/kernel"
	"github.com/chazu/surfdist/pkg/mesh"
)

// ---------------------------------------------------------------------------
// Go values carried through the interpreter
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	min, max := s.solid.BoundingBox()
	return fmt.Sprintf("(solid %v %v)", min, max)
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

// kwArgs splits an argument list into keyword and positional arguments.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

func parseArgs(args []zygo.Sexp) kwArgs {
	out := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			out.positional = append(out.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			out.kw[name] = args[i+1]
			i++
		} else {
			out.kw[name] = zygo.SexpNull
		}
	}
	return out
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a keyword (:surface) or a plain string ("surface").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toPoints flattens integers, lists and arrays of integers into point ids.
func toPoints(args []zygo.Sexp) ([]int, error) {
	var pts []int
	for _, a := range args {
		if n, err := toInt(a); err == nil {
			pts = append(pts, n)
			continue
		}
		items, err := sexpListToSlice(a)
		if err != nil {
			return nil, fmt.Errorf("expected point index or list of indices, got %T (%s)", a, a.SexpString(nil))
		}
		sub, err := toPoints(items)
		if err != nil {
			return nil, err
		}
		pts = append(pts, sub...)
	}
	return pts, nil
}

func toMetric(s zygo.Sexp) (geodesic.Metric, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, err
	}
	switch name {
	case "edge":
		return geodesic.MetricEdge, nil
	case "surface":
		return geodesic.MetricSurface, nil
	case "euclidean":
		return geodesic.MetricEuclidean, nil
	case "projected":
		return geodesic.MetricProjected, nil
	}
	return 0, fmt.Errorf("invalid metric %q, expected edge, surface, euclidean or projected", name)
}

func toAxis(s zygo.Sexp) (geodesic.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	switch name {
	case "none":
		return geodesic.AxisNone, nil
	case "x":
		return geodesic.AxisX, nil
	case "y":
		return geodesic.AxisY, nil
	case "z":
		return geodesic.AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

// floatKW reads an optional numeric keyword argument.
func floatKW(pa kwArgs, key string, def float64) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func intKW(pa kwArgs, key string, def int) (int, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func vecKW(pa kwArgs, key string) (v3.Vec, error) {
	v, ok := pa.kw[key]
	if !ok {
		return v3.Vec{}, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return v3.Vec{}, fmt.Errorf("%s: %w", key, err)
	}
	return vec, nil
}

func intSexp(n int) zygo.Sexp            { return &zygo.SexpInt{Val: int64(n)} }
func floatSexp(f float64) zygo.Sexp      { return &zygo.SexpFloat{Val: f} }
func vecSexp(v v3.Vec) zygo.Sexp         { return &sexpVec3{vec: v} }
func solidSexp(s kernel.Solid) zygo.Sexp { return &sexpSolid{solid: s} }

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// register installs the DSL builtins. Hyphenated names are registered in
// their preprocessed snake_case form.
func (s *session) register(env *zygo.Zlisp) {
	for name, fn := range map[string]builtin{
		"vec3":           s.vec3,
		"point":          s.point,
		"position":       s.position,
		"npoints":        s.npoints,
		"polygon":        s.primitive(mesh.PrimPolygon),
		"cloud":          s.primitive(mesh.PrimPoints),
		"volume":         s.primitive(mesh.PrimVolume),
		"curve":          s.curve,
		"patch":          s.patch,
		"grid":           s.grid,
		"chain":          s.chain,
		"box":            s.box,
		"sphere":         s.sphere,
		"cylinder":       s.cylinder,
		"union":          s.boolean("union"),
		"difference":     s.boolean("difference"),
		"intersect":      s.boolean("intersect"),
		"translate":      s.translate,
		"rotate":         s.rotate,
		"tessellate":     s.tessellate,
		"group":          s.group,
		"move_point":     s.movePoint,
		"set_position":   s.setPosition,
		"bump_positions": s.bumpPositions,
		"distances":      s.distancesBuiltin,
		"distance":       s.distance,
		"nearest_source": s.nearestSource,
		"weight":         s.weightBuiltin,
	} {
		env.AddFunction(name, fn)
	}
}

// (vec3 1 2 3)
func (s *session) vec3(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var c [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
		}
		c[i] = f
	}
	return vecSexp(v3.Vec{X: c[0], Y: c[1], Z: c[2]}), nil
}

// (point (vec3 0 0 0)) or (point 0 0 0)
func (s *session) point(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	switch len(args) {
	case 1:
		v, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		return intSexp(s.doc.AddPoint(v)), nil
	case 3:
		v, err := s.vec3(env, name, args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		return intSexp(s.doc.AddPoint(v.(*sexpVec3).vec)), nil
	}
	return zygo.SexpNull, fmt.Errorf("point requires a vec3 or three coordinates")
}

// (position 3)
func (s *session) position(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pt, err := s.pointArg("position", args)
	if err != nil {
		return zygo.SexpNull, err
	}
	return vecSexp(s.doc.Position(pt)), nil
}

// (npoints)
func (s *session) npoints(_ *zygo.Zlisp, _ string, _ []zygo.Sexp) (zygo.Sexp, error) {
	return intSexp(s.doc.NumPoints()), nil
}

func (s *session) pointArg(fn string, args []zygo.Sexp) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s requires a point index", fn)
	}
	pt, err := toInt(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fn, err)
	}
	if pt < 0 || pt >= s.doc.NumPoints() {
		return 0, fmt.Errorf("%s: point %d out of range, document has %d points", fn, pt, s.doc.NumPoints())
	}
	return pt, nil
}

// (polygon a b c ...), (cloud ...), (volume ...)
func (s *session) primitive(kind mesh.PrimKind) builtin {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pts, err := toPoints(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", kind, err)
		}
		var prim int
		switch kind {
		case mesh.PrimPolygon:
			prim, err = s.doc.AddPolygon(pts...)
		case mesh.PrimPoints:
			prim, err = s.doc.AddPointCloud(pts...)
		default:
			prim, err = s.doc.AddVolume(pts...)
		}
		if err != nil {
			return zygo.SexpNull, err
		}
		return intSexp(prim), nil
	}
}

// (curve a b c :closed true)
func (s *session) curve(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	closed := false
	if v, ok := pa.kw["closed"]; ok {
		b, err := toBool(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("curve: closed: %w", err)
		}
		closed = b
	}
	pts, err := toPoints(pa.positional)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("curve: %w", err)
	}
	prim, err := s.doc.AddCurve(closed, pts...)
	if err != nil {
		return zygo.SexpNull, err
	}
	return intSexp(prim), nil
}

// (patch :rows 2 :cols 3 p0 p1 ...) with points in row-major order.
func (s *session) patch(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	rows, err := intKW(pa, "rows", 0)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("patch: %w", err)
	}
	cols, err := intKW(pa, "cols", 0)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("patch: %w", err)
	}
	pts, err := toPoints(pa.positional)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("patch: %w", err)
	}
	prim, err := s.doc.AddPatch(rows, cols, pts...)
	if err != nil {
		return zygo.SexpNull, err
	}
	return intSexp(prim), nil
}

// (grid :rows 3 :cols 3 :spacing 1 :origin (vec3 0 0 0)) returns the first
// point index.
func (s *session) grid(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	rows, err := intKW(pa, "rows", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("grid: %w", err)
	}
	cols, err := intKW(pa, "cols", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("grid: %w", err)
	}
	spacing, err := floatKW(pa, "spacing", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("grid: %w", err)
	}
	origin, err := vecKW(pa, "origin")
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("grid: %w", err)
	}
	if rows < 1 || cols < 1 {
		return zygo.SexpNull, fmt.Errorf("grid: rows and cols must be positive, got %dx%d", rows, cols)
	}
	return intSexp(mesh.AppendGrid(s.doc, rows, cols, spacing, origin)), nil
}

// (chain :count 5 :step 1 :origin (vec3 0 0 0)) returns the first point index.
func (s *session) chain(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	n, err := intKW(pa, "count", 2)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("chain: %w", err)
	}
	step, err := floatKW(pa, "step", 1)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("chain: %w", err)
	}
	origin, err := vecKW(pa, "origin")
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("chain: %w", err)
	}
	if n < 1 {
		return zygo.SexpNull, fmt.Errorf("chain: count must be positive, got %d", n)
	}
	return intSexp(mesh.AppendChain(s.doc, n, step, origin)[0]), nil
}

// ---------------------------------------------------------------------------
// Solids
// ---------------------------------------------------------------------------

func (s *session) floats(fn string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires %d arguments, got %d", fn, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// (box 10 10 10)
func (s *session) box(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	f, err := s.floats("box", args, 3)
	if err != nil {
		return zygo.SexpNull, err
	}
	solid, err := s.kernel.Box(f[0], f[1], f[2])
	if err != nil {
		return zygo.SexpNull, err
	}
	return solidSexp(solid), nil
}

// (sphere 5)
func (s *session) sphere(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	f, err := s.floats("sphere", args, 1)
	if err != nil {
		return zygo.SexpNull, err
	}
	solid, err := s.kernel.Sphere(f[0])
	if err != nil {
		return zygo.SexpNull, err
	}
	return solidSexp(solid), nil
}

// (cylinder height radius)
func (s *session) cylinder(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	f, err := s.floats("cylinder", args, 2)
	if err != nil {
		return zygo.SexpNull, err
	}
	solid, err := s.kernel.Cylinder(f[0], f[1])
	if err != nil {
		return zygo.SexpNull, err
	}
	return solidSexp(solid), nil
}

// (union a b), (difference a b), (intersect a b)
func (s *session) boolean(op string) builtin {
	return func(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires two solids", op)
		}
		a, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		b, err := toSolid(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
		}
		switch op {
		case "union":
			return solidSexp(s.kernel.Union(a, b)), nil
		case "difference":
			return solidSexp(s.kernel.Difference(a, b)), nil
		default:
			return solidSexp(s.kernel.Intersection(a, b)), nil
		}
	}
}

func (s *session) solidAndVec(fn string, args []zygo.Sexp) (kernel.Solid, v3.Vec, error) {
	if len(args) != 2 {
		return nil, v3.Vec{}, fmt.Errorf("%s requires a solid and a vec3", fn)
	}
	solid, err := toSolid(args[0])
	if err != nil {
		return nil, v3.Vec{}, fmt.Errorf("%s: %w", fn, err)
	}
	v, err := toVec3(args[1])
	if err != nil {
		return nil, v3.Vec{}, fmt.Errorf("%s: %w", fn, err)
	}
	return solid, v, nil
}

// (translate solid (vec3 1 0 0))
func (s *session) translate(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	solid, v, err := s.solidAndVec("translate", args)
	if err != nil {
		return zygo.SexpNull, err
	}
	return solidSexp(s.kernel.Translate(solid, v.X, v.Y, v.Z)), nil
}

// (rotate solid (vec3 0 0 90)) with Euler angles in degrees.
func (s *session) rotate(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	solid, v, err := s.solidAndVec("rotate", args)
	if err != nil {
		return zygo.SexpNull, err
	}
	return solidSexp(s.kernel.Rotate(solid, v.X, v.Y, v.Z)), nil
}

// (tessellate solid :cells 32 :weld 1e-4) meshes a solid into the document
// and returns the index of its first point.
func (s *session) tessellate(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("tessellate requires one solid")
	}
	solid, err := toSolid(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("tessellate: %w", err)
	}
	cells, err := intKW(pa, "cells", 0)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("tessellate: %w", err)
	}
	tol, err := floatKW(pa, "weld", 1e-4)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("tessellate: %w", err)
	}

	m, err := s.kernel.ToMesh(solid, cells)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("tessellate: %w", err)
	}
	welded, err := m.Weld(tol)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("tessellate: %w", err)
	}
	s.log.Debug("solid tessellated",
		"triangles", m.TriangleCount(),
		"points", welded.NumPoints(),
	)
	return intSexp(s.doc.Merge(welded)), nil
}

// ---------------------------------------------------------------------------
// Groups and edits
// ---------------------------------------------------------------------------

// (group "name" p0 p1 ...) or (group "name" (list ...))
func (s *session) group(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) < 1 {
		return zygo.SexpNull, fmt.Errorf("group requires a name")
	}
	name, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
	}
	pts, err := toPoints(args[1:])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("group: %w", err)
	}
	if err := s.doc.SetGroup(name, pts...); err != nil {
		return zygo.SexpNull, err
	}
	return &zygo.SexpStr{S: name}, nil
}

// (move-point 3 (vec3 1 2 0)) moves a point and publishes the edit.
func (s *session) movePoint(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pt, v, err := s.pointAndVec("move-point", args)
	if err != nil {
		return zygo.SexpNull, err
	}
	s.doc.MovePoint(pt, v)
	return zygo.SexpNull, nil
}

// (set-position 3 (vec3 1 2 0)) moves a point without publishing; see
// bump-positions.
func (s *session) setPosition(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pt, v, err := s.pointAndVec("set-position", args)
	if err != nil {
		return zygo.SexpNull, err
	}
	s.doc.SetPosition(pt, v)
	return zygo.SexpNull, nil
}

// (bump-positions)
func (s *session) bumpPositions(_ *zygo.Zlisp, _ string, _ []zygo.Sexp) (zygo.Sexp, error) {
	s.doc.BumpPositionVersion()
	return zygo.SexpNull, nil
}

func (s *session) pointAndVec(fn string, args []zygo.Sexp) (int, v3.Vec, error) {
	if len(args) != 2 {
		return 0, v3.Vec{}, fmt.Errorf("%s requires a point index and a vec3", fn)
	}
	pt, err := s.pointArg(fn, args[:1])
	if err != nil {
		return 0, v3.Vec{}, err
	}
	v, err := toVec3(args[1])
	if err != nil {
		return 0, v3.Vec{}, fmt.Errorf("%s: %w", fn, err)
	}
	return pt, v, nil
}

// ---------------------------------------------------------------------------
// Distance queries
// ---------------------------------------------------------------------------

// (distances "group" :radius 2 :metric :surface :attribute "falloff"
//            :symmetry :x :origin 0 :tolerance 1e-4 :rolloff :smooth)
//
// Runs a query and returns the number of affected points.
func (s *session) distancesBuiltin(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) != 1 {
		return zygo.SexpNull, fmt.Errorf("distances requires a group name")
	}
	group, err := toString(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("distances: group: %w", err)
	}
	p := queryParams{group: group, metric: geodesic.MetricSurface}

	if p.radius, err = floatKW(pa, "radius", 1); err != nil {
		return zygo.SexpNull, fmt.Errorf("distances: %w", err)
	}
	if v, ok := pa.kw["metric"]; ok {
		if p.metric, err = toMetric(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("distances: metric: %w", err)
		}
	}
	if v, ok := pa.kw["attribute"]; ok {
		if p.attribute, err = toString(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("distances: attribute: %w", err)
		}
	}
	if v, ok := pa.kw["symmetry"]; ok {
		if p.symmetry.Axis, err = toAxis(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("distances: symmetry: %w", err)
		}
	}
	if p.symmetry.Origin, err = floatKW(pa, "origin", 0); err != nil {
		return zygo.SexpNull, fmt.Errorf("distances: %w", err)
	}
	if p.symmetry.Tolerance, err = floatKW(pa, "tolerance", 0); err != nil {
		return zygo.SexpNull, fmt.Errorf("distances: %w", err)
	}
	if v, ok := pa.kw["rolloff"]; ok {
		name, err := toKeywordString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("distances: rolloff: %w", err)
		}
		if p.rolloff, err = ParseRolloff(name); err != nil {
			return zygo.SexpNull, fmt.Errorf("distances: %w", err)
		}
	}

	q, err := s.distances(p)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("distances: %w", err)
	}
	return intSexp(len(q.Points)), nil
}

// (distance 3) returns the latest query's distance for a point, or nil.
func (s *session) distance(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pt, err := s.pointArg("distance", args)
	if err != nil {
		return zygo.SexpNull, err
	}
	if s.last == nil {
		return zygo.SexpNull, fmt.Errorf("distance: %w", ErrNoQuery)
	}
	d, ok := s.geo.Distance(pt)
	if !ok {
		return zygo.SexpNull, nil
	}
	return floatSexp(d), nil
}

// (nearest-source 3) returns the source point a point was reached from, or nil.
func (s *session) nearestSource(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pt, err := s.pointArg("nearest-source", args)
	if err != nil {
		return zygo.SexpNull, err
	}
	if s.last == nil {
		return zygo.SexpNull, fmt.Errorf("nearest-source: %w", ErrNoQuery)
	}
	src, ok := s.geo.NearestSource(pt)
	if !ok {
		return zygo.SexpNull, nil
	}
	return intSexp(src), nil
}

// (weight 3) returns the latest query's rolloff weight for a point.
func (s *session) weightBuiltin(_ *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
	pt, err := s.pointArg("weight", args)
	if err != nil {
		return zygo.SexpNull, err
	}
	w, err := s.weight(pt)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("weight: %w", err)
	}
	return floatSexp(w), nil
}
