// Package geodesic computes bounded surface distances from a group of
// source points over a mesh document, and caches them across calls so that
// interactive edits re-use as much of the previous search as possible.
//
// An Engine owns a cage built from the document, one walker per symmetry
// side and the merged results. It is not safe for concurrent use; separate
// engines share nothing.
package geodesic

import (
	"context"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"
	"go.trai.ch/zerr"

	"github.com/chazu/surfdist/pkg/cage"
	"github.com/chazu/surfdist/pkg/mesh"
	"github.com/chazu/surfdist/pkg/walk"
)

// Engine answers distance queries for one document at a time.
type Engine struct {
	opts   options
	log    *slog.Logger
	cage   *cage.Cage
	mirror *mirrorIndex
	cache  *distanceCache
}

// New returns an engine with no cage. The cage is built on the first call
// to UpdateDistances.
func New(opts ...Option) *Engine {
	o := applyOptions(opts)
	return &Engine{
		opts:  o,
		log:   o.logger,
		cache: newDistanceCache(),
	}
}

// UpdateDistances brings the results up to date for req. The cage is rebuilt
// only when the document's topology version changed; a position version
// change refreshes edge lengths in place. Cached walker state is reused,
// resumed, re-filtered or discarded according to the request fingerprint.
//
// Cancelling ctx or a true req.Interrupt stops the search between two
// frontier pops. The call then returns Completed=false and a nil error; the
// committed results are exact and the next call resumes the search.
func (e *Engine) UpdateDistances(ctx context.Context, doc mesh.Document, req Request) (Status, error) {
	if !req.Metric.Supported() {
		return Status{Action: ActionNone}, zerr.With(zerr.Wrap(ErrInvalidMetric, "update distances"), "metric", req.Metric.String())
	}

	e.ensureCage(doc)
	st := Status{Skipped: e.cage.Skipped}

	sources := normalizeSources(req.Group.Points, len(e.cage.Vertices))
	if len(sources) == 0 || req.Radius <= 0 {
		e.cache.invalidate()
		e.log.Debug("degenerate request",
			"group", req.Group.Name,
			"sources", len(sources),
			"radius", req.Radius,
		)
		st.Completed = true
		return st, nil
	}

	fp := Fingerprint{
		TopologyVersion: e.cage.TopologyVersion,
		PositionVersion: e.cage.PositionVersion,
		Metric:          req.Metric,
		Radius:          req.Radius,
		Symmetry:        req.Symmetry,
		SourceID:        sourceID(req.Group.Name, sources),
	}

	st.Action = e.cache.plan(fp)
	e.log.Debug("cache plan",
		"action", st.Action.String(),
		"attribute", req.Attribute,
		"metric", req.Metric.String(),
		"radius", req.Radius,
	)

	completed := true
	switch st.Action {
	case ActionReuse:
		completed = e.cache.completed
	case ActionShrink:
		e.cache.merge(req.Radius)
	case ActionRebuild:
		order, walkers := e.newWalkers(req, sources)
		e.cache.reset(len(e.cage.Vertices), order, walkers)
		fallthrough
	case ActionExtend:
		completed = e.cache.expand(req.Radius, interruption(ctx, req.Interrupt))
		e.cache.merge(req.Radius)
	}
	e.cache.commit(fp, completed)

	st.Completed = completed
	st.Affected = int(e.cache.affected.GetCardinality())
	st.Pops = e.cache.pops()
	e.log.Debug("distances updated",
		"attribute", req.Attribute,
		"completed", completed,
		"affected", st.Affected,
		"pops", st.Pops,
	)
	return st, nil
}

// ensureCage builds or refreshes the cage for doc.
func (e *Engine) ensureCage(doc mesh.Document) {
	switch {
	case e.cage == nil || e.cage.TopologyVersion != doc.TopologyVersion():
		e.cage = cage.Build(doc)
		e.mirror = nil
		e.cache.invalidate()
		e.log.Debug("cage built",
			"vertices", e.cage.NumVertices(),
			"edges", e.cage.NumEdges(),
			"faces", len(e.cage.Faces),
			"topology", e.cage.TopologyVersion,
		)
		for _, err := range e.cage.Skipped {
			e.log.Warn("primitive skipped", "error", err)
		}
	case e.cage.PositionVersion != doc.PositionVersion():
		e.cage.UpdatePositions(doc)
		e.log.Debug("cage positions refreshed", "position", e.cage.PositionVersion)
	}
}

// newWalkers seeds one walker per side. The positive side comes first so it
// wins exact ties in the merge.
func (e *Engine) newWalkers(req Request, sources []int32) ([]Side, map[Side]*walk.Walker) {
	interior := req.Metric == MetricSurface
	if !req.Symmetry.Enabled() {
		w := walk.New(e.cage, walk.Options{Interior: interior, Capacity: e.opts.capacity})
		seeds := make([]walk.Source, len(sources))
		for i, s := range sources {
			seeds[i] = walk.Source{Vertex: s, ID: s}
		}
		w.Seed(seeds)
		return []Side{SideAll}, map[Side]*walk.Walker{SideAll: w}
	}

	tol := req.Symmetry.Tolerance
	if tol <= 0 {
		tol = e.opts.mirrorTolerance
	}
	if !e.mirror.current(e.cage) {
		e.mirror = newMirrorIndex(e.cage)
	}
	seeds := mirrorSources(e.cage, e.mirror, req.Symmetry, tol, sources)

	order := []Side{SidePositive, SideNegative}
	walkers := make(map[Side]*walk.Walker, len(order))
	for _, side := range order {
		w := walk.New(e.cage, walk.Options{
			Interior: interior,
			Mask:     sideMask(e.cage, req.Symmetry, side, tol),
			Capacity: e.opts.capacity,
		})
		w.Seed(seeds)
		walkers[side] = w
	}
	return order, walkers
}

func interruption(ctx context.Context, interrupt func() bool) func() bool {
	done := ctx.Done()
	return func() bool {
		if interrupt != nil && interrupt() {
			return true
		}
		if done == nil {
			return false
		}
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}

// AffectedSet returns a copy of the points within the last radius.
func (e *Engine) AffectedSet() *roaring.Bitmap {
	return e.cache.affected.Clone()
}

// Distance returns the distance of pt from the nearest source, if pt is in
// the affected set.
func (e *Engine) Distance(pt int) (float64, bool) {
	if pt < 0 || pt >= len(e.cache.dist) || !e.cache.affected.Contains(uint32(pt)) {
		return 0, false
	}
	return e.cache.dist[pt], true
}

// NearestSource returns the source point pt was reached from. Mirrored
// sources report the mirrored point.
func (e *Engine) NearestSource(pt int) (int, bool) {
	if pt < 0 || pt >= len(e.cache.src) || !e.cache.affected.Contains(uint32(pt)) {
		return -1, false
	}
	return int(e.cache.src[pt]), true
}

// Completed reports whether the last call ran to its radius.
func (e *Engine) Completed() bool {
	return !e.cache.valid || e.cache.completed
}

// Cage returns the cage of the last call, or nil before the first.
func (e *Engine) Cage() *cage.Cage {
	return e.cage
}

// Sides lists the symmetry sides of the current walkers in merge order.
func (e *Engine) Sides() []Side {
	return append([]Side(nil), e.cache.order...)
}
