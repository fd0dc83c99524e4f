package script

import (
	"context"
	"log/slog"

	"go.trai.ch/zerr"

	"github.com/chazu/surfdist/pkg/geodesic"
	"github.com/chazu/surfdist/pkg/kernel"
	"github.com/chazu/surfdist/pkg/mesh"
)

// session is the state one evaluation builds up.
type session struct {
	ctx    context.Context
	doc    *mesh.Detail
	geo    *geodesic.Engine
	kernel kernel.Kernel
	log    *slog.Logger

	queries []Query
	last    *lastQuery
}

// lastQuery keeps what per-point accessors need from the latest query.
type lastQuery struct {
	radius  float64
	rolloff Rolloff
}

func newSession(ctx context.Context, k kernel.Kernel, log *slog.Logger) *session {
	return &session{
		ctx:    ctx,
		doc:    mesh.NewDetail(),
		geo:    geodesic.New(geodesic.WithLogger(log)),
		kernel: k,
		log:    log,
	}
}

// queryParams are the arguments of a distance query after parsing.
type queryParams struct {
	group     string
	radius    float64
	metric    geodesic.Metric
	attribute string
	symmetry  geodesic.Symmetry
	rolloff   Rolloff
}

// distances runs a query against the session document and records it.
func (s *session) distances(p queryParams) (*Query, error) {
	if s.doc.NumPoints() == 0 {
		return nil, ErrNoDocument
	}
	g, ok := s.doc.Group(p.group)
	if !ok {
		return nil, zerr.With(zerr.Wrap(ErrUnknownGroup, p.group), "group", p.group)
	}

	st, err := s.geo.UpdateDistances(s.ctx, s.doc, geodesic.Request{
		Group:     g,
		Radius:    p.radius,
		Metric:    p.metric,
		Attribute: p.attribute,
		Symmetry:  p.symmetry,
	})
	if err != nil {
		return nil, err
	}

	q := Query{
		Attribute: p.attribute,
		Group:     p.group,
		Metric:    p.metric.String(),
		Radius:    p.radius,
		Rolloff:   p.rolloff.String(),
		Action:    st.Action.String(),
		Completed: st.Completed,
	}
	if p.symmetry.Enabled() {
		q.Symmetry = p.symmetry.Axis.String()
	}
	for _, err := range st.Skipped {
		q.Skipped = append(q.Skipped, err.Error())
	}
	for _, pt := range s.geo.AffectedSet().ToArray() {
		d, _ := s.geo.Distance(int(pt))
		src, _ := s.geo.NearestSource(int(pt))
		q.Points = append(q.Points, PointDistance{
			Point:    int(pt),
			Distance: d,
			Source:   src,
			Weight:   p.rolloff.Weight(d, p.radius),
		})
	}
	s.queries = append(s.queries, q)
	s.last = &lastQuery{radius: p.radius, rolloff: p.rolloff}
	return &s.queries[len(s.queries)-1], nil
}

// weight applies the latest query's rolloff to pt's distance. Points
// outside the affected set weigh 0.
func (s *session) weight(pt int) (float64, error) {
	if s.last == nil {
		return 0, ErrNoQuery
	}
	d, ok := s.geo.Distance(pt)
	if !ok {
		return 0, nil
	}
	return s.last.rolloff.Weight(d, s.last.radius), nil
}

func (s *session) result() *Result {
	return &Result{
		Document: s.doc,
		Points:   s.doc.NumPoints(),
		Prims:    s.doc.NumPrimitives(),
		Groups:   s.doc.GroupNames(),
		Queries:  s.queries,
	}
}
