package engine

import (
	"math"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/geom"
	"github.com/siteshift/siteshift/internal/orient"
)

// endpointPair is one coincident endpoint of two joined curves.
type endpointPair struct {
	a, b       string
	aEnd, bEnd int // 0 for the first point, 1 for the last
}

// baseline is what the invariants are measured against, captured before
// anything moves.
type baseline struct {
	joins       []endpointPair
	edges       map[string][]float64
	crossed     map[string]bool
	hostOffsets map[string]geom.Vec3 // hosted entity -> vector from its host
}

func endpoint(e *document.Entity, end int) (geom.Vec3, bool) {
	if e.Curve == nil || len(e.Curve.Points) == 0 {
		return geom.Vec3{}, false
	}
	if end == 0 {
		return e.Curve.Points[0], true
	}
	return e.Curve.Points[len(e.Curve.Points)-1], true
}

// anchorOf returns the entity an offset is kept to: the host for hosted
// entities and the marker for views.
func anchorOf(h Host, e *document.Entity) string {
	if e.Host != "" {
		return e.Host
	}
	if e.Kind == document.KindView {
		if m, err := h.Related(e.ID, document.RelMarker); err == nil && len(m) == 1 {
			return m[0]
		}
	}
	return ""
}

// offset is the vector from the anchor's reference point to e's.
func offset(h Host, e *document.Entity, anchor string) (geom.Vec3, bool) {
	a, err := h.Entity(anchor)
	if err != nil {
		return geom.Vec3{}, false
	}
	p, ok := e.ReferencePoint()
	q, ok2 := a.ReferencePoint()
	if !ok || !ok2 {
		return geom.Vec3{}, false
	}
	return p.Sub(q), true
}

func (c *Coordinator) capture(h Host, ids []string, members map[string]bool) (*baseline, error) {
	b := &baseline{
		edges:       make(map[string][]float64),
		crossed:     make(map[string]bool),
		hostOffsets: make(map[string]geom.Vec3),
	}
	for _, id := range ids {
		e, err := h.Entity(id)
		if err != nil {
			return nil, err
		}

		switch e.Kind {
		case document.KindCurve:
			partners, err := h.Related(id, document.RelJoin)
			if err != nil {
				return nil, err
			}
			for _, pid := range partners {
				if pid < id || !members[pid] {
					continue
				}
				p, err := h.Entity(pid)
				if err != nil {
					return nil, err
				}
				for ae := 0; ae < 2; ae++ {
					for be := 0; be < 2; be++ {
						x, ok1 := endpoint(e, ae)
						y, ok2 := endpoint(p, be)
						if ok1 && ok2 && geom.Near(x, y, c.eps) {
							b.joins = append(b.joins, endpointPair{a: id, b: pid, aEnd: ae, bEnd: be})
						}
					}
				}
			}
		case document.KindProfile:
			if e.Profile != nil {
				b.edges[id] = geom.EdgeLengths(e.Profile.Loop)
				b.crossed[id] = geom.SelfIntersects(e.Profile.Loop, c.eps)
			}
		}

		if anchor := anchorOf(h, e); anchor != "" && members[anchor] {
			if v, ok := offset(h, e, anchor); ok {
				b.hostOffsets[id] = v
			}
		}
	}
	return b, nil
}

// check re-measures every captured relationship and every frame in the
// moved set after t. A host offset must come out as t's rotation of the
// captured one. It returns all violations, not just the first.
func (c *Coordinator) check(h Host, ids []string, b *baseline, t geom.Rigid) errors.Violations {
	var out errors.Violations

	for _, jp := range b.joins {
		a, errA := h.Entity(jp.a)
		p, errB := h.Entity(jp.b)
		if errA != nil || errB != nil {
			out = append(out, errors.NewViolation(errors.JoinDrift, jp.a, "joined curve %s disappeared", jp.b))
			continue
		}
		x, _ := endpoint(a, jp.aEnd)
		y, _ := endpoint(p, jp.bEnd)
		if d := geom.Dist(x, y); d > c.eps {
			out = append(out, errors.NewViolation(errors.JoinDrift, jp.a, "endpoint shared with %s drifted by %g", jp.b, d))
		}
	}

	for _, id := range ids {
		e, err := h.Entity(id)
		if err != nil {
			continue
		}

		switch e.Kind {
		case document.KindProfile:
			if v := c.checkProfile(e, b); v != nil {
				out = append(out, v)
			}
		case document.KindPoint:
			if e.Point != nil && e.Point.Orientation != nil && !c.frameOK(e.Point.Orientation) {
				out = append(out, errors.NewViolation(errors.NonOrthonormalFrame, id, "orientation frame is not orthonormal"))
			}
		case document.KindView:
			if e.View != nil && !e.View.Frame().IsOrthonormal(c.eps) {
				out = append(out, errors.NewViolation(errors.NonOrthonormalFrame, id, "view direction triple is not orthonormal"))
			}
		}

		if before, ok := b.hostOffsets[id]; ok {
			want := t.ApplyToVector(before)
			got, ok := offset(h, e, anchorOf(h, e))
			if !ok || !geom.Near(got, want, c.eps) {
				out = append(out, errors.NewViolation(errors.HostOffsetDrift, id, "offset from host is %v, want %v", got, want))
			}
		}
	}
	return out
}

func (c *Coordinator) checkProfile(e *document.Entity, b *baseline) *errors.Violation {
	before, ok := b.edges[e.ID]
	if !ok || e.Profile == nil {
		return nil
	}
	after := geom.EdgeLengths(e.Profile.Loop)
	if len(after) != len(before) {
		return errors.NewViolation(errors.ProfileNotClosed, e.ID, "loop changed from %d to %d edges", len(before), len(after))
	}
	for i := range after {
		if d := math.Abs(after[i] - before[i]); d > c.eps {
			return errors.NewViolation(errors.ProfileNotClosed, e.ID, "edge %d changed length by %g", i, d)
		}
	}
	if !b.crossed[e.ID] && geom.SelfIntersects(e.Profile.Loop, c.eps) {
		return errors.NewViolation(errors.ProfileNotClosed, e.ID, "loop now crosses itself")
	}
	return nil
}

func (c *Coordinator) frameOK(o *document.Orientation) bool {
	if !o.Frame.IsOrthonormal(c.eps) {
		return false
	}
	if o.Encoding == document.EncodingFlip {
		_, err := orient.Compose(o.Frame, orient.FlipsOf(o), c.eps)
		return err == nil
	}
	return true
}
