package document

import (
	"slices"

	"github.com/siteshift/siteshift/internal/geom"
)

// Kind classifies an entity by the transform strategy it needs.
type Kind string

const (
	KindPoint      Kind = "point"
	KindCurve      Kind = "curve"
	KindProfile    Kind = "profile"
	KindView       Kind = "view"
	KindAnnotation Kind = "annotation"
)

// Kinds lists every supported kind in report order.
var Kinds = []Kind{KindPoint, KindCurve, KindProfile, KindView, KindAnnotation}

// Supported reports whether the engine knows how to transform k.
func (k Kind) Supported() bool {
	return slices.Contains(Kinds, k)
}

// Encoding says how a point entity stores its orientation.
type Encoding string

const (
	// EncodingFrame stores the raw orthonormal frame.
	EncodingFrame Encoding = "frame"
	// EncodingFlip stores a base frame plus facing/hand flip bits; the
	// visible frame is the base frame with flipped axes negated.
	EncodingFlip Encoding = "flip"
)

type Orientation struct {
	Encoding      Encoding   `json:"encoding"`
	Frame         geom.Frame `json:"frame"`
	FacingFlipped bool       `json:"facingFlipped,omitempty"`
	HandFlipped   bool       `json:"handFlipped,omitempty"`
}

type PointState struct {
	Position    geom.Vec3    `json:"position"`
	Orientation *Orientation `json:"orientation,omitempty"`
}

type CurveState struct {
	Points []geom.Vec3 `json:"points"`
}

// ProfileState is a closed sketch loop. The closing edge from the last
// vertex back to the first is implicit.
type ProfileState struct {
	Loop []geom.Vec3 `json:"loop"`
}

// CropWindow is a rectangle in the owning view's right/up axes. Min and Max
// are view-local offsets from Anchor and never change under a rigid move.
// World caches the window's world-space bounds and is re-derived after commit.
type CropWindow struct {
	Active bool       `json:"active"`
	Anchor geom.Vec3  `json:"anchor"`
	Min    [2]float64 `json:"min"`
	Max    [2]float64 `json:"max"`
	World  *geom.Box  `json:"world,omitempty"`
}

// Corners returns the window's four world-space corners for the given frame.
func (c *CropWindow) Corners(right, up geom.Vec3) [4]geom.Vec3 {
	at := func(r, u float64) geom.Vec3 {
		return c.Anchor.Add(right.Mul(r)).Add(up.Mul(u))
	}
	return [4]geom.Vec3{
		at(c.Min[0], c.Min[1]),
		at(c.Max[0], c.Min[1]),
		at(c.Max[0], c.Max[1]),
		at(c.Min[0], c.Max[1]),
	}
}

type ViewState struct {
	Origin geom.Vec3   `json:"origin"`
	Look   geom.Vec3   `json:"look"`
	Up     geom.Vec3   `json:"up"`
	Right  geom.Vec3   `json:"right"`
	Crop   *CropWindow `json:"crop,omitempty"`
}

// Frame maps the view's direction triple onto a Frame (look is facing).
func (v *ViewState) Frame() geom.Frame {
	return geom.Frame{Facing: v.Look, Right: v.Right, Up: v.Up}
}

// SetFrame writes a Frame back into the view's direction triple.
func (v *ViewState) SetFrame(f geom.Frame) {
	v.Look, v.Right, v.Up = f.Facing, f.Right, f.Up
}

// AnnotationState is a tag, dimension or note. It is placed either at a
// single Position or along Points, and never moves without the entities
// listed in Refs.
type AnnotationState struct {
	Position  *geom.Vec3  `json:"position,omitempty"`
	Points    []geom.Vec3 `json:"points,omitempty"`
	Direction *geom.Vec3  `json:"direction,omitempty"`
	Refs      []string    `json:"refs"`
}

// Entity is one transformable thing in the host document. Exactly one of the
// payload pointers matching Kind is expected to be set.
type Entity struct {
	ID       string `json:"id"`
	Kind     Kind   `json:"kind"`
	Category string `json:"category,omitempty"`
	Name     string `json:"name,omitempty"`

	// Template marks host-authored defaults (view templates and the like).
	// Set by the host at creation time; never inferred.
	Template bool `json:"template,omitempty"`

	Host  string   `json:"host,omitempty"`  // entity this one is placed relative to
	Joins []string `json:"joins,omitempty"` // curves whose endpoints coincide with ours
	Views []string `json:"views,omitempty"` // views spawned by this marker

	Point      *PointState      `json:"point,omitempty"`
	Curve      *CurveState      `json:"curve,omitempty"`
	Profile    *ProfileState    `json:"profile,omitempty"`
	View       *ViewState       `json:"view,omitempty"`
	Annotation *AnnotationState `json:"annotation,omitempty"`
}

// HasTransformableState reports whether the entity carries any position or
// orientation the engine could move.
func (e *Entity) HasTransformableState() bool {
	switch e.Kind {
	case KindPoint:
		return e.Point != nil
	case KindCurve:
		return e.Curve != nil && len(e.Curve.Points) > 0
	case KindProfile:
		return e.Profile != nil && len(e.Profile.Loop) > 0
	case KindView:
		return e.View != nil
	case KindAnnotation:
		return e.Annotation != nil && (e.Annotation.Position != nil || len(e.Annotation.Points) > 0)
	}
	return false
}

// ReferencePoint returns the position used to measure host offsets.
func (e *Entity) ReferencePoint() (geom.Vec3, bool) {
	switch {
	case e.Kind == KindPoint && e.Point != nil:
		return e.Point.Position, true
	case e.Kind == KindCurve && e.Curve != nil && len(e.Curve.Points) > 0:
		return e.Curve.Points[0], true
	case e.Kind == KindProfile && e.Profile != nil && len(e.Profile.Loop) > 0:
		return e.Profile.Loop[0], true
	case e.Kind == KindView && e.View != nil:
		return e.View.Origin, true
	case e.Kind == KindAnnotation && e.Annotation != nil:
		if e.Annotation.Position != nil {
			return *e.Annotation.Position, true
		}
		if len(e.Annotation.Points) > 0 {
			return e.Annotation.Points[0], true
		}
	}
	return geom.Vec3{}, false
}

// Clone returns a deep copy.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.Joins = slices.Clone(e.Joins)
	c.Views = slices.Clone(e.Views)

	if e.Point != nil {
		p := *e.Point
		if e.Point.Orientation != nil {
			o := *e.Point.Orientation
			p.Orientation = &o
		}
		c.Point = &p
	}
	if e.Curve != nil {
		c.Curve = &CurveState{Points: slices.Clone(e.Curve.Points)}
	}
	if e.Profile != nil {
		c.Profile = &ProfileState{Loop: slices.Clone(e.Profile.Loop)}
	}
	if e.View != nil {
		v := *e.View
		if e.View.Crop != nil {
			cw := *e.View.Crop
			if e.View.Crop.World != nil {
				w := *e.View.Crop.World
				cw.World = &w
			}
			v.Crop = &cw
		}
		c.View = &v
	}
	if e.Annotation != nil {
		a := AnnotationState{
			Points: slices.Clone(e.Annotation.Points),
			Refs:   slices.Clone(e.Annotation.Refs),
		}
		if e.Annotation.Position != nil {
			p := *e.Annotation.Position
			a.Position = &p
		}
		if e.Annotation.Direction != nil {
			d := *e.Annotation.Direction
			a.Direction = &d
		}
		c.Annotation = &a
	}
	return &c
}

// Snapshot is the serialisable form of a document.
type Snapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	UpdatedAt string    `json:"updatedAt,omitempty"`
	Entities  []*Entity `json:"entities"`
}
