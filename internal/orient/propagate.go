// Package orient carries the independent orientation of entities through a
// rigid transform: fixture frames, flip-encoded placements, view direction
// triples with their crop windows, and annotation text directions.
//
// Every direction goes through Rigid.ApplyToVector; every position through
// Rigid.ApplyToPoint. Both come from the same Rigid value as the geometry, so
// there is no separately measured angle to get the sign of wrong.
package orient

import (
	"errors"
	"fmt"

	"github.com/siteshift/siteshift/internal/document"
	xerrors "github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/geom"
)

var (
	errNotOrthonormal = errors.New("frame is not orthonormal")
	errLeftHandedBase = errors.New("base frame is not right-handed")
	errParity         = errors.New("flip bits disagree with frame handedness")
)

// Propagator updates orientation and position of point and view entities.
type Propagator struct {
	eps float64
}

// New returns a Propagator using eps for orthonormality checks.
func New(eps float64) *Propagator {
	if eps <= 0 {
		eps = geom.DefaultEpsilon
	}
	return &Propagator{eps: eps}
}

// Apply updates every orientation-bearing field of e and its position. Curve
// and profile entities have no orientation and are left to the caller.
// On error e is left unmodified.
func (p *Propagator) Apply(e *document.Entity, t geom.Rigid) error {
	switch e.Kind {
	case document.KindPoint:
		return p.point(e, t)
	case document.KindView:
		return p.view(e, t)
	case document.KindAnnotation:
		return p.annotation(e, t)
	}
	return nil
}

func (p *Propagator) point(e *document.Entity, t geom.Rigid) error {
	if e.Point == nil {
		return nil
	}
	var next *document.Orientation
	if o := e.Point.Orientation; o != nil {
		rotated, err := p.Orientation(o, t)
		if err != nil {
			return xerrors.ForEntity(xerrors.ErrCodeOrientationDecomposition, e.ID, err, "cannot carry %s orientation", encodingName(o.Encoding))
		}
		next = &rotated
	}

	e.Point.Position = t.ApplyToPoint(e.Point.Position)
	if next != nil {
		e.Point.Orientation = next
	}
	return nil
}

// Orientation returns o rotated by t. Raw frames are rotated and
// re-orthonormalized. Flip-encoded frames are recomposed to their raw frame,
// rotated, and decomposed again into base frame and flip bits.
func (p *Propagator) Orientation(o *document.Orientation, t geom.Rigid) (document.Orientation, error) {
	switch o.Encoding {
	case document.EncodingFrame, "":
		f, err := p.Frame(o.Frame, t)
		if err != nil {
			return document.Orientation{}, err
		}
		return document.Orientation{Encoding: o.Encoding, Frame: f}, nil

	case document.EncodingFlip:
		flips := FlipsOf(o)
		raw, err := Compose(o.Frame, flips, p.eps)
		if err != nil {
			return document.Orientation{}, fmt.Errorf("recompose: %w", err)
		}
		rotated, err := p.Frame(raw, t)
		if err != nil {
			return document.Orientation{}, err
		}
		base, bits, err := Decompose(rotated, flips, p.eps)
		if err != nil {
			return document.Orientation{}, fmt.Errorf("decompose: %w", err)
		}
		if back, err := Compose(base, bits, p.eps); err != nil || !back.ApproxEqual(rotated, p.eps) {
			return document.Orientation{}, errors.New("flip decomposition is not lossless")
		}
		return document.Orientation{
			Encoding:      document.EncodingFlip,
			Frame:         base,
			FacingFlipped: bits.Facing,
			HandFlipped:   bits.Hand,
		}, nil

	default:
		return document.Orientation{}, fmt.Errorf("unsupported orientation encoding %q", o.Encoding)
	}
}

// Frame rotates every axis of f as a free vector and re-orthonormalizes.
func (p *Propagator) Frame(f geom.Frame, t geom.Rigid) (geom.Frame, error) {
	if !t.IsTranslation() {
		f = f.Rotate(t)
	}
	out, err := f.Orthonormalize()
	if err != nil {
		return geom.Frame{}, err
	}
	return out, nil
}

// view rotates the direction triple and moves the origin and crop anchor.
// The crop window's view-local Min/Max stay as they are: rotating the frame
// already re-orients the window.
func (p *Propagator) view(e *document.Entity, t geom.Rigid) error {
	v := e.View
	if v == nil {
		return nil
	}
	f, err := p.Frame(v.Frame(), t)
	if err != nil {
		return xerrors.ForEntity(xerrors.ErrCodeOrientationDecomposition, e.ID, err, "cannot carry view direction")
	}

	v.SetFrame(f)
	v.Origin = t.ApplyToPoint(v.Origin)
	if v.Crop != nil {
		v.Crop.Anchor = t.ApplyToPoint(v.Crop.Anchor)
	}
	return nil
}

// annotation rotates the text direction only; positions are moved with the
// rest of the annotation geometry.
func (p *Propagator) annotation(e *document.Entity, t geom.Rigid) error {
	a := e.Annotation
	if a == nil || a.Direction == nil {
		return nil
	}
	d := t.ApplyToVector(*a.Direction)
	if d.Len() > 0 {
		d = d.Normalize()
	}
	a.Direction = &d
	return nil
}

func encodingName(enc document.Encoding) string {
	if enc == "" {
		return string(document.EncodingFrame)
	}
	return string(enc)
}
