package orient

import (
	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/geom"
)

// Lookup is the read access Describe needs.
type Lookup interface {
	Entity(id string) (*document.Entity, error)
}

// Report describes the visible orientation of one point entity and the views
// it hosts, with planar angles measured from +X.
type Report struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	Category      string            `json:"category,omitempty"`
	Position      geom.Vec3         `json:"position"`
	Encoding      document.Encoding `json:"encoding,omitempty"`
	Facing        geom.Vec3         `json:"facing"`
	Hand          geom.Vec3         `json:"hand"`
	FacingAngle   float64           `json:"facingAngle"`
	HandAngle     float64           `json:"handAngle"`
	FacingFlipped bool              `json:"facingFlipped"`
	HandFlipped   bool              `json:"handFlipped"`
	Views         []ViewReport      `json:"views,omitempty"`
}

type ViewReport struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Look      geom.Vec3 `json:"look"`
	Up        geom.Vec3 `json:"up"`
	Right     geom.Vec3 `json:"right"`
	LookAngle float64   `json:"lookAngle"`
}

// Describe reports the orientation of every listed point entity that carries
// one. Entities that are missing or have no orientation are left out.
func Describe(g Lookup, ids []string) []Report {
	var out []Report
	for _, id := range ids {
		e, err := g.Entity(id)
		if err != nil || e.Kind != document.KindPoint || e.Point == nil || e.Point.Orientation == nil {
			continue
		}
		o := e.Point.Orientation
		r := Report{
			ID:            e.ID,
			Name:          e.Name,
			Category:      e.Category,
			Position:      e.Point.Position,
			Encoding:      o.Encoding,
			FacingFlipped: o.FacingFlipped,
			HandFlipped:   o.HandFlipped,
		}

		raw := o.Frame
		if o.Encoding == document.EncodingFlip {
			raw = FlipsOf(o).apply(o.Frame)
		}
		r.Facing, r.Hand = raw.Facing, raw.Right
		r.FacingAngle = geom.PlanarAngle(raw.Facing)
		r.HandAngle = geom.PlanarAngle(raw.Right)

		for _, vid := range e.Views {
			ve, err := g.Entity(vid)
			if err != nil || ve.View == nil {
				continue
			}
			r.Views = append(r.Views, ViewReport{
				ID:        ve.ID,
				Name:      ve.Name,
				Look:      ve.View.Look,
				Up:        ve.View.Up,
				Right:     ve.View.Right,
				LookAngle: geom.PlanarAngle(ve.View.Look),
			})
		}
		out = append(out, r)
	}
	return out
}
