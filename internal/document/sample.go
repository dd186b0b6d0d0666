package document

import (
	"time"

	"github.com/siteshift/siteshift/internal/geom"
	"github.com/siteshift/siteshift/internal/typeid"
)

// NewSampleDocument builds a small building: four joined walls with a hosted
// door and window, a floor sketch, an elevation marker spawning four views,
// a section, a plan view template and two annotations.
func NewSampleDocument(documentID string) *Snapshot {
	now := time.Now().UTC().Format(time.RFC3339)
	if documentID == "" {
		documentID = typeid.NewDocumentID()
	}

	north, east, south, west := typeid.NewCurveID(), typeid.NewCurveID(), typeid.NewCurveID(), typeid.NewCurveID()
	doorID, windowID := typeid.NewPointID(), typeid.NewPointID()
	floorID := typeid.NewProfileID()
	markerID := typeid.NewPointID()
	viewIDs := []string{typeid.NewViewID(), typeid.NewViewID(), typeid.NewViewID(), typeid.NewViewID()}
	sectionID, templateID := typeid.NewViewID(), typeid.NewViewID()
	tagID, dimID := typeid.NewAnnotationID(), typeid.NewAnnotationID()

	corners := []geom.Vec3{geom.V(0, 0, 0), geom.V(20, 0, 0), geom.V(20, 10, 0), geom.V(0, 10, 0)}
	wall := func(id, name string, a, b int, joins ...string) *Entity {
		return &Entity{
			ID:       id,
			Kind:     KindCurve,
			Category: "Walls",
			Name:     name,
			Joins:    joins,
			Curve:    &CurveState{Points: []geom.Vec3{corners[a], corners[b]}},
		}
	}

	entities := []*Entity{
		wall(south, "South wall", 0, 1, east, west),
		wall(east, "East wall", 1, 2, north),
		wall(north, "North wall", 2, 3, west),
		wall(west, "West wall", 3, 0),
		{
			ID:       doorID,
			Kind:     KindPoint,
			Category: "Doors",
			Name:     "Entry door",
			Host:     south,
			Point: &PointState{
				Position: geom.V(5, 0, 0),
				Orientation: &Orientation{
					Encoding:      EncodingFlip,
					Frame:         geom.Frame{Facing: geom.V(0, 1, 0), Right: geom.V(-1, 0, 0), Up: geom.V(0, 0, 1)},
					FacingFlipped: true,
				},
			},
		},
		{
			ID:       windowID,
			Kind:     KindPoint,
			Category: "Windows",
			Name:     "East window",
			Host:     east,
			Point: &PointState{
				Position: geom.V(20, 5, 1),
				Orientation: &Orientation{
					Encoding: EncodingFrame,
					Frame:    geom.WorldFrame(),
				},
			},
		},
		{
			ID:       floorID,
			Kind:     KindProfile,
			Category: "Floors",
			Name:     "Ground floor slab",
			Profile:  &ProfileState{Loop: append([]geom.Vec3(nil), corners...)},
		},
		{
			ID:       markerID,
			Kind:     KindPoint,
			Category: "ElevationMarks",
			Name:     "Interior elevation marker",
			Views:    viewIDs,
			Point: &PointState{
				Position:    geom.V(10, 5, 0),
				Orientation: &Orientation{Encoding: EncodingFrame, Frame: geom.WorldFrame()},
			},
		},
		sampleView(viewIDs[0], "Elevation North", geom.V(10, 5, 0), geom.V(0, 1, 0), true),
		sampleView(viewIDs[1], "Elevation East", geom.V(10, 5, 0), geom.V(1, 0, 0), true),
		sampleView(viewIDs[2], "Elevation South", geom.V(10, 5, 0), geom.V(0, -1, 0), true),
		sampleView(viewIDs[3], "Elevation West", geom.V(10, 5, 0), geom.V(-1, 0, 0), false),
		sampleView(sectionID, "Section A", geom.V(10, -2, 0), geom.V(0, 1, 0), true),
		func() *Entity {
			v := sampleView(templateID, "Plan template", geom.V(0, 0, 0), geom.V(0, 0, -1), false)
			v.Template = true
			v.View.Up = geom.V(0, 1, 0)
			v.View.Right = geom.V(1, 0, 0)
			return v
		}(),
		{
			ID:       tagID,
			Kind:     KindAnnotation,
			Category: "Tags",
			Name:     "Door tag",
			Annotation: &AnnotationState{
				Position:  ptr(geom.V(5, -1, 0)),
				Direction: ptr(geom.V(1, 0, 0)),
				Refs:      []string{doorID},
			},
		},
		{
			ID:       dimID,
			Kind:     KindAnnotation,
			Category: "Dimensions",
			Name:     "Overall length",
			Annotation: &AnnotationState{
				Points: []geom.Vec3{geom.V(0, -2, 0), geom.V(20, -2, 0)},
				Refs:   []string{south, north},
			},
		},
	}

	return &Snapshot{
		ID:        documentID,
		Name:      "Sample building",
		Version:   1,
		UpdatedAt: now,
		Entities:  entities,
	}
}

// sampleView builds a view looking along look with +Z up and a right-hand
// axis of look×up, cropped to a 24×8 window when crop is set.
func sampleView(id, name string, origin, look geom.Vec3, crop bool) *Entity {
	up := geom.V(0, 0, 1)
	v := &ViewState{
		Origin: origin,
		Look:   look,
		Up:     up,
		Right:  look.Cross(up),
	}
	if crop {
		v.Crop = &CropWindow{
			Active: true,
			Anchor: origin,
			Min:    [2]float64{-12, 0},
			Max:    [2]float64{12, 8},
		}
	}
	return &Entity{ID: id, Kind: KindView, Category: "Views", Name: name, View: v}
}

func ptr[T any](v T) *T {
	return &v
}
