// Package viewsync re-derives cached view state and re-checks annotation
// references once a transform has committed. Its work is cosmetic: failures
// are reported, never rolled back.
package viewsync

import (
	"log/slog"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/geom"
)

// Host is the slice of the host document the synchronizer touches.
type Host interface {
	Entity(id string) (*document.Entity, error)
	BeginScope(name string) (document.Scope, error)
	MarkDirty(id string)
}

// Issue is a non-fatal synchronization problem.
type Issue struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// Report summarizes one synchronization pass.
type Report struct {
	CropsRecomputed      int      `json:"cropsRecomputed"`
	AnnotationsValidated int      `json:"annotationsValidated"`
	Excluded             []string `json:"excluded,omitempty"`
	Issues               []Issue  `json:"issues,omitempty"`
}

// Clean reports whether the pass found nothing to complain about.
func (r *Report) Clean() bool {
	return len(r.Issues) == 0
}

type Synchronizer struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{logger: logger}
}

// Sync processes the committed entities. moved holds every entity the
// transaction transformed; annotations must not have moved without the
// entities they reference. Template entities are excluded by their flag.
func (s *Synchronizer) Sync(h Host, ids []string, moved map[string]bool) Report {
	var rep Report

	scope, err := h.BeginScope("sync")
	if err != nil {
		rep.Issues = append(rep.Issues, Issue{Reason: "open sync scope: " + err.Error()})
		return rep
	}

	for _, id := range ids {
		e, err := h.Entity(id)
		if err != nil {
			rep.Issues = append(rep.Issues, Issue{ID: id, Reason: err.Error()})
			continue
		}
		if e.Template {
			rep.Excluded = append(rep.Excluded, id)
			continue
		}

		switch e.Kind {
		case document.KindView:
			if s.syncCrop(e) {
				rep.CropsRecomputed++
				h.MarkDirty(id)
			}
		case document.KindAnnotation:
			rep.AnnotationsValidated++
			rep.Issues = append(rep.Issues, s.checkRefs(h, e, moved)...)
			h.MarkDirty(id)
		}
	}

	if err := scope.Commit(); err != nil {
		rep.Issues = append(rep.Issues, Issue{Reason: "commit sync scope: " + err.Error()})
	}
	for _, is := range rep.Issues {
		s.logger.Warn("sync issue", "entity", is.ID, "reason", is.Reason)
	}
	return rep
}

// syncCrop recomputes the world-space bounds of an active crop window from
// the view's current frame. Inactive windows drop their cached bounds.
func (s *Synchronizer) syncCrop(e *document.Entity) bool {
	v := e.View
	if v == nil || v.Crop == nil {
		return false
	}
	if !v.Crop.Active {
		v.Crop.World = nil
		return false
	}
	c := v.Crop.Corners(v.Right, v.Up)
	box := geom.BoxOf(c[:]...)
	v.Crop.World = &box
	return true
}

func (s *Synchronizer) checkRefs(h Host, e *document.Entity, moved map[string]bool) []Issue {
	if e.Annotation == nil {
		return nil
	}
	var issues []Issue
	for _, ref := range e.Annotation.Refs {
		if _, err := h.Entity(ref); err != nil {
			issues = append(issues, Issue{ID: e.ID, Reason: "annotated entity " + ref + " no longer exists"})
			continue
		}
		if moved[e.ID] && !moved[ref] {
			issues = append(issues, Issue{ID: e.ID, Reason: "annotation moved without annotated entity " + ref})
		}
	}
	return issues
}
