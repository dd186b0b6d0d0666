package engine

import (
	"time"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/resolve"
	"github.com/siteshift/siteshift/internal/viewsync"
)

// Failure is the error half of a rolled-back Result.
type Failure struct {
	Code     errors.Code `json:"code"`
	EntityID string      `json:"entityId,omitempty"`
	Message  string      `json:"message"`
}

// Result is the structured report of one transform transaction. It is
// returned for every outcome, committed or not.
type Result struct {
	ID         string                `json:"id"`
	DocumentID string                `json:"documentId"`
	State      State                 `json:"state"`
	Version    int                   `json:"version"`
	Counts     map[document.Kind]int `json:"counts"`
	Skipped    []resolve.Skip        `json:"skipped,omitempty"`
	Violations []*errors.Violation   `json:"violations,omitempty"`
	Failure    *Failure              `json:"failure,omitempty"`
	Sync       *viewsync.Report      `json:"sync,omitempty"`
	Duration   time.Duration         `json:"duration"`

	// Transformed lists every moved entity in stable order. Empty unless
	// the transaction committed.
	Transformed []string `json:"transformed,omitempty"`
}

func newResult(id, documentID string) *Result {
	return &Result{
		ID:         id,
		DocumentID: documentID,
		State:      StatePending,
		Counts:     make(map[document.Kind]int),
	}
}

// Committed reports whether the document now reflects the transform.
func (r *Result) Committed() bool {
	return r.State == StateCommitted
}

// Total returns the number of transformed entities.
func (r *Result) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// Completion is transformed / (transformed + skipped), or 1 when the
// closure was empty.
func (r *Result) Completion() float64 {
	done := r.Total()
	all := done + len(r.Skipped)
	if all == 0 {
		return 1
	}
	return float64(done) / float64(all)
}

func (r *Result) fail(err error) {
	r.Failure = &Failure{
		Code:     errors.GetCode(err),
		EntityID: errors.EntityOf(err),
		Message:  err.Error(),
	}
	if r.Failure.Code == "" {
		r.Failure.Code = errors.ErrCodeInternal
	}
}
