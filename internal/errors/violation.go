package errors

import (
	"fmt"
	"strings"
)

// InvariantKind names a post-apply invariant.
type InvariantKind string

const (
	// JoinDrift: endpoints of joined curves no longer coincide.
	JoinDrift InvariantKind = "JoinDrift"
	// ProfileNotClosed: a sketch loop changed shape or now crosses itself.
	ProfileNotClosed InvariantKind = "ProfileNotClosed"
	// NonOrthonormalFrame: an orientation frame lost orthonormality.
	NonOrthonormalFrame InvariantKind = "NonOrthonormalFrame"
	// HostOffsetDrift: a hosted entity's offset from its host changed.
	HostOffsetDrift InvariantKind = "HostOffsetDrift"
)

// Violation reports one failed invariant on one entity.
type Violation struct {
	Kind     InvariantKind `json:"kind"`
	EntityID string        `json:"entityId"`
	Detail   string        `json:"detail"`
}

// Error implements the error interface.
func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s on entity %s: %s", ErrCodeInvariantViolation, v.Kind, v.EntityID, v.Detail)
}

// NewViolation builds a Violation with a formatted detail.
func NewViolation(kind InvariantKind, entityID, format string, args ...any) *Violation {
	return &Violation{Kind: kind, EntityID: entityID, Detail: fmt.Sprintf(format, args...)}
}

// Violations aggregates every failed invariant of one apply pass.
type Violations []*Violation

// Error lists every violation, one per line.
func (vs Violations) Error() string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("%d invariant violation(s):\n%s", len(vs), strings.Join(parts, "\n"))
}

// Unwrap exposes the individual violations to errors.As.
func (vs Violations) Unwrap() []error {
	out := make([]error, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
