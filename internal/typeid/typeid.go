package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixDocument   = "doc"
	PrefixOp         = "op"
	PrefixSnapshot   = "snap"
	PrefixPoint      = "pt"
	PrefixCurve      = "crv"
	PrefixProfile    = "prof"
	PrefixView       = "view"
	PrefixAnnotation = "annot"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewDocumentID() string   { return New(PrefixDocument) }
func NewOpID() string         { return New(PrefixOp) }
func NewSnapshotID() string   { return New(PrefixSnapshot) }
func NewPointID() string      { return New(PrefixPoint) }
func NewCurveID() string      { return New(PrefixCurve) }
func NewProfileID() string    { return New(PrefixProfile) }
func NewViewID() string       { return New(PrefixView) }
func NewAnnotationID() string { return New(PrefixAnnotation) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
