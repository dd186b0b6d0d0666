// Package store persists document snapshots between transform runs.
package store

import (
	"context"

	"github.com/siteshift/siteshift/internal/document"
)

// Store loads and saves whole document snapshots. Save never overwrites an
// older version with a newer one out of order.
type Store interface {
	Load(ctx context.Context, documentID string) (*document.Snapshot, error)
	Save(ctx context.Context, snap *document.Snapshot) error
	List(ctx context.Context) ([]string, error)
}
