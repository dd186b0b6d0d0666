package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siteshift/siteshift/internal/document"
	xerrors "github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/typeid"
)

// Schema creates the snapshot table. Every save inserts a row; the highest
// version per document is the current one.
const Schema = `
CREATE TABLE IF NOT EXISTS document_snapshots (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	version     INTEGER NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (document_id, version)
)`

// PGStore keeps snapshot history in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPGStore ensures the schema exists.
func NewPGStore(ctx context.Context, pool *pgxpool.Pool) (*PGStore, error) {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Load(ctx context.Context, documentID string) (*document.Snapshot, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM document_snapshots WHERE document_id = $1 ORDER BY version DESC LIMIT 1`,
		documentID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.New(xerrors.ErrCodeNotFound, "document not found: %s", documentID)
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap document.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *PGStore) Save(ctx context.Context, snap *document.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO document_snapshots (id, document_id, version, name, document)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (document_id, version) DO UPDATE SET document = EXCLUDED.document, name = EXCLUDED.name`,
		typeid.NewSnapshotID(), snap.ID, snap.Version, snap.Name, data,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *PGStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT document_id FROM document_snapshots ORDER BY document_id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return ids, nil
}
