// Package project serves host documents: it keeps one engine per open
// document, persists committed transactions and announces them to watchers.
package project

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/geom"
	"github.com/siteshift/siteshift/internal/orient"
	"github.com/siteshift/siteshift/internal/store"
	"github.com/siteshift/siteshift/internal/typeid"
)

// Notifier receives document events for live watchers.
type Notifier interface {
	PublishDirty(ev document.DirtyEvent)
	PublishResult(documentID, requestID string, res *engine.Result)
}

type nopNotifier struct{}

func (nopNotifier) PublishDirty(document.DirtyEvent)                {}
func (nopNotifier) PublishResult(string, string, *engine.Result) {}

// Summary is the list view of a document.
type Summary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
	Entities int    `json:"entities"`
	Open     bool   `json:"open"`
}

type Service struct {
	store    store.Store
	notifier Notifier
	opts     []engine.Option

	mu      sync.Mutex
	engines map[string]*engine.Engine
}

// NewService creates a service over st. A nil notifier drops events.
func NewService(st store.Store, notifier Notifier, opts ...engine.Option) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		store:    st,
		notifier: notifier,
		opts:     opts,
		engines:  make(map[string]*engine.Engine),
	}
}

// Open returns the engine for a document, loading it from the store on first
// use.
func (s *Service) Open(ctx context.Context, documentID string) (*engine.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if eng, ok := s.engines[documentID]; ok {
		return eng, nil
	}

	snap, err := s.store.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.attach(snap)
}

// attach builds and caches an engine for snap. Caller holds s.mu.
func (s *Service) attach(snap *document.Snapshot) (*engine.Engine, error) {
	eng := engine.NewEngine(s.opts...)
	if err := eng.Load(snap); err != nil {
		return nil, err
	}
	eng.Subscribe(s.notifier.PublishDirty)
	s.engines[snap.ID] = eng
	return eng, nil
}

// List returns every stored document, open or not.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		s.mu.Lock()
		eng, open := s.engines[id]
		s.mu.Unlock()

		var snap *document.Snapshot
		if open {
			snap, err = eng.Snapshot()
		} else {
			snap, err = s.store.Load(ctx, id)
		}
		if err != nil {
			slog.Warn("skip unreadable document", "document", id, "error", err)
			continue
		}
		out = append(out, Summary{
			ID:       snap.ID,
			Name:     snap.Name,
			Version:  snap.Version,
			Entities: len(snap.Entities),
			Open:     open,
		})
	}
	return out, nil
}

// Create stores a new document and opens it. An empty ID is assigned.
func (s *Service) Create(ctx context.Context, snap *document.Snapshot) (*document.Snapshot, error) {
	if snap == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document is required")
	}
	if snap.ID == "" {
		snap.ID = typeid.NewDocumentID()
	}
	if snap.Version < 1 {
		snap.Version = 1
	}
	// Validates IDs and relationships before anything is written.
	if _, err := document.New(snap); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.engines[snap.ID]; ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document %s already exists", snap.ID)
	}
	if _, err := s.store.Load(ctx, snap.ID); err == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "document %s already exists", snap.ID)
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}
	eng, err := s.attach(snap)
	if err != nil {
		return nil, err
	}
	slog.Info("document created", "document", snap.ID, "entities", len(snap.Entities))
	return eng.Snapshot()
}

// CreateSample stores a fresh copy of the sample building.
func (s *Service) CreateSample(ctx context.Context) (*document.Snapshot, error) {
	return s.Create(ctx, document.NewSampleDocument(""))
}

// Transform runs one transaction on a document. Committed results are
// persisted; every result is published to the document's watchers.
func (s *Service) Transform(ctx context.Context, documentID, requestID string, req engine.Request) (*engine.Result, error) {
	eng, err := s.Open(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if requestID == "" {
		requestID = typeid.NewOpID()
	}

	res, err := eng.Apply(ctx, req)
	if res == nil {
		return nil, err
	}
	s.notifier.PublishResult(documentID, requestID, res)
	if !res.Committed() {
		return res, err
	}

	snap, serr := eng.Snapshot()
	if serr == nil {
		serr = s.store.Save(ctx, snap)
	}
	if serr != nil {
		slog.Error("persist committed transform", "document", documentID, "request", requestID, "error", serr)
		return res, errors.Wrap(errors.ErrCodeInternal, serr, "transform committed but not saved")
	}
	return res, nil
}

// Snapshot returns the current state of a document.
func (s *Service) Snapshot(ctx context.Context, documentID string) (*document.Snapshot, error) {
	eng, err := s.Open(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return eng.Snapshot()
}

// Entity returns one entity of a document.
func (s *Service) Entity(ctx context.Context, documentID, entityID string) (*document.Entity, error) {
	eng, err := s.Open(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return eng.Entity(entityID)
}

// Inspect reports the visible orientation of the document's point entities.
func (s *Service) Inspect(ctx context.Context, documentID string, f document.Filter) ([]orient.Report, error) {
	eng, err := s.Open(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return eng.Inspect(f)
}

// Diagnose reports what t does to probe without touching any document.
func (s *Service) Diagnose(t geom.Rigid, probe geom.Vec3) (geom.Diagnostics, error) {
	if err := t.Validate(); err != nil {
		return geom.Diagnostics{}, err
	}
	t, _ = geom.NewRigid(t.Axis, t.Angle, t.Pivot, t.Translation)
	return t.Diagnose(probe), nil
}
