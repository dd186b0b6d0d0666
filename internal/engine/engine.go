package engine

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/orient"
)

// Engine owns one host document and serialises transform transactions on it.
// Readers may call the query methods concurrently with Apply.
type Engine struct {
	mu    sync.Mutex
	doc   *document.Document
	coord *Coordinator
	opts  []Option

	subscribers []func(document.DirtyEvent)
}

// NewEngine creates an engine with no document loaded.
func NewEngine(opts ...Option) *Engine {
	return &Engine{opts: opts}
}

// --- Commands ---

// Load replaces the engine's document with one built from snap.
func (e *Engine) Load(snap *document.Snapshot) error {
	doc, err := document.New(snap)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, fn := range e.subscribers {
		doc.Subscribe(fn)
	}
	e.doc = doc
	e.coord = NewCoordinator(doc, e.opts...)
	return nil
}

// LoadDocument loads a document from its JSON snapshot form.
func (e *Engine) LoadDocument(jsonData string) error {
	var snap document.Snapshot
	if err := json.Unmarshal([]byte(jsonData), &snap); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode document")
	}
	return e.Load(&snap)
}

// LoadSampleDocument loads the built-in sample building.
func (e *Engine) LoadSampleDocument(documentID string) {
	if err := e.Load(document.NewSampleDocument(documentID)); err != nil {
		// The sample is well-formed by construction.
		panic(err)
	}
}

// Subscribe registers fn for dirty events of the current and any later
// loaded document. fn runs inside Apply and must not call back into the
// Engine.
func (e *Engine) Subscribe(fn func(document.DirtyEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, fn)
	if e.doc != nil {
		e.doc.Subscribe(fn)
	}
}

// Apply runs one transform transaction.
func (e *Engine) Apply(ctx context.Context, req Request) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "no document loaded")
	}
	return e.coord.Run(ctx, req)
}

// --- Queries ---

// Loaded reports whether a document is loaded.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc != nil
}

// read runs fn with the document while no transaction is in flight.
func (e *Engine) read(fn func(doc *document.Document) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return errors.New(errors.ErrCodeNotFound, "no document loaded")
	}
	return fn(e.doc)
}

// Snapshot returns a deep copy of the document.
func (e *Engine) Snapshot() (*document.Snapshot, error) {
	var snap *document.Snapshot
	err := e.read(func(doc *document.Document) error {
		snap = doc.Snapshot()
		return nil
	})
	return snap, err
}

// Entity returns a copy of one entity.
func (e *Engine) Entity(id string) (*document.Entity, error) {
	var out *document.Entity
	err := e.read(func(doc *document.Document) error {
		ent, err := doc.Entity(id)
		if err != nil {
			return err
		}
		out = ent.Clone()
		return nil
	})
	return out, err
}

// Inspect describes the orientation of every point entity matching f.
func (e *Engine) Inspect(f document.Filter) ([]orient.Report, error) {
	var out []orient.Report
	err := e.read(func(doc *document.Document) error {
		f.Kinds = []document.Kind{document.KindPoint}
		out = orient.Describe(doc, doc.Enumerate(f))
		return nil
	})
	return out, err
}

// GetDocument returns the full document as JSON.
func (e *Engine) GetDocument() string {
	snap, err := e.Snapshot()
	if err != nil {
		return "{}"
	}
	data, _ := json.Marshal(snap)
	return string(data)
}
