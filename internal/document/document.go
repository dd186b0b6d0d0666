package document

import (
	"slices"
	"sync"
	"time"

	"github.com/siteshift/siteshift/internal/errors"
)

// Relation names a relationship readable through Related.
type Relation string

const (
	RelHost        Relation = "host"        // the entity's host (0 or 1)
	RelHosted      Relation = "hosted"      // entities hosted by this one
	RelJoin        Relation = "join"        // symmetric curve joins
	RelViews       Relation = "views"       // views spawned by a marker
	RelMarker      Relation = "marker"      // the marker hosting a view (0 or 1)
	RelAnnotates   Relation = "annotates"   // entities an annotation references
	RelAnnotatedBy Relation = "annotatedBy" // annotations referencing this entity
)

// Filter selects candidate entities. Empty fields match everything.
type Filter struct {
	Kinds      []Kind   `json:"kinds,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

func (f Filter) match(e *Entity) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, e.Kind) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, e.Category) {
		return false
	}
	return true
}

// Scope is an exclusive write scope on a document.
type Scope interface {
	Commit() error
	Rollback() error
}

// DirtyEvent is published when entities need a redraw.
type DirtyEvent struct {
	DocumentID string   `json:"documentId"`
	Version    int      `json:"version"`
	Scope      string   `json:"scope,omitempty"`
	IDs        []string `json:"ids"`
}

// Document is the in-memory host document: the entity graph, its
// relationship indices and a single write scope at a time.
type Document struct {
	mu sync.RWMutex

	id        string
	name      string
	version   int
	updatedAt string

	order    []string
	entities map[string]*Entity

	hosted      map[string][]string // host -> hosted
	joins       map[string][]string // symmetric
	markers     map[string]string   // view -> marker
	annotatedBy map[string][]string // entity -> annotations

	scope       *scope
	subscribers []func(DirtyEvent)
}

// New builds a document from a snapshot. The snapshot's entities are copied.
func New(snap *Snapshot) (*Document, error) {
	if snap == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil snapshot")
	}
	d := &Document{
		id:          snap.ID,
		name:        snap.Name,
		version:     snap.Version,
		updatedAt:   snap.UpdatedAt,
		entities:    make(map[string]*Entity, len(snap.Entities)),
		hosted:      make(map[string][]string),
		joins:       make(map[string][]string),
		markers:     make(map[string]string),
		annotatedBy: make(map[string][]string),
	}
	for _, e := range snap.Entities {
		if e == nil || e.ID == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "entity ID must not be empty")
		}
		if _, dup := d.entities[e.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "duplicate entity ID %s", e.ID)
		}
		d.entities[e.ID] = e.Clone()
		d.order = append(d.order, e.ID)
	}
	d.reindex()
	return d, nil
}

// reindex rebuilds the reverse relationship maps. Caller must hold the lock
// or own the document exclusively.
func (d *Document) reindex() {
	addUnique := func(m map[string][]string, k, v string) {
		if !slices.Contains(m[k], v) {
			m[k] = append(m[k], v)
		}
	}
	for _, id := range d.order {
		e := d.entities[id]
		if e.Host != "" {
			addUnique(d.hosted, e.Host, id)
		}
		for _, j := range e.Joins {
			addUnique(d.joins, id, j)
			addUnique(d.joins, j, id)
		}
		for _, v := range e.Views {
			d.markers[v] = id
		}
		if e.Annotation != nil {
			for _, ref := range e.Annotation.Refs {
				addUnique(d.annotatedBy, ref, id)
			}
		}
	}
}

func (d *Document) ID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.id
}

func (d *Document) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// Version increments on every committed scope.
func (d *Document) Version() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Len returns the number of entities.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Entity returns the live entity. Callers outside an open scope must treat it
// as read-only.
func (d *Document) Entity(id string) (*Entity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entities[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "entity not found: %s", id)
	}
	return e, nil
}

// Enumerate returns matching entity IDs in document order.
func (d *Document) Enumerate(f Filter) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ids []string
	for _, id := range d.order {
		if f.match(d.entities[id]) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Related reads one relationship of an entity.
func (d *Document) Related(id string, rel Relation) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entities[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeNotFound, "entity not found: %s", id)
	}

	switch rel {
	case RelHost:
		if e.Host == "" {
			return nil, nil
		}
		return []string{e.Host}, nil
	case RelHosted:
		return slices.Clone(d.hosted[id]), nil
	case RelJoin:
		return slices.Clone(d.joins[id]), nil
	case RelViews:
		return slices.Clone(e.Views), nil
	case RelMarker:
		if m, ok := d.markers[id]; ok {
			return []string{m}, nil
		}
		return nil, nil
	case RelAnnotates:
		if e.Annotation == nil {
			return nil, nil
		}
		return slices.Clone(e.Annotation.Refs), nil
	case RelAnnotatedBy:
		return slices.Clone(d.annotatedBy[id]), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown relation: %s", rel)
	}
}

// Snapshot returns a deep copy of the document's current state.
func (d *Document) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snap := &Snapshot{
		ID:        d.id,
		Name:      d.name,
		Version:   d.version,
		UpdatedAt: d.updatedAt,
		Entities:  make([]*Entity, 0, len(d.order)),
	}
	for _, id := range d.order {
		snap.Entities = append(snap.Entities, d.entities[id].Clone())
	}
	return snap
}

// Subscribe registers fn to receive dirty events after each commit.
func (d *Document) Subscribe(fn func(DirtyEvent)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, fn)
}

// BeginScope opens the document's single write scope. Only one scope may be
// open at a time.
func (d *Document) BeginScope(name string) (Scope, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scope != nil {
		return nil, errors.New(errors.ErrCodeScopeActive, "scope %q already open on document %s", d.scope.name, d.id)
	}
	d.scope = &scope{doc: d, name: name, dirty: make(map[string]bool)}
	return d.scope, nil
}

// InScope reports whether a write scope is open.
func (d *Document) InScope() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scope != nil
}

// MarkDirty flags an entity for redraw. Inside a scope the mark is held until
// commit; outside a scope it is published immediately.
func (d *Document) MarkDirty(id string) {
	d.mu.Lock()
	if d.scope != nil {
		d.scope.dirty[id] = true
		d.mu.Unlock()
		return
	}
	ev := DirtyEvent{DocumentID: d.id, Version: d.version, IDs: []string{id}}
	subs := slices.Clone(d.subscribers)
	d.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

type scope struct {
	doc   *Document
	name  string
	dirty map[string]bool
	done  bool
}

func (s *scope) Commit() error {
	d := s.doc
	d.mu.Lock()
	if s.done {
		d.mu.Unlock()
		return errors.New(errors.ErrCodeInternal, "scope %q already closed", s.name)
	}
	s.done = true
	d.scope = nil
	d.version++
	d.updatedAt = time.Now().UTC().Format(time.RFC3339)

	ids := make([]string, 0, len(s.dirty))
	for _, id := range d.order {
		if s.dirty[id] {
			ids = append(ids, id)
		}
	}
	ev := DirtyEvent{DocumentID: d.id, Version: d.version, Scope: s.name, IDs: ids}
	subs := slices.Clone(d.subscribers)
	d.mu.Unlock()

	if len(ids) > 0 {
		for _, fn := range subs {
			fn(ev)
		}
	}
	return nil
}

func (s *scope) Rollback() error {
	d := s.doc
	d.mu.Lock()
	defer d.mu.Unlock()
	if s.done {
		return errors.New(errors.ErrCodeInternal, "scope %q already closed", s.name)
	}
	s.done = true
	d.scope = nil
	clear(s.dirty)
	return nil
}
