// Package resolve closes a candidate entity set over every relationship that
// forces entities to move together: host and hosted, transitive joins, markers
// and their views, annotations and the entities they annotate.
//
// Category filters only ever select candidates. Which entities actually move
// is decided here, from relationships, so a filter can never leave half of a
// joined or hosted cluster behind.
package resolve

import (
	"slices"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
)

// Graph is the read side of the host document the resolver needs.
type Graph interface {
	Entity(id string) (*document.Entity, error)
	Related(id string, rel document.Relation) ([]string, error)
}

// expansions are followed in both directions for every reached entity.
var expansions = []document.Relation{
	document.RelHost,
	document.RelHosted,
	document.RelJoin,
	document.RelViews,
	document.RelMarker,
	document.RelAnnotates,
	document.RelAnnotatedBy,
}

// Skip records an entity reached during closure that has nothing to transform.
type Skip struct {
	ID     string        `json:"id"`
	Kind   document.Kind `json:"kind"`
	Reason string        `json:"reason"`
}

// Closure is the closed set safe to transform atomically.
type Closure struct {
	Members map[string]document.Kind
	Skipped []Skip
}

// IDs returns member IDs in a stable order.
func (c *Closure) IDs() []string {
	ids := make([]string, 0, len(c.Members))
	for id := range c.Members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Views returns the member views queued for the orientation propagator.
func (c *Closure) Views() []string {
	var ids []string
	for _, id := range c.IDs() {
		if c.Members[id] == document.KindView {
			ids = append(ids, id)
		}
	}
	return ids
}

// Contains reports whether id is a member.
func (c *Closure) Contains(id string) bool {
	_, ok := c.Members[id]
	return ok
}

// Count returns the number of members of the given kind.
func (c *Closure) Count(kind document.Kind) int {
	n := 0
	for _, k := range c.Members {
		if k == kind {
			n++
		}
	}
	return n
}

// Len returns the number of members.
func (c *Closure) Len() int {
	return len(c.Members)
}

// Resolver expands candidate sets into closed sets.
type Resolver struct {
	g Graph
}

// New creates a Resolver reading from g.
func New(g Graph) *Resolver {
	return &Resolver{g: g}
}

// Resolve returns the closure of candidates. It fails before anything is
// mutated if an entity is missing, has an unsupported kind, or sits on a
// relationship cycle. Duplicate candidates are harmless.
func (r *Resolver) Resolve(candidates []string) (*Closure, error) {
	c := &Closure{Members: make(map[string]document.Kind)}
	seen := make(map[string]bool)

	queue := slices.Clone(candidates)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		e, err := r.g.Entity(id)
		if err != nil {
			return nil, err
		}
		if !e.Kind.Supported() {
			return nil, errors.ForEntity(errors.ErrCodeUnsupportedEntityKind, id, nil, "cannot classify entity kind %q", e.Kind)
		}
		if err := r.checkHostChain(e); err != nil {
			return nil, err
		}
		if slices.Contains(e.Joins, id) || slices.Contains(e.Views, id) {
			return nil, errors.ForEntity(errors.ErrCodeRelationshipCycle, id, nil, "entity references itself")
		}

		if e.HasTransformableState() {
			c.Members[id] = e.Kind
		} else {
			c.Skipped = append(c.Skipped, Skip{ID: id, Kind: e.Kind, Reason: "no transformable state"})
		}

		for _, rel := range expansions {
			next, err := r.g.Related(id, rel)
			if err != nil {
				return nil, err
			}
			for _, n := range next {
				if seen[n] {
					continue
				}
				if _, err := r.g.Entity(n); err != nil {
					return nil, errors.ForEntity(errors.ErrCodeNotFound, id, err, "%s relation points at missing entity %s", rel, n)
				}
				queue = append(queue, n)
			}
		}
	}

	slices.SortFunc(c.Skipped, func(a, b Skip) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return c, nil
}

// checkHostChain walks e's host chain with white/gray coloring and rejects a
// chain that returns to an entity already on it.
func (r *Resolver) checkHostChain(e *document.Entity) error {
	onPath := map[string]bool{e.ID: true}
	cur := e
	for cur.Host != "" {
		if onPath[cur.Host] {
			return errors.ForEntity(errors.ErrCodeRelationshipCycle, e.ID, nil, "host chain returns to %s", cur.Host)
		}
		onPath[cur.Host] = true
		next, err := r.g.Entity(cur.Host)
		if err != nil {
			return errors.ForEntity(errors.ErrCodeNotFound, cur.ID, err, "host %s is missing", cur.Host)
		}
		cur = next
	}
	return nil
}
