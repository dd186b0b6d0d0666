package engine

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/geom"
	"github.com/siteshift/siteshift/internal/orient"
	"github.com/siteshift/siteshift/internal/resolve"
	"github.com/siteshift/siteshift/internal/typeid"
	"github.com/siteshift/siteshift/internal/viewsync"
)

// Host is the host document as the engine sees it. *document.Document
// satisfies it.
type Host interface {
	ID() string
	Version() int
	Entity(id string) (*document.Entity, error)
	Enumerate(f document.Filter) []string
	Related(id string, rel document.Relation) ([]string, error)
	BeginScope(name string) (document.Scope, error)
	MarkDirty(id string)
}

// Request describes one transform. Candidates and Filter are unioned; the
// resolver then closes the set over every relationship.
type Request struct {
	Name       string           `json:"name,omitempty"`
	Transform  geom.Rigid       `json:"transform"`
	Candidates []string         `json:"candidates,omitempty"`
	Filter     *document.Filter `json:"filter,omitempty"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithEpsilon sets the distance tolerance of every invariant check.
func WithEpsilon(eps float64) Option {
	return func(c *Coordinator) {
		if eps > 0 {
			c.eps = eps
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = o
		}
	}
}

// Coordinator runs transform transactions against a Host. It is not safe
// for concurrent use; the document's single scope rejects overlap anyway.
type Coordinator struct {
	host     Host
	eps      float64
	logger   *slog.Logger
	observer Observer

	resolver *resolve.Resolver
	prop     *orient.Propagator
	sync     *viewsync.Synchronizer

	// afterApply runs on each entity once it has been transformed. Tests use
	// it to corrupt state and exercise the invariant checks.
	afterApply func(*document.Entity)
}

func NewCoordinator(host Host, opts ...Option) *Coordinator {
	c := &Coordinator{
		host:     host,
		eps:      geom.DefaultEpsilon,
		logger:   slog.Default(),
		observer: NoopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = resolve.New(host)
	c.prop = orient.New(c.eps)
	c.sync = viewsync.New(c.logger)
	return c
}

// Run executes one transaction. The returned Result is never nil; on any
// failure the document is exactly as it was and the error is also returned.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res := newResult(typeid.NewOpID(), c.host.ID())
	log := c.logger.With("op", res.ID, "document", res.DocumentID)

	candidates := c.candidates(req)
	c.observer.OnTransformStart(ctx, res.DocumentID, len(candidates))
	defer func() {
		res.Duration = time.Since(start)
		res.Version = c.host.Version()
		c.observer.OnTransformComplete(ctx, res, res.Duration)
	}()

	abort := func(err error) (*Result, error) {
		res.State = StateRolledBack
		res.fail(err)
		log.Warn("transform rolled back", "code", res.Failure.Code, "entity", res.Failure.EntityID, "error", err)
		return res, err
	}
	advance := func(next State) error {
		s, err := res.State.moveTo(next)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "transaction %s", res.ID)
		}
		res.State = s
		return nil
	}

	if err := ctx.Err(); err != nil {
		return abort(errors.Wrap(errors.ErrCodeCancelled, err, "cancelled before validation"))
	}
	if err := advance(StateValidating); err != nil {
		return abort(err)
	}

	t, err := geom.NewRigid(req.Transform.Axis, req.Transform.Angle, req.Transform.Pivot, req.Transform.Translation)
	if err != nil {
		return abort(err)
	}
	if len(candidates) == 0 {
		return abort(errors.New(errors.ErrCodeInvalidInput, "no candidate entities selected"))
	}

	closure, err := c.resolver.Resolve(candidates)
	if err != nil {
		return abort(err)
	}
	res.Skipped = closure.Skipped
	ids := closure.IDs()
	members := make(map[string]bool, len(ids))
	for _, id := range ids {
		members[id] = true
	}
	log.Debug("closure resolved", "candidates", len(candidates), "members", len(ids), "skipped", len(closure.Skipped))

	name := req.Name
	if name == "" {
		name = "transform"
	}
	scope, err := c.host.BeginScope(name)
	if err != nil {
		return abort(err)
	}

	// Last cancellation point: past here the transaction runs to a terminal state.
	if err := ctx.Err(); err != nil {
		_ = scope.Rollback()
		return abort(errors.Wrap(errors.ErrCodeCancelled, err, "cancelled before apply"))
	}

	base, err := c.capture(c.host, ids, members)
	if err != nil {
		_ = scope.Rollback()
		return abort(err)
	}
	snapshots, err := c.snapshot(ids)
	if err != nil {
		_ = scope.Rollback()
		return abort(err)
	}
	if err := advance(StateApplying); err != nil {
		_ = scope.Rollback()
		return abort(err)
	}

	rollback := func(cause error) (*Result, error) {
		c.restore(snapshots)
		if err := scope.Rollback(); err != nil {
			log.Error("scope rollback failed", "error", err)
		}
		return abort(cause)
	}

	for _, id := range ids {
		e, err := c.host.Entity(id)
		if err != nil {
			return rollback(err)
		}
		if err := c.apply(e, t); err != nil {
			return rollback(err)
		}
		if c.afterApply != nil {
			c.afterApply(e)
		}
		c.host.MarkDirty(id)
	}

	if vs := c.check(c.host, ids, base, t); len(vs) > 0 {
		res.Violations = vs
		return rollback(vs)
	}

	if err := scope.Commit(); err != nil {
		return rollback(errors.Wrap(errors.ErrCodeInternal, err, "commit"))
	}
	if err := advance(StateCommitted); err != nil {
		return res, err
	}

	res.Transformed = ids
	for _, id := range ids {
		res.Counts[closure.Members[id]]++
	}
	log.Info("transform committed", "entities", len(ids), "skipped", len(res.Skipped))

	rep := c.sync.Sync(c.host, append(closure.Views(), c.annotations(closure)...), members)
	res.Sync = &rep
	return res, nil
}

func (c *Coordinator) candidates(req Request) []string {
	out := slices.Clone(req.Candidates)
	if req.Filter != nil {
		out = append(out, c.host.Enumerate(*req.Filter)...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (c *Coordinator) annotations(cl *resolve.Closure) []string {
	var ids []string
	for _, id := range cl.IDs() {
		if cl.Members[id] == document.KindAnnotation {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Coordinator) snapshot(ids []string) (map[string]*document.Entity, error) {
	snaps := make(map[string]*document.Entity, len(ids))
	for _, id := range ids {
		e, err := c.host.Entity(id)
		if err != nil {
			return nil, err
		}
		snaps[id] = e.Clone()
	}
	return snaps, nil
}

// restore writes every snapshot back into the live entity in place, so
// pointers held by the host stay valid.
func (c *Coordinator) restore(snaps map[string]*document.Entity) {
	for id, snap := range snaps {
		e, err := c.host.Entity(id)
		if err != nil {
			c.logger.Error("restore: entity vanished", "entity", id)
			continue
		}
		*e = *snap.Clone()
	}
}

// apply transforms one entity. Orientation-bearing kinds go through the
// propagator first, so a decomposition failure leaves the entity untouched.
func (c *Coordinator) apply(e *document.Entity, t geom.Rigid) error {
	switch e.Kind {
	case document.KindPoint, document.KindView:
		return c.prop.Apply(e, t)
	case document.KindCurve:
		e.Curve.Points = t.ApplyToPoints(e.Curve.Points)
	case document.KindProfile:
		e.Profile.Loop = t.ApplyToPoints(e.Profile.Loop)
	case document.KindAnnotation:
		if err := c.prop.Apply(e, t); err != nil {
			return err
		}
		a := e.Annotation
		if a.Position != nil {
			p := t.ApplyToPoint(*a.Position)
			a.Position = &p
		}
		if len(a.Points) > 0 {
			a.Points = t.ApplyToPoints(a.Points)
		}
	default:
		return errors.ForEntity(errors.ErrCodeUnsupportedEntityKind, e.ID, nil, "cannot transform kind %q", e.Kind)
	}
	return nil
}
