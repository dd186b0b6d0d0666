package engine

import (
	"context"
	"time"
)

// Observer receives transaction lifecycle events. Implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	OnTransformStart(ctx context.Context, documentID string, candidates int)
	OnTransformComplete(ctx context.Context, res *Result, elapsed time.Duration)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

func (NoopObserver) OnTransformStart(context.Context, string, int) {}

func (NoopObserver) OnTransformComplete(context.Context, *Result, time.Duration) {}
