package core

import (
	"context"
	"time"
)

// EventKind identifies what happened during a flow run.
type EventKind string

const (
	EventStageStarted   EventKind = "stage_started"
	EventStageFinished  EventKind = "stage_finished"
	EventStageFailed    EventKind = "stage_failed"
	EventIterationLimit EventKind = "iteration_limit"
)

// Event describes one step of a flow traversal.
type Event struct {
	Kind    EventKind
	Flow    string
	Stage   string
	Step    int // zero-based position within the traversal
	Action  Action
	Elapsed time.Duration
	Err     error
}

// Observer receives flow events synchronously, on the traversal goroutine.
type Observer func(Event)

type observersKey struct{}

// ContextWithObserver returns a context whose flow runs report to obs in
// addition to any observer already attached. Nested flows inherit it.
func ContextWithObserver(ctx context.Context, obs Observer) context.Context {
	if obs == nil {
		return ctx
	}
	return withObservers(ctx, []Observer{obs})
}

func withObservers(ctx context.Context, obs []Observer) context.Context {
	if len(obs) == 0 {
		return ctx
	}
	parent := observersFrom(ctx)
	chain := make([]Observer, 0, len(parent)+len(obs))
	chain = append(chain, parent...)
	chain = append(chain, obs...)
	return context.WithValue(ctx, observersKey{}, chain)
}

func observersFrom(ctx context.Context) []Observer {
	obs, _ := ctx.Value(observersKey{}).([]Observer)
	return obs
}

func emit(ctx context.Context, e Event) {
	for _, obs := range observersFrom(ctx) {
		obs(e)
	}
}
