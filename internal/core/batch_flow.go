package core

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// BatchParams supplies a BatchFlow with one parameter set per sub-flow run
// and receives every run's outcome afterwards.
type BatchParams[State any] interface {
	Prep(state *State, params Params) []Params
	Post(state *State, params Params, paramSets []Params, records []BatchRecord) Action
}

// BatchRecord is the outcome of one BatchFlow iteration.
type BatchRecord struct {
	Params Params // effective params the sub-flow ran with
	Action Action // action the sub-flow ended with
}

// BatchFlow re-runs its start workflow once per parameter set returned by
// BatchParams.Prep. Iterations run sequentially against the same shared state;
// the start workflow's own params are restored after each iteration.
type BatchFlow[State any] struct {
	*Flow[State]
	batch BatchParams[State]
}

// NewBatchFlow creates a BatchFlow around subflow.
func NewBatchFlow[State any](subflow Workflow[State], batch BatchParams[State], opts ...FlowOption) *BatchFlow[State] {
	return &BatchFlow[State]{
		Flow:  NewFlow(subflow, opts...),
		batch: batch,
	}
}

// SetLifecycle installs flow-level hooks around the whole batch: Prep runs
// before BatchParams.Prep and Post sees the action BatchParams.Post returned.
func (b *BatchFlow[State]) SetLifecycle(l FlowLifecycle[State]) *BatchFlow[State] {
	b.Flow.SetLifecycle(l)
	return b
}

// Run implements Workflow.Run.
func (b *BatchFlow[State]) Run(ctx context.Context, state *State) (Action, error) {
	if b.startNode == nil {
		log.Printf("[Flow] Warning: %s started with no start node", b.name)
		return "", ErrNoStartNode
	}
	if b.batch == nil {
		return ActionDefault, nil
	}

	ctx = withObservers(ctx, b.observers)
	ctx, span := b.tracerFor(ctx).Start(ctx, "batchflow:"+b.name)
	defer span.End()

	params := b.Params()
	if b.lifecycle != nil {
		b.lifecycle.Prep(state, params)
	}
	sets := b.batch.Prep(state, params)
	records := make([]BatchRecord, 0, len(sets))
	total := RunInfo{LastAction: ActionDefault}

	for i, override := range sets {
		effective := Merge(params, override)
		log.Printf("[Flow] %s: batch iteration %d/%d", b.name, i+1, len(sets))

		info, err := b.runIteration(ctx, state, effective)
		total.Steps += info.Steps
		total.Truncated = total.Truncated || info.Truncated
		total.LastAction = info.LastAction
		if err != nil {
			b.lastRun = total
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
		records = append(records, BatchRecord{Params: effective, Action: info.LastAction})
	}

	b.lastRun = total
	span.SetAttributes(attribute.Int("flow.batch_size", len(sets)))
	return b.finish(state, params, b.batch.Post(state, params, sets, records).normalize()), nil
}

// runIteration assigns effective onto the start workflow, walks the sub-flow
// and restores the start workflow's params even when the walk fails.
func (b *BatchFlow[State]) runIteration(ctx context.Context, state *State, effective Params) (RunInfo, error) {
	start := b.startNode
	saved := start.Params()
	start.SetParams(Merge(saved, effective))
	defer start.SetParams(saved)

	return b.walk(ctx, state, start, effective)
}
