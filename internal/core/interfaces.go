package core

import "context"

// BaseNode defines the core interface for all nodes in the workflow.
// It follows the three-phase execution model: Prep -> Exec -> Post.
//
// Type parameters:
//   - State: the shared state passed through the workflow
//   - PrepResult: the type returned by Prep and consumed by Exec
//   - ExecResult: the type returned by Exec and consumed by Post
type BaseNode[State any, PrepResult any, ExecResult any] interface {
	// Prep reads from shared state and builds the input for Exec.
	Prep(state *State, params Params) PrepResult

	// Exec performs the core logic. It must not touch shared state.
	Exec(ctx context.Context, prepResult PrepResult) (ExecResult, error)

	// ExecFallback is called once Exec has failed on every attempt.
	// Returning a non-nil error aborts the run.
	ExecFallback(prepResult PrepResult, err error) (ExecResult, error)

	// Post writes results into shared state and determines the next action.
	Post(state *State, params Params, prepResult PrepResult, execResult ExecResult) Action
}

// BaseBatchNode is the batch variant of BaseNode: Prep yields a list of items
// and Exec / ExecFallback are applied to each item independently.
type BaseBatchNode[State any, Item any, Result any] interface {
	Prep(state *State, params Params) []Item
	Exec(ctx context.Context, item Item) (Result, error)
	ExecFallback(item Item, err error) (Result, error)
	Post(state *State, params Params, items []Item, results []Result) Action
}

// Workflow represents a unit of execution that can be connected to other workflows.
// Node, BatchNode, Flow and BatchFlow all implement it; each carries its own
// run strategy, so a Flow never inspects the concrete kind of its stages.
type Workflow[State any] interface {
	// Name identifies the workflow in logs, events and spans.
	Name() string

	// Run executes the workflow and returns an action for routing.
	Run(ctx context.Context, state *State) (Action, error)

	// GetSuccessor returns the successor workflow for a given action.
	GetSuccessor(action Action) Workflow[State]

	// AddSuccessor connects a successor workflow for a specific action.
	// Returns the successor for chaining.
	AddSuccessor(successor Workflow[State], action ...Action) Workflow[State]

	// Params returns a copy of the workflow's parameters.
	Params() Params

	// SetParams replaces the workflow's parameters.
	SetParams(params Params)
}

// FailFast provides the default ExecFallback: the original error is returned
// unchanged, so a failing Exec aborts the run. Embed it in nodes that have no
// degraded result to offer.
type FailFast[In any, Out any] struct{}

// ExecFallback returns err as-is.
func (FailFast[In, Out]) ExecFallback(_ In, err error) (Out, error) {
	var zero Out
	return zero, err
}
