package core

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// defaultMaxFlowIterations caps the number of stage executions per traversal.
// It guards against cyclic successor graphs walking forever.
const defaultMaxFlowIterations = 20

const tracerName = "github.com/pocketomega/pocket-eli5/internal/core"

// FlowLifecycle gives a Flow its own Prep/Post around the traversal.
// A Post result other than ActionDefault replaces the last traversal action
// as the flow's outcome.
type FlowLifecycle[State any] interface {
	Prep(state *State, params Params)
	Post(state *State, params Params, lastAction Action) Action
}

// RunInfo summarises the most recent traversal of a Flow.
type RunInfo struct {
	Steps      int    // stage executions
	LastAction Action // action returned by the last executed stage
	Truncated  bool   // the iteration cap stopped the traversal
}

// FlowOption configures a Flow.
type FlowOption func(*flowOptions)

type flowOptions struct {
	name          string
	maxIterations int
	params        Params
	observers     []Observer
	tracer        trace.Tracer
}

// WithFlowName names the flow in logs, events and spans.
func WithFlowName(name string) FlowOption {
	return func(o *flowOptions) { o.name = name }
}

// WithMaxIterations overrides the stage-execution cap (default 20).
func WithMaxIterations(n int) FlowOption {
	return func(o *flowOptions) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithFlowParams sets the flow's own parameters, inherited by its stages.
func WithFlowParams(params Params) FlowOption {
	return func(o *flowOptions) { o.params = params.Clone() }
}

// WithObserver registers an observer for every run of this flow.
func WithObserver(obs Observer) FlowOption {
	return func(o *flowOptions) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithTracer sets the tracer used for flow and stage spans.
func WithTracer(tracer trace.Tracer) FlowOption {
	return func(o *flowOptions) { o.tracer = tracer }
}

// Flow orchestrates the execution of connected workflows using action-based routing.
// It implements the Workflow interface, allowing flows to be nested.
type Flow[State any] struct {
	links[State]
	startNode     Workflow[State]
	maxIterations int
	observers     []Observer
	tracer        trace.Tracer
	lifecycle     FlowLifecycle[State]
	lastRun       RunInfo
}

// NewFlow creates a new Flow with the given start node.
func NewFlow[State any](startNode Workflow[State], opts ...FlowOption) *Flow[State] {
	o := flowOptions{name: "flow", maxIterations: defaultMaxFlowIterations}
	for _, opt := range opts {
		opt(&o)
	}
	f := &Flow[State]{
		links:         newLinks[State](o.name),
		startNode:     startNode,
		maxIterations: o.maxIterations,
		observers:     o.observers,
		tracer:        o.tracer,
	}
	if o.params != nil {
		f.params = o.params
	}
	return f
}

// SetLifecycle installs flow-level Prep/Post hooks. Returns the flow for chaining.
func (f *Flow[State]) SetLifecycle(l FlowLifecycle[State]) *Flow[State] {
	f.lifecycle = l
	return f
}

// Start returns the flow's start workflow.
func (f *Flow[State]) Start() Workflow[State] { return f.startNode }

// LastRun reports what happened during the most recent Run.
func (f *Flow[State]) LastRun() RunInfo { return f.lastRun }

// Run implements Workflow.Run: walks the successor graph from the start node.
func (f *Flow[State]) Run(ctx context.Context, state *State) (Action, error) {
	if f.startNode == nil {
		log.Printf("[Flow] Warning: %s started with no start node", f.name)
		return "", ErrNoStartNode
	}

	ctx = withObservers(ctx, f.observers)
	ctx, span := f.tracerFor(ctx).Start(ctx, "flow:"+f.name)
	defer span.End()

	params := f.Params()
	if f.lifecycle != nil {
		f.lifecycle.Prep(state, params)
	}

	info, err := f.walk(ctx, state, f.startNode, params)
	f.lastRun = info
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return info.LastAction, err
	}
	span.SetAttributes(
		attribute.Int("flow.steps", info.Steps),
		attribute.Bool("flow.truncated", info.Truncated),
	)
	return f.finish(state, params, info.LastAction), nil
}

// finish applies the flow-level Post, if any.
func (f *Flow[State]) finish(state *State, params Params, last Action) Action {
	if f.lifecycle == nil {
		return last
	}
	if a := f.lifecycle.Post(state, params, last).normalize(); a != ActionDefault {
		return a
	}
	return last
}

// walk executes stages from start until an action has no successor or the
// iteration cap is reached. inherited is merged into each stage's params.
func (f *Flow[State]) walk(ctx context.Context, state *State, start Workflow[State], inherited Params) (RunInfo, error) {
	info := RunInfo{LastAction: ActionDefault}
	current := start

	for current != nil {
		if info.Steps >= f.maxIterations {
			log.Printf("[Flow] Warning: %s reached maxIterations (%d) before %s, aborting to prevent infinite loop",
				f.name, f.maxIterations, current.Name())
			info.Truncated = true
			emit(ctx, Event{Kind: EventIterationLimit, Flow: f.name, Stage: current.Name(), Step: info.Steps, Action: info.LastAction})
			break
		}

		// Check context cancellation between node transitions
		if err := ctx.Err(); err != nil {
			log.Printf("[Flow] %s: context cancelled: %v", f.name, err)
			return info, err
		}

		action, err := f.runStage(ctx, state, current, inherited, info.Steps)
		info.Steps++
		if err != nil {
			return info, wrapStageError(current.Name(), err)
		}
		info.LastAction = action

		next := current.GetSuccessor(action)
		if next == nil {
			log.Printf("[Flow] %s: action %q from %s has no successor, flow ends", f.name, action, current.Name())
		}
		current = next
	}
	return info, nil
}

// runStage runs one stage with the inherited params merged under its own.
// The stage's own params are restored afterwards on every path.
func (f *Flow[State]) runStage(ctx context.Context, state *State, stage Workflow[State], inherited Params, step int) (Action, error) {
	own := stage.Params()
	stage.SetParams(Merge(inherited, own))
	defer stage.SetParams(own)

	name := stage.Name()
	ctx, span := f.tracerFor(ctx).Start(ctx, "stage:"+name, trace.WithAttributes(
		attribute.String("flow.name", f.name),
		attribute.String("flow.stage", name),
		attribute.Int("flow.step", step),
	))
	defer span.End()

	emit(ctx, Event{Kind: EventStageStarted, Flow: f.name, Stage: name, Step: step})
	started := time.Now()

	action, err := stage.Run(ctx, state)
	elapsed := time.Since(started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		emit(ctx, Event{Kind: EventStageFailed, Flow: f.name, Stage: name, Step: step, Elapsed: elapsed, Err: err})
		return "", err
	}

	span.SetAttributes(attribute.String("flow.action", string(action)))
	emit(ctx, Event{Kind: EventStageFinished, Flow: f.name, Stage: name, Step: step, Action: action, Elapsed: elapsed})
	return action, nil
}

// tracerFor picks the configured tracer, then the provider of the active
// parent span, then the global provider.
func (f *Flow[State]) tracerFor(ctx context.Context) trace.Tracer {
	if f.tracer != nil {
		return f.tracer
	}
	if trace.SpanContextFromContext(ctx).IsValid() {
		return trace.SpanFromContext(ctx).TracerProvider().Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}
