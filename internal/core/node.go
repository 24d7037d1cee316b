package core

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"strings"
)

// links holds what every workflow kind shares: a name, its parameters and the
// action-keyed successor table.
type links[State any] struct {
	name       string
	params     Params
	successors map[Action]Workflow[State]
}

func newLinks[State any](name string) links[State] {
	return links[State]{
		name:       name,
		params:     Params{},
		successors: make(map[Action]Workflow[State]),
	}
}

// Name returns the workflow name.
func (l *links[State]) Name() string { return l.name }

// Params returns a copy of the current parameters.
func (l *links[State]) Params() Params { return l.params.Clone() }

// SetParams replaces the parameters with a copy of params.
func (l *links[State]) SetParams(params Params) { l.params = params.Clone() }

// AddSuccessor connects a successor workflow for a given action.
// Without an action argument the edge is registered for ActionDefault.
// A later call for the same action replaces the earlier successor.
// A nil successor, including a typed nil pointer, registers no edge.
func (l *links[State]) AddSuccessor(successor Workflow[State], action ...Action) Workflow[State] {
	if isNilWorkflow(successor) {
		log.Printf("[Flow] Warning: %s ignored a nil successor", l.name)
		return nil
	}
	a := ActionDefault
	if len(action) > 0 {
		a = action[0].normalize()
	}
	if prev, ok := l.successors[a]; ok && prev != successor {
		log.Printf("[Flow] Warning: %s overwrites successor for action %q (%s -> %s)", l.name, a, prev.Name(), successor.Name())
	}
	l.successors[a] = successor
	return successor
}

// GetSuccessor returns the successor for the given action, or nil.
func (l *links[State]) GetSuccessor(action Action) Workflow[State] {
	return l.successors[action.normalize()]
}

// isNilWorkflow reports whether w is nil or wraps a nil pointer.
func isNilWorkflow(w any) bool {
	if w == nil {
		return true
	}
	v := reflect.ValueOf(w)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// typeName derives a readable default name from a node implementation.
func typeName(v any) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
}

// Node wraps a BaseNode implementation with retry logic and successor routing.
// It implements the Workflow interface.
type Node[State any, PrepResult any, ExecResult any] struct {
	links[State]
	node  BaseNode[State, PrepResult, ExecResult]
	retry RetryPolicy
}

// NewNode creates a new Node wrapping the given BaseNode implementation.
// Without options Exec is attempted once.
func NewNode[State any, PrepResult any, ExecResult any](
	basenode BaseNode[State, PrepResult, ExecResult],
	opts ...NodeOption,
) *Node[State, PrepResult, ExecResult] {
	o := buildNodeOptions(opts)
	if o.name == "" {
		o.name = typeName(basenode)
	}
	return &Node[State, PrepResult, ExecResult]{
		links: newLinks[State](o.name),
		node:  basenode,
		retry: o.retry,
	}
}

// Retry returns the node's retry policy.
func (n *Node[State, PrepResult, ExecResult]) Retry() RetryPolicy { return n.retry }

// Run implements Workflow.Run: executes the full Prep → Exec → Post lifecycle.
// When Exec fails on every attempt, ExecFallback decides the result; an error
// from ExecFallback is returned unchanged.
func (n *Node[State, PrepResult, ExecResult]) Run(ctx context.Context, state *State) (Action, error) {
	params := n.Params()
	prepRes := n.node.Prep(state, params)

	execRes, err := execWithRetry(ctx, n.name, n.retry, n.node.Exec, prepRes)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("[Node] %s: exec failed after %d attempt(s): %v", n.name, n.retry.MaxRetries, err)
		execRes, err = n.node.ExecFallback(prepRes, err)
		if err != nil {
			return "", err
		}
	}

	return n.node.Post(state, params, prepRes, execRes).normalize(), nil
}
