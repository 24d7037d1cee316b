package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pocketomega/pocket-eli5/internal/core"
)

type batchState struct {
	items   []int
	results []string
	posted  bool
}

// squareBatch squares each item; items listed in failing always error.
type squareBatch struct {
	failing  map[int]bool
	fatal    bool
	execSeen []int
}

func (b *squareBatch) Prep(state *batchState, _ core.Params) []int { return state.items }

func (b *squareBatch) Exec(_ context.Context, item int) (string, error) {
	b.execSeen = append(b.execSeen, item)
	if b.failing[item] {
		return "", fmt.Errorf("item %d failed", item)
	}
	return fmt.Sprintf("%d", item*item), nil
}

func (b *squareBatch) ExecFallback(item int, err error) (string, error) {
	if b.fatal {
		return "", err
	}
	return fmt.Sprintf("fallback-%d", item), nil
}

func (b *squareBatch) Post(state *batchState, _ core.Params, _ []int, results []string) core.Action {
	state.results = results
	state.posted = true
	return ""
}

func TestBatchNode_PreservesOrderAndIsolatesFailures(t *testing.T) {
	state := &batchState{items: []int{1, 2, 3, 4, 5}}
	impl := &squareBatch{failing: map[int]bool{2: true, 4: true}}
	node := core.NewBatchNode[batchState, int, string](impl, core.WithRetry(2, 0))

	action, err := node.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != core.ActionDefault {
		t.Errorf("empty Post action should become default, got %q", action)
	}

	want := []string{"1", "fallback-2", "9", "fallback-4", "25"}
	if len(state.results) != len(want) {
		t.Fatalf("expected %d results, got %v", len(want), state.results)
	}
	for i := range want {
		if state.results[i] != want[i] {
			t.Errorf("results[%d] = %q, want %q", i, state.results[i], want[i])
		}
	}
	// failing items are attempted twice each
	if len(impl.execSeen) != 7 {
		t.Errorf("expected 7 Exec calls (5 items + 2 retries), got %d", len(impl.execSeen))
	}
}

func TestBatchNode_EmptyPrepStillPosts(t *testing.T) {
	state := &batchState{}
	node := core.NewBatchNode[batchState, int, string](&squareBatch{})

	if _, err := node.Run(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.posted {
		t.Error("Post should run for an empty batch")
	}
	if state.results == nil || len(state.results) != 0 {
		t.Errorf("expected empty non-nil results, got %#v", state.results)
	}
}

func TestBatchNode_FatalFallbackAborts(t *testing.T) {
	state := &batchState{items: []int{1, 2, 3}}
	impl := &squareBatch{failing: map[int]bool{2: true}, fatal: true}
	node := core.NewBatchNode[batchState, int, string](impl)

	_, err := node.Run(context.Background(), state)
	if err == nil || err.Error() != "item 2 failed" {
		t.Fatalf("expected item 2 error, got %v", err)
	}
	if state.posted {
		t.Error("Post must not run after a fatal item failure")
	}
	if len(impl.execSeen) != 2 {
		t.Errorf("items after the fatal one must not run, saw %v", impl.execSeen)
	}
}

func TestBatchNode_InsideFlow(t *testing.T) {
	state := &batchState{items: []int{3}}
	node := core.NewBatchNode[batchState, int, string](&squareBatch{})
	flow := core.NewFlow[batchState](node)

	if _, err := flow.Run(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(state.results) != 1 || state.results[0] != "9" {
		t.Errorf("expected [9], got %v", state.results)
	}
}

func TestBatchNode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state := &batchState{items: []int{1}}
	node := core.NewBatchNode[batchState, int, string](&squareBatch{})

	if _, err := node.Run(ctx, state); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
