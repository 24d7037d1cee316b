package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pocketomega/pocket-eli5/internal/core"
)

type sheetState struct {
	cells []string
	runs  []core.Params
	post  []core.BatchRecord
}

// fillCell writes params["index"] into the cell it names.
type fillCell struct {
	failAt int
}

func (f *fillCell) Prep(state *sheetState, params core.Params) core.Params {
	state.runs = append(state.runs, params)
	return params
}

func (f *fillCell) Exec(_ context.Context, params core.Params) (string, error) {
	idx, _ := params.Int("index")
	if f.failAt >= 0 && idx == f.failAt {
		return "", fmt.Errorf("cell %d failed", idx)
	}
	prefix, _ := params.String("prefix")
	return fmt.Sprintf("%s%d", prefix, idx), nil
}

func (f *fillCell) ExecFallback(_ core.Params, err error) (string, error) { return "", err }

func (f *fillCell) Post(state *sheetState, params core.Params, _ core.Params, value string) core.Action {
	idx, _ := params.Int("index")
	state.cells[idx] = value
	return "filled"
}

type cellBatch struct{ n int }

func (c cellBatch) Prep(_ *sheetState, _ core.Params) []core.Params {
	sets := make([]core.Params, c.n)
	for i := range sets {
		sets[i] = core.Params{"index": i}
	}
	return sets
}

func (c cellBatch) Post(state *sheetState, _ core.Params, _ []core.Params, records []core.BatchRecord) core.Action {
	state.post = records
	return "sheet-done"
}

func TestBatchFlow_RunsSubflowOncePerParamSet(t *testing.T) {
	state := &sheetState{cells: make([]string, 3)}
	node := core.NewNode[sheetState, core.Params, string](&fillCell{failAt: -1}, core.WithName("fill"))
	node.SetParams(core.Params{"prefix": "own-", "keep": 1})
	sub := core.NewFlow[sheetState](node, core.WithFlowName("cell"))
	before := node.Params()

	batch := core.NewBatchFlow[sheetState](sub, cellBatch{n: 3},
		core.WithFlowParams(core.Params{"prefix": "c", "sheet": "s1"}))
	action, err := batch.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != "sheet-done" {
		t.Errorf("expected sheet-done, got %q", action)
	}

	if len(state.runs) != 3 {
		t.Fatalf("expected 3 sub-flow runs, got %d", len(state.runs))
	}
	// node's own prefix wins over inherited values inside the sub-flow
	want := []string{"own-0", "own-1", "own-2"}
	for i := range want {
		if state.cells[i] != want[i] {
			t.Errorf("cells[%d] = %q, want %q", i, state.cells[i], want[i])
		}
		if state.runs[i]["sheet"] != "s1" {
			t.Errorf("run %d should inherit batch params, got %v", i, state.runs[i])
		}
	}

	if len(state.post) != 3 {
		t.Fatalf("expected 3 records, got %d", len(state.post))
	}
	for i, rec := range state.post {
		if idx, _ := rec.Params.Int("index"); idx != i {
			t.Errorf("record %d index = %d", i, idx)
		}
		if rec.Params["prefix"] != "c" {
			t.Errorf("record %d should hold batch+override params, got %v", i, rec.Params)
		}
		if rec.Action != "filled" {
			t.Errorf("record %d action = %q", i, rec.Action)
		}
	}

	if got := sub.Params(); len(got) != 0 {
		t.Errorf("sub-flow params should be restored to empty, got %v", got)
	}
	after := node.Params()
	if len(after) != len(before) || after["prefix"] != "own-" || after["keep"] != 1 {
		t.Errorf("node params changed: before %v after %v", before, after)
	}
}

func TestBatchFlow_OverrideWinsOverBatchParams(t *testing.T) {
	state := &sheetState{cells: make([]string, 2)}
	node := core.NewNode[sheetState, core.Params, string](&fillCell{failAt: -1})
	batch := core.NewBatchFlow[sheetState](node, cellBatch{n: 2},
		core.WithFlowParams(core.Params{"index": 99, "prefix": "p"}))

	if _, err := batch.Run(context.Background(), state); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.cells[0] != "p0" || state.cells[1] != "p1" {
		t.Errorf("override index should win, got %v", state.cells)
	}
}

func TestBatchFlow_RestoresParamsOnFailure(t *testing.T) {
	state := &sheetState{cells: make([]string, 3)}
	node := core.NewNode[sheetState, core.Params, string](&fillCell{failAt: 1}, core.WithName("fill"))
	sub := core.NewFlow[sheetState](node)
	sub.SetParams(core.Params{"origin": "sub"})

	batch := core.NewBatchFlow[sheetState](sub, cellBatch{n: 3})
	_, err := batch.Run(context.Background(), state)
	if err == nil {
		t.Fatal("expected error from cell 1")
	}
	var se *core.StageError
	if !errors.As(err, &se) || se.Stage != "fill" {
		t.Errorf("expected StageError naming fill, got %v", err)
	}
	if len(state.runs) != 2 {
		t.Errorf("iteration after the failure must not run, got %d runs", len(state.runs))
	}
	got := sub.Params()
	if len(got) != 1 || got["origin"] != "sub" {
		t.Errorf("sub-flow params should be restored after failure, got %v", got)
	}
}

func TestBatchFlow_EmptyParamSets(t *testing.T) {
	state := &sheetState{}
	node := core.NewNode[sheetState, core.Params, string](&fillCell{failAt: -1})
	batch := core.NewBatchFlow[sheetState](node, cellBatch{n: 0})

	action, err := batch.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != "sheet-done" || len(state.runs) != 0 || len(state.post) != 0 {
		t.Errorf("expected Post with no runs, got action=%q runs=%d", action, len(state.runs))
	}
}

type sheetHooks struct {
	preppedRuns int
	last        core.Action
}

func (h *sheetHooks) Prep(state *sheetState, _ core.Params) { h.preppedRuns = len(state.runs) }
func (h *sheetHooks) Post(_ *sheetState, _ core.Params, last core.Action) core.Action {
	h.last = last
	return "sheet-published"
}

func TestBatchFlow_LifecycleWrapsBatch(t *testing.T) {
	state := &sheetState{cells: make([]string, 2)}
	node := core.NewNode[sheetState, core.Params, string](&fillCell{failAt: -1})
	hooks := &sheetHooks{preppedRuns: -1}
	batch := core.NewBatchFlow[sheetState](node, cellBatch{n: 2}).SetLifecycle(hooks)

	action, err := batch.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hooks.preppedRuns != 0 {
		t.Errorf("lifecycle Prep should run before any iteration, saw %d runs", hooks.preppedRuns)
	}
	if hooks.last != "sheet-done" {
		t.Errorf("lifecycle Post should see the batch outcome, got %q", hooks.last)
	}
	if action != "sheet-published" {
		t.Errorf("expected sheet-published, got %q", action)
	}
}

func TestBatchFlow_NestedInFlow(t *testing.T) {
	state := &sheetState{cells: make([]string, 2)}
	node := core.NewNode[sheetState, core.Params, string](&fillCell{failAt: -1})
	batch := core.NewBatchFlow[sheetState](node, cellBatch{n: 2}, core.WithFlowName("cells"))
	done := core.NewNode[sheetState, core.Params, string](&fillCell{failAt: -1}, core.WithName("done"))
	done.SetParams(core.Params{"index": 0, "prefix": "x"})
	batch.AddSuccessor(done, "sheet-done")

	flow := core.NewFlow[sheetState](batch)
	action, err := flow.Run(context.Background(), state)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action != "filled" {
		t.Errorf("expected filled from the stage after the batch, got %q", action)
	}
	if state.cells[0] != "x0" || state.cells[1] != "1" {
		t.Errorf("unexpected cells %v", state.cells)
	}
}
