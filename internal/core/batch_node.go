package core

import (
	"context"
	"log"
)

// BatchNode applies a BaseBatchNode's Exec to every item returned by Prep.
// Items run one after another in Prep order and each has its own retry and
// fallback outcome, so a recovered failure never stops the remaining items.
type BatchNode[State any, Item any, Result any] struct {
	links[State]
	node  BaseBatchNode[State, Item, Result]
	retry RetryPolicy
}

// NewBatchNode creates a BatchNode wrapping the given implementation.
func NewBatchNode[State any, Item any, Result any](
	basenode BaseBatchNode[State, Item, Result],
	opts ...NodeOption,
) *BatchNode[State, Item, Result] {
	o := buildNodeOptions(opts)
	if o.name == "" {
		o.name = typeName(basenode)
	}
	return &BatchNode[State, Item, Result]{
		links: newLinks[State](o.name),
		node:  basenode,
		retry: o.retry,
	}
}

// Run executes Prep, the per-item Exec loop and Post.
// results[i] always corresponds to items[i].
func (n *BatchNode[State, Item, Result]) Run(ctx context.Context, state *State) (Action, error) {
	params := n.Params()
	items := n.node.Prep(state, params)
	if items == nil {
		items = []Item{}
	}

	results := make([]Result, len(items))
	for i, item := range items {
		result, err := execWithRetry(ctx, n.name, n.retry, n.node.Exec, item)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("[Node] %s: item %d/%d failed, using fallback: %v", n.name, i+1, len(items), err)
			result, err = n.node.ExecFallback(item, err)
			if err != nil {
				return "", err
			}
		}
		results[i] = result
	}

	return n.node.Post(state, params, items, results).normalize(), nil
}
