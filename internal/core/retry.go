package core

import (
	"context"
	"log"
	"time"
)

// RetryPolicy controls how many times Exec is attempted and how long to wait
// between attempts.
type RetryPolicy struct {
	MaxRetries int           // total Exec attempts, at least 1
	Wait       time.Duration // pause between attempts, 0 = none
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxRetries < 1 {
		p.MaxRetries = 1
	}
	if p.Wait < 0 {
		p.Wait = 0
	}
	return p
}

// NodeOption configures a Node or BatchNode.
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	name  string
	retry RetryPolicy
}

// WithRetry sets the total number of Exec attempts and the wait between them.
func WithRetry(maxRetries int, wait time.Duration) NodeOption {
	return func(o *nodeOptions) {
		o.retry = RetryPolicy{MaxRetries: maxRetries, Wait: wait}
	}
}

// WithName overrides the name used in logs, events and spans.
func WithName(name string) NodeOption {
	return func(o *nodeOptions) { o.name = name }
}

func buildNodeOptions(opts []NodeOption) nodeOptions {
	o := nodeOptions{retry: RetryPolicy{MaxRetries: 1}}
	for _, opt := range opts {
		opt(&o)
	}
	o.retry = o.retry.normalize()
	return o
}

type attemptKey struct{}

// Attempt reports the zero-based Exec attempt number carried by ctx.
// It is 0 outside of a retry loop.
func Attempt(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 0
}

// execWithRetry runs exec until it succeeds or the policy is exhausted.
// The last error is returned when every attempt failed.
func execWithRetry[In any, Out any](
	ctx context.Context,
	name string,
	policy RetryPolicy,
	exec func(context.Context, In) (Out, error),
	input In,
) (Out, error) {
	var result Out
	var err error

	for i := 0; i < policy.MaxRetries; i++ {
		// Check context cancellation before each attempt
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result, err = exec(context.WithValue(ctx, attemptKey{}, i), input)
		if err == nil {
			return result, nil
		}
		if i < policy.MaxRetries-1 {
			log.Printf("[Node] %s: exec retry %d/%d, error: %v", name, i+1, policy.MaxRetries-1, err)
			if policy.Wait > 0 {
				select {
				case <-time.After(policy.Wait):
				case <-ctx.Done():
					return result, ctx.Err()
				}
			}
		}
	}
	return result, err
}
