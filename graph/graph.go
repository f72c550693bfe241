// Package graph provides a small state-graph runtime for orchestrating
// multi-step LLM workflows. A graph is a set of named nodes connected by
// static or conditional edges; each step runs every current node (in
// parallel when a step has several), merges the resulting states and
// follows the edges until END is reached.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// END is the sentinel node name that terminates graph execution.
const END = "END"

var (
	// ErrEntryPointNotSet is returned by Compile when no entry point was set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when an edge points at an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when a non-END node has no way forward.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")
)

// Node is a named unit of work operating on the state type S.
type Node[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes what the node does.
	Description string

	// Function transforms the state. It receives the merged state of the
	// previous step and returns the node's contribution to the next state.
	Function func(ctx context.Context, state S) (S, error)
}

// Edge connects two nodes by name.
type Edge struct {
	From string
	To   string
}

// StateMerger merges the results of a parallel step into a single state.
type StateMerger[S any] func(ctx context.Context, current S, results []S) (S, error)

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy int

const (
	// FixedBackoff waits the base delay between every attempt.
	FixedBackoff BackoffStrategy = iota
	// ExponentialBackoff doubles the delay after each attempt.
	ExponentialBackoff
	// LinearBackoff grows the delay by the base amount each attempt.
	LinearBackoff
)

// RetryPolicy describes how node failures are retried.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BackoffStrategy selects the delay curve. The base delay is one second.
	BackoffStrategy BackoffStrategy

	// RetryableErrors are substrings; an error retries only if its message
	// contains one of them. Empty means nothing is retryable.
	RetryableErrors []string
}

func (p *RetryPolicy) delay(attempt int) time.Duration {
	base := time.Second
	switch p.BackoffStrategy {
	case ExponentialBackoff:
		return base * time.Duration(1<<attempt)
	case LinearBackoff:
		return base * time.Duration(attempt+1)
	default:
		return base
	}
}

// SafeGo runs fn in a goroutine tracked by wg, forwarding any panic to
// onPanic instead of crashing the process.
func SafeGo(wg *sync.WaitGroup, fn func(), onPanic func(v any)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if v := recover(); v != nil {
				onPanic(v)
			}
		}()
		fn()
	}()
}

// nodeError wraps an error with the node it came from.
func nodeError(name string, err error) error {
	return fmt.Errorf("node %s: %w", name, err)
}
