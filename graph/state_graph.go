package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// StateGraph is a generic state-based workflow graph. The type parameter S
// is the state flowing through the nodes, typically a struct or a
// map[string]any governed by a Schema.
type StateGraph[S any] struct {
	nodes            map[string]Node[S]
	edges            []Edge
	conditionalEdges map[string]func(ctx context.Context, state S) string
	entryPoint       string
	retryPolicy      *RetryPolicy
	stateMerger      StateMerger[S]

	// Schema defines how node results are merged into the state.
	// When nil, the last result of a step wins (or stateMerger, if set).
	Schema Schema[S]
}

// NewStateGraph creates an empty state graph for the state type S.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]Node[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
	}
}

// AddNode registers a node under the given name.
func (g *StateGraph[S]) AddNode(name, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = Node[S]{Name: name, Description: description, Function: fn}
}

// AddEdge adds a static edge between two nodes. Multiple edges from the
// same node fan out into a parallel step.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{From: from, To: to})
}

// AddConditionalEdge routes from a node to a target chosen at runtime.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the node execution starts from.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy enables retries for failing nodes.
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// SetStateMerger sets a custom merge function for parallel step results.
func (g *StateGraph[S]) SetStateMerger(merger StateMerger[S]) {
	g.stateMerger = merger
}

// SetSchema sets the state schema used to merge node results.
func (g *StateGraph[S]) SetSchema(schema Schema[S]) {
	g.Schema = schema
}

// Runnable is a compiled graph ready for execution.
type Runnable[S any] struct {
	graph *StateGraph[S]
}

// Compile validates the graph and returns a Runnable.
func (g *StateGraph[S]) Compile() (*Runnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	return &Runnable[S]{graph: g}, nil
}

// Invoke runs the graph to completion starting from the entry point and
// returns the final state.
func (r *Runnable[S]) Invoke(ctx context.Context, initial S) (S, error) {
	var zero S

	state := initial
	if r.graph.Schema != nil {
		var err error
		state, err = r.graph.Schema.Update(r.graph.Schema.Init(), initial)
		if err != nil {
			return zero, nodeError("init", err)
		}
	}

	current := []string{r.graph.entryPoint}
	for len(current) > 0 {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		active := current[:0]
		for _, name := range current {
			if name != END {
				active = append(active, name)
			}
		}
		if len(active) == 0 {
			break
		}

		results, err := r.runStep(ctx, active, state)
		if err != nil {
			return zero, err
		}

		state, err = r.merge(ctx, state, results)
		if err != nil {
			return zero, err
		}

		current, err = r.next(ctx, active, state)
		if err != nil {
			return zero, err
		}
	}

	return state, nil
}

// runStep executes every node of the step, in parallel when there is more
// than one, and collects their results in node order.
func (r *Runnable[S]) runStep(ctx context.Context, names []string, state S) ([]S, error) {
	results := make([]S, len(names))
	errs := make([]error, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		node, ok := r.graph.nodes[name]
		if !ok {
			return nil, nodeError(name, ErrNodeNotFound)
		}

		i, node := i, node
		SafeGo(&wg, func() {
			res, err := r.runWithRetry(ctx, node, state)
			if err != nil {
				errs[i] = nodeError(node.Name, err)
				return
			}
			results[i] = res
		}, func(v any) {
			errs[i] = nodeError(node.Name, &PanicError{Value: v})
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// runWithRetry executes a node honoring the graph's retry policy.
func (r *Runnable[S]) runWithRetry(ctx context.Context, node Node[S], state S) (S, error) {
	var zero S

	attempts := 1
	if p := r.graph.retryPolicy; p != nil {
		attempts = p.MaxRetries + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		res, err := node.Function(ctx, state)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == attempts-1 || !r.retryable(err) {
			break
		}

		select {
		case <-time.After(r.graph.retryPolicy.delay(attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

func (r *Runnable[S]) retryable(err error) bool {
	p := r.graph.retryPolicy
	if p == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range p.RetryableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// merge folds step results into the state using the schema, the custom
// merger, or last-result-wins in that order of preference.
func (r *Runnable[S]) merge(ctx context.Context, state S, results []S) (S, error) {
	var zero S

	if r.graph.Schema != nil {
		for _, res := range results {
			var err error
			state, err = r.graph.Schema.Update(state, res)
			if err != nil {
				return zero, nodeError("schema", err)
			}
		}
		return state, nil
	}

	if r.graph.stateMerger != nil {
		merged, err := r.graph.stateMerger(ctx, state, results)
		if err != nil {
			return zero, nodeError("merge", err)
		}
		return merged, nil
	}

	if len(results) > 0 {
		state = results[len(results)-1]
	}
	return state, nil
}

// next computes the following step's node set from edges.
func (r *Runnable[S]) next(ctx context.Context, current []string, state S) ([]string, error) {
	seen := make(map[string]bool)
	var next []string

	for _, name := range current {
		if cond, ok := r.graph.conditionalEdges[name]; ok {
			target := cond(ctx, state)
			if target == "" {
				return nil, nodeError(name, ErrNoOutgoingEdge)
			}
			if !seen[target] {
				seen[target] = true
				next = append(next, target)
			}
			continue
		}

		found := false
		for _, edge := range r.graph.edges {
			if edge.From != name {
				continue
			}
			found = true
			if !seen[edge.To] {
				seen[edge.To] = true
				next = append(next, edge.To)
			}
		}
		if !found {
			return nil, nodeError(name, ErrNoOutgoingEdge)
		}
	}

	return next, nil
}

// PanicError wraps a recovered panic value from a node goroutine.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
