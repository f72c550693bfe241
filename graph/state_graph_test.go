package graph

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	Count int
	Path  []string
}

func TestLinearExecution(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("first", "increments", func(ctx context.Context, s counterState) (counterState, error) {
		s.Count++
		s.Path = append(s.Path, "first")
		return s, nil
	})
	g.AddNode("second", "doubles", func(ctx context.Context, s counterState) (counterState, error) {
		s.Count *= 2
		s.Path = append(s.Path, "second")
		return s, nil
	})
	g.SetEntryPoint("first")
	g.AddEdge("first", "second")
	g.AddEdge("second", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), counterState{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Count)
	assert.Equal(t, []string{"first", "second"}, out.Path)
}

func TestCompileRequiresEntryPoint(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("only", "", func(ctx context.Context, s counterState) (counterState, error) {
		return s, nil
	})

	_, err := g.Compile()
	assert.ErrorIs(t, err, ErrEntryPointNotSet)
}

func TestConditionalEdge(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("check", "", func(ctx context.Context, s counterState) (counterState, error) {
		return s, nil
	})
	g.AddNode("high", "", func(ctx context.Context, s counterState) (counterState, error) {
		s.Path = append(s.Path, "high")
		return s, nil
	})
	g.AddNode("low", "", func(ctx context.Context, s counterState) (counterState, error) {
		s.Path = append(s.Path, "low")
		return s, nil
	})
	g.SetEntryPoint("check")
	g.AddConditionalEdge("check", func(ctx context.Context, s counterState) string {
		if s.Count > 10 {
			return "high"
		}
		return "low"
	})
	g.AddEdge("high", END)
	g.AddEdge("low", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), counterState{Count: 42})
	require.NoError(t, err)
	assert.Equal(t, []string{"high"}, out.Path)

	out, err = app.Invoke(context.Background(), counterState{Count: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"low"}, out.Path)
}

func TestParallelFanOutWithMerger(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("start", "", func(ctx context.Context, s counterState) (counterState, error) {
		return s, nil
	})
	g.AddNode("a", "", func(ctx context.Context, s counterState) (counterState, error) {
		return counterState{Path: []string{"a"}}, nil
	})
	g.AddNode("b", "", func(ctx context.Context, s counterState) (counterState, error) {
		return counterState{Path: []string{"b"}}, nil
	})
	g.SetEntryPoint("start")
	g.AddEdge("start", "a")
	g.AddEdge("start", "b")
	g.AddEdge("a", END)
	g.AddEdge("b", END)
	g.SetStateMerger(func(ctx context.Context, current counterState, results []counterState) (counterState, error) {
		for _, r := range results {
			current.Path = append(current.Path, r.Path...)
		}
		return current, nil
	})

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)

	sort.Strings(out.Path)
	assert.Equal(t, []string{"a", "b"}, out.Path)
}

func TestNodeErrorPropagates(t *testing.T) {
	boom := errors.New("boom")

	g := NewStateGraph[counterState]()
	g.AddNode("fail", "", func(ctx context.Context, s counterState) (counterState, error) {
		return s, boom
	})
	g.SetEntryPoint("fail")
	g.AddEdge("fail", END)

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "node fail")
}

func TestPanicIsCaptured(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("explode", "", func(ctx context.Context, s counterState) (counterState, error) {
		panic("kaboom")
	})
	g.SetEntryPoint("explode")
	g.AddEdge("explode", END)

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	require.Error(t, err)

	var pe *PanicError
	assert.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRetryPolicyRetriesRetryableErrors(t *testing.T) {
	attempts := 0

	g := NewStateGraph[counterState]()
	g.AddNode("flaky", "", func(ctx context.Context, s counterState) (counterState, error) {
		attempts++
		if attempts < 3 {
			return s, errors.New("transient timeout")
		}
		s.Count = attempts
		return s, nil
	})
	g.SetEntryPoint("flaky")
	g.AddEdge("flaky", END)
	g.SetRetryPolicy(&RetryPolicy{
		MaxRetries:      3,
		BackoffStrategy: FixedBackoff,
		RetryableErrors: []string{"timeout"},
	})

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Count)
}

func TestRetryPolicySkipsNonRetryable(t *testing.T) {
	attempts := 0

	g := NewStateGraph[counterState]()
	g.AddNode("fail", "", func(ctx context.Context, s counterState) (counterState, error) {
		attempts++
		return s, errors.New("permanent failure")
	})
	g.SetEntryPoint("fail")
	g.AddEdge("fail", END)
	g.SetRetryPolicy(&RetryPolicy{
		MaxRetries:      5,
		RetryableErrors: []string{"timeout"},
	})

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestMissingEdgeFails(t *testing.T) {
	g := NewStateGraph[counterState]()
	g.AddNode("dangling", "", func(ctx context.Context, s counterState) (counterState, error) {
		return s, nil
	})
	g.SetEntryPoint("dangling")

	app, err := g.Compile()
	require.NoError(t, err)

	_, err = app.Invoke(context.Background(), counterState{})
	assert.ErrorIs(t, err, ErrNoOutgoingEdge)
}

func TestMapSchemaReducers(t *testing.T) {
	schema := NewMapSchema()
	schema.RegisterReducer("messages", AppendReducer)

	g := NewStateGraph[map[string]any]()
	g.SetSchema(schema)
	g.AddNode("one", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		return map[string]any{"messages": []string{"hello"}, "turn": 1}, nil
	})
	g.AddNode("two", "", func(ctx context.Context, s map[string]any) (map[string]any, error) {
		return map[string]any{"messages": []string{"world"}, "turn": 2}, nil
	})
	g.SetEntryPoint("one")
	g.AddEdge("one", "two")
	g.AddEdge("two", END)

	app, err := g.Compile()
	require.NoError(t, err)

	out, err := app.Invoke(context.Background(), map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "world"}, out["messages"])
	assert.Equal(t, 2, out["turn"])
}

func TestAppendReducerMixedTypes(t *testing.T) {
	merged, err := AppendReducer([]string{"a"}, 1)
	require.Error(t, err, "appending int to []string is not supported")
	_ = merged

	merged, err = AppendReducer(nil, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, merged)

	merged, err = AppendReducer([]any{"a"}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", 1}, merged)
}
