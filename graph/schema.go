package graph

import (
	"fmt"
	"maps"
	"reflect"
)

// Schema defines the structure and update logic for a graph's state.
type Schema[S any] interface {
	// Init returns the initial state.
	Init() S

	// Update merges the new state into the current state.
	Update(current, new S) (S, error)
}

// Reducer defines how a single state key is updated. It takes the current
// value and the new value and returns the merged value.
type Reducer func(current, new any) (any, error)

// MapSchema implements Schema for map[string]any states. Keys without a
// registered reducer are overwritten.
type MapSchema struct {
	Reducers map[string]Reducer
}

// NewMapSchema creates an empty MapSchema.
func NewMapSchema() *MapSchema {
	return &MapSchema{Reducers: make(map[string]Reducer)}
}

// RegisterReducer adds a reducer for a specific key.
func (s *MapSchema) RegisterReducer(key string, reducer Reducer) {
	s.Reducers[key] = reducer
}

// Init returns an empty map.
func (s *MapSchema) Init() map[string]any {
	return make(map[string]any)
}

// Update merges the new map into the current map using registered reducers.
func (s *MapSchema) Update(current, new map[string]any) (map[string]any, error) {
	if current == nil {
		current = make(map[string]any)
	}
	if new == nil {
		return current, nil
	}

	result := make(map[string]any, len(current))
	maps.Copy(result, current)

	for k, v := range new {
		reducer, ok := s.Reducers[k]
		if !ok {
			result[k] = v
			continue
		}
		merged, err := reducer(result[k], v)
		if err != nil {
			return nil, fmt.Errorf("reduce key %s: %w", k, err)
		}
		result[k] = merged
	}

	return result, nil
}

// OverwriteReducer replaces the old value with the new one.
func OverwriteReducer(current, new any) (any, error) {
	return new, nil
}

// AppendReducer appends the new value to the current slice. It accepts a
// slice or a single element as the new value.
func AppendReducer(current, new any) (any, error) {
	if current == nil {
		newVal := reflect.ValueOf(new)
		if newVal.Kind() == reflect.Slice {
			return new, nil
		}
		slice := reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(new)), 0, 1)
		return reflect.Append(slice, newVal).Interface(), nil
	}

	currVal := reflect.ValueOf(current)
	if currVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("current value is not a slice")
	}

	newVal := reflect.ValueOf(new)
	if newVal.Kind() == reflect.Slice {
		if currVal.Type().Elem() != newVal.Type().Elem() {
			// Element types differ, fall back to []any
			result := make([]any, 0, currVal.Len()+newVal.Len())
			for i := 0; i < currVal.Len(); i++ {
				result = append(result, currVal.Index(i).Interface())
			}
			for i := 0; i < newVal.Len(); i++ {
				result = append(result, newVal.Index(i).Interface())
			}
			return result, nil
		}
		return reflect.AppendSlice(currVal, newVal).Interface(), nil
	}

	if !newVal.Type().AssignableTo(currVal.Type().Elem()) {
		return nil, fmt.Errorf("cannot append %T to %s", new, currVal.Type())
	}
	return reflect.Append(currVal, newVal).Interface(), nil
}
