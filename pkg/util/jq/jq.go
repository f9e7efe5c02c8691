package jq

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/itchyny/gojq"
)

// ErrNotFound is returned when a JQ query doesn't find the requested field.
var ErrNotFound = errors.New("field not found")

// convertValue converts a value to a JQ-compatible format.
// Maps and slices of any are passed through, everything else is
// normalized through a JSON round trip.
func convertValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch v := value.(type) {
	case map[string]any, []any, string, bool, float64, int:
		return v, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		if _, isByteSlice := value.([]byte); !isByteSlice {
			slice := make([]any, rv.Len())
			for i := range rv.Len() {
				item, err := convertValue(rv.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				slice[i] = item
			}

			return slice, nil
		}
	}

	var normalizedValue any
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := json.Unmarshal(jsonBytes, &normalizedValue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return normalizedValue, nil
}

func run(value any, jqQuery string) (gojq.Iter, error) {
	compiledQuery, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq query: %w", err)
	}

	normalizedValue, err := convertValue(value)
	if err != nil {
		return nil, err
	}

	return compiledQuery.Run(normalizedValue), nil
}

func cast[T any](result any) (T, error) {
	var zero T

	if typed, ok := result.(T); ok {
		return typed, nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return zero, fmt.Errorf("marshaling query result: %w", err)
	}

	var converted T
	if err := json.Unmarshal(data, &converted); err != nil {
		return zero, fmt.Errorf("unmarshaling to type %T: %w", zero, err)
	}

	return converted, nil
}

// Query executes a JQ query against the provided value and returns the first result
// cast to type T. When the query returns nil/null, returns ErrNotFound.
func Query[T any](value any, jqQuery string) (T, error) {
	var zero T

	iter, err := run(value, jqQuery)
	if err != nil {
		return zero, err
	}

	result, ok := iter.Next()
	if !ok {
		return zero, ErrNotFound
	}

	if err, isErr := result.(error); isErr {
		return zero, fmt.Errorf("jq query error: %w", err)
	}

	if result == nil {
		return zero, ErrNotFound
	}

	return cast[T](result)
}

// QueryAll executes a JQ query and returns every emitted value cast to T.
// Null results are skipped.
func QueryAll[T any](value any, jqQuery string) ([]T, error) {
	iter, err := run(value, jqQuery)
	if err != nil {
		return nil, err
	}

	var results []T

	for {
		result, ok := iter.Next()
		if !ok {
			break
		}

		if err, isErr := result.(error); isErr {
			return nil, fmt.Errorf("jq query error: %w", err)
		}

		if result == nil {
			continue
		}

		typed, err := cast[T](result)
		if err != nil {
			return nil, err
		}

		results = append(results, typed)
	}

	return results, nil
}
