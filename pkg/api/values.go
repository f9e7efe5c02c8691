package api

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/re-tools/re-healthcheck/pkg/util/jq"
)

// Object returns a topic that decodes to a JSON object.
func (c *Client) Object(ctx context.Context, topic string) (map[string]any, error) {
	v, err := c.Get(ctx, topic)
	if err != nil {
		return nil, err
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not an object", ErrUnexpectedShape, topic, v)
	}

	return m, nil
}

// List returns a topic that decodes to a JSON array of objects.
func (c *Client) List(ctx context.Context, topic string) ([]map[string]any, error) {
	v, err := c.Get(ctx, topic)
	if err != nil {
		return nil, err
	}

	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not a list", ErrUnexpectedShape, topic, v)
	}

	result := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is %T, not an object", ErrUnexpectedShape, topic, i, item)
		}

		result = append(result, m)
	}

	return result, nil
}

// GetValue returns a single key of an object topic.
func (c *Client) GetValue(ctx context.Context, topic string, key string) (any, error) {
	m, err := c.Object(ctx, topic)
	if err != nil {
		return nil, err
	}

	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrNotFound, key, topic)
	}

	return v, nil
}

// GetValues returns key of every element of a list topic, in response order.
func (c *Client) GetValues(ctx context.Context, topic string, key string) ([]any, error) {
	items, err := c.List(ctx, topic)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(items))
	for i, item := range items {
		v, ok := item[key]
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s[%d]", ErrNotFound, key, topic, i)
		}

		values = append(values, v)
	}

	return values, nil
}

// GetNumberOfValues returns the length of a list topic.
func (c *Client) GetNumberOfValues(ctx context.Context, topic string) (int, error) {
	items, err := c.List(ctx, topic)
	if err != nil {
		return 0, err
	}

	return len(items), nil
}

// GetSumOfValues adds up a numeric key across a list topic.
func (c *Client) GetSumOfValues(ctx context.Context, topic string, key string) (float64, error) {
	values, err := c.GetValues(ctx, topic, key)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i, v := range values {
		n, ok := v.(float64)
		if !ok {
			return 0, fmt.Errorf("%w: %s[%d].%s is %T, not a number", ErrUnexpectedShape, topic, i, key, v)
		}

		sum += n
	}

	return sum, nil
}

// GetWithValue returns the elements of a list topic whose key equals value.
// Values are compared by their formatted representation so 1 matches 1.0.
func (c *Client) GetWithValue(ctx context.Context, topic string, key string, value any) ([]map[string]any, error) {
	items, err := c.List(ctx, topic)
	if err != nil {
		return nil, err
	}

	want := fmt.Sprint(value)

	var result []map[string]any
	for _, item := range items {
		if v, ok := item[key]; ok && fmt.Sprint(v) == want {
			result = append(result, item)
		}
	}

	return result, nil
}

// UID returns the uid of the node with the given internal address.
func (c *Client) UID(ctx context.Context, addr string) (string, error) {
	nodes, err := c.GetWithValue(ctx, "nodes", "addr", addr)
	if err != nil {
		return "", err
	}

	if len(nodes) == 0 {
		return "", fmt.Errorf("%w: node with address %s", ErrNotFound, addr)
	}

	return fmt.Sprint(nodes[0]["uid"]), nil
}

// Query evaluates a jq expression against a topic.
func Query[T any](ctx context.Context, c *Client, topic string, expr string) (T, error) {
	var zero T

	v, err := c.Get(ctx, topic)
	if err != nil {
		return zero, err
	}

	result, err := jq.Query[T](v, expr)
	if err != nil {
		return zero, fmt.Errorf("querying %s with %q: %w", topic, expr, err)
	}

	return result, nil
}

// Decode converts a topic into T using its json tags.
// Numbers are converted weakly so float64 payload values fit integer fields.
func Decode[T any](ctx context.Context, c *Client, topic string) (T, error) {
	var out T

	v, err := c.Get(ctx, topic)
	if err != nil {
		return out, err
	}

	if err := DecodeValue(v, &out); err != nil {
		return out, fmt.Errorf("decoding %s: %w", topic, err)
	}

	return out, nil
}

// DecodeValue converts a decoded JSON value into out using json tags.
func DecodeValue(v any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}

	if err := dec.Decode(v); err != nil {
		return err //nolint:wrapcheck
	}

	return nil
}
