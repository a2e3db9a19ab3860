package hostfunc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := func(ctx context.Context, args map[string]any) (any, error) { return nil, nil }

	r.Register("f2", noop)
	r.Register("f1", noop)
	assert.Equal(t, []string{"f1", "f2"}, r.List())

	_, ok := r.Get("f1")
	assert.True(t, ok)

	r.Unregister("f1")
	r.Unregister("missing")
	_, ok = r.Get("f1")
	assert.False(t, ok)
	assert.Equal(t, []string{"f2"}, r.List())
}

func TestPositional(t *testing.T) {
	fn := Positional(func(args ...any) (any, error) {
		return len(args), nil
	})

	tests := []struct {
		name string
		args map[string]any
		want int
	}{
		{"no args key", map[string]any{}, 0},
		{"nil list", map[string]any{"args": nil}, 0},
		{"two args", map[string]any{"args": []any{1, "x"}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fn(context.Background(), tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPositionalRejectsNonList(t *testing.T) {
	fn := Positional(func(args ...any) (any, error) { return nil, nil })

	_, err := fn(context.Background(), map[string]any{"args": "nope"})
	assert.ErrorContains(t, err, "expected list")
}

func TestPositionalCanceled(t *testing.T) {
	called := false
	fn := Positional(func(args ...any) (any, error) {
		called = true
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fn(ctx, map[string]any{"args": []any{}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
