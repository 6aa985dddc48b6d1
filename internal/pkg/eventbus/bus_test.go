package eventbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitRunsHandlersInOrder(t *testing.T) {
	bus := New[string]()

	var calls []string
	bus.Register("file:created", func(ctx context.Context, p string) error {
		calls = append(calls, "first:"+p)
		return nil
	})
	bus.Register("file:created", func(ctx context.Context, p string) error {
		calls = append(calls, "second:"+p)
		return nil
	})
	bus.Register("file:uploaded", func(ctx context.Context, p string) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, bus.Emit(context.Background(), "file:created", "x"))
	assert.Equal(t, []string{"first:x", "second:x"}, calls)
}

func TestEmitWithoutHandlersIsNoop(t *testing.T) {
	bus := New[int]()
	assert.NoError(t, bus.Emit(context.Background(), "nobody", 1))
	assert.Equal(t, 0, bus.Handlers("nobody"))
}

func TestDuplicateRegistrationRunsTwice(t *testing.T) {
	bus := New[int]()
	n := 0
	h := func(ctx context.Context, p int) error { n += p; return nil }
	bus.Register("e", h)
	bus.Register("e", h)

	require.NoError(t, bus.Emit(context.Background(), "e", 3))
	assert.Equal(t, 6, n)
	assert.Equal(t, 2, bus.Handlers("e"))
}

func TestHandlerErrorPropagatesAndStops(t *testing.T) {
	bus := New[int]()
	boom := errors.New("queue unavailable")
	ranSecond := false

	bus.Register("e", func(ctx context.Context, p int) error { return boom })
	bus.Register("e", func(ctx context.Context, p int) error { ranSecond = true; return nil })

	err := bus.Emit(context.Background(), "e", 0)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ranSecond)
}
