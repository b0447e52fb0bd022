package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueTryPublish(t *testing.T) {
	q := NewQueue[int](2)

	require.NoError(t, q.TryPublish(1))
	require.NoError(t, q.TryPublish(2))
	assert.ErrorIs(t, q.TryPublish(3), ErrQueueFull)
	assert.Equal(t, 2, q.Len())

	q.Close()
	q.Close()
	assert.ErrorIs(t, q.TryPublish(4), ErrQueueClosed)

	var got []int
	assert.Equal(t, 2, q.Drain(func(v int) { got = append(got, v) }))
	assert.Equal(t, []int{1, 2}, got)
}

func TestQueueRun(t *testing.T) {
	q := NewQueue[string](4)
	require.NoError(t, q.TryPublish("a"))
	require.NoError(t, q.TryPublish("b"))
	q.Close()

	var got []string
	q.Run(context.Background(), func(v string) { got = append(got, v) })
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestQueueRunStopsOnContext(t *testing.T) {
	q := NewQueue[int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	q.Run(ctx, func(int) { t.Fatal("unexpected item") })
	assert.Zero(t, q.Drain(func(int) {}))
}
