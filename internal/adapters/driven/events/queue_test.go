package events

import (
	"bytes"
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/qutils/internal/logger"
)

func TestQueue_PostDoesNotRunInline(t *testing.T) {
	q := NewQueue()
	ran := false

	q.Post(func() { ran = true })

	assert.False(t, ran)
	assert.Equal(t, 1, q.Pending())

	assert.Equal(t, 1, q.Flush())
	assert.True(t, ran)
	assert.Equal(t, 0, q.Pending())
}

func TestQueue_FlushIsFIFOAndIncludesNestedPosts(t *testing.T) {
	q := NewQueue()
	var order []int

	q.Post(func() {
		order = append(order, 1)
		q.Post(func() { order = append(order, 3) })
	})
	q.Post(func() { order = append(order, 2) })

	assert.Equal(t, 3, q.Flush())
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestQueue_PostNilIgnored(t *testing.T) {
	q := NewQueue()
	q.Post(nil)
	assert.Equal(t, 0, q.Pending())
}

func TestQueue_PanicDoesNotStopDelivery(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	q := NewQueue()
	delivered := false
	q.Post(func() { panic("boom") })
	q.Post(func() { delivered = true })

	assert.Equal(t, 2, q.Flush())
	assert.True(t, delivered)
	assert.Contains(t, buf.String(), "observer panicked: boom")
}

func TestQueue_RunDrainsUntilCancelled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		q.Post(func() { count.Add(1) })
	}

	require.Eventually(t, func() bool { return count.Load() == 5 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
