package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnbounded_PreservesOrder(t *testing.T) {
	u := NewUnbounded[int]()

	for i := 0; i < 1000; i++ {
		u.Send(i)
	}
	u.Close()

	got := make([]int, 0, 1000)
	for v := range u.Receive() {
		got = append(got, v)
	}

	require.Len(t, got, 1000)
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d: expected %d, got %d", i, i, v)
		}
	}
}

func TestUnbounded_SendDoesNotWaitForConsumer(t *testing.T) {
	u := NewUnbounded[int]()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			u.Send(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sends blocked without a consumer")
	}

	assert.Eventually(t, func() bool { return u.Len() == 100 }, time.Second, 5*time.Millisecond)
	u.Close()
}

func TestUnbounded_CloseDrainsBacklog(t *testing.T) {
	u := NewUnbounded[string]()
	u.Send("a")
	u.Send("b")
	u.Close()

	v, ok := <-u.Receive()
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	v, ok = <-u.Receive()
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	_, ok = <-u.Receive()
	assert.False(t, ok)
}

func TestUnbounded_ConcurrentProducerConsumer(t *testing.T) {
	u := NewUnbounded[int]()
	var wg sync.WaitGroup
	wg.Add(1)

	var sum int
	go func() {
		defer wg.Done()
		for v := range u.Receive() {
			sum += v
		}
	}()

	for i := 1; i <= 500; i++ {
		u.Send(i)
	}
	u.Close()
	wg.Wait()

	assert.Equal(t, 500*501/2, sum)
	assert.Equal(t, 0, u.Len())
}

func TestSendContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	un := NewUnbuffered[int]()
	assert.ErrorIs(t, un.SendContext(ctx, 1), context.Canceled)

	b := NewBuffered[int](1)
	require.NoError(t, b.SendContext(context.Background(), 1))
	assert.ErrorIs(t, b.SendContext(ctx, 2), context.Canceled)
	assert.Equal(t, 1, b.Len())
}

func TestUnbuffered_Rendezvous(t *testing.T) {
	u := NewUnbuffered[int]()
	go func() {
		u.Send(7)
		u.Close()
	}()

	v := <-u.Receive()
	assert.Equal(t, 7, v)
	assert.Equal(t, 0, u.Len())
	_, ok := <-u.Receive()
	assert.False(t, ok)
}

func TestNew_ReturnsWorkingStream(t *testing.T) {
	ch := New[int]()
	go func() {
		ch.Send(1)
		ch.Send(2)
		ch.Close()
	}()

	var got []int
	for v := range ch.Receive() {
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2}, got)
}
