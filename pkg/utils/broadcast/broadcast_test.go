package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
	var zero T
	return zero
}

func TestFanOut(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	defer b.Close()
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	go func() { source <- 42 }()
	assert.Equal(t, 42, receive(t, s1))
	assert.Equal(t, 42, receive(t, s2))
}

func TestCancelSubscription(t *testing.T) {
	source := make(chan string)
	b := NewBroadcastServer("test", source)
	defer b.Close()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	b.CancelSubscription(s1)
	_, ok := <-s1
	assert.False(t, ok)

	go func() { source <- "hello" }()
	assert.Equal(t, "hello", receive(t, s2))
}

func TestSlowListenerIsSkipped(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source, WithSendTimeout[int](10*time.Millisecond))
	defer b.Close()
	slow := b.Subscribe()
	fast := b.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 3 {
			source <- i
		}
	}()
	for i := range 3 {
		assert.Equal(t, i, receive(t, fast))
	}
	<-done
	_ = slow
}

func TestCloseClosesListeners(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	s := b.Subscribe()
	b.Close()
	select {
	case _, ok := <-s:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}
	assert.Nil(t, b.Subscribe())
}

func TestSourceClosed(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	s := b.Subscribe()
	close(source)
	select {
	case _, ok := <-s:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}
}
