package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/store"
	"github.com/mpapenbr/carclash-server/testsupport/basedata"
)

func startEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	st := basedata.SampleStore(basedata.NewClock())
	e := New(st, opts...)
	e.Start(context.Background())
	t.Cleanup(e.Close)
	return e, st
}

func TestDoSerializesMutations(t *testing.T) {
	e, st := startEngine(t)
	require.NoError(t, e.Do(context.Background(), func(st *store.Store) {
		st.AddPlayer(model.NewPlayer("p", "p", 0))
	}))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.Do(context.Background(), func(st *store.Store) {
				p, _ := st.Player("p")
				p.Money++
			}))
		}()
	}
	wg.Wait()
	var money int64
	require.NoError(t, e.Do(context.Background(), func(*store.Store) {
		p, _ := st.Player("p")
		money = p.Money
	}))
	assert.Equal(t, int64(100), money)
}

func TestPanicIsRecovered(t *testing.T) {
	e, _ := startEngine(t)
	err := e.Do(context.Background(), func(*store.Store) {
		var p *model.Player
		p.Money++
	})
	assert.ErrorIs(t, err, ErrPanic)
	assert.NoError(t, e.Do(context.Background(), func(*store.Store) {}))
}

func TestAfter(t *testing.T) {
	e, _ := startEngine(t)
	ran := make(chan struct{})
	e.After(10*time.Millisecond, func(*store.Store) { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("timer closure not executed")
	}
}

func TestSweep(t *testing.T) {
	calls := make(chan struct{}, 10)
	startEngine(t, WithSweep(5*time.Millisecond, func(*store.Store) {
		select {
		case calls <- struct{}{}:
		default:
		}
	}))
	for i := 0; i < 2; i++ {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatal("sweep not executed")
		}
	}
}

func TestDoAfterClose(t *testing.T) {
	st := basedata.SampleStore(basedata.NewClock())
	e := New(st)
	e.Start(context.Background())
	e.Close()
	err := e.Do(context.Background(), func(*store.Store) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDoHonorsContext(t *testing.T) {
	e, _ := startEngine(t, WithQueueSize(0))
	block := make(chan struct{})
	e.Submit(func(*store.Store) { <-block })
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Do(ctx, func(*store.Store) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
