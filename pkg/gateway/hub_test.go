package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/carclash-server/pkg/engine"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/store"
	"github.com/mpapenbr/carclash-server/testsupport/basedata"
)

type fakeSession struct {
	id     string
	queue  [][]byte
	limit  int
	closed bool
}

func (f *fakeSession) ClientID() string { return f.id }

func (f *fakeSession) Enqueue(data []byte) bool {
	if f.limit > 0 && len(f.queue) >= f.limit {
		return false
	}
	f.queue = append(f.queue, data)
	return true
}

func (f *fakeSession) Close() { f.closed = true }

func TestHubScopes(t *testing.T) {
	public := make(chan protocol.Encoded, 10)
	h := NewHub(WithPublicEvents(public))
	a, b, c := &fakeSession{id: "a"}, &fakeSession{id: "b"}, &fakeSession{id: "c"}
	for _, s := range []*fakeSession{a, b, c} {
		h.Register(s)
	}
	assert.Equal(t, 3, h.Count())

	h.Deliver(
		Delivery{Scope: ScopeRequester, Target: "a", Event: protocol.NewEvent("one", nil)},
		Delivery{Scope: ScopePlayer, Target: "b", Event: protocol.NewEvent("two", nil)},
		Delivery{Scope: ScopeAll, Event: protocol.NewEvent("three", nil)},
		Delivery{Scope: ScopeAllExcept, Target: "c", Event: protocol.NewEvent("four", nil)},
		Delivery{Scope: ScopePlayer, Target: "gone", Event: protocol.NewEvent("five", nil)},
	)
	assert.Len(t, a.queue, 3)
	assert.Len(t, b.queue, 3)
	assert.Len(t, c.queue, 1)
	assert.JSONEq(t, `{"type":"one"}`, string(a.queue[0]))
	require.Len(t, public, 2)
	first := <-public
	assert.Equal(t, "three", first.Type)
	assert.Equal(t, a.queue[1], first.Data)

	h.Unregister("c")
	h.Deliver(Delivery{Scope: ScopePlayer, Target: "c", Event: protocol.NewEvent("x", nil), Close: true})
	assert.False(t, c.closed)
	h.Deliver(Delivery{Scope: ScopePlayer, Target: "b", Event: protocol.NewEvent("bye", nil), Close: true})
	assert.True(t, b.closed)
}

func TestHubDropsOnFullQueue(t *testing.T) {
	h := NewHub()
	s := &fakeSession{id: "a", limit: 1}
	h.Register(s)
	h.Deliver(
		Delivery{Scope: ScopeAll, Event: protocol.NewEvent("one", nil)},
		Delivery{Scope: ScopeAll, Event: protocol.NewEvent("two", nil)},
	)
	assert.Len(t, s.queue, 1)
	assert.Equal(t, int64(1), h.numDrops)
}

func TestScopeString(t *testing.T) {
	assert.Equal(t, "all-except", ScopeAllExcept.String())
	assert.Equal(t, "unknown", Scope(42).String())
}

func TestHubPublicEventsAreEncoded(t *testing.T) {
	public := make(chan protocol.Encoded, 1)
	h := NewHub(WithPublicEvents(public))
	r := &model.Race{ID: "race-1", Status: model.RaceWaiting}
	h.Deliver(Delivery{Scope: ScopeAll, Event: protocol.NewEvent(protocol.EvtNewRace, r)})
	r.Status = model.RaceRacing

	evt := <-public
	assert.Equal(t, protocol.EvtNewRace, evt.Type)
	var got struct {
		Type    string     `json:"type"`
		Payload model.Race `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(evt.Data, &got))
	assert.Equal(t, model.RaceWaiting, got.Payload.Status, "snapshot taken at delivery")
}

// the consumer of public events runs beside the engine goroutine which keeps
// changing the objects the events were created from (run with -race)
func TestHubPublicEventsWhileEngineMutates(t *testing.T) {
	st := basedata.SampleStore(basedata.NewClock())
	public := make(chan protocol.Encoded, 256)
	hub := NewHub(WithPublicEvents(public))
	eng := engine.New(st)
	d := NewDispatcher(st, hub, eng)
	eng.Start(context.Background())
	defer eng.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	received := 0
	go func() {
		defer wg.Done()
		for evt := range public {
			var v map[string]any
			if json.Unmarshal(evt.Data, &v) == nil && evt.Type == protocol.EvtNewRace {
				received++
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := client("a")
	do := func(kind protocol.CommandKind, payload any) {
		env := envelope(t, kind, payload)
		require.NoError(t, eng.Do(ctx, func(*store.Store) {
			d.Handle(c, env)
		}))
	}
	do(protocol.CmdJoinGame, protocol.JoinGame{Name: "a"})
	for i := 0; i < 20; i++ {
		do(protocol.CmdCreateRace, protocol.CreateRace{Track: "city-circuit"})
		require.NoError(t, eng.Do(ctx, func(s *store.Store) {
			for _, r := range s.Races() {
				r.Laps++
				r.Participants = append(r.Participants, &model.RaceParticipant{PlayerID: "x"})
			}
		}))
	}
	close(public)
	wg.Wait()
	assert.Equal(t, 20, received)
}
