package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
)

func TestSessionEnqueue(t *testing.T) {
	s := newSession(Client{ID: "a"}, nil, rate.NewLimiter(rate.Inf, 1), log.Default())
	for i := 0; i < sendQueueSize; i++ {
		assert.True(t, s.Enqueue([]byte("x")))
	}
	assert.False(t, s.Enqueue([]byte("x")), "queue full")

	closing := newSession(Client{ID: "b"}, nil, rate.NewLimiter(rate.Inf, 1), log.Default())
	closing.Close()
	assert.False(t, closing.Enqueue([]byte("x")))
	assert.Empty(t, closing.send)
}

func TestHubCountsClosingSessionAsDrop(t *testing.T) {
	h := NewHub()
	s := newSession(Client{ID: "a"}, nil, rate.NewLimiter(rate.Inf, 1), log.Default())
	h.Register(s)
	s.Close()
	h.Deliver(Delivery{Scope: ScopeRequester, Target: "a", Event: protocol.NewEvent("x", nil)})
	assert.Equal(t, int64(0), h.numSent)
	assert.Equal(t, int64(1), h.numDrops)
}
