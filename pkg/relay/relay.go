// Package relay forwards public game events to NATS so that other services
// (lobby pages, statistics) can follow the game without a websocket session.
package relay

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/utils/broadcast"
)

const DefaultSubjectPrefix = "ccs.events"

type (
	// Publisher is satisfied by *nats.Conn
	Publisher interface {
		Publish(subj string, data []byte) error
	}
	Option func(*Relay)
	Relay  struct {
		pub    Publisher
		source broadcast.BroadcastServer[protocol.Encoded]
		prefix string
		l      *log.Logger
		numPub int
		numErr int
	}
)

func WithSubjectPrefix(prefix string) Option {
	return func(r *Relay) {
		r.prefix = prefix
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Relay) {
		r.l = l
	}
}

func New(pub Publisher, source broadcast.BroadcastServer[protocol.Encoded], opts ...Option) *Relay {
	ret := &Relay{
		pub:    pub,
		source: source,
		prefix: DefaultSubjectPrefix,
		l:      log.Default().Named("relay"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect opens a NATS connection which reconnects forever
func Connect(url string, l *log.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("ccs"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("nats disconnected", log.ErrorField(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("nats reconnected", log.String("url", c.ConnectedUrl()))
		}),
	)
}

func (r *Relay) Subject(eventType string) string {
	return fmt.Sprintf("%s.%s", r.prefix, eventType)
}

// Run publishes events until ctx is done or the source is closed
func (r *Relay) Run(ctx context.Context) {
	ch := r.source.Subscribe()
	if ch == nil {
		return
	}
	defer r.source.CancelSubscription(ch)
	r.l.Info("relaying public events", log.String("prefix", r.prefix))
	for {
		select {
		case <-ctx.Done():
			r.l.Info("relay stopped",
				log.Int("published", r.numPub), log.Int("errors", r.numErr))
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			r.publish(evt)
		}
	}
}

// publish sends the bytes encoded by the hub, the relay never looks into the
// event payload
func (r *Relay) publish(evt protocol.Encoded) {
	if err := r.pub.Publish(r.Subject(evt.Type), evt.Data); err != nil {
		r.numErr++
		r.l.Warn("could not publish event", log.String("event", evt.Type), log.ErrorField(err))
		return
	}
	r.numPub++
}
