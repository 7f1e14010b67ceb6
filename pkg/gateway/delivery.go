package gateway

import "github.com/mpapenbr/carclash-server/pkg/gateway/protocol"

type Scope int

const (
	ScopeRequester Scope = iota
	ScopePlayer
	ScopeAll
	ScopeAllExcept
)

func (s Scope) String() string {
	switch s {
	case ScopeRequester:
		return "requester"
	case ScopePlayer:
		return "player"
	case ScopeAll:
		return "all"
	case ScopeAllExcept:
		return "all-except"
	default:
		return "unknown"
	}
}

// Delivery addresses an event. Target is the session id for ScopeRequester and
// ScopePlayer and the excluded session id for ScopeAllExcept.
// If Close is set the target session is closed after the event was sent.
type Delivery struct {
	Scope  Scope
	Target string
	Event  protocol.Event
	Close  bool
}

// Sink receives the deliveries produced by the dispatcher
type Sink interface {
	Deliver(ds ...Delivery)
}

func toRequester(c *Client, eventType string, payload any) Delivery {
	return Delivery{Scope: ScopeRequester, Target: c.ID, Event: protocol.NewEvent(eventType, payload)}
}

func toPlayer(id, eventType string, payload any) Delivery {
	return Delivery{Scope: ScopePlayer, Target: id, Event: protocol.NewEvent(eventType, payload)}
}

func toAll(eventType string, payload any) Delivery {
	return Delivery{Scope: ScopeAll, Event: protocol.NewEvent(eventType, payload)}
}

func toOthers(c *Client, eventType string, payload any) Delivery {
	return Delivery{Scope: ScopeAllExcept, Target: c.ID, Event: protocol.NewEvent(eventType, payload)}
}
