package gateway

import (
	"fmt"

	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
)

// cityEvent is sent by clients while exploring. Misses are not answered.
func (d *Dispatcher) cityEvent(c *Client, env protocol.Envelope) {
	unlocked, err := d.cities.Trigger(c.ID)
	if err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	if unlocked == nil {
		return
	}
	d.sink.Deliver(toRequester(c, protocol.EvtCityUnlocked, protocol.CityUnlocked{
		City:    unlocked.Name,
		Message: fmt.Sprintf("A mysterious portal has opened to %s!", unlocked.Name),
	}))
}

func (d *Dispatcher) teleport(c *Client, env protocol.Envelope) {
	if d.store.IsFrozen(c.ID) {
		d.ignore(c, env.Type, gameerr.New(gameerr.ErrInvalidState, "player is frozen"))
		return
	}
	var req protocol.TeleportToCity
	if err := env.Decode(&req); err != nil {
		d.sink.Deliver(toRequester(c, protocol.EvtTeleportError, protocol.TeleportError{
			Message: invalidPayload(err).Error(),
			Code:    gameerr.Code(gameerr.ErrInvalidInput),
		}))
		return
	}
	target, err := d.cities.Teleport(c.ID, req.CityName)
	if err != nil {
		d.sink.Deliver(toRequester(c, protocol.EvtTeleportError, protocol.TeleportError{
			Message: err.Error(),
			Code:    gameerr.Code(err),
		}))
		return
	}
	d.sink.Deliver(
		toRequester(c, protocol.EvtTeleported, protocol.Teleported{
			City:     target.Name,
			Position: target.Position,
		}),
		toOthers(c, protocol.EvtPlayerTeleported, protocol.Teleported{
			PlayerID: c.ID,
			City:     target.Name,
			Position: target.Position,
		}),
	)
}
