package gateway

import (
	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/model"
)

func (d *Dispatcher) buyCar(c *Client, env protocol.Envelope) {
	var carID string
	if err := env.Decode(&carID); err != nil {
		d.fail(c, protocol.EvtBuyCarResult, invalidPayload(err))
		return
	}
	car, err := d.economy.BuyCar(c.ID, carID)
	if err != nil {
		d.fail(c, protocol.EvtBuyCarResult, err)
		return
	}
	p := d.player(c.ID)
	d.sink.Deliver(
		toRequester(c, protocol.EvtBuyCarResult, protocol.Result{Success: true, Player: p, Car: car}),
		d.updatePlayer(p),
	)
}

func (d *Dispatcher) sellCar(c *Client, env protocol.Envelope) {
	var instanceID string
	if err := env.Decode(&instanceID); err != nil {
		d.fail(c, protocol.EvtSellCarResult, invalidPayload(err))
		return
	}
	price, err := d.economy.SellCar(c.ID, instanceID)
	if err != nil {
		d.fail(c, protocol.EvtSellCarResult, err)
		return
	}
	p := d.player(c.ID)
	d.sink.Deliver(
		toRequester(c, protocol.EvtSellCarResult,
			protocol.Result{Success: true, Player: p, SellPrice: price}),
		d.updatePlayer(p),
	)
}

// refuel and recharge fail silently
//
//nolint:whitespace // can't make both editor and linter happy
func (d *Dispatcher) refill(
	c *Client,
	env protocol.Envelope,
	fn func(playerID string, amount float64) (int64, error),
) {
	var amount float64
	if err := env.Decode(&amount); err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	cost, err := fn(c.ID, amount)
	if err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	d.l.Debug("refilled",
		log.String("session", c.ID),
		log.String("command", string(env.Type)),
		log.Int64("cost", cost))
	d.sink.Deliver(d.updatePlayer(d.player(c.ID)))
}

func (d *Dispatcher) customize(c *Client, env protocol.Envelope) {
	var patch model.CustomizationPatch
	if err := env.Decode(&patch); err != nil {
		d.fail(c, protocol.EvtCustomizeResult, invalidPayload(err))
		return
	}
	if _, err := d.economy.Customize(c.ID, patch); err != nil {
		d.fail(c, protocol.EvtCustomizeResult, err)
		return
	}
	d.sink.Deliver(d.updatePlayer(d.player(c.ID)))
}

func (d *Dispatcher) levelUp(c *Client, env protocol.Envelope) {
	var req protocol.LevelUp
	if err := env.Decode(&req); err != nil {
		d.sendError(c, env.Type, invalidPayload(err))
		return
	}
	res, err := d.progression.LevelUp(c.ID, req.Type, req.Amount)
	if err != nil {
		d.sendError(c, env.Type, err)
		return
	}
	ds := make([]Delivery, 0, len(res.Unlocked)+1)
	for _, a := range res.Unlocked {
		ds = append(ds, toRequester(c, protocol.EvtAchievementUnlocked, a))
	}
	ds = append(ds, toRequester(c, protocol.EvtLevelUpdated, protocol.LevelUpdated{
		Type:   res.Type,
		Level:  res.Level,
		Player: res.Player,
	}))
	d.sink.Deliver(ds...)
}
