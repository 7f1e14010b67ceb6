package gateway

import (
	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/permission"
)

func (d *Dispatcher) tradeError(c *Client, err error) {
	d.l.Debug("trade failed", log.String("session", c.ID), log.ErrorField(err))
	d.sink.Deliver(toRequester(c, protocol.EvtTradeError, protocol.TradeNotice{
		Message: err.Error(),
		Code:    gameerr.Code(err),
	}))
}

func (d *Dispatcher) tradeRequest(c *Client, env protocol.Envelope) {
	var req protocol.TradeRequest
	if err := env.Decode(&req); err != nil {
		d.tradeError(c, invalidPayload(err))
		return
	}
	if !d.allowed(d.actor(c), permission.PermissionTrade) {
		d.tradeError(c, gameerr.ErrPermissionDenied)
		return
	}
	o, err := d.economy.ProposeTrade(c.ID, req.TargetPlayerID, req.Offer, req.Request)
	if err != nil {
		d.tradeError(c, err)
		return
	}
	d.sink.Deliver(
		toPlayer(o.ToID, protocol.EvtTradeOffer, protocol.TradeOffer{
			OfferID:        o.ID,
			FromPlayerID:   o.FromID,
			FromPlayerName: o.FromName,
			Offer:          o.Offer,
			Request:        o.Request,
		}),
		toRequester(c, protocol.EvtTradeSent, protocol.TradeNotice{
			Message: "Trade request sent",
			OfferID: o.ID,
		}),
	)
}

func (d *Dispatcher) tradeAccept(c *Client, env protocol.Envelope) {
	var req protocol.TradeReply
	if err := env.Decode(&req); err != nil {
		d.tradeError(c, invalidPayload(err))
		return
	}
	o, err := d.economy.AcceptTrade(c.ID, req.OfferID)
	if err != nil {
		d.tradeError(c, err)
		if o != nil {
			// the offer was consumed, the offering side has to know
			d.sink.Deliver(toPlayer(o.FromID, protocol.EvtTradeError, protocol.TradeNotice{
				Message: "Trade execution failed",
				OfferID: o.ID,
				Code:    gameerr.Code(err),
			}))
		}
		return
	}
	const msg = "Trade completed successfully"
	d.sink.Deliver(
		toPlayer(o.FromID, protocol.EvtTradeCompleted, protocol.TradeNotice{
			Message: msg, OfferID: o.ID, Player: d.player(o.FromID),
		}),
		toRequester(c, protocol.EvtTradeCompleted, protocol.TradeNotice{
			Message: msg, OfferID: o.ID, Player: d.player(c.ID),
		}),
	)
}

func (d *Dispatcher) tradeDecline(c *Client, env protocol.Envelope) {
	var req protocol.TradeReply
	if err := env.Decode(&req); err != nil {
		d.tradeError(c, invalidPayload(err))
		return
	}
	o, err := d.economy.DeclineTrade(c.ID, req.OfferID)
	if err != nil {
		d.tradeError(c, err)
		return
	}
	d.sink.Deliver(toPlayer(o.FromID, protocol.EvtTradeDeclined, protocol.TradeNotice{
		Message:      "Trade request declined",
		OfferID:      o.ID,
		FromPlayerID: c.ID,
	}))
}
