package gateway

import (
	"time"

	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/permission"
)

func (d *Dispatcher) createAuction(c *Client, env protocol.Envelope) {
	var req protocol.CreateAuction
	if err := env.Decode(&req); err != nil {
		d.fail(c, protocol.EvtAuctionResult, invalidPayload(err))
		return
	}
	if !d.allowed(d.actor(c), permission.PermissionCreateAuction) {
		d.fail(c, protocol.EvtAuctionResult, gameerr.ErrPermissionDenied)
		return
	}
	duration := time.Duration(req.Duration * float64(time.Minute))
	a, err := d.auctions.CreateAuction(c.ID, req.CarID, req.StartingPrice, duration)
	if err != nil {
		d.fail(c, protocol.EvtAuctionResult, err)
		return
	}
	d.sink.Deliver(
		toAll(protocol.EvtNewAuction, a),
		toRequester(c, protocol.EvtAuctionResult, protocol.Result{Success: true, Auction: a}),
	)
}

func (d *Dispatcher) placeBid(c *Client, env protocol.Envelope) {
	var req protocol.PlaceBid
	if err := env.Decode(&req); err != nil {
		d.fail(c, protocol.EvtBidResult, invalidPayload(err))
		return
	}
	if !d.allowed(d.actor(c), permission.PermissionBid) {
		d.fail(c, protocol.EvtBidResult, gameerr.ErrPermissionDenied)
		return
	}
	res, err := d.auctions.PlaceBid(req.AuctionID, c.ID, req.Amount)
	if err != nil {
		d.fail(c, protocol.EvtBidResult, err)
		return
	}
	ds := []Delivery{}
	if res.Refunded != nil && res.Refunded.ID != c.ID {
		ds = append(ds, d.updatePlayer(res.Refunded))
	}
	ds = append(ds,
		toAll(protocol.EvtAuctionUpdated, res.Auction),
		toRequester(c, protocol.EvtBidResult, protocol.Result{Success: true}),
		d.updatePlayer(d.player(c.ID)),
	)
	d.sink.Deliver(ds...)
}

func (d *Dispatcher) cancelAuction(c *Client, env protocol.Envelope) {
	var req protocol.CancelAuction
	if err := env.Decode(&req); err != nil {
		d.fail(c, protocol.EvtCancelAuctionResult, invalidPayload(err))
		return
	}
	a, err := d.auctions.CancelAuction(d.actor(c), req.AuctionID)
	if err != nil {
		d.fail(c, protocol.EvtCancelAuctionResult, err)
		return
	}
	d.sink.Deliver(
		toAll(protocol.EvtAuctionCancelled, a),
		toRequester(c, protocol.EvtCancelAuctionResult, protocol.Result{Success: true, Auction: a}),
	)
}
