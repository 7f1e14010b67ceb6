package gateway

import (
	"github.com/mpapenbr/carclash-server/pkg/game/tournament"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
)

// invalid tournament commands are ignored without notifying the client

func (d *Dispatcher) createTournament(c *Client, env protocol.Envelope) {
	var cfg tournament.Config
	if err := env.Decode(&cfg); err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	t, err := d.tournaments.Create(c.ID, cfg)
	if err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	d.sink.Deliver(toAll(protocol.EvtTournamentCreated, t))
}

func (d *Dispatcher) joinTournament(c *Client, env protocol.Envelope) {
	var id string
	if err := env.Decode(&id); err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	t, err := d.tournaments.Join(id, c.ID)
	if err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	d.sink.Deliver(toAll(protocol.EvtTournamentUpdated, t))
}

func (d *Dispatcher) startTournament(c *Client, env protocol.Envelope) {
	var id string
	if err := env.Decode(&id); err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	t, err := d.tournaments.Start(d.actor(c), id)
	if err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	d.sink.Deliver(toAll(protocol.EvtTournamentStarted, t))
}

func (d *Dispatcher) reportTournament(c *Client, env protocol.Envelope) {
	var req protocol.TournamentReport
	if err := env.Decode(&req); err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	res, err := d.tournaments.ReportResult(req.TournamentID, req.WinnerID)
	if err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	if !res.Finished {
		d.sink.Deliver(toAll(protocol.EvtTournamentUpdated, res.Tournament))
		return
	}
	ds := []Delivery{}
	if res.Champion != nil {
		ds = append(ds, d.updatePlayer(res.Champion))
	}
	ds = append(ds, toAll(protocol.EvtTournamentFinished, res.Tournament))
	d.sink.Deliver(ds...)
}
