package gateway

import (
	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/permission"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

func (d *Dispatcher) createRace(c *Client, env protocol.Envelope) {
	var req protocol.CreateRace
	if err := env.Decode(&req); err != nil {
		d.fail(c, protocol.EvtRaceResult, invalidPayload(err))
		return
	}
	if !d.allowed(d.actor(c), permission.PermissionCreateRace) {
		d.fail(c, protocol.EvtRaceResult, gameerr.ErrPermissionDenied)
		return
	}
	r, err := d.races.CreateRace(c.ID, req.Track, req.Laps, req.MaxParticipants)
	if err != nil {
		d.fail(c, protocol.EvtRaceResult, err)
		return
	}
	d.sink.Deliver(
		toAll(protocol.EvtNewRace, r),
		toRequester(c, protocol.EvtRaceCreated, r),
	)
}

func (d *Dispatcher) joinRace(c *Client, env protocol.Envelope) {
	var raceID string
	if err := env.Decode(&raceID); err != nil {
		d.fail(c, protocol.EvtRaceResult, invalidPayload(err))
		return
	}
	if !d.allowed(d.actor(c), permission.PermissionJoinRace) {
		d.fail(c, protocol.EvtRaceResult, gameerr.ErrPermissionDenied)
		return
	}
	r, err := d.races.JoinRace(raceID, c.ID)
	if err != nil {
		d.fail(c, protocol.EvtRaceResult, err)
		return
	}
	d.sink.Deliver(
		toAll(protocol.EvtRaceUpdated, r),
		toRequester(c, protocol.EvtRaceResult, protocol.Result{Success: true, Race: r}),
	)
}

func (d *Dispatcher) leaveRace(c *Client, env protocol.Envelope) {
	var raceID string
	if err := env.Decode(&raceID); err != nil {
		d.fail(c, protocol.EvtRaceResult, invalidPayload(err))
		return
	}
	r, err := d.races.LeaveRace(raceID, c.ID)
	if err != nil {
		d.fail(c, protocol.EvtRaceResult, err)
		return
	}
	d.sink.Deliver(
		toAll(protocol.EvtRaceUpdated, r),
		toRequester(c, protocol.EvtRaceResult, protocol.Result{Success: true, Race: r}),
	)
}

func (d *Dispatcher) startRace(c *Client, env protocol.Envelope) {
	var raceID string
	if err := env.Decode(&raceID); err != nil {
		d.fail(c, protocol.EvtRaceResult, invalidPayload(err))
		return
	}
	r, err := d.races.StartRace(d.actor(c), raceID)
	if err != nil {
		d.fail(c, protocol.EvtRaceResult, err)
		return
	}
	countdown := d.cfg.RaceCountdown
	d.sink.Deliver(
		toAll(protocol.EvtRaceUpdated, r),
		toAll(protocol.EvtRaceCountdown, protocol.RaceCountdown{
			RaceID:  r.ID,
			Seconds: int(countdown.Seconds()),
		}),
	)
	d.scheduler.After(countdown, func(*store.Store) {
		d.beginRace(raceID)
	})
}

func (d *Dispatcher) beginRace(raceID string) {
	r, err := d.races.BeginRacing(raceID)
	if err != nil {
		d.l.Debug("race not started after countdown",
			log.String("race", raceID), log.ErrorField(err))
		return
	}
	if r.Status == model.RaceFinished {
		d.sink.Deliver(toAll(protocol.EvtRaceFinished, r))
		return
	}
	d.sink.Deliver(toAll(protocol.EvtRaceStarted, r))
}

func (d *Dispatcher) checkpoint(c *Client, env protocol.Envelope) {
	var req protocol.Checkpoint
	if err := env.Decode(&req); err != nil {
		d.fail(c, protocol.EvtRaceResult, invalidPayload(err))
		return
	}
	res, err := d.races.Checkpoint(req.RaceID, c.ID, req.Checkpoint)
	if err != nil {
		d.fail(c, protocol.EvtRaceResult, err)
		return
	}
	if !res.Advanced {
		return
	}
	ds := []Delivery{toAll(protocol.EvtRaceProgress, protocol.RaceProgress{
		RaceID:     res.Race.ID,
		PlayerID:   c.ID,
		Lap:        res.Participant.CurrentLap,
		Checkpoint: res.Participant.CurrentCheckpoint,
		Finished:   res.Participant.Finished,
	})}
	if res.RaceFinished {
		ds = append(ds, toAll(protocol.EvtRaceFinished, res.Race))
	}
	d.sink.Deliver(ds...)
}
