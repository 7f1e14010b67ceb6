package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/config"
	"github.com/mpapenbr/carclash-server/pkg/engine"
	"github.com/mpapenbr/carclash-server/pkg/game/auction"
	"github.com/mpapenbr/carclash-server/pkg/game/city"
	"github.com/mpapenbr/carclash-server/pkg/game/economy"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/game/progression"
	"github.com/mpapenbr/carclash-server/pkg/game/race"
	"github.com/mpapenbr/carclash-server/pkg/game/tournament"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/permission"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

type (
	// Client identifies the connection a command came from
	Client struct {
		ID         string
		Account    string
		Auth       auth.Authentication
		RemoteAddr string
	}
	Scheduler interface {
		After(d time.Duration, fn engine.Func) *time.Timer
	}
	// BanRecorder persists account bans outside of the process
	BanRecorder interface {
		Ban(ctx context.Context, account string) error
		Unban(ctx context.Context, account string) error
	}
	DispatcherOption func(*Dispatcher)
	// Dispatcher routes commands to the game services. All methods must be
	// called on the engine goroutine.
	Dispatcher struct {
		cfg         config.Config
		store       *store.Store
		sink        Sink
		scheduler   Scheduler
		pe          permission.PermissionEvaluator
		bans        BanRecorder
		shuffle     func([]string)
		cityRandom  city.Random
		economy     *economy.Service
		auctions    *auction.Service
		races       *race.Service
		tournaments *tournament.Service
		progression *progression.Service
		cities      *city.Service
		l           *log.Logger
		reports     *log.Logger
	}
)

func WithConfig(cfg config.Config) DispatcherOption {
	return func(d *Dispatcher) {
		d.cfg = cfg
	}
}

func WithPermissionEvaluator(pe permission.PermissionEvaluator) DispatcherOption {
	return func(d *Dispatcher) {
		d.pe = pe
	}
}

func WithBanRecorder(b BanRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.bans = b
	}
}

// WithBracketShuffle replaces the random seeding of tournament brackets
func WithBracketShuffle(shuffle func([]string)) DispatcherOption {
	return func(d *Dispatcher) {
		d.shuffle = shuffle
	}
}

// WithCityRandom replaces the random source of city events
func WithCityRandom(rnd city.Random) DispatcherOption {
	return func(d *Dispatcher) {
		d.cityRandom = rnd
	}
}

func WithLogger(l *log.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.l = l
	}
}

//nolint:whitespace // can't make both editor and linter happy
func NewDispatcher(
	st *store.Store, sink Sink, scheduler Scheduler, opts ...DispatcherOption,
) *Dispatcher {
	ret := &Dispatcher{
		cfg:       config.Defaults(),
		store:     st,
		sink:      sink,
		scheduler: scheduler,
		l:         log.Default().Named("gateway"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.reports = ret.l.Named("reports")
	ret.economy = economy.NewService(st,
		economy.WithTradeCooldown(ret.cfg.TradeCooldown),
		economy.WithLogger(ret.l.Named("economy")))
	ret.auctions = auction.NewService(st,
		auction.WithPermissionEvaluator(ret.pe),
		auction.WithLogger(ret.l.Named("auction")))
	ret.races = race.NewService(st,
		race.WithPermissionEvaluator(ret.pe),
		race.WithLogger(ret.l.Named("race")))
	tOpts := []tournament.Option{
		tournament.WithPermissionEvaluator(ret.pe),
		tournament.WithLogger(ret.l.Named("tournament")),
	}
	if ret.shuffle != nil {
		tOpts = append(tOpts, tournament.WithShuffle(ret.shuffle))
	}
	ret.tournaments = tournament.NewService(st, tOpts...)
	ret.progression = progression.NewService(st)
	cOpts := []city.Option{city.WithLogger(ret.l.Named("city"))}
	if ret.cityRandom != nil {
		cOpts = append(cOpts, city.WithRandom(ret.cityRandom))
	}
	ret.cities = city.NewService(st, cOpts...)
	return ret
}

func accountKey(account string) string {
	return "account:" + account
}

func (c *Client) banKeys() []string {
	ret := []string{c.ID}
	if c.Account != "" {
		ret = append(ret, accountKey(c.Account))
	}
	return ret
}

// actor is the identity used for permission checks on game objects.
// Objects reference players by their session bound player id.
func (d *Dispatcher) actor(c *Client) auth.Authentication {
	roles := []auth.Role{auth.RolePlayer}
	if auth.HasRole(c.Auth, auth.RoleAdmin) {
		roles = append(roles, auth.RoleAdmin)
	}
	return auth.NewSimpleAuth(c.ID, roles...)
}

func (d *Dispatcher) allowed(a auth.Authentication, perm permission.Permission) bool {
	if d.pe == nil {
		return true
	}
	return d.pe.HasPermission(a, perm)
}

//nolint:funlen,cyclop // dispatching
func (d *Dispatcher) Handle(c *Client, env protocol.Envelope) {
	if d.store.IsBanned(c.banKeys()...) {
		d.kick(c.ID)
		return
	}
	switch env.Type {
	case protocol.CmdJoinGame:
		d.joinGame(c, env)
	case protocol.CmdBuyCar:
		d.buyCar(c, env)
	case protocol.CmdSellCar:
		d.sellCar(c, env)
	case protocol.CmdRefuel:
		d.refill(c, env, d.economy.Refuel)
	case protocol.CmdRecharge:
		d.refill(c, env, d.economy.Recharge)
	case protocol.CmdCustomizeCar:
		d.customize(c, env)
	case protocol.CmdCreateAuction:
		d.createAuction(c, env)
	case protocol.CmdPlaceBid:
		d.placeBid(c, env)
	case protocol.CmdCancelAuction:
		d.cancelAuction(c, env)
	case protocol.CmdCreateRace:
		d.createRace(c, env)
	case protocol.CmdJoinRace:
		d.joinRace(c, env)
	case protocol.CmdLeaveRace:
		d.leaveRace(c, env)
	case protocol.CmdStartRace:
		d.startRace(c, env)
	case protocol.CmdCheckpoint:
		d.checkpoint(c, env)
	case protocol.CmdTournamentCreate:
		d.createTournament(c, env)
	case protocol.CmdTournamentJoin:
		d.joinTournament(c, env)
	case protocol.CmdTournamentStart:
		d.startTournament(c, env)
	case protocol.CmdTournamentReport:
		d.reportTournament(c, env)
	case protocol.CmdLevelUp:
		d.levelUp(c, env)
	case protocol.CmdTradeRequest:
		d.tradeRequest(c, env)
	case protocol.CmdTradeAccept:
		d.tradeAccept(c, env)
	case protocol.CmdTradeDecline:
		d.tradeDecline(c, env)
	case protocol.CmdReportPlayer:
		d.reportPlayer(c, env)
	case protocol.CmdUpdatePosition:
		d.updatePosition(c, env)
	case protocol.CmdHeartbeat:
		d.heartbeat(c, env)
	case protocol.CmdAdminExec:
		d.adminExec(c, env)
	case protocol.CmdCityEvent:
		d.cityEvent(c, env)
	case protocol.CmdTeleportToCity:
		d.teleport(c, env)
	default:
		d.sendError(c, env.Type, gameerr.ErrUnknownCommand)
	}
}

func (d *Dispatcher) kick(id string) {
	d.sink.Deliver(Delivery{
		Scope:  ScopePlayer,
		Target: id,
		Event:  protocol.NewEvent(protocol.EvtBanned, nil),
		Close:  true,
	})
}

// fail answers a failed command with a result event
func (d *Dispatcher) fail(c *Client, eventType string, err error) {
	d.l.Debug("command failed",
		log.String("session", c.ID),
		log.String("event", eventType),
		log.ErrorField(err))
	d.sink.Deliver(toRequester(c, eventType, protocol.Result{
		Success: false,
		Message: err.Error(),
		Code:    gameerr.Code(err),
	}))
}

// SendError reports a problem that is not bound to a result event
func (d *Dispatcher) sendError(c *Client, cmd protocol.CommandKind, err error) {
	d.sink.Deliver(toRequester(c, protocol.EvtError, protocol.ErrorPayload{
		Code:    gameerr.Code(err),
		Message: err.Error(),
		Command: string(cmd),
	}))
}

// ignore logs commands which fail without notifying the client
func (d *Dispatcher) ignore(c *Client, cmd protocol.CommandKind, err error) {
	d.l.Debug("command ignored",
		log.String("session", c.ID),
		log.String("command", string(cmd)),
		log.ErrorField(err))
}

func invalidPayload(err error) error {
	return gameerr.Wrap(gameerr.ErrInvalidInput, "invalid payload: %v", err)
}

func (d *Dispatcher) player(id string) *model.Player {
	p, _ := d.store.Player(id)
	return p
}

func (d *Dispatcher) updatePlayer(p *model.Player) Delivery {
	return toPlayer(p.ID, protocol.EvtUpdatePlayer, p)
}

func (d *Dispatcher) joinGame(c *Client, env protocol.Envelope) {
	var req protocol.JoinGame
	if err := env.Decode(&req); err != nil {
		d.sendError(c, env.Type, invalidPayload(err))
		return
	}
	p, exists := d.store.Player(c.ID)
	if !exists {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = fmt.Sprintf("Player_%s", c.ID[:min(6, len(c.ID))])
		}
		p = model.NewPlayer(c.ID, name, d.cfg.StartingMoney)
		p.AccountName = c.Account
		d.store.AddPlayer(p)
		d.l.Info("player joined",
			log.String("session", c.ID),
			log.String("name", name),
			log.String("account", c.Account))
	}
	ds := []Delivery{toRequester(c, protocol.EvtGameState, d.gameState(p))}
	if !exists {
		ds = append(ds, toOthers(c, protocol.EvtPlayerJoined, p))
	}
	d.sink.Deliver(ds...)
}

func (d *Dispatcher) gameState(p *model.Player) protocol.GameState {
	races := lo.Reject(d.store.Races(), func(r *model.Race, _ int) bool {
		return r.Status == model.RaceFinished
	})
	return protocol.GameState{
		Player:         p,
		AvailableCars:  d.store.Catalog.ByCategory(),
		ActiveAuctions: d.store.ActiveAuctions(),
		ActiveRaces:    races,
		Tournaments:    d.store.Tournaments(),
		Tracks:         race.Tracks(),
		ServerTime:     d.store.Now(),
	}
}

func (d *Dispatcher) reportPlayer(c *Client, env protocol.Envelope) {
	var req protocol.ReportPlayer
	if err := env.Decode(&req); err != nil {
		d.sendError(c, env.Type, invalidPayload(err))
		return
	}
	d.reports.Info("player report",
		log.String("reporter", c.ID),
		log.String("accused", req.AccusedID),
		log.String("category", req.Category),
		log.String("message", req.Message))
	d.sink.Deliver(toRequester(c, protocol.EvtReportAck, protocol.Result{Success: true}))
}

func (d *Dispatcher) updatePosition(c *Client, env protocol.Envelope) {
	if d.store.IsFrozen(c.ID) {
		return
	}
	p := d.player(c.ID)
	if p == nil {
		return
	}
	var req protocol.UpdatePosition
	if err := env.Decode(&req); err != nil {
		d.ignore(c, env.Type, err)
		return
	}
	p.Position = req.Position
	p.Rotation = req.Rotation
	d.sink.Deliver(toOthers(c, protocol.EvtPlayerMoved, protocol.PlayerMoved{
		PlayerID: c.ID,
		Position: req.Position,
		Rotation: req.Rotation,
	}))
}

func (d *Dispatcher) heartbeat(c *Client, env protocol.Envelope) {
	var req protocol.Heartbeat
	_ = env.Decode(&req)
	d.sink.Deliver(toRequester(c, protocol.EvtHeartbeat, protocol.HeartbeatAck{
		ServerTime: d.store.Now().UnixMilli(),
		ClientTime: req.SentAt,
	}))
}

// Disconnect removes the player of c and cleans up what refers to it
func (d *Dispatcher) Disconnect(c *Client) {
	p := d.store.RemovePlayer(c.ID)
	d.store.Unfreeze(c.ID)
	if p == nil {
		return
	}
	ds := []Delivery{}
	for _, r := range d.races.RetirePlayer(c.ID) {
		if r.Status == model.RaceFinished {
			ds = append(ds, toAll(protocol.EvtRaceFinished, r))
		} else {
			ds = append(ds, toAll(protocol.EvtRaceUpdated, r))
		}
	}
	for _, t := range d.tournaments.RemovePlayer(c.ID) {
		ds = append(ds, toAll(protocol.EvtTournamentUpdated, t))
	}
	for _, o := range d.store.RemoveTradeOffersOf(c.ID) {
		other := o.FromID
		if other == c.ID {
			other = o.ToID
		}
		ds = append(ds, toPlayer(other, protocol.EvtTradeError, protocol.TradeNotice{
			Message: "Trade partner left",
			OfferID: o.ID,
			Code:    gameerr.Code(gameerr.ErrPlayerNotFound),
		}))
	}
	ds = append(ds, toOthers(c, protocol.EvtPlayerLeft, c.ID))
	d.sink.Deliver(ds...)
	d.l.Info("player left", log.String("session", c.ID), log.String("name", p.Name))
}

// Sweep settles expired auctions and drops races finished a while ago
func (d *Dispatcher) Sweep() {
	d.races.PurgeFinished()
	ds := []Delivery{}
	for _, s := range d.auctions.Sweep() {
		if s.Winner != nil {
			ds = append(ds, d.updatePlayer(s.Winner))
			if s.Seller != nil {
				ds = append(ds, d.updatePlayer(s.Seller))
			}
		}
		ds = append(ds, toAll(protocol.EvtAuctionEnded, s.Auction))
	}
	if len(ds) > 0 {
		d.sink.Deliver(ds...)
	}
}

// MergePack adds the car definitions of a pack to the catalog
func (d *Dispatcher) MergePack(source string, defs []model.CarDefinition) []string {
	added := d.store.Catalog.Merge(defs)
	d.l.Info("car pack merged",
		log.String("source", source),
		log.Int("received", len(defs)),
		log.Int("added", len(added)))
	if len(added) > 0 {
		d.sink.Deliver(toAll(protocol.EvtCatalogUpdated, protocol.CatalogUpdated{Added: added}))
	}
	return added
}
