package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/catalog"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/permission"
)

const banTimeout = 5 * time.Second

//nolint:funlen,cyclop // command switch
func (d *Dispatcher) adminExec(c *Client, env protocol.Envelope) {
	adminLog := func(level, format string, args ...any) {
		d.sink.Deliver(toRequester(c, protocol.EvtAdminLog, protocol.AdminLog{
			Level:   level,
			Message: fmt.Sprintf(format, args...),
		}))
	}
	var req protocol.AdminExec
	if err := env.Decode(&req); err != nil {
		adminLog("error", "Error: %v", err)
		return
	}
	if req.Secret != d.cfg.AdminSecret {
		d.l.Warn("invalid admin secret",
			log.String("session", c.ID),
			log.String("remote", c.RemoteAddr),
			log.String("cmd", req.Cmd))
		adminLog("error", "Invalid admin secret")
		return
	}
	admin := auth.WithRole(d.actor(c), auth.RoleAdmin)
	if !d.allowed(admin, permission.PermissionAdminExec) {
		adminLog("error", "Permission denied")
		return
	}
	d.l.Info("admin command",
		log.String("session", c.ID),
		log.String("cmd", req.Cmd),
		log.String("target", req.Args.TargetID))

	args := req.Args
	switch req.Cmd {
	case "giveMoney":
		p := d.player(args.TargetID)
		if p == nil {
			adminLog("error", "Target not found")
			return
		}
		if p.Money+args.Amount < 0 {
			adminLog("error", "Balance of %s would become negative", args.TargetID)
			return
		}
		p.Money += args.Amount
		d.sink.Deliver(d.updatePlayer(p))
		adminLog("info", "Gave $%d to %s", args.Amount, args.TargetID)

	case "spawnCar":
		p := d.player(args.TargetID)
		if p == nil {
			adminLog("error", "Target not found")
			return
		}
		car, ok := d.store.Instantiate(args.CarID)
		if !ok {
			adminLog("error", "Car not found")
			return
		}
		p.Cars = append(p.Cars, car)
		d.sink.Deliver(d.updatePlayer(p))
		adminLog("info", "Spawned %s for %s", args.CarID, args.TargetID)

	case "ban":
		if args.TargetID == "" {
			adminLog("error", "Missing targetId")
			return
		}
		d.store.Ban(args.TargetID)
		if p := d.player(args.TargetID); p != nil && p.AccountName != "" {
			d.store.Ban(accountKey(p.AccountName))
			d.recordBan(p.AccountName, true)
		}
		d.kick(args.TargetID)
		adminLog("info", "Banned %s", args.TargetID)

	case "unban":
		if args.TargetID == "" {
			adminLog("error", "Missing targetId")
			return
		}
		// target is either a player id or an account name
		d.store.Unban(args.TargetID)
		d.store.Unban(accountKey(args.TargetID))
		d.recordBan(args.TargetID, false)
		adminLog("info", "Unbanned %s", args.TargetID)

	case "freeze":
		if args.TargetID == "" {
			adminLog("error", "Missing targetId")
			return
		}
		d.store.Freeze(args.TargetID)
		adminLog("info", "Froze %s", args.TargetID)

	case "unfreeze":
		if args.TargetID == "" {
			adminLog("error", "Missing targetId")
			return
		}
		d.store.Unfreeze(args.TargetID)
		adminLog("info", "Unfroze %s", args.TargetID)

	case "loadPack":
		if !d.allowed(admin, permission.PermissionLoadPack) {
			adminLog("error", "Permission denied")
			return
		}
		defs, err := catalog.Parse([]byte(args.Document))
		if err != nil {
			adminLog("error", "Error: %v", err)
			return
		}
		added := d.MergePack("admin:"+c.ID, defs)
		adminLog("info", "Loaded %d of %d cars", len(added), len(defs))

	default:
		adminLog("error", "Unknown command")
	}
}

// recordBan mirrors the ban state of an account to the ban recorder.
// This runs outside of the engine goroutine.
func (d *Dispatcher) recordBan(account string, banned bool) {
	if d.bans == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), banTimeout)
		defer cancel()
		var err error
		if banned {
			err = d.bans.Ban(ctx, account)
		} else {
			err = d.bans.Unban(ctx, account)
		}
		if err != nil {
			d.l.Error("could not record ban state",
				log.String("account", account),
				log.Bool("banned", banned),
				log.ErrorField(err))
		}
	}()
}

// RestoreBans bans accounts loaded from the ban recorder at startup
func (d *Dispatcher) RestoreBans(accounts []string) {
	for _, a := range accounts {
		d.store.Ban(accountKey(a))
	}
	if len(accounts) > 0 {
		d.l.Info("restored bans", log.Int("accounts", len(accounts)))
	}
}
