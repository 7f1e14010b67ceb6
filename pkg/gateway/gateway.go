package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/config"
	"github.com/mpapenbr/carclash-server/pkg/engine"
	"github.com/mpapenbr/carclash-server/pkg/game/gameerr"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/store"
)

const disconnectTimeout = 5 * time.Second

type (
	Option  func(*Gateway)
	Gateway struct {
		cfg        config.Config
		engine     *engine.Engine
		hub        *Hub
		dispatcher *Dispatcher
		authn      *auth.Authenticator
		upgrader   websocket.Upgrader
		tracer     trace.Tracer
		l          *log.Logger
	}
)

func WithAuthenticator(a *auth.Authenticator) Option {
	return func(g *Gateway) {
		g.authn = a
	}
}

func WithGatewayConfig(cfg config.Config) Option {
	return func(g *Gateway) {
		g.cfg = cfg
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

func WithGatewayLogger(l *log.Logger) Option {
	return func(g *Gateway) {
		g.l = l
	}
}

func New(eng *engine.Engine, hub *Hub, d *Dispatcher, opts ...Option) *Gateway {
	ret := &Gateway{
		cfg:        config.Defaults(),
		engine:     eng,
		hub:        hub,
		dispatcher: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// origins are checked by the cors handler
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		l: log.Default().Named("gateway"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("ccs")
	}
	return ret
}

// ServeHTTP upgrades the request and serves the session until it is closed
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a := auth.FromContext(r.Context())
	if g.authn != nil {
		var err error
		if a, err = g.authn.Authenticate(r.Context(), r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	if a == nil {
		a = auth.Anonymous()
	}
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.l.Warn("upgrade failed", log.ErrorField(err))
		return
	}
	c := Client{
		ID:         uuid.NewString(),
		Auth:       a,
		RemoteAddr: r.RemoteAddr,
	}
	if auth.HasRole(a, auth.RolePlayer) {
		c.Account = a.Principal().Name()
	}
	s := newSession(c, conn,
		rate.NewLimiter(rate.Limit(g.cfg.CommandRate), g.cfg.CommandBurst),
		g.l)
	g.hub.Register(s)
	g.l.Debug("session opened",
		log.String("session", c.ID),
		log.String("remote", c.RemoteAddr),
		log.String("account", c.Account))

	go s.writePump()
	s.readPump(func(data []byte) { g.handle(r.Context(), s, data) })
	g.disconnect(s)
}

func (g *Gateway) handle(ctx context.Context, s *Session, data []byte) {
	if g.cfg.PrintMessage {
		g.l.Debug("inbound", log.String("session", s.ID), log.String("msg", string(data)))
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		g.reject(s, "", gameerr.Wrap(gameerr.ErrInvalidInput, "malformed message"))
		return
	}
	if !s.limiter.Allow() {
		g.reject(s, env.Type, gameerr.ErrTooManyCommands)
		return
	}
	ctx, span := g.tracer.Start(ctx, "command "+string(env.Type),
		trace.WithAttributes(
			attribute.String("session", s.ID),
			attribute.String("command", string(env.Type))))
	defer span.End()
	if err := g.engine.Do(ctx, func(*store.Store) {
		g.dispatcher.Handle(&s.Client, env)
	}); err != nil {
		span.SetStatus(codes.Error, err.Error())
		g.l.Error("command not processed",
			log.String("session", s.ID),
			log.String("command", string(env.Type)),
			log.ErrorField(err))
		g.reject(s, env.Type, err)
	}
}

func (g *Gateway) reject(s *Session, cmd protocol.CommandKind, err error) {
	g.hub.Deliver(Delivery{
		Scope:  ScopeRequester,
		Target: s.ID,
		Event: protocol.NewEvent(protocol.EvtError, protocol.ErrorPayload{
			Code:    gameerr.Code(err),
			Message: err.Error(),
			Command: string(cmd),
		}),
	})
}

func (g *Gateway) disconnect(s *Session) {
	s.Close()
	g.hub.Unregister(s.ID)
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := g.engine.Do(ctx, func(*store.Store) {
		g.dispatcher.Disconnect(&s.Client)
	}); err != nil {
		g.l.Error("disconnect cleanup failed",
			log.String("session", s.ID), log.ErrorField(err))
	}
	g.l.Debug("session closed", log.String("session", s.ID))
}
