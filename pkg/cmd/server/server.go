package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof endpoints
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/account"
	"github.com/mpapenbr/carclash-server/pkg/auth"
	"github.com/mpapenbr/carclash-server/pkg/catalog"
	"github.com/mpapenbr/carclash-server/pkg/cmd/util"
	"github.com/mpapenbr/carclash-server/pkg/config"
	"github.com/mpapenbr/carclash-server/pkg/endpoints/public"
	"github.com/mpapenbr/carclash-server/pkg/engine"
	"github.com/mpapenbr/carclash-server/pkg/gateway"
	"github.com/mpapenbr/carclash-server/pkg/gateway/protocol"
	"github.com/mpapenbr/carclash-server/pkg/model"
	"github.com/mpapenbr/carclash-server/pkg/moderation"
	"github.com/mpapenbr/carclash-server/pkg/permission"
	"github.com/mpapenbr/carclash-server/pkg/relay"
	"github.com/mpapenbr/carclash-server/pkg/store"
	"github.com/mpapenbr/carclash-server/pkg/utils"
	"github.com/mpapenbr/carclash-server/pkg/utils/broadcast"
)

const (
	publicEventBuffer  = 256
	tokenPurgeInterval = time.Hour
	shutdownTimeout    = 10 * time.Second
)

//nolint:funlen // flag definitions
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.Addr,
		"addr",
		"a",
		"localhost:3000",
		"listen address of the http/websocket server")
	cmd.Flags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout prints them)")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().BoolVar(&config.PrintMessage,
		"print-message",
		false,
		"if true and log level is debug, inbound messages will be printed")
	cmd.Flags().StringVar(&config.AdminSecret,
		"admin-secret",
		"dev-secret",
		"shared secret required by admin:exec")
	cmd.Flags().StringVar(&config.AdminToken,
		"admin-token",
		"",
		"api-token value granting the admin role")
	cmd.Flags().StringVar(&config.NatsURL,
		"nats-url",
		"",
		"if set, public game events are published to this NATS server")
	cmd.Flags().StringVar(&config.RedisAddr,
		"redis-addr",
		"",
		"if set, banned accounts are stored in this redis server")
	cmd.Flags().StringVar(&config.CatalogFile,
		"catalog-file",
		"",
		"car catalog replacing the embedded one")
	cmd.Flags().StringVar(&config.PackDir,
		"pack-dir",
		"",
		"directory watched for car packs")
	cmd.Flags().Int64Var(&config.StartingMoney,
		"starting-money",
		100000,
		"money of a newly joined player")
	cmd.Flags().StringVar(&config.SweepInterval,
		"sweep-interval",
		"10s",
		"interval for closing expired auctions")
	cmd.Flags().StringVar(&config.RaceCountdown,
		"race-countdown",
		"3s",
		"countdown between start-race and the start of racing")
	cmd.Flags().StringVar(&config.TradeCooldown,
		"trade-cooldown",
		"5m",
		"cooldown after a completed trade")
	cmd.Flags().StringVar(&config.TokenExpiration,
		"token-expiration",
		"24h",
		"lifetime of a login token")
	cmd.Flags().Float64Var(&config.CommandRate,
		"command-rate",
		20,
		"commands per second allowed per session")
	cmd.Flags().IntVar(&config.CommandBurst,
		"command-burst",
		40,
		"burst size of the per session command limit")
	cmd.Flags().StringVar(&config.ServerList,
		"servers",
		"",
		"server list returned by /servers (name=url,...)")
	return cmd
}

type services struct {
	nc  *nats.Conn
	rdb *redis.Client
}

func (s *services) close() {
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			log.Warn("could not drain nats connection", log.ErrorField(err))
		}
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			log.Warn("could not close redis client", log.ErrorField(err))
		}
	}
}

//nolint:funlen,cyclop // startup sequence
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := util.SetupLogger()
	cfg := config.Resolve()
	log.Debug("Config:",
		log.String("addr", config.Addr),
		log.String("nats", config.NatsURL),
		log.String("redis", config.RedisAddr),
		log.Duration("sweep", cfg.SweepInterval),
		log.Duration("countdown", cfg.RaceCountdown),
	)

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port", log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // profiling only on localhost
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices(ctx)

	var telemetry *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	cat, err := loadCatalog()
	if err != nil {
		log.Error("catalog could not be loaded", log.ErrorField(err))
		return err
	}
	st := store.New(store.WithCatalog(cat))

	svc := &services{}
	defer svc.close()

	publicEvents := make(chan protocol.Encoded, publicEventBuffer)
	bcst := broadcast.NewBroadcastServer("public", publicEvents,
		broadcast.WithLogger[protocol.Encoded](logger.Named("broadcast")))
	defer bcst.Close()

	hub := gateway.NewHub(
		gateway.WithPublicEvents(publicEvents),
		gateway.WithHubLogger(logger.Named("hub")))

	var d *gateway.Dispatcher
	eng := engine.New(st,
		engine.WithSweep(cfg.SweepInterval, func(*store.Store) { d.Sweep() }),
		engine.WithLogger(logger.Named("engine")))

	dOpts := []gateway.DispatcherOption{
		gateway.WithConfig(cfg),
		gateway.WithPermissionEvaluator(permission.NewPermissionEvaluator()),
		gateway.WithLogger(logger.Named("gateway")),
	}
	var banned []string
	if config.RedisAddr != "" {
		if svc.rdb, err = moderation.NewRedisClient(ctx, config.RedisAddr); err != nil {
			log.Error("redis not available", log.ErrorField(err))
			return err
		}
		bans := moderation.NewBanStore(svc.rdb, moderation.WithLogger(logger.Named("moderation")))
		if banned, err = bans.Banned(ctx); err != nil {
			log.Warn("could not load bans", log.ErrorField(err))
		}
		dOpts = append(dOpts, gateway.WithBanRecorder(bans))
	}
	d = gateway.NewDispatcher(st, hub, eng, dOpts...)
	// the engine is not running yet, so the store may be touched directly
	d.RestoreBans(banned)
	eng.Start(ctx)
	defer eng.Close()

	if config.PackDir != "" {
		err := catalog.WatchPacks(log.AddToContext(ctx, logger), config.PackDir,
			func(file string, defs []model.CarDefinition) {
				eng.Submit(func(*store.Store) { d.MergePack(file, defs) })
			})
		if err != nil {
			log.Warn("pack directory is not watched", log.ErrorField(err))
		}
	}

	if config.NatsURL != "" {
		if svc.nc, err = relay.Connect(config.NatsURL, logger.Named("nats")); err != nil {
			log.Error("nats not available", log.ErrorField(err))
			return err
		}
		r := relay.New(svc.nc, bcst, relay.WithLogger(logger.Named("relay")))
		go r.Run(ctx)
	}

	accounts := account.NewService(
		account.WithTokenExpiration(cfg.TokenExpiration),
		account.WithStartingMoney(cfg.StartingMoney),
		account.WithLogger(logger.Named("account")))
	go purgeTokens(ctx, accounts)

	authn := auth.NewAuthenticator(
		auth.WithAdminToken(config.AdminToken),
		auth.WithTokenResolver(accounts))
	gw := gateway.New(eng, hub, d,
		gateway.WithAuthenticator(authn),
		gateway.WithGatewayConfig(cfg),
		gateway.WithGatewayLogger(logger.Named("gateway")))
	pub := public.NewPublicManager(
		public.WithAccounts(accounts),
		public.WithServers(config.Servers(config.ServerList)),
		public.WithWebsocket(gw),
		public.WithSessionCount(hub.Count),
		public.WithLogger(logger.Named("public")))

	server := &http.Server{
		Addr:              config.Addr,
		Handler:           h2c.NewHandler(pub.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", log.String("addr", config.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	case err := <-serverErr:
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", log.ErrorField(err))
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Server terminated")
	return nil
}

func loadCatalog() (*catalog.Catalog, error) {
	if config.CatalogFile == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(config.CatalogFile)
}

func purgeTokens(ctx context.Context, accounts *account.Service) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := accounts.PurgeTokens(ctx); n > 0 {
				log.Debug("purged expired tokens", log.Int("count", n))
			}
		}
	}
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}

func waitForRequiredServices(ctx context.Context) {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	checkTCP := func(addr string) {
		defer wg.Done()
		if err := utils.WaitForTCP(ctx, addr, timeout); err != nil {
			log.Fatal("required services not ready", log.ErrorField(err))
		}
	}
	for _, raw := range []string{config.NatsURL, config.RedisAddr} {
		if raw == "" {
			continue
		}
		addr, err := utils.ExtractAddr(raw)
		if err != nil {
			log.Warn("cannot check service", log.String("url", raw), log.ErrorField(err))
			continue
		}
		wg.Add(1)
		go checkTCP(addr)
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	log.Debug("Required services are available")
}
