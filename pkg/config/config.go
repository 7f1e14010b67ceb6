package config

import (
	"strings"
	"time"
)

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	Addr              string  // listen addr for http/websocket server
	WaitForServices   string  // duration to wait for other services to be ready
	LogLevel          string  // sets the log level (zap log level values)
	LogFormat         string  // text vs json
	LogConfig         string  // path to log config file
	EnableTelemetry   bool    // enable telemetry
	TelemetryEndpoint string  // endpoint for telemetry
	ProfilingPort     int     // port for profiling
	AdminSecret       string  // shared secret for admin:exec
	AdminToken        string  // api-token granting the admin role on http/websocket requests
	NatsURL           string  // if set, public events are relayed to nats
	RedisAddr         string  // if set, bans are mirrored to redis
	CatalogFile       string  // optional yaml file replacing the embedded catalog
	PackDir           string  // directory watched for car packs
	StartingMoney     int64   // money of a newly joined player
	SweepInterval     string  // interval of the auction sweep
	RaceCountdown     string  // countdown between start-race and racing
	TradeCooldown     string  // cooldown after a successful trade
	TokenExpiration   string  // lifetime of a login token
	CommandRate       float64 // commands per second per session
	CommandBurst      int     // burst size of the command rate limiter
	ServerList        string  // comma separated list of name=url entries for /servers
	PrintMessage      bool    // if true, inbound messages are logged on debug level
)

// Config holds the configuration values which are used by the application
type Config struct {
	StartingMoney   int64
	SweepInterval   time.Duration
	RaceCountdown   time.Duration
	TradeCooldown   time.Duration
	TokenExpiration time.Duration
	CommandRate     float64
	CommandBurst    int
	AdminSecret     string
	PrintMessage    bool
}

// Server is an entry of the server list
type Server struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Defaults returns the configuration used when nothing else is configured.
func Defaults() Config {
	return Config{
		StartingMoney:   100000,
		SweepInterval:   10 * time.Second,
		RaceCountdown:   3 * time.Second,
		TradeCooldown:   5 * time.Minute,
		TokenExpiration: 24 * time.Hour,
		CommandRate:     20,
		CommandBurst:    40,
		AdminSecret:     "dev-secret",
	}
}

// Resolve builds the Config from the CLI values.
// Invalid durations fall back to their defaults.
func Resolve() Config {
	ret := Defaults()
	if StartingMoney > 0 {
		ret.StartingMoney = StartingMoney
	}
	ret.SweepInterval = parseDuration(SweepInterval, ret.SweepInterval)
	ret.RaceCountdown = parseDuration(RaceCountdown, ret.RaceCountdown)
	ret.TradeCooldown = parseDuration(TradeCooldown, ret.TradeCooldown)
	ret.TokenExpiration = parseDuration(TokenExpiration, ret.TokenExpiration)
	if CommandRate > 0 {
		ret.CommandRate = CommandRate
	}
	if CommandBurst > 0 {
		ret.CommandBurst = CommandBurst
	}
	if AdminSecret != "" {
		ret.AdminSecret = AdminSecret
	}
	ret.PrintMessage = PrintMessage
	return ret
}

// Servers parses entries like "eu=ws://localhost:3000,us=ws://localhost:3001"
func Servers(list string) []Server {
	ret := []Server{}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, url, found := strings.Cut(entry, "=")
		if !found {
			url = name
		}
		ret = append(ret, Server{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)})
	}
	return ret
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
