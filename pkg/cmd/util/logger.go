package util

import (
	"os"

	"github.com/mpapenbr/carclash-server/log"
	"github.com/mpapenbr/carclash-server/pkg/config"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the logger from the log flags and installs it as default.
// A --log-config file takes precedence over --log-level.
func SetupLogger() *log.Logger {
	var logger *log.Logger
	if config.LogConfig != "" {
		cfg, err := log.LoadConfig(config.LogConfig)
		if err == nil {
			logger = log.NewWithConfig(os.Stderr, config.LogFormat, cfg,
				log.WithCaller(true),
				log.AddCallerSkip(1))
			log.ResetDefault(logger)
			return logger
		}
		log.Warn("could not load log config, using defaults",
			log.String("file", config.LogConfig), log.ErrorField(err))
	}
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLogLevel(config.LogLevel, log.DebugLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1))
	}
	log.ResetDefault(logger)
	return logger
}
