package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"moul.io/zapfilter"
)

// Config describes per-logger levels read from a yaml file.
//
//	defaultLevel: info
//	loggers:
//	  gateway: debug
//	  engine.sweep: warn
type Config struct {
	Default string            `yaml:"defaultLevel"`
	Loggers map[string]string `yaml:"loggers"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid log config: %w", err)
	}
	if _, err := cfg.Rules(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) DefaultLevel() Level {
	if c == nil || c.Default == "" {
		return InfoLevel
	}
	if l, err := ParseLevel(c.Default); err == nil {
		return l
	}
	return InfoLevel
}

// Rules converts the configuration into zapfilter rules.
// Specific loggers are listed first, the default applies to everything else.
func (c *Config) Rules() (string, error) {
	rules := make([]string, 0, len(c.Loggers)+1)
	for name, level := range c.Loggers {
		l, err := ParseLevel(level)
		if err != nil {
			return "", fmt.Errorf("logger %s: %w", name, err)
		}
		rules = append(rules, fmt.Sprintf("%s+:%s", l.String(), name))
		if !strings.HasSuffix(name, "*") {
			rules = append(rules, fmt.Sprintf("%s+:%s.*", l.String(), name))
		}
	}
	rules = append(rules, fmt.Sprintf("%s+:*", c.DefaultLevel().String()))
	return strings.Join(rules, " "), nil
}

func (c *Config) wrapCore(core zapcore.Core) zapcore.Core {
	rules, err := c.Rules()
	if err != nil {
		return core
	}
	return zapfilter.NewFilteringCore(core, c.filterFunc(rules))
}

// filterFunc makes the most specific logger rule win. zapfilter combines
// rules with "or", so a named logger with a level above the default is
// matched against its own rule only.
func (c *Config) filterFunc(rules string) zapfilter.FilterFunc {
	all := zapfilter.MustParseRules(rules)
	specific := map[string]zapfilter.FilterFunc{}
	for name, level := range c.Loggers {
		l, _ := ParseLevel(level)
		pattern := fmt.Sprintf("%s+:%s %s+:%s.*", l.String(), name, l.String(), name)
		specific[name] = zapfilter.MustParseRules(pattern)
	}
	return func(entry zapcore.Entry, fields []zapcore.Field) bool {
		best := ""
		for name := range specific {
			if (entry.LoggerName == name || strings.HasPrefix(entry.LoggerName, name+".")) &&
				len(name) > len(best) {
				best = name
			}
		}
		if best != "" {
			return specific[best](entry, fields)
		}
		return all(entry, fields)
	}
}
