package master

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxSlaves is used when max_slaves is not supplied.
const DefaultMaxSlaves = 100

// Config is the engine's runtime configuration, as carried by the
// comma-separated option string the GTP front-end passes at engine init.
type Config struct {
	SlavePort   string
	MaxSlaves   int
	SlavesQuit  bool
	ProxyPort   string // empty disables the log proxy
	MetricsAddr string // empty disables the metrics endpoint
}

// ParseOptionString parses "a=b,c=d,..." into a Config, applying defaults
// for anything not given. slave_port is mandatory; an un-parsable or
// missing mandatory option is a fatal configuration error.
func ParseOptionString(s string) (Config, error) {
	cfg := Config{MaxSlaves: DefaultMaxSlaves}

	for _, optspec := range strings.Split(s, ",") {
		if optspec == "" {
			continue
		}
		name, val, hasVal := strings.Cut(optspec, "=")
		switch strings.ToLower(name) {
		case "slave_port":
			if !hasVal || val == "" {
				return Config{}, fmt.Errorf("master: slave_port requires a value")
			}
			cfg.SlavePort = val
		case "proxy_port":
			if !hasVal || val == "" {
				return Config{}, fmt.Errorf("master: proxy_port requires a value")
			}
			cfg.ProxyPort = val
		case "metrics_addr":
			if !hasVal || val == "" {
				return Config{}, fmt.Errorf("master: metrics_addr requires a value")
			}
			cfg.MetricsAddr = val
		case "max_slaves":
			if !hasVal {
				return Config{}, fmt.Errorf("master: max_slaves requires a value")
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("master: invalid max_slaves %q: %w", val, err)
			}
			cfg.MaxSlaves = n
		case "slaves_quit":
			if !hasVal || val == "" {
				cfg.SlavesQuit = true
				continue
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return Config{}, fmt.Errorf("master: invalid slaves_quit %q: %w", val, err)
			}
			cfg.SlavesQuit = n != 0
		default:
			return Config{}, fmt.Errorf("master: invalid engine argument %q", name)
		}
	}

	if cfg.SlavePort == "" {
		return Config{}, fmt.Errorf("master: missing slave_port")
	}
	return cfg, nil
}
