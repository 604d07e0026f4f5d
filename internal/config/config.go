// Package config loads the master's process-level configuration: the ports
// and limits that sit outside the GTP engine option string, layered from an
// optional file and environment variables via viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/KBJarvis/distributed-go/internal/master"
)

// FileConfig holds runtime configuration for the distributed master
// process, independent of the GTP engine-init option string it also
// accepts.
type FileConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the slave and log-proxy listeners.
type ServerConfig struct {
	SlavePort  string `mapstructure:"slave_port"`
	ProxyPort  string `mapstructure:"proxy_port"`
	MaxSlaves  int    `mapstructure:"max_slaves"`
	SlavesQuit bool   `mapstructure:"slaves_quit"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig controls glog verbosity.
type LoggingConfig struct {
	Verbosity int `mapstructure:"verbosity"`
}

// Load reads configuration from the file at path if path is non-empty,
// otherwise from a "master" config file on the default search paths if one
// exists (only one file is read), then applies MASTER_-prefixed environment
// variables, which take precedence over file values.
func Load(path string) (FileConfig, error) {
	v := viper.New()

	v.SetDefault("server.slave_port", "1234")
	v.SetDefault("server.proxy_port", "")
	v.SetDefault("server.max_slaves", master.DefaultMaxSlaves)
	v.SetDefault("server.slaves_quit", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9096")

	v.SetDefault("logging.verbosity", 0)

	v.SetConfigName("master")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("MASTER")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return FileConfig{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Server.MaxSlaves <= 0 {
		cfg.Server.MaxSlaves = master.DefaultMaxSlaves
	}
	return cfg, nil
}

// ToMasterConfig builds the engine-facing master.Config this file
// configuration implies, absent any GTP engine-init option string override.
func (c FileConfig) ToMasterConfig() master.Config {
	cfg := master.Config{
		SlavePort:  c.Server.SlavePort,
		ProxyPort:  c.Server.ProxyPort,
		MaxSlaves:  c.Server.MaxSlaves,
		SlavesQuit: c.Server.SlavesQuit,
	}
	if c.Metrics.Enabled {
		cfg.MetricsAddr = c.Metrics.ListenAddr
	}
	return cfg
}
