// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the gateway configuration file.
package config

import (
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/cache"
	"github.com/onosproject/onos-opcgw/pkg/selector"
	"github.com/spf13/viper"
)

const envPrefix = "OPCGW"

// Config is the content of the JSON configuration file
type Config struct {
	LoggerConfig        LoggerConfig     `mapstructure:"loggerConfig"`
	NodesDatabase       cache.Config     `mapstructure:"nodesDatabase"`
	NodesLoader         NodesLoader      `mapstructure:"nodesLoader"`
	OPCServerURL        string           `mapstructure:"opcServerURL"`
	OPCSystemName       string           `mapstructure:"opcSystemName"`
	ReconnectPeriod     int              `mapstructure:"reconnectPeriod"`
	PublishingInterval  int              `mapstructure:"publishingInterval"`
	NodesUnavailAfter   int              `mapstructure:"nodesUnavailAfter_sec"`
	KeepAlivePeriod     int              `mapstructure:"keepAlivePeriod"`
	RequestTimeout      int              `mapstructure:"requestTimeout"`
	ShutdownGracePeriod int              `mapstructure:"shutdownGracePeriod"`
	Northbound          Northbound       `mapstructure:"northbound"`
	GNMIConnector       GNMIConnector    `mapstructure:"gnmiConnector"`
	NetconfConnector    NetconfConnector `mapstructure:"netconfConnector"`
	MetricsConnector    MetricsConnector `mapstructure:"metricsConnector"`
	NATSConnector       NATSConnector    `mapstructure:"natsConnector"`
}

type LoggerConfig struct {
	LogLevel string `mapstructure:"logLevel"`
}

// NodesLoader selects where the variables come from and which are kept
type NodesLoader struct {
	Filename        string `mapstructure:"filename"`
	BrowseNodes     bool   `mapstructure:"browseNodes"`
	selector.Config `mapstructure:",squash"`
}

// Northbound configures the gRPC server hosting the RPC connectors
type Northbound struct {
	GRPCPort int    `mapstructure:"grpcPort"`
	CAPath   string `mapstructure:"caPath"`
	KeyPath  string `mapstructure:"keyPath"`
	CertPath string `mapstructure:"certPath"`
}

type GNMIConnector struct {
	Enabled bool `mapstructure:"enabled"`
}

type NetconfConnector struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type MetricsConnector struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type NATSConnector struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subjectPrefix"`
}

var defaults = map[string]interface{}{
	"loggerConfig.logLevel":        "info",
	"nodesDatabase.isInMemory":     true,
	"nodesDatabase.overwrite":      false,
	"nodesDatabase.historyLength":  0,
	"nodesLoader.browseNodes":      true,
	"nodesLoader.targetIdentifier": "DisplayName",
	"opcSystemName":                "OPC",
	"reconnectPeriod":              10,
	"publishingInterval":           1000,
	"nodesUnavailAfter_sec":        0,
	"keepAlivePeriod":              5000,
	"requestTimeout":               10000,
	"shutdownGracePeriod":          2000,
	"northbound.grpcPort":          5150,
	"gnmiConnector.enabled":        true,
	"netconfConnector.enabled":     false,
	"netconfConnector.port":        830,
	"metricsConnector.enabled":     false,
	"metricsConnector.port":        9090,
	"metricsConnector.path":        "/metrics",
	"natsConnector.enabled":        false,
	"natsConnector.url":            "nats://127.0.0.1:4222",
	"natsConnector.subjectPrefix":  "opcgw",
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads and validates the JSON configuration at path
func Load(path string) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.NewInvalid("read configuration %s: %v", path, err)
	}
	return decode(v)
}

// Default returns the configuration holding only default values
func Default() Config {
	cfg, _ := decode(newViper())
	return cfg
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.NewInvalid("decode configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the values a component cannot start without
func (c Config) Validate() error {
	if c.OPCServerURL == "" {
		return errors.NewInvalid("opcServerURL is required")
	}
	if c.ReconnectPeriod <= 0 {
		return errors.NewInvalid("reconnectPeriod must be positive, got %d", c.ReconnectPeriod)
	}
	if c.PublishingInterval <= 0 {
		return errors.NewInvalid("publishingInterval must be positive, got %d", c.PublishingInterval)
	}
	if c.NodesUnavailAfter < 0 || c.KeepAlivePeriod < 0 || c.RequestTimeout < 0 || c.ShutdownGracePeriod < 0 {
		return errors.NewInvalid("durations must not be negative")
	}
	if !c.NodesDatabase.IsInMemory && c.NodesDatabase.Filename == "" {
		return errors.NewInvalid("nodesDatabase.filename is required when isInMemory is false")
	}
	if c.NodesDatabase.HistoryLength < 0 {
		return errors.NewInvalid("nodesDatabase.historyLength must not be negative")
	}
	if !c.NodesLoader.BrowseNodes && c.NodesLoader.Filename == "" {
		return errors.NewInvalid("nodesLoader.filename is required when browseNodes is false")
	}
	if _, err := selector.New(c.NodesLoader.Config); err != nil {
		return err
	}
	for name, port := range map[string]int{
		"northbound.grpcPort":   c.Northbound.GRPCPort,
		"netconfConnector.port": c.NetconfConnector.Port,
		"metricsConnector.port": c.MetricsConnector.Port,
	} {
		if port < 0 || port > 65535 {
			return errors.NewInvalid("%s %d is out of range", name, port)
		}
	}
	if c.NATSConnector.Enabled && c.NATSConnector.URL == "" {
		return errors.NewInvalid("natsConnector.url is required when the connector is enabled")
	}
	return nil
}

func (c Config) ReconnectPeriodDuration() time.Duration {
	return time.Duration(c.ReconnectPeriod) * time.Second
}

func (c Config) PublishingIntervalDuration() time.Duration {
	return time.Duration(c.PublishingInterval) * time.Millisecond
}

func (c Config) UnavailableAfterDuration() time.Duration {
	return time.Duration(c.NodesUnavailAfter) * time.Second
}

func (c Config) KeepAlivePeriodDuration() time.Duration {
	return time.Duration(c.KeepAlivePeriod) * time.Millisecond
}

func (c Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

func (c Config) ShutdownGracePeriodDuration() time.Duration {
	return time.Duration(c.ShutdownGracePeriod) * time.Millisecond
}
