// SPDX-FileCopyrightText: 2020-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/manager"
	"github.com/onosproject/onos-opcgw/pkg/northbound/broker"
	"github.com/onosproject/onos-opcgw/pkg/northbound/cli"
	"github.com/onosproject/onos-opcgw/pkg/northbound/gnmi"
	"github.com/onosproject/onos-opcgw/pkg/northbound/metrics"
	"github.com/onosproject/onos-opcgw/pkg/northbound/netconf"
	"github.com/onosproject/onos-opcgw/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

var log = logging.GetLogger("opcgw", "main")

var levels = map[string]logging.Level{
	"debug": logging.DebugLevel,
	"info":  logging.InfoLevel,
	"warn":  logging.WarnLevel,
	"error": logging.ErrorLevel,
}

func main() {
	configPath := flag.String("configPath", "/etc/onos/config/config.json", "path to config.json file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if level, ok := levels[strings.ToLower(cfg.LoggerConfig.LogLevel)]; ok {
		logging.GetLogger("opcgw").SetLevel(level)
	} else {
		log.Warnf("Unknown log level %q, keeping the default", cfg.LoggerConfig.LogLevel)
	}

	registry := prometheus.NewRegistry()
	mgr, err := manager.NewManager(cfg,
		manager.WithLogger(logging.GetLogger("opcgw", "manager")),
		manager.WithRegisterer(registry))
	if err != nil {
		log.Fatal(err)
	}

	if cfg.GNMIConnector.Enabled {
		mgr.AddConnector(gnmi.NewConnector(logging.GetLogger("opcgw", "gnmi")))
	}
	if cfg.NetconfConnector.Enabled {
		sessions := store.NewStore(logging.GetLogger("opcgw", "store"))
		mgr.AddConnector(netconf.NewConnector(sessions, logging.GetLogger("opcgw", "netconf")))
		mgr.AddService(cli.NewService(sessions, logging.GetLogger("opcgw", "cli")))
	}
	if cfg.MetricsConnector.Enabled {
		mgr.AddConnector(metrics.NewConnector(registry, logging.GetLogger("opcgw", "metrics")))
	}
	if cfg.NATSConnector.Enabled {
		mgr.AddConnector(broker.NewConnector(logging.GetLogger("opcgw", "nats")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting onos-opcgw")
	if err := mgr.Run(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
	log.Info("onos-opcgw stopped")
}
