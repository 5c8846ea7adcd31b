// main.go - duskline server daemon entry point
// Copyright (C) 2019  David Stainton.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logging "gopkg.in/op/go-logging.v1"

	"github.com/duskline/duskline/backhaul"
	"github.com/duskline/duskline/config"
	"github.com/duskline/duskline/identity"
	"github.com/duskline/duskline/internal/dlog"
	"github.com/duskline/duskline/listener"
	"github.com/duskline/duskline/metrics"
)

func main() {
	configPath := flag.String("config", "/etc/duskline/duskline.toml", "path to the TOML config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(versioninfo.Version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "dusklined:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := dlog.Init(cfg.LogLevel); err != nil {
		return err
	}
	log := dlog.New("dusklined")

	longKey, err := identity.Load(cfg.IdentityKeyFile)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}
	defer longKey.Destroy()

	var opts []listener.Option
	if cfg.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, listener.WithMetrics(metrics.New(reg)))
		go serveMetrics(cfg.MetricsListen, reg, log)
	}

	bh, err := backhaul.ListenUDP(cfg.Listen)
	if err != nil {
		return fmt.Errorf("binding %s: %w", cfg.Listen, err)
	}
	defer bh.Close()

	l, err := listener.New(bh, longKey, opts...)
	if err != nil {
		return fmt.Errorf("constructing listener: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Notice("shutting down")
		cancel()
	}()

	log.Noticef("listening on %s", cfg.Listen)
	go acceptLoop(l, log)

	return l.Run(ctx)
}

func acceptLoop(l *listener.Listener, log *logging.Logger) {
	for {
		sess, ok := l.Accept()
		if !ok {
			return
		}
		_ = sess // applications built on this daemon would hand sess off here.
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server stopped: %v", err)
	}
}
