// Command master runs the distributed GTP master as a standalone process:
// it accepts slave connections, multiplexes commands read from stdin (in
// place of a GTP front-end driving it as an engine), and prints an empty
// GTP success reply ("= ") to stdout for each dispatched command. It does
// not run move selection (GenMove) or the dead-group vote (DeadGroupList).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	gconfig "github.com/KBJarvis/distributed-go/internal/config"
	"github.com/KBJarvis/distributed-go/internal/master"
	"github.com/KBJarvis/distributed-go/internal/metrics"
)

var (
	configFile = flag.String("config", "", "optional config file path")
	engineOpts = flag.String("engine-opts", "", "comma-separated GTP engine-init option string, overrides config file values")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	fcfg, err := gconfig.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "master: config: %v\n", err)
		os.Exit(1)
	}
	cfg := fcfg.ToMasterConfig()

	if *engineOpts != "" {
		override, err := master.ParseOptionString(*engineOpts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "master: engine-opts: %v\n", err)
			os.Exit(1)
		}
		cfg = override
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []master.Option
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		coll := metrics.New(reg)
		opts = append(opts, master.WithMetrics(coll))
		go func() {
			if err := coll.Serve(cfg.MetricsAddr); err != nil {
				glog.Warningf("metrics server stopped: %v", err)
			}
		}()
	}

	m := master.New(cfg, opts...)

	sup := master.NewSupervisor(m, ":"+strings.TrimPrefix(cfg.SlavePort, ":"))
	go func() {
		if err := sup.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
			glog.Fatalf("slave listener: %v", err)
		}
	}()

	if cfg.ProxyPort != "" {
		proxy := master.NewLogProxy(m.StartTime())
		go func() {
			if err := proxy.ListenAndServe(":" + strings.TrimPrefix(cfg.ProxyPort, ":")); err != nil {
				glog.Warningf("log proxy stopped: %v", err)
			}
		}()
	}

	glog.Infof("master: ready, slave_port=%s max_slaves=%d", cfg.SlavePort, cfg.MaxSlaves)

	board := &moveCounter{}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		verb, args, _ := strings.Cut(line, " ")
		if err := m.Notify(board, verb, args+"\n"); err != nil {
			fmt.Fprintf(os.Stderr, "= ? %v\n\n", err)
			continue
		}
		board.Advance(verb)
		fmt.Printf("= \n\n")
	}
}

// moveCounter is the minimal master.Board this driver needs: a running move
// count, advanced on every "play" or "genmove"-family command.
type moveCounter struct {
	moves int
}

func (b *moveCounter) Moves() int { return b.moves }

func (b *moveCounter) Advance(verb string) {
	switch strings.ToLower(verb) {
	case "play", "genmove", "kgs-genmove_cleanup":
		b.moves++
	case "boardsize", "clear_board":
		b.moves = 0
	}
}
