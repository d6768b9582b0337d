// Command bgpd runs the BGP-4 speaker daemon: it loads the neighbor and
// API-process configuration, starts the reactor, and serves the API
// bridge and control socket until told to shut down.
//
// Exit codes follow spec §6: 0 clean shutdown, 1 configuration error, 2
// runtime fatal.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dc-labs/bgpd/internal/api"
	"github.com/dc-labs/bgpd/internal/config"
	"github.com/dc-labs/bgpd/internal/ctlsock"
	"github.com/dc-labs/bgpd/internal/fsm"
	"github.com/dc-labs/bgpd/internal/metrics"
	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/reactor"
	"github.com/dc-labs/bgpd/internal/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: bgpd -config <file> [-metrics-addr host:port]")
		flag.PrintDefaults()
	}
	configPath := flag.String("config", "", "path to the neighbors/processes YAML file")
	metricsAddr := flag.String("metrics-addr", "", "optional address to serve /metrics on")
	jsonLogs := flag.Bool("json-logs", false, "emit newline-delimited JSON logs instead of console output")
	flag.Parse()

	rt := runtime.New(runtime.Options{Level: zerolog.InfoLevel, JSONLines: *jsonLogs})
	log := rt.Log

	if err := raiseFileLimit(); err != nil {
		log.Warn().Err(err).Msg("could not raise file descriptor limit")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("configuration error")
		return 1
	}

	m := metrics.New(rt.Metrics)

	r := reactor.New(log)

	neighbors := reactor.NeighborSet{}
	for _, n := range cfg.Neighbors {
		fc, err := n.ToFSMConfig()
		if err != nil {
			log.Error().Err(err).Str("peer", n.PeerAddress).Msg("bad neighbor configuration")
			return 1
		}
		neighbors[n.PeerAddress] = fc
	}
	r.Reload(neighbors)

	if err := r.Listen(""); err != nil {
		log.Error().Err(err).Msg("could not open listening socket")
		return 2
	}

	dispatcher := api.NewDispatcher(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type boundProcess struct {
		proc      *api.Process
		neighbors map[string]bool
	}
	var processes []boundProcess
	for _, p := range cfg.Processes {
		proc := api.NewProcess(p.Name, p.Command, api.Encoder(p.Encoder), p.Respawn, dispatcher, log)
		var neighbors map[string]bool
		if len(p.Neighbor) > 0 {
			neighbors = map[string]bool{}
			for _, n := range p.Neighbor {
				neighbors[n] = true
			}
		}
		processes = append(processes, boundProcess{proc: proc, neighbors: neighbors})

		p := p
		go func() {
			if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Str("process", p.Name).Msg("api process supervisor exited")
			}
		}()
	}

	r.OnEvent = func(ev fsm.Event) {
		recordMetrics(m, ev)
		for _, bp := range processes {
			if bp.neighbors != nil && !bp.neighbors[ev.Peer] {
				continue
			}
			bp.proc.Enqueue(api.RenderEvent(bp.proc.Encoder, ev))
		}
	}

	sockPath := cfg.CLISocket
	if sockPath == "" {
		sockPath = ctlsock.SocketPath("bgpd.ctl")
	}
	ctl := ctlsock.NewServer(sockPath, dispatcher, log)
	listener, err := ctl.Listen()
	if err != nil {
		log.Error().Err(err).Msg("could not open control socket")
		return 2
	}
	go ctl.Serve(listener)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(rt.Metrics, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn().Err(err).Msg("metrics listener exited")
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	listener.Close()
	r.Shutdown()
	cancel()
	return 0
}

func recordMetrics(m *metrics.Metrics, ev fsm.Event) {
	m.SessionState.WithLabelValues(ev.Peer).Set(float64(ev.State))
	if ev.State == fsm.Established {
		m.SessionsEstablished.Inc()
	}
	if ev.State == fsm.Idle {
		m.SessionsClosed.Inc()
	}
	switch mm := ev.Msg.(type) {
	case msg.Update:
		m.UpdatesReceived.WithLabelValues(ev.Peer).Inc()
	case msg.Notification:
		m.NotificationsRecv.WithLabelValues(ev.Peer, fmt.Sprint(mm.Code)).Inc()
	}
}

// raiseFileLimit raises the soft RLIMIT_NOFILE to the hard limit (spec
// §5 "the process must raise its soft limit at start").
func raiseFileLimit() error {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err != nil {
		return err
	}
	if rlim.Cur >= rlim.Max {
		return nil
	}
	rlim.Cur = rlim.Max
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &rlim)
}
