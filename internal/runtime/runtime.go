// Package runtime holds the single mutable Runtime value constructed at
// startup: the structured logger and the metrics registry. Every other
// package receives what it needs explicitly rather than reaching for
// package-level globals — Runtime only exists so cmd/bgpd has one place
// to build those two things and hand them
// down, replacing the teacher's bare log.Log interface with zerolog plus
// a Prometheus registry.
package runtime

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Runtime struct {
	Log     zerolog.Logger
	Metrics *prometheus.Registry
}

// Options configures the one Runtime a process builds at startup.
type Options struct {
	Level     zerolog.Level
	Writer    io.Writer
	JSONLines bool
}

// New constructs a Runtime. JSONLines selects zerolog's default JSON
// encoding (used for `exabgp_log_format=json`-style deployments);
// otherwise output goes through zerolog's ConsoleWriter for
// human-readable logs, matching how the teacher's daemon is expected to
// run under a supervisor that captures stderr.
func New(opts Options) *Runtime {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if !opts.JSONLines {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02T15:04:05Z07:00"}
	}

	log := zerolog.New(w).With().Timestamp().Logger().Level(opts.Level)

	return &Runtime{
		Log:     log,
		Metrics: prometheus.NewRegistry(),
	}
}
