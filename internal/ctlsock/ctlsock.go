// Package ctlsock implements the control socket (spec §4.9): a local
// client channel distinct from the configured API processes but driven
// through the same command pipeline, with single-owner semantics, a
// heartbeat, and daemon-restart detection via a server UUID.
package ctlsock

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dc-labs/bgpd/internal/api"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HeartbeatInterval and MissedLimit implement spec §4.9's "10-second
// heartbeat; three missed heartbeats terminate the client".
const (
	HeartbeatInterval = 10 * time.Second
	MissedLimit       = 3
)

// candidateDirs is the autodetected search order for the socket's
// parent directory (spec §6 "autodetected path under /run/, /var/run/,
// or a fallback temporary directory").
var candidateDirs = []string{"/run", "/var/run"}

// SocketPath picks the control socket's filesystem path, trying each
// candidate directory in turn and falling back to os.TempDir.
func SocketPath(name string) string {
	for _, dir := range candidateDirs {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return filepath.Join(dir, name)
		}
	}
	return filepath.Join(os.TempDir(), name)
}

// Server accepts exactly one concurrent control-socket client (spec
// §4.9 "server accepts one concurrent client; subsequent connects wait
// or fail fast").
type Server struct {
	path       string
	serverUUID string
	dispatcher *api.Dispatcher
	log        zerolog.Logger

	mu     sync.Mutex
	busy   bool
	FailFast bool
}

func NewServer(path string, d *api.Dispatcher, log zerolog.Logger) *Server {
	return &Server{
		path:       path,
		serverUUID: uuid.NewString(),
		dispatcher: d,
		log:        log.With().Str("component", "ctlsock").Logger(),
	}
}

// Listen opens the Unix-domain socket, removing a stale file left by a
// previous crashed process before binding.
func (s *Server) Listen() (net.Listener, error) {
	_ = os.Remove(s.path)
	l, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, fmt.Errorf("ctlsock listen: %w", err)
	}
	return l, nil
}

// Serve accepts connections from l until it is closed, handling at most
// one client at a time. Without FailFast each client is served to
// completion before the next connection is accepted, so later clients
// wait; with FailFast connections are accepted at once and any that
// arrive while a client is being served are rejected.
func (s *Server) Serve(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		if s.FailFast {
			go s.handle(conn)
			continue
		}
		s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		if s.FailFast {
			fmt.Fprintln(conn, "error daemon busy")
			conn.Close()
			return
		}
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		conn.Close()
	}()

	s.serveClient(conn)
}

// serveClient implements one client's session: UUID exchange, command
// loop with a `done` sentinel per response, and heartbeat enforcement.
func (s *Server) serveClient(conn net.Conn) {
	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "uuid %s\n", s.serverUUID)
	w.Flush()

	sc := bufio.NewScanner(conn)
	lastBeat := time.Now()
	missed := 0

	for sc.Scan() {
		line := sc.Text()
		switch line {
		case "ping":
			lastBeat = time.Now()
			missed = 0
			fmt.Fprintln(w, "pong")
			w.Flush()
			continue
		case "bye":
			return
		}

		if time.Since(lastBeat) > HeartbeatInterval {
			missed++
			if missed >= MissedLimit {
				fmt.Fprintln(w, "error daemon-lost")
				w.Flush()
				return
			}
		}

		cmd, err := api.Parse(line)
		if err != nil {
			fmt.Fprintf(w, "error %s\n", err)
			fmt.Fprintln(w, "done")
			w.Flush()
			continue
		}
		out, err := s.dispatcher.Dispatch(cmd)
		if err != nil {
			fmt.Fprintf(w, "error %s\n", err)
		}
		for _, l := range out {
			fmt.Fprintln(w, l)
		}
		fmt.Fprintln(w, "done")
		w.Flush()
	}
}
