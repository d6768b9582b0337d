package api

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// eventQueueSize bounds the outbound event buffer held while a process
// is respawning (spec §4.8 "pending outbound events during the gap are
// queued up to a bounded buffer, oldest dropped on overflow").
const eventQueueSize = 1024

// backoffSchedule is the respawn delay sequence; it holds at the last
// entry once exhausted.
var backoffSchedule = []time.Duration{
	100 * time.Millisecond, 500 * time.Millisecond, time.Second,
	5 * time.Second, 15 * time.Second, 30 * time.Second,
}

// Process supervises one configured API subprocess: it owns the child's
// stdin/stdout, feeds it encoded events, and hands parsed commands to a
// Dispatcher (spec §4.8).
type Process struct {
	Name       string
	Command    []string
	Encoder    Encoder
	Respawn    bool
	log        zerolog.Logger
	dispatcher *Dispatcher

	mu     sync.Mutex
	events chan string
}

func NewProcess(name string, command []string, enc Encoder, respawn bool, d *Dispatcher, log zerolog.Logger) *Process {
	return &Process{
		Name:       name,
		Command:    command,
		Encoder:    enc,
		Respawn:    respawn,
		dispatcher: d,
		log:        log.With().Str("process", name).Logger(),
		events:     make(chan string, eventQueueSize),
	}
}

// Enqueue pushes a pre-rendered event line; if the buffer is full the
// oldest queued event is dropped to make room (spec §4.8 overflow rule).
func (p *Process) Enqueue(line string) {
	select {
	case p.events <- line:
		return
	default:
	}
	select {
	case <-p.events:
	default:
	}
	select {
	case p.events <- line:
	default:
	}
}

// Run supervises the subprocess for the lifetime of ctx, respawning on
// exit per p.Respawn with the backoff schedule above.
func (p *Process) Run(ctx context.Context) error {
	attempt := 0
	for {
		err := p.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !p.Respawn {
			return err
		}
		delay := backoffSchedule[attempt]
		if attempt < len(backoffSchedule)-1 {
			attempt++
		}
		p.log.Warn().Err(err).Dur("retry-in", delay).Msg("api process exited, respawning")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (p *Process) runOnce(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		p.writeEvents(stdin)
	}()

	go p.logStderr(stderr)

	readErr := p.readCommands(stdout)

	cmd.Wait()
	<-writeDone
	return readErr
}

func (p *Process) writeEvents(w io.WriteCloser) {
	defer w.Close()
	for line := range p.events {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return
		}
	}
}

func (p *Process) logStderr(r io.ReadCloser) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.log.Info().Str("stderr", sc.Text()).Msg("api process output")
	}
}

// readCommands reads newline-delimited commands from the subprocess,
// joining "announce attribute ..." multi-line constructions that
// continue on following lines with a trailing backslash.
func (p *Process) readCommands(r io.ReadCloser) error {
	sc := bufio.NewScanner(r)
	var cont strings.Builder
	for sc.Scan() {
		line := sc.Text()
		if strings.HasSuffix(line, "\\") {
			cont.WriteString(strings.TrimSuffix(line, "\\"))
			cont.WriteString(" ")
			continue
		}
		cont.WriteString(line)
		full := cont.String()
		cont.Reset()

		cmd, err := Parse(full)
		if err != nil {
			p.log.Warn().Err(err).Str("line", full).Msg("could not parse api command")
			continue
		}
		lines, err := p.dispatcher.Dispatch(cmd)
		if err != nil {
			p.log.Warn().Err(err).Str("line", full).Msg("command failed")
			continue
		}
		for _, l := range lines {
			p.Enqueue(l)
		}
		p.Enqueue("done")
	}
	return sc.Err()
}
