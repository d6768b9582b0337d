package ctlsock

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"
)

// Client is the control-socket counterpart cmd/bgpctl drives: it tracks
// the server's UUID across reconnects to detect a daemon restart (spec
// §4.9 "the client detects daemon restarts by observing a change in the
// server-assigned UUID and warns the user while continuing").
type Client struct {
	conn       net.Conn
	rw         *bufio.ReadWriter
	serverUUID string
}

// Dial connects to path and performs the UUID handshake.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ctlsock dial: %w", err)
	}
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	line, err := rw.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ctlsock handshake: %w", err)
	}
	uuid := strings.TrimPrefix(strings.TrimSpace(line), "uuid ")
	return &Client{conn: conn, rw: rw, serverUUID: uuid}, nil
}

// Close sends the clean-disconnect word and closes the connection.
func (c *Client) Close() error {
	fmt.Fprintln(c.rw, "bye")
	c.rw.Flush()
	return c.conn.Close()
}

// Heartbeat sends one "ping" keepalive and checks for the "pong" reply.
// The reply carries no server UUID, so restarted is always false here;
// a daemon restart is detected by Reconnect.
func (c *Client) Heartbeat() (restarted bool, err error) {
	fmt.Fprintln(c.rw, "ping")
	if err := c.rw.Flush(); err != nil {
		return false, err
	}
	line, err := c.rw.ReadString('\n')
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(line) != "pong" {
		return false, fmt.Errorf("unexpected heartbeat reply: %q", line)
	}
	return false, nil
}

// Command sends one command line and reads every response line up to
// and including the `done` sentinel.
func (c *Client) Command(line string) ([]string, error) {
	fmt.Fprintln(c.rw, line)
	if err := c.rw.Flush(); err != nil {
		return nil, err
	}

	var out []string
	for {
		resp, err := c.rw.ReadString('\n')
		if err != nil {
			return out, err
		}
		resp = strings.TrimRight(resp, "\n")
		if resp == "done" {
			return out, nil
		}
		out = append(out, resp)
	}
}

// ServerUUID returns the UUID observed at the most recent handshake.
func (c *Client) ServerUUID() string { return c.serverUUID }

// Reconnect re-dials path and reports whether the server's UUID changed
// since the previous connection, i.e. whether the daemon restarted.
func (c *Client) Reconnect(path string) (restarted bool, err error) {
	prev := c.serverUUID
	nc, err := Dial(path)
	if err != nil {
		return false, err
	}
	c.conn.Close()
	*c = *nc
	return prev != "" && prev != c.serverUUID, nil
}
