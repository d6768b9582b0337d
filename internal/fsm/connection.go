package fsm

import (
	"io"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dc-labs/bgpd/internal/msg"
	"github.com/dc-labs/bgpd/internal/negotiated"
)

// connection wraps one TCP socket with the reader/writer goroutine pair:
// the writer drains an outbound queue so a slow peer never blocks the
// state machine's select loop, and the reader decodes one framed message
// at a time and hands it to the FSM over C. Modeled on the teacher's
// connection type, generalized from a fixed OPEN/NOTIFICATION-only
// decode to the full message set via msg.Decode.
type connection struct {
	C     chan msg.Message
	Error string

	closed      chan struct{}
	writerExit  chan struct{}
	readerExit  chan struct{}
	pending     chan struct{}
	conn        net.Conn
	mutex       sync.Mutex
	out         [][]byte

	maxLen int32 // atomic; starts at 4096 per spec, raised once ExtendedMessage negotiates
	neg    atomic.Pointer[negotiated.Negotiated]
}

func dial(localAddr netip.Addr, peer string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	if localAddr.IsValid() {
		dialer.LocalAddr = &net.TCPAddr{IP: localAddr.AsSlice(), Port: 0}
	}
	return dialer.Dial("tcp", net.JoinHostPort(peer, "179"))
}

func newConnection(raw net.Conn) *connection {
	c := &connection{
		C:          make(chan msg.Message),
		closed:     make(chan struct{}),
		writerExit: make(chan struct{}),
		readerExit: make(chan struct{}),
		pending:    make(chan struct{}, 1),
		conn:       raw,
		maxLen:     4096,
	}
	go c.writer()
	go c.reader()
	return c
}

// setNegotiated is called once OPEN exchange completes; it widens the
// reader's accepted message size when Extended Message was negotiated.
func (c *connection) setNegotiated(n *negotiated.Negotiated) {
	c.neg.Store(n)
	atomic.StoreInt32(&c.maxLen, int32(n.MaxMessageSize()))
}

func (c *connection) close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

func (c *connection) queue(b []byte) {
	c.mutex.Lock()
	c.out = append(c.out, b)
	c.mutex.Unlock()
	select {
	case c.pending <- struct{}{}:
	default:
	}
}

func (c *connection) shift() ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if len(c.out) == 0 {
		return nil, false
	}
	b := c.out[0]
	c.out = c.out[1:]
	if len(c.out) > 0 {
		select {
		case c.pending <- struct{}{}:
		default:
		}
	}
	return b, true
}

func (c *connection) drain() bool {
	for {
		b, ok := c.shift()
		if !ok {
			return true
		}
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if _, err := c.conn.Write(b); err != nil {
			c.Error = err.Error()
			return false
		}
	}
}

func (c *connection) writer() {
	defer close(c.writerExit)
	defer c.conn.Close()
	for {
		select {
		case <-c.closed:
			c.drain()
			return
		case <-c.readerExit:
			c.drain()
			return
		case <-c.pending:
			if !c.drain() {
				return
			}
		}
	}
}

func (c *connection) reader() {
	defer close(c.readerExit)
	defer close(c.C)

	for {
		var header [msg.HeaderLen]byte
		if n, err := io.ReadFull(c.conn, header[:]); n != len(header) || err != nil {
			if err != nil {
				c.Error = err.Error()
			}
			return
		}

		maxLen := int(atomic.LoadInt32(&c.maxLen))
		mtype, total, err := msg.UnpackHeader(header[:], maxLen)
		if err != nil {
			c.Error = err.Error()
			return
		}
		_ = mtype

		body := make([]byte, total-msg.HeaderLen)
		if n, err := io.ReadFull(c.conn, body); n != len(body) || err != nil {
			if err != nil {
				c.Error = err.Error()
			}
			return
		}

		full := append(append([]byte{}, header[:]...), body...)
		n := c.neg.Load()
		m, _, err := msg.Decode(n, full, maxLen)
		if err != nil {
			c.Error = err.Error()
			return
		}

		select {
		case c.C <- m:
		case <-c.closed:
			c.Error = "closed"
			return
		case <-c.writerExit:
			return
		}
	}
}
