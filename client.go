package redis_go

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"redis-go/gonet"
	"redis-go/resp"

	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var plog = logger.GetLogger("redis")

var (
	ErrNotConnected        = errors.New("client was never connected")
	ErrClosed              = errors.New("client is closed")
	ErrDisconnected        = errors.New("disconnected before the reply arrived")
	ErrDisconnectRequested = errors.New("disconnect was requested")
	ErrConnecting          = errors.New("connect already in progress")
)

// ReplyCallback receives the reply of one command. It runs on the
// connection's read goroutine and may call Send and Commit.
type ReplyCallback func(reply resp.Reply)

// DisconnectionHandler is notified once per lost connection, after every
// pending callback of that connection has been discarded.
type DisconnectionHandler func(c *Client)

// Connection is the transport the client pipelines commands over.
// Send must only buffer, Commit writes. onReply is called once per reply in
// wire order and onDisconnect once per successful Connect.
type Connection interface {
	Connect(addr string, onDisconnect func(), onReply func(resp.Reply)) error
	Disconnect() error
	IsConnected() bool
	Send(cmd []string) error
	Commit() error
}

// session is the state of one Connect. It becomes active once the dial
// succeeded and the client installed it.
type session struct {
	gen      uint64
	addr     string
	handler  DisconnectionHandler
	lost     chan struct{}
	lostOnce sync.Once

	// handled is closed once the disconnection of an active session was handled.
	handled chan struct{}
	// active and running are guarded by Client.mu. running counts reply
	// callbacks and disconnection handlers currently executing.
	active  bool
	running int
}

func (s *session) markLost() {
	s.lostOnce.Do(func() { close(s.lost) })
}

// Client pipelines commands over a single Connection and hands every reply
// to the callback of the command it answers, in send order.
type Client struct {
	id   string
	conn Connection

	// mu guards everything below. It is held while a command is buffered so
	// that queue order matches wire order, never while a callback runs.
	mu         sync.Mutex
	callbacks  callbackQueue
	session    *session
	gen        uint64
	connecting bool
	requested  bool
	closed     bool

	// done is closed by Close.
	done chan struct{}
}

type Option func(*gonet.Options)

func WithDialTimeout(d time.Duration) Option {
	return func(o *gonet.Options) { o.DialTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *gonet.Options) { o.WriteTimeout = d }
}

func WithReadBufferSize(size int) Option {
	return func(o *gonet.Options) { o.ReadBufferSize = size }
}

func WithDialer(dial func(ctx context.Context, addr string) (net.Conn, error)) Option {
	return func(o *gonet.Options) { o.Dialer = dial }
}

// NewClient returns a client speaking RESP over a gonet connection.
func NewClient(opts ...Option) *Client {
	options := gonet.Options{DialTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&options)
	}
	return NewClientWithConnection(gonet.NewConnection[resp.Reply](resp.Codec{}, options))
}

func NewClientWithConnection(conn Connection) *Client {
	return &Client{id: uuid.NewString(), conn: conn, done: make(chan struct{})}
}

// ID identifies the client in logs.
func (c *Client) ID() string {
	return c.id
}

// Connect establishes the connection and stores handler, which may be nil.
func (c *Client) Connect(addr string, handler DisconnectionHandler) error {
	return c.connect(addr, handler, false)
}

// connect dials and installs a new session. The dial runs without holding
// mu; Send fails with ErrConnecting meanwhile. A reconnect attempt gives way to
// a disconnect requested before or during the dial.
func (c *Client) connect(addr string, handler DisconnectionHandler, reconnect bool) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case reconnect && c.requested:
		c.mu.Unlock()
		return ErrDisconnectRequested
	case c.connecting:
		c.mu.Unlock()
		return ErrConnecting
	}
	c.gen++
	s := &session{
		gen:     c.gen,
		addr:    addr,
		handler: handler,
		lost:    make(chan struct{}),
		handled: make(chan struct{}),
	}
	c.connecting = true
	c.requested = false
	c.mu.Unlock()

	err := c.conn.Connect(addr,
		func() { c.handleDisconnection(s) },
		func(reply resp.Reply) { c.handleReply(s, reply) },
	)

	c.mu.Lock()
	c.connecting = false
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if c.closed || c.requested {
		closed := c.closed
		c.mu.Unlock()
		// s stays inactive, its disconnection is not reported to the handler
		if derr := c.conn.Disconnect(); derr != nil {
			plog.Warningf("client %s: dropping connection to %s failed: %v", c.id, addr, derr)
		}
		if closed {
			return ErrClosed
		}
		return ErrDisconnectRequested
	}

	if c.session != nil {
		c.session.markLost()
	}
	s.active = true
	c.session = s
	c.mu.Unlock()

	plog.Infof("client %s connected to %s", c.id, addr)
	return nil
}

// Disconnect closes the connection, or aborts a dial in progress.
//
// It does not wait for the read goroutine: IsConnected reports false as soon as
// Disconnect returns, while Pending may stay above zero until the connection
// reports the loss. Pending callbacks are then discarded, followed by the
// disconnection handler.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	c.requested = true
	c.mu.Unlock()

	return c.conn.Disconnect()
}

func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// Close disconnects if still connected and aborts a dial or a reconnect in
// progress. Errors are logged, not returned. The client cannot be connected
// again afterwards.
//
// Close returns after the pending callbacks were discarded and the
// disconnection handler returned. Called from a reply callback or the handler,
// or while one of them is running, it does not wait.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.requested = true
	close(c.done)
	s := c.session
	wait := s != nil && s.running == 0
	c.mu.Unlock()

	if err := c.conn.Disconnect(); err != nil {
		plog.Warningf("client %s: disconnect on close failed: %v", c.id, err)
	}
	if wait {
		<-s.handled
	}
}

// Send buffers cmd and queues cb for its reply. cb may be nil, the command
// still takes its place in the queue. Nothing is written before Commit.
func (c *Client) Send(cmd []string, cb ReplyCallback) error {
	_, err := c.send(cmd, cb)
	return err
}

// send returns the channel closed when the connection cmd went out on is lost.
func (c *Client) send(cmd []string, cb ReplyCallback) (<-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.connecting {
		return nil, ErrConnecting
	}
	if c.session == nil {
		return nil, ErrNotConnected
	}
	if err := c.conn.Send(cmd); err != nil {
		return nil, err
	}
	c.callbacks.push(c.session.gen, cb)
	commandsSent.Inc()
	return c.session.lost, nil
}

// Commit writes all buffered commands.
func (c *Client) Commit() error {
	return c.conn.Commit()
}

// Pending returns the number of commands waiting for a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callbacks.len()
}

// Do sends cmd, commits and waits for its reply.
func (c *Client) Do(ctx context.Context, cmd ...string) (resp.Reply, error) {
	replies := make(chan resp.Reply, 1)
	lost, err := c.send(cmd, func(reply resp.Reply) { replies <- reply })
	if err != nil {
		return resp.Reply{}, err
	}
	if err := c.Commit(); err != nil {
		return resp.Reply{}, err
	}

	select {
	case reply := <-replies:
		return reply, nil
	case <-lost:
		select {
		case reply := <-replies:
			return reply, nil
		default:
			return resp.Reply{}, ErrDisconnected
		}
	case <-ctx.Done():
		return resp.Reply{}, ctx.Err()
	}
}

func (c *Client) handleReply(s *session, reply resp.Reply) {
	c.mu.Lock()
	fn, ok, stale := c.callbacks.pop(s.gen)
	if fn != nil {
		s.running++
	}
	c.mu.Unlock()

	if stale > 0 {
		callbacksDiscarded.Add(stale)
	}
	if !ok {
		repliesDropped.Inc()
		plog.Debugf("client %s: dropping reply without pending command: %s", c.id, reply.String())
		return
	}

	repliesDispatched.Inc()
	if fn == nil {
		return
	}
	defer func() {
		c.mu.Lock()
		s.running--
		c.mu.Unlock()
	}()
	fn(reply)
}

func (c *Client) handleDisconnection(s *session) {
	c.mu.Lock()
	if !s.active {
		c.mu.Unlock()
		s.markLost()
		return
	}
	discarded := c.callbacks.discard(s.gen)
	s.running++
	c.mu.Unlock()

	s.markLost()
	callbacksDiscarded.Add(discarded)
	defer func() {
		c.mu.Lock()
		s.running--
		c.mu.Unlock()
		close(s.handled)
	}()

	disconnections.Inc()
	plog.Infof("client %s disconnected from %s, %d pending callbacks discarded", c.id, s.addr, discarded)

	if s.handler != nil {
		s.handler(c)
	}
}
