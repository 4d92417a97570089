package gonet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/valyala/bytebufferpool"
)

var plog = logger.GetLogger("gonet")

var (
	ErrNotConnected     = errors.New("connection is not connected")
	ErrAlreadyConnected = errors.New("connection is already connected")
	ErrEmptyCommand     = errors.New("empty command")
	ErrDialAborted      = errors.New("dial aborted by disconnect")
)

const defaultReadBufferSize = 16 * 1024

type Options struct {
	// DialTimeout bounds Connect. Zero means no timeout.
	DialTimeout time.Duration
	// WriteTimeout bounds each Commit. Zero means no timeout.
	WriteTimeout time.Duration
	// ReadBufferSize is the size of the buffered reader replies are decoded from.
	ReadBufferSize int
	// Dialer opens the transport, Dial is used when nil.
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
}

// Connection is a single pipelined transport.
//
// Commands are encoded into an in-memory buffer by Send and written to the
// socket by Commit. A dedicated goroutine decodes replies and hands them to the
// onReply callback in wire order. onDisconnect is called exactly once per
// successful Connect, after the transport is gone.
type Connection[R any] struct {
	codec   Codec[R]
	options Options

	connected atomic.Bool

	// mu guards conn, pending and dial. It is never held during I/O.
	mu      sync.Mutex
	conn    net.Conn
	pending *bytebufferpool.ByteBuffer
	dial    *dialAttempt

	// commitMu keeps buffers reaching the wire in the order they were swapped out.
	commitMu sync.Mutex
}

// dialAttempt is a Connect in progress, Disconnect aborts it.
type dialAttempt struct {
	cancel  context.CancelFunc
	aborted bool
}

func NewConnection[R any](codec Codec[R], options Options) *Connection[R] {
	if options.ReadBufferSize <= 0 {
		options.ReadBufferSize = defaultReadBufferSize
	}
	if options.Dialer == nil {
		options.Dialer = Dial
	}
	return &Connection[R]{codec: codec, options: options}
}

// Connect dials addr without holding any lock, so Send, Commit and
// Disconnect stay responsive while the dial is in progress. A Disconnect
// during the dial aborts it.
func (c *Connection[R]) Connect(addr string, onDisconnect func(), onReply func(R)) error {
	ctx := context.Background()
	if c.options.DialTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.options.DialTimeout)
		defer cancelTimeout()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.conn != nil || c.dial != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	attempt := &dialAttempt{cancel: cancel}
	c.dial = attempt
	c.mu.Unlock()

	conn, err := c.options.Dialer(ctx, addr)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dial = nil

	if attempt.aborted {
		if err == nil {
			_ = conn.Close()
		}
		return fmt.Errorf("connect to %s: %w", addr, ErrDialAborted)
	}
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	c.conn = conn
	c.pending = bytebufferpool.Get()
	c.connected.Store(true)

	plog.Debugf("connected to %s", addr)
	go c.readLoop(conn, onDisconnect, onReply)
	return nil
}

// Disconnect closes the transport and returns without waiting for the read
// goroutine; onDisconnect runs there once it observes the closed socket.
// The Connection may be connected again right away.
func (c *Connection[R]) Disconnect() error {
	c.mu.Lock()
	if c.dial != nil {
		c.dial.aborted = true
		c.dial.cancel()
	}
	conn := c.release(nil)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (c *Connection[R]) IsConnected() bool {
	return c.connected.Load()
}

// Send buffers one command. It never touches the socket.
func (c *Connection[R]) Send(cmd []string) error {
	if len(cmd) == 0 {
		return ErrEmptyCommand
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	c.pending.B = c.codec.AppendCommand(c.pending.B, cmd)
	return nil
}

// Commit writes every buffered command to the socket. A write failure tears
// the transport down.
func (c *Connection[R]) Commit() error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	buf := c.pending
	if buf.Len() == 0 {
		c.mu.Unlock()
		return nil
	}
	c.pending = bytebufferpool.Get()
	c.mu.Unlock()

	defer bytebufferpool.Put(buf)

	if c.options.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.options.WriteTimeout))
	}
	if _, err := conn.Write(buf.B); err != nil {
		// The peer may have seen a partial command, nothing after it can be trusted.
		_ = conn.Close()
		return fmt.Errorf("sending error: %w", err)
	}
	bytesCommitted.Add(buf.Len())
	return nil
}

func (c *Connection[R]) readLoop(conn net.Conn, onDisconnect func(), onReply func(R)) {
	r := bufio.NewReaderSize(conn, c.options.ReadBufferSize)
	for {
		reply, err := c.codec.ReadReply(r)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				plog.Debugf("receiving error: %v", err)
			}
			break
		}
		repliesRead.Inc()
		if onReply != nil {
			onReply(reply)
		}
	}
	c.teardown(conn)

	if onDisconnect != nil {
		onDisconnect()
	}
}

// teardown releases the transport owned by the read goroutine that is exiting,
// unless Disconnect already did.
func (c *Connection[R]) teardown(conn net.Conn) {
	_ = conn.Close()

	c.mu.Lock()
	c.release(conn)
	c.mu.Unlock()
}

// release detaches the current transport and returns it. When owner is not nil
// nothing happens unless it is still the current transport. Must hold mu.
func (c *Connection[R]) release(owner net.Conn) net.Conn {
	conn := c.conn
	if conn == nil || (owner != nil && owner != conn) {
		return nil
	}
	c.connected.Store(false)
	c.conn = nil
	bytebufferpool.Put(c.pending)
	c.pending = nil
	return conn
}
