package gonet

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// HandlerFactory serves one accepted connection. New blocks for the lifetime
// of the connection and must return once done is closed.
type HandlerFactory interface {
	New(c net.Conn, done <-chan struct{})
}

type Listener struct {
	handler HandlerFactory
	network string
	addr    string

	listener net.Listener
	done     chan struct{}
	closed   sync.Once
	handlers sync.WaitGroup
	finished chan struct{}
}

func NewListener(port int, handler HandlerFactory) *Listener {
	return NewListenerForAddr("tcp", fmt.Sprintf(":%d", port), handler)
}

func NewListenerForAddr(network, addr string, handler HandlerFactory) *Listener {
	l := &Listener{
		handler: handler,
		network: network,
		addr:    addr,

		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	return l
}

func (l *Listener) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, l.network, l.addr)
	if err != nil {
		return err
	}

	l.listener = listener
	l.handlers.Add(1)
	go l.listen()
	go func() {
		l.handlers.Wait()
		close(l.finished)
	}()
	return nil
}

func (l *Listener) listen() {
	defer l.handlers.Done()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			return
		}
		connectionsAccepted.Inc()
		l.handlers.Add(1)
		go func() {
			defer l.handlers.Done()
			l.handler.New(conn, l.done)
		}()
	}
}

func (l *Listener) Address() net.Addr {
	return l.listener.Addr()
}

// Close stops accepting and asks every connection handler to finish.
func (l *Listener) Close() error {
	var err error
	l.closed.Do(func() {
		close(l.done)
		err = l.listener.Close()
	})
	return err
}

// Done is closed once the listener is closed and every handler has returned.
func (l *Listener) Done() <-chan struct{} {
	return l.finished
}
