package gonet

import (
	"bufio"
	"net"
)

type Request interface {
	// Handle executes the request. Requests of one connection are handled one
	// at a time, in arrival order.
	Handle()
	WriteResponse(writer *bufio.Writer) error
}

// ClosingRequest is implemented by requests after which the server hangs up.
type ClosingRequest interface {
	CloseAfterResponse() bool
}

type RequestHandler interface {
	ReadRequest(reader *bufio.Reader) (Request, error)
}

const serverQueueSize = 128

// Server serves one pipelined connection: the read loop keeps consuming
// requests while the write loop sends responses in the same order.
type Server struct {
	handler RequestHandler
	conn    net.Conn
	done    <-chan struct{}

	requests chan Request
}

func NewServer(handler RequestHandler, conn net.Conn, done <-chan struct{}) *Server {
	s := &Server{
		handler: handler,
		conn:    conn,
		done:    done,

		requests: make(chan Request, serverQueueSize),
	}
	return s
}

func (s *Server) Run() {
	stop := make(chan struct{})
	defer close(stop)
	go s.watch(stop)

	go s.requestLoop()
	s.responseLoop()
	s.close()
}

// watch hangs up when the owner asks every connection to finish.
func (s *Server) watch(stop <-chan struct{}) {
	select {
	case <-s.done:
		_ = s.conn.Close()
	case <-stop:
	}
}

func (s *Server) requestLoop() {
	defer close(s.requests)

	reader := bufio.NewReaderSize(s.conn, 4096)
	for {
		request, err := s.handler.ReadRequest(reader)
		if err != nil {
			plog.Debugf("server read loop stopped: %v", err)
			return
		}
		request.Handle()
		requestsServed.Inc()
		s.requests <- request
	}
}

func (s *Server) responseLoop() {
	writer := bufio.NewWriter(s.conn)
	for request := range s.requests {
		if err := request.WriteResponse(writer); err != nil {
			return
		}

		closing := false
		if c, ok := request.(ClosingRequest); ok {
			closing = c.CloseAfterResponse()
		}

		// Batch the flush as long as more responses are already waiting.
		if len(s.requests) == 0 || closing {
			if err := writer.Flush(); err != nil {
				return
			}
			responseFlushes.Inc()
		}
		if closing {
			return
		}
	}
}

// close is called after:
//   - the read loop completed and all responses were written or
//   - there was a write error, or a request asked to hang up.
//
// In either case the responseLoop has completed, but the requestLoop may need to be interrupted and let finish
func (s *Server) close() {
	_ = s.conn.Close()

	// discarding any remaining requests and waiting for the requestLoop to close the channel
	for range s.requests {
	}
}

type ServerFactory struct {
	handler RequestHandler
}

func NewServerFactory(handler RequestHandler) *ServerFactory {
	s := &ServerFactory{
		handler: handler,
	}
	return s
}

func (s *ServerFactory) New(conn net.Conn, done <-chan struct{}) {
	NewServer(s.handler, conn, done).Run()
}
