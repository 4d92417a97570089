// Package resptest runs an in-process server speaking enough RESP to exercise
// pipelining clients: PING, ECHO, SET, GET, DEL, INCR, DBSIZE, FLUSHALL,
// SLEEP and QUIT.
package resptest

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"redis-go/gonet"
	"redis-go/resp"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/valyala/bytebufferpool"
	"nhooyr.io/websocket"
)

var plog = logger.GetLogger("resptest")

type Server struct {
	listener *gonet.Listener
	store    *xsync.MapOf[string, string]
	commands atomic.Int64
}

// NewServer returns a server with an empty keyspace that is not listening yet.
func NewServer() *Server {
	return &Server{store: xsync.NewMapOf[string, string]()}
}

// Start listens on network/addr, e.g. "tcp" and "127.0.0.1:0".
func Start(ctx context.Context, network, addr string) (*Server, error) {
	s := NewServer()
	s.listener = gonet.NewListenerForAddr(network, addr, gonet.NewServerFactory(s))
	if err := s.listener.Start(ctx); err != nil {
		return nil, err
	}
	plog.Infof("listening on %s", s.listener.Address())
	return s, nil
}

func (s *Server) Addr() string {
	return s.listener.Address().String()
}

// Close stops the listener, hangs up on every client and waits for them.
func (s *Server) Close() error {
	err := s.listener.Close()
	<-s.listener.Done()
	return err
}

// Commands returns the number of commands executed so far.
func (s *Server) Commands() int64 {
	return s.commands.Load()
}

// ServeConn serves a single established connection until it ends or done is closed.
func (s *Server) ServeConn(conn net.Conn, done <-chan struct{}) {
	gonet.NewServer(s, conn, done).Run()
}

// WebsocketHandler serves RESP carried in binary websocket messages.
func (s *Server) WebsocketHandler(done <-chan struct{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			plog.Warningf("websocket accept: %v", err)
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s.ServeConn(websocket.NetConn(ctx, ws, websocket.MessageBinary), done)
	})
}

// ReadRequest implements gonet.RequestHandler.
func (s *Server) ReadRequest(reader *bufio.Reader) (gonet.Request, error) {
	cmd, err := resp.ReadCommand(reader)
	if err != nil {
		return nil, err
	}
	return &request{server: s, cmd: cmd}, nil
}

type request struct {
	server  *Server
	cmd     []string
	reply   resp.Reply
	closing bool
}

func (r *request) Handle() {
	r.server.commands.Add(1)
	r.reply, r.closing = r.server.execute(r.cmd)
}

func (r *request) WriteResponse(writer *bufio.Writer) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = resp.AppendReply(buf.B, r.reply)
	_, err := writer.Write(buf.B)
	return err
}

func (r *request) CloseAfterResponse() bool {
	return r.closing
}

func wrongArgs(name string) resp.Reply {
	return resp.ErrorReply(fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(name)))
}

// execute runs one command and reports whether the connection should be closed afterwards.
func (s *Server) execute(cmd []string) (resp.Reply, bool) {
	if len(cmd) == 0 {
		return resp.ErrorReply("ERR empty command"), false
	}
	name, args := strings.ToUpper(cmd[0]), cmd[1:]

	switch name {
	case "PING":
		switch len(args) {
		case 0:
			return resp.SimpleString("PONG"), false
		case 1:
			return resp.Bulk(args[0]), false
		}
	case "ECHO":
		if len(args) == 1 {
			return resp.Bulk(args[0]), false
		}
	case "SET":
		if len(args) == 2 {
			s.store.Store(args[0], args[1])
			return resp.SimpleString("OK"), false
		}
	case "GET":
		if len(args) == 1 {
			if v, ok := s.store.Load(args[0]); ok {
				return resp.Bulk(v), false
			}
			return resp.NullReply(), false
		}
	case "DEL":
		if len(args) > 0 {
			var n int64
			for _, key := range args {
				if _, ok := s.store.LoadAndDelete(key); ok {
					n++
				}
			}
			return resp.Integer(n), false
		}
	case "INCR":
		if len(args) == 1 {
			return s.incr(args[0]), false
		}
	case "DBSIZE":
		if len(args) == 0 {
			return resp.Integer(int64(s.store.Size())), false
		}
	case "FLUSHALL":
		s.store.Clear()
		return resp.SimpleString("OK"), false
	case "SLEEP":
		if len(args) == 1 {
			ms, err := strconv.Atoi(args[0])
			if err != nil || ms < 0 {
				return resp.ErrorReply("ERR invalid sleep duration"), false
			}
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return resp.SimpleString("OK"), false
		}
	case "QUIT":
		return resp.SimpleString("OK"), true
	default:
		return resp.ErrorReply(fmt.Sprintf("ERR unknown command '%s'", cmd[0])), false
	}
	return wrongArgs(name), false
}

func (s *Server) incr(key string) resp.Reply {
	var result int64
	invalid := false
	s.store.Compute(key, func(old string, loaded bool) (string, bool) {
		var n int64
		if loaded {
			v, err := strconv.ParseInt(old, 10, 64)
			if err != nil {
				invalid = true
				return old, false
			}
			n = v
		}
		result = n + 1
		return strconv.FormatInt(result, 10), false
	})
	if invalid {
		return resp.ErrorReply("ERR value is not an integer or out of range")
	}
	return resp.Integer(result)
}
