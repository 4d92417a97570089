package resptest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"redis-go/gonet"
	"redis-go/resp"
	"redis-go/testutil"

	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// peer is a raw connection to the server under test.
type peer struct {
	conn         *gonet.Connection[resp.Reply]
	replies      chan resp.Reply
	disconnected chan struct{}
}

type ServerSuite struct {
	testutil.BaseSuite

	server *Server
	peer   *peer
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	server, err := Start(context.Background(), "tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	s.server = server
	s.peer = s.dial(server.Addr())
}

func (s *ServerSuite) TearDownTest() {
	s.hangUp(s.peer)
	s.NoError(s.server.Close())
}

func (s *ServerSuite) dial(addr string) *peer {
	p := &peer{
		conn:         gonet.NewConnection[resp.Reply](resp.Codec{}, gonet.Options{DialTimeout: time.Second}),
		replies:      make(chan resp.Reply, 256),
		disconnected: make(chan struct{}),
	}
	s.Require().NoError(p.conn.Connect(addr,
		func() { close(p.disconnected) },
		func(r resp.Reply) { p.replies <- r },
	))
	return p
}

func (s *ServerSuite) hangUp(p *peer) {
	s.NoError(p.conn.Disconnect())
	s.Await(p.disconnected, "disconnection")
}

func (s *ServerSuite) do(cmd ...string) resp.Reply {
	return s.doOn(s.peer, cmd...)
}

func (s *ServerSuite) doOn(p *peer, cmd ...string) resp.Reply {
	s.Require().NoError(p.conn.Send(cmd))
	s.Require().NoError(p.conn.Commit())
	return s.next(p)
}

func (s *ServerSuite) next(p *peer) resp.Reply {
	select {
	case r := <-p.replies:
		return r
	case <-time.After(testutil.DefaultWait):
		s.FailNow("timed out waiting for reply")
		return resp.Reply{}
	}
}

func (s *ServerSuite) TestCommands() {
	s.Equal(resp.SimpleString("PONG"), s.do("PING"))
	s.Equal(resp.Bulk("hi"), s.do("ping", "hi"))
	s.Equal(resp.Bulk("echo me"), s.do("ECHO", "echo me"))

	s.Equal(resp.NullReply(), s.do("GET", "k"))
	s.Equal(resp.SimpleString("OK"), s.do("SET", "k", "v"))
	s.Equal(resp.Bulk("v"), s.do("GET", "k"))
	s.Equal(resp.Integer(1), s.do("DBSIZE"))

	s.Equal(resp.Integer(1), s.do("INCR", "n"))
	s.Equal(resp.Integer(2), s.do("INCR", "n"))
	s.True(s.do("INCR", "k").IsError())

	s.Equal(resp.Integer(2), s.do("DEL", "k", "n", "missing"))
	s.Equal(resp.SimpleString("OK"), s.do("FLUSHALL"))
	s.Equal(resp.Integer(0), s.do("DBSIZE"))

	unknown := s.do("NOPE")
	s.True(unknown.IsError())
	s.True(strings.Contains(unknown.Str, "unknown command"))

	s.True(s.do("GET").IsError())
	s.True(s.do("SLEEP", "x").IsError())

	s.EqualValues(16, s.server.Commands())
}

func (s *ServerSuite) TestPipelinedOrder() {
	conn := s.peer.conn
	s.Require().NoError(conn.Send([]string{"SLEEP", "20"}))
	s.Require().NoError(conn.Send([]string{"SET", "a", "1"}))
	s.Require().NoError(conn.Send([]string{"INCR", "a"}))
	s.Require().NoError(conn.Send([]string{"GET", "a"}))
	s.Require().NoError(conn.Commit())

	s.Equal(resp.SimpleString("OK"), s.next(s.peer))
	s.Equal(resp.SimpleString("OK"), s.next(s.peer))
	s.Equal(resp.Integer(2), s.next(s.peer))
	s.Equal(resp.Bulk("2"), s.next(s.peer))
}

func (s *ServerSuite) TestQuit() {
	s.Equal(resp.SimpleString("OK"), s.do("QUIT"))
	s.Await(s.peer.disconnected, "server hang up")
	s.False(s.peer.conn.IsConnected())
}

func (s *ServerSuite) TestWebsocket() {
	done := make(chan struct{})
	hs := httptest.NewServer(s.server.WebsocketHandler(done))
	defer hs.Close()

	ws := s.dial("ws" + strings.TrimPrefix(hs.URL, "http"))
	s.Equal(resp.SimpleString("OK"), s.doOn(ws, "SET", "over", "websocket"))

	// the keyspace is shared with the tcp listener
	s.Equal(resp.Bulk("websocket"), s.do("GET", "over"))

	// closing done hangs up on websocket clients
	close(done)
	s.Await(ws.disconnected, "websocket hang up")
}
