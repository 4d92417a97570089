package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"redis-go/testutil"

	"github.com/stretchr/testify/suite"
)

type RespSuite struct {
	testutil.BaseSuite
}

func TestRespSuite(t *testing.T) {
	suite.Run(t, new(RespSuite))
}

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func (s *RespSuite) TestReadReplyTypes() {
	cases := []struct {
		wire string
		want Reply
	}{
		{"+OK\r\n", SimpleString("OK")},
		{"-ERR unknown command\r\n", ErrorReply("ERR unknown command")},
		{":42\r\n", Integer(42)},
		{":-7\r\n", Integer(-7)},
		{"$5\r\nhello\r\n", Bulk("hello")},
		{"$0\r\n\r\n", Bulk("")},
		{"$-1\r\n", NullReply()},
		{"*-1\r\n", NullReply()},
		{"*0\r\n", ArrayReply()},
		{"*2\r\n$3\r\nfoo\r\n:1\r\n", ArrayReply(Bulk("foo"), Integer(1))},
		{"*2\r\n*1\r\n+a\r\n$-1\r\n", ArrayReply(ArrayReply(SimpleString("a")), NullReply())},
	}
	for _, c := range cases {
		got, err := ReadReply(reader(c.wire))
		s.Require().NoError(err, c.wire)
		s.Equal(c.want, got, c.wire)
	}
}

func (s *RespSuite) TestReadReplySequence() {
	r := reader("+PONG\r\n$3\r\nbar\r\n:3\r\n")

	first, err := ReadReply(r)
	s.Require().NoError(err)
	s.Equal("PONG", first.Str)

	second, err := ReadReply(r)
	s.Require().NoError(err)
	s.Equal("bar", second.Str)

	third, err := ReadReply(r)
	s.Require().NoError(err)
	s.EqualValues(3, third.Int)

	_, err = ReadReply(r)
	s.ErrorIs(err, io.EOF)
}

func (s *RespSuite) TestReadReplyMalformed() {
	for _, wire := range []string{
		"?what\r\n",
		":abc\r\n",
		"+OK\n",
		"$3\r\nfooXY",
		"\r\n",
	} {
		_, err := ReadReply(reader(wire))
		s.ErrorIs(err, ErrProtocol, wire)
	}

	_, err := ReadReply(reader("$10\r\nshort\r\n"))
	s.ErrorIs(err, io.ErrUnexpectedEOF)
}

func (s *RespSuite) TestReadReplyRejectsOversizedHeaders() {
	for _, wire := range []string{
		"*9223372036854775807\r\n",
		fmt.Sprintf("*%d\r\n", MaxArrayLength+1),
		"$9223372036854775807\r\n",
		fmt.Sprintf("$%d\r\n", MaxBulkLength+1),
		"*1\r\n*9223372036854775807\r\n",
	} {
		var err error
		s.NotPanics(func() { _, err = ReadReply(reader(wire)) }, wire)
		s.ErrorIs(err, ErrProtocol, wire)
	}

	// a large but legal count must not be allocated up front
	_, err := ReadReply(reader("*100000000\r\n:1\r\n"))
	s.ErrorIs(err, io.EOF)
	_, err = ReadReply(reader("$100000000\r\nabc"))
	s.ErrorIs(err, io.ErrUnexpectedEOF)
}

func (s *RespSuite) TestReadReplyNesting() {
	deep := strings.Repeat("*1\r\n", MaxNesting+1) + ":1\r\n"
	_, err := ReadReply(reader(deep))
	s.ErrorIs(err, ErrProtocol)

	nested := strings.Repeat("*1\r\n", 3) + ":7\r\n"
	got, err := ReadReply(reader(nested))
	s.Require().NoError(err)
	s.Equal(ArrayReply(ArrayReply(ArrayReply(Integer(7)))), got)
}

func (s *RespSuite) TestAppendCommand() {
	got := AppendCommand(nil, []string{"SET", "key", "va\r\nlue"})
	s.Equal("*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$7\r\nva\r\nlue\r\n", string(got))

	got = AppendCommand(got[:0], []string{"PING"})
	s.Equal("*1\r\n$4\r\nPING\r\n", string(got))
}

func (s *RespSuite) TestReadCommand() {
	r := reader(string(AppendCommand(nil, []string{"ECHO", "hi there"})) + "PING  extra\r\n")

	cmd, err := ReadCommand(r)
	s.Require().NoError(err)
	s.Equal([]string{"ECHO", "hi there"}, cmd)

	cmd, err = ReadCommand(r)
	s.Require().NoError(err)
	s.Equal([]string{"PING", "extra"}, cmd)

	_, err = ReadCommand(reader("*1\r\n:1\r\n"))
	s.ErrorIs(err, ErrProtocol)

	for _, wire := range []string{
		"*9223372036854775807\r\n",
		fmt.Sprintf("*%d\r\n", MaxArrayLength+1),
		"*1\r\n$9223372036854775807\r\n",
	} {
		s.NotPanics(func() { _, err = ReadCommand(reader(wire)) }, wire)
		s.ErrorIs(err, ErrProtocol, wire)
	}
}

func (s *RespSuite) TestAppendReplyRoundTrip() {
	r := ArrayReply(SimpleString("OK"), ErrorReply("ERR x"), Integer(9), Bulk("v"), NullReply())
	got, err := ReadReply(reader(string(AppendReply(nil, r))))
	s.Require().NoError(err)
	s.Equal(r, got)
}

func (s *RespSuite) TestReplyHelpers() {
	s.True(NullReply().IsNull())
	s.Nil(SimpleString("OK").Err())

	err := ErrorReply("WRONGTYPE bad").Err()
	s.Require().Error(err)
	s.True(errors.Is(err, ErrServer))
	s.Equal("WRONGTYPE bad", err.Error())

	s.Equal("1) \"a\"\n2) (integer) 2\n3) (nil)",
		ArrayReply(Bulk("a"), Integer(2), NullReply()).String())
	s.Equal("(empty array)", ArrayReply().String())
}
