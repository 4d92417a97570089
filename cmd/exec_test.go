package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"redis-go/resptest"

	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, stdin string, args ...string) (string, error) {
	out := &bytes.Buffer{}
	RootCmd.SetOut(out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(args)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestExec(t *testing.T) {
	server, err := resptest.Start(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	out, err := runRoot(t, "", "exec", "--endpoint", server.Addr(), "SET", "greeting", "hello")
	require.NoError(t, err)
	require.Equal(t, "OK\n", out)

	stdin := "# comment\nINCR hits\n\nINCR hits\nGET greeting\nGET missing\n"
	out, err = runRoot(t, stdin, "exec", "--endpoint", server.Addr())
	require.NoError(t, err)
	require.Equal(t, `> INCR hits
(integer) 1
> INCR hits
(integer) 2
> GET greeting
"hello"
> GET missing
(nil)
`, out)
}

func TestExecConnectionLost(t *testing.T) {
	server, err := resptest.Start(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer server.Close()

	out, err := runRoot(t, "PING\nQUIT\nPING\n", "exec", "--endpoint", server.Addr())
	require.ErrorIs(t, err, errLost)
	require.Equal(t, "> PING\nPONG\n> QUIT\nOK\n", out)
}

func TestReadCommands(t *testing.T) {
	commands, err := readCommands(strings.NewReader("  SET a  1 \n#GET a\n\nDEL a b\n"))
	require.NoError(t, err)
	require.Equal(t, [][]string{{"SET", "a", "1"}, {"DEL", "a", "b"}}, commands)
}

func TestListenAddr(t *testing.T) {
	network, addr := listenAddr("unix:///tmp/redispipe.sock")
	require.Equal(t, "unix", network)
	require.Equal(t, "/tmp/redispipe.sock", addr)

	network, addr = listenAddr("tcp://127.0.0.1:7000")
	require.Equal(t, "tcp", network)
	require.Equal(t, "127.0.0.1:7000", addr)

	network, addr = listenAddr(":7000")
	require.Equal(t, "tcp", network)
	require.Equal(t, ":7000", addr)
}
