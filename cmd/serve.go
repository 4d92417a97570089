package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"redis-go/cmd/util"
	"redis-go/resptest"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the in-process RESP test server",
	Long: `Runs a small in-memory server understanding PING, ECHO, SET, GET, DEL, INCR,
DBSIZE, FLUSHALL, SLEEP and QUIT. The configuration can be set via flags or
environment variables of the form REDISPIPE_<FLAG> (e.g. REDISPIPE_LISTEN=:7000).`,
	RunE: runServe,
}

func init() {
	key := "listen"
	serveCmd.Flags().String(key, "127.0.0.1:6379", util.WrapString("Address to listen on: host:port or unix:///path"))
	key = "websocket"
	serveCmd.Flags().String(key, "", util.WrapString("Optional host:port to additionally serve RESP over websocket"))
}

func listenAddr(listen string) (network, addr string) {
	if path, ok := strings.CutPrefix(listen, "unix://"); ok {
		return "unix", path
	}
	return "tcp", strings.TrimPrefix(listen, "tcp://")
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	network, addr := listenAddr(viper.GetString("listen"))
	server, err := resptest.Start(ctx, network, addr)
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	fmt.Printf("serving on %s://%s\n", network, server.Addr())

	done := make(chan struct{})
	var hs *http.Server
	if wsAddr := viper.GetString("websocket"); wsAddr != "" {
		l, err := net.Listen("tcp", wsAddr)
		if err != nil {
			_ = server.Close()
			return fmt.Errorf("starting websocket listener: %w", err)
		}
		hs = &http.Server{Handler: server.WebsocketHandler(done)}
		go func() {
			if err := hs.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				plog.Errorf("websocket server: %v", err)
			}
		}()
		fmt.Printf("serving websocket on ws://%s\n", l.Addr())
	}

	<-ctx.Done()
	plog.Infof("shutting down after %d commands", server.Commands())

	close(done)
	if hs != nil {
		_ = hs.Shutdown(context.Background())
	}
	return server.Close()
}
