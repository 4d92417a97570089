package gonet

import (
	"context"
	"fmt"
	"net"
	"strings"

	"nhooyr.io/websocket"
)

const maxWebsocketMessage = 1 << 30

// Dial opens a transport for addr. Supported forms:
//
//	host:port, tcp://host:port   TCP
//	unix:///path/to/socket       unix domain socket
//	ws://host/path, wss://...    websocket, binary messages carry the byte stream
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	scheme, rest, found := strings.Cut(addr, "://")
	if !found {
		return dialNet(ctx, "tcp", addr)
	}

	switch scheme {
	case "tcp", "unix":
		return dialNet(ctx, scheme, rest)
	case "ws", "wss":
		return dialWebsocket(ctx, addr)
	default:
		return nil, fmt.Errorf("unsupported transport %q", scheme)
	}
}

func dialNet(ctx context.Context, network, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, addr)
}

func dialWebsocket(ctx context.Context, addr string) (net.Conn, error) {
	ws, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	ws.SetReadLimit(maxWebsocketMessage)
	// The stream outlives the dial context.
	return websocket.NetConn(context.Background(), ws, websocket.MessageBinary), nil
}
