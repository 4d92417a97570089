package gonet

import "github.com/VictoriaMetrics/metrics"

var (
	connectionsAccepted = metrics.NewCounter(`gonet_listener_connections_accepted_total`)
	requestsServed      = metrics.NewCounter(`gonet_server_requests_total`)
	responseFlushes     = metrics.NewCounter(`gonet_server_flushes_total`)
	bytesCommitted      = metrics.NewCounter(`gonet_connection_bytes_written_total`)
	repliesRead         = metrics.NewCounter(`gonet_connection_replies_read_total`)
)
