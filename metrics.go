package redis_go

import "github.com/VictoriaMetrics/metrics"

var (
	commandsSent       = metrics.NewCounter(`redis_client_commands_sent_total`)
	repliesDispatched  = metrics.NewCounter(`redis_client_replies_dispatched_total`)
	repliesDropped     = metrics.NewCounter(`redis_client_replies_dropped_total`)
	callbacksDiscarded = metrics.NewCounter(`redis_client_callbacks_discarded_total`)
	disconnections     = metrics.NewCounter(`redis_client_disconnections_total`)
)
