package redis_go

import (
	"errors"
	"time"

	"redis-go/gonet"

	"github.com/jpillora/backoff"
)

type ReconnectPolicy struct {
	Min    time.Duration
	Max    time.Duration
	Factor float64
	Jitter bool
	// MaxAttempts bounds the attempts per disconnection, zero means unbounded.
	MaxAttempts int

	// OnDisconnect is called on every disconnection before reconnecting.
	OnDisconnect DisconnectionHandler
	// OnReconnect is called after a successful reconnect.
	OnReconnect func(c *Client)
	// OnGiveUp is called with the last error once MaxAttempts are exhausted.
	OnGiveUp func(c *Client, err error)
}

var DefaultReconnectPolicy = ReconnectPolicy{
	Min:         100 * time.Millisecond,
	Max:         5 * time.Second,
	Factor:      2,
	Jitter:      true,
	MaxAttempts: 10,
}

// ReconnectHandler returns a DisconnectionHandler that connects the client to
// addr again, backing off between attempts. Nothing happens when the
// disconnection was asked for through Disconnect or Close. Close also ends a
// reconnect in progress.
func ReconnectHandler(addr string, policy ReconnectPolicy) DisconnectionHandler {
	var handler DisconnectionHandler
	handler = func(c *Client) {
		if policy.OnDisconnect != nil {
			policy.OnDisconnect(c)
		}
		if c.disconnectRequested() {
			return
		}
		go reconnect(c, addr, policy, handler)
	}
	return handler
}

func reconnect(c *Client, addr string, policy ReconnectPolicy, handler DisconnectionHandler) {
	b := &backoff.Backoff{
		Factor: policy.Factor,
		Jitter: policy.Jitter,
		Min:    policy.Min,
		Max:    policy.Max,
	}

	var err error
	for attempt := 1; policy.MaxAttempts <= 0 || attempt <= policy.MaxAttempts; attempt++ {
		err = c.connect(addr, handler, true)
		if err == nil {
			plog.Infof("client %s reconnected to %s after %d attempt(s)", c.id, addr, attempt)
			if policy.OnReconnect != nil {
				policy.OnReconnect(c)
			}
			return
		}
		if errors.Is(err, ErrClosed) || errors.Is(err, ErrDisconnectRequested) ||
			errors.Is(err, ErrConnecting) || errors.Is(err, gonet.ErrDialAborted) {
			return
		}

		duration := b.Duration()
		plog.Warningf("client %s: reconnect to %s failed: %v, sleeping for %s", c.id, addr, err, duration)
		timer := time.NewTimer(duration)
		select {
		case <-timer.C:
		case <-c.done:
			timer.Stop()
			return
		}
	}

	plog.Errorf("client %s: tried %d times reconnecting to %s, giving up", c.id, policy.MaxAttempts, addr)
	if policy.OnGiveUp != nil {
		policy.OnGiveUp(c, err)
	}
}

func (c *Client) disconnectRequested() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested
}
