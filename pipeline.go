package redis_go

// Pipeline chains Send and Commit calls on a client. The first error stops
// further sends and is reported by Err; Commit always flushes what was
// buffered so that the queued callbacks still get their replies.
//
//	err := c.Pipeline().
//		Send([]string{"SET", "k", "v"}, nil).
//		Send([]string{"GET", "k"}, onValue).
//		Commit().
//		Err()
type Pipeline struct {
	client *Client
	queued int
	err    error
}

func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{client: c}
}

func (p *Pipeline) Send(cmd []string, cb ReplyCallback) *Pipeline {
	if p.err != nil {
		return p
	}
	if err := p.client.Send(cmd, cb); err != nil {
		p.err = err
		return p
	}
	p.queued++
	return p
}

func (p *Pipeline) Commit() *Pipeline {
	if err := p.client.Commit(); err != nil && p.err == nil {
		p.err = err
	}
	return p
}

// Queued returns how many commands this pipeline handed to the client.
func (p *Pipeline) Queued() int {
	return p.queued
}

func (p *Pipeline) Err() error {
	return p.err
}
