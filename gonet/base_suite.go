package gonet

import (
	"context"

	"redis-go/testutil"
)

type BaseSuite struct {
	testutil.BaseSuite
}

func (s *BaseSuite) SetupListener(h HandlerFactory) *Listener {
	l := NewListener(0, h)
	err := l.Start(context.Background())
	s.Require().NoError(err)

	return l
}

// CloseListener closes l and waits for all of its connections to finish.
func (s *BaseSuite) CloseListener(l *Listener) {
	s.Require().NoError(l.Close())
	<-l.Done()
}
