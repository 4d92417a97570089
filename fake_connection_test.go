package redis_go

import (
	"errors"
	"sync"

	"redis-go/resp"
)

var errFakeNotConnected = errors.New("fake: not connected")

// fakeConnection records what the client hands to the transport and lets
// tests play the part of the read goroutine.
type fakeConnection struct {
	mu           sync.Mutex
	connected    bool
	connectErr   error
	sendErr      error
	onDisconnect func()
	onReply      func(resp.Reply)

	// lazyNotify keeps Disconnect from reporting the loss, call lose instead.
	lazyNotify bool

	// gate, when set, holds Connect after announcing it on dialing, without
	// holding mu, until gate is closed.
	gate    chan struct{}
	dialing chan struct{}

	wire        [][]string
	committed   int
	connects    int
	disconnects int
}

func (f *fakeConnection) Connect(_ string, onDisconnect func(), onReply func(resp.Reply)) error {
	f.mu.Lock()
	gate, dialing := f.gate, f.dialing
	f.mu.Unlock()
	if gate != nil {
		dialing <- struct{}{}
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connected {
		return errors.New("fake: already connected")
	}
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	f.connects++
	f.onDisconnect, f.onReply = onDisconnect, onReply
	return nil
}

func (f *fakeConnection) Disconnect() error {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return nil
	}
	f.connected = false
	f.disconnects++
	notify := f.onDisconnect
	lazy := f.lazyNotify
	f.mu.Unlock()

	if !lazy {
		notify()
	}
	return nil
}

func (f *fakeConnection) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeConnection) Send(cmd []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return errFakeNotConnected
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.wire = append(f.wire, cmd)
	return nil
}

func (f *fakeConnection) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return errFakeNotConnected
	}
	f.committed = len(f.wire)
	return nil
}

// reply delivers r through the current reply sink.
func (f *fakeConnection) reply(r resp.Reply) {
	f.mu.Lock()
	onReply := f.onReply
	f.mu.Unlock()
	onReply(r)
}

// lose simulates the transport going away on its own.
func (f *fakeConnection) lose() {
	f.mu.Lock()
	f.connected = false
	notify := f.onDisconnect
	f.mu.Unlock()
	notify()
}

func (f *fakeConnection) sent() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.wire...)
}

func (f *fakeConnection) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

// notifier returns the disconnection callback of the current connection.
func (f *fakeConnection) notifier() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onDisconnect
}
