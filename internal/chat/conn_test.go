package chat

import "errors"

var errFakeSend = errors.New("fake send failure")

// fakeConn is an in-memory Conn for exercising the core without a
// transport. Pointer identity gives it the comparability the registry
// needs.
type fakeConn struct {
	id      string
	open    bool
	sent    []Message
	sendErr error
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, open: true}
}

func (f *fakeConn) Send(m Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	if !f.open {
		return errors.New("connection closed")
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeConn) IsOpen() bool {
	return f.open
}

func (f *fakeConn) RemoteAddr() string {
	return f.id
}

func (f *fakeConn) lastSent() (Message, bool) {
	if len(f.sent) == 0 {
		return Message{}, false
	}
	return f.sent[len(f.sent)-1], true
}

func (f *fakeConn) reset() {
	f.sent = nil
}
