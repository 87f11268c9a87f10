package transports

import (
	"context"
	"errors"
)

// MockCall records one frame handed to MockTransport.Send.
type MockCall struct {
	Cmd     byte
	Payload []byte
}

// MockTransport implements Transport for testing. Queued responses are
// returned in order; SendFunc and ReceiveFunc allow scripted behavior
// for tests that model device state.
type MockTransport struct {
	Sent      []MockCall
	Responses [][]byte
	SendErr   error
	Closed    bool

	// SendFunc, when set, observes every frame before it is recorded.
	SendFunc func(cmd byte, payload []byte) error

	// ReceiveFunc, when set, replaces the queued-response behavior.
	ReceiveFunc func(cmd byte) ([]byte, error)
}

func (m *MockTransport) Send(_ context.Context, cmd byte, payload []byte) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(cmd, payload); err != nil {
			return err
		}
	}
	if m.SendErr != nil {
		return m.SendErr
	}
	p := make([]byte, len(payload))
	copy(p, payload)
	m.Sent = append(m.Sent, MockCall{Cmd: cmd, Payload: p})
	return nil
}

func (m *MockTransport) Receive(_ context.Context, cmd byte) ([]byte, error) {
	if m.ReceiveFunc != nil {
		return m.ReceiveFunc(cmd)
	}
	if len(m.Responses) == 0 {
		return nil, ErrTimeout
	}
	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return resp, nil
}

func (m *MockTransport) Close() error {
	if m.Closed {
		return errors.New("already closed")
	}
	m.Closed = true
	return nil
}
