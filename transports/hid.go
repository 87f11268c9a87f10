package transports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sstallion/go-hid"

	"github.com/spullara/go-xarm/protocol"
)

// Wired device identity of the xArm control board.
const (
	DefaultVendorID  uint16 = 0x0483
	DefaultProductID uint16 = 0x5750
)

// hidReportSize is the fixed size of a read report from the board.
const hidReportSize = 64

// HIDTransport drives the wired link. HID reads and writes are blocking
// driver calls, so each one runs on its own goroutine and is awaited;
// the device handle is guarded by a mutex held for the span of a single
// call, never across both halves of an exchange.
type HIDTransport struct {
	mu      sync.Mutex
	dev     *hid.Device
	timeout time.Duration
	closed  bool
}

// OpenHID opens the wired link by vendor/product identity.
func OpenHID(cfg Config) (*HIDTransport, error) {
	cfg.applyDefaults()

	if err := hid.Init(); err != nil {
		return nil, fmt.Errorf("hid init: %w", err)
	}

	dev, err := hid.OpenFirst(cfg.VendorID, cfg.ProductID)
	if err != nil {
		return nil, fmt.Errorf("open hid %04x:%04x: %w", cfg.VendorID, cfg.ProductID, err)
	}

	return &HIDTransport{
		dev:     dev,
		timeout: cfg.ReceiveTimeout,
	}, nil
}

// wiredReport wraps one framed command in the zero report-id prefix
// the HID driver expects. The wireless link writes the bare frame.
func wiredReport(cmd byte, payload []byte) []byte {
	frame := protocol.EncodeFrame(cmd, payload)
	report := make([]byte, 0, 1+len(frame))
	report = append(report, 0x00)
	report = append(report, frame...)
	return report
}

// Send writes one framed command. The wired frame carries a leading
// report-id placeholder byte that the wireless frame omits.
func (t *HIDTransport) Send(ctx context.Context, cmd byte, payload []byte) error {
	report := wiredReport(cmd, payload)

	errc := make(chan error, 1)
	go func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			errc <- ErrClosed
			return
		}
		_, err := t.dev.Write(report)
		errc <- err
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("hid write: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks for the next report and decodes it against the
// expected command. A read that returns nothing within the timeout is
// reported as ErrTimeout; it is never retried here.
func (t *HIDTransport) Receive(ctx context.Context, cmd byte) ([]byte, error) {
	type result struct {
		buf []byte
		n   int
		err error
	}

	resc := make(chan result, 1)
	go func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			resc <- result{err: ErrClosed}
			return
		}
		buf := make([]byte, hidReportSize)
		n, err := t.dev.ReadWithTimeout(buf, t.timeout)
		resc <- result{buf: buf, n: n, err: err}
	}()

	var res result
	select {
	case res = <-resc:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if res.err != nil {
		return nil, fmt.Errorf("hid read: %w", res.err)
	}
	if res.n == 0 {
		return nil, ErrTimeout
	}

	return protocol.DecodeResponse(res.buf[:res.n], cmd)
}

// Close releases the device handle.
func (t *HIDTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	err := t.dev.Close()
	hid.Exit()
	return err
}
