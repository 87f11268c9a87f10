package transports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/spullara/go-xarm/protocol"
)

// DefaultBLEName is the name the arm advertises over BLE.
const DefaultBLEName = "xArm"

// Wireless service and characteristic identities.
var (
	bleServiceUUID        = bluetooth.New16BitUUID(0xFFE0)
	bleCharacteristicUUID = bluetooth.New16BitUUID(0xFFE1)
)

// BLETransport drives the wireless link through a single GATT
// characteristic. When the characteristic supports notifications,
// responses arrive through the notification channel; otherwise each
// Receive falls back to a direct characteristic read.
type BLETransport struct {
	mu     sync.Mutex
	device bluetooth.Device
	char   bluetooth.DeviceCharacteristic

	notifying     bool
	notifications chan []byte
	done          chan struct{}

	timeout time.Duration
	closed  bool
}

// OpenBLE scans for an advertising arm, connects, and locates the
// control characteristic. The scan is bounded by cfg.ScanTimeout.
func OpenBLE(ctx context.Context, cfg Config) (*BLETransport, error) {
	cfg.applyDefaults()

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- adapter.Scan(func(a *bluetooth.Adapter, res bluetooth.ScanResult) {
			if res.LocalName() == cfg.BLEName {
				a.StopScan()
				select {
				case found <- res:
				default:
				}
			}
		})
	}()

	res, err := awaitScan(ctx, found, scanErr, cfg.ScanTimeout, adapter.StopScan, cfg.BLEName)
	if err != nil {
		return nil, err
	}

	device, err := adapter.Connect(res.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("bluetooth connect: %w", err)
	}

	services, err := device.DiscoverServices([]bluetooth.UUID{bleServiceUUID})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("discover service %s: %w", bleServiceUUID, err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{bleCharacteristicUUID})
	if err != nil || len(chars) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("discover characteristic %s: %w", bleCharacteristicUUID, err)
	}

	t := &BLETransport{
		device:        device,
		char:          chars[0],
		notifications: make(chan []byte, 8),
		done:          make(chan struct{}),
		timeout:       cfg.ReceiveTimeout,
	}

	// Not every board revision exposes the notify property; the read
	// fallback in Receive covers the ones that do not.
	if err := t.char.EnableNotifications(func(buf []byte) {
		data := make([]byte, len(buf))
		copy(data, buf)
		select {
		case t.notifications <- data:
		default:
		}
	}); err == nil {
		t.notifying = true
	} else {
		cfg.Logger.Debug("notifications unavailable, using direct reads", "err", err)
	}

	return t, nil
}

// awaitScan waits for the first of: a matching advertisement, the scan
// goroutine finishing, the scan deadline, or caller cancellation. The
// scan callback stops the scan after pushing a match, so a nil scan
// error can become ready at the same moment as the match; that branch
// re-checks found before concluding the device was never seen.
func awaitScan(ctx context.Context, found <-chan bluetooth.ScanResult, scanErr <-chan error, timeout time.Duration, stop func() error, name string) (bluetooth.ScanResult, error) {
	select {
	case res := <-found:
		return res, nil
	case err := <-scanErr:
		if err != nil {
			return bluetooth.ScanResult{}, fmt.Errorf("bluetooth scan: %w", err)
		}
		select {
		case res := <-found:
			return res, nil
		default:
		}
		return bluetooth.ScanResult{}, fmt.Errorf("%w: scan stopped before %q was seen", ErrNoDeviceFound, name)
	case <-time.After(timeout):
		stop()
		return bluetooth.ScanResult{}, fmt.Errorf("%w: %q not seen within %s", ErrNoDeviceFound, name, timeout)
	case <-ctx.Done():
		stop()
		return bluetooth.ScanResult{}, ctx.Err()
	}
}

// Send performs a characteristic write of one framed command. The
// wireless frame has no report-id byte.
func (t *BLETransport) Send(ctx context.Context, cmd byte, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frame := protocol.EncodeFrame(cmd, payload)
	if _, err := t.char.WriteWithoutResponse(frame); err != nil {
		return fmt.Errorf("ble write: %w", err)
	}
	return nil
}

// Receive waits for the next notification, or performs a direct read
// when notifications are not active. Both paths validate the frame the
// same way before stripping the header.
func (t *BLETransport) Receive(ctx context.Context, cmd byte) ([]byte, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	notifying := t.notifying
	t.mu.Unlock()

	if notifying {
		select {
		case buf := <-t.notifications:
			return protocol.DecodeResponse(buf, cmd)
		case <-t.done:
			return nil, ErrClosed
		case <-time.After(t.timeout):
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}

	buf := make([]byte, hidReportSize)
	n, err := t.char.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("ble read: %w", err)
	}
	if n == 0 {
		return nil, ErrTimeout
	}

	return protocol.DecodeResponse(buf[:n], cmd)
}

// Close disconnects from the peripheral.
func (t *BLETransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)

	return t.device.Disconnect()
}
