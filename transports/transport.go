// Package transports provides the physical links to the arm: a wired
// USB HID report channel and a wireless BLE characteristic channel,
// behind one frame-oriented interface.
package transports

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Sentinel errors for link-level failures.
var (
	ErrTimeout       = errors.New("receive timeout")
	ErrNoDeviceFound = errors.New("no device found")
	ErrClosed        = errors.New("transport is closed")
)

// Transport is the uniform contract over either physical medium. Send
// writes one framed command; Receive blocks for the matching response
// frame and returns its payload. The protocol has no pipelining: a
// Send and its Receive must complete before the next command.
type Transport interface {
	Send(ctx context.Context, cmd byte, payload []byte) error
	Receive(ctx context.Context, cmd byte) ([]byte, error)
	Close() error
}

// Config holds connection settings. The zero value selects the stock
// xArm identity on both media.
type Config struct {
	// VendorID and ProductID identify the wired HID link.
	VendorID  uint16
	ProductID uint16

	// BLEName is the advertised name to scan for on the wireless link.
	BLEName string

	// ScanTimeout bounds the wireless discovery scan. Default is 5s.
	ScanTimeout time.Duration

	// ReceiveTimeout bounds a single receive attempt. Default is 1s.
	ReceiveTimeout time.Duration

	// Logger receives connection progress. Default is slog.Default().
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.VendorID == 0 && c.ProductID == 0 {
		c.VendorID = DefaultVendorID
		c.ProductID = DefaultProductID
	}
	if c.BLEName == "" {
		c.BLEName = DefaultBLEName
	}
	if c.ScanTimeout == 0 {
		c.ScanTimeout = 5 * time.Second
	}
	if c.ReceiveTimeout == 0 {
		c.ReceiveTimeout = time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Connect establishes a link to the arm, preferring the wired medium.
// The wireless medium is attempted only after the wired open fails; if
// neither succeeds the result is ErrNoDeviceFound. There is no
// automatic reconnection after a connected transport fails.
func Connect(ctx context.Context, cfg Config) (Transport, error) {
	cfg.applyDefaults()

	hid, hidErr := OpenHID(cfg)
	if hidErr == nil {
		cfg.Logger.Info("connected via USB HID",
			"vendor_id", cfg.VendorID, "product_id", cfg.ProductID)
		return hid, nil
	}
	cfg.Logger.Debug("wired connection failed, trying bluetooth", "err", hidErr)

	ble, bleErr := OpenBLE(ctx, cfg)
	if bleErr == nil {
		cfg.Logger.Info("connected via bluetooth", "name", cfg.BLEName)
		return ble, nil
	}
	cfg.Logger.Debug("bluetooth connection failed", "err", bleErr)

	return nil, ErrNoDeviceFound
}
