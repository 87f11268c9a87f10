package transports

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/spullara/go-xarm/protocol"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	if cfg.VendorID != DefaultVendorID || cfg.ProductID != DefaultProductID {
		t.Errorf("device identity: got %04x:%04x, want %04x:%04x",
			cfg.VendorID, cfg.ProductID, DefaultVendorID, DefaultProductID)
	}
	if cfg.BLEName != DefaultBLEName {
		t.Errorf("BLE name: got %q, want %q", cfg.BLEName, DefaultBLEName)
	}
	if cfg.ScanTimeout != 5*time.Second {
		t.Errorf("scan timeout: got %s, want 5s", cfg.ScanTimeout)
	}
	if cfg.ReceiveTimeout != time.Second {
		t.Errorf("receive timeout: got %s, want 1s", cfg.ReceiveTimeout)
	}
	if cfg.Logger == nil {
		t.Error("logger not defaulted")
	}
}

func TestConfigDefaults_PreservesOverrides(t *testing.T) {
	cfg := Config{VendorID: 0x1234, ProductID: 0x5678, BLEName: "other"}
	cfg.applyDefaults()

	if cfg.VendorID != 0x1234 || cfg.ProductID != 0x5678 {
		t.Errorf("device identity overridden: got %04x:%04x", cfg.VendorID, cfg.ProductID)
	}
	if cfg.BLEName != "other" {
		t.Errorf("BLE name overridden: got %q", cfg.BLEName)
	}
}

func TestMockTransport_QueuedResponses(t *testing.T) {
	m := &MockTransport{Responses: [][]byte{{0x01}, {0x02}}}
	ctx := context.Background()

	if err := m.Send(ctx, 0x0F, []byte{0xAA}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(m.Sent) != 1 || m.Sent[0].Cmd != 0x0F {
		t.Fatalf("Sent not recorded: %+v", m.Sent)
	}

	first, err := m.Receive(ctx, 0x0F)
	if err != nil || first[0] != 0x01 {
		t.Errorf("first receive: got %X, %v", first, err)
	}
	second, err := m.Receive(ctx, 0x0F)
	if err != nil || second[0] != 0x02 {
		t.Errorf("second receive: got %X, %v", second, err)
	}

	// Exhausted queue behaves like a silent device.
	if _, err := m.Receive(ctx, 0x0F); !errors.Is(err, ErrTimeout) {
		t.Errorf("exhausted receive: got %v, want ErrTimeout", err)
	}
}

func TestTransportFraming(t *testing.T) {
	payload := []byte{0x01, 0x06}

	wired := wiredReport(protocol.CmdGetServoPosition, payload)
	if wired[0] != 0x00 {
		t.Errorf("wired report-id: got %#02x, want 0x00", wired[0])
	}
	frame := protocol.EncodeFrame(protocol.CmdGetServoPosition, payload)
	if !bytes.Equal(wired[1:], frame) {
		t.Errorf("wired frame after report-id: got % X, want % X", wired[1:], frame)
	}

	// The wireless link writes the bare frame, which leads with the
	// signature rather than a report-id.
	if frame[0] != protocol.Signature {
		t.Errorf("wireless lead byte: got %#02x, want %#02x", frame[0], protocol.Signature)
	}
}

func TestAwaitScan_MatchBeatsCleanShutdown(t *testing.T) {
	// The scan callback stops the scan right after delivering a match,
	// so the result and the nil scan error become ready together. The
	// match must win no matter which channel is observed first.
	for i := 0; i < 100; i++ {
		found := make(chan bluetooth.ScanResult, 1)
		scanErr := make(chan error, 1)
		found <- bluetooth.ScanResult{}
		scanErr <- nil

		stop := func() error { return nil }
		if _, err := awaitScan(context.Background(), found, scanErr, time.Second, stop, DefaultBLEName); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
}

func TestAwaitScan_CleanShutdownWithoutMatch(t *testing.T) {
	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)
	scanErr <- nil

	stop := func() error { return nil }
	_, err := awaitScan(context.Background(), found, scanErr, time.Second, stop, DefaultBLEName)
	if !errors.Is(err, ErrNoDeviceFound) {
		t.Fatalf("got %v, want ErrNoDeviceFound", err)
	}
}

func TestAwaitScan_ScanFailure(t *testing.T) {
	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)
	scanErr <- errors.New("adapter gone")

	stop := func() error { return nil }
	_, err := awaitScan(context.Background(), found, scanErr, time.Second, stop, DefaultBLEName)
	if err == nil || errors.Is(err, ErrNoDeviceFound) {
		t.Fatalf("got %v, want wrapped scan failure", err)
	}
}

func TestBLEReceive_FailsFastAfterClose(t *testing.T) {
	tr := &BLETransport{
		notifying:     true,
		notifications: make(chan []byte, 1),
		done:          make(chan struct{}),
		timeout:       5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		_, err := tr.Receive(context.Background(), protocol.CmdGetServoPosition)
		errc <- err
	}()

	tr.mu.Lock()
	tr.closed = true
	close(tr.done)
	tr.mu.Unlock()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("got %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("receive waited out the timeout instead of failing fast")
	}

	// Once closed, a fresh call refuses immediately.
	if _, err := tr.Receive(context.Background(), protocol.CmdGetServoPosition); !errors.Is(err, ErrClosed) {
		t.Fatalf("post-close receive: got %v, want ErrClosed", err)
	}
}
