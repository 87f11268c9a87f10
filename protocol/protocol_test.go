package protocol

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	// Move one servo: 55 55 08 03 01 F4 01 03 E8 03
	frame := EncodeFrame(CmdServoMove, []byte{0x01, 0xF4, 0x01, 0x03, 0xE8, 0x03})
	expected := []byte{0x55, 0x55, 0x08, 0x03, 0x01, 0xF4, 0x01, 0x03, 0xE8, 0x03}

	if !bytes.Equal(frame, expected) {
		t.Errorf("EncodeFrame: got %X, want %X", frame, expected)
	}
}

func TestEncodeFrame_EmptyPayload(t *testing.T) {
	// Battery voltage request carries no payload: 55 55 02 0F
	frame := EncodeFrame(CmdGetBatteryVoltage, nil)
	expected := []byte{0x55, 0x55, 0x02, 0x0F}

	if !bytes.Equal(frame, expected) {
		t.Errorf("EncodeFrame: got %X, want %X", frame, expected)
	}
}

func TestDecodeResponse(t *testing.T) {
	// Battery voltage response: 55 55 04 0F 2C 1D -> payload 2C 1D
	buf := []byte{0x55, 0x55, 0x04, 0x0F, 0x2C, 0x1D}

	payload, err := DecodeResponse(buf, CmdGetBatteryVoltage)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if !bytes.Equal(payload, []byte{0x2C, 0x1D}) {
		t.Errorf("payload: got %X, want 2C1D", payload)
	}
}

func TestDecodeResponse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"empty", nil, ErrFraming},
		{"short", []byte{0x55, 0x55, 0x02}, ErrFraming},
		{"bad first signature", []byte{0x54, 0x55, 0x02, 0x0F}, ErrSignatureMismatch},
		{"bad second signature", []byte{0x55, 0x00, 0x02, 0x0F}, ErrSignatureMismatch},
		{"wrong command", []byte{0x55, 0x55, 0x02, 0x03}, ErrCommandMismatch},
		{"undersized length", []byte{0x55, 0x55, 0x01, 0x0F}, ErrFraming},
		{"declared length exceeds buffer", []byte{0x55, 0x55, 0x06, 0x0F, 0x01}, ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse(tt.buf, 0x0F)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeResponse_TrailingBytes(t *testing.T) {
	// HID reads return a fixed-size report; bytes past the declared
	// length must be ignored.
	buf := []byte{0x55, 0x55, 0x04, 0x15, 0xAA, 0xBB, 0x00, 0x00, 0x00}

	payload, err := DecodeResponse(buf, CmdGetServoPosition)
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if !bytes.Equal(payload, []byte{0xAA, 0xBB}) {
		t.Errorf("payload: got %X, want AABB", payload)
	}
}

func TestAngleConversion_RoundTrip(t *testing.T) {
	// One raw unit covers 0.25 degrees, so a truncating round trip may
	// be off by strictly less than 0.26 degrees.
	for a := -125.0; a <= 125.0; a += 0.1 {
		got := RawToAngle(AngleToRaw(a))
		if diff := math.Abs(got - a); diff >= 0.26 {
			t.Fatalf("angle %.2f: round trip %.4f, off by %.4f", a, got, diff)
		}
	}
}

func TestAngleConversion_Monotonic(t *testing.T) {
	prev := AngleToRaw(-125.0)
	for a := -124.9; a <= 125.0; a += 0.1 {
		raw := AngleToRaw(a)
		if raw < prev {
			t.Fatalf("AngleToRaw not monotonic at %.2f: %d < %d", a, raw, prev)
		}
		prev = raw
	}
}

func TestAngleConversion_Endpoints(t *testing.T) {
	if raw := AngleToRaw(-125.0); raw != 0 {
		t.Errorf("AngleToRaw(-125): got %d, want 0", raw)
	}
	if raw := AngleToRaw(125.0); raw != 1000 {
		t.Errorf("AngleToRaw(125): got %d, want 1000", raw)
	}
	if angle := RawToAngle(500); angle != 0.0 {
		t.Errorf("RawToAngle(500): got %f, want 0", angle)
	}
}
