// Package protocol implements the xArm wire frame codec and the
// angle to raw-unit conversions shared by both transports.
package protocol

import "fmt"

// Signature is the frame marker byte, sent twice at the start of every frame.
const Signature byte = 0x55

// Command codes understood by the arm's control board.
const (
	CmdServoMove         byte = 0x03
	CmdGetBatteryVoltage byte = 0x0F
	CmdServoStop         byte = 0x14
	CmdGetServoPosition  byte = 0x15
)

// Raw position range and the angle domain it maps onto.
const (
	MinAngle = -125.0
	MaxAngle = 125.0
	RawMax   = 1000
)

// EncodeFrame constructs a wire-format frame for the given command and payload:
// signature(2) + length(1) + command(1) + payload(n), where length counts the
// payload plus the length and command bytes. The wired transport's leading
// report-id byte is a HID detail and is prepended by that transport, not here.
func EncodeFrame(cmd byte, payload []byte) []byte {
	buf := make([]byte, 0, 4+len(payload))
	buf = append(buf, Signature, Signature)
	buf = append(buf, byte(len(payload)+2))
	buf = append(buf, cmd)
	buf = append(buf, payload...)
	return buf
}

// DecodeResponse validates a received frame and extracts its payload.
// The frame is accepted only when both signature bytes match, the embedded
// command equals want, and the declared length fits the bytes available.
func DecodeResponse(buf []byte, want byte) ([]byte, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrFraming, len(buf))
	}
	if buf[0] != Signature || buf[1] != Signature {
		return nil, fmt.Errorf("%w: %02x %02x", ErrSignatureMismatch, buf[0], buf[1])
	}
	if buf[3] != want {
		return nil, fmt.Errorf("%w: want %02x, got %02x", ErrCommandMismatch, want, buf[3])
	}
	length := int(buf[2])
	if length < 2 {
		return nil, fmt.Errorf("%w: declared length %d", ErrFraming, length)
	}
	payloadLen := length - 2
	if 4+payloadLen > len(buf) {
		return nil, fmt.Errorf("%w: declared %d payload bytes, %d available", ErrTruncated, payloadLen, len(buf)-4)
	}
	return buf[4 : 4+payloadLen], nil
}

// AngleToRaw converts degrees to the device's 0-1000 actuator unit.
// The conversion truncates, so round-trips may lose up to one raw step.
// Callers clamp the angle to [MinAngle, MaxAngle] before encoding.
func AngleToRaw(angle float64) uint16 {
	return uint16((angle + 125.0) * 1000.0 / 250.0)
}

// RawToAngle converts the device's actuator unit back to degrees.
func RawToAngle(raw uint16) float64 {
	return float64(raw)*250.0/1000.0 - 125.0
}
