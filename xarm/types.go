// Package xarm provides the controller for a six-servo xArm robotic
// arm, including batched movement with convergence retry and adaptive
// per-servo calibration.
package xarm

import (
	"github.com/spullara/go-xarm/protocol"
)

// Servo identifies one joint actuator by its wire id.
type Servo byte

// The six joints of the arm.
const (
	ClawGrip     Servo = 1
	ClawTwist    Servo = 2
	WristTilt    Servo = 3 // -125 to 125, up to down
	ElbowTilt    Servo = 4 // -125 to 125, up to down
	ShoulderTilt Servo = 5 // -125 to 125, up to down
	BaseSpin     Servo = 6 // -125 to 125, clockwise
)

// Servos returns all joints in wire-id order.
func Servos() []Servo {
	return []Servo{ClawGrip, ClawTwist, WristTilt, ElbowTilt, ShoulderTilt, BaseSpin}
}

func (s Servo) String() string {
	switch s {
	case ClawGrip:
		return "claw_grip"
	case ClawTwist:
		return "claw_twist"
	case WristTilt:
		return "wrist_tilt"
	case ElbowTilt:
		return "elbow_tilt"
	case ShoulderTilt:
		return "shoulder_tilt"
	case BaseSpin:
		return "base_spin"
	default:
		return "unknown"
	}
}

// ServoByName returns the servo with the given String() name.
func ServoByName(name string) (Servo, bool) {
	for _, s := range Servos() {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// JointAngles is the three-joint decomposition of a target elevation.
// The values are derived together and are not independently settable.
type JointAngles struct {
	Shoulder float64
	Elbow    float64
	Wrist    float64
}

// Movement pairs a servo with a target angle in degrees.
type Movement struct {
	Servo Servo
	Angle float64
}

// Elevation domain accepted by CalculateJointAngles before decomposition.
const (
	MinElevation = -60.0
	MaxElevation = 90.0
)

func clampAngle(angle float64) float64 {
	if angle < protocol.MinAngle {
		return protocol.MinAngle
	}
	if angle > protocol.MaxAngle {
		return protocol.MaxAngle
	}
	return angle
}
