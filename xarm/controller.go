package xarm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/spullara/go-xarm/protocol"
	"github.com/spullara/go-xarm/transports"
)

// millisecondsPerDegree sizes a movement's duration from its magnitude.
const millisecondsPerDegree = 5.0

// minMoveDuration is the shortest duration the board accepts.
const minMoveDuration = 20 * time.Millisecond

// retryTolerance is the position error, in degrees, above which a
// movement is considered unconverged.
const retryTolerance = 1.0

// Transport is the link contract the Controller drives. It is
// satisfied by the transports package implementations.
type Transport interface {
	Send(ctx context.Context, cmd byte, payload []byte) error
	Receive(ctx context.Context, cmd byte) ([]byte, error)
	Close() error
}

// Config holds settings for creating a Controller.
type Config struct {
	// Transport is the connected link. Required for NewController;
	// Connect fills it in from Link.
	Transport Transport

	// Link configures discovery when Connect opens the transport.
	Link transports.Config

	// MaxRetries bounds the convergence retry depth per movement
	// batch. Default is 5.
	MaxRetries int

	// Logger receives movement and convergence progress.
	// Default is slog.Default().
	Logger *slog.Logger
}

// Controller is the public API for the arm. It owns exactly one
// transport and one calibration state, and issues strictly paired
// send/receive exchanges: one command completes before the next is
// sent.
type Controller struct {
	transport   Transport
	log         *slog.Logger
	maxRetries  int
	calibration *calibrationState
}

// NewController wraps an already-connected transport.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		transport:   cfg.Transport,
		log:         cfg.Logger,
		maxRetries:  cfg.MaxRetries,
		calibration: newCalibrationState(),
	}, nil
}

// Connect discovers the arm (wired first, then wireless) and returns a
// ready Controller. Discovery failure is fatal: there is no automatic
// reconnection.
func Connect(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.Transport == nil {
		transport, err := transports.Connect(ctx, cfg.Link)
		if err != nil {
			return nil, err
		}
		cfg.Transport = transport
	}
	return NewController(cfg)
}

// Close releases the transport.
func (c *Controller) Close() error {
	return c.transport.Close()
}

// exchange performs one strictly paired request/response round trip.
func (c *Controller) exchange(ctx context.Context, cmd byte, payload []byte) ([]byte, error) {
	if err := c.transport.Send(ctx, cmd, payload); err != nil {
		return nil, err
	}
	return c.transport.Receive(ctx, cmd)
}

// GetBatteryVoltage reads the battery voltage in volts.
func (c *Controller) GetBatteryVoltage(ctx context.Context) (float64, error) {
	data, err := c.exchange(ctx, protocol.CmdGetBatteryVoltage, nil)
	if err != nil {
		return 0, err
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("%w: battery voltage needs 2 bytes, got %d", ErrInvalidPayload, len(data))
	}
	return float64(binary.LittleEndian.Uint16(data)) / 1000.0, nil
}

// GetPosition reads the current angle of one servo.
func (c *Controller) GetPosition(ctx context.Context, servo Servo) (float64, error) {
	positions, err := c.GetPositions(ctx, servo)
	if err != nil {
		return 0, err
	}
	angle, ok := positions[servo]
	if !ok {
		return 0, fmt.Errorf("%w: no position reported for %s", ErrInvalidPayload, servo)
	}
	return angle, nil
}

// GetPositions reads current angles for the given servos in one
// batched query. Entries the device does not report are omitted from
// the result; a short response is logged as a warning, not an error.
func (c *Controller) GetPositions(ctx context.Context, servos ...Servo) (map[Servo]float64, error) {
	payload := make([]byte, 0, 1+len(servos))
	payload = append(payload, byte(len(servos)))
	for _, s := range servos {
		payload = append(payload, byte(s))
	}

	data, err := c.exchange(ctx, protocol.CmdGetServoPosition, payload)
	if err != nil {
		return nil, err
	}
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty position response", ErrInvalidPayload)
	}

	count := int(data[0])
	if available := (len(data) - 1) / 3; count > available {
		count = available
	}

	requested := make(map[Servo]bool, len(servos))
	for _, s := range servos {
		requested[s] = true
	}

	positions := make(map[Servo]float64, count)
	for i := 0; i < count; i++ {
		entry := data[1+i*3 : 4+i*3]
		servo := Servo(entry[0])
		if !requested[servo] {
			continue
		}
		raw := binary.LittleEndian.Uint16(entry[1:])
		positions[servo] = protocol.RawToAngle(raw)
	}

	if len(positions) < len(servos) {
		c.log.Warn("device reported fewer positions than requested",
			"requested", len(servos), "reported", len(positions))
	}

	return positions, nil
}

// ServoOff powers off the given servos, or all six when none are given.
func (c *Controller) ServoOff(ctx context.Context, servos ...Servo) error {
	var payload []byte
	if len(servos) == 0 {
		payload = []byte{6, 1, 2, 3, 4, 5, 6}
	} else {
		payload = make([]byte, 0, 1+len(servos))
		payload = append(payload, byte(len(servos)))
		for _, s := range servos {
			payload = append(payload, byte(s))
		}
	}
	return c.transport.Send(ctx, protocol.CmdServoStop, payload)
}

// CalculateJointAngles decomposes a target elevation into shoulder,
// elbow, and wrist angles. The 0.4/0.8 coefficients encode the arm's
// link-length ratio; this is a fixed decomposition, not a general
// inverse-kinematics solve.
func (c *Controller) CalculateJointAngles(targetElevation float64) JointAngles {
	if targetElevation < MinElevation {
		targetElevation = MinElevation
	}
	if targetElevation > MaxElevation {
		targetElevation = MaxElevation
	}

	total := 90.0 - targetElevation
	shoulder := clampAngle(-total * 0.4)
	elbow := clampAngle(total * 0.8)
	wrist := clampAngle(total - shoulder - elbow)

	return JointAngles{
		Shoulder: round1(shoulder),
		Elbow:    round1(-elbow),
		Wrist:    round1(wrist),
	}
}

// SetLook points the arm at the given elevation and azimuth with one
// batched movement of the wrist, elbow, shoulder, and base servos.
// It returns the number of convergence retries performed.
func (c *Controller) SetLook(ctx context.Context, elevation, azimuth float64) (int, error) {
	angles := c.CalculateJointAngles(elevation)
	return c.SetMultiplePositions(ctx, []Movement{
		{Servo: WristTilt, Angle: angles.Wrist},
		{Servo: ElbowTilt, Angle: angles.Elbow},
		{Servo: ShoulderTilt, Angle: angles.Shoulder},
		{Servo: BaseSpin, Angle: azimuth},
	})
}

// SetPosition moves one servo to the target angle, retrying until the
// measured position converges. It returns the retry count.
func (c *Controller) SetPosition(ctx context.Context, servo Servo, angle float64) (int, error) {
	return c.SetMultiplePositions(ctx, []Movement{{Servo: servo, Angle: angle}})
}

// SetMultiplePositions moves several servos in one command and retries
// the subset that fails to converge within tolerance. It returns the
// total number of retries. A servo whose position did not change at
// all is assumed stuck or disconnected and is not retried; exceeding
// the configured retry depth returns the accumulated count alongside
// ErrRetryLimit.
func (c *Controller) SetMultiplePositions(ctx context.Context, movements []Movement) (int, error) {
	for _, m := range movements {
		if m.Angle < protocol.MinAngle || m.Angle > protocol.MaxAngle {
			return 0, fmt.Errorf("%w: %s target %.1f not in [%.0f, %.0f]",
				ErrAngleOutOfRange, m.Servo, m.Angle, protocol.MinAngle, protocol.MaxAngle)
		}
	}
	return c.converge(ctx, movements, c.maxRetries, false)
}

// pendingMove carries one movement through a convergence attempt.
type pendingMove struct {
	movement Movement
	current  float64
	size     float64
	adjusted float64
}

func (c *Controller) converge(ctx context.Context, movements []Movement, depth int, retrying bool) (int, error) {
	servos := make([]Servo, len(movements))
	for i, m := range movements {
		servos[i] = m.Servo
	}

	current, err := c.GetPositions(ctx, servos...)
	if err != nil {
		return 0, err
	}

	var (
		batch    []pendingMove
		duration = minMoveDuration
	)
	for _, m := range movements {
		cur, ok := current[m.Servo]
		if !ok {
			c.log.Warn("no current position, skipping movement", "servo", m.Servo)
			continue
		}

		size := m.Angle - cur
		if math.Abs(size) < retryTolerance {
			// Already satisfied: no command, error reported as zero.
			continue
		}

		adjusted := m.Angle
		if !c.calibration.collecting {
			adjusted = m.Angle + size*c.calibration.adjustment(m.Servo, size)/100.0
		}

		if d := moveDuration(size); d > duration {
			duration = d
		}

		batch = append(batch, pendingMove{movement: m, current: cur, size: size, adjusted: adjusted})
	}

	if len(batch) == 0 {
		return 0, nil
	}

	durMs := uint16(duration / time.Millisecond)
	payload := make([]byte, 0, 3+3*len(batch))
	payload = append(payload, byte(len(batch)), byte(durMs), byte(durMs>>8))
	for _, p := range batch {
		raw := protocol.AngleToRaw(clampAngle(p.adjusted))
		payload = append(payload, byte(p.movement.Servo), byte(raw), byte(raw>>8))
		c.log.Debug("moving servo",
			"servo", p.movement.Servo, "from", p.current, "to", p.movement.Angle, "duration", duration)
	}

	if err := c.transport.Send(ctx, protocol.CmdServoMove, payload); err != nil {
		return 0, err
	}
	time.Sleep(duration)

	batchServos := make([]Servo, len(batch))
	for i, p := range batch {
		batchServos[i] = p.movement.Servo
	}
	achieved, err := c.GetPositions(ctx, batchServos...)
	if err != nil {
		return 0, err
	}

	var queue []Movement
	for _, p := range batch {
		angle, ok := achieved[p.movement.Servo]
		if !ok {
			c.log.Warn("no achieved position reported", "servo", p.movement.Servo)
			continue
		}

		// Error is measured against the pre-calibration target.
		posErr := angle - p.movement.Angle
		c.log.Debug("movement result", "servo", p.movement.Servo, "error", posErr)

		if c.calibration.collecting && !retrying {
			c.calibration.collect(p.movement.Servo, p.size, posErr)
		}

		if math.Abs(posErr) <= retryTolerance {
			continue
		}
		if angle == p.current {
			// No motion at all despite a command: mechanically stuck
			// or disconnected. Retrying would loop forever.
			c.log.Warn("servo did not move, not retrying", "servo", p.movement.Servo)
			continue
		}
		queue = append(queue, p.movement)
	}

	if len(queue) == 0 {
		return 0, nil
	}
	if depth == 0 {
		return 0, fmt.Errorf("%w: %d servos still unconverged", ErrRetryLimit, len(queue))
	}

	retries, err := c.converge(ctx, queue, depth-1, true)
	return 1 + retries, err
}

// StartCollectingData clears prior observations and begins recording
// (movement size, error) pairs; calibration corrections are suspended
// while collecting.
func (c *Controller) StartCollectingData() {
	c.calibration.startCollecting()
	c.log.Info("started collecting calibration data")
}

// CalculateCalibration leaves collection mode and recomputes every
// servo's correction from the collected observations.
func (c *Controller) CalculateCalibration() {
	c.calibration.finalize()
	c.log.Info("calibration calculated from collected data")
	for _, s := range Servos() {
		cal := c.calibration.calibrations[s]
		c.log.Info("servo calibration",
			"servo", s, "positive_pct", cal.Positive, "negative_pct", cal.Negative)
	}
}

// Collecting reports whether observation collection is active.
func (c *Controller) Collecting() bool {
	return c.calibration.collecting
}

// CalibrationStatus returns a copy of the current per-servo corrections.
func (c *Controller) CalibrationStatus() map[Servo]ServoCalibration {
	status := make(map[Servo]ServoCalibration, len(c.calibration.calibrations))
	for s, cal := range c.calibration.calibrations {
		status[s] = cal
	}
	return status
}

func moveDuration(movementSize float64) time.Duration {
	ms := math.Round(math.Abs(movementSize) * millisecondsPerDegree)
	d := time.Duration(ms) * time.Millisecond
	if d < minMoveDuration {
		return minMoveDuration
	}
	return d
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
