package xarm

import "math"

// ServoCalibration holds the learned correction for one servo: a signed
// percentage applied to future movement magnitude in each direction.
type ServoCalibration struct {
	Positive float64 // adjustment pct for movements toward larger angles
	Negative float64 // adjustment pct for movements toward smaller angles
}

// Observation is one (movement size, signed error) measurement recorded
// while collecting calibration data. Size is always non-negative.
type Observation struct {
	Size  float64
	Error float64
}

// movementData accumulates observations per direction for one servo.
type movementData struct {
	positive []Observation
	negative []Observation
}

// calibrationState is the Controller-owned calibration model: the
// current per-servo corrections, the collection-mode flag, and the
// observations gathered while collecting.
type calibrationState struct {
	calibrations map[Servo]ServoCalibration
	collecting   bool
	observations map[Servo]*movementData
}

func newCalibrationState() *calibrationState {
	c := &calibrationState{
		calibrations: make(map[Servo]ServoCalibration, len(Servos())),
		observations: make(map[Servo]*movementData, len(Servos())),
	}
	for _, s := range Servos() {
		c.calibrations[s] = ServoCalibration{}
		c.observations[s] = &movementData{}
	}
	return c
}

// startCollecting clears prior observations and enters collection mode.
func (c *calibrationState) startCollecting() {
	c.collecting = true
	for _, s := range Servos() {
		c.observations[s] = &movementData{}
	}
}

// collect records one observation while in collection mode. Movements
// toward smaller angles are stored with their absolute magnitude.
func (c *calibrationState) collect(servo Servo, movementSize, signedError float64) {
	if !c.collecting {
		return
	}
	data, ok := c.observations[servo]
	if !ok {
		return
	}
	if movementSize > 0 {
		data.positive = append(data.positive, Observation{Size: movementSize, Error: signedError})
	} else {
		data.negative = append(data.negative, Observation{Size: math.Abs(movementSize), Error: signedError})
	}
}

// finalize leaves collection mode and recomputes every servo's
// calibration from the observations gathered so far.
func (c *calibrationState) finalize() {
	c.collecting = false
	for _, s := range Servos() {
		data := c.observations[s]
		c.calibrations[s] = deriveCalibration(data.positive, data.negative)
	}
}

// adjustment returns the directional percentage for a pending movement.
func (c *calibrationState) adjustment(servo Servo, movementSize float64) float64 {
	cal := c.calibrations[servo]
	if movementSize > 0 {
		return cal.Positive
	}
	return cal.Negative
}

// deriveCalibration converts raw observations into directional
// percentage adjustments. Raw error/size ratios are noisy, and large
// average errors systematically overshoot when amplified, so each
// direction is filtered for outliers and then scaled inversely to the
// magnitude of the surviving average.
func deriveCalibration(positive, negative []Observation) ServoCalibration {
	return ServoCalibration{
		Positive: directionalAdjustment(positive),
		Negative: directionalAdjustment(negative),
	}
}

func directionalAdjustment(observations []Observation) float64 {
	ratios := filterOutliers(observations)
	if len(ratios) == 0 {
		return 0
	}

	var sum float64
	for _, r := range ratios {
		sum += r
	}
	avg := sum / float64(len(ratios))

	return avg * scalingFactor(avg)
}

// filterOutliers computes the error/size ratio of each observation and
// discards ratios further than two population standard deviations from
// the mean.
func filterOutliers(observations []Observation) []float64 {
	if len(observations) == 0 {
		return nil
	}

	ratios := make([]float64, len(observations))
	for i, o := range observations {
		ratios[i] = o.Error / o.Size
	}

	var sum float64
	for _, r := range ratios {
		sum += r
	}
	mean := sum / float64(len(ratios))

	var variance float64
	for _, r := range ratios {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(ratios))
	stdDev := math.Sqrt(variance)

	kept := ratios[:0]
	for _, r := range ratios {
		if math.Abs(r-mean) <= 2*stdDev {
			kept = append(kept, r)
		}
	}
	return kept
}

// scalingFactor converts an average ratio into a percentage multiplier.
// Larger average errors get smaller amplification to avoid overshoot.
func scalingFactor(avg float64) float64 {
	switch {
	case math.Abs(avg) > 0.5:
		return 5.0
	case math.Abs(avg) > 0.2:
		return 7.0
	default:
		return 10.0
	}
}
