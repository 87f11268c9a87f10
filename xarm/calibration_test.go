package xarm

import (
	"math"
	"testing"
)

func obs(size, err float64) Observation {
	return Observation{Size: size, Error: err}
}

func TestDeriveCalibration_Empty(t *testing.T) {
	cal := deriveCalibration(nil, nil)
	if cal.Positive != 0 || cal.Negative != 0 {
		t.Errorf("empty observations: got %+v, want zero adjustments", cal)
	}
}

func TestDeriveCalibration_OutlierRejected(t *testing.T) {
	// Six consistent ratios of 0.1 and one wild ratio of 5.0. The
	// outlier sits beyond two population standard deviations and must
	// not contribute to the mean: the survivors average 0.1, scaled by
	// 10 into a 1% adjustment.
	positive := []Observation{
		obs(10, 1), obs(10, 1), obs(10, 1),
		obs(10, 1), obs(10, 1), obs(10, 1),
		obs(10, 50),
	}

	cal := deriveCalibration(positive, nil)
	if math.Abs(cal.Positive-1.0) > 1e-9 {
		t.Errorf("Positive: got %v, want 1.0 (outlier excluded)", cal.Positive)
	}
	if cal.Negative != 0 {
		t.Errorf("Negative: got %v, want 0", cal.Negative)
	}
}

func TestDeriveCalibration_ScalingBands(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"large error uses 5x", 0.6, 3.0},
		{"medium error uses 7x", 0.3, 2.1},
		{"small error uses 10x", 0.1, 1.0},
		{"band boundary 0.2 uses 10x", 0.2, 2.0},
		{"negative ratio keeps sign", -0.6, -3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Identical ratios: zero deviation, nothing filtered.
			positive := []Observation{
				obs(10, 10*tt.ratio), obs(20, 20*tt.ratio), obs(5, 5*tt.ratio),
			}
			cal := deriveCalibration(positive, nil)
			if math.Abs(cal.Positive-tt.want) > 1e-9 {
				t.Errorf("Positive: got %v, want %v", cal.Positive, tt.want)
			}
		})
	}
}

func TestCalibrationState_CollectByDirection(t *testing.T) {
	c := newCalibrationState()
	c.startCollecting()

	c.collect(WristTilt, 10, 1.5)
	c.collect(WristTilt, -8, -0.5)

	data := c.observations[WristTilt]
	if len(data.positive) != 1 || len(data.negative) != 1 {
		t.Fatalf("observations: got %d positive, %d negative, want 1 each",
			len(data.positive), len(data.negative))
	}
	if data.negative[0].Size != 8 {
		t.Errorf("negative size stored as %v, want absolute magnitude 8", data.negative[0].Size)
	}
}

func TestCalibrationState_IgnoresWhenNotCollecting(t *testing.T) {
	c := newCalibrationState()

	c.collect(WristTilt, 10, 1.5)
	if len(c.observations[WristTilt].positive) != 0 {
		t.Error("observation recorded outside collection mode")
	}
}

func TestCalibrationState_StartClearsObservations(t *testing.T) {
	c := newCalibrationState()
	c.startCollecting()
	c.collect(WristTilt, 10, 1.5)

	c.startCollecting()
	if len(c.observations[WristTilt].positive) != 0 {
		t.Error("restart did not clear prior observations")
	}
}

func TestCalibrationState_Adjustment(t *testing.T) {
	c := newCalibrationState()
	c.calibrations[ElbowTilt] = ServoCalibration{Positive: 2.5, Negative: -1.5}

	if got := c.adjustment(ElbowTilt, 10); got != 2.5 {
		t.Errorf("positive adjustment: got %v, want 2.5", got)
	}
	if got := c.adjustment(ElbowTilt, -10); got != -1.5 {
		t.Errorf("negative adjustment: got %v, want -1.5", got)
	}
}

func TestCalibrationState_FinalizeRecomputesAll(t *testing.T) {
	c := newCalibrationState()
	c.startCollecting()
	c.collect(BaseSpin, 10, 1) // ratio 0.1, scaled by 10

	c.finalize()
	if c.collecting {
		t.Error("still collecting after finalize")
	}
	if got := c.calibrations[BaseSpin].Positive; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("BaseSpin positive: got %v, want 1.0", got)
	}
	if got := c.calibrations[ClawGrip]; got != (ServoCalibration{}) {
		t.Errorf("ClawGrip without observations: got %+v, want zero", got)
	}
}
