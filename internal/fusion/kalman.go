// Package fusion implements state estimation over the toolkit's sensor
// streams: a 1D position/velocity Kalman filter driven by IMU
// acceleration and corrected by GPS position, and a constant-velocity
// multi-object tracker for label-box detections.
package fusion

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FilterConfig holds the 1D filter's tuning parameters.
type FilterConfig struct {
	// DT is the step interval in seconds.
	DT float64
	// AccelProcessNoise is the process noise standard deviation applied
	// through the kinematic model (sigma_a).
	AccelProcessNoise float64
	// GPSNoise is the measurement noise standard deviation (sigma_gps).
	GPSNoise float64
	// InitialVariance seeds the diagonal of the covariance matrix.
	InitialVariance float64
}

// DefaultFilterConfig returns the demo tuning: half-second steps, a
// modest process noise allowance and a 1.5m GPS sigma.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		DT:                0.5,
		AccelProcessNoise: 0.2,
		GPSNoise:          1.5,
		InitialVariance:   4.0,
	}
}

// StepRecord captures one predict/update cycle for tracing and storage.
type StepRecord struct {
	Step         int
	Accel        float64 // IMU acceleration input
	PredictedPos float64
	PredictedVel float64
	GPS          float64 // GPS position measurement
	Innovation   float64
	GainPos      float64
	GainVel      float64
	Pos          float64 // updated position estimate
	Vel          float64 // updated velocity estimate
}

// Filter1D is a two-state (position, velocity) Kalman filter. IMU
// acceleration enters the prediction as a control input; GPS position is
// the only measurement.
type Filter1D struct {
	cfg FilterConfig

	x *mat.VecDense // state [pos, vel]
	p *mat.Dense    // covariance 2x2

	f *mat.Dense    // state transition
	b *mat.VecDense // control input
	q *mat.Dense    // process noise
	r float64       // measurement variance

	steps int
}

// NewFilter1D builds a filter from the given configuration.
func NewFilter1D(cfg FilterConfig) (*Filter1D, error) {
	if cfg.DT <= 0 {
		return nil, fmt.Errorf("step interval must be positive, got %f", cfg.DT)
	}
	if cfg.GPSNoise <= 0 {
		return nil, fmt.Errorf("gps noise must be positive, got %f", cfg.GPSNoise)
	}
	if cfg.InitialVariance <= 0 {
		cfg.InitialVariance = 4.0
	}

	dt := cfg.DT
	sa2 := cfg.AccelProcessNoise * cfg.AccelProcessNoise

	return &Filter1D{
		cfg: cfg,
		x:   mat.NewVecDense(2, nil),
		p: mat.NewDense(2, 2, []float64{
			cfg.InitialVariance, 0,
			0, cfg.InitialVariance,
		}),
		f: mat.NewDense(2, 2, []float64{
			1, dt,
			0, 1,
		}),
		b: mat.NewVecDense(2, []float64{0.5 * dt * dt, dt}),
		q: mat.NewDense(2, 2, []float64{
			0.25 * dt * dt * dt * dt * sa2, 0.5 * dt * dt * dt * sa2,
			0.5 * dt * dt * dt * sa2, dt * dt * sa2,
		}),
		r: cfg.GPSNoise * cfg.GPSNoise,
	}, nil
}

// State returns the current position and velocity estimate.
func (f *Filter1D) State() (pos, vel float64) {
	return f.x.AtVec(0), f.x.AtVec(1)
}

// Covariance returns a copy of the current covariance matrix.
func (f *Filter1D) Covariance() *mat.Dense {
	return mat.DenseCopyOf(f.p)
}

// Predict advances the state using the kinematic model with the measured
// acceleration as control input: x' = F x + B a, P' = F P Fᵀ + Q.
func (f *Filter1D) Predict(accel float64) (pos, vel float64) {
	var fx mat.VecDense
	fx.MulVec(f.f, f.x)
	f.x.AddScaledVec(&fx, accel, f.b)

	var fp, fpft mat.Dense
	fp.Mul(f.f, f.p)
	fpft.Mul(&fp, f.f.T())
	f.p.Add(&fpft, f.q)

	return f.x.AtVec(0), f.x.AtVec(1)
}

// Update folds a GPS position measurement into the state. Returns the
// innovation and the Kalman gain applied to position and velocity.
func (f *Filter1D) Update(gpsPos float64) (innovation, gainPos, gainVel float64) {
	// H = [1 0]: the measurement extracts position only, so the
	// innovation covariance S collapses to a scalar.
	innovation = gpsPos - f.x.AtVec(0)
	s := f.p.At(0, 0) + f.r

	gainPos = f.p.At(0, 0) / s
	gainVel = f.p.At(1, 0) / s

	f.x.SetVec(0, f.x.AtVec(0)+gainPos*innovation)
	f.x.SetVec(1, f.x.AtVec(1)+gainVel*innovation)

	// P' = (I - K H) P
	ikh := mat.NewDense(2, 2, []float64{
		1 - gainPos, 0,
		-gainVel, 1,
	})
	var newP mat.Dense
	newP.Mul(ikh, f.p)
	f.p.CloneFrom(&newP)

	return innovation, gainPos, gainVel
}

// Step runs one predict/update cycle and returns the full trace record.
func (f *Filter1D) Step(accel, gpsPos float64) StepRecord {
	rec := StepRecord{
		Step:  f.steps,
		Accel: accel,
		GPS:   gpsPos,
	}

	rec.PredictedPos, rec.PredictedVel = f.Predict(accel)
	rec.Innovation, rec.GainPos, rec.GainVel = f.Update(gpsPos)
	rec.Pos, rec.Vel = f.State()

	f.steps++
	return rec
}

// Run processes paired IMU and GPS series through a fresh filter cycle
// sequence and returns the per-step records.
func (f *Filter1D) Run(imu, gps []float64) ([]StepRecord, error) {
	if len(imu) != len(gps) {
		return nil, fmt.Errorf("sensor series length mismatch: %d IMU vs %d GPS", len(imu), len(gps))
	}

	records := make([]StepRecord, len(imu))
	for i := range imu {
		records[i] = f.Step(imu[i], gps[i])
	}
	return records, nil
}
