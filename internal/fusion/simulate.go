package fusion

import (
	"fmt"
	"math/rand"
)

// Truth holds a simulated vehicle trajectory sampled at a fixed step.
type Truth struct {
	T   []float64 // elapsed seconds
	Pos []float64
	Vel []float64
	Acc []float64
}

// accelProfile returns the commanded acceleration for a simulated run:
// accelerate for the first third, cruise, then brake.
func accelProfile(t, total float64) float64 {
	switch {
	case t < total/3:
		return 0.8
	case t < 2*total/3:
		return 0.0
	default:
		return -0.6
	}
}

// SimulateTruth integrates the acceleration profile into a ground-truth
// trajectory with the given duration and step interval.
func SimulateTruth(totalSeconds, dt float64) (*Truth, error) {
	if totalSeconds <= 0 || dt <= 0 {
		return nil, fmt.Errorf("duration and step must be positive, got %f/%f", totalSeconds, dt)
	}

	steps := int(totalSeconds / dt)
	truth := &Truth{
		T:   make([]float64, steps),
		Pos: make([]float64, steps),
		Vel: make([]float64, steps),
		Acc: make([]float64, steps),
	}

	var pos, vel float64
	for i := 0; i < steps; i++ {
		t := float64(i) * dt
		acc := accelProfile(t, totalSeconds)

		pos += vel*dt + 0.5*acc*dt*dt
		vel += acc * dt

		truth.T[i] = t
		truth.Pos[i] = pos
		truth.Vel[i] = vel
		truth.Acc[i] = acc
	}

	return truth, nil
}

// MakeSensors derives noisy IMU acceleration and GPS position readings
// from a ground-truth trajectory. The seed makes runs reproducible.
func MakeSensors(truth *Truth, imuNoise, gpsNoise float64, seed int64) (imu, gps []float64) {
	rng := rand.New(rand.NewSource(seed))

	imu = make([]float64, len(truth.Acc))
	gps = make([]float64, len(truth.Pos))
	for i := range truth.Acc {
		imu[i] = truth.Acc[i] + rng.NormFloat64()*imuNoise
		gps[i] = truth.Pos[i] + rng.NormFloat64()*gpsNoise
	}
	return imu, gps
}
