package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/params endpoint so the same JSON can be
// used for both startup configuration and runtime updates.
type TuningConfig struct {
	// Dataset conversion params
	SplitFraction *float64 `json:"split_fraction,omitempty"`
	ShuffleSeed   *int64   `json:"shuffle_seed,omitempty"`
	IOUThreshold  *float64 `json:"iou_threshold,omitempty"`
	MinBoxNorm    *float64 `json:"min_box_norm,omitempty"`

	// Annotator params
	SampleSize *int `json:"sample_size,omitempty"`
	LineWidth  *int `json:"line_width,omitempty"`

	// Filter params
	StepInterval      *string  `json:"step_interval,omitempty"` // duration string like "500ms"
	AccelProcessNoise *float64 `json:"accel_process_noise,omitempty"`
	IMUNoise          *float64 `json:"imu_noise,omitempty"`
	GPSNoise          *float64 `json:"gps_noise,omitempty"`

	// Tracker params (optional)
	MaxTracks             *int     `json:"max_tracks,omitempty"`
	GatingDistanceSquared *float64 `json:"gating_distance_squared,omitempty"`
	ProcessNoisePos       *float64 `json:"process_noise_pos,omitempty"`
	ProcessNoiseVel       *float64 `json:"process_noise_vel,omitempty"`
	MeasurementNoise      *float64 `json:"measurement_noise,omitempty"`
	HitsToConfirm         *int     `json:"hits_to_confirm,omitempty"`
	MaxMisses             *int     `json:"max_misses,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// with its default value. Useful for writing a fresh defaults file.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		SplitFraction:         ptrFloat64(0.8),
		ShuffleSeed:           ptrInt64(1),
		IOUThreshold:          ptrFloat64(0.8),
		MinBoxNorm:            ptrFloat64(0.001),
		SampleSize:            ptrInt(100),
		LineWidth:             ptrInt(2),
		StepInterval:          ptrString("500ms"),
		AccelProcessNoise:     ptrFloat64(0.2),
		IMUNoise:              ptrFloat64(0.05),
		GPSNoise:              ptrFloat64(1.5),
		MaxTracks:             ptrInt(100),
		GatingDistanceSquared: ptrFloat64(9.21),
		ProcessNoisePos:       ptrFloat64(1e-4),
		ProcessNoiseVel:       ptrFloat64(5e-4),
		MeasurementNoise:      ptrFloat64(1e-4),
		HitsToConfirm:         ptrInt(3),
		MaxMisses:             ptrInt(3),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SplitFraction != nil {
		if *c.SplitFraction <= 0 || *c.SplitFraction >= 1 {
			return fmt.Errorf("split_fraction must be between 0 and 1 exclusive, got %f", *c.SplitFraction)
		}
	}

	if c.IOUThreshold != nil {
		if *c.IOUThreshold <= 0 || *c.IOUThreshold > 1 {
			return fmt.Errorf("iou_threshold must be in (0, 1], got %f", *c.IOUThreshold)
		}
	}

	if c.SampleSize != nil && *c.SampleSize < 0 {
		return fmt.Errorf("sample_size must be non-negative, got %d", *c.SampleSize)
	}

	if c.LineWidth != nil && *c.LineWidth < 1 {
		return fmt.Errorf("line_width must be at least 1, got %d", *c.LineWidth)
	}

	if c.StepInterval != nil && *c.StepInterval != "" {
		if _, err := time.ParseDuration(*c.StepInterval); err != nil {
			return fmt.Errorf("invalid step_interval '%s': %w", *c.StepInterval, err)
		}
	}

	for name, v := range map[string]*float64{
		"accel_process_noise": c.AccelProcessNoise,
		"imu_noise":           c.IMUNoise,
		"gps_noise":           c.GPSNoise,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	if c.MaxTracks != nil && *c.MaxTracks < 1 {
		return fmt.Errorf("max_tracks must be at least 1, got %d", *c.MaxTracks)
	}

	return nil
}

// GetSplitFraction returns the split_fraction value or the default.
func (c *TuningConfig) GetSplitFraction() float64 {
	if c.SplitFraction == nil {
		return 0.8
	}
	return *c.SplitFraction
}

// GetShuffleSeed returns the shuffle_seed value or the default.
func (c *TuningConfig) GetShuffleSeed() int64 {
	if c.ShuffleSeed == nil {
		return 1
	}
	return *c.ShuffleSeed
}

// GetIOUThreshold returns the iou_threshold value or the default.
func (c *TuningConfig) GetIOUThreshold() float64 {
	if c.IOUThreshold == nil {
		return 0.8
	}
	return *c.IOUThreshold
}

// GetMinBoxNorm returns the min_box_norm value or the default.
func (c *TuningConfig) GetMinBoxNorm() float64 {
	if c.MinBoxNorm == nil {
		return 0.001
	}
	return *c.MinBoxNorm
}

// GetSampleSize returns the sample_size value or the default.
func (c *TuningConfig) GetSampleSize() int {
	if c.SampleSize == nil {
		return 100
	}
	return *c.SampleSize
}

// GetLineWidth returns the line_width value or the default.
func (c *TuningConfig) GetLineWidth() int {
	if c.LineWidth == nil {
		return 2
	}
	return *c.LineWidth
}

// GetStepInterval parses and returns the StepInterval as a time.Duration.
func (c *TuningConfig) GetStepInterval() time.Duration {
	if c.StepInterval == nil || *c.StepInterval == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.StepInterval)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetAccelProcessNoise returns the accel_process_noise value or the default.
func (c *TuningConfig) GetAccelProcessNoise() float64 {
	if c.AccelProcessNoise == nil {
		return 0.2
	}
	return *c.AccelProcessNoise
}

// GetIMUNoise returns the imu_noise value or the default.
func (c *TuningConfig) GetIMUNoise() float64 {
	if c.IMUNoise == nil {
		return 0.05
	}
	return *c.IMUNoise
}

// GetGPSNoise returns the gps_noise value or the default.
func (c *TuningConfig) GetGPSNoise() float64 {
	if c.GPSNoise == nil {
		return 1.5
	}
	return *c.GPSNoise
}

// GetMaxTracks returns the max_tracks value or the default.
func (c *TuningConfig) GetMaxTracks() int {
	if c.MaxTracks == nil {
		return 100
	}
	return *c.MaxTracks
}

// GetGatingDistanceSquared returns the gating_distance_squared value or the default.
func (c *TuningConfig) GetGatingDistanceSquared() float64 {
	if c.GatingDistanceSquared == nil {
		return 9.21
	}
	return *c.GatingDistanceSquared
}

// GetProcessNoisePos returns the process_noise_pos value or the default.
func (c *TuningConfig) GetProcessNoisePos() float64 {
	if c.ProcessNoisePos == nil {
		return 1e-4
	}
	return *c.ProcessNoisePos
}

// GetProcessNoiseVel returns the process_noise_vel value or the default.
func (c *TuningConfig) GetProcessNoiseVel() float64 {
	if c.ProcessNoiseVel == nil {
		return 5e-4
	}
	return *c.ProcessNoiseVel
}

// GetMeasurementNoise returns the measurement_noise value or the default.
func (c *TuningConfig) GetMeasurementNoise() float64 {
	if c.MeasurementNoise == nil {
		return 1e-4
	}
	return *c.MeasurementNoise
}

// GetHitsToConfirm returns the hits_to_confirm value or the default.
func (c *TuningConfig) GetHitsToConfirm() int {
	if c.HitsToConfirm == nil {
		return 3
	}
	return *c.HitsToConfirm
}

// GetMaxMisses returns the max_misses value or the default.
func (c *TuningConfig) GetMaxMisses() int {
	if c.MaxMisses == nil {
		return 3
	}
	return *c.MaxMisses
}
