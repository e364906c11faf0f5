package db

import (
	"fmt"
	"time"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/fusion"
)

// FilterRun is one persisted filter session.
type FilterRun struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	StepIntervalMs int64     `json:"step_interval_ms"`
	AccelNoise     float64   `json:"accel_noise"`
	IMUNoise       float64   `json:"imu_noise"`
	GPSNoise       float64   `json:"gps_noise"`
	Steps          int       `json:"steps"`
}

// FilterEstimate is one persisted predict/update cycle.
type FilterEstimate struct {
	RunID        string  `json:"run_id"`
	Step         int     `json:"step"`
	Accel        float64 `json:"accel"`
	GPS          float64 `json:"gps"`
	PredictedPos float64 `json:"predicted_pos"`
	PredictedVel float64 `json:"predicted_vel"`
	Innovation   float64 `json:"innovation"`
	GainPos      float64 `json:"gain_pos"`
	GainVel      float64 `json:"gain_vel"`
	Pos          float64 `json:"pos"`
	Vel          float64 `json:"vel"`
}

// StartFilterRun records a new filter session.
func (db *DB) StartFilterRun(run FilterRun) error {
	_, err := db.Exec(
		`INSERT INTO filter_runs (
			run_id, started_at, step_interval_ms, accel_noise, imu_noise, gps_noise, steps
		) VALUES (?, ?, ?, ?, ?, ?, 0)`,
		run.RunID, run.StartedAt.UTC(), run.StepIntervalMs,
		run.AccelNoise, run.IMUNoise, run.GPSNoise,
	)
	if err != nil {
		return fmt.Errorf("insert filter run: %w", err)
	}
	return nil
}

// RecordEstimate persists one filter step and bumps the run's step count.
func (db *DB) RecordEstimate(runID string, rec fusion.StepRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin estimate transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO filter_estimates (
			run_id, step, accel, gps, predicted_pos, predicted_vel,
			innovation, gain_pos, gain_vel, pos, vel
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.Step, rec.Accel, rec.GPS, rec.PredictedPos, rec.PredictedVel,
		rec.Innovation, rec.GainPos, rec.GainVel, rec.Pos, rec.Vel,
	)
	if err != nil {
		return fmt.Errorf("insert estimate: %w", err)
	}

	if _, err := tx.Exec(
		"UPDATE filter_runs SET steps = steps + 1 WHERE run_id = ?", runID,
	); err != nil {
		return fmt.Errorf("bump run step count: %w", err)
	}

	return tx.Commit()
}

// FilterRuns returns the most recent filter sessions, newest first.
func (db *DB) FilterRuns(limit int) ([]FilterRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT run_id, started_at, step_interval_ms, accel_noise, imu_noise, gps_noise, steps
		FROM filter_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []FilterRun
	for rows.Next() {
		var r FilterRun
		if err := rows.Scan(
			&r.RunID, &r.StartedAt, &r.StepIntervalMs,
			&r.AccelNoise, &r.IMUNoise, &r.GPSNoise, &r.Steps,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Estimates returns the per-step estimates for one filter run in step
// order.
func (db *DB) Estimates(runID string) ([]FilterEstimate, error) {
	rows, err := db.Query(
		`SELECT run_id, step, accel, gps, predicted_pos, predicted_vel,
			innovation, gain_pos, gain_vel, pos, vel
		FROM filter_estimates WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var estimates []FilterEstimate
	for rows.Next() {
		var e FilterEstimate
		if err := rows.Scan(
			&e.RunID, &e.Step, &e.Accel, &e.GPS, &e.PredictedPos, &e.PredictedVel,
			&e.Innovation, &e.GainPos, &e.GainVel, &e.Pos, &e.Vel,
		); err != nil {
			return nil, err
		}
		estimates = append(estimates, e)
	}
	return estimates, rows.Err()
}
