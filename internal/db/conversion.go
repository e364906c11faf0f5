package db

import (
	"fmt"
	"time"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/dataset"
)

// ConversionRun is one persisted dataset conversion run summary.
type ConversionRun struct {
	RunID          string    `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	DurationMs     int64     `json:"duration_ms"`
	TrainFiles     int       `json:"train_files"`
	ValFiles       int       `json:"val_files"`
	SkippedObjects int       `json:"skipped_objects"`
	MissingImages  int       `json:"missing_images"`
	FailedFiles    int       `json:"failed_files"`
}

// LabelCount is one per-split per-class box count for a conversion run.
type LabelCount struct {
	RunID      string `json:"run_id"`
	Split      string `json:"split"`
	ClassTitle string `json:"class_title"`
	Count      int    `json:"count"`
}

// RecordConversionRun persists a conversion run summary with its
// per-class label counts in a single transaction.
func (db *DB) RecordConversionRun(stats *dataset.RunStats) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin conversion run transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO conversion_runs (
			run_id, started_at, duration_ms, train_files, val_files,
			skipped_objects, missing_images, failed_files
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.RunID, stats.StartedAt.UTC(), stats.Duration.Milliseconds(),
		stats.TrainFiles, stats.ValFiles,
		stats.SkippedObjects, stats.MissingImages, stats.FailedFiles,
	)
	if err != nil {
		return fmt.Errorf("insert conversion run: %w", err)
	}

	for split, counts := range stats.ClassCounts {
		for title, count := range counts {
			_, err = tx.Exec(
				`INSERT INTO label_counts (run_id, split, class_title, count) VALUES (?, ?, ?, ?)`,
				stats.RunID, split, title, count,
			)
			if err != nil {
				return fmt.Errorf("insert label count: %w", err)
			}
		}
	}

	return tx.Commit()
}

// ConversionRuns returns the most recent conversion runs, newest first.
func (db *DB) ConversionRuns(limit int) ([]ConversionRun, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT run_id, started_at, duration_ms, train_files, val_files,
			skipped_objects, missing_images, failed_files
		FROM conversion_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []ConversionRun
	for rows.Next() {
		var r ConversionRun
		if err := rows.Scan(
			&r.RunID, &r.StartedAt, &r.DurationMs, &r.TrainFiles, &r.ValFiles,
			&r.SkippedObjects, &r.MissingImages, &r.FailedFiles,
		); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LabelCounts returns the per-class counts for one conversion run.
func (db *DB) LabelCounts(runID string) ([]LabelCount, error) {
	rows, err := db.Query(
		`SELECT run_id, split, class_title, count FROM label_counts
		WHERE run_id = ? ORDER BY split, class_title`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []LabelCount
	for rows.Next() {
		var c LabelCount
		if err := rows.Scan(&c.RunID, &c.Split, &c.ClassTitle, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// RecordClasses replaces the discovered annotation class titles and
// their assigned YOLO IDs.
func (db *DB) RecordClasses(classes dataset.ClassMap) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin class transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM dataset_classes"); err != nil {
		return fmt.Errorf("clear dataset classes: %w", err)
	}
	for title, id := range classes {
		if _, err := tx.Exec(
			"INSERT INTO dataset_classes (class_title, class_id) VALUES (?, ?)",
			title, id,
		); err != nil {
			return fmt.Errorf("insert class %q: %w", title, err)
		}
	}

	return tx.Commit()
}

// Classes returns the stored class map.
func (db *DB) Classes() (dataset.ClassMap, error) {
	rows, err := db.Query("SELECT class_title, class_id FROM dataset_classes")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	classes := dataset.ClassMap{}
	for rows.Next() {
		var title string
		var id int
		if err := rows.Scan(&title, &id); err != nil {
			return nil, err
		}
		classes[title] = id
	}
	return classes, rows.Err()
}
