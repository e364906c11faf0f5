package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/dataset"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/fusion"
)

const testMigrationsDir = "../../migrations"

// setupTestDB creates a migrated database in a temp directory.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.MigrateUp(testMigrationsDir); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	return db
}

func TestMigrateUpAndVersion(t *testing.T) {
	db := setupTestDB(t)

	version, dirty, err := db.MigrateVersion(testMigrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1/false", version, dirty)
	}

	// Up again is a no-op.
	if err := db.MigrateUp(testMigrationsDir); err != nil {
		t.Errorf("second MigrateUp failed: %v", err)
	}

	if needed, err := db.CheckAndPromptMigrations(testMigrationsDir); needed || err != nil {
		t.Errorf("CheckAndPromptMigrations = %v/%v, want false/nil", needed, err)
	}
}

func TestMigrateDown(t *testing.T) {
	db := setupTestDB(t)

	if err := db.MigrateDown(testMigrationsDir); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, err := db.MigrateVersion(testMigrationsDir)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("version = %d, want 0 after down", version)
	}
}

func TestGetLatestMigrationVersion(t *testing.T) {
	version, err := GetLatestMigrationVersion(testMigrationsDir)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion failed: %v", err)
	}
	if version < 1 {
		t.Errorf("latest version = %d, want >= 1", version)
	}
}

func TestRecordConversionRun(t *testing.T) {
	db := setupTestDB(t)

	stats := &dataset.RunStats{
		RunID:      "run-1",
		StartedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Duration:   1500 * time.Millisecond,
		TrainFiles: 8,
		ValFiles:   2,
		ClassCounts: map[string]map[string]int{
			"train": {"Car": 12, "Pedestrian": 3},
			"val":   {"Car": 2},
		},
		SkippedObjects: 1,
		MissingImages:  2,
	}

	if err := db.RecordConversionRun(stats); err != nil {
		t.Fatalf("RecordConversionRun failed: %v", err)
	}

	runs, err := db.ConversionRuns(10)
	if err != nil {
		t.Fatalf("ConversionRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.RunID != "run-1" || run.TrainFiles != 8 || run.ValFiles != 2 {
		t.Errorf("run = %+v", run)
	}
	if run.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", run.DurationMs)
	}

	counts, err := db.LabelCounts("run-1")
	if err != nil {
		t.Fatalf("LabelCounts failed: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("label counts = %d, want 3", len(counts))
	}
	// Ordered by split then class title.
	if counts[0].Split != "train" || counts[0].ClassTitle != "Car" || counts[0].Count != 12 {
		t.Errorf("first count = %+v", counts[0])
	}
}

func TestRecordClasses(t *testing.T) {
	db := setupTestDB(t)

	if err := db.RecordClasses(dataset.ClassMap{"car": 0, "pedestrian": 1}); err != nil {
		t.Fatalf("RecordClasses failed: %v", err)
	}

	classes, err := db.Classes()
	if err != nil {
		t.Fatalf("Classes failed: %v", err)
	}
	if len(classes) != 2 || classes["car"] != 0 || classes["pedestrian"] != 1 {
		t.Errorf("classes = %v", classes)
	}

	// Re-recording replaces the previous map.
	if err := db.RecordClasses(dataset.ClassMap{"truck": 3}); err != nil {
		t.Fatalf("RecordClasses failed: %v", err)
	}
	classes, err = db.Classes()
	if err != nil {
		t.Fatalf("Classes failed: %v", err)
	}
	if len(classes) != 1 || classes["truck"] != 3 {
		t.Errorf("classes after replace = %v", classes)
	}
}

func TestFilterRunEstimates(t *testing.T) {
	db := setupTestDB(t)

	run := FilterRun{
		RunID:          "filter-1",
		StartedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		StepIntervalMs: 500,
		AccelNoise:     0.2,
		IMUNoise:       0.05,
		GPSNoise:       1.5,
	}
	if err := db.StartFilterRun(run); err != nil {
		t.Fatalf("StartFilterRun failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		rec := fusion.StepRecord{
			Step:  i,
			Accel: 0.8,
			GPS:   float64(i),
			Pos:   float64(i) * 0.9,
			Vel:   0.4,
		}
		if err := db.RecordEstimate("filter-1", rec); err != nil {
			t.Fatalf("RecordEstimate failed: %v", err)
		}
	}

	runs, err := db.FilterRuns(10)
	if err != nil {
		t.Fatalf("FilterRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Steps != 3 {
		t.Fatalf("runs = %+v, want one run with 3 steps", runs)
	}

	estimates, err := db.Estimates("filter-1")
	if err != nil {
		t.Fatalf("Estimates failed: %v", err)
	}
	if len(estimates) != 3 {
		t.Fatalf("estimates = %d, want 3", len(estimates))
	}
	for i, e := range estimates {
		if e.Step != i {
			t.Errorf("estimate %d out of order: step %d", i, e.Step)
		}
	}
	if estimates[2].Pos != 1.8 {
		t.Errorf("Pos = %f, want 1.8", estimates[2].Pos)
	}

	// Unknown runs return no estimates.
	none, err := db.Estimates("missing")
	if err != nil {
		t.Fatalf("Estimates failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("estimates for unknown run = %d, want 0", len(none))
	}
}

func TestCommands(t *testing.T) {
	db := setupTestDB(t)

	for _, c := range []string{"R=500", "OA", "OP"} {
		if err := db.RecordCommand(c); err != nil {
			t.Fatalf("RecordCommand failed: %v", err)
		}
	}

	commands, err := db.Commands(10)
	if err != nil {
		t.Fatalf("Commands failed: %v", err)
	}
	if len(commands) != 3 {
		t.Errorf("commands = %d, want 3", len(commands))
	}
}
