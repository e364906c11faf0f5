// Command kalman runs the 1D IMU+GPS fusion filter over a simulated
// accelerate/cruise/brake drive and prints the per-step trace. It can
// save position and velocity plots and record the run in the history
// database.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/config"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/db"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/fusion"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/report"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/security"
)

func main() {
	seconds := flag.Float64("seconds", 60, "simulated drive duration in seconds")
	configPath := flag.String("config", "", "path to a JSON tuning config file")
	plotPath := flag.String("plot", "", "save a position estimate plot PNG to this path")
	velocityPlotPath := flag.String("velocity-plot", "", "save a velocity estimate plot PNG to this path")
	dbPath := flag.String("db", "", "record the run in this SQLite database")
	migrationsDir := flag.String("migrations", "migrations", "path to the schema migrations directory")
	quiet := flag.Bool("q", false, "suppress the per-step trace")
	flag.Parse()

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		cfg = loaded
	}

	dt := cfg.GetStepInterval().Seconds()
	truth, err := fusion.SimulateTruth(*seconds, dt)
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
	imu, gps := fusion.MakeSensors(truth, cfg.GetIMUNoise(), cfg.GetGPSNoise(), cfg.GetShuffleSeed())

	filter, err := fusion.NewFilter1D(fusion.FilterConfig{
		DT:                dt,
		AccelProcessNoise: cfg.GetAccelProcessNoise(),
		GPSNoise:          cfg.GetGPSNoise(),
	})
	if err != nil {
		log.Fatalf("Failed to build filter: %v", err)
	}

	records, err := filter.Run(imu, gps)
	if err != nil {
		log.Fatalf("Filter run failed: %v", err)
	}

	if !*quiet {
		fmt.Printf("%4s %8s %9s %9s %9s %9s %9s\n",
			"step", "accel", "gps", "pred_pos", "innov", "pos", "vel")
		for _, rec := range records {
			fmt.Printf("%4d %8.3f %9.3f %9.3f %9.3f %9.3f %9.3f\n",
				rec.Step, rec.Accel, rec.GPS, rec.PredictedPos, rec.Innovation, rec.Pos, rec.Vel)
		}
	}

	final := records[len(records)-1]
	fmt.Printf("Final estimate after %d steps: pos %.3f m (truth %.3f), vel %.3f m/s (truth %.3f)\n",
		len(records), final.Pos, truth.Pos[len(truth.Pos)-1], final.Vel, truth.Vel[len(truth.Vel)-1])

	if *plotPath != "" {
		if err := security.ValidateExportPath(*plotPath); err != nil {
			log.Fatalf("Unsafe plot path: %v", err)
		}
		if err := report.RenderEstimatePlot(*plotPath, records, truth.Pos); err != nil {
			log.Fatalf("Failed to render estimate plot: %v", err)
		}
		fmt.Printf("Wrote %s\n", *plotPath)
	}
	if *velocityPlotPath != "" {
		if err := security.ValidateExportPath(*velocityPlotPath); err != nil {
			log.Fatalf("Unsafe plot path: %v", err)
		}
		if err := report.RenderVelocityPlot(*velocityPlotPath, records); err != nil {
			log.Fatalf("Failed to render velocity plot: %v", err)
		}
		fmt.Printf("Wrote %s\n", *velocityPlotPath)
	}

	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()
		if _, err := database.CheckAndPromptMigrations(*migrationsDir); err != nil {
			log.Fatalf("Migration check failed: %v", err)
		}

		runID := uuid.NewString()
		if err := database.StartFilterRun(db.FilterRun{
			RunID:          runID,
			StartedAt:      time.Now(),
			StepIntervalMs: cfg.GetStepInterval().Milliseconds(),
			AccelNoise:     cfg.GetAccelProcessNoise(),
			IMUNoise:       cfg.GetIMUNoise(),
			GPSNoise:       cfg.GetGPSNoise(),
		}); err != nil {
			log.Fatalf("Failed to start filter run: %v", err)
		}
		for _, rec := range records {
			if err := database.RecordEstimate(runID, rec); err != nil {
				log.Fatalf("Failed to record estimate: %v", err)
			}
		}
		fmt.Printf("Recorded run %s in %s\n", runID, *dbPath)
	}
}
