// Command fusion-server runs the sensor fusion daemon. It monitors the
// navigation board's serial stream, fuses IMU acceleration and GPS
// position through a 1D Kalman filter, persists the estimates to SQLite
// and serves the HTTP API plus admin debug routes.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ashwin-aias/lidar-camera-fusion/api"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/config"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/db"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/fusion"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/monitoring"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/sensormux"
)

func main() {
	devMode := flag.Bool("dev", false, "run with a synthetic sensor board instead of real hardware")
	listenAddr := flag.String("listen", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "fusion.db", "path to the SQLite database")
	migrationsDir := flag.String("migrations", "migrations", "path to the schema migrations directory")
	configPath := flag.String("config", "", "path to a JSON tuning config file")
	portPath := flag.String("port", "/dev/ttyUSB0", "serial port of the navigation board")
	baudRate := flag.Int("baud", 115200, "serial port baud rate")
	flag.Parse()

	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbPath, *migrationsDir)
		return
	}

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		cfg = loaded
	}

	var m sensormux.MuxInterface
	if *devMode {
		log.Printf("Running in dev mode with a synthetic sensor board")
		m = sensormux.NewMockMux(cfg.GetStepInterval(), cfg.GetShuffleSeed())
	} else {
		real, err := sensormux.NewRealMux(*portPath, sensormux.PortOptions{BaudRate: *baudRate})
		if err != nil {
			log.Fatalf("Failed to open sensor port %s: %v", *portPath, err)
		}
		m = real
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if _, err := database.CheckAndPromptMigrations(*migrationsDir); err != nil {
		log.Fatalf("Migration check failed: %v", err)
	}

	if err := m.Initialize(); err != nil {
		log.Fatalf("Failed to initialize sensor board: %v", err)
	}

	filter, err := fusion.NewFilter1D(fusion.FilterConfig{
		DT:                cfg.GetStepInterval().Seconds(),
		AccelProcessNoise: cfg.GetAccelProcessNoise(),
		GPSNoise:          cfg.GetGPSNoise(),
	})
	if err != nil {
		log.Fatalf("Failed to build filter: %v", err)
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
	log.Printf("Started filter run %s", runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// Read lines from the sensor port and fan them out to subscribers.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("sensor monitor stopped: %v", err)
		}
	}()

	// Fuse the subscribed readings into position estimates.
	wg.Add(1)
	go func() {
		defer wg.Done()
		fuseReadings(ctx, m, database, filter, runID)
	}()

	// Serve the HTTP API and admin debug routes.
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		database.AttachAdminRoutes(mux)
		m.AttachAdminRoutes(mux)

		apiMux := api.NewServer(m, database).ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))
		mux.Handle("/", apiMux)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			monitoring.Logf("HTTP %s %s", r.Method, r.URL.Path)
			mux.ServeHTTP(w, r)
		})

		server := &http.Server{Addr: *listenAddr, Handler: handler}
		go func() {
			log.Printf("Listening on %s", *listenAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server stopped: %v", err)
			}
		}()

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown failed: %v", err)
		}
	}()

	wg.Wait()

	if err := m.Close(); err != nil {
		log.Printf("Failed to close sensor mux: %v", err)
	}
}

// fuseReadings pairs the most recent IMU acceleration with each GPS fix,
// advances the filter one step per fix and persists the estimate. Lines
// that are not sensor readings (status output, command echoes) pass
// through untouched.
func fuseReadings(ctx context.Context, m sensormux.MuxInterface, database *db.DB, filter *fusion.Filter1D, runID string) {
	id, lines := m.Subscribe()
	defer m.Unsubscribe(id)

	var accel float64
	var haveAccel bool
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if sensormux.Classify(line) == sensormux.ReadingUnknown {
				continue
			}
			reading, err := sensormux.ParseReading(line)
			if err != nil {
				monitoring.Logf("dropping malformed sensor line: %v", err)
				continue
			}

			switch reading.Kind {
			case sensormux.ReadingIMU:
				accel = reading.Value
				haveAccel = true
			case sensormux.ReadingGPS:
				// A fix before any IMU reading has no acceleration input.
				if !haveAccel {
					continue
				}
				rec := filter.Step(accel, reading.Value)
				if err := database.RecordEstimate(runID, rec); err != nil {
					monitoring.Logf("failed to record estimate: %v", err)
				}
			}
		}
	}
}
