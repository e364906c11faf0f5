// Command dataset converts Supervisely-style KITTI annotation exports
// into a YOLO training layout and reports on the results.
//
// Subcommands:
//
//	convert    convert an annotation export into YOLO labels and images
//	classes    list the class titles present in an annotation export
//	validate   check converted label files for degenerate and duplicate boxes
//	report     render an HTML chart of a recorded conversion run
//	track      replay label files through the detection tracker
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/config"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/dataset"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/db"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/fsutil"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/fusion"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/report"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/security"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "convert":
		runConvert(os.Args[2:])
	case "classes":
		runClasses(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "track":
		runTrack(os.Args[2:])
	case "help":
		usage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Dataset conversion toolkit")
	fmt.Println()
	fmt.Println("Usage: dataset <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  convert     Convert an annotation export into a YOLO layout")
	fmt.Println("  classes     List class titles found in an annotation export")
	fmt.Println("  validate    Check label files for degenerate and duplicate boxes")
	fmt.Println("  report      Render an HTML chart of a recorded conversion run")
	fmt.Println("  track       Replay label files through the detection tracker")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("Run 'dataset <command> -h' for command options.")
}

// loadTuning loads the tuning config when a path is given, otherwise
// falls back to the built-in defaults.
func loadTuning(path string) *config.TuningConfig {
	if path == "" {
		return config.EmptyTuningConfig()
	}
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		log.Fatalf("Failed to load tuning config: %v", err)
	}
	return cfg
}

// openRecordingDB opens the run history database when a path is given.
func openRecordingDB(dbPath, migrationsDir string) *db.DB {
	if dbPath == "" {
		return nil
	}
	database, err := db.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if _, err := database.CheckAndPromptMigrations(migrationsDir); err != nil {
		log.Fatalf("Migration check failed: %v", err)
	}
	return database
}

func runConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	annotationDir := fs.String("annotations", "", "directory of exported JSON annotation files")
	imageDir := fs.String("images", "", "directory of source images")
	labelOutDir := fs.String("labels-out", "labels", "output directory for YOLO label files")
	imageOutDir := fs.String("images-out", "images", "output directory for split images")
	classMapPath := fs.String("classmap", "", "JSON class map file (default: built-in KITTI mapping)")
	imageExt := fs.String("ext", ".png", "source image file extension")
	configPath := fs.String("config", "", "path to a JSON tuning config file")
	dbPath := fs.String("db", "", "record the run in this SQLite database")
	migrationsDir := fs.String("migrations", "migrations", "path to the schema migrations directory")
	fs.Parse(args)

	cfg := loadTuning(*configPath)
	fsys := fsutil.OSFileSystem{}

	classes := dataset.DefaultClassMap()
	if *classMapPath != "" {
		var err error
		classes, err = dataset.LoadClassMap(fsys, *classMapPath)
		if err != nil {
			log.Fatalf("Failed to load class map: %v", err)
		}
	}

	converter, err := dataset.NewConverter(fsys, dataset.ConvertConfig{
		AnnotationDir: *annotationDir,
		ImageDir:      *imageDir,
		LabelOutDir:   *labelOutDir,
		ImageOutDir:   *imageOutDir,
		SplitFraction: cfg.GetSplitFraction(),
		Seed:          cfg.GetShuffleSeed(),
		Classes:       classes,
		ImageExt:      *imageExt,
	})
	if err != nil {
		log.Fatalf("Invalid conversion config: %v", err)
	}

	stats, err := converter.Run(context.Background())
	if err != nil {
		log.Fatalf("Conversion failed: %v", err)
	}

	fmt.Printf("Run %s completed in %s\n", stats.RunID, stats.Duration.Round(0))
	fmt.Printf("  train files:     %d\n", stats.TrainFiles)
	fmt.Printf("  val files:       %d\n", stats.ValFiles)
	fmt.Printf("  skipped objects: %d\n", stats.SkippedObjects)
	fmt.Printf("  missing images:  %d\n", stats.MissingImages)
	fmt.Printf("  failed files:    %d\n", stats.FailedFiles)

	if database := openRecordingDB(*dbPath, *migrationsDir); database != nil {
		defer database.Close()
		if err := database.RecordConversionRun(stats); err != nil {
			log.Fatalf("Failed to record conversion run: %v", err)
		}
		if err := database.RecordClasses(classes); err != nil {
			log.Fatalf("Failed to record classes: %v", err)
		}
		fmt.Printf("Recorded run %s in %s\n", stats.RunID, *dbPath)
	}
}

func runClasses(args []string) {
	fs := flag.NewFlagSet("classes", flag.ExitOnError)
	annotationDir := fs.String("annotations", "", "directory of exported JSON annotation files")
	dbPath := fs.String("db", "", "record the extracted classes in this SQLite database")
	migrationsDir := fs.String("migrations", "migrations", "path to the schema migrations directory")
	fs.Parse(args)

	titles, err := dataset.ExtractClasses(fsutil.OSFileSystem{}, *annotationDir)
	if err != nil {
		log.Fatalf("Failed to extract classes: %v", err)
	}

	classes := dataset.ClassMap{}
	for i, title := range titles {
		classes[title] = i
		fmt.Printf("%d\t%s\n", i, title)
	}

	if database := openRecordingDB(*dbPath, *migrationsDir); database != nil {
		defer database.Close()
		if err := database.RecordClasses(classes); err != nil {
			log.Fatalf("Failed to record classes: %v", err)
		}
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	labelDir := fs.String("labels", "", "directory of YOLO label files")
	configPath := fs.String("config", "", "path to a JSON tuning config file")
	fs.Parse(args)

	cfg := loadTuning(*configPath)
	vcfg := dataset.ValidateConfig{
		IOUThreshold: cfg.GetIOUThreshold(),
		MinBoxNorm:   cfg.GetMinBoxNorm(),
	}

	files, err := filepath.Glob(filepath.Join(*labelDir, "*.txt"))
	if err != nil {
		log.Fatalf("Failed to list label files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No label files found in %s", *labelDir)
	}
	sort.Strings(files)

	var total int
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", path, err)
		}
		boxes, err := dataset.ParseLabels(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to parse %s: %v", path, err)
		}

		for _, finding := range dataset.ValidateLabels(boxes, vcfg) {
			fmt.Printf("%s: %s: %s\n", path, finding.Kind, finding.Detail)
			total++
		}
	}

	fmt.Printf("Checked %d label files, %d findings\n", len(files), total)
	if total > 0 {
		os.Exit(1)
	}
}

func runTrack(args []string) {
	fs := flag.NewFlagSet("track", flag.ExitOnError)
	labelDir := fs.String("labels", "", "directory of YOLO label files, one per frame in name order")
	configPath := fs.String("config", "", "path to a JSON tuning config file")
	fs.Parse(args)

	cfg := loadTuning(*configPath)

	files, err := filepath.Glob(filepath.Join(*labelDir, "*.txt"))
	if err != nil {
		log.Fatalf("Failed to list label files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("No label files found in %s", *labelDir)
	}
	sort.Strings(files)

	frames := make([][]dataset.Box, 0, len(files))
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("Failed to open %s: %v", path, err)
		}
		boxes, err := dataset.ParseLabels(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to parse %s: %v", path, err)
		}
		frames = append(frames, boxes)
	}

	tracker := fusion.NewTracker(fusion.TrackerConfig{
		MaxTracks:             cfg.GetMaxTracks(),
		MaxMisses:             cfg.GetMaxMisses(),
		HitsToConfirm:         cfg.GetHitsToConfirm(),
		GatingDistanceSquared: cfg.GetGatingDistanceSquared(),
		ProcessNoisePos:       cfg.GetProcessNoisePos(),
		ProcessNoiseVel:       cfg.GetProcessNoiseVel(),
		MeasurementNoise:      cfg.GetMeasurementNoise(),
	})

	if err := fusion.ReplayLabels(tracker, frames, time.Now(), cfg.GetStepInterval()); err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	total, tentative, confirmed, deleted := tracker.TrackCount()
	fmt.Printf("Replayed %d frames: %d tracks (%d tentative, %d confirmed, %d deleted)\n",
		len(frames), total, tentative, confirmed, deleted)

	tracks := tracker.ConfirmedTracks()
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].TrackID < tracks[j].TrackID })
	for _, tr := range tracks {
		fmt.Printf("  %s class=%d obs=%d pos=(%.3f, %.3f) speed=%.4f heading=%.2f\n",
			tr.TrackID, tr.ClassID, tr.ObservationCount, tr.X, tr.Y, tr.Speed(), tr.Heading())
	}
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dbPath := fs.String("db", "fusion.db", "SQLite database with recorded runs")
	runID := fs.String("run", "", "conversion run ID (default: most recent run)")
	outPath := fs.String("out", "report.html", "output HTML file")
	fs.Parse(args)

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	id := *runID
	if id == "" {
		runs, err := database.ConversionRuns(1)
		if err != nil {
			log.Fatalf("Failed to list conversion runs: %v", err)
		}
		if len(runs) == 0 {
			log.Fatalf("No conversion runs recorded in %s", *dbPath)
		}
		id = runs[0].RunID
	}

	counts, err := database.LabelCounts(id)
	if err != nil {
		log.Fatalf("Failed to load label counts: %v", err)
	}

	classCounts := map[string]map[string]int{}
	for _, c := range counts {
		if classCounts[c.Split] == nil {
			classCounts[c.Split] = map[string]int{}
		}
		classCounts[c.Split][c.ClassTitle] = c.Count
	}

	if err := security.ValidateExportPath(*outPath); err != nil {
		log.Fatalf("Unsafe output path: %v", err)
	}
	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *outPath, err)
	}
	defer out.Close()

	title := fmt.Sprintf("Conversion run %s", id)
	if err := report.RenderClassChart(out, title, classCounts); err != nil {
		log.Fatalf("Failed to render chart: %v", err)
	}
	fmt.Printf("Wrote %s\n", *outPath)
}
