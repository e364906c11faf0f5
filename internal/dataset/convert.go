package dataset

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/fsutil"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/monitoring"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/security"
)

// Split names used for the output directory layout.
const (
	SplitTrain = "train"
	SplitVal   = "val"
)

// ConvertConfig describes one conversion run.
type ConvertConfig struct {
	// AnnotationDir contains the exported JSON annotation files.
	AnnotationDir string
	// ImageDir contains the source images named after the annotation stems.
	ImageDir string
	// LabelOutDir receives YOLO label files under train/ and val/ subdirectories.
	LabelOutDir string
	// ImageOutDir receives copied images under train/ and val/ subdirectories.
	ImageOutDir string

	// SplitFraction is the fraction of files assigned to the training split.
	SplitFraction float64
	// Seed seeds the shuffle so splits are reproducible.
	Seed int64
	// Classes maps annotation class titles to YOLO class IDs.
	Classes ClassMap
	// ImageExt is the image file extension including the dot. Defaults to ".png".
	ImageExt string
}

// RunStats summarises a completed conversion run.
type RunStats struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	TrainFiles int
	ValFiles   int

	// ClassCounts holds per-split box counts keyed by class title.
	ClassCounts map[string]map[string]int

	// SkippedObjects counts objects dropped for unmapped classes or
	// malformed corner points.
	SkippedObjects int
	// MissingImages counts annotations whose source image was absent.
	MissingImages int
	// FailedFiles counts annotation files that could not be parsed.
	FailedFiles int
}

// Converter converts an annotation export into a YOLO training layout.
type Converter struct {
	fs  fsutil.FileSystem
	cfg ConvertConfig
}

// NewConverter validates the configuration and returns a Converter.
func NewConverter(fsys fsutil.FileSystem, cfg ConvertConfig) (*Converter, error) {
	if cfg.AnnotationDir == "" || cfg.ImageDir == "" {
		return nil, fmt.Errorf("annotation and image directories are required")
	}
	if cfg.LabelOutDir == "" || cfg.ImageOutDir == "" {
		return nil, fmt.Errorf("label and image output directories are required")
	}
	if cfg.SplitFraction <= 0 || cfg.SplitFraction >= 1 {
		return nil, fmt.Errorf("split fraction must be between 0 and 1 exclusive, got %f", cfg.SplitFraction)
	}
	if len(cfg.Classes) == 0 {
		return nil, fmt.Errorf("class map is required")
	}
	if cfg.ImageExt == "" {
		cfg.ImageExt = ".png"
	}

	return &Converter{fs: fsys, cfg: cfg}, nil
}

// Run performs the conversion: shuffle the annotation files with the
// configured seed, split at the configured fraction, write YOLO label
// files and copy the matching images into per-split directories.
func (c *Converter) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()

	files, err := c.fs.Glob(filepath.Join(c.cfg.AnnotationDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no annotation files found in %s", c.cfg.AnnotationDir)
	}

	// Shuffle for randomness, then split. Glob output is sorted, so the
	// seeded shuffle fully determines the split.
	rng := rand.New(rand.NewSource(c.cfg.Seed))
	rng.Shuffle(len(files), func(i, j int) {
		files[i], files[j] = files[j], files[i]
	})

	splitIndex := int(c.cfg.SplitFraction * float64(len(files)))
	splits := map[string][]string{
		SplitTrain: files[:splitIndex],
		SplitVal:   files[splitIndex:],
	}

	for _, split := range []string{SplitTrain, SplitVal} {
		if err := c.fs.MkdirAll(filepath.Join(c.cfg.LabelOutDir, split), 0755); err != nil {
			return nil, fmt.Errorf("create label dir: %w", err)
		}
		if err := c.fs.MkdirAll(filepath.Join(c.cfg.ImageOutDir, split), 0755); err != nil {
			return nil, fmt.Errorf("create image dir: %w", err)
		}
	}

	stats := &RunStats{
		RunID:     uuid.NewString(),
		StartedAt: start,
		ClassCounts: map[string]map[string]int{
			SplitTrain: {},
			SplitVal:   {},
		},
	}

	for _, split := range []string{SplitTrain, SplitVal} {
		for _, annPath := range splits[split] {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			if err := c.convertOne(annPath, split, stats); err != nil {
				monitoring.Logf("conversion failed for %s: %v", annPath, err)
				stats.FailedFiles++
			}
		}
	}

	stats.TrainFiles = len(splits[SplitTrain])
	stats.ValFiles = len(splits[SplitVal])
	stats.Duration = time.Since(start)

	monitoring.Logf("conversion run %s: %d train, %d val, %d skipped objects, %d missing images",
		stats.RunID, stats.TrainFiles, stats.ValFiles, stats.SkippedObjects, stats.MissingImages)

	return stats, nil
}

func (c *Converter) convertOne(annPath, split string, stats *RunStats) error {
	ann, err := LoadAnnotation(c.fs, annPath)
	if err != nil {
		return err
	}

	boxes, skipped := ann.YOLOBoxes(c.cfg.Classes)
	stats.SkippedObjects += skipped

	names := c.cfg.Classes.Names()
	for _, box := range boxes {
		title := names[box.ClassID]
		stats.ClassCounts[split][title]++
	}

	stem := security.SanitizeFilename(ImageStem(filepath.Base(annPath)))

	// An empty box list still produces an (empty) label file: those are
	// negative samples for training.
	labelPath := filepath.Join(c.cfg.LabelOutDir, split, stem+".txt")
	if err := c.fs.WriteFile(labelPath, []byte(FormatBoxes(boxes)), 0644); err != nil {
		return fmt.Errorf("write label file: %w", err)
	}

	imagePath := filepath.Join(c.cfg.ImageDir, stem+c.cfg.ImageExt)
	if !c.fs.Exists(imagePath) {
		monitoring.Logf("no image for annotation %s, label written without image", annPath)
		stats.MissingImages++
		return nil
	}

	destPath := filepath.Join(c.cfg.ImageOutDir, split, stem+c.cfg.ImageExt)
	if err := fsutil.CopyFile(c.fs, imagePath, destPath); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}

	return nil
}
