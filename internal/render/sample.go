package render

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/dataset"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/fsutil"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/monitoring"
)

// AnnotateConfig describes one annotation rendering pass.
type AnnotateConfig struct {
	// ImageDir contains the converted images.
	ImageDir string
	// LabelDir contains YOLO label files named after the image stems.
	LabelDir string
	// OutDir receives the annotated copies.
	OutDir string
	// Names maps class IDs to display names.
	Names map[int]string
	// SampleSize is the number of images to annotate. Zero samples all.
	SampleSize int
	// LineWidth is the outline stroke width in pixels.
	LineWidth int
	// Seed seeds the sample selection so reruns pick the same images.
	Seed int64
}

// SampleStats summarises an annotation rendering pass.
type SampleStats struct {
	Annotated     int
	MissingLabels int
}

// Annotator renders label boxes onto sampled dataset images.
type Annotator struct {
	fs  fsutil.FileSystem
	cfg AnnotateConfig
}

// NewAnnotator validates the configuration and returns an Annotator.
func NewAnnotator(fsys fsutil.FileSystem, cfg AnnotateConfig) (*Annotator, error) {
	if cfg.ImageDir == "" || cfg.LabelDir == "" || cfg.OutDir == "" {
		return nil, fmt.Errorf("image, label and output directories are required")
	}
	if cfg.SampleSize < 0 {
		return nil, fmt.Errorf("sample size must be non-negative, got %d", cfg.SampleSize)
	}
	if cfg.LineWidth == 0 {
		cfg.LineWidth = 2
	}
	return &Annotator{fs: fsys, cfg: cfg}, nil
}

// Sample draws boxes onto a random sample of images and writes the
// annotated copies as PNG files into the output directory. Images
// without a label file are skipped with a warning.
func (a *Annotator) Sample(ctx context.Context) (*SampleStats, error) {
	var images []string
	for _, ext := range []string{"*.png", "*.jpg"} {
		matches, err := a.fs.Glob(filepath.Join(a.cfg.ImageDir, ext))
		if err != nil {
			return nil, fmt.Errorf("list images: %w", err)
		}
		images = append(images, matches...)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no images found in %s", a.cfg.ImageDir)
	}

	rng := rand.New(rand.NewSource(a.cfg.Seed))
	rng.Shuffle(len(images), func(i, j int) {
		images[i], images[j] = images[j], images[i]
	})

	n := a.cfg.SampleSize
	if n == 0 || n > len(images) {
		n = len(images)
	}

	if err := a.fs.MkdirAll(a.cfg.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	stats := &SampleStats{}
	for _, imgPath := range images[:n] {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		stem := strings.TrimSuffix(filepath.Base(imgPath), filepath.Ext(imgPath))
		labelPath := filepath.Join(a.cfg.LabelDir, stem+".txt")

		if !a.fs.Exists(labelPath) {
			monitoring.Logf("no label file for %s, skipping", imgPath)
			stats.MissingLabels++
			continue
		}

		if err := a.annotateOne(imgPath, labelPath, stem); err != nil {
			return nil, err
		}
		stats.Annotated++
	}

	return stats, nil
}

func (a *Annotator) annotateOne(imgPath, labelPath, stem string) error {
	f, err := a.fs.Open(imgPath)
	if err != nil {
		return fmt.Errorf("open image %s: %w", imgPath, err)
	}
	img, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode image %s: %w", imgPath, err)
	}

	lf, err := a.fs.Open(labelPath)
	if err != nil {
		return fmt.Errorf("open labels %s: %w", labelPath, err)
	}
	boxes, err := dataset.ParseLabels(lf)
	lf.Close()
	if err != nil {
		return fmt.Errorf("parse labels %s: %w", labelPath, err)
	}

	annotated := DrawBoxes(img, boxes, a.cfg.Names, a.cfg.LineWidth)

	out, err := a.fs.Create(filepath.Join(a.cfg.OutDir, stem+".png"))
	if err != nil {
		return fmt.Errorf("create output image: %w", err)
	}
	if err := png.Encode(out, annotated); err != nil {
		out.Close()
		return fmt.Errorf("encode output image: %w", err)
	}
	return out.Close()
}
