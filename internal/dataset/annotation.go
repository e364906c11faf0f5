// Package dataset converts camera annotation exports into YOLO training
// layouts. It reads Supervisely-style JSON annotations (one document per
// image, corner-point bounding boxes keyed by class title), maps class
// titles to numeric class IDs, and writes normalized label files next to a
// train/val split of the images.
package dataset

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/fsutil"
)

// ImageSize holds the pixel dimensions of the annotated image.
type ImageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Points holds the corner points of an annotated object. For bounding
// boxes the exterior contains exactly two points: top-left and
// bottom-right in pixel coordinates.
type Points struct {
	Exterior [][2]float64 `json:"exterior"`
}

// Object is a single annotated object within an image.
type Object struct {
	ClassTitle string `json:"classTitle"`
	Points     Points `json:"points"`
}

// Annotation is one exported annotation document describing all objects
// in a single image.
type Annotation struct {
	Size    ImageSize `json:"size"`
	Objects []Object  `json:"objects"`
}

// LoadAnnotation reads and parses a single annotation JSON file.
func LoadAnnotation(fsys fsutil.FileSystem, path string) (*Annotation, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation %s: %w", path, err)
	}

	var ann Annotation
	if err := json.Unmarshal(data, &ann); err != nil {
		return nil, fmt.Errorf("parse annotation %s: %w", path, err)
	}

	if ann.Size.Width <= 0 || ann.Size.Height <= 0 {
		return nil, fmt.Errorf("annotation %s has invalid image size %gx%g", path, ann.Size.Width, ann.Size.Height)
	}

	return &ann, nil
}

// ImageStem derives the image base name from an annotation file name.
// Exports name annotation files after the image, so both
// "000123.json" and "000123.png.json" map to stem "000123".
func ImageStem(annotationName string) string {
	stem := strings.TrimSuffix(annotationName, ".json")
	stem = strings.TrimSuffix(stem, ".png")
	return stem
}
