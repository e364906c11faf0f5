package dataset

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"
)

// ValidateConfig controls label validation thresholds.
type ValidateConfig struct {
	// IOUThreshold flags same-class box pairs whose intersection over
	// union meets or exceeds this value as duplicates.
	IOUThreshold float64
	// MinBoxNorm is the smallest accepted normalized box dimension.
	MinBoxNorm float64
}

// DefaultValidateConfig returns the thresholds used by the CLI.
func DefaultValidateConfig() ValidateConfig {
	return ValidateConfig{
		IOUThreshold: 0.8,
		MinBoxNorm:   0.001,
	}
}

// Finding describes one validation problem in a label file.
type Finding struct {
	Kind    string // "degenerate" or "duplicate"
	BoxIdx  int
	OtherID int // duplicate partner index, -1 otherwise
	Detail  string
}

const (
	findingDegenerate = "degenerate"
	findingDuplicate  = "duplicate"
)

// spatialBox adapts a Box to the rtreego Spatial interface.
type spatialBox struct {
	idx  int
	box  Box
	rect *rtreego.Rect
}

func (s *spatialBox) Bounds() *rtreego.Rect { return s.rect }

// boxRect converts a YOLO box to an rtreego rectangle in normalized
// image coordinates.
func boxRect(b Box) (*rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.XCenter - b.Width/2, b.YCenter - b.Height/2},
		[]float64{b.Width, b.Height},
	)
}

// IOU computes intersection over union of two YOLO boxes.
func IOU(a, b Box) float64 {
	axMin, axMax := a.XCenter-a.Width/2, a.XCenter+a.Width/2
	ayMin, ayMax := a.YCenter-a.Height/2, a.YCenter+a.Height/2
	bxMin, bxMax := b.XCenter-b.Width/2, b.XCenter+b.Width/2
	byMin, byMax := b.YCenter-b.Height/2, b.YCenter+b.Height/2

	ix := math.Min(axMax, bxMax) - math.Max(axMin, bxMin)
	iy := math.Min(ayMax, byMax) - math.Max(ayMin, byMin)
	if ix <= 0 || iy <= 0 {
		return 0
	}

	inter := ix * iy
	union := a.Width*a.Height + b.Width*b.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// ValidateLabels checks a label file's boxes for degenerate geometry and
// same-class duplicates. Duplicate detection indexes the boxes in an
// R-tree so only spatially overlapping pairs are compared.
func ValidateLabels(boxes []Box, cfg ValidateConfig) []Finding {
	var findings []Finding

	tree := rtreego.NewTree(2, 2, 8)
	valid := make([]*spatialBox, 0, len(boxes))

	for i, b := range boxes {
		if b.Width < cfg.MinBoxNorm || b.Height < cfg.MinBoxNorm {
			findings = append(findings, Finding{
				Kind:    findingDegenerate,
				BoxIdx:  i,
				OtherID: -1,
				Detail:  fmt.Sprintf("box %d has degenerate size %.6fx%.6f", i, b.Width, b.Height),
			})
			continue
		}

		if b.XCenter < 0 || b.XCenter > 1 || b.YCenter < 0 || b.YCenter > 1 ||
			b.Width > 1 || b.Height > 1 {
			findings = append(findings, Finding{
				Kind:    findingDegenerate,
				BoxIdx:  i,
				OtherID: -1,
				Detail:  fmt.Sprintf("box %d is outside normalized bounds", i),
			})
			continue
		}

		rect, err := boxRect(b)
		if err != nil {
			findings = append(findings, Finding{
				Kind:    findingDegenerate,
				BoxIdx:  i,
				OtherID: -1,
				Detail:  fmt.Sprintf("box %d rejected by spatial index: %v", i, err),
			})
			continue
		}
		valid = append(valid, &spatialBox{idx: i, box: b, rect: rect})
	}

	for _, sb := range valid {
		// Query before insert so each overlapping pair is reported once.
		for _, hit := range tree.SearchIntersect(sb.rect) {
			other := hit.(*spatialBox)
			if other.box.ClassID != sb.box.ClassID {
				continue
			}
			if iou := IOU(sb.box, other.box); iou >= cfg.IOUThreshold {
				findings = append(findings, Finding{
					Kind:    findingDuplicate,
					BoxIdx:  sb.idx,
					OtherID: other.idx,
					Detail:  fmt.Sprintf("boxes %d and %d overlap with IOU %.3f", other.idx, sb.idx, iou),
				})
			}
		}
		tree.Insert(sb)
	}

	return findings
}
