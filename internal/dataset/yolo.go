package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Box is a single YOLO-format bounding box. Coordinates are normalized to
// [0, 1] relative to the image dimensions: XCenter/YCenter locate the box
// centre, Width/Height its extent.
type Box struct {
	ClassID int
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// YOLOBoxes converts the annotation's objects into YOLO boxes using the
// given class map. Objects whose class title is unmapped, or whose
// exterior does not contain the two corner points of a box, are skipped.
// The returned skipped count covers both cases.
func (a *Annotation) YOLOBoxes(cm ClassMap) (boxes []Box, skipped int) {
	for _, obj := range a.Objects {
		classID, ok := cm[obj.ClassTitle]
		if !ok {
			skipped++
			continue
		}

		if len(obj.Points.Exterior) < 2 {
			skipped++
			continue
		}

		xMin, yMin := obj.Points.Exterior[0][0], obj.Points.Exterior[0][1]
		xMax, yMax := obj.Points.Exterior[1][0], obj.Points.Exterior[1][1]

		// Some exports store corners in arbitrary order.
		if xMin > xMax {
			xMin, xMax = xMax, xMin
		}
		if yMin > yMax {
			yMin, yMax = yMax, yMin
		}

		boxes = append(boxes, Box{
			ClassID: classID,
			XCenter: ((xMin + xMax) / 2) / a.Size.Width,
			YCenter: ((yMin + yMax) / 2) / a.Size.Height,
			Width:   (xMax - xMin) / a.Size.Width,
			Height:  (yMax - yMin) / a.Size.Height,
		})
	}
	return boxes, skipped
}

// FormatBoxes renders boxes as YOLO label lines, one per box, with six
// decimal places per coordinate.
func FormatBoxes(boxes []Box) string {
	var b strings.Builder
	for _, box := range boxes {
		fmt.Fprintf(&b, "%d %.6f %.6f %.6f %.6f\n",
			box.ClassID, box.XCenter, box.YCenter, box.Width, box.Height)
	}
	return b.String()
}

// ParseLabels reads YOLO label lines from r. Lines that do not contain
// exactly five numeric fields are skipped; a truncated or hand-edited
// label file should not abort a whole run.
func ParseLabels(r io.Reader) ([]Box, error) {
	var boxes []Box

	scan := bufio.NewScanner(r)
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) != 5 {
			continue
		}

		classID, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}

		vals := make([]float64, 4)
		valid := true
		for i, p := range parts[1:] {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				valid = false
				break
			}
			vals[i] = v
		}
		if !valid {
			continue
		}

		boxes = append(boxes, Box{
			ClassID: classID,
			XCenter: vals[0],
			YCenter: vals[1],
			Width:   vals[2],
			Height:  vals[3],
		})
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("scan labels: %w", err)
	}

	return boxes, nil
}
