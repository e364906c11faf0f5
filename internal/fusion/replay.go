package fusion

import (
	"fmt"
	"time"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/dataset"
)

// DetectionsFromBoxes converts YOLO label boxes into tracker detections.
// Both are in normalized image coordinates, so the conversion is a
// straight field mapping.
func DetectionsFromBoxes(boxes []dataset.Box) []Detection {
	detections := make([]Detection, len(boxes))
	for i, b := range boxes {
		detections[i] = Detection{
			ClassID: b.ClassID,
			XCenter: b.XCenter,
			YCenter: b.YCenter,
			Width:   b.Width,
			Height:  b.Height,
		}
	}
	return detections
}

// ReplayLabels feeds a sequence of label-file frames through the tracker
// as if they had been observed live, one frame per interval starting at
// start. Frames must be in capture order.
func ReplayLabels(t *Tracker, frames [][]dataset.Box, start time.Time, interval time.Duration) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to replay")
	}
	if interval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %v", interval)
	}

	timestamp := start
	for _, boxes := range frames {
		t.Update(DetectionsFromBoxes(boxes), timestamp)
		timestamp = timestamp.Add(interval)
	}
	return nil
}
