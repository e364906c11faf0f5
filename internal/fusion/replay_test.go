package fusion

import (
	"testing"
	"time"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/dataset"
)

func TestDetectionsFromBoxes(t *testing.T) {
	boxes := []dataset.Box{
		{ClassID: 0, XCenter: 0.5, YCenter: 0.4, Width: 0.1, Height: 0.2},
		{ClassID: 2, XCenter: 0.8, YCenter: 0.6, Width: 0.05, Height: 0.1},
	}

	dets := DetectionsFromBoxes(boxes)
	if len(dets) != 2 {
		t.Fatalf("detections = %d, want 2", len(dets))
	}
	for i, b := range boxes {
		d := dets[i]
		if d.ClassID != b.ClassID || d.XCenter != b.XCenter || d.YCenter != b.YCenter ||
			d.Width != b.Width || d.Height != b.Height {
			t.Errorf("detection %d = %+v, want fields of %+v", i, d, b)
		}
	}

	if dets := DetectionsFromBoxes(nil); len(dets) != 0 {
		t.Errorf("detections from nil boxes = %d, want 0", len(dets))
	}
}

func TestReplayLabelsConfirmsDriftingBox(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	// A car box drifting right across ten frames.
	frames := make([][]dataset.Box, 10)
	for i := range frames {
		frames[i] = []dataset.Box{{
			ClassID: 0,
			XCenter: 0.2 + 0.01*float64(i),
			YCenter: 0.5,
			Width:   0.1,
			Height:  0.1,
		}}
	}

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := ReplayLabels(tracker, frames, start, 100*time.Millisecond); err != nil {
		t.Fatalf("ReplayLabels failed: %v", err)
	}

	confirmed := tracker.ConfirmedTracks()
	if len(confirmed) != 1 {
		t.Fatalf("confirmed tracks = %d, want 1", len(confirmed))
	}
	track := confirmed[0]
	if track.ClassID != 0 {
		t.Errorf("ClassID = %d, want 0", track.ClassID)
	}
	if track.VX <= 0 {
		t.Errorf("VX = %f, want positive for rightward drift", track.VX)
	}
	if track.ObservationCount != len(frames) {
		t.Errorf("observations = %d, want %d", track.ObservationCount, len(frames))
	}
}

func TestReplayLabelsValidation(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := ReplayLabels(tracker, nil, start, 100*time.Millisecond); err == nil {
		t.Error("expected error for empty frame sequence")
	}
	frames := [][]dataset.Box{{{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}}}
	if err := ReplayLabels(tracker, frames, start, 0); err == nil {
		t.Error("expected error for non-positive interval")
	}
}

func TestReplayLabelsEmptyFramesAgeTracks(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	frames := [][]dataset.Box{
		{{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}},
		nil,
		nil,
		nil,
	}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := ReplayLabels(tracker, frames, start, 100*time.Millisecond); err != nil {
		t.Fatalf("ReplayLabels failed: %v", err)
	}

	if active := tracker.ActiveTracks(); len(active) != 0 {
		t.Errorf("active tracks = %d, want 0 after empty frames", len(active))
	}
}
