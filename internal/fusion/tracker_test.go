package fusion

import (
	"testing"
	"time"
)

func frameTime(step int) time.Time {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(step) * 100 * time.Millisecond)
}

func TestTrackerConfirmsAfterHits(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	det := Detection{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}
	for i := 0; i < 3; i++ {
		tracker.Update([]Detection{det}, frameTime(i))
	}

	confirmed := tracker.ConfirmedTracks()
	if len(confirmed) != 1 {
		t.Fatalf("confirmed tracks = %d, want 1", len(confirmed))
	}
	if confirmed[0].ObservationCount != 3 {
		t.Errorf("observations = %d, want 3", confirmed[0].ObservationCount)
	}
}

func TestTrackerDeletesAfterMisses(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	det := Detection{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}
	tracker.Update([]Detection{det}, frameTime(0))

	// Empty frames until the track ages out.
	for i := 1; i <= 3; i++ {
		tracker.Update(nil, frameTime(i))
	}

	if active := tracker.ActiveTracks(); len(active) != 0 {
		t.Errorf("active tracks = %d, want 0", len(active))
	}
	total, _, _, deleted := tracker.TrackCount()
	if total != 1 || deleted != 1 {
		t.Errorf("total = %d deleted = %d, want 1/1", total, deleted)
	}
}

func TestTrackerCleanupAfterGracePeriod(t *testing.T) {
	cfg := DefaultTrackerConfig()
	cfg.DeletedTrackGracePeriod = time.Second
	tracker := NewTracker(cfg)

	det := Detection{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}
	tracker.Update([]Detection{det}, frameTime(0))
	for i := 1; i <= 3; i++ {
		tracker.Update(nil, frameTime(i))
	}

	// Well past the grace period: deleted track is removed entirely.
	tracker.Update(nil, frameTime(0).Add(time.Minute))
	if total, _, _, _ := tracker.TrackCount(); total != 0 {
		t.Errorf("total tracks = %d, want 0 after cleanup", total)
	}
}

func TestTrackerAssociatesNearbyDetection(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	tracker.Update([]Detection{{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}}, frameTime(0))
	// Slightly moved detection must join the existing track, not spawn
	// a second one.
	tracker.Update([]Detection{{ClassID: 0, XCenter: 0.505, YCenter: 0.5, Width: 0.1, Height: 0.1}}, frameTime(1))

	if total, _, _, _ := tracker.TrackCount(); total != 1 {
		t.Errorf("total tracks = %d, want 1", total)
	}
}

func TestTrackerGatingRejectsFarDetection(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	tracker.Update([]Detection{{ClassID: 0, XCenter: 0.1, YCenter: 0.1, Width: 0.1, Height: 0.1}}, frameTime(0))
	tracker.Update([]Detection{{ClassID: 0, XCenter: 0.9, YCenter: 0.9, Width: 0.1, Height: 0.1}}, frameTime(1))

	if total, _, _, _ := tracker.TrackCount(); total != 2 {
		t.Errorf("total tracks = %d, want 2 for far apart detections", total)
	}
}

func TestTrackerClassMismatchSpawnsNewTrack(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	tracker.Update([]Detection{{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}}, frameTime(0))
	tracker.Update([]Detection{{ClassID: 1, XCenter: 0.5, YCenter: 0.5, Width: 0.1, Height: 0.1}}, frameTime(1))

	if total, _, _, _ := tracker.TrackCount(); total != 2 {
		t.Errorf("total tracks = %d, want 2 across classes", total)
	}
}

func TestTrackerEstimatesVelocity(t *testing.T) {
	tracker := NewTracker(DefaultTrackerConfig())

	// Detection drifting right at a constant rate.
	for i := 0; i < 10; i++ {
		det := Detection{ClassID: 0, XCenter: 0.2 + 0.01*float64(i), YCenter: 0.5, Width: 0.1, Height: 0.1}
		tracker.Update([]Detection{det}, frameTime(i))
	}

	confirmed := tracker.ConfirmedTracks()
	if len(confirmed) != 1 {
		t.Fatalf("confirmed tracks = %d, want 1", len(confirmed))
	}
	track := confirmed[0]
	if track.VX <= 0 {
		t.Errorf("VX = %f, want positive for rightward motion", track.VX)
	}
	if track.Speed() <= 0 {
		t.Errorf("Speed() = %f, want positive", track.Speed())
	}
	if len(track.History) != 10 {
		t.Errorf("history points = %d, want 10", len(track.History))
	}
}

func TestTrackerMaxTracks(t *testing.T) {
	cfg := DefaultTrackerConfig()
	cfg.MaxTracks = 2
	tracker := NewTracker(cfg)

	dets := []Detection{
		{ClassID: 0, XCenter: 0.1, YCenter: 0.1, Width: 0.05, Height: 0.05},
		{ClassID: 0, XCenter: 0.5, YCenter: 0.5, Width: 0.05, Height: 0.05},
		{ClassID: 0, XCenter: 0.9, YCenter: 0.9, Width: 0.05, Height: 0.05},
	}
	tracker.Update(dets, frameTime(0))

	if total, _, _, _ := tracker.TrackCount(); total != 2 {
		t.Errorf("total tracks = %d, want capped at 2", total)
	}
}
