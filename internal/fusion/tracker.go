package fusion

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// TrackState represents the lifecycle state of a track.
type TrackState string

const (
	TrackTentative TrackState = "tentative" // new track, needs confirmation
	TrackConfirmed TrackState = "confirmed" // stable track with sufficient history
	TrackDeleted   TrackState = "deleted"   // track marked for removal
)

const (
	// minDeterminantThreshold is the minimum determinant accepted when
	// inverting the innovation covariance.
	minDeterminantThreshold = 1e-9
	// singularDistanceRejection is returned when the covariance is singular.
	singularDistanceRejection = 1e9
	// defaultDeletedTrackGracePeriod is how long deleted tracks linger
	// before cleanup removes them.
	defaultDeletedTrackGracePeriod = 5 * time.Second
)

// TrackerConfig holds tuning for the detection tracker. Noise terms are
// variances in normalized image coordinates; the gating threshold is a
// squared Mahalanobis distance.
type TrackerConfig struct {
	MaxTracks               int
	MaxMisses               int     // consecutive misses before deletion
	HitsToConfirm           int     // consecutive hits needed for confirmation
	GatingDistanceSquared   float64 // squared gating distance for association
	ProcessNoisePos         float64
	ProcessNoiseVel         float64
	MeasurementNoise        float64
	DeletedTrackGracePeriod time.Duration
}

// DefaultTrackerConfig returns the default detection tracker tuning.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxTracks:               100,
		MaxMisses:               3,
		HitsToConfirm:           3,
		GatingDistanceSquared:   9.21, // chi-square 99th percentile, 2 dof
		ProcessNoisePos:         1e-4,
		ProcessNoiseVel:         5e-4,
		MeasurementNoise:        1e-4,
		DeletedTrackGracePeriod: defaultDeletedTrackGracePeriod,
	}
}

// Detection is one labelled box observed in a frame, in normalized
// image coordinates.
type Detection struct {
	ClassID int
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// TrackPoint is one point in a track's history.
type TrackPoint struct {
	X         float64
	Y         float64
	Timestamp int64 // unix nanos
}

// Track is a single object tracked across frames with a constant
// velocity Kalman model over its box centre.
type Track struct {
	TrackID string
	State   TrackState
	ClassID int

	Hits   int // consecutive successful associations
	Misses int // consecutive missed associations

	FirstUnixNanos int64
	LastUnixNanos  int64

	// Kalman state: [x, y, vx, vy]
	X  float64
	Y  float64
	VX float64
	VY float64

	// Covariance, 4x4 row-major.
	P [16]float64

	ObservationCount int
	WidthAvg         float64
	HeightAvg        float64

	History []TrackPoint
}

// Speed returns the current velocity magnitude.
func (tr *Track) Speed() float64 {
	return math.Hypot(tr.VX, tr.VY)
}

// Heading returns the current heading in radians.
func (tr *Track) Heading() float64 {
	return math.Atan2(tr.VY, tr.VX)
}

// Tracker associates per-frame detections with tracks and manages the
// track lifecycle.
type Tracker struct {
	Tracks      map[string]*Track
	NextTrackID int64
	Config      TrackerConfig

	LastUpdateNanos int64

	mu sync.RWMutex
}

// NewTracker creates a tracker with the given configuration.
func NewTracker(config TrackerConfig) *Tracker {
	return &Tracker{
		Tracks:      make(map[string]*Track),
		NextTrackID: 1,
		Config:      config,
	}
}

// Update processes one frame of detections: predict all live tracks,
// associate detections, update matches, age out misses and spawn new
// tracks from leftovers.
func (t *Tracker) Update(detections []Detection, timestamp time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nowNanos := timestamp.UnixNano()

	var dt float64
	if t.LastUpdateNanos > 0 {
		dt = float64(nowNanos-t.LastUpdateNanos) / 1e9
	} else {
		dt = 0.1
	}
	t.LastUpdateNanos = nowNanos

	for _, track := range t.Tracks {
		if track.State != TrackDeleted {
			t.predict(track, dt)
		}
	}

	associations := t.associate(detections)

	matched := make(map[string]bool)
	for di, trackID := range associations {
		if trackID == "" {
			continue
		}
		track := t.Tracks[trackID]
		t.update(track, detections[di], nowNanos)
		track.Hits++
		track.Misses = 0
		matched[trackID] = true

		if track.State == TrackTentative && track.Hits >= t.Config.HitsToConfirm {
			track.State = TrackConfirmed
		}
	}

	for trackID, track := range t.Tracks {
		if !matched[trackID] && track.State != TrackDeleted {
			track.Misses++
			track.Hits = 0

			if track.Misses >= t.Config.MaxMisses {
				track.State = TrackDeleted
				track.LastUnixNanos = nowNanos
			}
		}
	}

	for di, trackID := range associations {
		if trackID == "" && len(t.Tracks) < t.Config.MaxTracks {
			t.initTrack(detections[di], nowNanos)
		}
	}

	t.cleanupDeletedTracks(nowNanos)
}

// predict applies the constant velocity prediction to one track.
func (t *Tracker) predict(track *Track, dt float64) {
	track.X += track.VX * dt
	track.Y += track.VY * dt

	// P' = F P Fᵀ + Q for F = [I dtI; 0 I], computed in place.
	P := track.P
	var FP [16]float64
	for j := 0; j < 4; j++ {
		FP[0*4+j] = P[0*4+j] + dt*P[2*4+j]
		FP[1*4+j] = P[1*4+j] + dt*P[3*4+j]
		FP[2*4+j] = P[2*4+j]
		FP[3*4+j] = P[3*4+j]
	}
	for i := 0; i < 4; i++ {
		track.P[i*4+0] = FP[i*4+0] + dt*FP[i*4+2]
		track.P[i*4+1] = FP[i*4+1] + dt*FP[i*4+3]
		track.P[i*4+2] = FP[i*4+2]
		track.P[i*4+3] = FP[i*4+3]
	}

	track.P[0*4+0] += t.Config.ProcessNoisePos
	track.P[1*4+1] += t.Config.ProcessNoisePos
	track.P[2*4+2] += t.Config.ProcessNoiseVel
	track.P[3*4+3] += t.Config.ProcessNoiseVel
}

// associate matches detections to tracks by nearest neighbour inside the
// gating distance. Returns one track ID per detection, empty when the
// detection stays unassociated.
func (t *Tracker) associate(detections []Detection) []string {
	associations := make([]string, len(detections))

	active := make([]string, 0, len(t.Tracks))
	for id, track := range t.Tracks {
		if track.State != TrackDeleted {
			active = append(active, id)
		}
	}

	used := make(map[string]bool)
	for di, det := range detections {
		bestID := ""
		bestDist2 := t.Config.GatingDistanceSquared

		for _, trackID := range active {
			if used[trackID] {
				continue
			}
			track := t.Tracks[trackID]
			if track.ClassID != det.ClassID {
				continue
			}
			dist2 := t.mahalanobisDistanceSquared(track, det)
			if dist2 < bestDist2 {
				bestDist2 = dist2
				bestID = trackID
			}
		}

		if bestID != "" {
			associations[di] = bestID
			used[bestID] = true
		}
	}

	return associations
}

// mahalanobisDistanceSquared gates a detection against a track using the
// position block of the covariance.
func (t *Tracker) mahalanobisDistanceSquared(track *Track, det Detection) float64 {
	dx := det.XCenter - track.X
	dy := det.YCenter - track.Y

	// S = H P Hᵀ + R with H extracting position only.
	s00 := track.P[0*4+0] + t.Config.MeasurementNoise
	s01 := track.P[0*4+1]
	s10 := track.P[1*4+0]
	s11 := track.P[1*4+1] + t.Config.MeasurementNoise

	det2 := s00*s11 - s01*s10
	if det2 < minDeterminantThreshold {
		return singularDistanceRejection
	}

	inv00 := s11 / det2
	inv01 := -s01 / det2
	inv10 := -s10 / det2
	inv11 := s00 / det2

	return dx*dx*inv00 + dx*dy*(inv01+inv10) + dy*dy*inv11
}

// update folds a matched detection into the track state.
func (t *Tracker) update(track *Track, det Detection, nowNanos int64) {
	yX := det.XCenter - track.X
	yY := det.YCenter - track.Y

	s00 := track.P[0*4+0] + t.Config.MeasurementNoise
	s01 := track.P[0*4+1]
	s10 := track.P[1*4+0]
	s11 := track.P[1*4+1] + t.Config.MeasurementNoise

	det2 := s00*s11 - s01*s10
	if det2 < minDeterminantThreshold {
		return
	}

	inv00 := s11 / det2
	inv01 := -s01 / det2
	inv10 := -s10 / det2
	inv11 := s00 / det2

	// K = P Hᵀ S⁻¹, a 4x2 matrix.
	var K [8]float64
	for i := 0; i < 4; i++ {
		K[i*2+0] = track.P[i*4+0]*inv00 + track.P[i*4+1]*inv10
		K[i*2+1] = track.P[i*4+0]*inv01 + track.P[i*4+1]*inv11
	}

	track.X += K[0*2+0]*yX + K[0*2+1]*yY
	track.Y += K[1*2+0]*yX + K[1*2+1]*yY
	track.VX += K[2*2+0]*yX + K[2*2+1]*yY
	track.VY += K[3*2+0]*yX + K[3*2+1]*yY

	// P' = (I - K H) P
	var ikh [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var identity float64
			if i == j {
				identity = 1
			}
			var kh float64
			if j == 0 {
				kh = K[i*2+0]
			} else if j == 1 {
				kh = K[i*2+1]
			}
			ikh[i*4+j] = identity - kh
		}
	}
	var newP [16]float64
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += ikh[i*4+k] * track.P[k*4+j]
			}
			newP[i*4+j] = sum
		}
	}
	track.P = newP

	track.LastUnixNanos = nowNanos
	track.ObservationCount++

	n := float64(track.ObservationCount)
	track.WidthAvg = ((n-1)*track.WidthAvg + det.Width) / n
	track.HeightAvg = ((n-1)*track.HeightAvg + det.Height) / n

	track.History = append(track.History, TrackPoint{
		X:         track.X,
		Y:         track.Y,
		Timestamp: nowNanos,
	})
}

// initTrack spawns a tentative track from an unassociated detection.
func (t *Tracker) initTrack(det Detection, nowNanos int64) *Track {
	trackID := fmt.Sprintf("track_%d", t.NextTrackID)
	t.NextTrackID++

	track := &Track{
		TrackID: trackID,
		State:   TrackTentative,
		ClassID: det.ClassID,
		Hits:    1,

		FirstUnixNanos: nowNanos,
		LastUnixNanos:  nowNanos,

		X: det.XCenter,
		Y: det.YCenter,

		P: [16]float64{
			0.01, 0, 0, 0,
			0, 0.01, 0, 0,
			0, 0, 0.001, 0,
			0, 0, 0, 0.001,
		},

		ObservationCount: 1,
		WidthAvg:         det.Width,
		HeightAvg:        det.Height,

		History: []TrackPoint{{
			X:         det.XCenter,
			Y:         det.YCenter,
			Timestamp: nowNanos,
		}},
	}

	t.Tracks[trackID] = track
	return track
}

// cleanupDeletedTracks removes deleted tracks older than the grace period.
func (t *Tracker) cleanupDeletedTracks(nowNanos int64) {
	grace := t.Config.DeletedTrackGracePeriod
	if grace == 0 {
		grace = defaultDeletedTrackGracePeriod
	}

	for id, track := range t.Tracks {
		if track.State == TrackDeleted && nowNanos-track.LastUnixNanos > int64(grace) {
			delete(t.Tracks, id)
		}
	}
}

// ActiveTracks returns the non-deleted tracks.
func (t *Tracker) ActiveTracks() []*Track {
	t.mu.RLock()
	defer t.mu.RUnlock()

	active := make([]*Track, 0, len(t.Tracks))
	for _, track := range t.Tracks {
		if track.State != TrackDeleted {
			active = append(active, track)
		}
	}
	return active
}

// ConfirmedTracks returns only confirmed tracks.
func (t *Tracker) ConfirmedTracks() []*Track {
	t.mu.RLock()
	defer t.mu.RUnlock()

	confirmed := make([]*Track, 0)
	for _, track := range t.Tracks {
		if track.State == TrackConfirmed {
			confirmed = append(confirmed, track)
		}
	}
	return confirmed
}

// TrackCount returns track counts by lifecycle state.
func (t *Tracker) TrackCount() (total, tentative, confirmed, deleted int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, track := range t.Tracks {
		total++
		switch track.State {
		case TrackTentative:
			tentative++
		case TrackConfirmed:
			confirmed++
		case TrackDeleted:
			deleted++
		}
	}
	return
}
