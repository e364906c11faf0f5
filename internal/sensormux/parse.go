package sensormux

import (
	"fmt"
	"strconv"
	"strings"
)

// ReadingKind identifies which sensor produced a line.
type ReadingKind string

const (
	ReadingIMU     ReadingKind = "imu"
	ReadingGPS     ReadingKind = "gps"
	ReadingUnknown ReadingKind = "unknown"
)

// Reading is one parsed sensor line. IMU readings carry acceleration in
// m/s²; GPS readings carry position along the track in metres.
type Reading struct {
	Kind         ReadingKind
	UptimeMillis int64
	Value        float64
}

// Classify returns the reading kind for a raw line without fully
// parsing it. Unknown lines (status output, command echoes) are passed
// through to subscribers but skipped by the filter loop.
func Classify(line string) ReadingKind {
	switch {
	case strings.HasPrefix(line, "IMU,"):
		return ReadingIMU
	case strings.HasPrefix(line, "GPS,"):
		return ReadingGPS
	default:
		return ReadingUnknown
	}
}

// ParseReading parses a sensor line of the form
// "IMU,<uptime_ms>,<value>" or "GPS,<uptime_ms>,<value>".
func ParseReading(line string) (Reading, error) {
	kind := Classify(line)
	if kind == ReadingUnknown {
		return Reading{Kind: ReadingUnknown}, fmt.Errorf("unrecognized sensor line %q", line)
	}

	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Reading{Kind: kind}, fmt.Errorf("malformed %s line %q: want 3 fields, got %d", kind, line, len(parts))
	}

	uptime, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return Reading{Kind: kind}, fmt.Errorf("bad uptime in %q: %w", line, err)
	}
	if uptime < 0 {
		return Reading{Kind: kind}, fmt.Errorf("negative uptime in %q", line)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Reading{Kind: kind}, fmt.Errorf("bad value in %q: %w", line, err)
	}

	return Reading{Kind: kind, UptimeMillis: uptime, Value: value}, nil
}
