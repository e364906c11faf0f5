package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/fusion"
)

func TestRenderClassChart(t *testing.T) {
	counts := map[string]map[string]int{
		"train": {"Car": 12, "Pedestrian": 3},
		"val":   {"Car": 2},
	}

	var buf bytes.Buffer
	if err := RenderClassChart(&buf, "Dataset Classes", counts); err != nil {
		t.Fatalf("RenderClassChart failed: %v", err)
	}

	html := buf.String()
	for _, want := range []string{"Dataset Classes", "Car", "Pedestrian", "train", "val", "echarts"} {
		if !strings.Contains(html, want) {
			t.Errorf("chart HTML missing %q", want)
		}
	}
}

func TestRenderClassChartEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderClassChart(&buf, "empty", nil); err == nil {
		t.Error("expected error for empty class counts")
	}
}

func filterRecords(t *testing.T, steps int) []fusion.StepRecord {
	t.Helper()
	truth, err := fusion.SimulateTruth(float64(steps)/2, 0.5)
	if err != nil {
		t.Fatalf("SimulateTruth failed: %v", err)
	}
	imu, gps := fusion.MakeSensors(truth, 0.05, 1.5, 1)

	f, err := fusion.NewFilter1D(fusion.DefaultFilterConfig())
	if err != nil {
		t.Fatalf("NewFilter1D failed: %v", err)
	}
	records, err := f.Run(imu, gps)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return records
}

func TestRenderEstimatePlot(t *testing.T) {
	records := filterRecords(t, 40)

	path := filepath.Join(t.TempDir(), "estimate.png")
	if err := RenderEstimatePlot(path, records, nil); err != nil {
		t.Fatalf("RenderEstimatePlot failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestRenderEstimatePlotWithTruth(t *testing.T) {
	records := filterRecords(t, 40)
	truth := make([]float64, len(records))
	for i := range truth {
		truth[i] = records[i].Pos
	}

	path := filepath.Join(t.TempDir(), "estimate-truth.png")
	if err := RenderEstimatePlot(path, records, truth); err != nil {
		t.Fatalf("RenderEstimatePlot failed: %v", err)
	}

	// Mismatched truth length is rejected.
	if err := RenderEstimatePlot(path, records, truth[:3]); err == nil {
		t.Error("expected error for mismatched truth length")
	}
}

func TestRenderVelocityPlot(t *testing.T) {
	records := filterRecords(t, 40)

	path := filepath.Join(t.TempDir(), "velocity.png")
	if err := RenderVelocityPlot(path, records); err != nil {
		t.Fatalf("RenderVelocityPlot failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("plot file missing: %v", err)
	}

	if err := RenderVelocityPlot(path, nil); err == nil {
		t.Error("expected error for empty records")
	}
}
