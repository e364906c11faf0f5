// Command gen-fixtures generates development fixture data: a sensor
// line capture matching the navigation board's wire format, plus a small
// synthetic annotation export with matching images for exercising the
// dataset converter without the real KITTI data.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/dataset"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/fusion"
)

func main() {
	outDir := flag.String("out", "fixtures", "output directory")
	seconds := flag.Float64("seconds", 60, "sensor capture duration in seconds")
	intervalMs := flag.Int64("interval", 500, "sensor reporting interval in milliseconds")
	annotations := flag.Int("annotations", 10, "number of annotation/image pairs to generate")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	if err := writeSensorCapture(*outDir, *seconds, *intervalMs, *seed); err != nil {
		log.Fatalf("Failed to write sensor capture: %v", err)
	}
	if err := writeAnnotationExport(*outDir, *annotations, *seed); err != nil {
		log.Fatalf("Failed to write annotation export: %v", err)
	}
}

// writeSensorCapture simulates a drive and writes the interleaved
// IMU/GPS lines the way the board reports them.
func writeSensorCapture(outDir string, seconds float64, intervalMs, seed int64) error {
	dt := float64(intervalMs) / 1000
	truth, err := fusion.SimulateTruth(seconds, dt)
	if err != nil {
		return err
	}
	imu, gps := fusion.MakeSensors(truth, 0.05, 1.5, seed)

	path := filepath.Join(outDir, "sensors.txt")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for i := range imu {
		uptime := int64(i+1) * intervalMs
		fmt.Fprintf(f, "IMU,%d,%.4f\n", uptime, imu[i])
		fmt.Fprintf(f, "GPS,%d,%.4f\n", uptime, gps[i])
	}

	log.Printf("Wrote %d sensor line pairs to %s", len(imu), path)
	return nil
}

// writeAnnotationExport generates annotation JSON documents with random
// boxes and matching flat gray PNG images.
func writeAnnotationExport(outDir string, count int, seed int64) error {
	annDir := filepath.Join(outDir, "annotations")
	imgDir := filepath.Join(outDir, "images")
	for _, dir := range []string{annDir, imgDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	// KITTI camera resolution.
	const width, height = 1242.0, 375.0

	titles := make([]string, 0)
	for title := range dataset.DefaultClassMap() {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < count; i++ {
		stem := fmt.Sprintf("%06d", i)

		ann := dataset.Annotation{
			Size: dataset.ImageSize{Width: width, Height: height},
		}
		for n := rng.Intn(5); n >= 0; n-- {
			x := rng.Float64() * (width - 120)
			y := rng.Float64() * (height - 80)
			w := 40 + rng.Float64()*80
			h := 30 + rng.Float64()*50
			ann.Objects = append(ann.Objects, dataset.Object{
				ClassTitle: titles[rng.Intn(len(titles))],
				Points: dataset.Points{
					Exterior: [][2]float64{{x, y}, {x + w, y + h}},
				},
			})
		}

		data, err := json.MarshalIndent(ann, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(annDir, stem+".png.json"), data, 0644); err != nil {
			return err
		}

		img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
		gray := color.RGBA{R: 96, G: 96, B: 96, A: 255}
		for y := 0; y < int(height); y++ {
			for x := 0; x < int(width); x++ {
				img.Set(x, y, gray)
			}
		}
		f, err := os.Create(filepath.Join(imgDir, stem+".png"))
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	log.Printf("Wrote %d annotation/image pairs to %s", count, outDir)
	return nil
}
