// Package render draws YOLO label boxes onto their source images so a
// converted dataset can be verified visually.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/dataset"
)

// boxColor is the outline and label colour for drawn boxes.
var boxColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// DrawBoxes draws each YOLO box onto a copy of img and returns it.
// Boxes are denormalized to pixel coordinates and clamped to the image
// bounds. The class name (or "class N" for unknown IDs) is drawn above
// the top-left corner.
func DrawBoxes(img image.Image, boxes []dataset.Box, names map[int]string, lineWidth int) *image.RGBA {
	if lineWidth < 1 {
		lineWidth = 2
	}

	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	for _, box := range boxes {
		xMin := bounds.Min.X + int((box.XCenter-box.Width/2)*width)
		yMin := bounds.Min.Y + int((box.YCenter-box.Height/2)*height)
		xMax := bounds.Min.X + int((box.XCenter+box.Width/2)*width)
		yMax := bounds.Min.Y + int((box.YCenter+box.Height/2)*height)

		rect := image.Rect(xMin, yMin, xMax, yMax).Intersect(bounds)
		if rect.Empty() {
			continue
		}

		drawOutline(out, rect, lineWidth)

		label, ok := names[box.ClassID]
		if !ok {
			label = fmt.Sprintf("class %d", box.ClassID)
		}
		drawLabel(out, label, rect.Min.X, rect.Min.Y-4)
	}

	return out
}

// drawOutline draws a rectangle outline of the given width, inset so the
// stroke stays within the rectangle.
func drawOutline(img *image.RGBA, rect image.Rectangle, width int) {
	for i := 0; i < width; i++ {
		r := rect.Inset(i)
		if r.Empty() {
			return
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, r.Min.Y, boxColor)
			img.Set(x, r.Max.Y-1, boxColor)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.Set(r.Min.X, y, boxColor)
			img.Set(r.Max.X-1, y, boxColor)
		}
	}
}

// drawLabel renders text at the given baseline position. Labels that
// would start above the image are pushed inside the top edge.
func drawLabel(img *image.RGBA, text string, x, y int) {
	if y < img.Bounds().Min.Y+basicfont.Face7x13.Ascent {
		y = img.Bounds().Min.Y + basicfont.Face7x13.Ascent
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(boxColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
