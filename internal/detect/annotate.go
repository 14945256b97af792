package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

const (
	boxBorder   = 3
	jpegQuality = 90
)

var boxColor = color.RGBA{R: 46, G: 204, B: 64, A: 255}

// Annotate draws every detection box and its label onto a copy of img and
// returns the result encoded as JPEG. The source image is left untouched.
func Annotate(img image.Image, detections []models.Detection, labels []string) ([]byte, error) {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for _, det := range detections {
		rect := pixelRect(bounds, det.Box)
		drawBorder(canvas, rect)
		caption := fmt.Sprintf("%s %.2f", labelFor(labels, det.ClassIndex), clamp01(det.Confidence))
		drawLabel(canvas, rect, caption)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

// pixelRect maps a normalized left/top/right/bottom box into image pixels,
// clipped to the image bounds.
func pixelRect(bounds image.Rectangle, box [4]float64) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	r := image.Rect(
		bounds.Min.X+int(box[0]*w),
		bounds.Min.Y+int(box[1]*h),
		bounds.Min.X+int(box[2]*w),
		bounds.Min.Y+int(box[3]*h),
	)
	return r.Intersect(bounds)
}

func drawBorder(canvas *image.RGBA, rect image.Rectangle) {
	for i := 0; i < boxBorder; i++ {
		r := rect.Inset(i)
		if r.Empty() {
			return
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			canvas.Set(x, r.Min.Y, boxColor)
			canvas.Set(x, r.Max.Y-1, boxColor)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			canvas.Set(r.Min.X, y, boxColor)
			canvas.Set(r.Max.X-1, y, boxColor)
		}
	}
}

func drawLabel(canvas *image.RGBA, rect image.Rectangle, caption string) {
	face := basicfont.Face7x13
	y := rect.Min.Y - 4
	if y-face.Ascent < canvas.Bounds().Min.Y {
		// No room above the box; draw inside it instead.
		y = rect.Min.Y + face.Ascent + boxBorder
	}
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(boxColor),
		Face: face,
		Dot:  fixed.P(rect.Min.X+boxBorder, y),
	}
	d.DrawString(caption)
}
