package pose

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
)

var (
	background = color.RGBA{R: 32, G: 36, B: 44, A: 255}
	pointColor = color.RGBA{G: 255, A: 255}
	limbColor  = color.RGBA{R: 255, G: 200, A: 255}
	gaugeColor = color.RGBA{R: 255, A: 255}
	gaugeTrack = color.RGBA{R: 80, G: 80, B: 80, A: 255}
)

// Renderer draws a skeleton onto a synthetic frame and encodes it as JPEG.
type Renderer struct {
	Width, Height int
	Quality       int
}

// Render draws every visible keypoint, the two limbs of j and an angle gauge
// across the top of the frame, then returns the JPEG bytes.
func (r Renderer) Render(s Skeleton, j Joint, angle float64) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	line(img, s[j.Proximal], s[j.Vertex], limbColor)
	line(img, s[j.Vertex], s[j.Distal], limbColor)
	for _, k := range s {
		if k.Visible() {
			disc(img, int(k.X), int(k.Y), 5, pointColor)
		}
	}

	// gauge: a bar whose filled width is angle/180 of the frame
	const gaugeH = 12
	draw.Draw(img, image.Rect(10, 10, r.Width-10, 10+gaugeH), &image.Uniform{C: gaugeTrack}, image.Point{}, draw.Src)
	filled := int(math.Round(float64(r.Width-20) * math.Max(0, math.Min(angle, 180)) / 180))
	draw.Draw(img, image.Rect(10, 10, 10+filled, 10+gaugeH), &image.Uniform{C: gaugeColor}, image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func disc(img *image.RGBA, cx, cy, radius int, c color.Color) {
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= radius*radius {
				img.Set(cx+x, cy+y, c)
			}
		}
	}
}

func line(img *image.RGBA, a, b Keypoint, c color.Color) {
	if !a.Visible() || !b.Visible() {
		return
	}
	steps := int(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y)))
	if steps == 0 {
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(a.X + (b.X-a.X)*t))
		y := int(math.Round(a.Y + (b.Y-a.Y)*t))
		// 3px thick
		for d := -1; d <= 1; d++ {
			img.Set(x+d, y, c)
			img.Set(x, y+d, c)
		}
	}
}
