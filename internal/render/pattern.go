package render

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// LoadPattern decodes an image file into row-major RGBX pixels. The image must
// be exactly height x width.
func LoadPattern(path string, height, width int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode pattern %s: %w", path, err)
	}
	return ImagePixels(img, height, width)
}

// ImagePixels converts img to RGBX bytes, 4 per pixel.
func ImagePixels(img image.Image, height, width int) ([]byte, error) {
	b := img.Bounds()
	if b.Dy() != height || b.Dx() != width {
		return nil, fmt.Errorf("%w: image is %dx%d, want %dx%d", ErrDimensionMismatch, b.Dx(), b.Dy(), width, height)
	}
	out := make([]byte, 0, height*width*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, uint8(r>>8), uint8(g>>8), uint8(bl>>8), 0)
		}
	}
	return out, nil
}
