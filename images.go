package harvestbook

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
)

// processImage decodes an uploaded image, downscales it to maxImageWidth if
// wider, and re-encodes it as JPEG. Returns the final dimensions and bytes.
func processImage(src io.Reader) (width, height int, data []byte, err error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return 0, 0, nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return w, h, buf.Bytes(), nil
}
