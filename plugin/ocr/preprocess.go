package ocr

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// minOCRWidth is the width small images are upscaled to; Tesseract struggles
// with glyphs under roughly 20px.
const minOCRWidth = 1200

// Preprocess decodes an image, fixes EXIF orientation, upscales small images,
// converts to grayscale, and boosts contrast. The result is PNG encoded.
func Preprocess(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}

	var out image.Image = img
	if out.Bounds().Dx() < minOCRWidth {
		out = imaging.Resize(out, minOCRWidth, 0, imaging.Lanczos)
	}
	out = imaging.Grayscale(out)
	out = imaging.AdjustContrast(out, 20)
	out = imaging.Sharpen(out, 0.8)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}
	return buf.Bytes(), nil
}
