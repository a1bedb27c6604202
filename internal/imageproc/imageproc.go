// Package imageproc inspects uploaded images and downscales oversized ones.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var ErrUnsupportedFormat = errors.New("unsupported image format: only JPEG, PNG and WebP are allowed")

type Info struct {
	Format   string // jpeg | png | webp
	MimeType string
	Width    int
	Height   int
}

// Inspect decodes only the header and rejects formats other than JPEG, PNG and WebP.
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnsupportedFormat
		}
		return Info{}, fmt.Errorf("failed to read image: %w", err)
	}

	mimeType, ok := mimeTypes[format]
	if !ok {
		return Info{}, ErrUnsupportedFormat
	}
	return Info{Format: format, MimeType: mimeType, Width: cfg.Width, Height: cfg.Height}, nil
}

var mimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
}

// Fit shrinks the image so neither side exceeds maxDim. Images already within
// bounds, or maxDim <= 0, are returned untouched with resized == false. WebP
// input is re-encoded as PNG since there is no WebP encoder.
func Fit(data []byte, info Info, maxDim int, quality string) (out []byte, outInfo Info, resized bool, err error) {
	if maxDim <= 0 || (info.Width <= maxDim && info.Height <= maxDim) {
		return data, info, false, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, Info{}, false, fmt.Errorf("failed to decode image: %w", err)
	}
	img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	format, outFormat := imaging.PNG, "png"
	if info.Format == "jpeg" {
		format, outFormat = imaging.JPEG, "jpeg"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(JPEGQuality(quality))); err != nil {
		return nil, Info{}, false, fmt.Errorf("failed to encode image: %w", err)
	}

	bounds := img.Bounds()
	return buf.Bytes(), Info{
		Format:   outFormat,
		MimeType: mimeTypes[outFormat],
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, true, nil
}

// JPEGQuality maps the configured output quality to an encoder setting.
func JPEGQuality(quality string) int {
	switch quality {
	case "low":
		return 70
	case "medium":
		return 82
	default:
		return 92
	}
}
