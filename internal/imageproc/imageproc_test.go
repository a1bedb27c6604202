package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	info, err := Inspect(encodePNG(t, 120, 60))
	require.NoError(t, err)
	assert.Equal(t, Info{Format: "png", MimeType: "image/png", Width: 120, Height: 60}, info)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(10, 20), nil))
	info, err = Inspect(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", info.MimeType)
}

func TestInspect_RejectsNonImage(t *testing.T) {
	_, err := Inspect([]byte("GIF89a not really"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Inspect([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFit_Downscales(t *testing.T) {
	data := encodePNG(t, 200, 100)
	info, err := Inspect(data)
	require.NoError(t, err)

	out, outInfo, resized, err := Fit(data, info, 50, "high")
	require.NoError(t, err)
	assert.True(t, resized)
	assert.Equal(t, 50, outInfo.Width)
	assert.Equal(t, 25, outInfo.Height)

	decoded, err := Inspect(out)
	require.NoError(t, err)
	assert.Equal(t, 50, decoded.Width)
	assert.Equal(t, 25, decoded.Height)
}

func TestFit_LeavesSmallImagesAlone(t *testing.T) {
	data := encodePNG(t, 40, 30)
	info, err := Inspect(data)
	require.NoError(t, err)

	out, outInfo, resized, err := Fit(data, info, 2048, "high")
	require.NoError(t, err)
	assert.False(t, resized)
	assert.Equal(t, data, out)
	assert.Equal(t, info, outInfo)
}

func TestJPEGQuality(t *testing.T) {
	assert.Equal(t, 92, JPEGQuality("high"))
	assert.Equal(t, 82, JPEGQuality("medium"))
	assert.Equal(t, 70, JPEGQuality("low"))
	assert.Equal(t, 92, JPEGQuality(""))
}
