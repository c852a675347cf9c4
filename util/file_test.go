package util

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 128})
	img.SetNRGBA(2, 1, color.NRGBA{B: 255, A: 0})
	return img
}

func TestEncodeDecodePNG(t *testing.T) {
	t.Parallel()

	data, err := EncodePNG(testImage())
	require.NoError(t, err)

	got, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), got.Bounds())

	r, _, _, a := got.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), a)
}

func TestDecodeImage_Invalid(t *testing.T) {
	t.Parallel()

	_, err := DecodeImage([]byte("not an image"))
	assert.ErrorContains(t, err, "decode image")
}

func TestSaveAndOpenImage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "out.png")
	require.NoError(t, SaveImage(testImage(), path))

	got, err := OpenImage(path)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Bounds().Dx())
	assert.Equal(t, 2, got.Bounds().Dy())
}

func TestBytesMD5(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", BytesMD5(nil))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", BytesMD5([]byte("abc")))
}
