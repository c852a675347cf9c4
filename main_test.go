package main

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, img image.Image, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, util.SaveImage(img, path))
	return path
}

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestCutout_AlphaMask(t *testing.T) {
	in := writeImage(t, solidNRGBA(6, 6, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), "in.png")
	out := filepath.Join(t.TempDir(), "nested", "out.png")

	got, err := cutout(context.Background(), cliOptions{In: in, Mask: "alpha", Out: out, Tolerance: 10, Threshold: 128})
	require.NoError(t, err)
	assert.Equal(t, out, got)

	img, err := util.OpenImage(out)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, color.NRGBAModel.Convert(img.At(2, 2)))
}

func TestCutout_MaskFileWithBackground(t *testing.T) {
	in := writeImage(t, solidNRGBA(8, 8, color.NRGBA{R: 255, G: 255, B: 255, A: 255}), "in.png")
	// 掩码尺寸与原图不同，会被缩放
	mask := writeImage(t, image.NewGray(image.Rect(0, 0, 4, 4)), "mask.png")
	out := filepath.Join(t.TempDir(), "out.png")

	_, err := cutout(context.Background(), cliOptions{In: in, Mask: mask, Out: out, Bg: "#00ff00", Tolerance: 10, Threshold: 128})
	require.NoError(t, err)

	img, err := util.OpenImage(out)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, color.NRGBAModel.Convert(img.At(4, 4)))
}

func TestCutout_Errors(t *testing.T) {
	in := writeImage(t, solidNRGBA(2, 2, color.NRGBA{A: 255}), "in.png")

	_, err := cutout(context.Background(), cliOptions{In: filepath.Join(t.TempDir(), "missing.png"), Mask: "alpha", Threshold: 128})
	assert.Error(t, err)

	_, err = cutout(context.Background(), cliOptions{In: in, Mask: "alpha", Bg: "nope", Threshold: 128})
	assert.Error(t, err)

	_, err = cutout(context.Background(), cliOptions{In: in, Mask: "alpha", Threshold: 300})
	assert.Error(t, err)
}

func TestNewBackend(t *testing.T) {
	b, err := newBackend(&config.ModelConfig{Backend: "alpha"})
	require.NoError(t, err)
	assert.IsType(t, &rembg.AlphaBackend{}, b)

	b, err = newBackend(&config.ModelConfig{Backend: "remote", BaseURL: "http://127.0.0.1:8188/"})
	require.NoError(t, err)
	assert.IsType(t, &rembg.RemoteBackend{}, b)

	_, err = newBackend(&config.ModelConfig{Backend: "onnx"})
	assert.Error(t, err)
}
