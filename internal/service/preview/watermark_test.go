package preview

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermarkLabels(t *testing.T) {
	assert.Equal(t, "CoachMart • Preview", ImageLabel("CoachMart"))
	assert.Equal(t, "CoachMart Preview", VideoLabel("CoachMart"))
	assert.Equal(t, "CoachMart • Preview", newTestWatermark(t).Label())
}

func TestWatermarkApply_BottomRight(t *testing.T) {
	wm := newTestWatermark(t)
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	src := imaging.New(800, 600, white)

	out := wm.Apply(src)
	require.Equal(t, image.Rect(0, 0, 800, 600), out.Bounds())

	assert.Equal(t, white, out.NRGBAAt(5, 5), "top-left untouched")
	assert.Equal(t, white, out.NRGBAAt(795, 595), "margin untouched")

	// The plate darkens the area just inside the bottom-right margin.
	px := out.NRGBAAt(800-watermarkMargin-2, 600-watermarkMargin-2)
	assert.Less(t, px.R, white.R)
}

func TestWatermarkApply_TinyImage(t *testing.T) {
	wm := newTestWatermark(t)
	out := wm.Apply(imaging.New(20, 10, color.White))
	assert.Equal(t, image.Rect(0, 0, 20, 10), out.Bounds())
}

func TestWatermarkApplyFile(t *testing.T) {
	wm := newTestWatermark(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	dst := filepath.Join(dir, "out.png")
	mustWritePNG(t, src, 300, 200)

	require.NoError(t, wm.ApplyFile(src, dst))
	img, err := imaging.Open(dst)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())

	require.Error(t, wm.ApplyFile(filepath.Join(dir, "missing.png"), dst))
}

func TestFontSizeFor(t *testing.T) {
	assert.InDelta(t, minFontSize, fontSizeFor(100), 0)
	assert.InDelta(t, 20.0, fontSizeFor(800), 0)
	assert.InDelta(t, maxFontSize, fontSizeFor(4000), 0)
}
