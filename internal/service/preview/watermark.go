package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

const (
	watermarkOpacity = 0.6
	watermarkMargin  = 12
	watermarkPadding = 8
	minFontSize      = 12.0
	maxFontSize      = 28.0
)

var plateColor = color.NRGBA{R: 0, G: 0, B: 0, A: 170}

// Watermark stamps the corner label shared by the PDF, image and office branches.
type Watermark struct {
	label string
	font  *truetype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewWatermark builds the "<product> • Preview" label policy.
func NewWatermark(productName string) (*Watermark, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse watermark font: %w", err)
	}
	return &Watermark{
		label: ImageLabel(productName),
		font:  f,
		faces: make(map[float64]font.Face),
	}, nil
}

// ImageLabel is the text stamped on raster previews.
func ImageLabel(productName string) string { return productName + " • Preview" }

// VideoLabel is the text burned into video previews.
func VideoLabel(productName string) string { return productName + " Preview" }

// Label returns the stamped text.
func (w *Watermark) Label() string { return w.label }

// Apply composites the label plate onto the bottom-right corner of img.
func (w *Watermark) Apply(img image.Image) *image.NRGBA {
	b := img.Bounds()
	plate := w.renderPlate(fontSizeFor(b.Dx()))

	x := b.Min.X + b.Dx() - plate.Bounds().Dx() - watermarkMargin
	y := b.Min.Y + b.Dy() - plate.Bounds().Dy() - watermarkMargin
	pos := image.Pt(max(x, b.Min.X), max(y, b.Min.Y))

	return imaging.Overlay(img, plate, pos, watermarkOpacity)
}

// ApplyFile watermarks the image at src and writes a PNG to dst.
func (w *Watermark) ApplyFile(src, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	if err := imaging.Save(w.Apply(img), dst); err != nil {
		return fmt.Errorf("save %s: %w", dst, err)
	}
	return nil
}

func (w *Watermark) renderPlate(size float64) *image.NRGBA {
	face := w.face(size)
	d := &font.Drawer{Face: face}
	textW := d.MeasureString(w.label).Ceil()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	textH := ascent + metrics.Descent.Ceil()

	plate := image.NewNRGBA(image.Rect(0, 0, textW+2*watermarkPadding, textH+2*watermarkPadding))
	draw.Draw(plate, plate.Bounds(), image.NewUniform(plateColor), image.Point{}, draw.Src)

	d.Dst = plate
	d.Src = image.White
	d.Dot = fixed.P(watermarkPadding, watermarkPadding+ascent)
	d.DrawString(w.label)
	return plate
}

func (w *Watermark) face(size float64) font.Face {
	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(w.font, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	w.faces[size] = f
	return f
}

// fontSizeFor scales the label with the image width, in whole points.
func fontSizeFor(width int) float64 {
	size := float64(width / 40)
	switch {
	case size < minFontSize:
		return minFontSize
	case size > maxFontSize:
		return maxFontSize
	}
	return size
}
