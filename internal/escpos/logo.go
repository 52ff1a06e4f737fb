package escpos

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // decoder registration
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/nfnt/resize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/math/fixed"

	"github.com/adcondev/ticket-bridge/internal/profile"
)

const (
	// logoMaxHeight keeps the NV logo within the printer's storage limits.
	logoMaxHeight = 240
	// logoThreshold is the lightness at or below which a pixel is printed.
	logoThreshold = 0.5

	lumR, lumG, lumB = 55, 182, 18
)

// ErrEmptyLogo is returned when an image has no printable area.
var ErrEmptyLogo = errors.New("logo image is empty")

// Logo is a monochrome bitmap sized in multiples of 8 dots.
type Logo struct {
	Width  int
	Height int
	// dots holds one bool per pixel, row-major; true prints black.
	dots []bool
}

// NewLogo scales img to fit the paper and thresholds it to monochrome.
func NewLogo(img image.Image, paper profile.PaperProfile) (Logo, error) {
	sz := img.Bounds().Size()
	if sz.X == 0 || sz.Y == 0 {
		return Logo{}, ErrEmptyLogo
	}

	maxWidth := paper.Dots / 2
	if sz.X > maxWidth || sz.Y > logoMaxHeight {
		img = resize.Thumbnail(uint(maxWidth), logoMaxHeight, img, resize.Lanczos3)
		sz = img.Bounds().Size()
	}

	w := roundUp8(sz.X)
	h := roundUp8(sz.Y)
	l := Logo{Width: w, Height: h, dots: make([]bool, w*h)}

	origin := img.Bounds().Min
	for y := 0; y < sz.Y; y++ {
		for x := 0; x < sz.X; x++ {
			if lightness(img.At(origin.X+x, origin.Y+y)) <= logoThreshold {
				l.dots[y*w+x] = true
			}
		}
	}
	return l, nil
}

// LoadLogo decodes a PNG, JPEG or GIF file and converts it with NewLogo.
func LoadLogo(path string, paper profile.PaperProfile) (Logo, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return Logo{}, fmt.Errorf("failed to open logo: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return Logo{}, fmt.Errorf("failed to decode logo: %w", err)
	}
	return NewLogo(img, paper)
}

// RenderTextLogo draws text centered on a white canvas one paper-half wide.
// It stands in for an image when a store has no logo file.
func RenderTextLogo(text string, paper profile.PaperProfile, size float64) (image.Image, error) {
	f, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 18
	}

	face := truetype.NewFace(f, &truetype.Options{Size: size, DPI: 203})
	metrics := face.Metrics()
	width := paper.Dots / 2
	height := metrics.Height.Ceil() + 8
	if height > logoMaxHeight {
		height = logoMaxHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(203)
	c.SetFont(f)
	c.SetFontSize(size)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(&image.Uniform{C: color.Black})
	c.SetHinting(font.HintingFull)

	x := (width - measure(face, text)) / 2
	if x < 0 {
		x = 0
	}
	if _, err := c.DrawString(text, freetype.Pt(x, metrics.Ascent.Ceil()+4)); err != nil {
		return nil, err
	}
	return img, nil
}

// StoreCommand encodes FS q 1 for this bitmap. Data is column-major with the
// most significant bit at the top of each 8-dot group.
func (l Logo) StoreCommand() []byte {
	xUnits := l.Width / 8
	yUnits := l.Height / 8

	out := make([]byte, 0, len(LogoStore)+4+l.Width*yUnits)
	out = append(out, LogoStore...)
	out = append(out, byte(xUnits), byte(xUnits>>8), byte(yUnits), byte(yUnits>>8))

	for x := 0; x < l.Width; x++ {
		for yb := 0; yb < yUnits; yb++ {
			var b byte
			for bit := 0; bit < 8; bit++ {
				if l.dots[(yb*8+bit)*l.Width+x] {
					b |= 0x80 >> uint(bit)
				}
			}
			out = append(out, b)
		}
	}
	return out
}

// Black reports whether the dot at (x, y) prints.
func (l Logo) Black(x, y int) bool {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return false
	}
	return l.dots[y*l.Width+x]
}

func roundUp8(n int) int {
	return (n + 7) &^ 7
}

// lightness treats transparent pixels as paper.
func lightness(c color.Color) float64 {
	r, g, b, a := c.RGBA()
	if a < 0x8000 {
		return 1
	}
	return float64(lumR*r+lumG*g+lumB*b) / float64(0xffff*(lumR+lumG+lumB))
}

func measure(face font.Face, s string) int {
	var w fixed.Int26_6
	for _, r := range s {
		if adv, ok := face.GlyphAdvance(r); ok {
			w += adv
		}
	}
	return w.Ceil()
}
