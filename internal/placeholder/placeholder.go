// Package placeholder draws the solid-colour cover images used by posts.
package placeholder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	Width  = 400
	Height = 300

	// DataURIPrefix starts every generated image value.
	DataURIPrefix = "data:image/png;base64,"

	textScale = 6
)

var ErrNotDataURI = errors.New("not a png data uri")

// RandomColor picks an opaque colour from rng.
func RandomColor(rng *rand.Rand) color.RGBA {
	return color.RGBA{
		R: uint8(rng.Intn(256)),
		G: uint8(rng.Intn(256)),
		B: uint8(rng.Intn(256)),
		A: 0xff,
	}
}

// Initials returns up to two upper-cased leading letters of label's words.
func Initials(label string) string {
	var out []rune
	for _, word := range strings.Fields(label) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// Render 生成纯色背景并在中心绘制标题首字母。
func Render(bg color.RGBA, label string) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	text := Initials(label)
	if text == "" || !isASCII(text) {
		return canvas
	}

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	// draw the glyphs small, then scale them up onto the canvas
	small := image.NewRGBA(image.Rect(0, 0, textWidth, textHeight))
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(foreground(bg)),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	w, h := textWidth*textScale, textHeight*textScale
	x0 := (Width - w) / 2
	y0 := (Height - h) / 2
	target := image.Rect(x0, y0, x0+w, y0+h)
	draw.NearestNeighbor.Scale(canvas, target, small, small.Bounds(), draw.Over, nil)
	return canvas
}

// PNG encodes a random-colour placeholder for label.
func PNG(rng *rand.Rand, label string) ([]byte, error) {
	return encode(Render(RandomColor(rng), label))
}

// DataURI returns the placeholder as an inline data URI suitable for <img src>.
func DataURI(rng *rand.Rand, label string) (string, error) {
	raw, err := PNG(rng, label)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// ForSlug draws a placeholder whose colour is derived from slug, so the
// same post always gets the same image.
func ForSlug(slug, label string) ([]byte, error) {
	h := fnv.New64a()
	h.Write([]byte(slug))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return PNG(rng, label)
}

// DecodeDataURI extracts the PNG bytes from a value produced by DataURI.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, DataURIPrefix) {
		return nil, ErrNotDataURI
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, DataURIPrefix))
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func foreground(bg color.RGBA) color.Color {
	// perceived luminance, ITU-R BT.601
	lum := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if lum > 150 {
		return color.Black
	}
	return color.White
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
