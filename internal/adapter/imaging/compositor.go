// Package imaging implements the pipeline's compositor on the standard
// image model: alpha compositing, chart preparation, high-quality
// resampling, and frame decoration.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/halcyon-wx/frameline/internal/domain"
	"github.com/halcyon-wx/frameline/internal/pipeline"
)

const (
	labelFontSize = 24
	labelPadY     = 2
	logoHeight    = 96
	logoSpacing   = 4
	logoMargin    = 8

	// Chart scans carry a header strip and a footer legend that are not
	// part of the map; both are trimmed before compositing.
	chartTrimTop    = 8
	chartTrimBottom = 36
)

// boxFill is the translucent black backing behind every label.
var boxFill = color.NRGBA{0, 0, 0, 0x80}

// Compositor implements pipeline.Compositor.
type Compositor struct {
	face   font.Face
	logos  []image.Image
	logger *slog.Logger
}

// New creates a Compositor. logoPaths are branding images pasted on every
// frame, scaled to a common height; a missing logo is logged and skipped
// rather than failing the run.
func New(logger *slog.Logger, logoPaths []string) (*Compositor, error) {
	ft, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse label font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size:    labelFontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("build label face: %w", err)
	}

	c := &Compositor{face: face, logger: logger}
	for _, path := range logoPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("logo unavailable", "path", path, "error", err)
			continue
		}
		img, err := c.Decode(data)
		if err != nil {
			logger.Warn("logo undecodable", "path", path, "error", err)
			continue
		}
		c.logos = append(c.logos, scaleToHeight(img, logoHeight))
	}
	return c, nil
}

// Decode decodes a PNG or JPG asset.
func (c *Compositor) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// PrepareChart turns a scanned surface-analysis chart into an overlay:
// the header/footer strips are trimmed, white background becomes
// transparent, and near-black linework becomes white so it reads against
// dark ocean imagery. The agency's "black" ink is not pure black, hence
// the channel thresholds.
func (c *Compositor) PrepareChart(data []byte) (image.Image, error) {
	src, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	trimmed := image.Rect(b.Min.X, b.Min.Y+chartTrimTop, b.Max.X, b.Max.Y-chartTrimBottom)
	if trimmed.Empty() {
		return nil, fmt.Errorf("chart too small to trim: %dx%d", b.Dx(), b.Dy())
	}

	out := image.NewNRGBA(image.Rect(0, 0, trimmed.Dx(), trimmed.Dy()))
	for y := trimmed.Min.Y; y < trimmed.Max.Y; y++ {
		for x := trimmed.Min.X; x < trimmed.Max.X; x++ {
			r, g, b8, a := rgba8(src.At(x, y))
			px := color.NRGBA{r, g, b8, a}
			switch {
			case r == 255 && g == 255 && b8 == 255:
				px = color.NRGBA{255, 255, 255, 0}
			case r == 0 && g <= 30 && b8 <= 35:
				px = color.NRGBA{255, 255, 255, 255}
			}
			out.SetNRGBA(x-trimmed.Min.X, y-trimmed.Min.Y, px)
		}
	}
	return out, nil
}

// OverlayBaseMap alpha-composites a static overlay onto base: opaque
// where the overlay is defined, untouched elsewhere.
func (c *Compositor) OverlayBaseMap(base, overlay image.Image) image.Image {
	dst := cloneNRGBA(base)
	draw.Draw(dst, overlay.Bounds().Sub(overlay.Bounds().Min).Add(dst.Bounds().Min), overlay, overlay.Bounds().Min, draw.Over)
	return dst
}

// OverlayChart composites a prepared chart onto base at the given
// opacity, masked by the chart's own alpha: each chart pixel's alpha is
// scaled by opacity/255 before the composite.
func (c *Compositor) OverlayChart(base, chartImg image.Image, opacity int) image.Image {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 255 {
		opacity = 255
	}
	faded := image.NewNRGBA(chartImg.Bounds().Sub(chartImg.Bounds().Min))
	cb := chartImg.Bounds()
	for y := cb.Min.Y; y < cb.Max.Y; y++ {
		for x := cb.Min.X; x < cb.Max.X; x++ {
			r, g, b8, a := rgba8(chartImg.At(x, y))
			a = uint8(int(a) * opacity / 255)
			faded.SetNRGBA(x-cb.Min.X, y-cb.Min.Y, color.NRGBA{r, g, b8, a})
		}
	}

	dst := cloneNRGBA(base)
	draw.Draw(dst, faded.Bounds().Add(dst.Bounds().Min), faded, image.Point{}, draw.Over)
	return dst
}

// CropResize crops img to the given rectangle and resamples to
// width x height with a Catmull-Rom kernel.
func (c *Compositor) CropResize(img image.Image, crop domain.PixelRect, width, height int) image.Image {
	b := img.Bounds()
	srcRect := image.Rect(b.Min.X+crop.X0, b.Min.Y+crop.Y0, b.Min.X+crop.X1, b.Min.Y+crop.Y1)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, srcRect, xdraw.Src, nil)
	return dst
}

// Decorate stamps the frame's labels and branding: capture-time box top
// left, optional status caveat top right, chart valid-time box beneath
// the capture time, optional local-time label, and the logo strip along
// the bottom left with a credits box above it.
func (c *Compositor) Decorate(img image.Image, dec pipeline.Decoration) (image.Image, error) {
	dst := cloneNRGBA(img)
	canvas := image.NewNRGBA(dst.Bounds())

	metrics := c.face.Metrics()
	lineHeight := metrics.Height.Ceil() + 2*labelPadY

	x, y := 4, 8
	satLabel := fmt.Sprintf(" %s %s ", displaySatellite(dec.Satellite), dec.FrameTime.Display())
	c.drawLabel(canvas, x, y, satLabel)

	if dec.Caveat != "" {
		w := font.MeasureString(c.face, " "+dec.Caveat+" ").Ceil()
		c.drawLabel(canvas, dst.Bounds().Dx()-w-x, y, " "+dec.Caveat+" ")
	}

	if dec.HasChart {
		y += lineHeight
		c.drawLabel(canvas, x, y, fmt.Sprintf(" Surface Analysis %s ", dec.ChartTime.Display()))
	}

	if dec.Timezone != "" {
		loc, err := time.LoadLocation(dec.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load display timezone %q: %w", dec.Timezone, err)
		}
		y += lineHeight
		c.drawLabel(canvas, x, y, " "+dec.FrameTime.DisplayIn(loc)+" ")
	}

	if len(c.logos) > 0 {
		lx := logoMargin
		ly := dst.Bounds().Dy() - logoHeight - logoMargin
		for _, logo := range c.logos {
			draw.DrawMask(dst, logo.Bounds().Add(image.Pt(lx, ly)), logo, logo.Bounds().Min, logo, logo.Bounds().Min, draw.Over)
			lx += logo.Bounds().Dx() + logoSpacing
		}

		credits := " Image Credits "
		ch := metrics.Height.Ceil() + 2*labelPadY
		cy := dst.Bounds().Dy() - logoHeight - logoMargin - logoSpacing - ch
		c.drawLabel(canvas, logoMargin, cy, credits)
	}

	draw.Draw(dst, dst.Bounds(), canvas, canvas.Bounds().Min, draw.Over)
	return dst, nil
}

// Encode serializes img to the region's output format.
func (c *Compositor) Encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, fmt.Errorf("encode jpg: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	return buf.Bytes(), nil
}

// drawLabel paints one padded text box: translucent black backing, white
// monospace text.
func (c *Compositor) drawLabel(canvas *image.NRGBA, x, y int, text string) {
	metrics := c.face.Metrics()
	w := font.MeasureString(c.face, text).Ceil()
	h := metrics.Height.Ceil() + 2*labelPadY

	box := image.Rect(x, y, x+w, y+h)
	draw.Draw(canvas, box, image.NewUniform(boxFill), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.NRGBA{255, 255, 255, 255}),
		Face: c.face,
		Dot:  fixed.P(x, y+labelPadY+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
}

// displaySatellite renders a satellite key for labels: "goes-17" →
// "GOES-17".
func displaySatellite(key string) string {
	out := make([]byte, len(key))
	for i := 0; i < len(key); i++ {
		b := key[i]
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		out[i] = b
	}
	return string(out)
}

// scaleToHeight resizes img to a target height preserving aspect ratio.
func scaleToHeight(img image.Image, h int) image.Image {
	b := img.Bounds()
	if b.Dy() == h || b.Dy() == 0 {
		return img
	}
	w := b.Dx() * h / b.Dy()
	if w < 1 {
		w = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// cloneNRGBA copies any image into a zero-origin NRGBA buffer.
func cloneNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// rgba8 flattens a color to non-premultiplied 8-bit channels.
func rgba8(c color.Color) (r, g, b, a uint8) {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R, n.G, n.B, n.A
}
