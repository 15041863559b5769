// Package render composes a basemap raster and pixel-space layers into one
// image, with an optional legend or colorbar.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/joeblew999/plat-carto/pkg/basemap"
	"github.com/joeblew999/plat-carto/pkg/project"
)

// pixelDPI makes one vg point one output pixel.
const pixelDPI = 72

// ErrFormat is returned for unsupported output formats.
var ErrFormat = errors.New("render: unsupported format")

// Format is an output encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	SVG  Format = "svg"
)

// ParseFormat accepts png, jpg, jpeg and svg, case-insensitively. An empty
// string selects PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "svg":
		return SVG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrFormat, s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case SVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// Figure is one rendered map: a basemap, layers, and a legend or colorbar.
type Figure struct {
	Map *basemap.Map
	// Width and Height are the output size in pixels.
	Width, Height int

	scale    float64
	layers   []Layer
	legend   []LegendEntry
	colorbar *Colorbar
}

// NewFigure creates a figure over m scaled to width pixels, keeping the
// raster's aspect ratio. A width of zero keeps the raster size.
func NewFigure(m *basemap.Map, width int) *Figure {
	w, h := m.Width(), m.Height()
	if width <= 0 || w == 0 {
		width = w
	}
	scale := 1.0
	if w > 0 {
		scale = float64(width) / float64(w)
	}
	return &Figure{
		Map:    m,
		Width:  width,
		Height: int(math.Round(float64(h) * scale)),
		scale:  scale,
	}
}

// AddLayer adds l, keeping layers ordered by Z. Equal Z keep insertion order.
func (f *Figure) AddLayer(l Layer) {
	f.layers = append(f.layers, l)
	sort.SliceStable(f.layers, func(i, j int) bool { return f.layers[i].Z < f.layers[j].Z })
}

// Layers returns the layers in drawing order.
func (f *Figure) Layers() []Layer {
	return append([]Layer(nil), f.layers...)
}

// SetLegend replaces the legend. Nil removes it.
func (f *Figure) SetLegend(entries []LegendEntry) {
	f.legend = entries
}

// Legend returns the legend entries.
func (f *Figure) Legend() []LegendEntry { return f.legend }

// SetColorbar replaces the colorbar. Nil removes it.
func (f *Figure) SetColorbar(cb *Colorbar) {
	f.colorbar = cb
}

// Colorbar returns the colorbar, or nil.
func (f *Figure) Colorbar() *Colorbar { return f.colorbar }

// Draw renders the figure onto c, which should be Width x Height points.
func (f *Figure) Draw(c vg.CanvasSizer) {
	dc := draw.New(c)
	f.drawBasemap(dc)
	for _, l := range f.layers {
		for _, it := range l.Items {
			f.drawItem(dc, it)
		}
	}
	if len(f.legend) > 0 {
		drawLegend(dc, f.legend)
	}
	if f.colorbar != nil && f.colorbar.Orientation != NoColorbar && f.colorbar.Bins.Len() > 0 {
		drawColorbar(dc, *f.colorbar)
	}
}

// Image renders the figure to a raster.
func (f *Figure) Image() image.Image {
	c := f.rasterCanvas()
	f.Draw(c)
	return c.Image()
}

// WriteTo encodes the figure to w.
func (f *Figure) WriteTo(w io.Writer, format Format) (int64, error) {
	switch format {
	case PNG, "":
		c := f.rasterCanvas()
		f.Draw(c)
		return vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	case JPEG:
		c := f.rasterCanvas()
		f.Draw(c)
		return vgimg.JpegCanvas{Canvas: c}.WriteTo(w)
	case SVG:
		c := vgsvg.New(vg.Length(f.Width), vg.Length(f.Height))
		f.Draw(c)
		return c.WriteTo(w)
	default:
		return 0, fmt.Errorf("%w: %q", ErrFormat, format)
	}
}

// rasterCanvas is sized so that one point is one output pixel.
func (f *Figure) rasterCanvas() *vgimg.Canvas {
	return vgimg.NewWith(
		vgimg.UseWH(vg.Length(f.Width), vg.Length(f.Height)),
		vgimg.UseDPI(pixelDPI),
	)
}

func (f *Figure) drawBasemap(dc draw.Canvas) {
	if f.Map == nil || f.Map.Image == nil || f.Width == 0 || f.Height == 0 {
		return
	}
	src := f.Map.Image
	if f.Width != f.Map.Width() || f.Height != f.Map.Height() {
		dst := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		src = dst
	}
	dc.DrawImage(dc.Rectangle, src)
}

// point maps a raster pixel to canvas coordinates; vg's y axis points up.
func (f *Figure) point(dc draw.Canvas, p project.Pixel) vg.Point {
	return vg.Point{
		X: dc.Min.X + vg.Length(p.X*f.scale),
		Y: dc.Max.Y - vg.Length(p.Y*f.scale),
	}
}

func (f *Figure) points(dc draw.Canvas, ring []project.Pixel) []vg.Point {
	out := make([]vg.Point, len(ring))
	for i, p := range ring {
		out[i] = f.point(dc, p)
	}
	return out
}

func (f *Figure) drawItem(dc draw.Canvas, it Item) {
	g := it.Geometry
	if g.Empty() {
		return
	}
	s := it.Style
	switch g.Kind {
	case project.Polygon:
		ring := f.points(dc, g.Rings[0])
		if s.Fill != nil {
			dc.FillPolygon(withAlpha(s.Fill, s.Alpha), ring)
		}
		if s.Stroke != nil && s.LineWidth > 0 {
			dc.StrokeLines(lineStyle(s), ring)
		}
	case project.Line:
		if s.Stroke != nil && s.LineWidth > 0 {
			dc.StrokeLines(lineStyle(s), f.points(dc, g.Rings[0]))
		}
	case project.Point:
		if s.Fill == nil || s.Size <= 0 {
			return
		}
		dc.DrawGlyph(draw.GlyphStyle{
			Color:  withAlpha(s.Fill, s.Alpha),
			Radius: vg.Length(math.Sqrt(s.Size) / 2),
			Shape:  draw.CircleGlyph{},
		}, f.point(dc, g.Rings[0][0]))
	}
}

func lineStyle(s Style) draw.LineStyle {
	return draw.LineStyle{
		Color: withAlpha(s.Stroke, s.Alpha),
		Width: vg.Length(s.LineWidth),
	}
}

var panelBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 204}

func fillRect(dc draw.Canvas, r vg.Rectangle, c color.Color) {
	dc.FillPolygon(c, []vg.Point{
		r.Min,
		{X: r.Max.X, Y: r.Min.Y},
		r.Max,
		{X: r.Min.X, Y: r.Max.Y},
	})
}
