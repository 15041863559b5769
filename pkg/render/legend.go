package render

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/joeblew999/plat-carto/pkg/classify"
)

const (
	panelInset  = vg.Length(10)
	labelSize   = vg.Length(10)
	barBreadth  = vg.Length(14)
	tickPadding = vg.Length(4)
)

// patchThumb is a filled square legend thumbnail.
type patchThumb struct{ c color.Color }

func (p patchThumb) Thumbnail(c *draw.Canvas) {
	fillRect(*c, c.Rectangle, p.c)
}

// markerThumb is a circle legend thumbnail.
type markerThumb struct{ c color.Color }

func (m markerThumb) Thumbnail(c *draw.Canvas) {
	r := c.Rectangle
	c.DrawGlyph(draw.GlyphStyle{
		Color:  m.c,
		Radius: r.Size().Y / 3,
		Shape:  draw.CircleGlyph{},
	}, vg.Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2})
}

// drawLegend places a legend in the top right corner over a translucent panel.
func drawLegend(dc draw.Canvas, entries []LegendEntry) {
	leg := plot.NewLegend()
	leg.Top = true
	leg.XOffs = -panelInset
	leg.YOffs = -panelInset
	leg.TextStyle.Font = font.From(plot.DefaultFont, labelSize)
	leg.TextStyle.Color = color.Black
	for _, e := range entries {
		c := withAlpha(e.Color, e.Alpha)
		if e.Marker {
			leg.Add(e.Label, markerThumb{c})
		} else {
			leg.Add(e.Label, patchThumb{c})
		}
	}

	r := leg.Rectangle(dc)
	fillRect(dc, vg.Rectangle{
		Min: vg.Point{X: r.Min.X - tickPadding, Y: r.Min.Y - tickPadding},
		Max: vg.Point{X: r.Max.X + tickPadding, Y: r.Max.Y + tickPadding},
	}, panelBackground)
	leg.Draw(dc)
}

// drawColorbar draws one uniform segment per interval, labelled with the
// interval bounds, and the column name alongside.
func drawColorbar(dc draw.Canvas, cb Colorbar) {
	bins := cb.Bins
	n := bins.Len()
	values := append(append([]float64(nil), bins.Breaks...), bins.Max)

	sty := text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, labelSize),
		Handler: plot.DefaultTextHandler,
	}
	labelWidth := vg.Length(0)
	for _, v := range values {
		labelWidth = max(labelWidth, sty.Width(classify.FormatValue(v)))
	}
	titleHeight := sty.Height(cb.Label)
	w, h := dc.Max.X-dc.Min.X, dc.Max.Y-dc.Min.Y

	if cb.Orientation == Horizontal {
		length := w / 2
		x0 := dc.Min.X + (w-length)/2
		y0 := dc.Min.Y + panelInset + titleHeight + sty.Height("0") + 2*tickPadding
		fillRect(dc, vg.Rectangle{
			Min: vg.Point{X: x0 - labelWidth/2 - tickPadding, Y: dc.Min.Y + panelInset - tickPadding},
			Max: vg.Point{X: x0 + length + labelWidth/2 + tickPadding, Y: y0 + barBreadth + tickPadding},
		}, panelBackground)

		seg := length / vg.Length(n)
		for i := 0; i < n; i++ {
			fillRect(dc, vg.Rectangle{
				Min: vg.Point{X: x0 + seg*vg.Length(i), Y: y0},
				Max: vg.Point{X: x0 + seg*vg.Length(i+1), Y: y0 + barBreadth},
			}, withAlpha(bins.Colors[i], cb.Alpha))
		}
		sty.XAlign, sty.YAlign = text.XCenter, text.YTop
		for i, v := range values {
			dc.FillText(sty, vg.Point{X: x0 + seg*vg.Length(i), Y: y0 - tickPadding}, classify.FormatValue(v))
		}
		sty.YAlign = text.YBottom
		dc.FillText(sty, vg.Point{X: x0 + length/2, Y: dc.Min.Y + panelInset}, cb.Label)
		return
	}

	length := h / 2
	y0 := dc.Min.Y + (h-length)/2
	x0 := dc.Max.X - panelInset - labelWidth - tickPadding - barBreadth
	fillRect(dc, vg.Rectangle{
		Min: vg.Point{X: x0 - tickPadding, Y: y0 - tickPadding - labelSize/2},
		Max: vg.Point{X: dc.Max.X - panelInset + tickPadding, Y: y0 + length + titleHeight + 2*tickPadding},
	}, panelBackground)

	seg := length / vg.Length(n)
	for i := 0; i < n; i++ {
		fillRect(dc, vg.Rectangle{
			Min: vg.Point{X: x0, Y: y0 + seg*vg.Length(i)},
			Max: vg.Point{X: x0 + barBreadth, Y: y0 + seg*vg.Length(i+1)},
		}, withAlpha(bins.Colors[i], cb.Alpha))
	}
	sty.XAlign, sty.YAlign = text.XLeft, text.YCenter
	for i, v := range values {
		dc.FillText(sty, vg.Point{X: x0 + barBreadth + tickPadding, Y: y0 + seg*vg.Length(i)}, classify.FormatValue(v))
	}
	sty.XAlign, sty.YAlign = text.XRight, text.YBottom
	dc.FillText(sty, vg.Point{X: dc.Max.X - panelInset, Y: y0 + length + tickPadding}, cb.Label)
}
