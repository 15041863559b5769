package classify

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"
)

// DefaultPalette is used when no palette name is given.
const DefaultPalette = "viridis"

const (
	brewerMin = 3
	brewerMax = 12
)

var colorMaps = map[string]func() palette.ColorMap{
	"kindlmann":          moreland.Kindlmann,
	"extended-kindlmann": moreland.ExtendedKindlmann,
	"blackbody":          moreland.BlackBody,
	"extended-blackbody": moreland.ExtendedBlackBody,
	"smooth-blue-red":    func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"viridis":            viridis,
}

// viridisControls are the viridis key colors, dark to light.
var viridisControls = []color.Color{
	color.NRGBA{0x44, 0x01, 0x54, 0xff},
	color.NRGBA{0x48, 0x28, 0x78, 0xff},
	color.NRGBA{0x3e, 0x49, 0x89, 0xff},
	color.NRGBA{0x31, 0x68, 0x8e, 0xff},
	color.NRGBA{0x26, 0x82, 0x8e, 0xff},
	color.NRGBA{0x1f, 0x9e, 0x89, 0xff},
	color.NRGBA{0x35, 0xb7, 0x79, 0xff},
	color.NRGBA{0x6e, 0xce, 0x58, 0xff},
	color.NRGBA{0xb5, 0xde, 0x2b, 0xff},
	color.NRGBA{0xfd, 0xe7, 0x25, 0xff},
}

func viridis() palette.ColorMap {
	cm, err := moreland.NewLuminance(viridisControls)
	if err != nil {
		panic(err)
	}
	return cm
}

// brewerNames are the ColorBrewer schemes offered by Palettes.
var brewerNames = []string{
	"Blues", "BuGn", "BuPu", "GnBu", "Greens", "Greys", "OrRd", "Oranges", "PuBu",
	"PuBuGn", "PuRd", "Purples", "RdPu", "Reds", "YlGn", "YlGnBu", "YlOrBr", "YlOrRd",
	"BrBG", "PiYG", "PRGn", "PuOr", "RdBu", "RdGy", "RdYlBu", "RdYlGn", "Spectral",
	"Accent", "Dark2", "Paired", "Pastel1", "Pastel2", "Set1", "Set2", "Set3",
}

// Palette returns n colors from the named palette.
//
// ColorBrewer names (YlGnBu, Set1, RdBu, ...), viridis and the Moreland
// color maps (kindlmann, blackbody, smooth-blue-red, ...) are supported; a
// "_r" suffix reverses the order. The n colors are distinct and in palette
// order: brewer palettes shorter than n are stretched by interpolating their
// largest variant.
func Palette(name string, n int) ([]color.Color, error) {
	if n <= 0 {
		return nil, nil
	}
	if name == "" {
		name = DefaultPalette
	}
	base, reversed := strings.CutSuffix(name, "_r")

	var (
		colors []color.Color
		err    error
	)
	if cm, ok := colorMaps[strings.ToLower(base)]; ok {
		colors, err = sampleColorMap(cm(), n)
	} else {
		colors, err = brewerColors(base, n)
	}
	if err != nil {
		return nil, err
	}
	if reversed {
		for i, j := 0, len(colors)-1; i < j; i, j = i+1, j-1 {
			colors[i], colors[j] = colors[j], colors[i]
		}
	}
	return colors, nil
}

// Palettes lists the registered palette names.
func Palettes() []string {
	names := make([]string, 0, len(colorMaps))
	for name := range colorMaps {
		names = append(names, name)
	}
	names = append(names, brewerNames...)
	sort.Strings(names)
	return names
}

func brewerColors(name string, n int) ([]color.Color, error) {
	want := max(n, brewerMin)
	want = min(want, brewerMax)
	var (
		p   palette.Palette
		err error
	)
	for c := want; c >= brewerMin; c-- {
		p, err = brewer.GetPalette(brewer.TypeAny, name, c)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
	}

	avail := p.Colors()
	if n <= len(avail) {
		return append([]color.Color(nil), avail[:n]...), nil
	}
	return stretch(avail, n)
}

// stretch returns n colors running from the first to the last of controls.
// Sequential palettes are interpolated in CIE L*a*b* by luminance; the rest
// are interpolated linearly between neighbouring controls.
func stretch(controls []color.Color, n int) ([]color.Color, error) {
	if cm, err := moreland.NewLuminance(controls); err == nil {
		return sampleColorMap(cm, n)
	}
	if cm, err := moreland.NewLuminance(reversed(controls)); err == nil {
		return sampleColorMap(palette.Reverse(cm), n)
	}

	out := make([]color.Color, n)
	last := float64(len(controls) - 1)
	for i := range out {
		pos := float64(i) / float64(n-1) * last
		j := min(int(pos), len(controls)-2)
		out[i] = lerp(controls[j], controls[j+1], pos-float64(j))
	}
	return out, nil
}

func reversed(colors []color.Color) []color.Color {
	out := make([]color.Color, len(colors))
	for i, c := range colors {
		out[len(colors)-1-i] = c
	}
	return out
}

// lerp mixes a and b at 16 bits per channel so nearby samples stay distinct.
func lerp(a, b color.Color, t float64) color.Color {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	mix := func(x, y uint32) uint16 {
		return uint16(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA64{R: mix(ar, br), G: mix(ag, bg), B: mix(ab, bb), A: mix(aa, ba)}
}

func sampleColorMap(cm palette.ColorMap, n int) ([]color.Color, error) {
	cm.SetMin(0)
	cm.SetMax(1)
	out := make([]color.Color, n)
	for i := range out {
		t := 0.5
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		c, err := cm.At(t)
		if err != nil {
			return nil, fmt.Errorf("sampling color map: %w", err)
		}
		out[i] = c
	}
	return out, nil
}
