package pixel

import "math"

// RGB is an opaque 3-channel color, the unit stored in a chunk's base layer.
type RGB struct {
	R, G, B uint8
}

// RGBA is a 4-channel color with alpha, the unit stored in compositor
// overlays.
type RGBA struct {
	R, G, B, A uint8
}

// White is the color a freshly allocated, never-painted chunk is filled
// with.
var White = RGB{255, 255, 255}

func (c RGB) ToRGBA() RGBA {
	return RGBA{c.R, c.G, c.B, 255}
}

// BlendChannel performs gamma-corrected alpha compositing of a single
// channel: out = sqrt((from^2*(255-alpha) + to^2*alpha) / 255).
func BlendChannel(from, to, alpha uint8) uint8 {
	if alpha == 0 {
		return from
	}
	if alpha == 255 {
		return to
	}
	f := float64(from)
	t := float64(to)
	a := float64(alpha)
	v := (f*f*(255-a) + t*t*a) / 255
	return uint8(math.Round(math.Sqrt(v)))
}

// Blend composites `to` over `from` with the given coverage alpha, applying
// BlendChannel per channel. The result is opaque (as an RGB base always is).
func Blend(from RGB, to RGBA) RGB {
	return RGB{
		R: BlendChannel(from.R, to.R, to.A),
		G: BlendChannel(from.G, to.G, to.A),
		B: BlendChannel(from.B, to.B, to.A),
	}
}

// RGBBytesToRGBABytes converts a packed RGB byte buffer to RGBA with
// alpha=255, the on-disk encoding chosen for chunk_data rows (SPEC_FULL.md
// §4.2's v0->v1 migration re-encodes existing rows into exactly this shape,
// so new writes are kept consistent with it).
func RGBBytesToRGBABytes(rgb []byte) []byte {
	n := len(rgb) / 3
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		out[i*4] = rgb[i*3]
		out[i*4+1] = rgb[i*3+1]
		out[i*4+2] = rgb[i*3+2]
		out[i*4+3] = 255
	}
	return out
}

// RGBABytesToRGBBytes strips the alpha channel back out, used when loading a
// stored chunk row into the in-memory RGB base layer.
func RGBABytesToRGBBytes(rgba []byte) []byte {
	n := len(rgba) / 4
	out := make([]byte, n*3)
	for i := 0; i < n; i++ {
		out[i*3] = rgba[i*4]
		out[i*3+1] = rgba[i*4+1]
		out[i*3+2] = rgba[i*4+2]
	}
	return out
}

// BlendStack composites a base color against an ordered list of overlay
// layers (bottom to top), returning the final opaque color.
func BlendStack(base RGB, overlays ...RGBA) RGB {
	out := base
	for _, o := range overlays {
		if o.A == 0 {
			continue
		}
		out = Blend(out, o)
	}
	return out
}
