package lantern

import (
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Filter is a visual effect applied to a texturizer's offscreen output before
// it is drawn or consumed.
type Filter interface {
	// Apply renders src into dst with the effect. Both have the same size.
	Apply(src, dst *ebiten.Image)
	// Padding returns the extra pixels the effect needs on every side of the
	// content (a blur radius, an outline thickness). Zero means none.
	Padding() int
}

// filterChainPadding returns the padding a chain of filters needs. Padding
// adds up because every filter can grow the content further.
func filterChainPadding(filters []Filter) int {
	pad := 0
	for _, f := range filters {
		pad += f.Padding()
	}
	return pad
}

// applyFilterChain runs filters over src, ping-ponging between src and dst.
// The result always ends up in dst; src is used as scratch.
func applyFilterChain(filters []Filter, src, dst *ebiten.Image) {
	if len(filters) == 0 {
		dst.Clear()
		dst.DrawImage(src, nil)
		return
	}
	in, out := src, dst
	for _, f := range filters {
		out.Clear()
		f.Apply(in, out)
		in, out = out, in
	}
	if in != dst {
		dst.Clear()
		dst.DrawImage(in, nil)
	}
}

// --- Shaders ---

// The color matrix works on straight alpha: premultiplication is undone
// before the matrix and redone after.
const colorMatrixKage = `//kage:unit pixels
package main

var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	p := imageSrc0At(src)
	if p.a > 0 {
		p.rgb /= p.a
	}
	out := vec4(
		Matrix[0]*p.r+Matrix[1]*p.g+Matrix[2]*p.b+Matrix[3]*p.a+Matrix[4],
		Matrix[5]*p.r+Matrix[6]*p.g+Matrix[7]*p.b+Matrix[8]*p.a+Matrix[9],
		Matrix[10]*p.r+Matrix[11]*p.g+Matrix[12]*p.b+Matrix[13]*p.a+Matrix[14],
		Matrix[15]*p.r+Matrix[16]*p.g+Matrix[17]*p.b+Matrix[18]*p.a+Matrix[19],
	)
	out = clamp(out, 0, 1)
	return vec4(out.rgb*out.a, out.a)
}
`

// compiled shaders by name. Rendering is single-threaded, so no locking.
var shaders = map[string]*ebiten.Shader{}

// shaderFor compiles src once and caches it under name.
func shaderFor(name, src string) *ebiten.Shader {
	if s, ok := shaders[name]; ok {
		return s
	}
	s, err := ebiten.NewShader([]byte(src))
	if err != nil {
		panic(fmt.Sprintf("lantern: compile %s shader: %v", name, err))
	}
	shaders[name] = s
	return s
}

// --- ColorMatrixFilter ---

// ColorMatrixFilter transforms colors with a 4x5 matrix in row-major order:
// each output channel is a weighted sum of r, g, b, a plus an offset.
type ColorMatrixFilter struct {
	Matrix [20]float64

	m32      [20]float32
	uniforms map[string]any
	op       ebiten.DrawRectShaderOptions
}

// NewColorMatrixFilter returns a filter with the identity matrix.
func NewColorMatrixFilter() *ColorMatrixFilter {
	f := &ColorMatrixFilter{}
	f.uniforms = map[string]any{"Matrix": f.m32[:]}
	f.Reset()
	return f
}

// Reset restores the identity matrix.
func (f *ColorMatrixFilter) Reset() {
	f.Matrix = [20]float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// SetBrightness offsets every color channel by b (-1..1).
func (f *ColorMatrixFilter) SetBrightness(b float64) {
	f.Reset()
	f.Matrix[4], f.Matrix[9], f.Matrix[14] = b, b, b
}

// SetContrast scales colors around mid-gray. 1 leaves them unchanged.
func (f *ColorMatrixFilter) SetContrast(c float64) {
	f.Reset()
	off := (1 - c) / 2
	for row := 0; row < 3; row++ {
		f.Matrix[row*5+row] = c
		f.Matrix[row*5+4] = off
	}
}

// SetSaturation blends colors toward their luminance. 0 is grayscale.
func (f *ColorMatrixFilter) SetSaturation(s float64) {
	f.Reset()
	lum := [3]float64{0.299, 0.587, 0.114}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			v := (1 - s) * lum[col]
			if row == col {
				v += s
			}
			f.Matrix[row*5+col] = v
		}
	}
}

// SetTint multiplies colors by c.
func (f *ColorMatrixFilter) SetTint(c Color) {
	f.Reset()
	f.Matrix[0], f.Matrix[6], f.Matrix[12], f.Matrix[18] = c.R, c.G, c.B, c.A
}

// Apply runs the matrix over src.
func (f *ColorMatrixFilter) Apply(src, dst *ebiten.Image) {
	for i, v := range f.Matrix {
		f.m32[i] = float32(v)
	}
	b := src.Bounds()
	f.op.Images[0] = src
	f.op.Uniforms = f.uniforms
	dst.DrawRectShader(b.Dx(), b.Dy(), shaderFor("color matrix", colorMatrixKage), &f.op)
}

// Padding is zero; the matrix never grows the content.
func (f *ColorMatrixFilter) Padding() int { return 0 }

// --- BlurFilter ---

// BlurFilter approximates a gaussian blur by repeatedly halving the image
// with linear filtering and scaling it back up.
type BlurFilter struct {
	Radius int

	levels []*ebiten.Image
	op     ebiten.DrawImageOptions
}

// NewBlurFilter returns a blur with the given radius in pixels.
func NewBlurFilter(radius int) *BlurFilter {
	return &BlurFilter{Radius: max(radius, 0)}
}

// level returns a cleared scratch image of the given size for pass i.
func (f *BlurFilter) level(i, w, h int) *ebiten.Image {
	for len(f.levels) <= i {
		f.levels = append(f.levels, nil)
	}
	img := f.levels[i]
	if img != nil {
		if b := img.Bounds(); b.Dx() == w && b.Dy() == h {
			img.Clear()
			return img
		}
		img.Deallocate()
	}
	img = ebiten.NewImage(w, h)
	f.levels[i] = img
	return img
}

// scaleInto draws src stretched over dst.
func (f *BlurFilter) scaleInto(dst, src *ebiten.Image) {
	sb, db := src.Bounds(), dst.Bounds()
	f.op.GeoM.Reset()
	f.op.GeoM.Scale(float64(db.Dx())/float64(sb.Dx()), float64(db.Dy())/float64(sb.Dy()))
	f.op.Filter = ebiten.FilterLinear
	dst.DrawImage(src, &f.op)
}

// Apply blurs src into dst.
func (f *BlurFilter) Apply(src, dst *ebiten.Image) {
	if f.Radius <= 0 {
		dst.DrawImage(src, nil)
		return
	}
	passes := max(int(math.Ceil(math.Log2(float64(f.Radius)))), 1)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	cur := src
	for i := 0; i < passes; i++ {
		w, h = max(w/2, 1), max(h/2, 1)
		next := f.level(i, w, h)
		f.scaleInto(next, cur)
		cur = next
	}
	for i := passes - 2; i >= 0; i-- {
		up := f.levels[i]
		up.Clear()
		f.scaleInto(up, cur)
		cur = up
	}
	f.scaleInto(dst, cur)
}

// Padding is the radius, so the blur can spread past the content edges.
func (f *BlurFilter) Padding() int { return f.Radius }

// --- CustomShaderFilter ---

// CustomShaderFilter runs a user-supplied Kage shader. Images[0] is always
// the source; Images[1] and Images[2] may be set by the caller.
type CustomShaderFilter struct {
	Shader   *ebiten.Shader
	Uniforms map[string]any
	Images   [3]*ebiten.Image
	Pad      int

	op ebiten.DrawRectShaderOptions
}

// NewCustomShaderFilter wraps shader, reserving pad pixels of padding.
func NewCustomShaderFilter(shader *ebiten.Shader, pad int) *CustomShaderFilter {
	return &CustomShaderFilter{Shader: shader, Uniforms: map[string]any{}, Pad: pad}
}

// Apply runs the shader over src.
func (f *CustomShaderFilter) Apply(src, dst *ebiten.Image) {
	b := src.Bounds()
	dst.DrawRectShader(b.Dx(), b.Dy(), f.Shader, f.options(src))
}

// options fills the reused draw options for src.
func (f *CustomShaderFilter) options(src *ebiten.Image) *ebiten.DrawRectShaderOptions {
	f.op.Images[0] = src
	f.op.Images[1] = f.Images[1]
	f.op.Images[2] = f.Images[2]
	f.op.Uniforms = f.Uniforms
	return &f.op
}

// Padding returns the configured padding.
func (f *CustomShaderFilter) Padding() int { return f.Pad }
