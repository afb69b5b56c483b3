package lantern

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/draw"
)

// GPUTexture is a texture owned by a Device.
type GPUTexture interface {
	Size() (w, h int)
}

// Device is the GPU binding the stage renders through. All calls happen on
// the render thread. Vertices passed to DrawRun carry premultiplied colors and
// normalized texture coordinates.
type Device interface {
	// NewTexture creates a cleared w x h texture.
	NewTexture(w, h int) GPUTexture
	// Upload writes img into dst with its top-left corner at (x, y).
	Upload(dst GPUTexture, x, y int, img image.Image)
	// DeleteTexture releases t. t must not be used afterwards.
	DeleteTexture(t GPUTexture)
	// Clear sets every pixel of t to transparent.
	Clear(t GPUTexture)
	// DrawRun draws the run's quads from verts into dst.
	DrawRun(dst GPUTexture, verts []Vertex, run QuadRun)
	// ApplyFilters runs filters over src and leaves the result in dst. src
	// may be overwritten.
	ApplyFilters(filters []Filter, src, dst GPUTexture)
}

// ebitenTexture is a GPUTexture backed by an *ebiten.Image.
type ebitenTexture struct {
	img *ebiten.Image
}

func (t *ebitenTexture) Size() (w, h int) {
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

// WrapImage exposes an existing ebiten image (usually the screen) as a
// render target for Stage.Render.
func WrapImage(img *ebiten.Image) GPUTexture {
	return &ebitenTexture{img: img}
}

// EbitenImage returns the image behind a texture created by an EbitenDevice,
// or nil for textures of other devices.
func EbitenImage(t GPUTexture) *ebiten.Image {
	if et, ok := t.(*ebitenTexture); ok {
		return et.img
	}
	return nil
}

// EbitenDevice implements Device on Ebitengine.
type EbitenDevice struct {
	// Filter is the sampling filter used for every run.
	Filter ebiten.Filter

	verts   []ebiten.Vertex
	indices []uint32
	op      ebiten.DrawTrianglesOptions
	staging *image.RGBA
}

// NewEbitenDevice returns a device drawing with nearest-neighbor sampling.
func NewEbitenDevice() *EbitenDevice {
	return &EbitenDevice{Filter: ebiten.FilterNearest}
}

func (d *EbitenDevice) NewTexture(w, h int) GPUTexture {
	return &ebitenTexture{img: ebiten.NewImage(w, h)}
}

// Upload converts img to premultiplied RGBA and writes it into the target
// rectangle of dst.
func (d *EbitenDevice) Upload(dst GPUTexture, x, y int, img image.Image) {
	target := EbitenImage(dst)
	if target == nil || img == nil {
		return
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}
	var pix []byte
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*w {
		pix = rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y):][:4*w*h]
	} else {
		if d.staging == nil || d.staging.Rect.Dx() != w || d.staging.Rect.Dy() != h {
			d.staging = image.NewRGBA(image.Rect(0, 0, w, h))
		}
		draw.Copy(d.staging, image.Point{}, img, b, draw.Src, nil)
		pix = d.staging.Pix
	}
	sub := target.SubImage(image.Rect(x, y, x+w, y+h)).(*ebiten.Image)
	sub.WritePixels(pix)
}

func (d *EbitenDevice) DeleteTexture(t GPUTexture) {
	if img := EbitenImage(t); img != nil {
		img.Deallocate()
	}
}

func (d *EbitenDevice) Clear(t GPUTexture) {
	if img := EbitenImage(t); img != nil {
		img.Clear()
	}
}

// DrawRun submits the run as one DrawTriangles32 call, two triangles per quad.
func (d *EbitenDevice) DrawRun(dst GPUTexture, verts []Vertex, run QuadRun) {
	target, src := EbitenImage(dst), EbitenImage(run.Texture)
	if target == nil || src == nil || run.Count == 0 {
		return
	}
	tw, th := src.Bounds().Dx(), src.Bounds().Dy()
	sx, sy := float32(tw), float32(th)

	d.verts = d.verts[:0]
	d.indices = d.indices[:0]
	for q := 0; q < run.Count; q++ {
		base := uint32(len(d.verts))
		for _, v := range verts[(run.First+q)*4 : (run.First+q)*4+4] {
			d.verts = append(d.verts, ebiten.Vertex{
				DstX:   v.X,
				DstY:   v.Y,
				SrcX:   v.U * sx,
				SrcY:   v.V * sy,
				ColorR: float32(v.Color&0xff) / 255,
				ColorG: float32(v.Color>>8&0xff) / 255,
				ColorB: float32(v.Color>>16&0xff) / 255,
				ColorA: float32(v.Color>>24) / 255,
			})
		}
		d.indices = append(d.indices, base, base+1, base+2, base, base+2, base+3)
	}

	d.op.Blend = run.Blend.EbitenBlend()
	d.op.ColorScaleMode = ebiten.ColorScaleModePremultipliedAlpha
	d.op.Filter = d.Filter
	target.DrawTriangles32(d.verts, d.indices, src, &d.op)
}

// ApplyFilters runs the filter chain over src into dst. Targets that are not
// ebiten images are ignored.
func (d *EbitenDevice) ApplyFilters(filters []Filter, src, dst GPUTexture) {
	s, t := EbitenImage(src), EbitenImage(dst)
	if s == nil || t == nil {
		return
	}
	applyFilterChain(filters, s, t)
}
