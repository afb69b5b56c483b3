package lantern

// Vertex is one corner of a quad as consumed by the GPU binding: position in
// target pixels, normalized texture coordinates and a premultiplied RGBA8
// color packed as r | g<<8 | b<<16 | a<<24.
type Vertex struct {
	X, Y  float32
	U, V  float32
	Color uint32
}

// QuadRun is a span of consecutive quads that share a GPU texture and blend mode
// and can be submitted in a single draw call.
type QuadRun struct {
	Texture GPUTexture
	Blend   BlendMode
	First   int // index of the first quad
	Count   int // number of quads
}

// QuadBuffer accumulates quads (four vertices each, TL TR BR BL) and the runs
// they coalesce into. A buffer is reused across frames; Reset keeps capacity.
type QuadBuffer struct {
	verts   []Vertex
	runs    []QuadRun
	scratch []Vec2
	corners []Vertex
}

// Reset empties the buffer.
func (b *QuadBuffer) Reset() {
	b.verts = b.verts[:0]
	b.runs = b.runs[:0]
}

// Len returns the number of quads in the buffer.
func (b *QuadBuffer) Len() int {
	return len(b.verts) / 4
}

// Vertices returns the vertex data, four per quad.
func (b *QuadBuffer) Vertices() []Vertex {
	return b.verts
}

// Runs returns the coalesced runs in submission order.
func (b *QuadBuffer) Runs() []QuadRun {
	return b.runs
}

// Quad returns the four vertices of quad i.
func (b *QuadBuffer) Quad(i int) [4]Vertex {
	return [4]Vertex(b.verts[i*4 : i*4+4])
}

// appendQuad adds one quad, extending the last run when texture and blend
// mode match.
func (b *QuadBuffer) appendQuad(tex GPUTexture, blend BlendMode, v0, v1, v2, v3 Vertex) {
	q := b.Len()
	b.verts = append(b.verts, v0, v1, v2, v3)
	if n := len(b.runs); n > 0 {
		last := &b.runs[n-1]
		if last.Texture == tex && last.Blend == blend && last.First+last.Count == q {
			last.Count++
			return
		}
	}
	b.runs = append(b.runs, QuadRun{Texture: tex, Blend: blend, First: q, Count: 1})
}

// quadSource describes what a node draws: a texture rectangle of size w x h
// in node space, sampled from uv (u0, v0, u1, v1) of tex, tinted by four
// corner colors.
type quadSource struct {
	tex            GPUTexture
	blend          BlendMode
	w, h           float64
	u0, v0, u1, v1 float64
	ul, ur, br, bl Color
}

// vertexAt builds the vertex for parameters (s, t) of the source rectangle at
// screen position p.
func (src *quadSource) vertexAt(p Vec2, s, t, alpha float64) Vertex {
	top := lerpColor(src.ul, src.ur, s)
	bottom := lerpColor(src.bl, src.br, s)
	return Vertex{
		X:     float32(p.X),
		Y:     float32(p.Y),
		U:     float32(src.u0 + (src.u1-src.u0)*s),
		V:     float32(src.v0 + (src.v1-src.v0)*t),
		Color: lerpColor(top, bottom, t).pack(alpha),
	}
}

// addQuad emits src transformed by ctx and clipped to region (nil for no
// clipping). A quad entirely inside the region is emitted unchanged; a quad
// entirely outside emits nothing. Axis-aligned quads against rectangular
// regions are clipped by rectangle intersection; everything else goes through
// polygon clipping with inverse bilinear mapping of the new vertices.
func (b *QuadBuffer) addQuad(src *quadSource, ctx *coreContext, region *clipRegion) {
	if src.w <= 0 || src.h <= 0 || ctx.alpha <= 0 {
		return
	}
	corners := contextCorners(ctx, src.w, src.h)
	alpha := ctx.alpha

	if region == nil || quadInside(&corners, region) {
		b.appendQuad(src.tex, src.blend,
			src.vertexAt(corners[0], 0, 0, alpha),
			src.vertexAt(corners[1], 1, 0, alpha),
			src.vertexAt(corners[2], 1, 1, alpha),
			src.vertexAt(corners[3], 0, 1, alpha),
		)
		return
	}

	if !ctx.complex && region.poly == nil {
		box := Rect{X: corners[0].X, Y: corners[0].Y, Width: corners[2].X - corners[0].X, Height: corners[2].Y - corners[0].Y}
		c := box.Intersect(region.rect)
		if c.IsEmpty() {
			return
		}
		s0 := (c.X - box.X) / box.Width
		s1 := (c.Right() - box.X) / box.Width
		t0 := (c.Y - box.Y) / box.Height
		t1 := (c.Bottom() - box.Y) / box.Height
		b.appendQuad(src.tex, src.blend,
			src.vertexAt(Vec2{c.X, c.Y}, s0, t0, alpha),
			src.vertexAt(Vec2{c.Right(), c.Y}, s1, t0, alpha),
			src.vertexAt(Vec2{c.Right(), c.Bottom()}, s1, t1, alpha),
			src.vertexAt(Vec2{c.X, c.Bottom()}, s0, t1, alpha),
		)
		return
	}

	b.scratch = clipConvex(b.scratch, corners[:], regionPolygon(region))
	poly := b.scratch
	if len(poly) < 3 {
		return
	}
	b.corners = b.corners[:0]
	for _, p := range poly {
		s, t := inverseBilinear(p, &corners)
		b.corners = append(b.corners, src.vertexAt(p, clamp01(s), clamp01(t), alpha))
	}
	b.appendFan(src.tex, src.blend, b.corners)
}

// appendFan splits a convex polygon into a triangle fan and packs the fan two
// triangles per quad. A trailing odd triangle repeats its last vertex.
func (b *QuadBuffer) appendFan(tex GPUTexture, blend BlendMode, v []Vertex) {
	for i := 1; i+1 < len(v); i += 2 {
		last := v[i+1]
		if i+2 < len(v) {
			last = v[i+2]
		}
		b.appendQuad(tex, blend, v[0], v[i], v[i+1], last)
	}
}
