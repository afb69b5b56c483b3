package lantern

import "time"

// --- Visual state ---

// SetColor tints all four corners with c.
func (n *Node) SetColor(c Color) {
	n.SetColorCorners(c, c, c, c)
}

// SetColorCorners sets per-corner tints; colors are interpolated across the
// quad.
func (n *Node) SetColorCorners(ul, ur, bl, br Color) {
	if n.colorUl == ul && n.colorUr == ur && n.colorBl == bl && n.colorBr == br {
		return
	}
	n.colorUl, n.colorUr, n.colorBl, n.colorBr = ul, ur, bl, br
	n.setRecalc(recalcRender)
}

// ColorCorners returns the four corner tints.
func (n *Node) ColorCorners() (ul, ur, bl, br Color) {
	return n.colorUl, n.colorUr, n.colorBl, n.colorBr
}

// SetBlendMode sets how the node's quad is composited.
func (n *Node) SetBlendMode(b BlendMode) {
	if n.blend == b {
		return
	}
	n.blend = b
	n.setRecalc(recalcRender)
}

// BlendMode returns the node's blend mode.
func (n *Node) BlendMode() BlendMode { return n.blend }

// --- Render pass ---

// passLevel is per-target state shared by sibling texturizers.
type passLevel struct {
	cached bool // some texturizer of this pass kept its result
}

// Render draws the stage into target. Pending texture uploads are flushed
// first; offscreen texturizer passes are submitted as they complete, so
// every target is finished before anything samples it.
func (s *Stage) Render(target GPUTexture) {
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	s.textures.flush()

	s.depth = 0
	buf := s.pass(0)
	buf.Reset()
	var level passLevel
	s.collectNode(s.root, buf, &level)
	s.submit(target, buf)

	for _, tz := range s.uncached {
		if !tz.cached {
			tz.release(s)
		}
	}
	clear(s.uncached)
	s.uncached = s.uncached[:0]
	for _, t := range s.deferred {
		s.targets.release(t)
	}
	clear(s.deferred)
	s.deferred = s.deferred[:0]
	s.targets.trim(targetIdleFrames)

	s.textures.collect()

	if s.debug {
		s.stats.RenderTime = time.Since(t0)
		s.stats.Atlas = s.atlasStats()
		s.debugLog()
	}
}

// pass returns the reusable quad buffer for nesting depth d.
func (s *Stage) pass(d int) *QuadBuffer {
	for len(s.passes) <= d {
		s.passes = append(s.passes, &QuadBuffer{})
	}
	return s.passes[d]
}

// submit issues one draw call per run of buf.
func (s *Stage) submit(target GPUTexture, buf *QuadBuffer) {
	verts := buf.Vertices()
	for _, r := range buf.Runs() {
		s.dev.DrawRun(target, verts, r)
	}
	s.stats.Quads += buf.Len()
	s.stats.Runs += len(buf.Runs())
}

// collectNode appends n and its subtree to buf in draw order.
func (s *Stage) collectNode(n *Node, buf *QuadBuffer, level *passLevel) {
	if !n.active || n.world.alpha == 0 {
		return
	}
	if n.texturizes() {
		s.prepareTexturizer(n.texturizer, level)
		s.emitResult(n, buf)
		return
	}
	if n.boundsState == BoundsDrawable {
		s.emitNode(n, n.render, regionFor(n), buf, level)
	}
	s.collectChildren(n, buf, level)
}

// collectChildren visits n's children in draw order: the sorted entry list
// for a z-context in use, tree order otherwise. Children with a nonzero
// z-index are drawn by the context they registered with.
func (s *Stage) collectChildren(n *Node, buf *QuadBuffer, level *passLevel) {
	if n.zInUse() {
		for _, e := range n.zEntries {
			if e.zParent == n {
				s.collectNode(e, buf, level)
			}
		}
		return
	}
	for _, c := range n.children {
		if c.zIndex != 0 {
			continue
		}
		s.collectNode(c, buf, level)
	}
}

// regionFor returns the clip region cutting n's quads, or nil.
func regionFor(n *Node) *clipRegion {
	if p := n.parent; p != nil && p.childClip.clipped {
		return &p.childClip
	}
	return nil
}

// emitNode appends the quad of n's displayed texture, drawn with ctx and
// cut by region.
func (s *Stage) emitNode(n *Node, ctx *coreContext, region *clipRegion, buf *QuadBuffer, level *passLevel) {
	tex := n.displayedTexture
	if tex == nil {
		return
	}
	if tz := tex.source.texturizer; tz != nil {
		s.prepareTexturizer(tz, level)
	}
	gpu, u0, v0, u1, v1, ok := tex.gpuRegion(s.atlas)
	if !ok {
		return
	}
	q := quadSource{
		tex: gpu, blend: n.blend,
		w: n.renderW, h: n.renderH,
		u0: u0, v0: v0, u1: u1, v1: v1,
		ul: n.colorUl, ur: n.colorUr, br: n.colorBr, bl: n.colorBl,
	}
	buf.addQuad(&q, ctx, region)
}

// emitResult draws a texturizer's result at the node's place, shifted out by
// the filter padding.
func (s *Stage) emitResult(n *Node, buf *QuadBuffer) {
	tz := n.texturizer
	if tz.hidden || tz.target == nil || n.boundsState != BoundsDrawable {
		return
	}
	tw, th := tz.target.Size()
	src := tz.resultSource
	w, h := float64(src.width), float64(src.height)
	pad := float64(tz.pad)
	ctx := *n.render
	ctx.m[4] -= ctx.m[0]*pad + ctx.m[2]*pad
	ctx.m[5] -= ctx.m[1]*pad + ctx.m[3]*pad
	q := quadSource{
		tex: tz.target, blend: n.blend,
		w: w, h: h,
		u1: w / float64(tw), v1: h / float64(th),
		ul: ColorWhite, ur: ColorWhite, br: ColorWhite, bl: ColorWhite,
	}
	buf.addQuad(&q, &ctx, regionFor(n))
}

// prepareTexturizer makes sure tz's result is current for this frame,
// rendering the subtree offscreen when the cached result cannot be reused.
// It runs at most once per frame, either where the texturized node is drawn
// or where the first consumer of its result is.
func (s *Stage) prepareTexturizer(tz *Texturizer, level *passLevel) {
	if tz.renderedFrame == s.frame || tz.rendering {
		return
	}
	n := tz.node
	if !tz.enabled || n.stage != s || !n.active || n.world.alpha == 0 {
		return
	}
	tz.renderedFrame = s.frame

	w, h := tz.targetSize()
	if w == 0 || h == 0 {
		tz.free()
		return
	}
	consumers := tz.consumers()
	if consumers == 0 && tz.lazy {
		return
	}
	src := tz.resultSource
	if tz.cached && tz.target != nil && !tz.changed && src.width == w && src.height == h {
		level.cached = true
		s.stats.TexturizersReused++
		return
	}

	changed := tz.changed
	tz.changed = false
	tz.pool = &s.targets
	if tz.target != nil {
		s.targets.release(tz.target)
		tz.target = nil
	}

	target := s.targets.acquire(w, h)
	tz.rendering = true
	s.depth++
	inner := s.pass(s.depth)
	inner.Reset()
	var innerLevel passLevel
	s.emitNode(n, &tz.base, nil, inner, &innerLevel)
	s.collectChildren(n, inner, &innerLevel)
	s.submit(target, inner)
	s.depth--
	tz.rendering = false
	s.stats.TexturizersRendered++

	result := target
	if len(tz.filters) > 0 {
		result = s.targets.acquire(w, h)
		s.dev.ApplyFilters(tz.filters, target, result)
		s.targets.release(target)
	}

	keep := s.cachePolicy(TexturizerCacheState{
		Changed:       changed,
		Consumers:     consumers,
		SiblingCached: level.cached,
	})
	tz.setResult(result, w, h)
	tz.cached = keep
	if keep {
		level.cached = true
	} else {
		s.uncached = append(s.uncached, tz)
	}
}
