package lantern

import "math"

// BoundsState classifies a node against the clip region it inherits.
type BoundsState uint8

const (
	// BoundsDrawable means the node's bbox overlaps the clip region.
	BoundsDrawable BoundsState = iota
	// BoundsWithinMargin means the node is outside the clip region but inside
	// the margin around it. It is kept up to date (and its textures loaded)
	// but not drawn.
	BoundsWithinMargin
	// BoundsCulled means the node misses the margin-extended clip region. The
	// node and its whole subtree skip updates and release their textures.
	BoundsCulled
)

// String returns the state name.
func (b BoundsState) String() string {
	switch b {
	case BoundsDrawable:
		return "drawable"
	case BoundsWithinMargin:
		return "within-margin"
	case BoundsCulled:
		return "culled"
	}
	return "unknown"
}

// clipRegion is the area descendants may draw into, in render space. poly is
// nil when the region is exactly rect; otherwise it is a convex polygon and
// rect is its bounding box. clipped is set below a clipping node; without it
// the region only drives culling and quads are not cut.
type clipRegion struct {
	rect    Rect
	poly    []Vec2
	clipped bool
}

// BoundsState returns the classification computed by the last update.
func (n *Node) BoundsState() BoundsState {
	return n.boundsState
}

// Bounds returns the node's axis-aligned bounding box in render space, as
// computed by the last update.
func (n *Node) Bounds() Rect {
	return n.bbox
}

// SetClipping makes the node's rectangle clip its descendants.
func (n *Node) SetClipping(c bool) {
	if n.clipping == c {
		return
	}
	n.clipping = c
	n.setRecalc(recalcBounds)
}

// Clipping reports whether the node clips its descendants.
func (n *Node) Clipping() bool { return n.clipping }

// SetBoundsMargin gives the node an explicit margin, also handed down to
// descendants that inherit. Negative sides clamp to zero.
func (n *Node) SetBoundsMargin(m Margin) {
	m.Left = math.Max(m.Left, 0)
	m.Top = math.Max(m.Top, 0)
	m.Right = math.Max(m.Right, 0)
	m.Bottom = math.Max(m.Bottom, 0)
	if n.marginMode == MarginExplicit && n.margin == m {
		return
	}
	n.marginMode = MarginExplicit
	n.margin = m
	n.setRecalc(recalcBounds)
}

// DisableBoundsMargin removes the margin for this node's descendants:
// anything outside the clip region is culled.
func (n *Node) DisableBoundsMargin() {
	if n.marginMode == MarginNone {
		return
	}
	n.marginMode = MarginNone
	n.setRecalc(recalcBounds)
}

// InheritBoundsMargin restores the default of using the parent's margin.
func (n *Node) InheritBoundsMargin() {
	if n.marginMode == MarginInherit {
		return
	}
	n.marginMode = MarginInherit
	n.setRecalc(recalcBounds)
}

// BoundsMargin returns the node's margin mode and explicit margin value.
func (n *Node) BoundsMargin() (MarginMode, Margin) {
	return n.marginMode, n.margin
}

// updateBounds recomputes n's bbox and classification against the clip and
// margin inherited from its parent, then derives the clip and margin its own
// children inherit.
func (s *Stage) updateBounds(n *Node) {
	var clip *clipRegion
	var margin *Margin
	if p := n.parent; p != nil {
		clip = &p.childClip
		margin = p.childMargin
	} else {
		clip = &s.viewClip
		margin = &s.rootMargin
	}

	w, h := n.renderSize()
	if w != n.renderW || h != n.renderH {
		n.renderW, n.renderH = w, h
		s.queueEvent(n, EventResized, nil)
	}

	ctx := n.render
	if w > 0 && h > 0 {
		n.bbox = contextBounds(ctx, w, h)
		n.boundsState = classifyBounds(n.bbox, clip.rect, margin)
	} else {
		// Zero-area nodes may hold children anywhere.
		n.bbox = Rect{X: ctx.m[4], Y: ctx.m[5]}
		n.boundsState = BoundsDrawable
		if clip.rect.IsEmpty() && margin == nil {
			n.boundsState = BoundsCulled
		}
	}

	if n.texturizes() {
		pad := float64(n.texturizer.padding())
		n.childClip = clipRegion{rect: Rect{Width: w + 2*pad, Height: h + 2*pad}}
		n.childMargin = nil
		return
	}

	if n.clipping {
		n.childClip = clipChild(clip, ctx, w, h, n.clipBuf)
		if n.childClip.poly != nil {
			n.clipBuf = n.childClip.poly
		}
	} else {
		n.childClip = *clip
	}

	switch n.marginMode {
	case MarginNone:
		n.childMargin = nil
	case MarginExplicit:
		n.childMargin = &n.margin
	default:
		n.childMargin = margin
	}
}

// classifyBounds returns the bounds state of bbox against clip extended by
// margin. A nil margin means no margin at all.
func classifyBounds(bbox, clip Rect, margin *Margin) BoundsState {
	if !clip.IsEmpty() && bbox.Overlaps(clip) {
		return BoundsDrawable
	}
	if margin != nil && bbox.Overlaps(clip.Expand(*margin)) {
		return BoundsWithinMargin
	}
	return BoundsCulled
}

// contextBounds returns the axis-aligned bounds of the (0,0,w,h) rectangle
// transformed by ctx: two corners when the matrix is a plain scale and
// translation, all four otherwise.
func contextBounds(ctx *coreContext, w, h float64) Rect {
	m := &ctx.m
	if !ctx.complex {
		return Rect{X: m[4], Y: m[5], Width: m[0] * w, Height: m[3] * h}
	}
	c := contextCorners(ctx, w, h)
	return polygonBounds(c[:])
}

// contextCorners returns the four corners of (0,0,w,h) in ctx space, in
// TL, TR, BR, BL order.
func contextCorners(ctx *coreContext, w, h float64) [4]Vec2 {
	m := ctx.m
	var c [4]Vec2
	c[0].X, c[0].Y = transformPoint(m, 0, 0)
	c[1].X, c[1].Y = transformPoint(m, w, 0)
	c[2].X, c[2].Y = transformPoint(m, w, h)
	c[3].X, c[3].Y = transformPoint(m, 0, h)
	return c
}

// polygonBounds returns the bounding box of a point set.
func polygonBounds(pts []Vec2) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// clipChild intersects the inherited region with a clipping node's own
// rectangle. Axis-aligned inputs stay rectangles; anything else becomes a
// polygon written into buf.
func clipChild(parent *clipRegion, ctx *coreContext, w, h float64, buf []Vec2) clipRegion {
	if w <= 0 || h <= 0 {
		return clipRegion{rect: Rect{X: ctx.m[4], Y: ctx.m[5]}, clipped: true}
	}
	if !ctx.complex && parent.poly == nil {
		return clipRegion{rect: parent.rect.Intersect(contextBounds(ctx, w, h)), clipped: true}
	}

	var subject []Vec2
	if parent.poly != nil {
		subject = parent.poly
	} else {
		r := parent.rect
		subject = []Vec2{{r.X, r.Y}, {r.Right(), r.Y}, {r.Right(), r.Bottom()}, {r.X, r.Bottom()}}
	}
	corners := contextCorners(ctx, w, h)
	poly := clipConvex(buf[:0], subject, corners[:])
	if len(poly) < 3 {
		return clipRegion{rect: Rect{X: ctx.m[4], Y: ctx.m[5]}, clipped: true}
	}
	return clipRegion{rect: polygonBounds(poly), poly: poly, clipped: true}
}
