package lantern

import "math"

// Recalculation bits. Setters OR these into Node.recalc; Stage.Update
// resolves them top-down and passes the relevant subset to children.
const (
	recalcAlpha     uint8 = 1 << iota // world alpha
	recalcTranslate                   // local translation (position, pivot, mount, size)
	recalcTransform                   // local 2x2 (scale, rotation, skew)
	recalcBounds                      // bbox, clip region, margin classification
	recalcZOrder                      // z registration / tree order
	recalcRender                      // visual-only change (color, blend, texture, structure)

	recalcAll = recalcAlpha | recalcTranslate | recalcTransform | recalcBounds
)

// alphaEpsilon is the threshold below which world alpha snaps to zero.
const alphaEpsilon = 1e-14

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// coreContext is a derived alpha + affine pair. The matrix layout is
// [a, b, c, d, tx, ty]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type coreContext struct {
	alpha   float64
	m       [6]float64
	complex bool
}

// identityContext is the context a texturizer's descendants compose against.
var identityContext = coreContext{alpha: 1, m: identityTransform}

// isComplexMatrix reports whether m needs the full 4-multiply composition:
// any rotation or skew, or a mirrored axis.
func isComplexMatrix(m *[6]float64) bool {
	return m[1] != 0 || m[2] != 0 || m[0] < 0 || m[3] < 0
}

// updateLocalTransform rebuilds the local 2x2 from scale, skew and rotation.
//
// Composition order:
//
//	Scale -> Skew -> Rotate
func (n *Node) updateLocalTransform() {
	sx, sy := n.scaleX, n.scaleY
	if n.rotation == 0 && n.skewX == 0 && n.skewY == 0 {
		n.local[0], n.local[1], n.local[2], n.local[3] = sx, 0, 0, sy
		n.localComplex = sx < 0 || sy < 0
		return
	}

	var tanSkewX, tanSkewY float64
	if n.skewX != 0 {
		tanSkewX = math.Tan(n.skewX)
	}
	if n.skewY != 0 {
		tanSkewY = math.Tan(n.skewY)
	}
	a := sx
	b := tanSkewY * sx
	c := tanSkewX * sy
	d := sy

	sin, cos := math.Sincos(n.rotation)
	n.local[0] = cos*a - sin*b
	n.local[1] = sin*a + cos*b
	n.local[2] = cos*c - sin*d
	n.local[3] = sin*c + cos*d
	n.localComplex = isComplexMatrix(&n.local)
}

// updateLocalTranslate places the pivot so rotation and scale happen around
// it, then offsets by the mount point. Both are relative to the render size.
func (n *Node) updateLocalTranslate() {
	w, h := n.renderSize()
	px := n.pivotX * w
	py := n.pivotY * h
	m := &n.local
	m[4] = n.x - n.mountX*w + px - (m[0]*px + m[2]*py)
	m[5] = n.y - n.mountY*h + py - (m[1]*px + m[3]*py)
}

// composeContext writes parent ⨯ local into dst. When neither side is
// complex only the diagonal is multiplied.
func composeContext(dst *coreContext, p *coreContext, local *[6]float64, localComplex bool) {
	if !p.complex && !localComplex {
		pm := &p.m
		dst.m = [6]float64{
			pm[0] * local[0],
			0,
			0,
			pm[3] * local[3],
			pm[0]*local[4] + pm[4],
			pm[3]*local[5] + pm[5],
		}
		dst.complex = false
		return
	}
	dst.m = multiplyAffine(p.m, *local)
	dst.complex = isComplexMatrix(&dst.m)
}

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// --- Dirty marking ---

// setRecalc ORs bits into the node's pending work and flags the ancestor chain.
func (n *Node) setRecalc(bits uint8) {
	n.recalc |= bits
	n.setHasUpdates()
}

// setHasUpdates flags n and walks up, stopping at the first ancestor that is
// already flagged.
func (n *Node) setHasUpdates() {
	for p := n; p != nil && !p.hasUpdates; p = p.parent {
		p.hasUpdates = true
	}
}

// --- Transform property setters ---

// SetPosition sets the node's local X and Y.
func (n *Node) SetPosition(x, y float64) {
	if n.x == x && n.y == y {
		return
	}
	n.x, n.y = x, y
	n.setRecalc(recalcTranslate)
}

// SetX sets the node's local X.
func (n *Node) SetX(x float64) { n.SetPosition(x, n.y) }

// SetY sets the node's local Y.
func (n *Node) SetY(y float64) { n.SetPosition(n.x, y) }

// X returns the node's local X.
func (n *Node) X() float64 { return n.x }

// Y returns the node's local Y.
func (n *Node) Y() float64 { return n.y }

// SetScale sets the node's ScaleX and ScaleY.
func (n *Node) SetScale(sx, sy float64) {
	if n.scaleX == sx && n.scaleY == sy {
		return
	}
	n.scaleX, n.scaleY = sx, sy
	n.setRecalc(recalcTransform | recalcTranslate)
}

// SetScaleX sets the horizontal scale.
func (n *Node) SetScaleX(sx float64) { n.SetScale(sx, n.scaleY) }

// SetScaleY sets the vertical scale.
func (n *Node) SetScaleY(sy float64) { n.SetScale(n.scaleX, sy) }

// Scale returns the node's scale factors.
func (n *Node) Scale() (sx, sy float64) { return n.scaleX, n.scaleY }

// SetRotation sets the node's rotation (in radians).
func (n *Node) SetRotation(r float64) {
	if n.rotation == r {
		return
	}
	n.rotation = r
	n.setRecalc(recalcTransform | recalcTranslate)
}

// Rotation returns the node's rotation in radians.
func (n *Node) Rotation() float64 { return n.rotation }

// SetSkew sets the node's SkewX and SkewY (in radians).
func (n *Node) SetSkew(sx, sy float64) {
	if n.skewX == sx && n.skewY == sy {
		return
	}
	n.skewX, n.skewY = sx, sy
	n.setRecalc(recalcTransform | recalcTranslate)
}

// Skew returns the node's skew angles.
func (n *Node) Skew() (sx, sy float64) { return n.skewX, n.skewY }

// SetPivot sets the rotation/scale origin relative to the node's size
// (0,0 top-left, 0.5,0.5 center).
func (n *Node) SetPivot(px, py float64) {
	if n.pivotX == px && n.pivotY == py {
		return
	}
	n.pivotX, n.pivotY = px, py
	n.setRecalc(recalcTranslate)
}

// Pivot returns the relative pivot.
func (n *Node) Pivot() (px, py float64) { return n.pivotX, n.pivotY }

// SetMount sets which point of the node, relative to its size, sits at (X, Y).
func (n *Node) SetMount(mx, my float64) {
	if n.mountX == mx && n.mountY == my {
		return
	}
	n.mountX, n.mountY = mx, my
	n.setRecalc(recalcTranslate)
}

// Mount returns the relative mount point.
func (n *Node) Mount() (mx, my float64) { return n.mountX, n.mountY }

// SetSize sets the node's declared width and height. Negative values clamp
// to zero. A zero dimension falls back to the displayed texture's size.
func (n *Node) SetSize(w, h float64) {
	w = math.Max(w, 0)
	h = math.Max(h, 0)
	if n.w == w && n.h == h {
		return
	}
	n.w, n.h = w, h
	n.setRecalc(recalcTranslate | recalcBounds)
}

// SetWidth sets the declared width.
func (n *Node) SetWidth(w float64) { n.SetSize(w, n.h) }

// SetHeight sets the declared height.
func (n *Node) SetHeight(h float64) { n.SetSize(n.w, h) }

// Size returns the declared width and height.
func (n *Node) Size() (w, h float64) { return n.w, n.h }

// RenderSize returns the size the node is drawn at: the declared size, or
// the displayed texture's size for any dimension left at zero.
func (n *Node) RenderSize() (w, h float64) { return n.renderSize() }

func (n *Node) renderSize() (w, h float64) {
	w, h = n.w, n.h
	if (w == 0 || h == 0) && n.displayedTexture != nil {
		tw, th := n.displayedTexture.Size()
		if w == 0 {
			w = tw
		}
		if h == 0 {
			h = th
		}
	}
	return w, h
}

// SetAlpha sets the node's alpha.
func (n *Node) SetAlpha(a float64) {
	if n.alpha == a {
		return
	}
	n.alpha = a
	n.setRecalc(recalcAlpha)
}

// Alpha returns the node's local alpha.
func (n *Node) Alpha() float64 { return n.alpha }

// SetVisible shows or hides the node and its subtree.
func (n *Node) SetVisible(v bool) {
	if n.visible == v {
		return
	}
	n.visible = v
	n.setRecalc(recalcAlpha)
}

// Visible reports the node's own visibility flag.
func (n *Node) Visible() bool { return n.visible }

// localAlpha is the node's contribution to world alpha.
func (n *Node) localAlpha() float64 {
	if !n.visible || n.alpha <= 0 {
		return 0
	}
	return n.alpha
}

// MarkDirty forces a full recomputation of the node on the next update.
func (n *Node) MarkDirty() {
	n.setRecalc(recalcAll)
}

// --- Derived state ---

// WorldAlpha returns the alpha computed by the last update.
func (n *Node) WorldAlpha() float64 { return n.world.alpha }

// WorldTransform returns the world matrix computed by the last update.
func (n *Node) WorldTransform() [6]float64 { return n.world.m }

// RenderTransform returns the matrix the node is drawn with: the world matrix,
// or the matrix relative to the nearest texturizing ancestor.
func (n *Node) RenderTransform() [6]float64 { return n.render.m }

// LocalTransform returns the local matrix computed by the last update.
func (n *Node) LocalTransform() [6]float64 { return n.local }

// --- Coordinate conversion ---

// WorldToLocal converts a world-space point to this node's local coordinate space.
func (n *Node) WorldToLocal(wx, wy float64) (lx, ly float64) {
	inv := invertAffine(n.world.m)
	return transformPoint(inv, wx, wy)
}

// LocalToWorld converts a local-space point to world-space.
func (n *Node) LocalToWorld(lx, ly float64) (wx, wy float64) {
	return transformPoint(n.world.m, lx, ly)
}
