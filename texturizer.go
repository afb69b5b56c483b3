package lantern

import (
	"fmt"
	"math"
)

// Texturizer renders a node's subtree into an offscreen target. The result
// can be filtered, cached across frames and displayed by other nodes through
// ResultTexture. While enabled, the node is a render-context root (its
// descendants render in its local space, offset by the filter padding) and a
// z-context.
type Texturizer struct {
	node    *Node
	enabled bool
	lazy    bool
	hidden  bool
	filters []Filter
	pad     int

	// changed is set whenever something that shows up in the target changed
	// since the last offscreen pass.
	changed     bool
	markedFrame int64

	// base is the render context descendants compose against. baseChanged
	// makes the next update recompose the children against it.
	base        coreContext
	baseChanged bool

	pool          *targetPool
	target        GPUTexture
	cached        bool
	renderedFrame int64
	rendering     bool
	resultSource  *TextureSource
	resultTexture *Texture
}

// Texturizer returns the node's texturizer, creating a disabled one on first
// use.
func (n *Node) Texturizer() *Texturizer {
	if n.texturizer == nil {
		tz := &Texturizer{node: n, base: identityContext, renderedFrame: -1, markedFrame: -1}
		tz.resultSource = &TextureSource{
			key:          fmt.Sprintf("texturizer:%d", n.ID),
			renderTarget: true,
			texturizer:   tz,
			state:        sourceLoaded,
		}
		tz.resultTexture = NewTexture(tz.resultSource)
		n.texturizer = tz
	}
	return n.texturizer
}

// texturizes reports whether n has an enabled texturizer.
func (n *Node) texturizes() bool {
	return n.texturizer != nil && n.texturizer.enabled
}

// childBase returns the context n's children compose their render context
// against.
func (n *Node) childBase() *coreContext {
	if n.texturizes() {
		return &n.texturizer.base
	}
	return n.render
}

// Node returns the texturized node.
func (tz *Texturizer) Node() *Node { return tz.node }

// Enabled reports whether the subtree renders offscreen.
func (tz *Texturizer) Enabled() bool { return tz.enabled }

// SetEnabled turns offscreen rendering on or off. Disabling frees the target
// immediately; nodes displaying the result then draw nothing.
func (tz *Texturizer) SetEnabled(e bool) {
	if tz.enabled == e {
		return
	}
	n := tz.node
	wasContext := n.isZContext()
	tz.enabled = e
	tz.changed = true
	tz.baseChanged = true
	if !e {
		tz.free()
	}
	n.setRecalc(recalcAll | recalcRender)
	if n.stage != nil && wasContext != n.isZContext() {
		n.stage.zContextChanged(n, wasContext)
	}
}

// Lazy reports whether the offscreen pass is skipped while nothing consumes
// the result.
func (tz *Texturizer) Lazy() bool { return tz.lazy }

// SetLazy makes a hidden texturizer render only while another node displays
// its result.
func (tz *Texturizer) SetLazy(l bool) {
	tz.lazy = l
}

// Hidden reports whether the node skips drawing its own result.
func (tz *Texturizer) Hidden() bool { return tz.hidden }

// SetHidden makes the subtree render offscreen only: the result is available
// through ResultTexture but the node itself draws nothing.
func (tz *Texturizer) SetHidden(h bool) {
	if tz.hidden == h {
		return
	}
	tz.hidden = h
	tz.node.setRecalc(recalcRender)
}

// Filters returns the filter chain applied to the offscreen result.
func (tz *Texturizer) Filters() []Filter { return tz.filters }

// SetFilters replaces the filter chain. The target grows by the chain's
// padding on every side.
func (tz *Texturizer) SetFilters(filters ...Filter) {
	tz.filters = filters
	tz.changed = true
	pad := filterChainPadding(filters)
	if pad != tz.pad {
		tz.pad = pad
		tz.base.m = [6]float64{1, 0, 0, 1, float64(pad), float64(pad)}
		tz.baseChanged = true
		tz.node.setRecalc(recalcAll)
	}
	tz.node.setRecalc(recalcRender)
}

// ResultTexture returns a Texture showing the offscreen result. Nodes
// displaying it count as consumers of the texturizer.
func (tz *Texturizer) ResultTexture() *Texture { return tz.resultTexture }

// IsCached reports whether the last result is being kept across frames.
func (tz *Texturizer) IsCached() bool { return tz.cached && tz.target != nil }

// padding returns the filter padding in pixels.
func (tz *Texturizer) padding() int {
	if tz == nil {
		return 0
	}
	return tz.pad
}

// consumers counts what wants the result this frame: every active node
// displaying ResultTexture or a region of it, plus the node itself unless
// hidden.
func (tz *Texturizer) consumers() int {
	c := 0
	for _, t := range tz.resultSource.textures {
		c += t.activeCount
	}
	if !tz.hidden {
		c++
	}
	return c
}

// targetSize returns the offscreen size for the node's current render size.
func (tz *Texturizer) targetSize() (w, h int) {
	rw, rh := tz.node.renderW, tz.node.renderH
	if rw <= 0 || rh <= 0 {
		return 0, 0
	}
	return int(math.Ceil(rw)) + 2*tz.pad, int(math.Ceil(rh)) + 2*tz.pad
}

// setResult installs t as the visible result. Consumers are marked for
// update when the result size changes.
func (tz *Texturizer) setResult(t GPUTexture, w, h int) {
	tz.target = t
	src := tz.resultSource
	src.gpu = t
	if src.width == w && src.height == h {
		return
	}
	src.width, src.height = w, h
	for _, tex := range src.textures {
		for _, u := range tex.users {
			u.setRecalc(recalcTranslate | recalcBounds | recalcRender)
		}
	}
}

// release hands the target back to the pool at the end of the frame. The
// result size is kept so consumers stay laid out until the next pass.
func (tz *Texturizer) release(s *Stage) {
	if tz.target == nil {
		return
	}
	s.deferred = append(s.deferred, tz.target)
	tz.target = nil
	tz.resultSource.gpu = nil
}

// free drops the offscreen target. Consumers draw nothing until the next
// offscreen pass.
func (tz *Texturizer) free() {
	tz.cached = false
	t := tz.target
	tz.setResult(nil, 0, 0)
	if t != nil && tz.pool != nil {
		tz.pool.drop(t)
	}
}

// TexturizerCacheState is what a TexturizerCachePolicy decides on.
type TexturizerCacheState struct {
	// Changed reports whether anything in the subtree changed since the
	// previous frame.
	Changed bool
	// Consumers is the number of things drawing the result this frame.
	Consumers int
	// SiblingCached reports whether another texturizer in the same pass
	// already kept its result this frame.
	SiblingCached bool
}

// TexturizerCachePolicy decides whether a freshly rendered result is kept
// for the next frames.
type TexturizerCachePolicy func(TexturizerCacheState) bool

// DefaultTexturizerCachePolicy keeps unchanged results that are shared, or
// that are the only cached result of their pass. This bounds offscreen
// memory under nested or chained filters.
func DefaultTexturizerCachePolicy(st TexturizerCacheState) bool {
	return !st.Changed && (st.Consumers > 1 || !st.SiblingCached)
}
