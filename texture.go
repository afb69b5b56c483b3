package lantern

import (
	"errors"
	"image"
	"slices"
	"sync"
)

// ErrLoadCancelled is reported to a loader's done callback when the source
// was dereferenced before the load finished. Loaders may also return it.
var ErrLoadCancelled = errors.New("lantern: load cancelled")

// LoadResult is what a Loader produces: decoded pixels plus optional
// metadata. Width and Height default to the image bounds when zero.
type LoadResult struct {
	Image    image.Image
	Width    int
	Height   int
	Metadata map[string]any
}

// Loader starts an asynchronous load and calls done exactly once with the
// result. done may be called from any goroutine, or synchronously before the
// Loader returns. The returned cancel function (which may be nil) is called
// when the result is no longer wanted.
type Loader func(done func(LoadResult, error)) (cancel func())

type sourceState uint8

const (
	sourceIdle sourceState = iota
	sourceLoading
	sourceLoaded
	sourceFailed
)

// TextureSource is the pixel data behind one or more Textures, identified by
// a lookup key. Sources load when the first active node references them and
// are freed by the texture manager once unreferenced (unless permanent).
type TextureSource struct {
	key      string
	loader   Loader
	mgr      *TextureManager
	width    int
	height   int
	img      image.Image
	metadata map[string]any
	state    sourceState
	err      error

	// gen increases whenever an in-flight load stops being wanted; results
	// tagged with an older generation are dropped.
	gen    uint64
	cancel func()

	activeCount int
	permanent   bool
	// textures holds the Textures with active users; whole is the shared
	// full-source Texture handed out by the manager.
	textures []*Texture
	whole    *Texture
	tracked  bool

	// GPU residency: an atlas allocation or a dedicated texture.
	atlasNode     *atlasNode
	atlasIdle     bool
	atlasPending  bool
	atlasRejected bool
	gpu           GPUTexture
	uploadQueued  bool

	// renderTarget marks a texturizer result; it never loads or enters the
	// atlas. texturizer is the producer.
	renderTarget bool
	texturizer   *Texturizer
}

// Key returns the lookup key.
func (src *TextureSource) Key() string { return src.key }

// Size returns the source's pixel size, or zero before it has loaded.
func (src *TextureSource) Size() (w, h int) { return src.width, src.height }

// IsLoaded reports whether pixel data is available.
func (src *TextureSource) IsLoaded() bool { return src.state == sourceLoaded }

// Err returns the last load error, if any.
func (src *TextureSource) Err() error { return src.err }

// Metadata returns the metadata reported by the loader.
func (src *TextureSource) Metadata() map[string]any { return src.metadata }

// ActiveCount returns the number of Textures of the source that active nodes
// display.
func (src *TextureSource) ActiveCount() int { return src.activeCount }

// SetPermanent keeps the source loaded even when unreferenced.
func (src *TextureSource) SetPermanent(p bool) { src.permanent = p }

// Permanent reports whether the source is exempt from freeing.
func (src *TextureSource) Permanent() bool { return src.permanent }

// InAtlas reports whether the source currently lives in the shared atlas.
func (src *TextureSource) InAtlas() bool { return src.atlasNode != nil }

// resident reports whether the source has GPU storage to sample from.
func (src *TextureSource) resident() bool {
	return src.atlasNode != nil || src.gpu != nil
}

// addActive adjusts the active reference count. The first reference starts a
// load (or queues an upload for already-loaded pixels); dropping the last
// reference cancels an in-flight load.
func (src *TextureSource) addActive(delta int) {
	was := src.activeCount
	src.activeCount += delta
	if src.activeCount < 0 {
		panic("lantern: texture source reference count below zero")
	}
	switch {
	case was == 0 && src.activeCount > 0:
		if src.renderTarget {
			return
		}
		if m := src.mgr; m != nil {
			m.track(src)
			if m.atlas != nil {
				m.atlas.setIdle(src, false)
			}
		}
		switch src.state {
		case sourceIdle, sourceFailed:
			src.load()
		case sourceLoaded:
			if !src.resident() && src.mgr != nil {
				src.mgr.queueUpload(src)
			}
		}
	case was > 0 && src.activeCount == 0:
		if src.state == sourceLoading {
			src.cancelLoad()
		}
		if m := src.mgr; m != nil && m.atlas != nil {
			m.atlas.setIdle(src, true)
		}
	}
}

// load starts the loader. The callback only enqueues; results are applied on
// the update thread.
func (src *TextureSource) load() {
	if src.loader == nil {
		return
	}
	src.state = sourceLoading
	src.err = nil
	src.gen++
	gen := src.gen
	var once sync.Once
	cancel := src.loader(func(res LoadResult, err error) {
		once.Do(func() {
			if src.mgr != nil {
				src.mgr.queue.push(loadDone{src: src, gen: gen, res: res, err: err})
			}
		})
	})
	// A synchronous loader may already have delivered; keep cancel only while
	// the load is still outstanding.
	if src.state == sourceLoading && src.gen == gen {
		src.cancel = cancel
	}
}

// cancelLoad abandons the in-flight load.
func (src *TextureSource) cancelLoad() {
	src.gen++
	src.state = sourceIdle
	if c := src.cancel; c != nil {
		src.cancel = nil
		c()
	}
}

// applyLoad installs a load result. Stale results are ignored.
func (src *TextureSource) applyLoad(d loadDone) bool {
	if d.gen != src.gen || src.state != sourceLoading {
		return false
	}
	src.cancel = nil
	if d.err != nil {
		src.state = sourceFailed
		src.err = d.err
		for _, t := range slices.Clone(src.textures) {
			t.notifyError(d.err)
		}
		return true
	}
	res := d.res
	src.img = res.Image
	src.width, src.height = res.Width, res.Height
	if res.Image != nil {
		b := res.Image.Bounds()
		if src.width == 0 {
			src.width = b.Dx()
		}
		if src.height == 0 {
			src.height = b.Dy()
		}
	}
	src.metadata = res.Metadata
	src.state = sourceLoaded
	if src.activeCount > 0 && src.mgr != nil {
		src.mgr.queueUpload(src)
	}
	for _, t := range slices.Clone(src.textures) {
		t.notifyLoaded()
	}
	return true
}

// loadDone is a completed load waiting to be applied.
type loadDone struct {
	src *TextureSource
	gen uint64
	res LoadResult
	err error
}

// loadQueue collects loader callbacks from any goroutine.
type loadQueue struct {
	mu      sync.Mutex
	pending []loadDone
}

func (q *loadQueue) push(d loadDone) {
	q.mu.Lock()
	q.pending = append(q.pending, d)
	q.mu.Unlock()
}

// drain swaps out everything queued so far.
func (q *loadQueue) drain(buf []loadDone) []loadDone {
	q.mu.Lock()
	buf = append(buf[:0], q.pending...)
	clear(q.pending)
	q.pending = q.pending[:0]
	q.mu.Unlock()
	return buf
}

// Texture is a (possibly sub-)region of a TextureSource that nodes display.
// Several Textures may share one source.
type Texture struct {
	source     *TextureSource
	x, y, w, h float64

	users       []*Node // active nodes referencing this texture
	activeCount int
}

// NewTexture returns a Texture covering the whole of src. The source only
// keeps track of it while an active node displays it.
func NewTexture(src *TextureSource) *Texture {
	return &Texture{source: src}
}

// Source returns the backing source.
func (t *Texture) Source() *TextureSource { return t.source }

// Region returns a new Texture for a sub-rectangle of the same source.
func (t *Texture) Region(x, y, w, h float64) *Texture {
	r := NewTexture(t.source)
	r.x, r.y, r.w, r.h = x, y, w, h
	return r
}

// SetRegion changes the sub-rectangle sampled from the source. A zero width
// or height means the full source extent in that dimension.
func (t *Texture) SetRegion(x, y, w, h float64) {
	if t.x == x && t.y == y && t.w == w && t.h == h {
		return
	}
	t.x, t.y, t.w, t.h = x, y, w, h
	for _, n := range t.users {
		if n.displayedTexture == t {
			n.setRecalc(recalcTranslate | recalcBounds | recalcRender)
		}
	}
}

// RegionRect returns the sub-rectangle (x, y, w, h) as set.
func (t *Texture) RegionRect() Rect { return Rect{t.x, t.y, t.w, t.h} }

// IsLoaded reports whether the texture can be displayed.
func (t *Texture) IsLoaded() bool {
	return t.source.state == sourceLoaded
}

// Size returns the display size: the region size, falling back to the
// source size for zero dimensions.
func (t *Texture) Size() (w, h float64) {
	w, h = t.w, t.h
	if w == 0 {
		w = float64(t.source.width) - t.x
	}
	if h == 0 {
		h = float64(t.source.height) - t.y
	}
	return max(w, 0), max(h, 0)
}

// ActiveCount returns the number of active nodes using the texture.
func (t *Texture) ActiveCount() int { return t.activeCount }

// addUser records an active reference from n.
func (t *Texture) addUser(n *Node, delta int) {
	if delta > 0 {
		t.users = append(t.users, n)
		t.activeCount++
		if t.activeCount == 1 {
			t.source.textures = append(t.source.textures, t)
			t.source.addActive(1)
		}
		return
	}
	for i, u := range t.users {
		if u == n {
			last := len(t.users) - 1
			t.users[i] = t.users[last]
			t.users[last] = nil
			t.users = t.users[:last]
			t.activeCount--
			if t.activeCount == 0 {
				t.source.textures = removeTexture(t.source.textures, t)
				t.source.addActive(-1)
			}
			return
		}
	}
}

// notifyLoaded switches every node waiting on this texture over to it.
func (t *Texture) notifyLoaded() {
	for _, n := range t.usersSnapshot() {
		if n.texture == t {
			n.swapDisplayed(t)
			if n.stage != nil {
				n.stage.queueEvent(n, EventTextureLoaded, nil)
			}
		}
	}
}

// notifyError reports a failed load to the nodes requesting this texture.
func (t *Texture) notifyError(err error) {
	for _, n := range t.usersSnapshot() {
		if n.texture == t && n.stage != nil {
			n.stage.queueEvent(n, EventTextureError, err)
		}
	}
}

func removeTexture(list []*Texture, t *Texture) []*Texture {
	for i, x := range list {
		if x == t {
			last := len(list) - 1
			list[i] = list[last]
			list[last] = nil
			return list[:last]
		}
	}
	return list
}

func (t *Texture) usersSnapshot() []*Node {
	return append([]*Node(nil), t.users...)
}

// gpuRegion resolves where the texture's pixels live on the GPU: the texture
// to sample and normalized UVs for the region.
func (t *Texture) gpuRegion(atlas *TextureAtlas) (tex GPUTexture, u0, v0, u1, v1 float64, ok bool) {
	src := t.source
	w, h := t.Size()
	var ox, oy float64
	switch {
	case src.atlasNode != nil && atlas != nil && atlas.gpu != nil:
		tex = atlas.gpu
		ox, oy = float64(src.atlasNode.x), float64(src.atlasNode.y)
	case src.gpu != nil:
		tex = src.gpu
	default:
		return nil, 0, 0, 0, 0, false
	}
	tw, th := tex.Size()
	if tw == 0 || th == 0 || w <= 0 || h <= 0 {
		return nil, 0, 0, 0, 0, false
	}
	fw, fh := float64(tw), float64(th)
	u0 = (ox + t.x) / fw
	v0 = (oy + t.y) / fh
	u1 = (ox + t.x + w) / fw
	v1 = (oy + t.y + h) / fh
	return tex, u0, v0, u1, v1, true
}

// --- Node texture API ---

// SetTexture sets the texture the node should display. Until the texture
// has loaded, the previously displayed texture keeps rendering.
func (n *Node) SetTexture(t *Texture) {
	if n.texture == t {
		return
	}
	if n.active {
		n.refTextures(-1)
	}
	n.texture = t
	if t == nil || t.IsLoaded() {
		n.displayedTexture = t
	}
	if n.active {
		n.refTextures(1)
	}
	n.setRecalc(recalcTranslate | recalcBounds | recalcRender)
}

// Texture returns the requested texture.
func (n *Node) Texture() *Texture { return n.texture }

// DisplayedTexture returns the texture currently being drawn, which lags the
// requested texture until it has loaded.
func (n *Node) DisplayedTexture() *Texture { return n.displayedTexture }

// refTextures adds (delta=1) or removes (delta=-1) the node's references on
// its requested and displayed textures.
func (n *Node) refTextures(delta int) {
	if delta > 0 && n.texture != nil && n.displayedTexture != n.texture && n.texture.IsLoaded() {
		n.displayedTexture = n.texture
		n.setRecalc(recalcTranslate | recalcBounds | recalcRender)
	}
	if n.texture != nil {
		n.texture.addUser(n, delta)
	}
	if d := n.displayedTexture; d != nil && d != n.texture {
		d.addUser(n, delta)
	}
}

// swapDisplayed replaces the displayed texture, moving the active reference.
func (n *Node) swapDisplayed(t *Texture) {
	old := n.displayedTexture
	if old == t {
		return
	}
	if n.active {
		if old != nil && old != n.texture {
			old.addUser(n, -1)
		}
		if t != nil && t != n.texture {
			t.addUser(n, 1)
		}
	}
	n.displayedTexture = t
	n.setRecalc(recalcTranslate | recalcBounds | recalcRender)
}
