package lantern

import (
	"errors"
	"fmt"
	"sort"
)

// Atlas allocation errors.
var (
	// ErrAtlasFull means no free rectangle fits and defragmentation is not
	// currently allowed. Callers fall back to a dedicated texture.
	ErrAtlasFull = errors.New("lantern: atlas full")
	// ErrSourceTooLarge means the source exceeds the atlas size or the
	// configured maximum fraction of its capacity.
	ErrSourceTooLarge = errors.New("lantern: source too large for atlas")
	// ErrDefragPending means no free rectangle fits right now, but the atlas
	// will defragment at the next Flush and retry the source then.
	ErrDefragPending = errors.New("lantern: atlas allocation pending defragmentation")
)

// AtlasConfig configures a TextureAtlas.
type AtlasConfig struct {
	// Size is the width and height of the square atlas texture.
	Size int `toml:"size"`
	// Border is the padding added to the right and bottom of every
	// allocation so neighbors do not bleed when sampled with filtering.
	Border int `toml:"border"`
	// MaxSourceFraction is the largest share of the atlas area one source
	// may take; bigger sources get a dedicated texture.
	MaxSourceFraction float64 `toml:"max_source_fraction"`
	// MinWastedPixels is the freed area that must accumulate before a failed
	// allocation may trigger defragmentation.
	MinWastedPixels int `toml:"min_wasted_pixels"`
	// DefragCooldown is the minimum number of frames between defragmentations.
	DefragCooldown int `toml:"defrag_cooldown"`
}

// DefaultAtlasConfig returns the default atlas configuration.
func DefaultAtlasConfig() AtlasConfig {
	return AtlasConfig{
		Size:              2048,
		Border:            1,
		MaxSourceFraction: 0.25,
		MinWastedPixels:   100_000,
		DefragCooldown:    60,
	}
}

// AtlasStats reports atlas usage.
type AtlasStats struct {
	Size         int
	Resident     int
	UsedPixels   int
	WastedPixels int
	FreePixels   int
	Allocations  int
	Failures     int
	Defrags      int
	Rejected     int
}

// String returns a human-readable summary.
func (s AtlasStats) String() string {
	total := s.Size * s.Size
	pct := 0.0
	if total > 0 {
		pct = float64(s.UsedPixels) / float64(total) * 100
	}
	return fmt.Sprintf("atlas %dx%d: %d sources, %.1f%% used, %d wasted px, %d allocs, %d failures, %d defrags, %d rejected",
		s.Size, s.Size, s.Resident, pct, s.WastedPixels, s.Allocations, s.Failures, s.Defrags, s.Rejected)
}

// TextureAtlas packs small texture sources into one shared GPU texture so
// quads from different sources can share a run. Freed space, and the space
// of resident sources no active node references, is not reused until the
// atlas is defragmented, which rebuilds the packing from the sources still
// in use.
type TextureAtlas struct {
	dev      Device
	size     int
	border   int
	maxArea  float64
	minWaste int
	cooldown int64

	tree *atlasTree
	gpu  GPUTexture

	resident []*TextureSource
	dirty    []*TextureSource
	pending  []*TextureSource
	rejected []*TextureSource
	released []*TextureSource

	clearNeeded  bool
	defragNeeded bool
	usedPixels   int
	wastedPixels int
	frame        int64
	lastDefrag   int64

	allocations int
	failures    int
	defrags     int
}

// NewTextureAtlas creates an atlas. The GPU texture is created on the first
// Flush with something to upload.
func NewTextureAtlas(dev Device, cfg AtlasConfig) *TextureAtlas {
	def := DefaultAtlasConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Border < 0 {
		cfg.Border = 0
	}
	if cfg.MaxSourceFraction <= 0 {
		cfg.MaxSourceFraction = def.MaxSourceFraction
	}
	return &TextureAtlas{
		dev:        dev,
		size:       cfg.Size,
		border:     cfg.Border,
		maxArea:    cfg.MaxSourceFraction * float64(cfg.Size) * float64(cfg.Size),
		minWaste:   cfg.MinWastedPixels,
		cooldown:   int64(cfg.DefragCooldown),
		tree:       newAtlasTree(cfg.Size, cfg.Size),
		lastDefrag: -int64(cfg.DefragCooldown),
	}
}

// Suitable reports whether a w x h source may live in the atlas.
func (a *TextureAtlas) Suitable(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	bw, bh := w+a.border, h+a.border
	return bw <= a.size && bh <= a.size && float64(bw*bh) <= a.maxArea
}

// setFrame advances the atlas clock used for the defragmentation cooldown.
func (a *TextureAtlas) setFrame(frame int64) {
	a.frame = frame
}

// canDefrag reports whether enough space was wasted, and enough frames have
// passed, to justify a defragmentation.
func (a *TextureAtlas) canDefrag() bool {
	return a.wastedPixels >= a.minWaste && a.frame-a.lastDefrag >= a.cooldown
}

// Allocate reserves space for src. Pixels are written at the next Flush.
func (a *TextureAtlas) Allocate(src *TextureSource) error {
	if src.atlasNode != nil || src.atlasPending {
		return nil
	}
	if !a.Suitable(src.width, src.height) {
		return fmt.Errorf("lantern: allocate %dx%d: %w", src.width, src.height, ErrSourceTooLarge)
	}
	if node := a.tree.insert(src.width+a.border, src.height+a.border); node != nil {
		a.place(src, node)
		a.dirty = append(a.dirty, src)
		return nil
	}
	a.failures++
	if a.canDefrag() {
		src.atlasPending = true
		a.pending = append(a.pending, src)
		a.defragNeeded = true
		return ErrDefragPending
	}
	return fmt.Errorf("lantern: allocate %dx%d: %w", src.width, src.height, ErrAtlasFull)
}

func (a *TextureAtlas) place(src *TextureSource, node *atlasNode) {
	node.owner = src
	src.atlasNode = node
	a.resident = append(a.resident, src)
	a.usedPixels += node.w * node.h
	a.allocations++
}

// Free releases src's allocation. The area counts as wasted until the next
// defragmentation. Any source rejected by an earlier defragmentation becomes
// eligible again.
func (a *TextureAtlas) Free(src *TextureSource) {
	if node := src.atlasNode; node != nil {
		node.owner = nil
		src.atlasNode = nil
		if !src.atlasIdle {
			area := node.w * node.h
			a.usedPixels -= area
			a.wastedPixels += area
		}
		src.atlasIdle = false
		a.resident = removeSource(a.resident, src)
		a.dirty = removeSource(a.dirty, src)
		for _, r := range a.rejected {
			r.atlasRejected = false
		}
		a.released = append(a.released, a.rejected...)
		clear(a.rejected)
		a.rejected = a.rejected[:0]
	}
	if src.atlasPending {
		src.atlasPending = false
		a.pending = removeSource(a.pending, src)
	}
	if src.atlasRejected {
		src.atlasRejected = false
		a.rejected = removeSource(a.rejected, src)
	}
}

// setIdle moves a resident source's area between used and wasted as it
// loses or regains its last active reference. Idle sources keep their pixels
// in place and are dropped by the next defragmentation.
func (a *TextureAtlas) setIdle(src *TextureSource, idle bool) {
	node := src.atlasNode
	if node == nil || src.atlasIdle == idle {
		return
	}
	src.atlasIdle = idle
	area := node.w * node.h
	if idle {
		a.usedPixels -= area
		a.wastedPixels += area
	} else {
		a.usedPixels += area
		a.wastedPixels -= area
	}
}

// takeReleased returns the sources whose rejection was lifted since the
// last call.
func (a *TextureAtlas) takeReleased() []*TextureSource {
	out := a.released
	a.released = nil
	return out
}

// Defragment rebuilds the packing from scratch: every resident source that
// is still in use and every pending source is re-inserted, tallest first.
// Sources that still do not fit are rejected until space is freed.
func (a *TextureAtlas) Defragment() {
	items := make([]*TextureSource, 0, len(a.resident)+len(a.pending))
	for _, src := range a.resident {
		src.atlasNode = nil
		src.atlasIdle = false
		if src.activeCount > 0 {
			items = append(items, src)
		}
	}
	for _, src := range a.pending {
		src.atlasPending = false
		if src.activeCount > 0 && src.state == sourceLoaded {
			items = append(items, src)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].height != items[j].height {
			return items[i].height > items[j].height
		}
		return items[i].width > items[j].width
	})

	a.tree.reset()
	clear(a.resident)
	a.resident = a.resident[:0]
	clear(a.pending)
	a.pending = a.pending[:0]
	clear(a.dirty)
	a.dirty = a.dirty[:0]
	a.usedPixels = 0
	a.wastedPixels = 0

	for _, src := range items {
		node := a.tree.insert(src.width+a.border, src.height+a.border)
		if node == nil {
			src.atlasRejected = true
			a.rejected = append(a.rejected, src)
			continue
		}
		a.place(src, node)
		a.dirty = append(a.dirty, src)
	}

	a.defragNeeded = false
	a.clearNeeded = true
	a.lastDefrag = a.frame
	a.defrags++
}

// Flush runs a pending defragmentation and writes the pixels of new
// allocations to the atlas texture.
func (a *TextureAtlas) Flush() {
	if a.defragNeeded {
		a.Defragment()
	}
	if len(a.dirty) == 0 && !a.clearNeeded {
		return
	}
	if a.gpu == nil {
		a.gpu = a.dev.NewTexture(a.size, a.size)
		a.clearNeeded = false
	}
	if a.clearNeeded {
		a.dev.Clear(a.gpu)
		a.clearNeeded = false
	}
	for _, src := range a.dirty {
		if src.atlasNode != nil && src.img != nil {
			a.dev.Upload(a.gpu, src.atlasNode.x, src.atlasNode.y, src.img)
		}
	}
	clear(a.dirty)
	a.dirty = a.dirty[:0]
}

// Region returns the pixel rectangle of src inside the atlas, excluding the
// border.
func (a *TextureAtlas) Region(src *TextureSource) (Rect, bool) {
	node := src.atlasNode
	if node == nil {
		return Rect{}, false
	}
	return Rect{
		X:      float64(node.x),
		Y:      float64(node.y),
		Width:  float64(node.w - a.border),
		Height: float64(node.h - a.border),
	}, true
}

// Texture returns the atlas GPU texture, or nil before the first upload.
func (a *TextureAtlas) Texture() GPUTexture {
	return a.gpu
}

// WastedPixels returns the freed area awaiting defragmentation.
func (a *TextureAtlas) WastedPixels() int {
	return a.wastedPixels
}

// Stats returns current usage figures.
func (a *TextureAtlas) Stats() AtlasStats {
	return AtlasStats{
		Size:         a.size,
		Resident:     len(a.resident),
		UsedPixels:   a.usedPixels,
		WastedPixels: a.wastedPixels,
		FreePixels:   a.tree.freeArea(),
		Allocations:  a.allocations,
		Failures:     a.failures,
		Defrags:      a.defrags,
		Rejected:     len(a.rejected),
	}
}

// Dispose deletes the atlas texture and drops every allocation.
func (a *TextureAtlas) Dispose() {
	for _, src := range a.resident {
		src.atlasNode = nil
		src.atlasIdle = false
	}
	for _, src := range a.pending {
		src.atlasPending = false
	}
	for _, src := range a.rejected {
		src.atlasRejected = false
	}
	a.resident, a.pending, a.rejected, a.dirty, a.released = nil, nil, nil, nil, nil
	a.tree.reset()
	a.usedPixels, a.wastedPixels = 0, 0
	if a.gpu != nil {
		a.dev.DeleteTexture(a.gpu)
		a.gpu = nil
	}
}

func removeSource(list []*TextureSource, src *TextureSource) []*TextureSource {
	for i, s := range list {
		if s == src {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
