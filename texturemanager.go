package lantern

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
)

// TextureManager owns every TextureSource of a stage: it deduplicates sources
// by key, applies finished loads, uploads pixels to the GPU (through the
// atlas when possible) and frees unreferenced sources under memory pressure.
type TextureManager struct {
	dev     Device
	atlas   *TextureAtlas
	targets *targetPool
	logger  *slog.Logger

	sources map[string]*TextureSource
	order   []*TextureSource
	uploads []*TextureSource

	queue   loadQueue
	drained []loadDone

	usedMemory  int64
	memoryLimit int64
}

func newTextureManager(dev Device, atlas *TextureAtlas, memoryLimit int64, logger *slog.Logger) *TextureManager {
	return &TextureManager{
		dev:         dev,
		atlas:       atlas,
		logger:      logger,
		sources:     make(map[string]*TextureSource),
		memoryLimit: memoryLimit,
	}
}

// Source returns the source registered under key, or nil.
func (m *TextureManager) Source(key string) *TextureSource {
	return m.sources[key]
}

// Texture returns the whole-source Texture of the source registered under
// key, creating the source with loader on first use. Repeated lookups return
// the same Texture. The loader runs once the first node displaying the
// texture becomes active.
func (m *TextureManager) Texture(key string, loader Loader) *Texture {
	src, ok := m.sources[key]
	if !ok {
		src = &TextureSource{key: key, loader: loader, mgr: m}
		m.track(src)
	}
	if src.whole == nil {
		src.whole = NewTexture(src)
	}
	return src.whole
}

// track registers src again after FreeUnused dropped it. A newer source that
// took over the key keeps the lookup; src is still managed.
func (m *TextureManager) track(src *TextureSource) {
	if src.tracked {
		return
	}
	src.tracked = true
	if _, ok := m.sources[src.key]; !ok {
		m.sources[src.key] = src
	}
	m.order = append(m.order, src)
}

// untrack forgets src. Textures still pointing at it re-register it when
// displayed again.
func (m *TextureManager) untrack(src *TextureSource) {
	src.tracked = false
	if m.sources[src.key] == src {
		delete(m.sources, src.key)
	}
}

// ImageTexture is Texture with a loader that yields img.
func (m *TextureManager) ImageTexture(key string, img image.Image) *Texture {
	return m.Texture(key, ImageLoader(img))
}

// FileTexture is Texture with a FileLoader for path in fsys, keyed by path.
func (m *TextureManager) FileTexture(fsys fs.FS, path string) *Texture {
	return m.Texture(path, FileLoader(fsys, path))
}

const whiteKey = "lantern:white"

// WhiteTexture returns a texture of a permanent 1x1 white pixel, for solid
// color quads tinted through the node color.
func (m *TextureManager) WhiteTexture() *Texture {
	if _, ok := m.sources[whiteKey]; !ok {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = 0xff, 0xff, 0xff, 0xff
		t := m.ImageTexture(whiteKey, img)
		t.source.SetPermanent(true)
		return t
	}
	return m.Texture(whiteKey, nil)
}

// UsedMemory returns the bytes held by dedicated GPU textures, the atlas and
// offscreen texturizer targets.
func (m *TextureManager) UsedMemory() int64 {
	used := m.usedMemory
	if m.atlas != nil && m.atlas.gpu != nil {
		used += int64(m.atlas.size) * int64(m.atlas.size) * 4
	}
	if m.targets != nil {
		used += m.targets.bytes
	}
	return used
}

// NumSources returns the number of sources the manager tracks.
func (m *TextureManager) NumSources() int {
	return len(m.order)
}

// applyLoads installs every result delivered since the last call.
func (m *TextureManager) applyLoads() {
	m.drained = m.queue.drain(m.drained)
	for _, d := range m.drained {
		if !d.src.applyLoad(d) {
			continue
		}
		if d.err != nil && !errors.Is(d.err, ErrLoadCancelled) {
			m.logger.Warn("texture load failed", "key", d.src.key, "err", d.err)
		}
	}
	clear(m.drained)
}

// queueUpload schedules src for GPU upload at the next flush.
func (m *TextureManager) queueUpload(src *TextureSource) {
	if src.uploadQueued {
		return
	}
	src.uploadQueued = true
	m.uploads = append(m.uploads, src)
}

// flush uploads queued sources and lets the atlas defragment and write its
// pending pixels. Runs at the start of rendering.
func (m *TextureManager) flush() {
	if m.atlas != nil {
		for _, src := range m.atlas.takeReleased() {
			if src.activeCount > 0 && src.state == sourceLoaded {
				m.queueUpload(src)
			}
		}
	}
	for _, src := range m.uploads {
		src.uploadQueued = false
		if src.activeCount == 0 || src.state != sourceLoaded || src.resident() || src.atlasPending {
			continue
		}
		if err := m.upload(src); err != nil {
			m.logger.Warn("texture upload failed", "key", src.key, "err", err)
		}
	}
	clear(m.uploads)
	m.uploads = m.uploads[:0]
	if m.atlas != nil {
		m.atlas.Flush()
	}
}

// upload places src in the atlas, or in a dedicated texture when the atlas
// cannot take it.
func (m *TextureManager) upload(src *TextureSource) error {
	if src.img == nil {
		return fmt.Errorf("lantern: source %q has no pixels", src.key)
	}
	if m.atlas != nil && !src.atlasRejected && m.atlas.Suitable(src.width, src.height) {
		err := m.atlas.Allocate(src)
		if err == nil || errors.Is(err, ErrDefragPending) {
			return nil
		}
		m.logger.Debug("atlas allocation failed, using dedicated texture", "key", src.key, "err", err)
	}
	if src.atlasRejected {
		return nil
	}
	src.gpu = m.dev.NewTexture(src.width, src.height)
	m.dev.Upload(src.gpu, 0, 0, src.img)
	m.usedMemory += int64(src.width) * int64(src.height) * 4
	return nil
}

// release drops src's GPU storage.
func (m *TextureManager) release(src *TextureSource) {
	if src.atlasNode != nil || src.atlasPending || src.atlasRejected {
		m.atlas.Free(src)
	}
	if src.gpu != nil {
		m.dev.DeleteTexture(src.gpu)
		src.gpu = nil
		m.usedMemory -= int64(src.width) * int64(src.height) * 4
	}
}

// FreeUnused releases the pixels and GPU storage of every loaded source that
// is neither referenced by an active node nor permanent, and forgets every
// unreferenced source that is not loading. It returns the number of loaded
// sources freed.
func (m *TextureManager) FreeUnused() int {
	freed := 0
	kept := m.order[:0]
	for _, src := range m.order {
		if src.activeCount > 0 || src.permanent || src.renderTarget || src.state == sourceLoading {
			kept = append(kept, src)
			continue
		}
		if src.state == sourceLoaded {
			m.release(src)
			src.img = nil
			src.state = sourceIdle
			freed++
		}
		m.untrack(src)
	}
	clear(m.order[len(kept):])
	m.order = kept
	return freed
}

// collect frees unused sources once memory use passes the limit.
func (m *TextureManager) collect() {
	if m.memoryLimit <= 0 || m.UsedMemory() <= m.memoryLimit {
		return
	}
	before := m.UsedMemory()
	if m.targets != nil {
		m.targets.trim(0)
	}
	freed := m.FreeUnused()
	m.logger.Debug("texture memory over limit", "limit", m.memoryLimit, "before", before, "after", m.UsedMemory(), "freed", freed)
}

// releaseAll cancels outstanding loads and drops every source's GPU storage.
func (m *TextureManager) releaseAll() {
	for _, src := range m.order {
		if src.state == sourceLoading {
			src.cancelLoad()
		}
		m.release(src)
	}
	clear(m.uploads)
	m.uploads = m.uploads[:0]
}
