package lantern

import (
	"log/slog"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// Stage is the top-level object: it owns the node tree, the texture manager
// and atlas, and the render buffers. Call Update then Render once per tick.
type Stage struct {
	root     *Node
	dev      Device
	opts     StageOptions
	logger   *slog.Logger
	logLevel slog.LevelVar
	debug    bool

	textures *TextureManager
	atlas    *TextureAtlas

	frame int64

	// Update state
	treeOrder   uint64
	zForceOrder bool
	zSortQueue  []*Node
	viewClip    clipRegion
	rootMargin  Margin

	// Events
	events      []Event
	dispatching []Event
	observers   []Observer
	store       EntityStore

	// Render state
	targets     targetPool
	deferred    []GPUTexture
	uncached    []*Texturizer
	passes      []*QuadBuffer
	depth       int
	cachePolicy TexturizerCachePolicy
	screen      *ebitenTexture
	screenshots []string

	stats FrameStats
}

// NewStage creates a stage drawing through dev. Zero fields of opts take
// their defaults.
func NewStage(dev Device, opts StageOptions) *Stage {
	def := DefaultStageOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	s := &Stage{
		dev:         dev,
		opts:        opts,
		cachePolicy: DefaultTexturizerCachePolicy,
	}
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &s.logLevel}))
	if !opts.DisableAtlas {
		s.atlas = NewTextureAtlas(dev, opts.Atlas)
	}
	s.textures = newTextureManager(dev, s.atlas, opts.TextureMemoryLimit, s.logger)
	s.targets.dev = dev
	s.textures.targets = &s.targets
	s.rootMargin = UniformMargin(max(opts.BoundsMargin, 0))
	s.viewClip = clipRegion{rect: Rect{Width: float64(opts.Width), Height: float64(opts.Height)}}

	s.root = NewNode("root")
	s.root.stage = s
	s.SetDebugMode(opts.Debug)
	return s
}

// Root returns the stage's root node.
func (s *Stage) Root() *Node {
	return s.root
}

// Textures returns the stage's texture manager.
func (s *Stage) Textures() *TextureManager {
	return s.textures
}

// Atlas returns the shared texture atlas, or nil when disabled.
func (s *Stage) Atlas() *TextureAtlas {
	return s.atlas
}

// Frame returns the number of the current (or last) frame.
func (s *Stage) Frame() int64 {
	return s.frame
}

// Size returns the viewport size.
func (s *Stage) Size() (w, h int) {
	return s.opts.Width, s.opts.Height
}

// Resize changes the viewport. Every node is reclassified on the next update.
func (s *Stage) Resize(w, h int) {
	w, h = max(w, 0), max(h, 0)
	if w == s.opts.Width && h == s.opts.Height {
		return
	}
	s.opts.Width, s.opts.Height = w, h
	s.viewClip = clipRegion{rect: Rect{Width: float64(w), Height: float64(h)}}
	s.root.setRecalc(recalcBounds)
}

// SetBoundsMargin sets the margin around the viewport that descendants
// inherit by default.
func (s *Stage) SetBoundsMargin(m Margin) {
	if s.rootMargin == m {
		return
	}
	s.rootMargin = m
	s.root.setRecalc(recalcBounds)
}

// SetLogger replaces the logger used for warnings and debug stats.
func (s *Stage) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	s.logger = l
	s.textures.logger = l
}

// SetTexturizerCachePolicy replaces the rule deciding which texturizer
// results are kept across frames. nil restores the default.
func (s *Stage) SetTexturizerCachePolicy(p TexturizerCachePolicy) {
	if p == nil {
		p = DefaultTexturizerCachePolicy
	}
	s.cachePolicy = p
}

// Update applies finished texture loads, resolves every pending property
// change, resorts z-contexts and dispatches the frame's events.
func (s *Stage) Update() {
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}
	s.frame++
	s.stats = FrameStats{Frame: s.frame}
	if s.atlas != nil {
		s.atlas.setFrame(s.frame)
	}
	s.targets.setFrame(s.frame)

	s.textures.applyLoads()
	s.updateTree()
	s.sortZContexts()

	// Loaders that complete synchronously deliver during activation; apply
	// them now so the texture shows this frame.
	s.textures.applyLoads()
	if s.root.hasUpdates {
		s.updateTree()
		s.sortZContexts()
	}

	s.dispatchEvents()
	if s.debug {
		s.stats.UpdateTime = time.Since(t0)
	}
}

// Draw renders into an ebiten image, typically the screen passed to
// ebiten.Game.Draw. The stage must use an EbitenDevice.
func (s *Stage) Draw(screen *ebiten.Image) {
	if s.screen == nil || s.screen.img != screen {
		s.screen = &ebitenTexture{img: screen}
	}
	s.Render(s.screen)
	s.flushScreenshots(screen)
}

// Dispose frees every GPU resource of the stage. The stage must not be used
// afterwards.
func (s *Stage) Dispose() {
	s.root.Dispose()
	s.textures.releaseAll()
	if s.atlas != nil {
		s.atlas.Dispose()
	}
	s.targets.purge()
}

// attachSubtree connects a subtree that was added below an attached node.
func (s *Stage) attachSubtree(n *Node) {
	s.setStage(n)
	s.zAttach(n)
}

func (s *Stage) setStage(n *Node) {
	n.stage = s
	s.queueEvent(n, EventAttached, nil)
	for _, c := range n.children {
		s.setStage(c)
	}
}

// detachSubtree disconnects a subtree that is being removed from the tree:
// textures are released, z registrations dropped and offscreen targets freed.
func (s *Stage) detachSubtree(n *Node) {
	s.deactivateSubtree(n)
	s.zDetach(n)
	s.clearStage(n)
}

func (s *Stage) clearStage(n *Node) {
	for _, c := range n.children {
		s.clearStage(c)
	}
	if n.texturizer != nil {
		n.texturizer.free()
	}
	s.queueEvent(n, EventDetached, nil)
	n.stage = nil
	n.boundsState = BoundsDrawable
}
