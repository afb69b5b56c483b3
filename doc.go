// Package lantern is a retained-mode 2D scene graph and renderer for
// [Ebitengine].
//
// Lantern keeps a tree of [Node] values and turns it into batched textured
// quads each frame. Property setters only mark nodes dirty; [Stage.Update]
// resolves every pending change in one pass, and [Stage.Render] emits quads
// for the nodes inside the viewport, clipped and z-ordered.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you:
//
//	stage := lantern.NewStage(lantern.NewEbitenDevice(), lantern.DefaultStageOptions())
//	// ... add nodes ...
//	lantern.Run(stage, lantern.RunConfig{Title: "My Game"})
//
// For full control, implement [ebiten.Game] yourself and call
// [Stage.Update] and [Stage.Draw] directly:
//
//	type Game struct{ stage *lantern.Stage }
//
//	func (g *Game) Update() error        { g.stage.Update(); return nil }
//	func (g *Game) Draw(s *ebiten.Image) { g.stage.Draw(s) }
//	func (g *Game) Layout(w, h int) (int, int) { return g.stage.Size() }
//
// # Nodes
//
// Nodes are positioned by x, y, scale, rotation, skew, pivot and mount, and
// sized explicitly or by their texture. Children inherit their parent's
// transform and alpha.
//
//	box := lantern.NewNode("box")
//	box.SetTexture(stage.Textures().WhiteTexture())
//	box.SetSize(80, 40)
//	box.SetColor(lantern.Color{R: 0.3, G: 0.7, B: 1, A: 1})
//	stage.Root().AddChild(box)
//
// [Node.Patch] sets many properties at once from a [Settings] map, creating
// and removing children by ref.
//
// # Visibility
//
// Each node is classified against its parent's clip rectangle and bounds
// margin as drawable, inside the margin, or outside. Outside nodes skip
// their subtree in the update and release their textures; nodes inside the
// margin stay updated and keep textures loaded without being drawn.
//
// # Textures
//
// A [TextureManager] shares [TextureSource] values by key and loads them
// through a [Loader] when the first node displaying them becomes active.
// Small sources are packed into a shared [TextureAtlas].
//
// # Texturizers
//
// Any node can render its subtree into an offscreen target through its
// [Texturizer], optionally post-processed by a chain of [Filter] values. The
// result is drawn in place of the subtree and can be displayed by other
// nodes through [Texturizer.ResultTexture].
//
// # Events and ECS
//
// Attach, activation and texture load events are delivered to per-node
// observers at the end of each update, and can be forwarded into a [Donburi]
// world through the lantern/ecs adapter.
//
// [Ebitengine]: https://ebitengine.org
// [Donburi]: https://github.com/yohamta/donburi
package lantern
