package lantern

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whiteSource(tex GPUTexture, w, h float64) *quadSource {
	return &quadSource{
		tex: tex, w: w, h: h,
		u0: 0, v0: 0, u1: 1, v1: 1,
		ul: ColorWhite, ur: ColorWhite, br: ColorWhite, bl: ColorWhite,
	}
}

func translated(x, y float64) *coreContext {
	return &coreContext{m: [6]float64{1, 0, 0, 1, x, y}, alpha: 1}
}

func TestAddQuadInsideRegionUnchanged(t *testing.T) {
	var b QuadBuffer
	region := &clipRegion{rect: Rect{Width: 100, Height: 100}, clipped: true}
	b.addQuad(whiteSource(nil, 20, 10), translated(5, 5), region)

	require.Equal(t, 1, b.Len())
	q := b.Quad(0)
	assert.Equal(t, Vertex{X: 5, Y: 5, U: 0, V: 0, Color: 0xffffffff}, q[0])
	assert.Equal(t, Vertex{X: 25, Y: 5, U: 1, V: 0, Color: 0xffffffff}, q[1])
	assert.Equal(t, Vertex{X: 25, Y: 15, U: 1, V: 1, Color: 0xffffffff}, q[2])
	assert.Equal(t, Vertex{X: 5, Y: 15, U: 0, V: 1, Color: 0xffffffff}, q[3])
}

func TestAddQuadDisjointRegionEmitsNothing(t *testing.T) {
	var b QuadBuffer
	region := &clipRegion{rect: Rect{Width: 100, Height: 100}, clipped: true}
	b.addQuad(whiteSource(nil, 20, 10), translated(200, 5), region)
	assert.Zero(t, b.Len())

	rotated := &coreContext{alpha: 1, complex: true}
	rotated.m = [6]float64{math.Cos(0.5), math.Sin(0.5), -math.Sin(0.5), math.Cos(0.5), 300, 300}
	b.addQuad(whiteSource(nil, 20, 10), rotated, region)
	assert.Zero(t, b.Len())
}

func TestAddQuadPartialRectClip(t *testing.T) {
	var b QuadBuffer
	region := &clipRegion{rect: Rect{X: 10, Width: 100, Height: 100}, clipped: true}
	b.addQuad(whiteSource(nil, 20, 10), translated(0, 0), region)

	require.Equal(t, 1, b.Len())
	q := b.Quad(0)
	assert.Equal(t, float32(10), q[0].X)
	assert.Equal(t, float32(0.5), q[0].U)
	assert.Equal(t, float32(20), q[1].X)
	assert.Equal(t, float32(1), q[1].U)
	assert.Equal(t, float32(0.5), q[3].U)
	assert.Equal(t, float32(1), q[3].V)
}

func TestAddQuadRotatedClipStaysInRegion(t *testing.T) {
	var b QuadBuffer
	region := &clipRegion{rect: Rect{Width: 50, Height: 50}, clipped: true}
	ctx := &coreContext{alpha: 1, complex: true}
	c, s := math.Cos(math.Pi/4), math.Sin(math.Pi/4)
	ctx.m = [6]float64{c, s, -s, c, 40, 0}
	b.addQuad(whiteSource(nil, 40, 40), ctx, region)

	require.Positive(t, b.Len())
	for _, v := range b.Vertices() {
		assert.GreaterOrEqual(t, v.X, float32(-1e-4))
		assert.LessOrEqual(t, v.X, float32(50+1e-4))
		assert.GreaterOrEqual(t, v.Y, float32(-1e-4))
		assert.LessOrEqual(t, v.Y, float32(50+1e-4))
		assert.GreaterOrEqual(t, v.U, float32(0))
		assert.LessOrEqual(t, v.U, float32(1))
		assert.GreaterOrEqual(t, v.V, float32(0))
		assert.LessOrEqual(t, v.V, float32(1))
	}
}

func TestAddQuadSkipsInvisible(t *testing.T) {
	var b QuadBuffer
	ctx := translated(0, 0)
	ctx.alpha = 0
	b.addQuad(whiteSource(nil, 20, 10), ctx, nil)
	b.addQuad(whiteSource(nil, 0, 10), translated(0, 0), nil)
	assert.Zero(t, b.Len())
}

func TestInverseBilinearRectangle(t *testing.T) {
	q := [4]Vec2{{10, 10}, {30, 10}, {30, 50}, {10, 50}}
	s, tt := inverseBilinear(Vec2{20, 30}, &q)
	assert.InDelta(t, 0.5, s, 1e-9)
	assert.InDelta(t, 0.5, tt, 1e-9)

	s, tt = inverseBilinear(Vec2{30, 50}, &q)
	assert.InDelta(t, 1, s, 1e-9)
	assert.InDelta(t, 1, tt, 1e-9)
}

func TestInverseBilinearTrapezoid(t *testing.T) {
	// Bottom edge wider than the top: the mapping is not affine.
	q := [4]Vec2{{10, 0}, {20, 0}, {30, 10}, {0, 10}}
	s, tt := inverseBilinear(Vec2{15, 5}, &q)
	assert.InDelta(t, 0.5, s, 1e-9)
	assert.InDelta(t, 0.5, tt, 1e-9)
}

func TestAppendFanQuadCount(t *testing.T) {
	for _, tc := range []struct{ verts, quads int }{
		{3, 1}, {4, 1}, {5, 2}, {6, 2}, {7, 3}, {8, 3},
	} {
		var b QuadBuffer
		b.appendFan(nil, BlendNormal, make([]Vertex, tc.verts))
		assert.Equal(t, tc.quads, b.Len(), "%d vertices", tc.verts)
	}
}

func TestClipConvexSquares(t *testing.T) {
	a := []Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	b := []Vec2{{5, 5}, {15, 5}, {15, 15}, {5, 15}}
	out := clipConvex(nil, a, b)
	require.Len(t, out, 4)
	r := polygonBounds(out)
	assert.InDelta(t, 5, r.X, 1e-9)
	assert.InDelta(t, 5, r.Width, 1e-9)

	// Counter-clockwise clip windings are accepted too.
	ccw := []Vec2{{5, 5}, {5, 15}, {15, 15}, {15, 5}}
	assert.Len(t, clipConvex(nil, a, ccw), 4)

	far := []Vec2{{50, 50}, {60, 50}, {60, 60}}
	assert.Empty(t, clipConvex(nil, a, far))
}

func TestClippingNodeCutsChildQuads(t *testing.T) {
	s, dev := newTestStage(t, 200, 200, withoutAtlas)
	tex := imageTexture(s, "tex", 8, 8)
	clip := sprite("clip", nil, 0, 0, 50, 50)
	clip.SetClipping(true)
	child := sprite("child", tex, 25, 0, 50, 20)
	clip.AddChild(child)
	s.Root().AddChild(clip)
	s.Update()

	screen := dev.NewTexture(200, 200)
	s.Render(screen)
	draws := dev.drawsInto(screen)
	require.Len(t, draws, 1)
	require.Len(t, draws[0].quads, 1)
	q := draws[0].quads[0]
	assert.Equal(t, float32(25), q[0].X)
	assert.Equal(t, float32(50), q[1].X)
	assert.InDelta(t, 0.5, float64(q[1].U), 1e-6)
}
