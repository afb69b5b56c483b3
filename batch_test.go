package lantern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsCoalesceContiguousQuads(t *testing.T) {
	dev := &fakeDevice{}
	a := dev.NewTexture(4, 4)
	b := dev.NewTexture(4, 4)
	var buf QuadBuffer
	v := Vertex{}
	for _, tex := range []GPUTexture{a, a, b, a} {
		buf.appendQuad(tex, BlendNormal, v, v, v, v)
	}

	runs := buf.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, QuadRun{Texture: a, Blend: BlendNormal, First: 0, Count: 2}, runs[0])
	assert.Equal(t, QuadRun{Texture: b, Blend: BlendNormal, First: 2, Count: 1}, runs[1])
	assert.Equal(t, QuadRun{Texture: a, Blend: BlendNormal, First: 3, Count: 1}, runs[2])
	assert.Equal(t, 4, buf.Len())
	assert.Len(t, buf.Vertices(), 16)
}

func TestRunsSplitOnBlend(t *testing.T) {
	dev := &fakeDevice{}
	a := dev.NewTexture(4, 4)
	var buf QuadBuffer
	v := Vertex{}
	buf.appendQuad(a, BlendNormal, v, v, v, v)
	buf.appendQuad(a, BlendAdd, v, v, v, v)
	buf.appendQuad(a, BlendAdd, v, v, v, v)

	runs := buf.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, 1, runs[0].Count)
	assert.Equal(t, BlendAdd, runs[1].Blend)
	assert.Equal(t, 2, runs[1].Count)
}

func TestQuadBufferResetKeepsCapacity(t *testing.T) {
	var buf QuadBuffer
	v := Vertex{}
	for i := 0; i < 8; i++ {
		buf.appendQuad(nil, BlendNormal, v, v, v, v)
	}
	c := cap(buf.verts)
	buf.Reset()
	assert.Zero(t, buf.Len())
	assert.Empty(t, buf.Runs())
	assert.Equal(t, c, cap(buf.verts))
}

func TestColorPackPremultiplies(t *testing.T) {
	assert.Equal(t, uint32(0xffffffff), ColorWhite.pack(1))
	assert.Equal(t, uint32(0), ColorWhite.pack(0))

	// Half-transparent red: r = 255*0.5, a = 255*0.5.
	c := Color{R: 1, A: 0.5}
	assert.Equal(t, uint32(128)|uint32(128)<<24, c.pack(1))

	// Node alpha multiplies in too.
	assert.Equal(t, uint32(64)|uint32(64)<<24, c.pack(0.5))

	// Components are clamped.
	over := Color{R: 2, G: -1, B: 0.5, A: 1}
	assert.Equal(t, uint32(255)|uint32(0)<<8|uint32(128)<<16|uint32(255)<<24, over.pack(1))
}

func TestVertexColorsInterpolateCorners(t *testing.T) {
	src := whiteSource(nil, 10, 10)
	src.ul = Color{A: 1}
	src.ur = Color{R: 1, A: 1}
	src.bl = Color{A: 1}
	src.br = Color{R: 1, A: 1}
	v := src.vertexAt(Vec2{}, 0.5, 0.5, 1)
	assert.Equal(t, uint32(128)|uint32(255)<<24, v.Color)
}

func TestRenderBatchesSharedAtlas(t *testing.T) {
	s, dev := newTestStage(t, 200, 200)
	a := imageTexture(s, "a", 8, 8)
	b := imageTexture(s, "b", 8, 8)
	s.Root().AddChild(sprite("1", a, 0, 0, 8, 8))
	s.Root().AddChild(sprite("2", b, 10, 0, 8, 8))
	s.Root().AddChild(sprite("3", a, 20, 0, 8, 8))
	s.Update()

	screen := dev.NewTexture(200, 200)
	s.Render(screen)
	draws := dev.drawsInto(screen)
	require.Len(t, draws, 1)
	assert.Len(t, draws[0].quads, 3)
	assert.True(t, a.Source().InAtlas())
	assert.Equal(t, 1, s.Stats().Runs)
	assert.Equal(t, 3, s.Stats().Quads)
}

func TestRenderWithoutAtlasSplitsRuns(t *testing.T) {
	s, dev := newTestStage(t, 200, 200, withoutAtlas)
	a := imageTexture(s, "a", 8, 8)
	b := imageTexture(s, "b", 8, 8)
	s.Root().AddChild(sprite("1", a, 0, 0, 8, 8))
	s.Root().AddChild(sprite("2", b, 10, 0, 8, 8))
	s.Root().AddChild(sprite("3", a, 20, 0, 8, 8))
	s.Update()

	screen := dev.NewTexture(200, 200)
	s.Render(screen)
	assert.Len(t, dev.drawsInto(screen), 3)
}
