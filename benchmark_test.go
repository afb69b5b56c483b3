package lantern

import (
	"errors"
	"math"
	"testing"
)

// setupBenchStage creates a 1280x720 stage with n 32x32 sprites on a grid.
// Sprites beyond the first 32 rows fall outside the viewport and margin.
func setupBenchStage(b *testing.B, n int, configure ...func(*StageOptions)) (*Stage, *fakeDevice, []*Node) {
	b.Helper()
	opts := DefaultStageOptions()
	for _, fn := range configure {
		fn(&opts)
	}
	dev := &fakeDevice{}
	s := NewStage(dev, opts)
	tex := s.Textures().ImageTexture("bench", solidImage(32, 32, colorRed))
	nodes := make([]*Node, n)
	for i := range nodes {
		sp := sprite("sp", tex, float64(i%100)*40, float64(i/100)*40, 32, 32)
		s.Root().AddChild(sp)
		nodes[i] = sp
	}
	s.Update()
	return s, dev, nodes
}

func benchFrames(b *testing.B, s *Stage, dev *fakeDevice, each func(i int)) {
	screen := dev.NewTexture(s.Size())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if each != nil {
			each(i)
		}
		dev.reset()
		s.Update()
		s.Render(screen)
	}
}

func BenchmarkFrame_10000Sprites_Static(b *testing.B) {
	s, dev, _ := setupBenchStage(b, 10000)
	benchFrames(b, s, dev, nil)
}

func BenchmarkFrame_10000Sprites_Rotating(b *testing.B) {
	s, dev, nodes := setupBenchStage(b, 10000)
	benchFrames(b, s, dev, func(i int) {
		r := float64(i) * 0.01
		for _, n := range nodes {
			n.SetRotation(r)
		}
	})
}

func BenchmarkFrame_10000Sprites_AlphaVarying(b *testing.B) {
	s, dev, nodes := setupBenchStage(b, 10000)
	benchFrames(b, s, dev, func(i int) {
		a := 0.5 + 0.5*math.Sin(float64(i)*0.1)
		for _, n := range nodes {
			n.SetAlpha(a)
		}
	})
}

func BenchmarkFrame_10000Sprites_NoAtlas(b *testing.B) {
	s, dev, _ := setupBenchStage(b, 10000, withoutAtlas)
	benchFrames(b, s, dev, nil)
}

func BenchmarkUpdate_10000Moving(b *testing.B) {
	s, _, nodes := setupBenchStage(b, 10000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j, n := range nodes {
			n.SetX(float64(j%100)*40 + float64(i%8))
		}
		s.Update()
	}
}

func BenchmarkUpdate_10000Clean(b *testing.B) {
	s, _, _ := setupBenchStage(b, 10000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Update()
	}
}

func BenchmarkUpdate_ScrollThroughMargin(b *testing.B) {
	s, _, _ := setupBenchStage(b, 10000)
	root := s.Root()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		root.SetY(-float64(i%100) * 40)
		s.Update()
	}
}

func BenchmarkZSort_10000(b *testing.B) {
	s, _, nodes := setupBenchStage(b, 10000)
	for i, n := range nodes {
		n.SetZIndex(i % 7)
	}
	s.Update()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		nodes[i%len(nodes)].SetZIndex(i % 11)
		s.Update()
	}
}

func BenchmarkTexturizer_CachedGroup(b *testing.B) {
	s, dev, _ := setupBenchStage(b, 0)
	tex := s.Textures().ImageTexture("child", solidImage(8, 8, colorRed))
	group := sprite("group", nil, 0, 0, 400, 400)
	for i := 0; i < 1000; i++ {
		group.AddChild(sprite("c", tex, float64(i%40)*10, float64(i/40)*10, 8, 8))
	}
	s.Root().AddChild(group)
	group.Texturizer().SetEnabled(true)
	benchFrames(b, s, dev, nil)
}

func BenchmarkAtlasChurn(b *testing.B) {
	a := NewTextureAtlas(&fakeDevice{}, AtlasConfig{Size: 1024, Border: 1, MaxSourceFraction: 0.1, MinWastedPixels: 10000, DefragCooldown: 10})
	live := make([]*TextureSource, 0, 64)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.setFrame(int64(i))
		if len(live) == cap(live) {
			src := live[0]
			src.activeCount = 0
			a.Free(src)
			live = append(live[:0], live[1:]...)
		}
		src := atlasSource("b", 8+i%56, 8+(i*7)%56)
		if err := a.Allocate(src); err == nil || errors.Is(err, ErrDefragPending) {
			live = append(live, src)
		}
		a.Flush()
	}
}
