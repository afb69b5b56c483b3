// sprites10k spawns 10,000 disc sprites that rotate, scale, fade, and
// bounce around the screen simultaneously. A stress test for the lantern
// update and batching pipeline; the whole set shares one atlas run.
package main

import (
	"image"
	"image/color"
	"log"
	"math"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/lantern"
)

const (
	screenW = 1280
	screenH = 720
	count   = 10_000
	discR   = 64
)

type sprite struct {
	node       *lantern.Node
	dx, dy     float64
	rotSpeed   float64
	scaleSpeed float64
	scaleBase  float64
	scaleAmp   float64
	alphaSpeed float64
	phase      float64
}

// disc renders a soft-edged white circle.
func disc(r int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2*r, 2*r))
	for y := 0; y < 2*r; y++ {
		for x := 0; x < 2*r; x++ {
			d := math.Hypot(float64(x-r)+0.5, float64(y-r)+0.5)
			a := math.Max(0, math.Min(1, float64(r)-d))
			v := uint8(a * 255)
			img.SetRGBA(x, y, color.RGBA{v, v, v, v})
		}
	}
	return img
}

func main() {
	opts := lantern.DefaultStageOptions()
	opts.Width, opts.Height = screenW, screenH
	opts.ScreenshotDir = "docs/demos/sprites10k"
	stage := lantern.NewStage(lantern.NewEbitenDevice(), opts)

	tex := stage.Textures().ImageTexture("disc", disc(discR))
	sprites := make([]sprite, count)
	root := stage.Root()

	for i := range sprites {
		sp := lantern.NewNode("disc")
		sp.SetTexture(tex)
		sp.SetPosition(rand.Float64()*screenW, rand.Float64()*screenH)

		base := 0.15 + rand.Float64()*0.2
		sp.SetScale(base, base)
		sp.SetColor(lantern.Color{
			R: 0.5 + rand.Float64()*0.5,
			G: 0.5 + rand.Float64()*0.5,
			B: 0.5 + rand.Float64()*0.5,
			A: 1,
		})
		root.AddChild(sp)

		sprites[i] = sprite{
			node:       sp,
			dx:         (rand.Float64() - 0.5) * 4,
			dy:         (rand.Float64() - 0.5) * 4,
			rotSpeed:   (rand.Float64() - 0.5) * 0.08,
			scaleSpeed: 1 + rand.Float64()*2,
			scaleBase:  base,
			scaleAmp:   0.03 + rand.Float64()*0.07,
			alphaSpeed: 0.5 + rand.Float64()*2,
			phase:      rand.Float64() * math.Pi * 2,
		}
	}

	var frame float64
	update := func() error {
		frame++
		t := frame / 60.0

		if frame == 30 {
			stage.Screenshot("thumbnail")
		}
		if frame == 32 {
			return ebiten.Termination
		}

		for i := range sprites {
			s := &sprites[i]
			n := s.node
			x, y := n.X()+s.dx, n.Y()+s.dy

			half := s.scaleBase * discR
			if x < -half {
				x = -half
				s.dx = -s.dx
			} else if x > screenW+half {
				x = screenW + half
				s.dx = -s.dx
			}
			if y < -half {
				y = -half
				s.dy = -s.dy
			} else if y > screenH+half {
				y = screenH + half
				s.dy = -s.dy
			}
			n.SetPosition(x, y)
			n.SetRotation(n.Rotation() + s.rotSpeed)

			sc := s.scaleBase + s.scaleAmp*math.Sin(t*s.scaleSpeed+s.phase)
			n.SetScale(sc, sc)
			n.SetAlpha(0.5 + 0.5*math.Sin(t*s.alphaSpeed+s.phase))
		}
		return nil
	}

	if err := lantern.Run(stage, lantern.RunConfig{
		Title:      "Lantern - 10k Sprites",
		ClearColor: lantern.Color{R: 0.06, G: 0.06, B: 0.09, A: 1},
		ShowFPS:    true,
		Update:     update,
	}); err != nil {
		log.Fatal(err)
	}
}
