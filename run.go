package lantern

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// RunConfig configures Run.
type RunConfig struct {
	Title string
	// Width and Height are the window size; zero uses the stage size.
	Width, Height int
	// ClearColor fills the screen before each draw.
	ClearColor Color
	// ShowFPS prints the current FPS and TPS in the top-left corner.
	ShowFPS bool
	// Update, if set, runs every tick before the stage update. A non-nil
	// error ends the game loop and is returned by Run.
	Update func() error
}

// Run opens a window and drives stage with an Ebitengine game loop. The
// stage should have been created with an EbitenDevice.
func Run(stage *Stage, cfg RunConfig) error {
	w, h := stage.Size()
	if cfg.Width > 0 && cfg.Height > 0 {
		w, h = cfg.Width, cfg.Height
		stage.Resize(w, h)
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(w, h)
	return ebiten.RunGame(&gameShell{stage: stage, cfg: cfg})
}

type gameShell struct {
	stage *Stage
	cfg   RunConfig
}

func (g *gameShell) Update() error {
	if g.cfg.Update != nil {
		if err := g.cfg.Update(); err != nil {
			return err
		}
	}
	g.stage.Update()
	return nil
}

func (g *gameShell) Draw(screen *ebiten.Image) {
	if g.cfg.ClearColor.A > 0 {
		screen.Fill(g.cfg.ClearColor.NRGBA())
	}
	g.stage.Draw(screen)
	if g.cfg.ShowFPS {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
}

func (g *gameShell) Layout(outsideW, outsideH int) (int, int) {
	return g.stage.Size()
}
