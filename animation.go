package lantern

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to four values of a Node together. Values are
// written only through the node's public setters, so a tween is an ordinary
// property writer: changes are batched into the next Stage.Update like any
// other. If the target node is disposed, the group stops immediately.
//
// Call Update(dt) each frame yourself, or add the group to a Tweens set.
type TweenGroup struct {
	tweens [4]*gween.Tween
	values [4]float64
	count  int
	apply  func(v *[4]float64)
	target *Node
	Done   bool
}

func newTweenGroup(node *Node, from, to []float64, duration float32, fn ease.TweenFunc, apply func(v *[4]float64)) *TweenGroup {
	g := &TweenGroup{count: len(from), target: node, apply: apply}
	for i := range from {
		g.tweens[i] = gween.New(float32(from[i]), float32(to[i]), duration, fn)
		g.values[i] = from[i]
	}
	return g
}

// Update advances all tweens by dt seconds and writes the values.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	if g.target != nil && g.target.IsDisposed() {
		g.Done = true
		return
	}
	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		g.values[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
	g.apply(&g.values)
}

// TweenPosition animates the node's position to (toX, toY).
func TweenPosition(node *Node, toX, toY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.x, node.y}, []float64{toX, toY}, duration, fn,
		func(v *[4]float64) { node.SetPosition(v[0], v[1]) })
}

// TweenScale animates the node's scale to (toSX, toSY).
func TweenScale(node *Node, toSX, toSY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.scaleX, node.scaleY}, []float64{toSX, toSY}, duration, fn,
		func(v *[4]float64) { node.SetScale(v[0], v[1]) })
}

// TweenSize animates the node's declared size to (toW, toH).
func TweenSize(node *Node, toW, toH float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.w, node.h}, []float64{toW, toH}, duration, fn,
		func(v *[4]float64) { node.SetSize(v[0], v[1]) })
}

// TweenColor animates the node's tint (all four corners, starting from the
// top-left corner color) to c.
func TweenColor(node *Node, to Color, duration float32, fn ease.TweenFunc) *TweenGroup {
	from := node.colorUl
	return newTweenGroup(node, []float64{from.R, from.G, from.B, from.A}, []float64{to.R, to.G, to.B, to.A}, duration, fn,
		func(v *[4]float64) { node.SetColor(Color{v[0], v[1], v[2], v[3]}) })
}

// TweenAlpha animates the node's alpha.
func TweenAlpha(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.alpha}, []float64{to}, duration, fn,
		func(v *[4]float64) { node.SetAlpha(v[0]) })
}

// TweenRotation animates the node's rotation (radians).
func TweenRotation(node *Node, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	return newTweenGroup(node, []float64{node.rotation}, []float64{to}, duration, fn,
		func(v *[4]float64) { node.SetRotation(v[0]) })
}

// Tweens is a set of running tween groups.
type Tweens struct {
	groups []*TweenGroup
}

// Add starts updating g with the set.
func (t *Tweens) Add(g *TweenGroup) {
	t.groups = append(t.groups, g)
}

// Len returns the number of running groups.
func (t *Tweens) Len() int { return len(t.groups) }

// Update advances every group and drops finished ones.
func (t *Tweens) Update(dt float32) {
	live := t.groups[:0]
	for _, g := range t.groups {
		g.Update(dt)
		if !g.Done {
			live = append(live, g)
		}
	}
	clear(t.groups[len(live):])
	t.groups = live
}
