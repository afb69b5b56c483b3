package lantern

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundsStates(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	inside := sprite("inside", nil, 10, 10, 20, 20)
	margin := sprite("margin", nil, 150, 10, 20, 20)
	culled := sprite("culled", nil, 500, 10, 20, 20)
	culledChild := NewNode("culledChild")
	culled.AddChild(culledChild)
	s.Root().AddChild(inside)
	s.Root().AddChild(margin)
	s.Root().AddChild(culled)
	s.Update()

	assert.Equal(t, BoundsDrawable, inside.BoundsState())
	assert.Equal(t, BoundsWithinMargin, margin.BoundsState())
	assert.Equal(t, BoundsCulled, culled.BoundsState())

	assert.True(t, inside.IsActive())
	assert.True(t, margin.IsActive())
	assert.False(t, culled.IsActive())
	assert.False(t, culledChild.IsActive())
}

func TestBoundsTouchingEdgeIsNotDrawable(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	n := sprite("n", nil, 100, 0, 20, 20)
	s.Root().AddChild(n)
	s.Update()
	assert.Equal(t, BoundsWithinMargin, n.BoundsState())
}

func TestBoundsDisabledMarginCulls(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	group := NewNode("group")
	group.DisableBoundsMargin()
	n := sprite("n", nil, 150, 10, 20, 20)
	group.AddChild(n)
	s.Root().AddChild(group)
	s.Update()
	assert.Equal(t, BoundsCulled, n.BoundsState())

	group.InheritBoundsMargin()
	s.Update()
	assert.Equal(t, BoundsWithinMargin, n.BoundsState())
}

func TestBoundsExplicitMargin(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	group := NewNode("group")
	group.SetBoundsMargin(Margin{Right: 300})
	n := sprite("n", nil, 350, 10, 20, 20)
	group.AddChild(n)
	s.Root().AddChild(group)
	s.Update()
	assert.Equal(t, BoundsWithinMargin, n.BoundsState())

	mode, m := group.BoundsMargin()
	assert.Equal(t, MarginExplicit, mode)
	assert.Equal(t, 300.0, m.Right)
}

func TestBoundsNegativeMarginClamps(t *testing.T) {
	n := NewNode("n")
	n.SetBoundsMargin(Margin{Left: -4, Top: 2})
	_, m := n.BoundsMargin()
	assert.Equal(t, Margin{Top: 2}, m)
}

func TestBoundsMoveBackInReactivates(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	n := sprite("n", nil, 500, 0, 20, 20)
	child := sprite("child", nil, 0, 0, 5, 5)
	n.AddChild(child)
	s.Root().AddChild(n)
	s.Update()
	require.Equal(t, BoundsCulled, n.BoundsState())

	n.SetX(10)
	s.Update()
	assert.Equal(t, BoundsDrawable, n.BoundsState())
	assert.True(t, n.IsActive())
	assert.Equal(t, BoundsDrawable, child.BoundsState())
	assert.True(t, child.IsActive())
	assert.InDelta(t, 10, child.WorldTransform()[4], epsilon)
}

func TestBoundsZeroAreaNodeIsDrawable(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	n := NewNode("group")
	n.SetPosition(5000, 5000)
	child := sprite("child", nil, -4990, -4990, 10, 10)
	n.AddChild(child)
	s.Root().AddChild(n)
	s.Update()

	assert.Equal(t, BoundsDrawable, n.BoundsState())
	assert.Equal(t, BoundsDrawable, child.BoundsState())
}

func TestBoundsRotated45OverlapsClip(t *testing.T) {
	s, _ := newTestStage(t, 400, 400)
	clip := sprite("clip", nil, 0, 0, 50, 50)
	clip.SetClipping(true)
	clip.DisableBoundsMargin()

	// Unrotated, (60..160, -10..90) would miss the clip. Rotated 45 degrees
	// about its center the bounding box grows to ~141 px and reaches it.
	n := NewNode("rotated")
	n.SetSize(100, 100)
	n.SetPosition(60, -10)
	n.SetRotation(math.Pi / 4)
	clip.AddChild(n)
	s.Root().AddChild(clip)
	s.Update()

	b := n.Bounds()
	assert.InDelta(t, 100*math.Sqrt2, b.Width, 1e-6)
	assert.InDelta(t, 100*math.Sqrt2, b.Height, 1e-6)
	assert.Equal(t, BoundsDrawable, n.BoundsState())

	n.SetRotation(0)
	s.Update()
	assert.Equal(t, BoundsCulled, n.BoundsState())
}

func TestBoundsMarginMonotonic(t *testing.T) {
	clip := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	boxes := []Rect{
		{X: 10, Y: 10, Width: 20, Height: 20},
		{X: 99, Y: 99, Width: 5, Height: 5},
		{X: 100, Y: 0, Width: 10, Height: 10},
		{X: 130, Y: 50, Width: 10, Height: 10},
		{X: -300, Y: -300, Width: 10, Height: 10},
		{X: 50, Y: 250, Width: 1, Height: 1},
	}
	margins := []float64{0, 10, 40, 100, 400}

	for _, box := range boxes {
		prev := classifyBounds(box, clip, nil)
		for _, v := range margins {
			m := UniformMargin(v)
			st := classifyBounds(box, clip, &m)
			assert.LessOrEqual(t, st, prev, "box %v margin %v", box, v)
			assert.Equal(t, prev == BoundsDrawable, st == BoundsDrawable, "box %v margin %v", box, v)
			prev = st
		}
	}
}

func TestBoundsClippingNarrowsChildren(t *testing.T) {
	s, _ := newTestStage(t, 400, 400)
	clip := sprite("clip", nil, 100, 100, 50, 50)
	clip.SetClipping(true)
	clip.DisableBoundsMargin()
	inside := sprite("inside", nil, 10, 10, 10, 10)
	outside := sprite("outside", nil, 60, 0, 10, 10)
	clip.AddChild(inside)
	clip.AddChild(outside)
	s.Root().AddChild(clip)
	s.Update()

	assert.Equal(t, BoundsDrawable, inside.BoundsState())
	assert.Equal(t, BoundsCulled, outside.BoundsState())
}

func TestResizeReclassifies(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	s.SetBoundsMargin(Margin{})
	n := sprite("n", nil, 150, 0, 20, 20)
	s.Root().AddChild(n)
	s.Update()
	require.Equal(t, BoundsCulled, n.BoundsState())

	s.Resize(200, 100)
	s.Update()
	assert.Equal(t, BoundsDrawable, n.BoundsState())
}
