package lantern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchProperties(t *testing.T) {
	n := NewNode("n")
	err := n.Patch(Settings{
		"x":        10,
		"y":        float32(20),
		"w":        100.0,
		"h":        int64(50),
		"alpha":    0.5,
		"visible":  false,
		"scale":    2,
		"rotation": 0.25,
		"pivot":    0,
		"mountY":   1,
		"zIndex":   3,
		"clipping": true,
		"color":    uint32(0xff000080),
		"ref":      "box",
	})
	require.NoError(t, err)

	assert.Equal(t, 10.0, n.X())
	assert.Equal(t, 20.0, n.Y())
	w, h := n.Size()
	assert.Equal(t, 100.0, w)
	assert.Equal(t, 50.0, h)
	assert.Equal(t, 0.5, n.Alpha())
	assert.False(t, n.Visible())
	assert.Equal(t, 0.25, n.Rotation())
	assert.Equal(t, 3, n.ZIndex())
	assert.True(t, n.Clipping())
	assert.Equal(t, "box", n.Ref())
	ul, _, _, br := n.ColorCorners()
	assert.Equal(t, RGBA8(255, 0, 0, 128), ul)
	assert.Equal(t, ul, br)
}

func TestPatchCollectsErrors(t *testing.T) {
	n := NewNode("n")
	err := n.Patch(Settings{
		"x":       "left",
		"bogus":   1,
		"zIndex":  1.5,
		"visible": 1,
		"y":       7,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProperty)
	assert.ErrorIs(t, err, ErrPropertyType)
	assert.Contains(t, err.Error(), `"bogus"`)
	assert.Contains(t, err.Error(), `"zIndex"`)

	// Valid keys still apply.
	assert.Equal(t, 7.0, n.Y())
	assert.Zero(t, n.ZIndex())
}

func TestPatchCreatesAndRemovesChildren(t *testing.T) {
	n, err := Build("list", Settings{
		"Header": Settings{"h": 20},
		"Body":   Settings{"y": 20, "Row": Settings{"x": 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n.NumChildren())
	// Children are appended in sorted key order.
	assert.Equal(t, "Body", n.ChildAt(0).Ref())
	assert.Equal(t, "Header", n.ChildAt(1).Ref())
	row := n.Tag("Body.Row")
	require.NotNil(t, row)
	assert.Equal(t, 4.0, row.X())

	// Patching again updates in place.
	body := n.ChildByRef("Body")
	require.NoError(t, n.Patch(Settings{"Body": Settings{"y": 30}, "Header": nil}))
	assert.Same(t, body, n.ChildByRef("Body"))
	assert.Equal(t, 30.0, body.Y())
	assert.Nil(t, n.ChildByRef("Header"))
	assert.Equal(t, 1, n.NumChildren())

	// Removing a missing child is fine.
	assert.NoError(t, n.Patch(Settings{"Footer": nil}))
}

func TestPatchChildWrongType(t *testing.T) {
	n := NewNode("n")
	err := n.Patch(Settings{"Child": 5})
	assert.ErrorIs(t, err, ErrPropertyType)
	assert.Zero(t, n.NumChildren())
}

func TestPatchChildErrorsWrapped(t *testing.T) {
	n := NewNode("n")
	err := n.Patch(Settings{"Child": Settings{"nope": 1}})
	assert.ErrorIs(t, err, ErrUnknownProperty)
	assert.Contains(t, err.Error(), `patch child "Child"`)
}

func TestPatchBoundsMargin(t *testing.T) {
	n := NewNode("n")
	require.NoError(t, n.Patch(Settings{"boundsMargin": 12}))
	mode, m := n.BoundsMargin()
	assert.Equal(t, MarginExplicit, mode)
	assert.Equal(t, UniformMargin(12), m)

	require.NoError(t, n.Patch(Settings{"boundsMargin": []float64{1, 2, 3, 4}}))
	_, m = n.BoundsMargin()
	assert.Equal(t, Margin{1, 2, 3, 4}, m)

	require.NoError(t, n.Patch(Settings{"boundsMargin": nil}))
	mode, _ = n.BoundsMargin()
	assert.Equal(t, MarginNone, mode)

	require.NoError(t, n.Patch(Settings{"boundsMargin": "inherit"}))
	mode, _ = n.BoundsMargin()
	assert.Equal(t, MarginInherit, mode)

	assert.ErrorIs(t, n.Patch(Settings{"boundsMargin": "wide"}), ErrPropertyType)
	assert.ErrorIs(t, n.Patch(Settings{"boundsMargin": []float64{1}}), ErrPropertyType)
}

func TestPatchTexture(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	tex := imageTexture(s, "sheet", 64, 64)
	n := NewNode("n")
	require.NoError(t, n.Patch(Settings{
		"texture":   tex,
		"texture.x": 16,
		"texture.w": 16,
	}))
	assert.Same(t, tex, n.Texture())
	assert.Equal(t, Rect{X: 16, Width: 16}, tex.RegionRect())

	require.NoError(t, n.Patch(Settings{"texture": nil}))
	assert.Nil(t, n.Texture())

	assert.ErrorIs(t, n.Patch(Settings{"texture.y": 3}), ErrPropertyType)
}

func TestPatchTextureWrongTypePanics(t *testing.T) {
	n := NewNode("n")
	assert.PanicsWithValue(t, "lantern: texture property set to string, want *Texture", func() {
		_ = n.Patch(Settings{"texture": "hero.png"})
	})
}

func TestPatchTexturizer(t *testing.T) {
	n := NewNode("n")
	require.NoError(t, n.Patch(Settings{
		"texturizer.enabled": true,
		"texturizer.lazy":    true,
		"texturizer.hidden":  true,
	}))
	tz := n.Texturizer()
	assert.True(t, tz.Enabled())
	assert.True(t, tz.Lazy())
	assert.True(t, tz.Hidden())
}
