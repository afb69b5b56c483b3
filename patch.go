package lantern

import (
	"errors"
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"
)

// Patch errors.
var (
	// ErrUnknownProperty is returned for a lower-case key that names no
	// property.
	ErrUnknownProperty = errors.New("lantern: unknown property")
	// ErrPropertyType is returned when a value has the wrong type for its key.
	ErrPropertyType = errors.New("lantern: wrong property type")
)

// Settings describes node properties declaratively. Lower-case keys are
// properties ("x", "alpha") or nested paths ("texture.x", "texturizer.enabled").
// Keys starting with an upper-case letter address children by ref: a
// Settings value finds or creates the child and patches it, nil removes it.
type Settings map[string]any

// Patch applies settings to the node. Properties are applied before
// children; keys of each kind are applied in sorted order, which is also the
// order new children are appended in. Every key is attempted; the errors of
// failed keys are joined.
//
// Patch panics when the "texture" key holds anything but a *Texture or nil.
func (n *Node) Patch(settings Settings) error {
	props := make([]string, 0, len(settings))
	var refs []string
	for k := range settings {
		if isChildRef(k) {
			refs = append(refs, k)
		} else {
			props = append(props, k)
		}
	}
	sort.Strings(props)
	sort.Strings(refs)

	var errs []error
	for _, k := range props {
		set, ok := properties[k]
		if !ok {
			errs = append(errs, fmt.Errorf("lantern: patch %q: %w", k, ErrUnknownProperty))
			continue
		}
		if err := set(n, settings[k]); err != nil {
			errs = append(errs, fmt.Errorf("lantern: patch %q: %w", k, err))
		}
	}
	for _, k := range refs {
		if err := n.patchChild(k, settings[k]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build creates a detached node named name and patches it with settings.
func Build(name string, settings Settings) (*Node, error) {
	n := NewNode(name)
	return n, n.Patch(settings)
}

func isChildRef(key string) bool {
	r, _ := utf8.DecodeRuneInString(key)
	return unicode.IsUpper(r)
}

func (n *Node) patchChild(ref string, v any) error {
	child := n.ChildByRef(ref)
	switch cs := v.(type) {
	case nil:
		if child != nil {
			n.RemoveChild(child)
		}
		return nil
	case Settings:
		if child == nil {
			child = NewNode(ref)
			child.SetRef(ref)
			n.AddChild(child)
		}
		if err := child.Patch(cs); err != nil {
			return fmt.Errorf("lantern: patch child %q: %w", ref, err)
		}
		return nil
	default:
		return fmt.Errorf("lantern: patch child %q: got %T: %w", ref, v, ErrPropertyType)
	}
}

type propSetter func(n *Node, v any) error

// properties is the static dispatch table behind Patch.
var properties = map[string]propSetter{
	"x":        floatProp(func(n *Node, f float64) { n.SetX(f) }),
	"y":        floatProp(func(n *Node, f float64) { n.SetY(f) }),
	"w":        floatProp(func(n *Node, f float64) { n.SetWidth(f) }),
	"h":        floatProp(func(n *Node, f float64) { n.SetHeight(f) }),
	"alpha":    floatProp(func(n *Node, f float64) { n.SetAlpha(f) }),
	"visible":  boolProp(func(n *Node, b bool) { n.SetVisible(b) }),
	"scale":    floatProp(func(n *Node, f float64) { n.SetScale(f, f) }),
	"scaleX":   floatProp(func(n *Node, f float64) { n.SetScaleX(f) }),
	"scaleY":   floatProp(func(n *Node, f float64) { n.SetScaleY(f) }),
	"rotation": floatProp(func(n *Node, f float64) { n.SetRotation(f) }),
	"skewX":    floatProp(func(n *Node, f float64) { n.SetSkew(f, n.skewY) }),
	"skewY":    floatProp(func(n *Node, f float64) { n.SetSkew(n.skewX, f) }),
	"pivot":    floatProp(func(n *Node, f float64) { n.SetPivot(f, f) }),
	"pivotX":   floatProp(func(n *Node, f float64) { n.SetPivot(f, n.pivotY) }),
	"pivotY":   floatProp(func(n *Node, f float64) { n.SetPivot(n.pivotX, f) }),
	"mount":    floatProp(func(n *Node, f float64) { n.SetMount(f, f) }),
	"mountX":   floatProp(func(n *Node, f float64) { n.SetMount(f, n.mountY) }),
	"mountY":   floatProp(func(n *Node, f float64) { n.SetMount(n.mountX, f) }),
	"zIndex": func(n *Node, v any) error {
		f, ok := toFloat(v)
		if !ok || f != float64(int(f)) {
			return typeError("integer", v)
		}
		n.SetZIndex(int(f))
		return nil
	},
	"forceZIndexContext": boolProp(func(n *Node, b bool) { n.SetForceZContext(b) }),
	"clipping":           boolProp(func(n *Node, b bool) { n.SetClipping(b) }),
	"boundsMargin":       setBoundsMargin,
	"color":              colorProp(func(n *Node, c Color) { n.SetColor(c) }),
	"colorUl":            colorProp(func(n *Node, c Color) { n.SetColorCorners(c, n.colorUr, n.colorBl, n.colorBr) }),
	"colorUr":            colorProp(func(n *Node, c Color) { n.SetColorCorners(n.colorUl, c, n.colorBl, n.colorBr) }),
	"colorBl":            colorProp(func(n *Node, c Color) { n.SetColorCorners(n.colorUl, n.colorUr, c, n.colorBr) }),
	"colorBr":            colorProp(func(n *Node, c Color) { n.SetColorCorners(n.colorUl, n.colorUr, n.colorBl, c) }),
	"texture":            setTexture,
	"ref": func(n *Node, v any) error {
		s, ok := v.(string)
		if !ok {
			return typeError("string", v)
		}
		n.SetRef(s)
		return nil
	},

	"texture.x": textureRegionProp(func(r *Rect, f float64) { r.X = f }),
	"texture.y": textureRegionProp(func(r *Rect, f float64) { r.Y = f }),
	"texture.w": textureRegionProp(func(r *Rect, f float64) { r.Width = f }),
	"texture.h": textureRegionProp(func(r *Rect, f float64) { r.Height = f }),

	"texturizer.enabled": boolProp(func(n *Node, b bool) { n.Texturizer().SetEnabled(b) }),
	"texturizer.lazy":    boolProp(func(n *Node, b bool) { n.Texturizer().SetLazy(b) }),
	"texturizer.hidden":  boolProp(func(n *Node, b bool) { n.Texturizer().SetHidden(b) }),
}

func typeError(want string, v any) error {
	return fmt.Errorf("want %s, got %T: %w", want, v, ErrPropertyType)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint32:
		return float64(x), true
	}
	return 0, false
}

func floatProp(set func(*Node, float64)) propSetter {
	return func(n *Node, v any) error {
		f, ok := toFloat(v)
		if !ok {
			return typeError("number", v)
		}
		set(n, f)
		return nil
	}
}

func boolProp(set func(*Node, bool)) propSetter {
	return func(n *Node, v any) error {
		b, ok := v.(bool)
		if !ok {
			return typeError("bool", v)
		}
		set(n, b)
		return nil
	}
}

// colorProp accepts a Color or a uint32 in 0xRRGGBBAA form.
func colorProp(set func(*Node, Color)) propSetter {
	return func(n *Node, v any) error {
		switch c := v.(type) {
		case Color:
			set(n, c)
		case uint32:
			set(n, RGBA8(uint8(c>>24), uint8(c>>16), uint8(c>>8), uint8(c)))
		default:
			return typeError("Color or 0xRRGGBBAA", v)
		}
		return nil
	}
}

// setBoundsMargin accepts nil (no margin), "inherit", a number (uniform), a
// Margin or four numbers (left, top, right, bottom).
func setBoundsMargin(n *Node, v any) error {
	switch m := v.(type) {
	case nil:
		n.DisableBoundsMargin()
	case string:
		if m != "inherit" {
			return typeError(`"inherit"`, v)
		}
		n.InheritBoundsMargin()
	case Margin:
		n.SetBoundsMargin(m)
	case [4]float64:
		n.SetBoundsMargin(Margin{m[0], m[1], m[2], m[3]})
	case []float64:
		if len(m) != 4 {
			return typeError("four numbers", v)
		}
		n.SetBoundsMargin(Margin{m[0], m[1], m[2], m[3]})
	default:
		f, ok := toFloat(v)
		if !ok {
			return typeError("margin", v)
		}
		n.SetBoundsMargin(UniformMargin(f))
	}
	return nil
}

func setTexture(n *Node, v any) error {
	switch t := v.(type) {
	case nil:
		n.SetTexture(nil)
	case *Texture:
		n.SetTexture(t)
	default:
		panic(fmt.Sprintf("lantern: texture property set to %T, want *Texture", v))
	}
	return nil
}

func textureRegionProp(set func(*Rect, float64)) propSetter {
	return func(n *Node, v any) error {
		f, ok := toFloat(v)
		if !ok {
			return typeError("number", v)
		}
		t := n.texture
		if t == nil {
			return fmt.Errorf("node has no texture: %w", ErrPropertyType)
		}
		r := t.RegionRect()
		set(&r, f)
		t.SetRegion(r.X, r.Y, r.Width, r.Height)
		return nil
	}
}
