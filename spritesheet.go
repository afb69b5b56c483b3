package lantern

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrRotatedFrame is returned for sprite sheet frames packed rotated, which
// Texture regions cannot express.
var ErrRotatedFrame = errors.New("lantern: rotated sprite sheet frames are not supported")

// SpriteFrame is one named frame of a sprite sheet.
type SpriteFrame struct {
	// Texture is the frame's region of its page.
	Texture *Texture
	// OffsetX and OffsetY are the trim offset inside the untrimmed sprite.
	OffsetX, OffsetY float64
	// SourceW and SourceH are the untrimmed sprite size as authored.
	SourceW, SourceH float64
}

// SpriteSheet maps frame names to regions of page textures.
type SpriteSheet struct {
	frames map[string]SpriteFrame
}

// LoadSpriteSheet parses TexturePacker JSON and creates a region Texture per
// frame on the given pages. Both the hash format (a single "frames" object)
// and the multi-page array format ("textures" with per-page frames) are
// accepted.
func LoadSpriteSheet(data []byte, pages []*Texture) (*SpriteSheet, error) {
	var probe struct {
		Frames   json.RawMessage `json:"frames"`
		Textures json.RawMessage `json:"textures"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("lantern: parse sprite sheet: %w", err)
	}

	sheet := &SpriteSheet{frames: make(map[string]SpriteFrame)}
	switch {
	case probe.Textures != nil:
		var textures []jsonSheetPage
		if err := json.Unmarshal(probe.Textures, &textures); err != nil {
			return nil, fmt.Errorf("lantern: parse sprite sheet textures: %w", err)
		}
		for i, p := range textures {
			if err := sheet.addFrames(p.Frames, pages, i); err != nil {
				return nil, err
			}
		}
	case probe.Frames != nil:
		var frames map[string]jsonSheetFrame
		if err := json.Unmarshal(probe.Frames, &frames); err != nil {
			return nil, fmt.Errorf("lantern: parse sprite sheet frames: %w", err)
		}
		if err := sheet.addFrames(frames, pages, 0); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(`lantern: sprite sheet has neither "frames" nor "textures"`)
	}
	return sheet, nil
}

type jsonSheetRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type jsonSheetFrame struct {
	Frame            jsonSheetRect `json:"frame"`
	Rotated          bool          `json:"rotated"`
	SpriteSourceSize jsonSheetRect `json:"spriteSourceSize"`
	SourceSize       struct {
		W int `json:"w"`
		H int `json:"h"`
	} `json:"sourceSize"`
}

type jsonSheetPage struct {
	Image  string                    `json:"image"`
	Frames map[string]jsonSheetFrame `json:"frames"`
}

func (s *SpriteSheet) addFrames(frames map[string]jsonSheetFrame, pages []*Texture, page int) error {
	if page >= len(pages) || pages[page] == nil {
		return fmt.Errorf("lantern: sprite sheet page %d has no texture", page)
	}
	for name, f := range frames {
		if f.Rotated {
			return fmt.Errorf("lantern: frame %q: %w", name, ErrRotatedFrame)
		}
		r := f.Frame
		sw, sh := f.SourceSize.W, f.SourceSize.H
		if sw == 0 && sh == 0 {
			sw, sh = r.W, r.H
		}
		s.frames[name] = SpriteFrame{
			Texture: pages[page].Region(float64(r.X), float64(r.Y), float64(r.W), float64(r.H)),
			OffsetX: float64(f.SpriteSourceSize.X),
			OffsetY: float64(f.SpriteSourceSize.Y),
			SourceW: float64(sw),
			SourceH: float64(sh),
		}
	}
	return nil
}

// Frame returns the named frame.
func (s *SpriteSheet) Frame(name string) (SpriteFrame, bool) {
	f, ok := s.frames[name]
	return f, ok
}

// Texture returns the named frame's texture, or nil.
func (s *SpriteSheet) Texture(name string) *Texture {
	return s.frames[name].Texture
}

// Names returns the frame names in sorted order.
func (s *SpriteSheet) Names() []string {
	names := make([]string, 0, len(s.frames))
	for k := range s.frames {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of frames.
func (s *SpriteSheet) Len() int { return len(s.frames) }
