package lantern

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// StageOptions configures a Stage. The zero value of a field means "use the
// default" wherever a zero would be meaningless.
type StageOptions struct {
	// Width and Height are the viewport size in pixels.
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// BoundsMargin is the default margin around the viewport inside which
	// off-screen nodes stay updated and keep their textures loaded.
	BoundsMargin float64 `toml:"bounds_margin"`

	// DisableAtlas sends every texture to a dedicated GPU texture.
	DisableAtlas bool        `toml:"disable_atlas"`
	Atlas        AtlasConfig `toml:"atlas"`

	// TextureMemoryLimit is the GPU memory, in bytes, above which unused
	// texture sources are freed after a frame. Zero disables the limit.
	TextureMemoryLimit int64 `toml:"texture_memory_limit"`

	// ScreenshotDir is where Stage.Screenshot writes PNG files.
	ScreenshotDir string `toml:"screenshot_dir"`

	// Debug enables disposed-node checks, tree warnings and per-frame stats
	// logging.
	Debug bool `toml:"debug"`
}

// DefaultStageOptions returns the defaults: a 1280x720 viewport, a 100 px
// margin, the default atlas and a 256 MiB texture memory limit.
func DefaultStageOptions() StageOptions {
	return StageOptions{
		Width:              1280,
		Height:             720,
		BoundsMargin:       100,
		Atlas:              DefaultAtlasConfig(),
		TextureMemoryLimit: 256 << 20,
	}
}

// LoadStageOptions decodes TOML over the defaults. Keys that are not set keep
// their default value; unknown keys are an error.
//
//	width = 1920
//	height = 1080
//	[atlas]
//	size = 4096
//	defrag_cooldown = 120
func LoadStageOptions(data []byte) (StageOptions, error) {
	opts := DefaultStageOptions()
	md, err := toml.Decode(string(data), &opts)
	if err != nil {
		return DefaultStageOptions(), fmt.Errorf("lantern: decode stage options: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return DefaultStageOptions(), fmt.Errorf("lantern: unknown stage option keys: %s", strings.Join(keys, ", "))
	}
	if md.IsDefined("bounds_margin") && opts.BoundsMargin < 0 {
		return DefaultStageOptions(), fmt.Errorf("lantern: bounds_margin must not be negative, got %v", opts.BoundsMargin)
	}
	return opts, nil
}

// LoadStageOptionsFile reads and decodes a TOML options file.
func LoadStageOptionsFile(path string) (StageOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultStageOptions(), fmt.Errorf("lantern: read stage options: %w", err)
	}
	return LoadStageOptions(data)
}
