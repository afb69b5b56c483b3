package lantern

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStageOptionsOverDefaults(t *testing.T) {
	opts, err := LoadStageOptions([]byte(`
width = 1920
height = 1080
debug = true

[atlas]
size = 4096
defrag_cooldown = 120
`))
	require.NoError(t, err)
	assert.Equal(t, 1920, opts.Width)
	assert.Equal(t, 1080, opts.Height)
	assert.True(t, opts.Debug)
	assert.Equal(t, 4096, opts.Atlas.Size)
	assert.Equal(t, 120, opts.Atlas.DefragCooldown)

	def := DefaultStageOptions()
	assert.Equal(t, def.BoundsMargin, opts.BoundsMargin)
	assert.Equal(t, def.Atlas.Border, opts.Atlas.Border)
	assert.Equal(t, def.TextureMemoryLimit, opts.TextureMemoryLimit)
}

func TestLoadStageOptionsErrors(t *testing.T) {
	_, err := LoadStageOptions([]byte("widht = 10\n"))
	assert.ErrorContains(t, err, "unknown stage option keys: widht")

	_, err = LoadStageOptions([]byte("bounds_margin = -5\n"))
	assert.ErrorContains(t, err, "bounds_margin must not be negative")

	opts, err := LoadStageOptions([]byte("width = \n"))
	assert.ErrorContains(t, err, "decode stage options")
	assert.Equal(t, DefaultStageOptions(), opts)

	opts, err = LoadStageOptions([]byte("bounds_margin = 0\n"))
	require.NoError(t, err)
	assert.Zero(t, opts.BoundsMargin)
}

func TestLoadStageOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stage.toml")
	require.NoError(t, os.WriteFile(path, []byte("disable_atlas = true\nscreenshot_dir = \"shots\"\n"), 0o644))
	opts, err := LoadStageOptionsFile(path)
	require.NoError(t, err)
	assert.True(t, opts.DisableAtlas)
	assert.Equal(t, "shots", opts.ScreenshotDir)

	_, err = LoadStageOptionsFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
