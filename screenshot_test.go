package lantern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"after-spawn", "after-spawn"},
		{"frame.01", "frame.01"},
		{"has spaces", "has_spaces"},
		{"path/to/thing", "path_to_thing"},
		{"back\\slash", "back_slash"},
		{"special!@#$%", "special_____"},
		{"", "unlabeled"},
		{"   ", "unlabeled"},
		{"MixedCase123", "MixedCase123"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLabel(tt.in), "sanitizeLabel(%q)", tt.in)
	}
}

func TestScreenshotQueue(t *testing.T) {
	s, _ := newTestStage(t, 10, 10)
	s.Screenshot("a")
	s.Screenshot("b")
	assert.Equal(t, []string{"a", "b"}, s.screenshots)
}

func TestWritePNG(t *testing.T) {
	path := t.TempDir() + "/out.png"
	assert.NoError(t, writePNG(path, solidImage(2, 2, colorRed)))
	assert.Error(t, writePNG(t.TempDir()+"/missing/out.png", solidImage(2, 2, colorRed)))
}
