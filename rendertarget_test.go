package lantern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		input, want int
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {4, 4}, {5, 8},
		{127, 128}, {128, 128}, {129, 256}, {1000, 1024},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextPowerOfTwo(tt.input), "nextPowerOfTwo(%d)", tt.input)
	}
}

func TestPoolKeyDistinct(t *testing.T) {
	assert.NotEqual(t, poolKey(64, 128), poolKey(128, 64))
	assert.Equal(t, poolKey(32, 32), poolKey(32, 32))
}

func TestTargetPoolReusesBuckets(t *testing.T) {
	dev := &fakeDevice{}
	p := targetPool{dev: dev}

	a := p.acquire(40, 20)
	w, h := a.Size()
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
	require.Len(t, dev.created, 1)

	p.release(a)
	b := p.acquire(50, 30)
	assert.Same(t, a, b)
	assert.Len(t, dev.created, 1)
	assert.Equal(t, 1, dev.clears)

	// A different bucket allocates.
	c := p.acquire(64, 33)
	assert.NotSame(t, a, c)
	assert.Len(t, dev.created, 2)
	assert.Equal(t, 2, p.live)
}

func TestTargetPoolDropAndPurge(t *testing.T) {
	dev := &fakeDevice{}
	p := targetPool{dev: dev}
	a := p.acquire(8, 8)
	b := p.acquire(8, 8)
	p.drop(a)
	assert.True(t, a.(*fakeTexture).deleted)
	assert.Equal(t, 1, p.live)

	p.release(b)
	p.release(nil)
	p.purge()
	assert.True(t, b.(*fakeTexture).deleted)
	assert.Zero(t, p.live)
	assert.Empty(t, p.buckets)
}

func TestTargetPoolTracksBytesAndTrims(t *testing.T) {
	dev := &fakeDevice{}
	p := targetPool{dev: dev}
	a := p.acquire(40, 20)
	b := p.acquire(8, 8)
	assert.Equal(t, int64(64*32*4+8*8*4), p.bytes)

	p.setFrame(10)
	p.release(a)
	p.setFrame(12)
	p.release(b)

	p.setFrame(10 + targetIdleFrames - 1)
	assert.Zero(t, p.trim(targetIdleFrames))
	assert.Equal(t, 2, p.live)

	p.setFrame(10 + targetIdleFrames)
	assert.Equal(t, int64(64*32*4), p.trim(targetIdleFrames))
	assert.True(t, a.(*fakeTexture).deleted)
	assert.False(t, b.(*fakeTexture).deleted)
	assert.Equal(t, int64(8*8*4), p.bytes)
	assert.Len(t, p.buckets, 1)

	assert.Equal(t, int64(8*8*4), p.trim(0))
	assert.Zero(t, p.bytes)
	assert.Empty(t, p.buckets)
}
