package lantern

import "math/bits"

// targetIdleFrames is how long a pooled target may sit unused before trim
// deletes it.
const targetIdleFrames = 120

// targetPool recycles offscreen targets keyed by power-of-two dimensions.
// After warmup, acquire/release do not allocate GPU memory.
type targetPool struct {
	dev     Device
	buckets map[uint64][]pooledTarget
	live    int
	bytes   int64
	frame   int64
}

// pooledTarget is an idle target and the frame it was released in.
type pooledTarget struct {
	tex   GPUTexture
	since int64
}

// poolKey packs power-of-two width and height into a single uint64.
func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

func targetBytes(t GPUTexture) int64 {
	w, h := t.Size()
	return int64(w) * int64(h) * 4
}

// acquire returns a cleared target with at least w x h pixels.
func (p *targetPool) acquire(w, h int) GPUTexture {
	pw, ph := nextPowerOfTwo(w), nextPowerOfTwo(h)
	key := poolKey(pw, ph)
	if stack := p.buckets[key]; len(stack) > 0 {
		t := stack[len(stack)-1].tex
		stack[len(stack)-1] = pooledTarget{}
		p.buckets[key] = stack[:len(stack)-1]
		p.dev.Clear(t)
		return t
	}
	t := p.dev.NewTexture(pw, ph)
	p.live++
	p.bytes += targetBytes(t)
	return t
}

// release returns t to the pool. It is cleared on the next acquire.
func (p *targetPool) release(t GPUTexture) {
	if t == nil {
		return
	}
	w, h := t.Size()
	if p.buckets == nil {
		p.buckets = make(map[uint64][]pooledTarget)
	}
	key := poolKey(w, h)
	p.buckets[key] = append(p.buckets[key], pooledTarget{tex: t, since: p.frame})
}

// drop deletes t instead of pooling it.
func (p *targetPool) drop(t GPUTexture) {
	if t == nil {
		return
	}
	p.delete(t)
}

func (p *targetPool) delete(t GPUTexture) {
	p.live--
	p.bytes -= targetBytes(t)
	p.dev.DeleteTexture(t)
}

// setFrame advances the clock trim measures idleness against.
func (p *targetPool) setFrame(frame int64) {
	p.frame = frame
}

// trim deletes pooled targets idle for at least idle frames and returns the
// bytes freed. Buckets left empty are removed.
func (p *targetPool) trim(idle int64) int64 {
	var freed int64
	for key, stack := range p.buckets {
		kept := stack[:0]
		for _, pt := range stack {
			if p.frame-pt.since >= idle {
				freed += targetBytes(pt.tex)
				p.delete(pt.tex)
				continue
			}
			kept = append(kept, pt)
		}
		clear(stack[len(kept):])
		if len(kept) == 0 {
			delete(p.buckets, key)
		} else {
			p.buckets[key] = kept
		}
	}
	return freed
}

// purge deletes every pooled target.
func (p *targetPool) purge() {
	for key, stack := range p.buckets {
		for _, pt := range stack {
			p.delete(pt.tex)
		}
		delete(p.buckets, key)
	}
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
