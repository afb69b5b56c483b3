package lantern

// atlasNode is a rectangle of the atlas. Leaves are free space; an allocated
// node keeps its rectangle and gains up to two children for the leftover
// right and bottom strips. Freed allocations keep their slot until the next
// defragmentation.
type atlasNode struct {
	x, y, w, h int
	owner      *TextureSource
	used       bool
	right      *atlasNode
	bottom     *atlasNode
}

// atlasTree is a guillotine free-rectangle tree.
type atlasTree struct {
	root *atlasNode
	w, h int
}

func newAtlasTree(w, h int) *atlasTree {
	t := &atlasTree{w: w, h: h}
	t.reset()
	return t
}

// reset discards every allocation.
func (t *atlasTree) reset() {
	t.root = &atlasNode{w: t.w, h: t.h}
}

// insert allocates a w x h rectangle in the smallest free leaf that fits,
// splitting off a right strip (leaf.w-w) x h and a bottom strip
// leaf.w x (leaf.h-h). It returns nil when nothing fits.
func (t *atlasTree) insert(w, h int) *atlasNode {
	if w <= 0 || h <= 0 {
		return nil
	}
	best := t.bestFit(t.root, w, h, nil)
	if best == nil {
		return nil
	}
	best.used = true
	if best.w > w {
		best.right = &atlasNode{x: best.x + w, y: best.y, w: best.w - w, h: h}
	}
	if best.h > h {
		best.bottom = &atlasNode{x: best.x, y: best.y + h, w: best.w, h: best.h - h}
	}
	best.w, best.h = w, h
	return best
}

// bestFit returns the free leaf of smallest area able to hold w x h.
// Ties keep the first leaf in depth-first order.
func (t *atlasTree) bestFit(n *atlasNode, w, h int, best *atlasNode) *atlasNode {
	if n == nil {
		return best
	}
	if !n.used {
		if n.w >= w && n.h >= h && (best == nil || n.w*n.h < best.w*best.h) {
			return n
		}
		return best
	}
	best = t.bestFit(n.right, w, h, best)
	return t.bestFit(n.bottom, w, h, best)
}

// freeArea returns the total area of free leaves.
func (t *atlasTree) freeArea() int {
	var walk func(n *atlasNode) int
	walk = func(n *atlasNode) int {
		if n == nil {
			return 0
		}
		if !n.used {
			return n.w * n.h
		}
		return walk(n.right) + walk(n.bottom)
	}
	return walk(t.root)
}
