package lantern

import (
	"strings"
)

// nodeIDCounter is a plain counter (no atomic: lantern is single-threaded).
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// Node is the fundamental scene graph element. A single flat struct is used for
// all nodes to avoid interface dispatch on the hot path. Geometric and visual
// state is private and changed only through setters, which flip recalculation
// bits that the next Stage.Update resolves.
type Node struct {
	// Identity
	ID       uint32
	Name     string
	UserData any
	ref      string

	// Hierarchy. parent is a non-owning back-reference used for traversal only.
	parent   *Node
	children []*Node
	stage    *Stage

	// Local geometry
	x, y           float64
	scaleX, scaleY float64
	rotation       float64
	skewX, skewY   float64
	pivotX, pivotY float64
	mountX, mountY float64
	alpha          float64
	visible        bool
	w, h           float64

	// Local matrix cache, rebuilt when own transform/translate bits are set.
	local        [6]float64
	localComplex bool

	// Pending work
	recalc     uint8
	hasUpdates bool

	// Derived contexts. render points at world unless a texturizing ancestor
	// exists, in which case it points at renderOwn.
	world     coreContext
	renderOwn coreContext
	render    *coreContext

	// Bounds
	bbox        Rect
	childClip   clipRegion
	clipBuf     []Vec2
	childMargin *Margin
	marginMode  MarginMode
	margin      Margin
	clipping    bool
	boundsState BoundsState
	active      bool
	renderW     float64
	renderH     float64

	// Z ordering
	zIndex        int
	forceZContext bool
	zParent       *Node
	zNonZero      bool // registered with a nonzero z-index (counts toward zUsage)
	zEntries      []*Node
	zResort       []*Node
	zQueuedIn     *Node
	zUsage        int
	zSortNeeded   bool
	treeOrder     uint64

	// Visual
	colorUl, colorUr, colorBl, colorBr Color
	blend                              BlendMode
	texture                            *Texture
	displayedTexture                   *Texture
	texturizer                         *Texturizer

	// Notifications
	observers     []observerEntry
	pendingEvents uint16

	// Query cache, cleared on structural change below this node.
	selectCache map[string][]*Node

	disposed bool
}

// NewNode creates a detached node with default properties: scale 1, alpha 1,
// visible, pivot at the center, mount at the top-left.
func NewNode(name string) *Node {
	n := &Node{Name: name}
	nodeDefaults(n)
	return n
}

// nodeDefaults sets the common default field values.
func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.scaleX = 1
	n.scaleY = 1
	n.alpha = 1
	n.visible = true
	n.pivotX = 0.5
	n.pivotY = 0.5
	n.colorUl = ColorWhite
	n.colorUr = ColorWhite
	n.colorBl = ColorWhite
	n.colorBr = ColorWhite
	n.local = identityTransform
	n.world = coreContext{m: identityTransform}
	n.render = &n.world
	n.recalc = recalcAll
	n.hasUpdates = true
}

// Parent returns the node's parent, or nil for the root or a detached node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Stage returns the stage this node is attached to, or nil.
func (n *Node) Stage() *Stage {
	return n.stage
}

// IsAttached reports whether the node is part of a stage tree.
func (n *Node) IsAttached() bool {
	return n.stage != nil
}

// Ref returns the node's reference name used by Patch and Select.
func (n *Node) Ref() string {
	return n.ref
}

// SetRef sets the node's reference name. Refs that start with an upper-case
// letter can be addressed as child keys in Settings.
func (n *Node) SetRef(ref string) {
	if n.ref == ref {
		return
	}
	n.ref = ref
	n.invalidateSelectCache()
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	n.AddChildAt(child, len(n.children)-boolInt(child != nil && child.parent == n))
}

// AddChildAt inserts child at the given index.
// Same reparenting and cycle-check behavior as AddChild.
func (n *Node) AddChildAt(child *Node, index int) {
	if child == nil {
		panic("lantern: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChildAt (parent)")
		debugCheckDisposed(child, "AddChildAt (child)")
	}
	if isAncestor(child, n) {
		panic("lantern: adding child would create a cycle")
	}
	limit := len(n.children)
	if child.parent == n {
		limit--
	}
	if index < 0 || index > limit {
		panic("lantern: child index out of range")
	}
	if child.parent != nil {
		child.parent.detachChild(child)
	}
	child.parent = n
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
	n.invalidateSelectCache()
	markSubtreeDirty(child)
	if n.stage != nil {
		n.stage.attachSubtree(child)
	}
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(n)
	}
}

// RemoveChild detaches child from this node.
// Panics if child's parent is not n.
func (n *Node) RemoveChild(child *Node) {
	if globalDebug {
		debugCheckDisposed(n, "RemoveChild (parent)")
		debugCheckDisposed(child, "RemoveChild (child)")
	}
	if child.parent != n {
		panic("lantern: child's parent is not this node")
	}
	n.detachChild(child)
}

// RemoveChildAt removes and returns the child at the given index.
func (n *Node) RemoveChildAt(index int) *Node {
	if index < 0 || index >= len(n.children) {
		panic("lantern: child index out of range")
	}
	child := n.children[index]
	n.detachChild(child)
	return child
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.parent == nil {
		return
	}
	n.parent.RemoveChild(n)
}

// RemoveChildren detaches all children from this node.
// Children are NOT disposed.
func (n *Node) RemoveChildren() {
	for len(n.children) > 0 {
		n.detachChild(n.children[len(n.children)-1])
	}
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// ChildAt returns the child at the given index.
func (n *Node) ChildAt(index int) *Node {
	return n.children[index]
}

// ChildIndex returns the index of child among n's children, or -1.
func (n *Node) ChildIndex(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// SetChildIndex moves child to a new index among its siblings.
func (n *Node) SetChildIndex(child *Node, index int) {
	if child.parent != n {
		panic("lantern: child's parent is not this node")
	}
	nc := len(n.children)
	if index < 0 || index >= nc {
		panic("lantern: child index out of range")
	}
	oldIndex := n.ChildIndex(child)
	if oldIndex == index {
		return
	}
	// Shift elements to fill the gap and open the target slot.
	if oldIndex < index {
		copy(n.children[oldIndex:], n.children[oldIndex+1:index+1])
	} else {
		copy(n.children[index+1:], n.children[index:oldIndex])
	}
	n.children[index] = child
	n.invalidateSelectCache()
	n.setRecalc(recalcRender)
	if n.stage != nil {
		n.stage.zTreeOrderChanged(child)
	}
}

// detachChild removes child from n.children and clears its stage state.
func (n *Node) detachChild(child *Node) {
	if n.stage != nil {
		n.stage.detachSubtree(child)
	}
	n.removeChildByPtr(child)
	child.parent = nil
	n.invalidateSelectCache()
	n.setRecalc(recalcRender)
	markSubtreeDirty(child)
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.parent = nil
		child.dispose()
	}
	n.children = nil
	if n.texturizer != nil {
		n.texturizer.free()
		n.texturizer = nil
	}
	n.texture = nil
	n.displayedTexture = nil
	n.zEntries = nil
	n.zResort = nil
	n.observers = nil
	n.selectCache = nil
	n.UserData = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Queries ---

// Select returns every descendant whose ref matches path. A path is a
// dot-separated list of refs ("List.Item"); each segment matches descendants
// at any depth below the previous match. Results are cached per node until
// the subtree's structure changes.
func (n *Node) Select(path string) []*Node {
	if cached, ok := n.selectCache[path]; ok {
		return cached
	}
	matches := []*Node{n}
	for _, seg := range strings.Split(path, ".") {
		var next []*Node
		for _, m := range matches {
			next = collectRefs(m, seg, next)
		}
		matches = next
		if len(matches) == 0 {
			break
		}
	}
	if n.selectCache == nil {
		n.selectCache = make(map[string][]*Node)
	}
	n.selectCache[path] = matches
	return matches
}

// Tag returns the first descendant matching path, or nil.
func (n *Node) Tag(path string) *Node {
	if m := n.Select(path); len(m) > 0 {
		return m[0]
	}
	return nil
}

// ChildByRef returns the direct child with the given ref, or nil.
func (n *Node) ChildByRef(ref string) *Node {
	for _, c := range n.children {
		if c.ref == ref {
			return c
		}
	}
	return nil
}

func collectRefs(n *Node, ref string, out []*Node) []*Node {
	for _, c := range n.children {
		if c.ref == ref {
			out = append(out, c)
		}
		out = collectRefs(c, ref, out)
	}
	return out
}

// invalidateSelectCache drops cached query results on n and its ancestors.
func (n *Node) invalidateSelectCache() {
	for p := n; p != nil; p = p.parent {
		if p.selectCache != nil {
			clear(p.selectCache)
		}
	}
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node (or node itself).
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets every recalculation bit on node and its descendants
// and resets their world alpha until the next update recomputes it.
func markSubtreeDirty(node *Node) {
	node.recalc = recalcAll
	node.world.alpha = 0
	node.renderOwn.alpha = 0
	node.hasUpdates = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
	if node.parent != nil {
		node.parent.setHasUpdates()
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
