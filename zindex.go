package lantern

import "sort"

// SetZIndex sets the node's z-index. Nonzero values lift the node into the
// sorted draw list of its nearest z-context ancestor and make the node a
// z-context itself. Within a context, ties are broken by tree order.
func (n *Node) SetZIndex(z int) {
	if n.zIndex == z {
		return
	}
	wasContext := n.isZContext()
	n.zIndex = z
	n.setRecalc(recalcZOrder | recalcRender)
	if n.stage == nil {
		return
	}
	if n.zParent != nil {
		n.stage.zRemove(n.zParent, n)
	}
	n.stage.zRegister(n)
	if wasContext != n.isZContext() {
		n.stage.zContextChanged(n, wasContext)
	}
}

// ZIndex returns the node's z-index.
func (n *Node) ZIndex() int { return n.zIndex }

// SetForceZContext makes the node a z-context even with a zero z-index, so
// z-indexed descendants are sorted among this node's subtree only.
func (n *Node) SetForceZContext(f bool) {
	if n.forceZContext == f {
		return
	}
	wasContext := n.isZContext()
	n.forceZContext = f
	n.setRecalc(recalcZOrder | recalcRender)
	if n.stage != nil && wasContext != n.isZContext() {
		n.stage.zContextChanged(n, wasContext)
	}
}

// ForceZContext reports whether the node is forced to be a z-context.
func (n *Node) ForceZContext() bool { return n.forceZContext }

// isZContext reports whether n sorts its z-indexed descendants.
func (n *Node) isZContext() bool {
	return n.zIndex != 0 || n.forceZContext || n.texturizes() || (n.stage != nil && n.stage.root == n)
}

// zInUse reports whether n is a z-context with at least one nonzero
// registrant, so its draw order comes from zEntries.
func (n *Node) zInUse() bool {
	return n.zUsage > 0
}

// findZParent returns the context n should be registered with, or nil.
func (n *Node) findZParent() *Node {
	p := n.parent
	if n.stage == nil || p == nil {
		return nil
	}
	if n.zIndex == 0 {
		if p.zInUse() {
			return p
		}
		return nil
	}
	for ; p != nil; p = p.parent {
		if p.isZContext() {
			return p
		}
	}
	return nil
}

// zRegister registers n with the context it belongs to, if any.
func (s *Stage) zRegister(n *Node) {
	target := n.findZParent()
	if target == n.zParent {
		if target != nil {
			s.zQueue(target, n)
		}
		return
	}
	if n.zParent != nil {
		s.zRemove(n.zParent, n)
	}
	if target != nil {
		s.zAdd(target, n)
	}
}

// zAdd registers n with ctx. The entry is queued for the next resort; the
// first nonzero registrant switches ctx's direct children into the list too.
func (s *Stage) zAdd(ctx, n *Node) {
	n.zParent = ctx
	n.zNonZero = n.zIndex != 0
	s.zQueue(ctx, n)
	if n.zNonZero {
		ctx.zUsage++
		if ctx.zUsage == 1 {
			for _, c := range ctx.children {
				if c.zIndex == 0 && c.zParent == nil {
					s.zAdd(ctx, c)
				}
			}
		}
	}
}

// zRemove unregisters n from ctx. The stale entry is filtered out lazily at
// the next resort. When the last nonzero registrant leaves, the remaining
// plain children are dropped and ctx draws its children in order again.
func (s *Stage) zRemove(ctx, n *Node) {
	n.zParent = nil
	ctx.zSortNeeded = true
	s.zMarkContext(ctx)
	if n.zNonZero {
		n.zNonZero = false
		ctx.zUsage--
		if ctx.zUsage == 0 {
			for _, c := range ctx.children {
				if c.zParent == ctx {
					c.zParent = nil
				}
			}
			ctx.zClearLists()
		}
	}
}

// zClearLists empties both lists of the z-context n.
func (n *Node) zClearLists() {
	for _, e := range n.zResort {
		if e.zQueuedIn == n {
			e.zQueuedIn = nil
		}
	}
	clear(n.zEntries)
	clear(n.zResort)
	n.zEntries = n.zEntries[:0]
	n.zResort = n.zResort[:0]
}

// zQueue puts n in ctx's side list for the next resort and forces a tree-order
// refresh, since n's position relative to the other entries may have changed.
func (s *Stage) zQueue(ctx, n *Node) {
	if n.zQueuedIn != ctx {
		n.zQueuedIn = ctx
		ctx.zResort = append(ctx.zResort, n)
	}
	ctx.zSortNeeded = true
	s.zMarkContext(ctx)
	s.zForceOrder = true
	ctx.setRecalc(recalcRender)
}

// zMarkContext schedules ctx for sorting after the update pass.
func (s *Stage) zMarkContext(ctx *Node) {
	for _, c := range s.zSortQueue {
		if c == ctx {
			return
		}
	}
	s.zSortQueue = append(s.zSortQueue, ctx)
}

// zContextChanged moves registrations after n started or stopped being a
// z-context.
func (s *Stage) zContextChanged(n *Node, wasContext bool) {
	if !wasContext {
		// Nonzero descendants that registered above n now belong to n.
		s.zClaimDescendants(n, n)
		return
	}
	entries := append([]*Node(nil), n.zEntries...)
	entries = append(entries, n.zResort...)
	for _, e := range entries {
		if e.zParent == n {
			s.zRemove(n, e)
		}
	}
	n.zClearLists()
	for _, e := range entries {
		if e.zIndex != 0 && e.zParent == nil {
			s.zRegister(e)
		}
	}
}

// zClaimDescendants re-registers nonzero descendants of n that are not
// shielded by a nested context.
func (s *Stage) zClaimDescendants(ctx, n *Node) {
	for _, c := range n.children {
		if c.zIndex != 0 {
			if c.zParent != ctx {
				s.zRegister(c)
			}
			continue
		}
		if c.isZContext() {
			continue
		}
		s.zClaimDescendants(ctx, c)
	}
}

// zTreeOrderChanged requeues every registered node in n's subtree whose
// context lies outside that subtree, after n moved among its siblings.
func (s *Stage) zTreeOrderChanged(n *Node) {
	if n.zParent != nil {
		s.zQueue(n.zParent, n)
	}
	if n.isZContext() {
		return
	}
	for _, c := range n.children {
		s.zTreeOrderChanged(c)
	}
}

// zAttach registers a newly attached subtree, parents first.
func (s *Stage) zAttach(n *Node) {
	s.zRegister(n)
	for _, c := range n.children {
		s.zAttach(c)
	}
}

// zDetach unregisters every node of a subtree being removed from the stage.
func (s *Stage) zDetach(n *Node) {
	for _, c := range n.children {
		s.zDetach(c)
	}
	if n.zParent != nil {
		s.zRemove(n.zParent, n)
	}
	n.zClearLists()
	n.zUsage = 0
	n.zQueuedIn = nil
}

// sortZContexts resorts every context touched since the last frame.
func (s *Stage) sortZContexts() {
	for _, ctx := range s.zSortQueue {
		if ctx.zSortNeeded {
			ctx.zSort()
			s.stats.ZContextsSorted++
		}
	}
	clear(s.zSortQueue)
	s.zSortQueue = s.zSortQueue[:0]
}

// zLess orders entries by z-index, then tree order.
func zLess(a, b *Node) bool {
	if a.zIndex != b.zIndex {
		return a.zIndex < b.zIndex
	}
	return a.treeOrder < b.treeOrder
}

// zSort merges the side list into the sorted entries. Stale entries (nodes
// that left this context) and entries queued for resort are filtered from the
// main list; the side list is sorted on its own and merged in linearly.
func (n *Node) zSort() {
	n.zSortNeeded = false

	main := n.zEntries[:0]
	for _, e := range n.zEntries {
		if e.zParent == n && e.zQueuedIn != n {
			main = append(main, e)
		}
	}

	side := n.zResort[:0]
	for _, e := range n.zResort {
		if e.zQueuedIn == n {
			e.zQueuedIn = nil
			if e.zParent == n {
				side = append(side, e)
			}
		}
	}
	n.zResort = side[:0]
	if len(side) == 0 {
		clear(n.zEntries[len(main):])
		n.zEntries = main
		return
	}
	sort.SliceStable(side, func(i, j int) bool { return zLess(side[i], side[j]) })

	merged := make([]*Node, 0, len(main)+len(side))
	i, j := 0, 0
	for i < len(main) || j < len(side) {
		var next *Node
		if j >= len(side) || (i < len(main) && !zLess(side[j], main[i])) {
			next = main[i]
			i++
		} else {
			next = side[j]
			j++
		}
		if len(merged) > 0 && merged[len(merged)-1] == next {
			continue
		}
		merged = append(merged, next)
	}
	n.zEntries = merged
}

// ZEntries returns the sorted draw list of a z-context in use, or nil.
// The returned slice MUST NOT be mutated by the caller.
func (n *Node) ZEntries() []*Node {
	if !n.zInUse() {
		return nil
	}
	return n.zEntries
}
