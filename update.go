package lantern

// updateTree runs the per-frame update pass over the stage tree. Only nodes
// with pending work (or an ancestor passing bits down) are recomputed, except
// in frames where z membership changed, when every node is visited so it
// receives a fresh tree-order number.
func (s *Stage) updateTree() {
	root := s.root
	if !root.hasUpdates && !s.zForceOrder {
		return
	}
	s.treeOrder = 0
	s.updateNode(root, 0, 0)
	s.zForceOrder = false
}

// updateNode recomputes n from its own pending bits plus the bits inherited
// from the parent, then descends. inherited carries world-space changes;
// renderInherited carries the subset that affects the render context, which
// differs only below a texturizer (moving a texturized node does not change
// what its children look like inside the offscreen target).
func (s *Stage) updateNode(n *Node, inherited, renderInherited uint8) {
	if s.zForceOrder {
		s.treeOrder++
		n.treeOrder = s.treeOrder
	}
	s.stats.NodesUpdated++

	own := n.recalc
	recalc := own | inherited
	renderRecalc := own | renderInherited
	n.recalc = 0
	n.hasUpdates = false
	p := n.parent

	wasVisible := n.world.alpha > 0
	if recalc&recalcAlpha != 0 {
		a := n.localAlpha()
		if p != nil {
			a *= p.world.alpha
		}
		if a < alphaEpsilon {
			a = 0
		}
		n.world.alpha = a
	}

	if n.world.alpha == 0 {
		if wasVisible {
			s.hideSubtree(n)
		}
		// Local work stays pending until the branch becomes visible again.
		n.recalc = own &^ recalcAlpha
		s.skipSubtree(n)
		return
	}
	if !wasVisible {
		recalc |= recalcAll
		renderRecalc |= recalcAll
	}

	if own&recalcTransform != 0 {
		n.updateLocalTransform()
	}
	if own&(recalcTranslate|recalcTransform) != 0 {
		n.updateLocalTranslate()
	}

	if recalc&(recalcTranslate|recalcTransform) != 0 {
		if p == nil {
			n.world.m = n.local
			n.world.complex = n.localComplex
		} else {
			composeContext(&n.world, &p.world, &n.local, n.localComplex)
		}
	}

	if p == nil || (p.render == &p.world && !p.texturizes()) {
		if n.render != &n.world {
			n.render = &n.world
			renderRecalc |= recalcAll
		}
	} else {
		base := p.childBase()
		if n.render != &n.renderOwn {
			n.render = &n.renderOwn
			renderRecalc |= recalcAll
		}
		if renderRecalc&recalcAlpha != 0 {
			n.renderOwn.alpha = base.alpha * n.localAlpha()
			if n.renderOwn.alpha < alphaEpsilon {
				n.renderOwn.alpha = 0
			}
		}
		if renderRecalc&(recalcTranslate|recalcTransform) != 0 {
			composeContext(&n.renderOwn, base, &n.local, n.localComplex)
		}
		if renderRecalc != 0 {
			s.markTexturizersChanged(n)
		}
	}

	if n.texturizer != nil && own&(recalcBounds|recalcRender) != 0 {
		n.texturizer.changed = true
	}

	wasCulled := n.boundsState == BoundsCulled
	if renderRecalc&(recalcTranslate|recalcTransform|recalcBounds) != 0 {
		s.updateBounds(n)
	}
	if n.boundsState == BoundsCulled {
		if !wasCulled {
			s.deactivateSubtree(n)
		}
		s.skipSubtree(n)
		return
	}
	if !n.active && n.stage != nil {
		s.activate(n)
	}

	childBits := recalc & recalcAll
	childRenderBits := renderRecalc & recalcAll
	if n.texturizes() {
		childRenderBits = own & recalcBounds
	}
	if tz := n.texturizer; tz != nil && tz.baseChanged {
		tz.baseChanged = false
		childRenderBits = recalcAll
	}
	if wasCulled {
		childBits = recalcAll
		childRenderBits = recalcAll
	}
	for _, c := range n.children {
		if childBits != 0 || childRenderBits != 0 || c.hasUpdates || s.zForceOrder {
			s.updateNode(c, childBits, childRenderBits)
		}
	}
}

// skipSubtree clears pending-update flags below n without recomputing
// anything. Recalc bits stay on the nodes so they are resolved once the
// branch is updated again. In tree-order refresh frames every node is still
// numbered.
func (s *Stage) skipSubtree(n *Node) {
	for _, c := range n.children {
		if !s.zForceOrder && !c.hasUpdates {
			continue
		}
		if s.zForceOrder {
			s.treeOrder++
			c.treeOrder = s.treeOrder
		}
		c.hasUpdates = false
		s.skipSubtree(c)
	}
}

// hideSubtree zeroes world alpha below a node that just became invisible and
// deactivates every active node in the branch.
func (s *Stage) hideSubtree(n *Node) {
	n.world.alpha = 0
	n.renderOwn.alpha = 0
	s.deactivate(n)
	for _, c := range n.children {
		if c.world.alpha > 0 || c.active {
			s.hideSubtree(c)
		}
	}
}

// deactivateSubtree deactivates n and all active descendants. An inactive
// node never has active descendants, so the walk stops there.
func (s *Stage) deactivateSubtree(n *Node) {
	if !n.active {
		return
	}
	s.deactivate(n)
	for _, c := range n.children {
		s.deactivateSubtree(c)
	}
}

// activate marks n as active: its textures are referenced (which starts
// loading) and EventActivated is queued.
func (s *Stage) activate(n *Node) {
	if n.active {
		return
	}
	n.active = true
	n.refTextures(1)
	s.queueEvent(n, EventActivated, nil)
}

// deactivate releases n's texture references and queues EventDeactivated.
func (s *Stage) deactivate(n *Node) {
	if !n.active {
		return
	}
	n.active = false
	n.refTextures(-1)
	s.queueEvent(n, EventDeactivated, nil)
}

// markTexturizersChanged flags every enabled texturizer above n. Each
// texturizer is marked at most once per frame.
func (s *Stage) markTexturizersChanged(n *Node) {
	for p := n.parent; p != nil; p = p.parent {
		tz := p.texturizer
		if tz == nil || !tz.enabled {
			continue
		}
		if tz.markedFrame == s.frame {
			return
		}
		tz.markedFrame = s.frame
		tz.changed = true
	}
}

// IsActive reports whether the node is attached, visible and not culled.
// Active nodes hold references on their textures.
func (n *Node) IsActive() bool {
	return n.active
}
