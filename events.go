package lantern

import "fmt"

// EventType identifies a node lifecycle event.
type EventType uint8

const (
	EventAttached       EventType = iota // node joined a stage tree
	EventDetached                        // node left the stage tree
	EventActivated                       // node became visible and not culled; its textures load
	EventDeactivated                     // node was hidden, culled or detached; its textures are released
	EventTextureLoaded                   // the requested texture finished loading and is displayed
	EventTextureError                    // the requested texture failed to load
	EventResized                         // the node's render size changed
	numEventTypes
)

var eventNames = [numEventTypes]string{
	"attached", "detached", "activated", "deactivated",
	"texture-loaded", "texture-error", "resized",
}

// String returns the event name.
func (t EventType) String() string {
	if t < numEventTypes {
		return eventNames[t]
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

// Event is delivered to observers after the update pass that raised it.
type Event struct {
	Type EventType
	Node *Node
	Err  error // set for EventTextureError
}

// Observer receives node events.
type Observer func(Event)

// ObserverID identifies a registered observer for removal.
type ObserverID uint32

// maxObservers bounds the observers of one node.
const maxObservers = 16

type observerEntry struct {
	id ObserverID
	fn Observer
}

var observerIDCounter ObserverID

// Observe registers fn for events of this node. Events are batched: each
// observer sees at most one event of each type per node per frame. Panics
// when the node already has maxObservers observers.
func (n *Node) Observe(fn Observer) ObserverID {
	if fn == nil {
		panic("lantern: nil observer")
	}
	if len(n.observers) >= maxObservers {
		panic(fmt.Sprintf("lantern: node %q has too many observers (max %d)", n.Name, maxObservers))
	}
	observerIDCounter++
	n.observers = append(n.observers, observerEntry{id: observerIDCounter, fn: fn})
	return observerIDCounter
}

// RemoveObserver unregisters an observer. Unknown ids are ignored.
func (n *Node) RemoveObserver(id ObserverID) {
	for i, o := range n.observers {
		if o.id == id {
			n.observers = append(n.observers[:i], n.observers[i+1:]...)
			return
		}
	}
}

// NodeEvent is the form in which events are forwarded to an EntityStore.
type NodeEvent struct {
	Type   EventType
	NodeID uint32
	Ref    string
	Err    error
}

// EntityStore receives every node event of a stage, for bridging into an
// ECS world. See the ecs subpackage.
type EntityStore interface {
	EmitEvent(event NodeEvent)
}

// SetEntityStore sets the optional ECS bridge.
func (s *Stage) SetEntityStore(store EntityStore) {
	s.store = store
}

// Observe registers fn for events of every node of the stage.
func (s *Stage) Observe(fn Observer) {
	if fn == nil {
		panic("lantern: nil observer")
	}
	s.observers = append(s.observers, fn)
}

// queueEvent records an event for dispatch at the end of the update. A node
// queues each event type at most once per frame.
func (s *Stage) queueEvent(n *Node, t EventType, err error) {
	if len(n.observers) == 0 && len(s.observers) == 0 && s.store == nil {
		return
	}
	bit := uint16(1) << t
	if n.pendingEvents&bit != 0 {
		return
	}
	n.pendingEvents |= bit
	s.events = append(s.events, Event{Type: t, Node: n, Err: err})
}

// dispatchEvents delivers the queued events. Events raised by observers are
// queued for the next frame.
func (s *Stage) dispatchEvents() {
	if len(s.events) == 0 {
		return
	}
	batch := s.events
	s.events = s.dispatching[:0]
	for _, e := range batch {
		e.Node.pendingEvents &^= uint16(1) << e.Type
	}
	for _, e := range batch {
		for _, o := range e.Node.observers {
			o.fn(e)
		}
		for _, fn := range s.observers {
			fn(e)
		}
		if s.store != nil {
			s.store.EmitEvent(NodeEvent{Type: e.Type, NodeID: e.Node.ID, Ref: e.Node.ref, Err: e.Err})
		}
	}
	s.stats.Events += len(batch)
	clear(batch)
	s.dispatching = batch[:0]
}
