package lantern

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countType(events []Event, t EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestEventsFirstFrame(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	n := sprite("n", nil, 0, 0, 10, 10)
	events := recordEvents(n)
	s.Root().AddChild(n)
	assert.Empty(t, *events, "dispatched at the end of the update")

	s.Update()
	assert.ElementsMatch(t, []EventType{EventAttached, EventActivated, EventResized}, eventTypes(*events))
	for _, e := range *events {
		assert.Same(t, n, e.Node)
	}
	assert.Equal(t, 3, s.Stats().Events)
}

func TestEventsDedupedPerFrame(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	n := sprite("n", nil, 0, 0, 10, 10)
	events := recordEvents(n)
	s.Root().AddChild(n)
	n.RemoveFromParent()
	s.Root().AddChild(n)
	s.Update()
	assert.Equal(t, 1, countType(*events, EventAttached))
	assert.Equal(t, 1, countType(*events, EventDetached))

	// The dedupe bits reset once dispatched.
	*events = (*events)[:0]
	n.SetVisible(false)
	s.Update()
	n.SetVisible(true)
	s.Update()
	assert.Equal(t, []EventType{EventDeactivated, EventActivated}, eventTypes(*events))
}

func TestEventsRaisedByObserversWaitForNextFrame(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	a := sprite("a", nil, 0, 0, 10, 10)
	b := sprite("b", nil, 20, 0, 10, 10)
	var seen []Event
	s.Observe(func(e Event) {
		seen = append(seen, e)
		if e.Node == a && e.Type == EventAttached {
			s.Root().AddChild(b)
		}
	})
	s.Root().AddChild(a)
	s.Update()
	for _, e := range seen {
		assert.NotSame(t, b, e.Node)
	}
	assert.True(t, b.IsAttached())

	seen = seen[:0]
	s.Update()
	assert.Contains(t, seen, Event{Type: EventAttached, Node: b})
	assert.Contains(t, seen, Event{Type: EventActivated, Node: b})
}

func TestNoEventsWithoutListeners(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	s.Root().AddChild(sprite("n", nil, 0, 0, 10, 10))
	s.Update()
	assert.Zero(t, s.Stats().Events)
}

func TestRemoveObserver(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	n := sprite("n", nil, 0, 0, 10, 10)
	var a, b int
	id := n.Observe(func(Event) { a++ })
	n.Observe(func(Event) { b++ })
	n.RemoveObserver(id)
	n.RemoveObserver(9999)
	s.Root().AddChild(n)
	s.Update()
	assert.Zero(t, a)
	assert.Equal(t, 3, b)
}

func TestObserverLimit(t *testing.T) {
	n := NewNode("busy")
	for i := 0; i < maxObservers; i++ {
		n.Observe(func(Event) {})
	}
	assert.PanicsWithValue(t, `lantern: node "busy" has too many observers (max 16)`, func() {
		n.Observe(func(Event) {})
	})
	assert.Panics(t, func() { NewNode("x").Observe(nil) })
}

type recordingStore struct{ events []NodeEvent }

func (r *recordingStore) EmitEvent(e NodeEvent) { r.events = append(r.events, e) }

func TestEntityStoreReceivesEvents(t *testing.T) {
	s, _ := newTestStage(t, 100, 100)
	store := &recordingStore{}
	s.SetEntityStore(store)

	var l manualLoader
	n := sprite("n", s.Textures().Texture("k", l.loader()), 0, 0, 10, 10)
	n.SetRef("Hero")
	s.Root().AddChild(n)
	s.Update()
	var hero []EventType
	for _, e := range store.events {
		if e.NodeID == n.ID {
			assert.Equal(t, "Hero", e.Ref)
			hero = append(hero, e.Type)
		}
	}
	assert.ElementsMatch(t, []EventType{EventAttached, EventActivated, EventResized}, hero)

	store.events = nil
	boom := errors.New("boom")
	l.fail(boom)
	s.Update()
	require.Len(t, store.events, 1)
	assert.Equal(t, NodeEvent{Type: EventTextureError, NodeID: n.ID, Ref: "Hero", Err: boom}, store.events[0])
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "attached", EventAttached.String())
	assert.Equal(t, "texture-error", EventTextureError.String())
	assert.Equal(t, "resized", EventResized.String())
	assert.Equal(t, "EventType(99)", EventType(99).String())
}
