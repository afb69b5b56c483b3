package ecs

import (
	"errors"
	"testing"

	"github.com/phanxgames/lantern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func TestNewDonburiStore(t *testing.T) {
	world := donburi.NewWorld()
	require.NotNil(t, NewDonburiStore(world))
}

func TestDonburiStore_EmitEvent(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var received []lantern.NodeEvent
	NodeEventType.Subscribe(world, func(w donburi.World, e lantern.NodeEvent) {
		received = append(received, e)
	})

	loadErr := errors.New("missing file")
	store.EmitEvent(lantern.NodeEvent{Type: lantern.EventActivated, NodeID: 42, Ref: "Hero"})
	store.EmitEvent(lantern.NodeEvent{Type: lantern.EventTextureError, NodeID: 7, Err: loadErr})

	// Events are queued until processed.
	assert.Empty(t, received)
	NodeEventType.ProcessEvents(world)

	require.Len(t, received, 2)
	assert.Equal(t, lantern.EventActivated, received[0].Type)
	assert.Equal(t, uint32(42), received[0].NodeID)
	assert.Equal(t, "Hero", received[0].Ref)
	assert.Equal(t, lantern.EventTextureError, received[1].Type)
	assert.ErrorIs(t, received[1].Err, loadErr)
}

func TestDonburiStore_ImplementsEntityStore(t *testing.T) {
	var store lantern.EntityStore = NewDonburiStore(donburi.NewWorld())
	assert.NotNil(t, store)
}

func TestDonburiStore_MultipleSubscribers(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var count1, count2 int
	NodeEventType.Subscribe(world, func(w donburi.World, e lantern.NodeEvent) { count1++ })
	NodeEventType.Subscribe(world, func(w donburi.World, e lantern.NodeEvent) { count2++ })

	store.EmitEvent(lantern.NodeEvent{Type: lantern.EventAttached})
	events.ProcessAllEvents(world)

	assert.Equal(t, 1, count1)
	assert.Equal(t, 1, count2)
}
