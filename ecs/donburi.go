// Package ecs provides ECS adapters for lantern.
package ecs

import (
	"github.com/phanxgames/lantern"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// NodeEventType is the Donburi event type for lantern node events.
// Subscribe to this in your ECS systems to receive attach, activation and
// texture load events.
var NodeEventType = events.NewEventType[lantern.NodeEvent]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates an EntityStore backed by a Donburi world.
// Node events are published to NodeEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiStore(world donburi.World) lantern.EntityStore {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitEvent(event lantern.NodeEvent) {
	NodeEventType.Publish(s.world, event)
}
