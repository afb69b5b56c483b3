// Package ecs provides ECS adapters for lantern's node event system.
//
// The primary adapter is [NewDonburiStore], which bridges lantern node events
// (attach, detach, activation, texture load) into a [Donburi] world as typed
// events. Subscribe to [NodeEventType] in your ECS systems to receive them.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	stage.SetEntityStore(store)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
