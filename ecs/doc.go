// Package ecs provides ECS adapters for sketchboard's change notifications.
//
// The primary adapter is [NewDonburiSink], which bridges document changes
// and user-visible notices into a [Donburi] world as typed events.
// Subscribe to [ChangeEventType] and [NoticeEventType] in your ECS systems
// to receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	engine.SetChangeSink(sink)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
