package ecs

import (
	"github.com/phanxgames/sketchboard"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// ChangeEventType is the Donburi event type for committed document changes.
var ChangeEventType = events.NewEventType[sketchboard.Change]()

// NoticeEventType is the Donburi event type for refused user actions.
var NoticeEventType = events.NewEventType[sketchboard.Notice]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates a ChangeSink backed by a Donburi world. Events are
// queued and delivered by ProcessEvents.
func NewDonburiSink(world donburi.World) sketchboard.ChangeSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) DocumentChanged(c sketchboard.Change) {
	ChangeEventType.Publish(s.world, c)
}

func (s *donburiSink) Notice(n sketchboard.Notice) {
	NoticeEventType.Publish(s.world, n)
}
