package sketchboard

type pointerPhase uint8

const (
	phasePress pointerPhase = iota
	phaseMove
	phaseRelease
)

// syntheticPointerEvent is a single injected pointer event in screen
// coordinates, fed through the same controller entry points as real input.
type syntheticPointerEvent struct {
	screenX, screenY float64
	phase            pointerPhase
	button           MouseButton
	mods             KeyModifiers
}

// InjectPress queues a left-button press at the given screen coordinates.
// The event is consumed on the next Update.
func (e *Engine) InjectPress(x, y float64) {
	e.InjectPressButton(x, y, MouseButtonLeft, 0)
}

// InjectPressButton queues a press of button with the given modifiers.
func (e *Engine) InjectPressButton(x, y float64, button MouseButton, mods KeyModifiers) {
	e.injectQueue = append(e.injectQueue, syntheticPointerEvent{
		screenX: x, screenY: y,
		phase:  phasePress,
		button: button,
		mods:   mods,
	})
}

// InjectMove queues a pointer move. Use it between InjectPress and
// InjectRelease to simulate a drag.
func (e *Engine) InjectMove(x, y float64) {
	e.injectQueue = append(e.injectQueue, syntheticPointerEvent{
		screenX: x, screenY: y,
		phase: phaseMove,
	})
}

// InjectRelease queues a pointer release at the given screen coordinates.
func (e *Engine) InjectRelease(x, y float64) {
	e.injectQueue = append(e.injectQueue, syntheticPointerEvent{
		screenX: x, screenY: y,
		phase: phaseRelease,
	})
}

// InjectClick queues a press followed by a release at the same point.
// Consumes two frames.
func (e *Engine) InjectClick(x, y float64) {
	e.InjectPress(x, y)
	e.InjectRelease(x, y)
}

// InjectDrag queues a press at (fromX, fromY), frames-2 interpolated moves
// and a release at (toX, toY). The sequence consumes frames frames, at
// least 2.
func (e *Engine) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 2 {
		frames = 2
	}
	e.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		e.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	e.InjectRelease(toX, toY)
}

// PendingInput reports how many injected events are still queued.
func (e *Engine) PendingInput() int { return len(e.injectQueue) }

// processInjectedInput pops one event from the inject queue and dispatches
// it. Returns true if an event was consumed, in which case the host should
// skip real pointer input for the frame.
func (e *Engine) processInjectedInput() bool {
	if len(e.injectQueue) == 0 {
		return false
	}
	evt := e.injectQueue[0]
	copy(e.injectQueue, e.injectQueue[1:])
	e.injectQueue = e.injectQueue[:len(e.injectQueue)-1]

	switch evt.phase {
	case phasePress:
		e.PointerDown(evt.screenX, evt.screenY, evt.button, evt.mods)
	case phaseMove:
		e.PointerMove(evt.screenX, evt.screenY)
	case phaseRelease:
		e.PointerUp(evt.screenX, evt.screenY)
	}
	return true
}
