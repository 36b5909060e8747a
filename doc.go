// Package sketchboard is a multi-sheet diagram and whiteboard canvas engine
// for [Ebitengine].
//
// A [Document] holds an ordered list of sheets. Each [Sheet] carries its own
// diagram shapes ([Node]), directed connectors ([Connection]), freehand and
// primitive paint strokes ([PaintAction]), a bounded undo/redo [History] and
// the viewport it was last seen at.
//
// # Quick start
//
// The simplest way to get started is [Run], which opens a window and routes
// mouse and keyboard input to the engine:
//
//	e := sketchboard.New(nil)
//	sketchboard.Run(e, sketchboard.RunConfig{
//		Title: "Sketchboard", Width: 1280, Height: 720,
//	})
//
// For full control, implement [ebiten.Game] yourself and forward pointer
// input to [Engine.PointerDown], [Engine.PointerMove], [Engine.PointerUp]
// and [Engine.Wheel], then call [Engine.Update] and [Engine.Draw]:
//
//	type Game struct{ e *sketchboard.Engine }
//
//	func (g *Game) Update() error        { g.e.Update(); return nil }
//	func (g *Game) Draw(s *ebiten.Image) { g.e.Draw(s) }
//	func (g *Game) Layout(w, h int) (int, int) {
//		g.e.SetSurfaceSize(float64(w), float64(h))
//		return w, h
//	}
//
// # Interaction
//
// The active [Tool] decides what a press does. Shape tools place a node at
// the press point and switch back to [ToolSelect]. Paint tools record a
// stroke or a primitive shape. [ToolConnect] drags a connector from one node
// to another using the active [RelationKind]. [ToolSelect] picks, drags and
// box-selects. The middle button pans with any tool, and the wheel zooms
// around the cursor.
//
// Every committed mutation is one undoable step. A node drag is applied
// live and is not recorded in history.
//
// # Persistence
//
// The host receives the serialized document after every change through
// [Engine.OnChange] or a [ChangeSink]. The store subpackage persists
// documents to SQLite and the ecs subpackage forwards changes as donburi
// events.
//
// # Rendering
//
// Draw builds a display list of [RenderCommand] values in screen space
// (grid, connections, nodes, paint, overlays) and submits it with
// vector.FillPath and text/v2. Paint strokes are drawn into an offscreen
// buffer so the eraser only removes paint, never diagram content.
//
// # Headless testing
//
// Gesture scripts ([LoadGestureScript]) replay pointer input through the
// inject queue one event per frame, and [Engine.Screenshot] captures the
// frame after Draw.
//
// [Ebitengine]: https://ebitengine.org
package sketchboard
