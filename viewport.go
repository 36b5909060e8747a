package sketchboard

import (
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// viewAnim holds the active tweens of a viewport animation. A nil tween is
// not animated.
type viewAnim struct {
	panX, panY *gween.Tween
	scale      *gween.Tween

	// anchored zoom keeps the document point doc under the screen point
	// screen while the scale tween runs.
	anchored    bool
	screen, doc Vec2
}

// Viewport maps document coordinates to the rendering surface:
//
//	screen = doc*Scale + Pan
type Viewport struct {
	PanX, PanY float64
	Scale      float64

	minScale, maxScale float64

	anim *viewAnim
}

// newViewport creates a viewport at scale 1 with the given zoom limits.
func newViewport(minScale, maxScale float64) *Viewport {
	return &Viewport{Scale: 1, minScale: minScale, maxScale: maxScale}
}

func (v *Viewport) clampScale(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 1
	}
	return clamp(s, v.minScale, v.maxScale)
}

// matrix returns the document-to-screen affine matrix.
func (v *Viewport) matrix() [6]float64 {
	return viewTransform(v.PanX, v.PanY, v.Scale)
}

// ScreenToDocument converts a screen-space point to document space.
func (v *Viewport) ScreenToDocument(sx, sy float64) (dx, dy float64) {
	return transformPoint(invertAffine(v.matrix()), sx, sy)
}

// DocumentToScreen converts a document-space point to screen space.
func (v *Viewport) DocumentToScreen(dx, dy float64) (sx, sy float64) {
	return transformPoint(v.matrix(), dx, dy)
}

// ZoomAt multiplies the scale by factor, keeping the document point under
// the screen point (cx, cy) fixed. Returns false when the clamped scale did
// not change.
func (v *Viewport) ZoomAt(cx, cy, factor float64) bool {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return false
	}
	return v.setScaleAt(cx, cy, v.Scale*factor)
}

func (v *Viewport) setScaleAt(cx, cy, scale float64) bool {
	cx, cy = finite(cx, 0), finite(cy, 0)
	old := v.Scale
	next := v.clampScale(scale)
	if next == old {
		return false
	}
	v.PanX = cx - (cx-v.PanX)*next/old
	v.PanY = cy - (cy-v.PanY)*next/old
	v.Scale = next
	return true
}

// PanBy translates the view by a screen-space delta. A non-finite
// component is ignored.
func (v *Viewport) PanBy(dx, dy float64) {
	v.PanX += finite(dx, 0)
	v.PanY += finite(dy, 0)
}

// VisibleBounds returns the document-space rectangle covered by a surface of
// size w x h.
func (v *Viewport) VisibleBounds(w, h float64) Rect {
	return transformRect(invertAffine(v.matrix()), Rect{Width: w, Height: h})
}

// State returns the persisted form of the viewport.
func (v *Viewport) State() ViewState {
	return ViewState{PanX: v.PanX, PanY: v.PanY, Scale: v.Scale}
}

// SetState loads a persisted view, clamping the scale and stopping any
// running animation.
func (v *Viewport) SetState(s ViewState) {
	v.anim = nil
	v.PanX, v.PanY = finite(s.PanX, 0), finite(s.PanY, 0)
	v.Scale = v.clampScale(s.Scale)
}

// ZoomTo animates the scale to the given value around the screen point
// (cx, cy). A non-positive duration applies the zoom immediately.
func (v *Viewport) ZoomTo(scale, cx, cy float64, duration float32, easeFn ease.TweenFunc) {
	cx, cy = finite(cx, 0), finite(cy, 0)
	target := v.clampScale(scale)
	if duration <= 0 {
		v.anim = nil
		v.setScaleAt(cx, cy, target)
		return
	}
	if easeFn == nil {
		easeFn = ease.OutQuad
	}
	dx, dy := v.ScreenToDocument(cx, cy)
	v.anim = &viewAnim{
		scale:    gween.New(float32(v.Scale), float32(target), duration, easeFn),
		anchored: true,
		screen:   Vec2{cx, cy},
		doc:      Vec2{dx, dy},
	}
}

// ScrollTo animates the pan offset to (panX, panY).
func (v *Viewport) ScrollTo(panX, panY float64, duration float32, easeFn ease.TweenFunc) {
	panX, panY = finite(panX, v.PanX), finite(panY, v.PanY)
	if duration <= 0 {
		v.anim = nil
		v.PanX, v.PanY = panX, panY
		return
	}
	if easeFn == nil {
		easeFn = ease.OutQuad
	}
	v.anim = &viewAnim{
		panX: gween.New(float32(v.PanX), float32(panX), duration, easeFn),
		panY: gween.New(float32(v.PanY), float32(panY), duration, easeFn),
	}
}

// Fit frames the document rectangle bounds inside a w x h surface with a
// margin of screen pixels on every side.
func (v *Viewport) Fit(bounds Rect, w, h, margin float64, duration float32, easeFn ease.TweenFunc) {
	aw, ah := w-2*margin, h-2*margin
	if aw <= 0 || ah <= 0 {
		return
	}
	scale := v.Scale
	if bounds.Width > 0 && bounds.Height > 0 {
		scale = math.Min(aw/bounds.Width, ah/bounds.Height)
	} else if bounds.Width > 0 {
		scale = aw / bounds.Width
	} else if bounds.Height > 0 {
		scale = ah / bounds.Height
	}
	scale = v.clampScale(scale)
	c := bounds.Center()
	panX := w/2 - c.X*scale
	panY := h/2 - c.Y*scale

	if duration <= 0 {
		v.anim = nil
		v.PanX, v.PanY, v.Scale = panX, panY, scale
		return
	}
	if easeFn == nil {
		easeFn = ease.OutQuad
	}
	v.anim = &viewAnim{
		panX:  gween.New(float32(v.PanX), float32(panX), duration, easeFn),
		panY:  gween.New(float32(v.PanY), float32(panY), duration, easeFn),
		scale: gween.New(float32(v.Scale), float32(scale), duration, easeFn),
	}
}

// Animating reports whether a tween is running.
func (v *Viewport) Animating() bool { return v.anim != nil }

// stopAnimation cancels a running tween, leaving the view where it is.
func (v *Viewport) stopAnimation() { v.anim = nil }

// update advances the running animation by dt seconds. Returns true when
// the animation finished during this call.
func (v *Viewport) update(dt float32) bool {
	a := v.anim
	if a == nil {
		return false
	}
	done := true
	if a.scale != nil {
		val, fin := a.scale.Update(dt)
		v.Scale = v.clampScale(float64(val))
		if a.anchored {
			v.PanX = a.screen.X - a.doc.X*v.Scale
			v.PanY = a.screen.Y - a.doc.Y*v.Scale
		}
		done = done && fin
	}
	if a.panX != nil {
		val, fin := a.panX.Update(dt)
		v.PanX = float64(val)
		done = done && fin
	}
	if a.panY != nil {
		val, fin := a.panY.Update(dt)
		v.PanY = float64(val)
		done = done && fin
	}
	if done {
		v.anim = nil
	}
	return done
}
