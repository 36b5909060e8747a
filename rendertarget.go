package sketchboard

import (
	"image"
	"math/bits"

	"github.com/hajimehoshi/ebiten/v2"
)

// maxIdleTargets bounds how many released buffers the pool keeps. A frame
// uses at most two (paint and scratch).
const maxIdleTargets = 4

// targetPool recycles the offscreen paint and scratch buffers across
// frames. Buffers are allocated at power-of-two sizes so small window
// resizes reuse them.
type targetPool struct {
	idle []*ebiten.Image
}

// Acquire returns a cleared buffer covering at least (w, h) pixels. The
// smallest idle buffer that fits is preferred.
func (p *targetPool) Acquire(w, h int) *ebiten.Image {
	best := -1
	for i, img := range p.idle {
		b := img.Bounds()
		if b.Dx() < w || b.Dy() < h {
			continue
		}
		if best < 0 || area(b) < area(p.idle[best].Bounds()) {
			best = i
		}
	}
	if best >= 0 {
		img := p.idle[best]
		p.idle = append(p.idle[:best], p.idle[best+1:]...)
		img.Clear()
		return img
	}
	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, nextPowerOfTwo(w), nextPowerOfTwo(h)),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release hands a buffer back. Past maxIdleTargets the smallest idle buffer
// is deallocated.
func (p *targetPool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	p.idle = append(p.idle, img)
	if len(p.idle) <= maxIdleTargets {
		return
	}
	small := 0
	for i := range p.idle {
		if area(p.idle[i].Bounds()) < area(p.idle[small].Bounds()) {
			small = i
		}
	}
	p.idle[small].Deallocate()
	p.idle = append(p.idle[:small], p.idle[small+1:]...)
}

// Dispose deallocates every idle buffer.
func (p *targetPool) Dispose() {
	for _, img := range p.idle {
		img.Deallocate()
	}
	p.idle = nil
}

func area(r image.Rectangle) int { return r.Dx() * r.Dy() }

// nextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
