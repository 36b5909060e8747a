package sketchboard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	_ "image/gif"  // decode gif node images
	_ "image/jpeg" // decode jpeg node images
	_ "image/png"  // decode png node images
	"net/url"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // decode webp node images
)

var errNotDataURL = errors.New("image reference is not a data URL")

// submit walks the display list and issues the ebiten draw calls. Offscreen
// targets are taken from the pool for the duration of the frame.
func (e *Engine) submit(screen *ebiten.Image) {
	b := screen.Bounds()
	w, h := b.Dx(), b.Dy()
	var paint, scratch *ebiten.Image
	target := func(id TargetID) *ebiten.Image {
		switch id {
		case TargetPaint:
			if paint == nil {
				paint = e.rtPool.Acquire(w, h)
			}
			return paint
		case TargetScratch:
			if scratch == nil {
				scratch = e.rtPool.Acquire(w, h)
			}
			return scratch
		}
		return screen
	}

	drawCalls := 0
	for i := range e.commands {
		cmd := &e.commands[i]
		dst := target(cmd.Target)
		switch cmd.Type {
		case CommandClear:
			dst.Clear()
		case CommandPath:
			c := cmd.Color
			var op vector.DrawPathOptions
			op.AntiAlias = true
			op.Blend = cmd.BlendMode.EbitenBlend()
			op.ColorScale.Scale(float32(c.R*c.A), float32(c.G*c.A), float32(c.B*c.A), float32(c.A))
			vector.FillPath(dst, cmd.path, nil, &op)
			drawCalls++
		case CommandText:
			if e.drawText(dst, cmd) {
				drawCalls++
			}
		case CommandImage:
			if e.drawImage(dst, cmd) {
				drawCalls++
			}
		case CommandComposite:
			var op ebiten.DrawImageOptions
			op.ColorScale.ScaleAlpha(float32(cmd.Alpha))
			op.Blend = cmd.BlendMode.EbitenBlend()
			dst.DrawImage(target(cmd.Src), &op)
			drawCalls++
		}
	}

	e.rtPool.Release(paint)
	e.rtPool.Release(scratch)
	if e.debug {
		e.stats.drawCalls = drawCalls
		e.stats.pathCount = countPaths(e.commands)
	}
}

// textFaces returns the font-backed measurer used to draw labels, loading
// the built-in faces on first use.
func (e *Engine) textFaces() *TTFMeasurer {
	if e.faces == nil {
		m, err := NewTTFMeasurer()
		if err != nil {
			e.log.Error("load label fonts", zap.Error(err))
			return nil
		}
		e.faces = m
	}
	return e.faces
}

func (e *Engine) drawText(dst *ebiten.Image, cmd *RenderCommand) bool {
	faces := e.textFaces()
	if faces == nil {
		return false
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(cmd.Pos.X, cmd.Pos.Y)
	op.ColorScale.ScaleWithColor(cmd.Color.toRGBA())
	op.LineSpacing = faces.LineHeight(cmd.Size, cmd.Bold)
	op.SecondaryAlign = text.AlignCenter
	if cmd.Align == AlignCenter {
		op.PrimaryAlign = text.AlignCenter
	}
	text.Draw(dst, cmd.Text, faces.Face(cmd.Size, cmd.Bold), op)
	return true
}

func (e *Engine) drawImage(dst *ebiten.Image, cmd *RenderCommand) bool {
	img := e.nodeImage(cmd.Image)
	if img == nil || cmd.Dst.Width <= 0 || cmd.Dst.Height <= 0 {
		return false
	}
	b := img.Bounds()
	sx := cmd.Dst.Width / float64(b.Dx())
	sy := cmd.Dst.Height / float64(b.Dy())
	s := min(sx, sy)
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(s, s)
	op.GeoM.Translate(
		cmd.Dst.X+(cmd.Dst.Width-float64(b.Dx())*s)/2,
		cmd.Dst.Y+(cmd.Dst.Height-float64(b.Dy())*s)/2,
	)
	op.Filter = ebiten.FilterLinear
	dst.DrawImage(img, &op)
	return true
}

// nodeImage returns the decoded image for a node image reference. Failures
// are cached as nil so a broken image is reported once.
func (e *Engine) nodeImage(ref string) *ebiten.Image {
	if img, ok := e.images[ref]; ok {
		return img
	}
	src, err := decodeDataURL(ref)
	if err != nil {
		e.log.Warn("node image unreadable", zap.Error(err))
		e.images[ref] = nil
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	e.images[ref] = img
	return img
}

// decodeDataURL decodes a data:image/...;base64 reference (or a
// percent-encoded one) into an image.
func decodeDataURL(ref string) (image.Image, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return nil, errNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errNotDataURL
	}
	var data []byte
	var err error
	if strings.HasSuffix(meta, ";base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
	} else {
		var s string
		s, err = url.PathUnescape(payload)
		data = []byte(s)
	}
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// ReleaseImages drops every decoded node image and pooled render target.
func (e *Engine) ReleaseImages() {
	for k, img := range e.images {
		if img != nil {
			img.Deallocate()
		}
		delete(e.images, k)
	}
	e.rtPool.Dispose()
}
