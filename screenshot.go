package sketchboard

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// Screenshot queues a labeled capture of the next drawn frame. Files land in
// ScreenshotDir as <timestamp>_<sheet>_<label>.png.
func (e *Engine) Screenshot(label string) {
	e.screenshotQueue = append(e.screenshotQueue, label)
}

// flushScreenshots writes one PNG per queued label. Called at the end of
// Draw, after the frame is complete.
func (e *Engine) flushScreenshots(screen *ebiten.Image) {
	if len(e.screenshotQueue) == 0 {
		return
	}
	labels := e.screenshotQueue
	e.screenshotQueue = e.screenshotQueue[:0]

	if err := os.MkdirAll(e.ScreenshotDir, 0o755); err != nil {
		e.log.Error("screenshot dir", zap.String("dir", e.ScreenshotDir), zap.Error(err))
		return
	}
	frame := captureFrame(screen)
	prefix := time.Now().Format("20060102_150405") + "_" + sanitizeLabel(e.Sheet().Name)
	for _, label := range labels {
		path := filepath.Join(e.ScreenshotDir, prefix+"_"+sanitizeLabel(label)+".png")
		if err := writePNG(path, frame); err != nil {
			e.log.Error("screenshot", zap.Error(err))
			continue
		}
		e.log.Info("screenshot written",
			zap.String("path", path),
			zap.Int("sheet", e.doc.Active),
		)
	}
}

// captureFrame copies the pixels of src. ReadPixels yields premultiplied
// RGBA, which is the layout of image.RGBA, so no conversion is needed.
func captureFrame(src *ebiten.Image) *image.RGBA {
	img := image.NewRGBA(src.Bounds())
	src.ReadPixels(img.Pix)
	return img
}

// writePNG encodes img to path, replacing any existing file.
func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// sanitizeLabel keeps ASCII letters, digits, '-' and '.', maps every other
// rune to '_' and substitutes "unlabeled" for a blank label.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, label)
}
