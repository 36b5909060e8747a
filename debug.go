package sketchboard

import (
	"time"

	"go.uber.org/zap"
)

// debugStats holds per-frame timing and draw metrics. Only populated while
// debug mode is on, except changes which always counts notifications.
type debugStats struct {
	buildTime    time.Duration
	submitTime   time.Duration
	commandCount int
	pathCount    int
	drawCalls    int
	changes      int
}

// debugLog writes the last frame's stats at debug level.
func (e *Engine) debugLog() {
	if !e.debug {
		return
	}
	e.log.Debug("frame",
		zap.Duration("build", e.stats.buildTime),
		zap.Duration("submit", e.stats.submitTime),
		zap.Duration("total", e.stats.buildTime+e.stats.submitTime),
		zap.Int("commands", e.stats.commandCount),
		zap.Int("paths", e.stats.pathCount),
		zap.Int("drawCalls", e.stats.drawCalls),
		zap.Int("changes", e.stats.changes),
	)
}

// countPaths returns the number of vector path commands.
func countPaths(commands []RenderCommand) int {
	n := 0
	for i := range commands {
		if commands[i].Type == CommandPath && commands[i].path != nil {
			n++
		}
	}
	return n
}
