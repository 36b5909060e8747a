package sketchboard

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// scriptStep is a single action of a gesture script.
type scriptStep struct {
	Action string  `yaml:"action"`
	Label  string  `yaml:"label,omitempty"`
	X      float64 `yaml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty"`
	FromX  float64 `yaml:"fromX,omitempty"`
	FromY  float64 `yaml:"fromY,omitempty"`
	ToX    float64 `yaml:"toX,omitempty"`
	ToY    float64 `yaml:"toY,omitempty"`
	Frames int     `yaml:"frames,omitempty"`
	Button string  `yaml:"button,omitempty"`
	Mods   string  `yaml:"mods,omitempty"`
	Name   string  `yaml:"name,omitempty"`
	Index  int     `yaml:"index,omitempty"`
	Factor float64 `yaml:"factor,omitempty"`
}

type gestureScript struct {
	Steps []scriptStep `yaml:"steps"`
}

var scriptActions = map[string]bool{
	"press": true, "move": true, "release": true, "click": true, "drag": true,
	"tool": true, "relation": true, "undo": true, "redo": true, "delete": true,
	"cancel": true, "selectAll": true, "addSheet": true, "switchSheet": true,
	"zoom": true, "fit": true, "screenshot": true, "wait": true,
}

// ScriptRunner replays a gesture script one step per frame. Pointer steps
// go through the inject queue, so the runner waits for the queue to drain
// before advancing.
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
	errs      []error
}

// LoadGestureScript parses a YAML or JSON gesture script.
func LoadGestureScript(data []byte) (*ScriptRunner, error) {
	var script gestureScript
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse gesture script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, errors.New("parse gesture script: no steps")
	}
	for i, st := range script.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("parse gesture script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &ScriptRunner{steps: script.Steps}, nil
}

// SetScriptRunner attaches a runner. Its step method is called from Update
// before injected input is processed.
func (e *Engine) SetScriptRunner(r *ScriptRunner) { e.runner = r }

// Done reports whether every step has been executed.
func (r *ScriptRunner) Done() bool { return r.done }

// Err returns the joined errors of steps that were refused.
func (r *ScriptRunner) Err() error { return errors.Join(r.errs...) }

// Play runs the whole script against e synchronously, advancing one frame
// per step. It returns when the script is done or maxFrames have elapsed.
func (r *ScriptRunner) Play(e *Engine, maxFrames int) error {
	for i := 0; i < maxFrames && !r.done; i++ {
		e.advance(1.0 / 60)
	}
	if !r.done {
		return fmt.Errorf("gesture script not finished after %d frames", maxFrames)
	}
	return r.Err()
}

// step advances the runner by one frame.
func (r *ScriptRunner) step(e *Engine) {
	if r.done {
		return
	}
	if len(e.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++
	if err := r.exec(e, st); err != nil {
		e.log.Warn("gesture script step refused",
			zap.Int("step", r.cursor-1),
			zap.String("action", st.Action),
			zap.Error(err),
		)
		r.errs = append(r.errs, fmt.Errorf("step %d (%s): %w", r.cursor-1, st.Action, err))
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(e.injectQueue) == 0 {
		r.done = true
	}
}

func (r *ScriptRunner) exec(e *Engine, st scriptStep) error {
	switch st.Action {
	case "press":
		btn, err := parseButton(st.Button)
		if err != nil {
			return err
		}
		e.InjectPressButton(st.X, st.Y, btn, parseMods(st.Mods))
	case "move":
		e.InjectMove(st.X, st.Y)
	case "release":
		e.InjectRelease(st.X, st.Y)
	case "click":
		e.InjectClick(st.X, st.Y)
	case "drag":
		e.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "tool":
		t, ok := ParseTool(st.Name)
		if !ok {
			return fmt.Errorf("unknown tool %q", st.Name)
		}
		e.SetTool(t)
	case "relation":
		k, ok := ParseRelationKind(st.Name)
		if !ok {
			return fmt.Errorf("unknown relation %q", st.Name)
		}
		e.SetRelation(k)
	case "undo":
		e.Undo()
	case "redo":
		e.Redo()
	case "delete":
		e.DeleteSelection()
	case "cancel":
		e.Cancel()
	case "selectAll":
		e.SelectAll()
	case "addSheet":
		_, err := e.AddSheet(st.Name)
		return err
	case "switchSheet":
		return e.SwitchSheet(st.Index)
	case "zoom":
		if st.Factor <= 0 {
			return fmt.Errorf("zoom factor %v must be positive", st.Factor)
		}
		e.Zoom(st.Factor)
	case "fit":
		e.FitContent(false)
	case "screenshot":
		e.Screenshot(st.Label)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1
		}
	}
	return nil
}

func parseButton(s string) (MouseButton, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return MouseButtonLeft, nil
	case "right":
		return MouseButtonRight, nil
	case "middle":
		return MouseButtonMiddle, nil
	}
	return 0, fmt.Errorf("unknown button %q", s)
}

// parseMods reads a "+"-separated modifier list such as "shift+ctrl".
func parseMods(s string) KeyModifiers {
	var m KeyModifiers
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		switch strings.TrimSpace(part) {
		case "shift":
			m |= ModShift
		case "ctrl", "control":
			m |= ModCtrl
		case "alt", "option":
			m |= ModAlt
		case "meta", "cmd", "super":
			m |= ModMeta
		}
	}
	return m
}
