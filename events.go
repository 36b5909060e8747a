package sketchboard

import "go.uber.org/zap"

// ChangeReason names the committed operation behind a Change.
type ChangeReason uint8

const (
	ChangeLoad ChangeReason = iota
	ChangeNodeAdd
	ChangeNodeRemove
	ChangeNodeUpdate
	ChangeNodeMove
	ChangeConnectionAdd
	ChangeConnectionRemove
	ChangeConnectionUpdate
	ChangePaintAdd
	ChangePaintRemove
	ChangePaintUpdate
	ChangeDelete
	ChangeUndo
	ChangeRedo
	ChangeSheetAdd
	ChangeSheetSwitch
	ChangeSheetRename
	ChangeViewport
)

var changeReasonNames = [...]string{
	"load", "node_add", "node_remove", "node_update", "node_move",
	"connection_add", "connection_remove", "connection_update",
	"paint_add", "paint_remove", "paint_update", "delete",
	"undo", "redo", "sheet_add", "sheet_switch", "sheet_rename", "viewport",
}

func (r ChangeReason) String() string {
	if int(r) < len(changeReasonNames) {
		return changeReasonNames[r]
	}
	return "unknown"
}

// Change is emitted after every committed mutation. Document holds the
// complete serialized document for the host to persist.
type Change struct {
	Reason   ChangeReason
	Sheet    int
	Document []byte
}

// NoticeKind classifies a user-visible refusal.
type NoticeKind uint8

const (
	NoticeDuplicateConnection NoticeKind = iota
	NoticeSheetLimit
	NoticeCapacity
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeDuplicateConnection:
		return "duplicate_connection"
	case NoticeSheetLimit:
		return "sheet_limit"
	case NoticeCapacity:
		return "capacity"
	}
	return "unknown"
}

// Notice tells the host that a user action was refused.
type Notice struct {
	Kind    NoticeKind
	Message string
}

// ChangeSink receives every change and notice. The store and ecs packages
// provide implementations.
type ChangeSink interface {
	DocumentChanged(Change)
	Notice(Notice)
}

// --- Handler registry ---

type eventKind uint8

const (
	eventChange eventKind = iota
	eventNotice
)

type changeHandler struct {
	id uint32
	fn func(Change)
}

type noticeHandler struct {
	id uint32
	fn func(Notice)
}

type handlerRegistry struct {
	change []changeHandler
	notice []noticeHandler
	nextID uint32
}

// CallbackHandle allows removing a registered callback.
type CallbackHandle struct {
	id    uint32
	reg   *handlerRegistry
	event eventKind
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	switch h.event {
	case eventChange:
		h.reg.change = removeHandler(h.reg.change, func(c changeHandler) bool { return c.id == h.id })
	case eventNotice:
		h.reg.notice = removeHandler(h.reg.notice, func(n noticeHandler) bool { return n.id == h.id })
	}
}

func removeHandler[T any](s []T, match func(T) bool) []T {
	for i := range s {
		if match(s[i]) {
			var zero T
			copy(s[i:], s[i+1:])
			s[len(s)-1] = zero
			return s[:len(s)-1]
		}
	}
	return s
}

// OnChange registers a callback fired after every committed mutation.
func (e *Engine) OnChange(fn func(Change)) CallbackHandle {
	e.handlers.nextID++
	id := e.handlers.nextID
	e.handlers.change = append(e.handlers.change, changeHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: &e.handlers, event: eventChange}
}

// OnNotice registers a callback fired when a user action is refused.
func (e *Engine) OnNotice(fn func(Notice)) CallbackHandle {
	e.handlers.nextID++
	id := e.handlers.nextID
	e.handlers.notice = append(e.handlers.notice, noticeHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: &e.handlers, event: eventNotice}
}

// SetChangeSink installs the sink that receives changes and notices after
// the registered callbacks. nil removes it.
func (e *Engine) SetChangeSink(s ChangeSink) { e.sink = s }

// notify serializes the document and emits a Change.
func (e *Engine) notify(reason ChangeReason) {
	e.stats.changes++
	if len(e.handlers.change) == 0 && e.sink == nil {
		return
	}
	data, err := e.Serialize()
	if err != nil {
		e.log.Error("serialize document", zap.Error(err))
		return
	}
	ch := Change{Reason: reason, Sheet: e.doc.Active, Document: data}
	for _, h := range e.handlers.change {
		h.fn(ch)
	}
	if e.sink != nil {
		e.sink.DocumentChanged(ch)
	}
}

// emitNotice delivers a notice to callbacks and the sink.
func (e *Engine) emitNotice(n Notice) {
	e.log.Info("notice", zap.String("kind", n.Kind.String()), zap.String("message", n.Message))
	for _, h := range e.handlers.notice {
		h.fn(n)
	}
	if e.sink != nil {
		e.sink.Notice(n)
	}
}
