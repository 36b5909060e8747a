package sketchboard

// History is a sheet's linear undo/redo stack of pre-mutation snapshots.
//
// Entries before Index are states that undo can return to. Once the first
// undo after a commit runs, the live state is stored at the tail so that redo
// can come back to it.
type History struct {
	Entries []Snapshot `json:"entries"`
	Index   int        `json:"index"`
}

// Len returns the number of stored snapshots.
func (h *History) Len() int { return len(h.Entries) }

// CanUndo reports whether Undo would step back.
func (h *History) CanUndo() bool { return h.Index > 0 }

// CanRedo reports whether Redo would step forward.
func (h *History) CanRedo() bool { return h.Index < len(h.Entries)-1 }

// Commit records pre, the state captured immediately before a mutation.
// Redo entries beyond the current index are discarded. When more than max
// entries exist the oldest are dropped.
func (h *History) Commit(pre Snapshot, max int) {
	h.Entries = append(h.Entries[:h.Index], pre)
	h.Index = len(h.Entries)
	if max > 0 && len(h.Entries) > max {
		drop := len(h.Entries) - max
		copy(h.Entries, h.Entries[drop:])
		for i := max; i < len(h.Entries); i++ {
			h.Entries[i] = nil
		}
		h.Entries = h.Entries[:max]
		h.Index -= drop
	}
}

// Undo steps back and returns the snapshot to restore. current is the live
// state, stored at the tail when no redo entry exists for it yet. Returns
// false at the head.
func (h *History) Undo(current Snapshot) (Snapshot, bool) {
	if h.Index <= 0 {
		return nil, false
	}
	if h.Index == len(h.Entries) {
		h.Entries = append(h.Entries, current)
	}
	h.Index--
	return h.Entries[h.Index], true
}

// Redo steps forward and returns the snapshot to restore. Returns false at
// the tail.
func (h *History) Redo() (Snapshot, bool) {
	if h.Index >= len(h.Entries)-1 {
		return nil, false
	}
	h.Index++
	return h.Entries[h.Index], true
}

// dropLast removes the most recent commit. Used when a gesture that
// committed at press time ends without mutating anything.
func (h *History) dropLast() {
	if h.Index == 0 || h.Index != len(h.Entries) {
		return
	}
	h.Entries[len(h.Entries)-1] = nil
	h.Entries = h.Entries[:len(h.Entries)-1]
	h.Index--
}

// sanitize clamps the index into range after decoding.
func (h *History) sanitize(max int) {
	if h.Entries == nil {
		h.Entries = make([]Snapshot, 0)
	}
	if max > 0 && len(h.Entries) > max+1 {
		drop := len(h.Entries) - (max + 1)
		h.Entries = h.Entries[drop:]
		h.Index -= drop
	}
	if h.Index < 0 {
		h.Index = 0
	}
	if h.Index > len(h.Entries) {
		h.Index = len(h.Entries)
	}
}
