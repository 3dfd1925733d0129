package session

// History is the linear undo/redo log. Recording a fresh command truncates
// the redo branch. The zero value is an empty history.
type History struct {
	undo []Command
	redo []Command
}

// CanUndo reports whether an applied command is waiting to be reverted.
func (h *History) CanUndo() bool { return len(h.undo) > 0 }

// CanRedo reports whether an undone command is waiting to be reapplied.
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the number of undoable commands.
func (h *History) Depth() int { return len(h.undo) }

// UndoName returns the label of the command Undo would revert, or "".
func (h *History) UndoName() string {
	if n := len(h.undo); n > 0 {
		return h.undo[n-1].Name()
	}
	return ""
}

// RedoName returns the label of the command Redo would reapply, or "".
func (h *History) RedoName() string {
	if n := len(h.redo); n > 0 {
		return h.redo[n-1].Name()
	}
	return ""
}

// record pushes a newly applied command and drops the redo branch.
func (h *History) record(cmd Command) {
	h.undo = append(h.undo, cmd)
	h.redo = nil
}

func (h *History) popUndo() (Command, bool) {
	n := len(h.undo)
	if n == 0 {
		return nil, false
	}
	cmd := h.undo[n-1]
	h.undo = h.undo[:n-1]
	return cmd, true
}

func (h *History) popRedo() (Command, bool) {
	n := len(h.redo)
	if n == 0 {
		return nil, false
	}
	cmd := h.redo[n-1]
	h.redo = h.redo[:n-1]
	return cmd, true
}

// pushUndo restores a command to the undo stack without touching the redo
// branch; the redo path and failed reverts use it.
func (h *History) pushUndo(cmd Command) { h.undo = append(h.undo, cmd) }

func (h *History) pushRedo(cmd Command) { h.redo = append(h.redo, cmd) }
