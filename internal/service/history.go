package service

import "folio/internal/domain"

// historyLimit caps the snapshots kept per direction; the oldest are
// dropped first.
const historyLimit = 40

// history is a linear undo/redo stack of draft snapshots. It is guarded by
// the owning session's mutex.
type history struct {
	undo []*domain.StudyNote
	redo []*domain.StudyNote
}

// record pushes the state before a mutation and forgets any redo branch.
func (h *history) record(before *domain.StudyNote) {
	h.undo = pushCapped(h.undo, before)
	h.redo = nil
}

func (h *history) canUndo() bool { return len(h.undo) > 0 }
func (h *history) canRedo() bool { return len(h.redo) > 0 }

// stepBack swaps current for the latest undo snapshot.
func (h *history) stepBack(current *domain.StudyNote) *domain.StudyNote {
	prev := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = pushCapped(h.redo, current)
	return prev
}

// stepForward swaps current for the latest redo snapshot.
func (h *history) stepForward(current *domain.StudyNote) *domain.StudyNote {
	next := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = pushCapped(h.undo, current)
	return next
}

func pushCapped(stack []*domain.StudyNote, n *domain.StudyNote) []*domain.StudyNote {
	stack = append(stack, n)
	if len(stack) > historyLimit {
		stack = append(stack[:0:0], stack[len(stack)-historyLimit:]...)
	}
	return stack
}
