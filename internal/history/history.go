// Package history keeps a linear undo/redo stack of element snapshots.
package history

import "github.com/freeflow/freeflow/backend-go/internal/element"

// History is an ordered list of snapshots plus a cursor pointing at the
// current one. It always holds at least one snapshot and
// 0 <= cursor < len(snapshots). Snapshots are copied on the way in and on
// the way out, so they can never be mutated after being recorded.
type History struct {
	snapshots [][]element.Element
	cursor    int
}

// New returns a history holding a single empty snapshot.
func New() *History {
	return &History{
		snapshots: [][]element.Element{{}},
		cursor:    0,
	}
}

// NewWith returns a history whose only snapshot is state. Loading a saved
// board starts here so undo never steps back past the loaded document.
func NewWith(state []element.Element) *History {
	return &History{
		snapshots: [][]element.Element{element.CloneAll(state)},
		cursor:    0,
	}
}

// Record drops every snapshot after the cursor, appends state and moves the
// cursor onto it.
func (h *History) Record(state []element.Element) {
	h.snapshots = append(h.snapshots[:h.cursor+1], element.CloneAll(state))
	h.cursor = len(h.snapshots) - 1
}

// Undo steps back one snapshot and returns it. At the first snapshot it is a
// no-op and returns the current snapshot with ok == false.
func (h *History) Undo() (state []element.Element, ok bool) {
	if !h.CanUndo() {
		return h.Current(), false
	}
	h.cursor--
	return h.Current(), true
}

// Redo steps forward one snapshot and returns it. At the last snapshot it is
// a no-op and returns the current snapshot with ok == false.
func (h *History) Redo() (state []element.Element, ok bool) {
	if !h.CanRedo() {
		return h.Current(), false
	}
	h.cursor++
	return h.Current(), true
}

func (h *History) CanUndo() bool { return h.cursor > 0 }
func (h *History) CanRedo() bool { return h.cursor < len(h.snapshots)-1 }

// Current returns a copy of the snapshot under the cursor.
func (h *History) Current() []element.Element {
	return element.CloneAll(h.snapshots[h.cursor])
}

// Cursor returns the index of the current snapshot.
func (h *History) Cursor() int { return h.cursor }

// Len returns the number of snapshots held.
func (h *History) Len() int { return len(h.snapshots) }
