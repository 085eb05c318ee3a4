// Package store owns a board's live document: the ordered elements, the
// selection, the active tool and default style, the viewport, and the
// undo/redo history. Adding, deleting and clearing record a history
// snapshot; in-place updates do not, so drag and resize feedback is never
// its own undo step.
package store

import (
	"slices"
	"sync"

	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/history"
)

// Listener is called with the new state after every change.
type Listener func(State)

type subscription struct {
	id int
	fn Listener
}

// Store is the mutable document aggregate. It is safe for concurrent use;
// listeners run after the lock is released and may read the store.
type Store struct {
	mu sync.RWMutex

	elements []element.Element
	selected []string

	tool        Tool
	style       Style
	viewport    Viewport
	gridEnabled bool
	darkMode    bool

	history *history.History

	listeners []subscription
	nextSubID int
}

// New creates an empty store with default tool, style and viewport.
func New() *Store {
	return &Store{
		elements: []element.Element{},
		selected: []string{},
		tool:     ToolSelection,
		style:    DefaultStyle(),
		viewport: Viewport{Zoom: 1},
		history:  history.New(),
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
			return sub.id == id
		})
	}
}

// commit runs fn under the write lock, then notifies listeners with the
// resulting state.
func (s *Store) commit(fn func()) State {
	s.mu.Lock()
	fn()
	state := s.stateLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.fn(state)
	}
	return state
}

func (s *Store) stateLocked() State {
	return State{
		Elements:         element.CloneAll(s.elements),
		SelectedElements: slices.Clone(s.selected),
		Tool:             s.tool,
		Style:            s.style,
		Viewport:         s.viewport,
		GridEnabled:      s.gridEnabled,
		DarkMode:         s.darkMode,
		CanUndo:          s.history.CanUndo(),
		CanRedo:          s.history.CanRedo(),
	}
}

// State returns a detached copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Elements returns a copy of the live element sequence in z-order.
func (s *Store) Elements() []element.Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return element.CloneAll(s.elements)
}

// Element returns a copy of the element with the given id.
func (s *Store) Element(id string) (element.Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return element.Element{}, false
	}
	return s.elements[i].Clone(), true
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.elements, func(e element.Element) bool {
		return e.ID == id
	})
}

// --- Element mutations ---

// AddElement appends e on top of the z-order and records a snapshot.
func (s *Store) AddElement(e element.Element) State {
	return s.commit(func() {
		s.elements = append(s.elements, e.Clone())
		s.history.Record(s.elements)
	})
}

// UpdateElement writes patch over the element with the given id without
// touching history. Unknown ids are ignored: the element may have been
// deleted while a gesture on it was still in flight.
func (s *Store) UpdateElement(id string, patch element.Patch) State {
	return s.commit(func() {
		s.updateLocked(id, patch)
	})
}

func (s *Store) updateLocked(id string, patch element.Patch) {
	if i := s.indexLocked(id); i >= 0 {
		s.elements[i] = patch.Apply(s.elements[i])
	}
}

// DeleteElements removes every element whose id is in ids, clears the
// selection and records a snapshot even if nothing matched.
func (s *Store) DeleteElements(ids []string) State {
	return s.commit(func() {
		s.elements = slices.DeleteFunc(s.elements, func(e element.Element) bool {
			return slices.Contains(ids, e.ID)
		})
		s.selected = []string{}
		s.history.Record(s.elements)
	})
}

// ClearCanvas removes every element, clears the selection and records a
// snapshot.
func (s *Store) ClearCanvas() State {
	return s.commit(func() {
		s.elements = []element.Element{}
		s.selected = []string{}
		s.history.Record(s.elements)
	})
}

// ReplaceElements swaps in a whole new element sequence, as an import does,
// and records a snapshot so the import can be undone.
func (s *Store) ReplaceElements(elements []element.Element) State {
	return s.commit(func() {
		s.elements = element.CloneAll(elements)
		s.selected = []string{}
		s.history.Record(s.elements)
	})
}

// Load replaces the document and restarts history from it. Used when a
// saved board is opened rather than imported into an open one.
func (s *Store) Load(elements []element.Element) State {
	return s.commit(func() {
		s.elements = element.CloneAll(elements)
		s.selected = []string{}
		s.history = history.NewWith(s.elements)
	})
}

// --- History ---

// Undo restores the previous snapshot and clears the selection. At the
// start of history it changes nothing.
func (s *Store) Undo() State {
	return s.commit(func() {
		if state, ok := s.history.Undo(); ok {
			s.elements = state
			s.selected = []string{}
		}
	})
}

// Redo restores the next snapshot and clears the selection. At the tip of
// history it changes nothing.
func (s *Store) Redo() State {
	return s.commit(func() {
		if state, ok := s.history.Redo(); ok {
			s.elements = state
			s.selected = []string{}
		}
	})
}

func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanUndo()
}

func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.CanRedo()
}

// --- Selection, tool and view ---

// SetSelectedElements replaces the selection.
func (s *Store) SetSelectedElements(ids []string) State {
	return s.commit(func() {
		s.selected = slices.Clone(ids)
		if s.selected == nil {
			s.selected = []string{}
		}
	})
}

func (s *Store) SetTool(tool Tool) State {
	return s.commit(func() { s.tool = tool })
}

// SetZoom stores zoom clamped to [MinZoom, MaxZoom].
func (s *Store) SetZoom(zoom float64) State {
	return s.commit(func() { s.viewport.Zoom = ClampZoom(zoom) })
}

// SetOffset stores the pan translation as given.
func (s *Store) SetOffset(x, y float64) State {
	return s.commit(func() {
		s.viewport.OffsetX = x
		s.viewport.OffsetY = y
	})
}

func (s *Store) ToggleGrid() State {
	return s.commit(func() { s.gridEnabled = !s.gridEnabled })
}

func (s *Store) ToggleDarkMode() State {
	return s.commit(func() { s.darkMode = !s.darkMode })
}
