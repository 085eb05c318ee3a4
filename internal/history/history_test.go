package history

import (
	"testing"

	"github.com/freeflow/freeflow/backend-go/internal/element"
)

func rect() element.Element {
	return element.New(element.TypeRectangle, 0, 0, 10, 10, element.Patch{})
}

func TestNewHistory(t *testing.T) {
	h := New()
	if h.Len() != 1 || h.Cursor() != 0 {
		t.Fatalf("Len/Cursor = %d/%d, want 1/0", h.Len(), h.Cursor())
	}
	if h.CanUndo() || h.CanRedo() {
		t.Error("fresh history should not undo or redo")
	}
	if got := h.Current(); len(got) != 0 {
		t.Errorf("Current() = %v, want empty", got)
	}
}

func TestUndoRedoAtBoundsAreNoOps(t *testing.T) {
	h := New()
	a := rect()
	h.Record([]element.Element{a})

	if _, ok := h.Redo(); ok {
		t.Error("Redo at tip should report no-op")
	}
	if h.Cursor() != 1 {
		t.Errorf("cursor moved to %d", h.Cursor())
	}

	state, ok := h.Undo()
	if !ok || len(state) != 0 {
		t.Fatalf("Undo() = %v, %v", state, ok)
	}
	if _, ok := h.Undo(); ok {
		t.Error("Undo at root should report no-op")
	}
	if h.Cursor() != 0 {
		t.Errorf("cursor moved to %d", h.Cursor())
	}

	state, ok = h.Redo()
	if !ok || len(state) != 1 || state[0].ID != a.ID {
		t.Fatalf("Redo() = %v, %v", state, ok)
	}
}

func TestRecordTruncatesRedoTail(t *testing.T) {
	h := New()
	a, b, c := rect(), rect(), rect()
	h.Record([]element.Element{a})
	h.Record([]element.Element{a, b})

	h.Undo()
	if !h.CanRedo() {
		t.Fatal("expected redo to be available after undo")
	}

	h.Record([]element.Element{a, c})
	if h.CanRedo() {
		t.Error("recording after undo must discard the redo branch")
	}
	if h.Len() != 3 {
		t.Errorf("Len() = %d, want 3", h.Len())
	}
	if got := h.Current(); got[1].ID != c.ID {
		t.Errorf("current tip = %s, want %s", got[1].ID, c.ID)
	}
}

func TestSnapshotsAreImmutable(t *testing.T) {
	h := New()
	state := []element.Element{rect()}
	h.Record(state)

	state[0].X = 500
	got := h.Current()
	if got[0].X != 0 {
		t.Error("mutating the recorded slice changed the snapshot")
	}

	got[0].X = 700
	if h.Current()[0].X != 0 {
		t.Error("mutating a returned snapshot changed the history")
	}
}
