package collab

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/store"
	"github.com/freeflow/freeflow/backend-go/internal/typeid"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrElementNotFound  = errors.New("element not found")
	ErrDuplicateElement = errors.New("duplicate element id")
	ErrMissingField     = errors.New("missing field")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
)

// DocumentState holds the authoritative board for a room. Operations are
// applied one at a time and numbered with a server sequence.
type DocumentState struct {
	mu        sync.Mutex
	store     *store.Store
	serverSeq int64
	savedSeq  int64
}

// NewDocumentState creates a document state whose history starts at
// elements.
func NewDocumentState(elements []element.Element) *DocumentState {
	s := store.New()
	s.Load(elements)
	return &DocumentState{store: s}
}

// Store returns the room's store.
func (ds *DocumentState) Store() *store.Store {
	return ds.store
}

// ApplyOperation validates and applies op, returning its server sequence.
// A rejected operation leaves the board untouched.
func (ds *DocumentState) ApplyOperation(op Operation) (int64, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if err := ds.applyOperationLocked(op); err != nil {
		return 0, err
	}

	ds.serverSeq++
	return ds.serverSeq, nil
}

// applyOperationLocked applies the operation without locking (caller must hold lock)
func (ds *DocumentState) applyOperationLocked(op Operation) error {
	switch op.Type {
	case OpElementAdd:
		return ds.applyAdd(op)
	case OpElementUpdate:
		return ds.applyUpdate(op)
	case OpElementsDelete:
		return ds.applyDelete(op)
	case OpHistoryUndo:
		if !ds.store.CanUndo() {
			return ErrNothingToUndo
		}
		ds.store.Undo()
		return nil
	case OpHistoryRedo:
		if !ds.store.CanRedo() {
			return ErrNothingToRedo
		}
		ds.store.Redo()
		return nil
	case OpCanvasClear:
		ds.store.ClearCanvas()
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

func (ds *DocumentState) applyAdd(op Operation) error {
	if op.Element == nil {
		return fmt.Errorf("%w: element", ErrMissingField)
	}
	if err := element.Validate(*op.Element); err != nil {
		return err
	}
	if _, exists := ds.store.Element(op.Element.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateElement, op.Element.ID)
	}

	ds.store.AddElement(*op.Element)
	return nil
}

func (ds *DocumentState) applyUpdate(op Operation) error {
	if op.ElementID == "" || op.Patch == nil {
		return fmt.Errorf("%w: elementId and patch", ErrMissingField)
	}

	current, ok := ds.store.Element(op.ElementID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementNotFound, op.ElementID)
	}
	if err := element.Validate(op.Patch.Apply(current)); err != nil {
		return err
	}

	ds.store.UpdateElement(op.ElementID, *op.Patch)
	return nil
}

func (ds *DocumentState) applyDelete(op Operation) error {
	if len(op.ElementIDs) == 0 {
		return fmt.Errorf("%w: elementIds", ErrMissingField)
	}

	var present []string
	for _, id := range op.ElementIDs {
		if _, ok := ds.store.Element(id); ok {
			present = append(present, id)
		}
	}
	if len(present) == 0 {
		return fmt.Errorf("%w: %v", ErrElementNotFound, op.ElementIDs)
	}

	ds.store.DeleteElements(present)
	return nil
}

// Replace swaps in elements that are already persisted, as an undoable
// step, and returns the new sequence. The board counts as saved at that
// sequence.
func (ds *DocumentState) Replace(elements []element.Element) int64 {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.store.ReplaceElements(elements)
	ds.serverSeq++
	ds.savedSeq = ds.serverSeq
	return ds.serverSeq
}

// SyncPayload returns the full board at the current sequence.
func (ds *DocumentState) SyncPayload() DocSyncPayload {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	st := ds.store.State()
	return DocSyncPayload{
		Elements:  st.Elements,
		ServerSeq: ds.serverSeq,
		CanUndo:   st.CanUndo,
		CanRedo:   st.CanRedo,
	}
}

// Snapshot returns the elements and the sequence they reflect, for saving.
func (ds *DocumentState) Snapshot() ([]element.Element, int64) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.store.Elements(), ds.serverSeq
}

// IsDirty reports whether operations were applied since the last save.
func (ds *DocumentState) IsDirty() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.serverSeq != ds.savedSeq
}

// MarkSaved records that the snapshot taken at seq was persisted.
func (ds *DocumentState) MarkSaved(seq int64) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if seq > ds.savedSeq {
		ds.savedSeq = seq
	}
}

// stamp fills the server-assigned fields of an incoming operation.
func stamp(op Operation) Operation {
	if op.ID == "" {
		op.ID = typeid.NewOpID()
	}
	op.Timestamp = GetServerTimestamp()
	return op
}

// GetServerTimestamp returns the current server time in milliseconds.
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
