package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/freeflow/freeflow/backend-go/internal/document"
	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/geom"
	"github.com/freeflow/freeflow/backend-go/internal/store"
)

var (
	ErrUnknownTool    = errors.New("unknown tool")
	ErrUnknownType    = errors.New("unknown element type")
	ErrElementMissing = errors.New("element not found")
	ErrDuplicateID    = errors.New("duplicate element id")
)

// Engine is the editor core behind the browser bridge. It owns a store and
// turns pointer positions and JSON payloads into store operations; queries
// come back as JSON strings the frontend can consume directly.
type Engine struct {
	store *store.Store
}

// NewEngine creates an engine over an empty board.
func NewEngine() *Engine {
	return NewEngineWithStore(store.New())
}

// NewEngineWithStore wraps an existing store.
func NewEngineWithStore(s *store.Store) *Engine {
	return &Engine{store: s}
}

// Store returns the underlying store, for subscribing to changes.
func (e *Engine) Store() *store.Store {
	return e.store
}

// --- Commands (frontend → backend) ---

// LoadDocument opens a board file, replacing the document and restarting
// history. On error the current board is untouched.
func (e *Engine) LoadDocument(jsonData string) error {
	f, err := document.Decode([]byte(jsonData))
	if err != nil {
		return err
	}

	e.store.Load(f.Elements)
	if f.AppState != nil {
		e.applyAppState(*f.AppState)
	}
	return nil
}

// ImportDocument replaces the document as one undoable step.
func (e *Engine) ImportDocument(jsonData string) error {
	elements, err := document.DecodeElements([]byte(jsonData))
	if err != nil {
		return err
	}
	e.store.ReplaceElements(elements)
	return nil
}

func (e *Engine) applyAppState(app document.AppState) {
	st := e.store.State()
	if st.GridEnabled != app.GridEnabled {
		e.store.ToggleGrid()
	}
	if st.DarkMode != app.DarkMode {
		e.store.ToggleDarkMode()
	}
}

// LoadSampleDocument opens the built-in sample board.
func (e *Engine) LoadSampleDocument() {
	e.store.Load(document.NewSampleElements())
}

// AddElement appends a fully specified element.
func (e *Engine) AddElement(jsonData string) error {
	var el element.Element
	if err := json.Unmarshal([]byte(jsonData), &el); err != nil {
		return fmt.Errorf("decode element: %w", err)
	}
	if err := element.Validate(el); err != nil {
		return err
	}
	if _, exists := e.store.Element(el.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
	}
	e.store.AddElement(el)
	return nil
}

// CreateElement builds an element of typ in the current default style,
// applies overridesJSON (may be empty) and appends it. Returns the new id.
// Freedraw needs its points in the overrides.
func (e *Engine) CreateElement(typ string, x, y, width, height float64, overridesJSON string) (string, error) {
	t := element.Type(typ)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	overrides, err := decodePatch(overridesJSON)
	if err != nil {
		return "", err
	}

	el := element.New(t, x, y, width, height, e.store.DefaultPatch().Merge(overrides))
	if err := element.Validate(el); err != nil {
		return "", err
	}
	e.store.AddElement(el)
	return el.ID, nil
}

// UpdateElement applies a partial field set to one element without
// recording history. A patch that would leave the element invalid is
// rejected whole.
func (e *Engine) UpdateElement(id, patchJSON string) error {
	patch, err := decodePatch(patchJSON)
	if err != nil {
		return err
	}
	current, ok := e.store.Element(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementMissing, id)
	}
	if err := element.Validate(patch.Apply(current)); err != nil {
		return err
	}
	e.store.UpdateElement(id, patch)
	return nil
}

func decodePatch(data string) (element.Patch, error) {
	var p element.Patch
	if data == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return p, fmt.Errorf("decode patch: %w", err)
	}
	return p, nil
}

// NormalizeElement fixes up negative extents once a draw or resize gesture
// ends.
func (e *Engine) NormalizeElement(id string) error {
	el, ok := e.store.Element(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementMissing, id)
	}
	n := element.Normalize(el)
	e.store.UpdateElement(id, boxPatch(n))
	return nil
}

// ResizeElement drags handle h of element id by (dx, dy).
func (e *Engine) ResizeElement(id, handle string, dx, dy float64) error {
	el, ok := e.store.Element(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrElementMissing, id)
	}
	e.store.UpdateElement(id, boxPatch(Resize(el, Handle(handle), dx, dy)))
	return nil
}

func boxPatch(el element.Element) element.Patch {
	return element.Patch{
		X:      element.Ptr(el.X),
		Y:      element.Ptr(el.Y),
		Width:  element.Ptr(el.Width),
		Height: element.Ptr(el.Height),
	}
}

// DeleteElements removes the given elements as one undo step.
func (e *Engine) DeleteElements(ids []string) {
	e.store.DeleteElements(ids)
}

// DeleteSelected removes the current selection. An empty selection is a
// no-op and records nothing.
func (e *Engine) DeleteSelected() {
	st := e.store.State()
	if len(st.SelectedElements) == 0 {
		return
	}
	e.store.DeleteElements(st.SelectedElements)
}

// SetSelection sets the selected element ids.
func (e *Engine) SetSelection(ids []string) {
	e.store.SetSelectedElements(ids)
}

// SelectInRect selects every element fully inside the marquee spanned by
// two corners.
func (e *Engine) SelectInRect(x0, y0, x1, y1 float64) []string {
	ids := ElementsInRect(geom.NewRect(x0, y0, x1, y1), e.store.Elements())
	e.store.SetSelectedElements(ids)
	if ids == nil {
		ids = []string{}
	}
	return ids
}

// SetTool switches the active tool.
func (e *Engine) SetTool(tool string) error {
	t := store.Tool(tool)
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTool, tool)
	}
	e.store.SetTool(t)
	return nil
}

// EraseAt deletes every element the eraser touches at (x, y), sized from
// the current stroke width. Returns the removed ids; a miss records nothing.
func (e *Engine) EraseAt(x, y float64) []string {
	st := e.store.State()
	radius := EraserRadius(st.Style.StrokeWidth)
	ids := ElementsErasedAt(geom.Pt(x, y), st.Elements, radius)
	if len(ids) == 0 {
		return []string{}
	}
	e.store.DeleteElements(ids)
	return ids
}

func (e *Engine) Undo() {
	e.store.Undo()
}

func (e *Engine) Redo() {
	e.store.Redo()
}

// --- Queries (frontend ← backend) ---

// Render compiles the current state into draw commands as JSON.
func (e *Engine) Render() string {
	result, _ := DrawCommandsToJSON(CompileDrawCommands(e.store.State()))
	return result
}

// HitTest returns the id of the topmost element at (x, y), or "".
func (e *Engine) HitTest(x, y float64) string {
	el, ok := ElementAt(geom.Pt(x, y), e.store.Elements())
	if !ok {
		return ""
	}
	return el.ID
}

// HandleAt returns the resize handle of element id under (x, y), or "".
func (e *Engine) HandleAt(id string, x, y float64) string {
	el, ok := e.store.Element(id)
	if !ok {
		return string(HandleNone)
	}
	return string(HandleAt(geom.Pt(x, y), el))
}

// GetDocument returns the board file for the current document.
func (e *Engine) GetDocument() string {
	st := e.store.State()
	f := document.NewFile(st.Elements)
	f.AppState = &document.AppState{GridEnabled: st.GridEnabled, DarkMode: st.DarkMode}
	data, err := document.EncodeFile(f)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// GetState returns the full store state as JSON.
func (e *Engine) GetState() string {
	data, err := json.Marshal(e.store.State())
	if err != nil {
		return "{}"
	}
	return string(data)
}

func (e *Engine) CanUndo() bool {
	return e.store.CanUndo()
}

func (e *Engine) CanRedo() bool {
	return e.store.CanRedo()
}
