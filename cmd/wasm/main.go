//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/freeflow/freeflow/backend-go/internal/element"
	"github.com/freeflow/freeflow/backend-go/internal/engine"
	"github.com/freeflow/freeflow/backend-go/internal/store"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	// Create the engine API object
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("importDocument", js.FuncOf(importDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("addElement", js.FuncOf(addElement))
	api.Set("createElement", js.FuncOf(createElement))
	api.Set("updateElement", js.FuncOf(updateElement))
	api.Set("normalizeElement", js.FuncOf(normalizeElement))
	api.Set("resizeElement", js.FuncOf(resizeElement))
	api.Set("deleteElements", js.FuncOf(deleteElements))
	api.Set("deleteSelected", js.FuncOf(deleteSelected))
	api.Set("setSelection", js.FuncOf(setSelection))
	api.Set("selectInRect", js.FuncOf(selectInRect))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("setStrokeColor", js.FuncOf(setStrokeColor))
	api.Set("setBackgroundColor", js.FuncOf(setBackgroundColor))
	api.Set("setFillStyle", js.FuncOf(setFillStyle))
	api.Set("setStrokeWidth", js.FuncOf(setStrokeWidth))
	api.Set("setStrokeStyle", js.FuncOf(setStrokeStyle))
	api.Set("setRoughness", js.FuncOf(setRoughness))
	api.Set("setOpacity", js.FuncOf(setOpacity))
	api.Set("setFontSize", js.FuncOf(setFontSize))
	api.Set("setFontFamily", js.FuncOf(setFontFamily))
	api.Set("setZoom", js.FuncOf(setZoom))
	api.Set("setOffset", js.FuncOf(setOffset))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("clearCanvas", js.FuncOf(clearCanvas))
	api.Set("toggleGrid", js.FuncOf(toggleGrid))
	api.Set("toggleDarkMode", js.FuncOf(toggleDarkMode))
	api.Set("subscribe", js.FuncOf(subscribe))

	// --- Queries (frontend ← backend) ---
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("handleAt", js.FuncOf(handleAt))
	api.Set("eraseAt", js.FuncOf(eraseAt))
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getState", js.FuncOf(getState))
	api.Set("canUndo", js.FuncOf(canUndo))
	api.Set("canRedo", js.FuncOf(canRedo))

	// Register on global scope
	js.Global().Set("freeflowEngine", api)

	// Signal that WASM is ready
	js.Global().Set("freeflowWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func ok() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func fail(msg string) any {
	return js.ValueOf(map[string]any{"error": msg})
}

func result(err error) any {
	if err != nil {
		return fail(err.Error())
	}
	return ok()
}

func stringsOf(v js.Value) []string {
	n := v.Length()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = v.Index(i).String()
	}
	return out
}

func stringsToJS(ids []string) any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return js.ValueOf(out)
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	return result(eng.LoadDocument(args[0].String()))
}

func importDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	return result(eng.ImportDocument(args[0].String()))
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	eng.LoadSampleDocument()
	return ok()
}

func addElement(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing element JSON")
	}
	return result(eng.AddElement(args[0].String()))
}

// createElement(type, x, y, width, height, overridesJSON?) → {id} | {error}
func createElement(this js.Value, args []js.Value) any {
	if len(args) < 5 {
		return fail("createElement needs type, x, y, width, height")
	}
	overrides := ""
	if len(args) > 5 && args[5].Type() == js.TypeString {
		overrides = args[5].String()
	}

	id, err := eng.CreateElement(args[0].String(), args[1].Float(), args[2].Float(), args[3].Float(), args[4].Float(), overrides)
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]any{"id": id})
}

func updateElement(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return fail("updateElement needs id and patch JSON")
	}
	return result(eng.UpdateElement(args[0].String(), args[1].String()))
}

func normalizeElement(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing element id")
	}
	return result(eng.NormalizeElement(args[0].String()))
}

func resizeElement(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return fail("resizeElement needs id, handle, dx, dy")
	}
	return result(eng.ResizeElement(args[0].String(), args[1].String(), args[2].Float(), args[3].Float()))
}

func deleteElements(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.DeleteElements(stringsOf(args[0]))
	return nil
}

func deleteSelected(this js.Value, args []js.Value) any {
	eng.DeleteSelected()
	return nil
}

func setSelection(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.SetSelection(stringsOf(args[0]))
	return nil
}

func selectInRect(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return stringsToJS(nil)
	}
	return stringsToJS(eng.SelectInRect(args[0].Float(), args[1].Float(), args[2].Float(), args[3].Float()))
}

func setTool(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing tool")
	}
	return result(eng.SetTool(args[0].String()))
}

func setStrokeColor(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetStrokeColor(args[0].String())
	return result(err)
}

func setBackgroundColor(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetBackgroundColor(args[0].String())
	return result(err)
}

func setFillStyle(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetFillStyle(element.FillStyle(args[0].String()))
	return result(err)
}

func setStrokeWidth(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetStrokeWidth(args[0].Int())
	return result(err)
}

func setStrokeStyle(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetStrokeStyle(element.StrokeStyle(args[0].String()))
	return result(err)
}

func setRoughness(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetRoughness(args[0].Int())
	return result(err)
}

func setOpacity(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetOpacity(args[0].Float())
	return result(err)
}

func setFontSize(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetFontSize(args[0].Float())
	return result(err)
}

func setFontFamily(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return fail("missing value")
	}
	_, err := eng.Store().SetFontFamily(element.FontFamily(args[0].String()))
	return result(err)
}

func setZoom(this js.Value, args []js.Value) any {
	if len(args) > 0 {
		eng.Store().SetZoom(args[0].Float())
	}
	return nil
}

func setOffset(this js.Value, args []js.Value) any {
	if len(args) > 1 {
		eng.Store().SetOffset(args[0].Float(), args[1].Float())
	}
	return nil
}

func undo(this js.Value, args []js.Value) any {
	eng.Undo()
	return nil
}

func redo(this js.Value, args []js.Value) any {
	eng.Redo()
	return nil
}

func clearCanvas(this js.Value, args []js.Value) any {
	eng.Store().ClearCanvas()
	return nil
}

func toggleGrid(this js.Value, args []js.Value) any {
	eng.Store().ToggleGrid()
	return nil
}

func toggleDarkMode(this js.Value, args []js.Value) any {
	eng.Store().ToggleDarkMode()
	return nil
}

// subscribe(callback) calls callback with the state JSON after every change
// and returns an unsubscribe function.
func subscribe(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	callback := args[0]
	unsubscribe := eng.Store().Subscribe(func(st store.State) {
		data, err := json.Marshal(st)
		if err != nil {
			return
		}
		callback.Invoke(string(data))
	})

	var release js.Func
	release = js.FuncOf(func(this js.Value, args []js.Value) any {
		unsubscribe()
		release.Release()
		return nil
	})
	return release
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) any {
	return eng.Render()
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return ""
	}
	return eng.HitTest(args[0].Float(), args[1].Float())
}

// handleAt(id, x, y) → handle name or ""
func handleAt(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return ""
	}
	return eng.HandleAt(args[0].String(), args[1].Float(), args[2].Float())
}

// eraseAt(x, y) → ids removed
func eraseAt(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return stringsToJS(nil)
	}
	return stringsToJS(eng.EraseAt(args[0].Float(), args[1].Float()))
}

func getDocument(this js.Value, args []js.Value) any {
	return eng.GetDocument()
}

func getState(this js.Value, args []js.Value) any {
	return eng.GetState()
}

func canUndo(this js.Value, args []js.Value) any {
	return eng.CanUndo()
}

func canRedo(this js.Value, args []js.Value) any {
	return eng.CanRedo()
}
