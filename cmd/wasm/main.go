//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/sketchcode/sketchcode/internal/document"
	"github.com/sketchcode/sketchcode/internal/engine"
	"github.com/sketchcode/sketchcode/internal/export"
	"github.com/sketchcode/sketchcode/internal/geometry"
	"github.com/sketchcode/sketchcode/internal/templates"
)

var eng *engine.Engine

func main() {
	eng = engine.New(
		engine.WithRasterizer(export.NewRasterizer(2)),
		engine.WithHooks(engine.Hooks{
			Save:             func(s document.Scene) { callHost("onSave", sceneJSON(s)) },
			ToggleShortcuts:  func() { callHost("onToggleShortcuts") },
			ToggleProperties: func() { callHost("onToggleProperties") },
			ToggleCode:       func() { callHost("onToggleCode") },
			Commit:           func(s document.Scene) { callHost("onCommit", sceneJSON(s)) },
		}),
	)
	eng.Activate()

	api := js.Global().Get("Object").New()

	// --- Controller ---
	api.Set("loadScene", js.FuncOf(loadScene))
	api.Set("loadSampleScene", js.FuncOf(loadSampleScene))
	api.Set("getScene", js.FuncOf(getScene))
	api.Set("clearScene", js.FuncOf(clearScene))
	api.Set("insertIntoScene", js.FuncOf(insertIntoScene))
	api.Set("insertTemplate", js.FuncOf(insertTemplate))
	api.Set("exportRaster", js.FuncOf(exportRaster))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("setStyle", js.FuncOf(setStyle))
	api.Set("setZoom", js.FuncOf(setZoom))
	api.Set("toggleGrid", js.FuncOf(toggleGrid))
	api.Set("toggleSnap", js.FuncOf(toggleSnap))
	api.Set("setContainer", js.FuncOf(setContainer))
	api.Set("setOrigin", js.FuncOf(setOrigin))

	// --- Input ---
	api.Set("pointerDown", js.FuncOf(pointerDown))
	api.Set("pointerMove", js.FuncOf(pointerMove))
	api.Set("pointerUp", js.FuncOf(pointerUp))
	api.Set("pointerLeave", js.FuncOf(pointerLeave))
	api.Set("wheel", js.FuncOf(wheel))
	api.Set("keyDown", js.FuncOf(keyDown))
	api.Set("keyUp", js.FuncOf(keyUp))
	api.Set("openText", js.FuncOf(openText))
	api.Set("setTextValue", js.FuncOf(setTextValue))
	api.Set("commitText", js.FuncOf(commitText))
	api.Set("cancelText", js.FuncOf(cancelText))

	// --- Queries ---
	api.Set("getStatus", js.FuncOf(getStatus))
	api.Set("getFrame", js.FuncOf(getFrame))
	api.Set("getRevision", js.FuncOf(getRevision))

	js.Global().Set("sketchcodeEngine", api)
	js.Global().Set("sketchcodeWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// callHost invokes an optional callback on the page's sketchcodeHost object.
func callHost(name string, args ...any) {
	host := js.Global().Get("sketchcodeHost")
	if host.IsUndefined() || host.IsNull() {
		return
	}
	if fn := host.Get(name); fn.Type() == js.TypeFunction {
		fn.Invoke(args...)
	}
}

func errorResult(err error) any {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func okResult() any {
	return js.ValueOf(map[string]any{"ok": true})
}

func toJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(string(data))
}

func sceneJSON(s document.Scene) string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func point(args []js.Value) (geometry.Point, bool) {
	if len(args) < 2 {
		return geometry.Point{}, false
	}
	return geometry.Point{X: args[0].Float(), Y: args[1].Float()}, true
}

// --- Controller handlers ---

func loadScene(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing scene JSON"})
	}
	scene, err := document.Parse([]byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	eng.Load(scene)
	return okResult()
}

func loadSampleScene(this js.Value, args []js.Value) any {
	eng.Load(document.NewSampleScene())
	return okResult()
}

func getScene(this js.Value, args []js.Value) any {
	return js.ValueOf(sceneJSON(eng.SceneSnapshot()))
}

func clearScene(this js.Value, args []js.Value) any {
	eng.ClearScene()
	return nil
}

func insertIntoScene(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing scene JSON"})
	}
	partial, err := document.Parse([]byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	label := ""
	if len(args) > 1 && args[1].Type() == js.TypeString {
		label = args[1].String()
	}
	return toJSON(eng.InsertIntoScene(partial, label))
}

func insertTemplate(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing template id"})
	}
	tpl, err := templates.Builtin().Get(args[0].String())
	if err != nil {
		return errorResult(err)
	}
	return toJSON(eng.InsertIntoScene(tpl.Scene(), tpl.Name))
}

func exportRaster(this js.Value, args []js.Value) any {
	mime, quality := "image/png", 1.0
	if len(args) > 0 && args[0].Type() == js.TypeString {
		mime = args[0].String()
	}
	if len(args) > 1 && args[1].Type() == js.TypeNumber {
		quality = args[1].Float()
	}
	url, err := eng.ExportRaster(mime, quality)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(url)
}

func undo(this js.Value, args []js.Value) any {
	eng.Undo()
	return nil
}

func redo(this js.Value, args []js.Value) any {
	eng.Redo()
	return nil
}

func setTool(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	t, err := engine.ParseTool(args[0].String())
	if err != nil {
		return errorResult(err)
	}
	eng.SetTool(t)
	return okResult()
}

func setStyle(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	var style engine.ToolStyle
	if err := json.Unmarshal([]byte(args[0].String()), &style); err != nil {
		return errorResult(err)
	}
	eng.SetStyle(style)
	return okResult()
}

func setZoom(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	eng.SetZoom(args[0].Float())
	return nil
}

func toggleGrid(this js.Value, args []js.Value) any {
	eng.ToggleGrid()
	return nil
}

func toggleSnap(this js.Value, args []js.Value) any {
	eng.ToggleSnap()
	return nil
}

func setContainer(this js.Value, args []js.Value) any {
	if p, ok := point(args); ok {
		eng.SetContainer(p.X, p.Y)
	}
	return nil
}

func setOrigin(this js.Value, args []js.Value) any {
	if p, ok := point(args); ok {
		eng.SetOrigin(p.X, p.Y)
	}
	return nil
}

// --- Input handlers ---

func pointerDown(this js.Value, args []js.Value) any {
	if p, ok := point(args); ok {
		eng.PointerDown(p)
	}
	return nil
}

func pointerMove(this js.Value, args []js.Value) any {
	if p, ok := point(args); ok {
		eng.PointerMove(p)
	}
	return nil
}

func pointerUp(this js.Value, args []js.Value) any {
	eng.PointerUp()
	return nil
}

func pointerLeave(this js.Value, args []js.Value) any {
	eng.PointerLeave()
	return nil
}

func wheel(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Wheel(args[0].Float(), args[1].Bool()))
}

func keyEvent(args []js.Value) (engine.KeyEvent, bool) {
	var ev engine.KeyEvent
	if len(args) < 1 {
		return ev, false
	}
	if err := json.Unmarshal([]byte(args[0].String()), &ev); err != nil {
		return ev, false
	}
	return ev, true
}

func keyDown(this js.Value, args []js.Value) any {
	ev, ok := keyEvent(args)
	if !ok {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.KeyDown(ev))
}

func keyUp(this js.Value, args []js.Value) any {
	if ev, ok := keyEvent(args); ok {
		eng.KeyUp(ev)
	}
	return nil
}

func openText(this js.Value, args []js.Value) any {
	if p, ok := point(args); ok {
		eng.OpenText(p)
	}
	return nil
}

func setTextValue(this js.Value, args []js.Value) any {
	if len(args) > 0 {
		eng.SetTextValue(args[0].String())
	}
	return nil
}

func commitText(this js.Value, args []js.Value) any {
	eng.CommitText()
	return nil
}

func cancelText(this js.Value, args []js.Value) any {
	eng.CancelText()
	return nil
}

// --- Query handlers ---

func getStatus(this js.Value, args []js.Value) any {
	return toJSON(eng.Status())
}

func getFrame(this js.Value, args []js.Value) any {
	return toJSON(eng.Frame())
}

func getRevision(this js.Value, args []js.Value) any {
	return js.ValueOf(float64(eng.Revision()))
}
