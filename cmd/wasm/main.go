//go:build js && wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"syscall/js"
	"time"

	"github.com/inamate/photoedit/internal/asset"
	"github.com/inamate/photoedit/internal/document"
	"github.com/inamate/photoedit/internal/engine"
	"github.com/inamate/photoedit/internal/render"
	"github.com/inamate/photoedit/internal/selection"
	"github.com/inamate/photoedit/internal/store"
)

var (
	eng    *engine.Engine
	loader *asset.Loader

	// Session-wide listeners, registered once and released by dispose.
	keydown   js.Func
	listening bool
)

func main() {
	fonts, err := render.NewFontBook()
	if err != nil {
		slog.Error("load fonts", "error", err)
		return
	}

	origin := js.Global().Get("location").Get("origin").String()
	loader = asset.NewLoader("", 15*time.Second, asset.WithAssetBaseURL(origin))

	var opts []store.Option
	if js.Global().Get("photoeditDevSeed").Truthy() {
		opts = append(opts, store.WithWidgets(document.NewSampleWidgets("dev")...))
	}
	eng = engine.NewEngine(store.New(loader, opts...), fonts, engine.WithExportHandler(requestExport))

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	set(api, "apply", apply)
	set(api, "registerBlob", registerBlob)
	set(api, "setContainer", setContainer)
	set(api, "pointerDown", pointerDown)
	set(api, "pointerMove", pointerMove)
	set(api, "pointerUp", pointerUp)
	set(api, "click", click)
	set(api, "outsideClick", outsideClick)
	set(api, "flush", flush)
	set(api, "transformMove", transformMove)
	set(api, "transformEnd", transformEnd)
	set(api, "cropPress", cropPress)
	set(api, "cropMove", cropMove)
	set(api, "cropRelease", cropRelease)
	set(api, "export", exportImage)
	set(api, "subscribe", subscribe)
	set(api, "dispose", dispose)

	// --- Queries (frontend ← backend) ---
	set(api, "render", renderCommands)
	set(api, "hitTest", hitTest)
	set(api, "getSelectionBounds", getSelectionBounds)
	set(api, "getState", getState)
	set(api, "getSelection", getSelection)
	set(api, "getGuides", getGuides)
	set(api, "getCropFrame", getCropFrame)

	attachKeyboard()

	js.Global().Set("photoeditEngine", api)
	js.Global().Set("photoeditWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func set(api js.Value, name string, fn func(this js.Value, args []js.Value) interface{}) {
	api.Set(name, js.FuncOf(fn))
}

func errorValue(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

// promise runs fn off the event loop; image fetches need the loop to make
// progress.
func promise(fn func() (interface{}, error)) js.Value {
	var handler js.Func
	handler = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		resolve, reject := args[0], args[1]
		go func() {
			defer handler.Release()
			v, err := fn()
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(v)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(handler)
}

// --- Keyboard ---

func attachKeyboard() {
	if listening {
		return
	}
	keydown = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		ev := args[0]
		consumed := eng.KeyDown(engine.KeyEvent{
			Key:         ev.Get("key").String(),
			Ctrl:        ev.Get("ctrlKey").Bool(),
			Meta:        ev.Get("metaKey").Bool(),
			Shift:       ev.Get("shiftKey").Bool(),
			Alt:         ev.Get("altKey").Bool(),
			InTextInput: inTextInput(),
		})
		if consumed {
			ev.Call("preventDefault")
		}
		return nil
	})
	js.Global().Call("addEventListener", "keydown", keydown)
	listening = true
}

func inTextInput() bool {
	el := js.Global().Get("document").Get("activeElement")
	if el.IsNull() || el.IsUndefined() {
		return false
	}
	switch strings.ToUpper(el.Get("tagName").String()) {
	case "INPUT", "TEXTAREA", "SELECT":
		return true
	}
	return el.Get("isContentEditable").Truthy()
}

// requestExport forwards Ctrl/Cmd+S to the page's onExport hook.
func requestExport() {
	api := js.Global().Get("photoeditEngine")
	if api.IsUndefined() {
		return
	}
	if cb := api.Get("onExport"); cb.Type() == js.TypeFunction {
		cb.Invoke()
	}
}

// --- Command Handlers ---

func apply(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorValue(errors.New("missing operation JSON"))
	}
	var op store.Operation
	if err := json.Unmarshal([]byte(args[0].String()), &op); err != nil {
		return errorValue(err)
	}
	return promise(func() (interface{}, error) {
		res, err := eng.Store().Apply(context.Background(), op)
		if err != nil {
			return nil, err
		}
		return js.ValueOf(map[string]interface{}{"widgetId": res.WidgetID}), nil
	})
}

func registerBlob(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("")
	}
	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])
	return js.ValueOf(loader.RegisterBlob(data))
}

func setContainer(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.Store().SetContainer(document.Container{Width: args[0].Float(), Height: args[1].Float()})
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerDown(args[0].Float(), args[1].Float())
	return nil
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerMove(args[0].Float(), args[1].Float())
	return nil
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	eng.PointerUp()
	// The marquee hides one tick later so the trailing click sees it.
	var hide js.Func
	hide = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		eng.Flush()
		hide.Release()
		return nil
	})
	js.Global().Call("setTimeout", hide, 0)
	return nil
}

func click(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	var mods selection.Modifiers
	if len(args) > 2 && args[2].Type() == js.TypeObject {
		m := args[2]
		mods = selection.Modifiers{
			Shift: m.Get("shiftKey").Truthy(),
			Ctrl:  m.Get("ctrlKey").Truthy(),
			Meta:  m.Get("metaKey").Truthy(),
			Alt:   m.Get("altKey").Truthy(),
		}
	}
	eng.Click(args[0].Float(), args[1].Float(), mods)
	return nil
}

func outsideClick(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.OutsideClick(args[0].String(), args[1].Bool())
	return nil
}

func flush(this js.Value, args []js.Value) interface{} {
	eng.Flush()
	return nil
}

func transformMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	var t document.Transform
	if err := json.Unmarshal([]byte(args[1].String()), &t); err != nil {
		return nil
	}
	eng.TransformMove(args[0].String(), t)
	return nil
}

func transformEnd(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.TransformEnd(args[0].String())
	return nil
}

func cropPress(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return errorValue(errors.New("missing handle and position"))
	}
	if err := eng.CropPress(args[0].String(), args[1].Float(), args[2].Float()); err != nil {
		return errorValue(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func cropMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.CropMove(args[0].Float(), args[1].Float())
	return nil
}

func cropRelease(this js.Value, args []js.Value) interface{} {
	crop, ok := eng.CropRelease()
	if !ok {
		return nil
	}
	data, _ := json.Marshal(crop)
	return js.ValueOf(string(data))
}

// exportImage resolves to {filename, data} where data is a Uint8Array.
// Failures resolve to nothing; the user can retry.
func exportImage(this js.Value, args []js.Value) interface{} {
	var req engine.ExportRequest
	if len(args) > 0 && args[0].Type() == js.TypeString {
		if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
			return errorValue(err)
		}
	}
	return promise(func() (interface{}, error) {
		var buf bytes.Buffer
		filename, err := eng.Export(&buf, req)
		if err != nil {
			slog.Warn("export failed", "error", err)
			return js.Null(), nil
		}
		data := js.Global().Get("Uint8Array").New(buf.Len())
		js.CopyBytesToJS(data, buf.Bytes())
		return js.ValueOf(map[string]interface{}{"filename": filename, "data": data}), nil
	})
}

// subscribe calls fn with the state JSON after every commit and returns the
// unsubscribe function.
func subscribe(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	fn := args[0]
	unsubscribe := eng.Store().Subscribe(func(st store.State) {
		data, _ := json.Marshal(st)
		fn.Invoke(string(data))
	})

	var off js.Func
	off = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		unsubscribe()
		off.Release()
		return nil
	})
	return off
}

// dispose tears down the session: the keyboard listener is removed and the
// engine closed.
func dispose(this js.Value, args []js.Value) interface{} {
	if listening {
		js.Global().Call("removeEventListener", "keydown", keydown)
		keydown.Release()
		listening = false
	}
	eng.Close()
	return nil
}

// --- Query Handlers ---

func renderCommands(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	x := args[0].Float()
	y := args[1].Float()
	return js.ValueOf(eng.HitTest(x, y))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelectionBounds())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetState())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelection())
}

func getGuides(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(eng.Guides())
	return js.ValueOf(string(data))
}

func getCropFrame(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(eng.CropFrame())
	return js.ValueOf(string(data))
}
