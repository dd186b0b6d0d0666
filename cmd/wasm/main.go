//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"syscall/js"

	"github.com/siteshift/siteshift/internal/document"
	"github.com/siteshift/siteshift/internal/engine"
	"github.com/siteshift/siteshift/internal/errors"
	"github.com/siteshift/siteshift/internal/job"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	api := js.Global().Get("Object").New()

	// --- Commands ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("apply", js.FuncOf(apply))
	api.Set("onDirty", js.FuncOf(onDirty))

	// --- Queries ---
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("getEntity", js.FuncOf(getEntity))
	api.Set("inspect", js.FuncOf(inspect))
	api.Set("diagnose", js.FuncOf(diagnose))

	js.Global().Set("siteshiftEngine", api)
	js.Global().Set("siteshiftWasmReady", js.ValueOf(true))

	select {}
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}

func encode(v any) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	if err := eng.LoadDocument(args[0].String()); err != nil {
		return fail(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	documentID := "doc_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		documentID = args[0].String()
	}
	eng.LoadSampleDocument(documentID)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// apply runs a JSON job and returns the result as JSON. Rolled back
// transactions still return their result.
func apply(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing job JSON"})
	}
	j, err := job.Parse([]byte(args[0].String()), job.FormatJSON)
	if err != nil {
		return fail(err)
	}
	req, err := j.Request()
	if err != nil {
		return fail(err)
	}
	res, err := eng.Apply(context.Background(), req)
	if res == nil {
		return fail(err)
	}
	return encode(res)
}

// onDirty registers a callback receiving each dirty event as JSON.
func onDirty(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	cb := args[0]
	eng.Subscribe(func(ev document.DirtyEvent) {
		data, _ := json.Marshal(ev)
		cb.Invoke(string(data))
	})
	return nil
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func getEntity(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	e, err := eng.Entity(args[0].String())
	if err != nil {
		return fail(err)
	}
	return encode(e)
}

func inspect(this js.Value, args []js.Value) interface{} {
	var f document.Filter
	if len(args) > 0 && args[0].Type() == js.TypeString {
		f.Categories = []string{args[0].String()}
	}
	reports, err := eng.Inspect(f)
	if err != nil {
		return fail(err)
	}
	return encode(reports)
}

func diagnose(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing job JSON"})
	}
	j, err := job.Parse([]byte(args[0].String()), job.FormatJSON)
	if err != nil {
		return fail(err)
	}
	t, err := j.Transform()
	if err != nil {
		return fail(err)
	}
	probe, err := j.ProbePoint()
	if err != nil {
		return fail(err)
	}
	return encode(t.Diagnose(probe))
}
