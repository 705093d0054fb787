//go:build js && wasm

package main

import (
	"encoding/json"
	"sync"
	"syscall/js"

	"github.com/inamate/keyframes/internal/document"
	"github.com/inamate/keyframes/internal/easing"
	"github.com/inamate/keyframes/internal/engine"
	"github.com/inamate/keyframes/internal/keyframe"
)

var (
	mu         sync.Mutex
	animations = map[string]*engine.Animation{}
	scheduler  = engine.NewScheduler(rafFrames{})
	compiler   = keyframe.NewCompiler(keyframe.Options{})
)

func main() {
	api := js.Global().Get("Object").New()

	// --- Compiler ---
	api.Set("compile", js.FuncOf(compile))
	api.Set("sampleFeature", js.FuncOf(sampleFeature))
	api.Set("easings", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		names := easing.Names()
		out := make([]interface{}, len(names))
		for i, n := range names {
			out[i] = n
		}
		return js.ValueOf(out)
	}))

	// --- Animations ---
	api.Set("create", js.FuncOf(create))
	api.Set("destroy", js.FuncOf(destroy))
	api.Set("play", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		a.Play()
		return nil
	})))
	api.Set("pause", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		a.Pause()
		return nil
	})))
	api.Set("stop", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		a.Stop()
		return nil
	})))
	api.Set("reset", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		a.Reset(len(args) > 0 && args[0].Truthy())
		return nil
	})))
	api.Set("setCurrentTime", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		if len(args) > 0 {
			a.SetCurrentTime(args[0].Float())
		}
		return nil
	})))
	api.Set("setCurrentDelta", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		if len(args) > 0 {
			a.SetCurrentDelta(args[0].Float())
		}
		return nil
	})))
	api.Set("setPlaybackRate", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		if len(args) > 0 {
			a.SetPlaybackRate(args[0].Float())
		}
		return nil
	})))
	api.Set("update", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		a.Update(len(args) > 0 && args[0].Truthy())
		return nil
	})))
	api.Set("getState", js.FuncOf(withAnimation(func(a *engine.Animation, args []js.Value) interface{} {
		return js.ValueOf(stateObject(a))
	})))
	api.Set("on", js.FuncOf(withAnimation(addListener)))
	api.Set("off", js.FuncOf(withAnimation(removeListener)))

	js.Global().Set("keyframes", api)
	js.Global().Set("keyframesWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// rafFrames drives the scheduler from requestAnimationFrame.
type rafFrames struct{}

func (rafFrames) RequestFrame(fn func()) func() {
	var cb js.Func
	cb = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		cb.Release()
		fn()
		return nil
	})
	handle := js.Global().Call("requestAnimationFrame", cb)
	return func() {
		js.Global().Call("cancelAnimationFrame", handle)
		cb.Release()
	}
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

// compile(featureJSON, resolution?, epsilon?) returns a keyframe document.
func compile(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing feature JSON"})
	}
	c := compiler
	if len(args) > 1 && args[1].Type() == js.TypeNumber && args[1].Int() > 0 {
		s := &keyframe.Smoothing{Resolution: args[1].Int()}
		if len(args) > 2 && args[2].Type() == js.TypeNumber {
			s.Epsilon = args[2].Float()
		}
		c = keyframe.NewCompiler(keyframe.Options{Smoothing: s})
	}

	track, err := c.Compile([]byte(args[0].String()))
	if err != nil {
		return errorResult(err)
	}
	data, err := json.Marshal(document.FromTrack("", "", track))
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{"document": string(data)})
}

func sampleFeature(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(document.SampleFeatureJSON()))
}

// create(documentJSON, manual?) builds an animation from a keyframe document
// and returns its ID. Manual animations advance only through update.
func create(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	doc, err := document.Decode([]byte(args[0].String()), document.FormatJSON)
	if err != nil {
		return errorResult(err)
	}
	a, err := engine.New(engine.ConfigFromTrack(doc.Track(), engine.Config{
		Duration:   1000,
		Scheduler:  scheduler,
		ManualMode: len(args) > 1 && args[1].Truthy(),
	}))
	if err != nil {
		return errorResult(err)
	}

	mu.Lock()
	animations[a.ID()] = a
	mu.Unlock()
	return js.ValueOf(map[string]interface{}{"id": a.ID()})
}

func destroy(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	mu.Lock()
	a, ok := animations[args[0].String()]
	delete(animations, args[0].String())
	mu.Unlock()
	if ok {
		a.Destroy()
	}
	return nil
}

// withAnimation resolves the animation ID in args[0] and passes the rest on.
func withAnimation(fn func(a *engine.Animation, args []js.Value) interface{}) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 {
			return nil
		}
		mu.Lock()
		a, ok := animations[args[0].String()]
		mu.Unlock()
		if !ok {
			return js.ValueOf(map[string]interface{}{"error": "unknown animation"})
		}
		return fn(a, args[1:])
	}
}

// on(id, type, callback) returns a listener ID for off.
func addListener(a *engine.Animation, args []js.Value) interface{} {
	if len(args) < 2 || args[1].Type() != js.TypeFunction {
		return js.ValueOf(0)
	}
	cb := args[1]
	id := a.AddEventListener(engine.EventType(args[0].String()), func(ev engine.Event) {
		cb.Invoke(js.ValueOf(eventObject(ev)))
	})
	return js.ValueOf(float64(id))
}

func removeListener(a *engine.Animation, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(a.RemoveEventListener(engine.EventType(args[0].String()), engine.ListenerID(args[1].Int())))
}

func propsObject(props map[string]float64) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func stateObject(a *engine.Animation) map[string]interface{} {
	return map[string]interface{}{
		"id":           a.ID(),
		"state":        a.State().String(),
		"currentTime":  a.CurrentTime(),
		"currentDelta": a.CurrentDelta(),
		"playbackRate": a.PlaybackRate(),
		"iteration":    a.Iteration(),
		"duration":     a.Duration(),
		"iterations":   a.Iterations(),
		"manualMode":   a.ManualMode(),
		"props":        propsObject(a.Props()),
	}
}

func eventObject(ev engine.Event) map[string]interface{} {
	obj := map[string]interface{}{
		"type":          string(ev.Type),
		"currentTime":   ev.CurrentTime,
		"currentDelta":  ev.CurrentDelta,
		"playbackRate":  ev.PlaybackRate,
		"iteration":     ev.Iteration,
		"props":         propsObject(ev.Props),
		"previousProps": propsObject(ev.PreviousProps),
	}
	if ev.Keyframe != nil {
		obj["keyframeDelta"] = ev.Keyframe.Delta
	}
	return obj
}
