package bundle

import (
	"encoding/json"
	"fmt"
)

// windowPrologue is injected at the top of every worker. Code produced by
// webpack expects a browser-like global called window.
const windowPrologue = `
const window = this;
`

// wasmPrologueTemplate polyfills fetch so webpack's wasm loader gets the
// module from its binding instead of going to the network.
// Substitutions: module name (JS string literal), binding identifier.
const wasmPrologueTemplate = `
const oldFetch = fetch;
function fetch(name) {
  if (name === %s) {
    return Promise.resolve({
      arrayBuffer() {
        return %s; // defined in bindings
      }
    });
  }
  return oldFetch(name);
}
`

// Prologue returns the code placed before every bundled script.
func Prologue() string {
	return windowPrologue
}

// WasmPrologue returns the fetch polyfill serving the module named name
// from binding.
func WasmPrologue(name, binding string) string {
	quoted, _ := json.Marshal(name) // marshalling a string cannot fail
	return fmt.Sprintf(wasmPrologueTemplate, quoted, binding)
}

// ComposeScript builds the final worker source for out: the window prologue,
// the fetch polyfill when a module is present, then the bundled script.
func ComposeScript(out *Output) string {
	script := Prologue()
	if out.HasWasm() {
		script += WasmPrologue(out.WasmName, WasmBinding)
	}
	return script + out.Script
}
