package bundle

import "encoding/json"

// WasmBinding is the name under which the module is bound to the worker.
// It is fixed; the polyfill in WasmPrologue references it as a global.
const WasmBinding = "wasmprogram"

// Metadata describes the parts of the worker upload and its bindings.
type Metadata struct {
	BodyPart string   `json:"body_part"`
	Binding  *Binding `json:"binding,omitempty"`
}

// Binding associates an upload part with a global name in the worker.
type Binding struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Part string `json:"part"`
}

// NewMetadata returns the metadata for out. A wasm_module binding is added
// exactly when out carries a module.
func NewMetadata(out *Output) Metadata {
	m := Metadata{BodyPart: "script"}
	if out.HasWasm() {
		m.Binding = &Binding{
			Name: WasmBinding,
			Type: "wasm_module",
			Part: WasmBinding,
		}
	}
	return m
}

// MarshalMetadata renders the metadata.json body for out.
func MarshalMetadata(out *Output) ([]byte, error) {
	return json.Marshal(NewMetadata(out))
}
