package bundle

import (
	"encoding/json"
	"fmt"
)

// Output is the result wrangler-js writes to the file passed with
// --output-file once it has finished bundling. Field names are a wire
// contract with the external tool and must not change.
type Output struct {
	// Wasm is the compiled WebAssembly module, nil when the project has none
	Wasm *string `json:"wasm"`

	// WasmName is the name webpack uses to fetch the module at runtime
	WasmName string `json:"wasm_name"`

	// Script is the bundled worker source
	Script string `json:"script"`

	// DistToClean is the webpack dist directory, removed once the bundle is written
	DistToClean string `json:"dist_to_clean"`

	WasmSize   float64 `json:"wasm_size"`
	ScriptSize float64 `json:"script_size"`
}

// HasWasm reports whether the build produced a WebAssembly module.
// Every wasm-dependent decision in the bundle is derived from this.
func (o *Output) HasWasm() bool {
	return o.Wasm != nil
}

// rawOutput mirrors Output with pointers so missing fields can be told apart
// from zero values.
type rawOutput struct {
	Wasm        *string  `json:"wasm"`
	WasmName    *string  `json:"wasm_name"`
	Script      *string  `json:"script"`
	DistToClean *string  `json:"dist_to_clean"`
	WasmSize    *float64 `json:"wasm_size"`
	ScriptSize  *float64 `json:"script_size"`
}

// ParseOutput decodes the wrangler-js result payload. All fields except
// "wasm" are required; "wasm" may be null or absent.
func ParseOutput(data []byte) (*Output, error) {
	var raw rawOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode wrangler-js output: %w", err)
	}

	missing := func(name string) error {
		return fmt.Errorf("wrangler-js output is missing field %q", name)
	}
	switch {
	case raw.WasmName == nil:
		return nil, missing("wasm_name")
	case raw.Script == nil:
		return nil, missing("script")
	case raw.DistToClean == nil:
		return nil, missing("dist_to_clean")
	case raw.WasmSize == nil:
		return nil, missing("wasm_size")
	case raw.ScriptSize == nil:
		return nil, missing("script_size")
	}

	return &Output{
		Wasm:        raw.Wasm,
		WasmName:    *raw.WasmName,
		Script:      *raw.Script,
		DistToClean: *raw.DistToClean,
		WasmSize:    *raw.WasmSize,
		ScriptSize:  *raw.ScriptSize,
	}, nil
}
