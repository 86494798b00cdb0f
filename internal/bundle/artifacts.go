package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Artifact is a file of a written bundle
type Artifact struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Size int64  `json:"size" yaml:"size"`
}

// Artifacts lists the bundle files currently on disk, in upload order:
// metadata, script, then the module if there is one. A missing output
// directory yields an empty list.
func (b *Bundle) Artifacts() ([]Artifact, error) {
	paths := []string{b.MetadataPath(), b.ScriptPath(), b.WasmPath()}
	names := []string{metadataFile, scriptFile, wasmFile}

	artifacts := make([]Artifact, 0, len(paths))
	for i, path := range paths {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to stat %s: %w", ErrIO, path, err)
		}
		artifacts = append(artifacts, Artifact{
			Name: names[i],
			Path: path,
			Size: info.Size(),
		})
	}
	return artifacts, nil
}
