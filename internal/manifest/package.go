// Package manifest reads the npm package manifest of a worker project.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the manifest file looked up in the project directory
const FileName = "package.json"

// Package is the subset of package.json the build cares about
type Package struct {
	Name string `json:"name"`
	Main string `json:"main"`
}

// Load reads and validates package.json from dir
func Load(dir string) (*Package, error) {
	path := filepath.Join(dir, FileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s not found in %s: a worker without webpack.config.js needs one to find its entry", FileName, dir)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if pkg.Main == "" {
		return nil, fmt.Errorf("the \"main\" key in %s is required to infer the worker entry", path)
	}

	return &pkg, nil
}

// EntryPath returns the absolute path of the package's main file, resolved
// against dir.
func (p *Package) EntryPath(dir string) (string, error) {
	if filepath.IsAbs(p.Main) {
		return filepath.Clean(p.Main), nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return filepath.Join(abs, p.Main), nil
}
