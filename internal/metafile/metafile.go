// Package metafile reads the module lists chunk planning runs over: esbuild
// metafiles or plain newline-separated module ids.
package metafile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Metafile represents the esbuild metafile JSON structure.
type Metafile struct {
	Inputs  map[string]Input  `json:"inputs"`
	Outputs map[string]Output `json:"outputs,omitempty"`
}

// Input represents an input file in the metafile.
type Input struct {
	Bytes   int64    `json:"bytes"`
	Imports []Import `json:"imports,omitempty"`
	Format  string   `json:"format,omitempty"`
}

// Import represents an import in the metafile.
type Import struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// Output represents an output file in the metafile.
type Output struct {
	Bytes      int64  `json:"bytes"`
	EntryPoint string `json:"entryPoint,omitempty"`
}

// Module is a module id with its source size.
type Module struct {
	ID    string
	Bytes int64
}

// Load parses an esbuild metafile.
func Load(r io.Reader) (*Metafile, error) {
	var mf Metafile
	if err := json.NewDecoder(r).Decode(&mf); err != nil {
		return nil, fmt.Errorf("parsing metafile: %w", err)
	}
	if mf.Inputs == nil {
		return nil, fmt.Errorf("parsing metafile: no inputs")
	}
	return &mf, nil
}

// Modules returns the metafile inputs sorted by id.
func (mf *Metafile) Modules() []Module {
	modules := make([]Module, 0, len(mf.Inputs))
	for id, in := range mf.Inputs {
		modules = append(modules, Module{ID: id, Bytes: in.Bytes})
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].ID < modules[j].ID })
	return modules
}

// ExternalImports returns the distinct external import paths, sorted.
func (mf *Metafile) ExternalImports() []string {
	seen := make(map[string]bool)
	for _, in := range mf.Inputs {
		for _, imp := range in.Imports {
			if imp.External {
				seen[imp.Path] = true
			}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ReadIDs reads one module id per line. Blank lines and lines starting with
// '#' are skipped; duplicates are kept once. Sizes are zero.
func ReadIDs(r io.Reader) ([]Module, error) {
	var modules []Module
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		modules = append(modules, Module{ID: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading module ids: %w", err)
	}
	return modules, nil
}
