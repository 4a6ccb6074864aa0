// Package plan groups a module graph into the chunks a production build
// would emit.
package plan

import (
	"fmt"
	"sort"
	"strings"

	"chunksplit/chunk"
	"chunksplit/internal/cache"
	"chunksplit/internal/metafile"
	"chunksplit/naming"
)

// DefaultSizeLimit is the chunk size above which a warning is raised.
const DefaultSizeLimit = 1000 * 1024

// ClassifyFunc returns the chunk for a module id.
type ClassifyFunc func(id string) (chunk.Result, error)

// Direct classifies with c on every call.
func Direct(c *chunk.Classifier, mode chunk.Mode) ClassifyFunc {
	return func(id string) (chunk.Result, error) {
		return c.Classify(id, mode), nil
	}
}

// Cached classifies through the SQLite cache.
func Cached(store *cache.Cache, c *chunk.Classifier, mode chunk.Mode) ClassifyFunc {
	return func(id string) (chunk.Result, error) {
		return store.GetOrClassify(c, mode, id)
	}
}

// Options tunes plan building.
type Options struct {
	// SizeLimit in bytes; zero means DefaultSizeLimit.
	SizeLimit int64
}

// Chunk is one named output bundle.
type Chunk struct {
	Name      string   `json:"name"`
	FileName  string   `json:"fileName"`
	Modules   []string `json:"modules"`
	Bytes     int64    `json:"bytes"`
	OverLimit bool     `json:"overLimit,omitempty"`
}

// Plan is the chunk assignment for a set of modules.
type Plan struct {
	Chunks        []Chunk  `json:"chunks"`
	Deferred      []string `json:"deferred"`
	DeferredBytes int64    `json:"deferredBytes"`
	TotalBytes    int64    `json:"totalBytes"`
	SizeLimit     int64    `json:"sizeLimit"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Build classifies every module and groups the results. Chunks are sorted by
// name and their modules by id, so equal inputs give identical plans.
func Build(modules []metafile.Module, classify ClassifyFunc, opts Options) (*Plan, error) {
	limit := opts.SizeLimit
	if limit <= 0 {
		limit = DefaultSizeLimit
	}

	p := &Plan{SizeLimit: limit, Deferred: []string{}}
	byName := make(map[string]*Chunk)
	seen := make(map[string]bool, len(modules))

	for _, m := range modules {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true

		res, err := classify(m.ID)
		if err != nil {
			return nil, fmt.Errorf("classifying %s: %w", m.ID, err)
		}
		p.TotalBytes += m.Bytes

		if !res.OK {
			p.Deferred = append(p.Deferred, m.ID)
			p.DeferredBytes += m.Bytes
			continue
		}

		c, ok := byName[res.Name]
		if !ok {
			c = &Chunk{Name: res.Name}
			byName[res.Name] = c
		}
		c.Modules = append(c.Modules, m.ID)
		c.Bytes += m.Bytes
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := byName[name]
		sort.Strings(c.Modules)
		c.FileName = naming.ChunkFile(c.Name, []byte(strings.Join(c.Modules, "\n")))
		if c.Bytes > limit {
			c.OverLimit = true
			p.Warnings = append(p.Warnings, fmt.Sprintf(
				"chunk %s is %d KiB, over the %d KiB limit", c.Name, c.Bytes/1024, limit/1024))
		}
		p.Chunks = append(p.Chunks, *c)
	}
	sort.Strings(p.Deferred)

	return p, nil
}

// Chunk returns the chunk with the given name, or nil.
func (p *Plan) Chunk(name string) *Chunk {
	i := sort.Search(len(p.Chunks), func(i int) bool { return p.Chunks[i].Name >= name })
	if i < len(p.Chunks) && p.Chunks[i].Name == name {
		return &p.Chunks[i]
	}
	return nil
}

// Assignments maps every chunked module id to its chunk name. Deferred
// modules are omitted.
func (p *Plan) Assignments() map[string]string {
	out := make(map[string]string)
	for _, c := range p.Chunks {
		for _, id := range c.Modules {
			out[id] = c.Name
		}
	}
	return out
}

// Modules returns the number of planned modules, chunked and deferred.
func (p *Plan) Modules() int {
	n := len(p.Deferred)
	for _, c := range p.Chunks {
		n += len(c.Modules)
	}
	return n
}
