// Package diag accumulates file-keyed diagnostics parsed from the build
// tool's embedded DIAGNOSTICS payloads.
package diag

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Severity values follow the editor diagnostic convention: lower is
// more severe, 0 is an error.
const (
	SeverityError       = 0
	SeverityWarning     = 1
	SeverityInformation = 2
	SeverityHint        = 3
)

// Entry is one diagnostic record. Range is kept opaque: the build tool
// emits it in the consumer's native shape and it is passed through
// unreinterpreted.
type Entry struct {
	Severity int             `json:"severity"`
	Message  string          `json:"message"`
	Range    json.RawMessage `json:"range,omitempty"`
}

// Batch maps a file path to its diagnostic entries, as decoded from one
// DIAGNOSTICS line.
type Batch map[string][]Entry

// Collection is the surface diagnostics are applied to.
type Collection interface {
	// Clear removes all diagnostics for all files.
	Clear()
	// Set replaces the diagnostic set for one file.
	Set(path string, entries []Entry)
}

// Sink routes diagnostics batches into a Collection. An optional list of
// doublestar glob patterns restricts which file paths are applied.
type Sink struct {
	coll    Collection
	include []string
}

// NewSink returns a sink writing into coll. If include is non-empty, only
// paths matching at least one pattern are applied.
func NewSink(coll Collection, include []string) *Sink {
	return &Sink{coll: coll, include: include}
}

// Apply replaces each file's diagnostic set with the batch's entries.
// Replacement, not merge: stale diagnostics from a previous build of the
// same file must not linger.
func (s *Sink) Apply(batch Batch) {
	for path, entries := range batch {
		if !s.match(path) {
			continue
		}
		s.coll.Set(path, entries)
	}
}

// ClearAll drops every stored diagnostic. Called at the start of each
// command invocation.
func (s *Sink) ClearAll() {
	s.coll.Clear()
}

func (s *Sink) match(path string) bool {
	if len(s.include) == 0 {
		return true
	}
	for _, pattern := range s.include {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// MemoryCollection is an in-memory Collection, used by tests and by the
// CLI to summarize diagnostics after a run.
type MemoryCollection struct {
	mu    sync.Mutex
	files map[string][]Entry
}

// NewMemoryCollection returns an empty collection.
func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{files: make(map[string][]Entry)}
}

func (c *MemoryCollection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = make(map[string][]Entry)
}

func (c *MemoryCollection) Set(path string, entries []Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = entries
}

// Get returns the entries stored for path.
func (c *MemoryCollection) Get(path string) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[path]
}

// Files returns the sorted list of paths that currently have diagnostics.
func (c *MemoryCollection) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Count returns the total number of stored entries.
func (c *MemoryCollection) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, entries := range c.files {
		n += len(entries)
	}
	return n
}
