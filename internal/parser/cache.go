package parser

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/lang"
)

// Entry is one AST Cache record: a parsed tree, its source bytes, and the
// language it was parsed as. The cache never closes its trees, so the root
// node and source stay valid for as long as the entry is held.
type Entry struct {
	Tree     *tree_sitter.Tree
	Source   []byte
	Language lang.Language
}

// Root returns the entry's root AST node.
func (e *Entry) Root() *tree_sitter.Node {
	if e.Tree == nil {
		return nil
	}
	return e.Tree.RootNode()
}

// Cache is the AST cache: a mapping from file path to (root node, source
// bytes, language), populated once during Phase 1 and read many times during
// Phase 2. Insert is safe for concurrent use (many discovery workers may
// populate it); once Freeze is called, reads need no synchronization.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	frozen  bool
}

// NewCache constructs an empty AST Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// Insert parses source under the given language and stores the result under
// path. It is an error to insert the same path twice; the cache is
// insert-once.
func (c *Cache) Insert(path string, l lang.Language, source []byte) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		return nil, fmt.Errorf("ast cache: insert after freeze: %s", path)
	}
	if _, exists := c.entries[path]; exists {
		return nil, fmt.Errorf("ast cache: duplicate insert for %s", path)
	}
	tree, err := Parse(l, source)
	if err != nil {
		return nil, fmt.Errorf("ast cache: parse %s: %w", path, err)
	}
	entry := &Entry{Tree: tree, Source: source, Language: l}
	c.entries[path] = entry
	return entry, nil
}

// Freeze marks the cache read-only. Called once Phase 1 completes.
func (c *Cache) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Get returns the cached entry for path, if any.
func (c *Cache) Get(path string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path]
	return e, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Paths returns every cached file path, in no particular order.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	return paths
}
