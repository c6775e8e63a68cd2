// Package pipeline implements the two-phase indexing orchestrator: Phase 1
// parses every discovered file, building a frozen symbol registry and AST
// cache; Phase 2 runs per-file Kotlin type resolution, variable analysis and
// call resolution, then emits the graph. Discovery is one sequential walk;
// parsing and extraction run in a bounded worker pool, lightweight per-file
// metadata is merged sequentially,
// and all emission happens within one transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/codegraph/kotlingraph/internal/discover"
	"github.com/codegraph/kotlingraph/internal/emit"
	"github.com/codegraph/kotlingraph/internal/extract"
	"github.com/codegraph/kotlingraph/internal/imports"
	"github.com/codegraph/kotlingraph/internal/kotlin"
	"github.com/codegraph/kotlingraph/internal/lang"
	"github.com/codegraph/kotlingraph/internal/parser"
	"github.com/codegraph/kotlingraph/internal/registry"
	"github.com/codegraph/kotlingraph/internal/store"
)

// Pipeline orchestrates the two-phase indexing of one repository.
type Pipeline struct {
	Store       *store.Store
	RepoPath    string
	ProjectName string

	// ExtraIgnore carries additional glob patterns from a repository's
	// .codegraph.yaml (internal/config), layered on top of
	// internal/discover's built-in ignore rules.
	ExtraIgnore []string
}

// New constructs a Pipeline for repoPath with a path-derived project name.
func New(s *store.Store, repoPath string) *Pipeline {
	return &Pipeline{Store: s, RepoPath: repoPath, ProjectName: ProjectNameFromPath(repoPath)}
}

// ProjectNameFromPath derives a unique project name from an absolute path
// by replacing path separators with dashes and trimming the leading dash.
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.TrimLeft(strings.ReplaceAll(cleaned, "/", "-"), "-")
	if name == "" {
		return "root"
	}
	return name
}

// fileResult is one Phase 1 worker's output for a single discovered file.
// The AST itself lives in the shared, concurrency-safe Cache; this struct
// only carries what the single-threaded merge step still needs.
type fileResult struct {
	file      discover.FileInfo
	hash      string
	kotlin    []*kotlin.Declaration
	shallow   []*extract.Declaration
	importMap imports.Map
	err       error
}

// Run executes the full two-phase pipeline. If every file's content hash
// matches the previous run, the run is a no-op. A partial change
// set still forces a full rebuild: the Symbol Registry and Type Resolver
// need a complete cross-file view, so there is no sound way to resolve only
// the changed subset of a whole-program Kotlin analysis.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("pipeline.start", "project", p.ProjectName, "path", p.RepoPath)

	files, err := discover.Discover(ctx, p.RepoPath, &discover.Options{ExtraPatterns: p.ExtraIgnore})
	if err != nil {
		return fmt.Errorf("pipeline: discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))

	if err := p.Store.UpsertProject(p.ProjectName, p.RepoPath); err != nil {
		return fmt.Errorf("pipeline: upsert project: %w", err)
	}

	t := time.Now()
	reg := registry.New()
	cache := parser.NewCache()

	results, err := p.phase1(ctx, files, reg, cache)
	if err != nil {
		return fmt.Errorf("pipeline: phase1: %w", err)
	}

	unchanged, err := p.unchangedSince(results)
	if err != nil {
		return fmt.Errorf("pipeline: hash compare: %w", err)
	}
	if unchanged {
		slog.Info("pipeline.noop", "reason", "no_changes")
		return nil
	}

	declsByFile, shallowByFile, importMaps, moduleQNToFilePath := mergeMetadata(results)
	declIndex := kotlin.NewDeclIndex(declsByFile)
	cache.Freeze()
	reg.Freeze()
	slog.Info("pipeline.phase1.done", "elapsed", time.Since(t), "modules", cache.Len())

	t = time.Now()
	if err := p.Store.WithTransaction(func(txStore *store.Store) error {
		if err := txStore.DeleteEdgesByProject(p.ProjectName); err != nil {
			return fmt.Errorf("clear edges: %w", err)
		}
		if err := txStore.DeleteNodesByProject(p.ProjectName); err != nil {
			return fmt.Errorf("clear nodes: %w", err)
		}
		return p.phase2(txStore, files, reg, cache, declsByFile, shallowByFile, importMaps, moduleQNToFilePath, declIndex)
	}); err != nil {
		return fmt.Errorf("pipeline: phase2: %w", err)
	}
	slog.Info("pipeline.phase2.done", "elapsed", time.Since(t))

	for _, r := range results {
		if r.err != nil {
			continue
		}
		if err := p.Store.UpsertFileHash(p.ProjectName, r.file.RelPath, r.hash); err != nil {
			return fmt.Errorf("pipeline: upsert file hash: %w", err)
		}
	}

	nc, _ := p.Store.CountNodes(p.ProjectName)
	ec, _ := p.Store.CountEdges(p.ProjectName)
	slog.Info("pipeline.done", "nodes", nc, "edges", ec)
	return nil
}

// phase1 reads, parses and extracts declarations from every discovered file
// concurrently, bounded by NumCPU workers; files are independent within a
// phase. reg and cache are both safe for concurrent insertion; only the
// lightweight per-file metadata needs a later sequential merge.
func (p *Pipeline) phase1(ctx context.Context, files []discover.FileInfo, reg *registry.Registry, cache *parser.Cache) ([]*fileResult, error) {
	results := make([]*fileResult, len(files))
	if len(files) == 0 {
		return results, nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for i, f := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = p.parseAndExtract(f, reg, cache)
			// Per-file failures (unparsable source, unsupported language)
			// skip the file; a NodeKind conflict for one QN is a broken
			// run-wide invariant and aborts the whole run.
			var inv *registry.InvariantError
			if errors.As(results[i].err, &inv) {
				return fmt.Errorf("%s: %w", f.RelPath, inv)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) parseAndExtract(f discover.FileInfo, reg *registry.Registry, cache *parser.Cache) *fileResult {
	source, err := os.ReadFile(f.Path)
	if err != nil {
		slog.Warn("pipeline.read.err", "path", f.RelPath, "err", err)
		return &fileResult{file: f, err: err}
	}
	hash := fmt.Sprintf("%x", xxh3.Hash(source))
	result := &fileResult{file: f, hash: hash}

	entry, err := cache.Insert(f.RelPath, f.Language, source)
	if err != nil {
		// Parse failure on a file: skip the file, emit no nodes for it,
		// log a warning.
		slog.Warn("pipeline.parse.err", "path", f.RelPath, "err", err)
		result.err = err
		return result
	}
	root := entry.Root()

	if f.Language == lang.Kotlin {
		decls, err := kotlin.ExtractFile(p.ProjectName, f.RelPath, root, source, reg)
		if err != nil {
			slog.Warn("pipeline.extract.err", "path", f.RelPath, "err", err)
			result.err = err
			return result
		}
		result.kotlin = decls
		result.importMap = kotlin.ParseImports(root, source)
		return result
	}

	bundle, ok := extract.NewBundle(f.Language)
	if !ok {
		return result
	}
	decls, err := bundle.ExtractFile(p.ProjectName, f.RelPath, root, source, reg)
	if err != nil {
		slog.Warn("pipeline.extract.err", "path", f.RelPath, "err", err)
		result.err = err
		return result
	}
	result.shallow = decls
	return result
}

// unchangedSince reports whether every successfully-read file's content
// hash matches what was stored on the previous run, with no files added or
// removed: the fast no-op path.
func (p *Pipeline) unchangedSince(results []*fileResult) (bool, error) {
	prev, err := p.Store.GetFileHashes(p.ProjectName)
	if err != nil {
		return false, err
	}
	if len(prev) == 0 || len(prev) != len(results) {
		return false, nil
	}
	for _, r := range results {
		if r.err != nil {
			return false, nil
		}
		if prev[r.file.RelPath] != r.hash {
			return false, nil
		}
	}
	return true, nil
}

// mergeMetadata folds every worker's lightweight result into the maps
// Phase 2 keys its lookups by.
func mergeMetadata(results []*fileResult) (
	declsByFile map[string][]*kotlin.Declaration,
	shallowByFile map[string][]*extract.Declaration,
	importMaps map[string]imports.Map,
	moduleQNToFilePath map[string]string,
) {
	declsByFile = make(map[string][]*kotlin.Declaration)
	shallowByFile = make(map[string][]*extract.Declaration)
	importMaps = make(map[string]imports.Map)
	moduleQNToFilePath = make(map[string]string)

	for _, r := range results {
		if r == nil || r.err != nil {
			continue
		}
		switch {
		case len(r.kotlin) > 0:
			declsByFile[r.file.RelPath] = r.kotlin
			moduleQN := r.kotlin[0].QN
			moduleQNToFilePath[moduleQN] = r.file.RelPath
			importMaps[moduleQN] = r.importMap
		case len(r.shallow) > 0:
			shallowByFile[r.file.RelPath] = r.shallow
			moduleQNToFilePath[r.shallow[0].QN] = r.file.RelPath
		}
	}
	return declsByFile, shallowByFile, importMaps, moduleQNToFilePath
}

// phase2 runs Kotlin type/variable/call resolution per file and emits every
// node and edge, preserving file-before-edges ordering by following the
// same file order Phase 1 discovered.
func (p *Pipeline) phase2(
	txStore *store.Store,
	files []discover.FileInfo,
	reg *registry.Registry,
	cache *parser.Cache,
	declsByFile map[string][]*kotlin.Declaration,
	shallowByFile map[string][]*extract.Declaration,
	importMaps map[string]imports.Map,
	moduleQNToFilePath map[string]string,
	declIndex map[string]*kotlin.Declaration,
) error {
	sink := newStoreSink(txStore, p.ProjectName)
	e := emit.New(sink)

	typeRes := &kotlin.Resolver{Reg: reg, Cache: cache, ModuleQNToFilePath: moduleQNToFilePath, ImportMaps: importMaps, Project: p.ProjectName}
	varAn := &kotlin.VariableAnalyzer{Reg: reg, Resolver: typeRes, Decls: declIndex}
	callRes := &kotlin.CallResolver{Reg: reg, TypeRes: typeRes, ImportMaps: importMaps}

	for _, f := range files {
		if decls := declsByFile[f.RelPath]; decls != nil {
			entry, ok := cache.Get(f.RelPath)
			if !ok {
				continue
			}
			emitKotlinFile(e, decls, entry.Source, typeRes, varAn, callRes, importMaps)
			if err := e.Flush(); err != nil {
				return err
			}
			continue
		}
		if decls := shallowByFile[f.RelPath]; decls != nil {
			emitShallowFile(e, decls)
			if err := e.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func nodeProps(filePath string, startLine, endLine int, modifiers, annotations, typeParams []string) map[string]any {
	props := map[string]any{"file_path": filePath}
	if startLine > 0 {
		props["start_line"] = startLine
	}
	if endLine > 0 {
		props["end_line"] = endLine
	}
	if len(modifiers) > 0 {
		props["modifiers"] = modifiers
	}
	if len(annotations) > 0 {
		props["annotations"] = annotations
	}
	if len(typeParams) > 0 {
		props["type_parameters"] = typeParams
	}
	return props
}

func emitKotlinFile(
	e *emit.Emitter,
	decls []*kotlin.Declaration,
	source []byte,
	typeRes *kotlin.Resolver,
	varAn *kotlin.VariableAnalyzer,
	callRes *kotlin.CallResolver,
	importMaps map[string]imports.Map,
) {
	if len(decls) == 0 {
		return
	}
	moduleQN := decls[0].QN

	for _, d := range decls {
		if d.Kind == registry.Module {
			e.EnsureNode(registry.Module, d.QN, map[string]any{"file_path": d.FilePath})
			continue
		}

		start, end := nodeSpan(d)
		e.EnsureNode(d.Kind, d.QN, nodeProps(d.FilePath, start, end, d.Modifiers, d.Annotations, d.TypeParameters))

		if d.Kind == registry.TypeAlias {
			e.EnsureRelationship(d.EnclosingQN, emit.DefinesType, d.QN, nil)
		} else {
			e.EnsureRelationship(d.EnclosingQN, emit.Contains, d.QN, nil)
		}

		switch d.Kind {
		case registry.Class, registry.Interface, registry.Enum, registry.Object:
			// Interface parents are all IMPLEMENTS edges; INHERITS is
			// reserved for class-to-class.
			superQN := ""
			if d.Kind != registry.Interface {
				superQN = typeRes.FindSuperclass(d.QN)
			}
			if superQN != "" {
				e.EnsureRelationship(d.QN, emit.Inherits, superQN, nil)
			}
			ifaces := typeRes.FindInterfaces(d.QN)
			for _, ifaceQN := range ifaces.Interfaces {
				e.EnsureRelationship(d.QN, emit.Implements, ifaceQN, nil)
			}
			if ifaces.ExcludedCount > 0 {
				slog.Debug("emit.delegation.excluded_unknown", "class", d.QN, "count", ifaces.ExcludedCount)
			}
			// A class whose sole delegation specifier resolved to nothing in
			// the Registry defaults to an external INHERITS edge; with
			// multiple unknown specifiers no classification is defensible and
			// all are omitted.
			if superQN == "" && d.Kind != registry.Interface &&
				len(ifaces.Interfaces) == 0 && len(d.RawDelegations) == 1 {
				target := typeRes.ResolveTypeName(d.RawDelegations[0], moduleQN)
				e.EnsureRelationship(d.QN, emit.Inherits, target, map[string]any{"unresolved": true})
			}

		case registry.Method, registry.Function:
			if d.Node == nil {
				continue
			}
			body := d.Node.ChildByFieldName("body")
			if body == nil {
				continue
			}
			vars := varAn.Analyze(d, moduleQN, source)
			sites := kotlin.FindCallSites(body, source)
			for _, callEdge := range callRes.Resolve(d, vars, moduleQN, sites) {
				e.EnsureRelationship(callEdge.CallerQN, emit.Calls, callEdge.CalleeQN, map[string]any{
					"unresolved":     callEdge.Unresolved,
					"is_constructor": callEdge.IsConstructor,
					"arg_count":      callEdge.ArgCount,
				})
			}
		}
	}

	emitImports(e, moduleQN, importMaps[moduleQN])
}

// emitImports emits IMPORTS edges for a module's actual import statements,
// filtering out the Kotlin primitive/wrapper entries every import map is
// pre-seeded with so they don't masquerade as real imports.
func emitImports(e *emit.Emitter, moduleQN string, m imports.Map) {
	if m == nil {
		return
	}
	seed := imports.NewKotlinMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := m[k]
		if len(k) > 0 && k[0] == '*' {
			e.EnsureRelationship(moduleQN, emit.Imports, v, map[string]any{"wildcard": true})
			continue
		}
		if seedV, ok := seed[k]; ok && seedV == v {
			continue
		}
		e.EnsureRelationship(moduleQN, emit.Imports, v, map[string]any{"alias": k})
	}
}

func emitShallowFile(e *emit.Emitter, decls []*extract.Declaration) {
	for _, d := range decls {
		e.EnsureNode(d.Kind, d.QN, map[string]any{"file_path": d.FilePath})
		if d.EnclosingQN != "" {
			e.EnsureRelationship(d.EnclosingQN, emit.Contains, d.QN, nil)
		}
	}
}

func nodeSpan(d *kotlin.Declaration) (int, int) {
	if d.Node == nil {
		return 0, 0
	}
	return safeRowToLine(d.Node.StartPosition().Row), safeRowToLine(d.Node.EndPosition().Row)
}

// safeRowToLine converts a tree-sitter 0-based row to a 1-based line
// number, saturating rather than overflowing on pathological input.
func safeRowToLine(row uint) int {
	const maxInt = int(^uint(0) >> 1)
	if row > uint(maxInt-1) {
		return maxInt
	}
	return int(row) + 1
}
