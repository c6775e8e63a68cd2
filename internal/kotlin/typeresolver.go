package kotlin

import (
	"sort"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/imports"
	"github.com/codegraph/kotlingraph/internal/parser"
	"github.com/codegraph/kotlingraph/internal/registry"
)

// kotlinPrimitives are Kotlin's own value-type keywords. They are already
// canonical identity names and pass through the resolution cascade
// unchanged, unlike Java wrapper class names, which get fully qualified.
var kotlinPrimitives = map[string]bool{
	"Int": true, "Long": true, "Short": true, "Byte": true,
	"Float": true, "Double": true, "Boolean": true, "Char": true,
	"String": true, "Unit": true, "Any": true, "Nothing": true,
}

// javaWrapperMap canonicalizes Java interop wrapper class names to their
// fully qualified java.lang form.
var javaWrapperMap = map[string]string{
	"Integer":   "java.lang.Integer",
	"Long":      "java.lang.Long",
	"Double":    "java.lang.Double",
	"Float":     "java.lang.Float",
	"Boolean":   "java.lang.Boolean",
	"Character": "java.lang.Character",
	"Byte":      "java.lang.Byte",
	"Short":     "java.lang.Short",
	"Object":    "java.lang.Object",
	"Void":      "java.lang.Void",
}

// Resolver maps short Kotlin type names to qualified names and splits a
// class's delegation list into superclass and interfaces. It needs the
// frozen registry, the AST cache (to re-locate a class's declaration node
// for delegation-list inspection), a module-QN -> file-path index, and each
// module's import map.
type Resolver struct {
	Reg                *registry.Registry
	Cache              *parser.Cache
	ModuleQNToFilePath map[string]string
	ImportMaps         map[string]imports.Map // module QN -> import map

	// Project is the QN root every registered declaration hangs under. It
	// lets wildcard-import lookups run as trie prefix scans instead of full
	// registry sweeps.
	Project string
}

// ResolveTypeName runs the resolution cascade, first match wins: dotted
// names pass through; nullability is split off and reattached; generics
// resolve recursively; then primitives, imports, the module itself,
// same-package siblings and wildcard imports are tried in that order.
func (r *Resolver) ResolveTypeName(name, moduleQN string) string {
	if name == "" {
		return name
	}
	// Step 1: already-dotted names are returned unchanged, nullable suffix
	// and all.
	if strings.Contains(name, ".") {
		return name
	}

	// Step 2: nullability marker split/reattach.
	nullable := strings.HasSuffix(name, "?")
	base := name
	if nullable {
		base = strings.TrimSuffix(base, "?")
	}

	resolved := r.resolveGenericsOrBase(base, moduleQN)
	if nullable {
		resolved += "?"
	}
	return resolved
}

// resolveGenericsOrBase implements step 3 (generic unwrap/rewrap) and falls
// through to resolvePrimitiveOrRegistry (steps 4-7) for non-generic bases.
func (r *Resolver) resolveGenericsOrBase(base, moduleQN string) string {
	if idx := strings.Index(base, "<"); idx >= 0 && strings.HasSuffix(base, ">") {
		outer := base[:idx]
		inner := base[idx+1 : len(base)-1]
		resolvedOuter := r.resolveGenericsOrBase(outer, moduleQN)
		resolvedInner := r.ResolveTypeName(inner, moduleQN)
		return resolvedOuter + "<" + resolvedInner + ">"
	}
	return r.resolvePrimitiveOrRegistry(base, moduleQN)
}

// resolvePrimitiveOrRegistry implements steps 4-7 of the cascade.
func (r *Resolver) resolvePrimitiveOrRegistry(base, moduleQN string) string {
	if kotlinPrimitives[base] {
		return base // step 4, Kotlin's own canonical keywords
	}
	if canonical, ok := javaWrapperMap[base]; ok {
		return canonical // step 4, Java wrapper interop
	}
	if importMap, ok := r.ImportMaps[moduleQN]; ok {
		if target, ok := importMap[base]; ok {
			return target // step 5
		}
	}
	candidate := moduleQN + "." + base
	if kind, ok := r.Reg.Find(candidate); ok && (kind == registry.Class || kind == registry.Interface) {
		return candidate // step 6
	}
	// Same-package siblings are visible in Kotlin without an import: probe
	// the other modules under moduleQN's parent package.
	if ranked := r.rankedTypeCandidates(r.SamePackageTypes(base, moduleQN), candidate, moduleQN); ranked != "" {
		return ranked
	}
	// Wildcard imports, last among the registry-backed steps.
	if importMap, ok := r.ImportMaps[moduleQN]; ok {
		var all []string
		for _, prefix := range importMap.WildcardPrefixes() {
			all = append(all, r.WildcardTypes(base, prefix)...)
		}
		if ranked := r.rankedTypeCandidates(all, candidate, moduleQN); ranked != "" {
			return ranked
		}
	}
	return base // step 7, external/unresolved
}

func (r *Resolver) rankedTypeCandidates(candidates []string, targetQN, moduleQN string) string {
	if len(candidates) == 0 {
		return ""
	}
	return RankCandidates(candidates, targetQN, moduleQN)[0]
}

// typeLikeKinds are the NodeKinds a short type name may resolve to.
var typeLikeKinds = map[registry.NodeKind]bool{
	registry.Class:     true,
	registry.Interface: true,
	registry.Enum:      true,
	registry.Object:    true,
	registry.TypeAlias: true,
}

// SamePackageTypes returns the QNs of top-level type declarations named name
// in sibling modules of moduleQN's package, found by prefix enumeration over
// the frozen registry.
func (r *Resolver) SamePackageTypes(name, moduleQN string) []string {
	pkg := parentQN(moduleQN)
	if pkg == "" {
		return nil
	}
	return r.topLevelMembers(pkg, name, func(k registry.NodeKind) bool { return typeLikeKinds[k] })
}

// WildcardTypes returns type-declaration QNs matching a wildcard-imported
// package path ("a.b" from `import a.b.*`). The literal path is scanned
// first; the import path carries no project root, so when that finds nothing
// and Project is known, the scan is repeated anchored at Project + "." + pkg.
func (r *Resolver) WildcardTypes(name, pkg string) []string {
	return r.wildcardMembers(pkg, name, func(k registry.NodeKind) bool { return typeLikeKinds[k] })
}

// SamePackageCallables and WildcardCallables are the call resolver's
// counterparts for top-level function lookup.
func (r *Resolver) SamePackageCallables(name, moduleQN string) []string {
	pkg := parentQN(moduleQN)
	if pkg == "" {
		return nil
	}
	callable := func(k registry.NodeKind) bool { return k == registry.Function || k == registry.Method }
	return r.topLevelMembers(pkg, name, callable)
}

func (r *Resolver) WildcardCallables(name, pkg string) []string {
	callable := func(k registry.NodeKind) bool { return k == registry.Function || k == registry.Method }
	return r.wildcardMembers(pkg, name, callable)
}

func (r *Resolver) wildcardMembers(pkg, name string, accept func(registry.NodeKind) bool) []string {
	if out := r.topLevelMembers(pkg, name, accept); len(out) > 0 {
		return out
	}
	if r.Project != "" {
		return r.topLevelMembers(r.Project+"."+pkg, name, accept)
	}
	return nil
}

// topLevelMembers enumerates the Registry subtree under pkg and keeps
// declarations named name that sit directly inside one of the package's
// file modules (depth: pkg + module segment + name).
func (r *Resolver) topLevelMembers(pkg, name string, accept func(registry.NodeKind) bool) []string {
	wantDepth := segmentCount(pkg) + 2
	var out []string
	for _, entry := range r.Reg.FindWithPrefix(pkg) {
		if !accept(entry.Kind) {
			continue
		}
		if !strings.HasSuffix(entry.QN, "."+name) {
			continue
		}
		if segmentCount(entry.QN) != wantDepth {
			continue
		}
		out = append(out, entry.QN)
	}
	sort.Strings(out)
	return out
}

func parentQN(qn string) string {
	idx := strings.LastIndex(qn, ".")
	if idx < 0 {
		return ""
	}
	return qn[:idx]
}

func segmentCount(qn string) int {
	if qn == "" {
		return 0
	}
	return strings.Count(qn, ".") + 1
}

// moduleQNFor returns the longest registered module QN that is a prefix of
// qn — used to find the owning module of a nested class QN.
func (r *Resolver) moduleQNFor(qn string) string {
	parts := strings.Split(qn, ".")
	for end := len(parts); end >= 1; end-- {
		candidate := strings.Join(parts[:end], ".")
		if _, ok := r.ModuleQNToFilePath[candidate]; ok {
			return candidate
		}
	}
	return qn
}

// findClassNode re-locates a class's AST node via module_QN -> file_path ->
// AST cache and name matching.
func (r *Resolver) findClassNode(classQN string) (*tree_sitter.Node, []byte) {
	parts := strings.Split(classQN, ".")
	for end := len(parts) - 1; end >= 1; end-- {
		moduleQN := strings.Join(parts[:end], ".")
		path, ok := r.ModuleQNToFilePath[moduleQN]
		if !ok {
			continue
		}
		entry, ok := r.Cache.Get(path)
		if !ok {
			continue
		}
		if node := findNestedClass(entry.Root(), parts[end:], entry.Source); node != nil {
			return node, entry.Source
		}
	}
	return nil, nil
}

func findNestedClass(node *tree_sitter.Node, remaining []string, source []byte) *tree_sitter.Node {
	if len(remaining) == 0 {
		return node
	}
	var container *tree_sitter.Node
	if node.Kind() == "source_file" {
		container = node
	} else {
		container = node.ChildByFieldName("body")
		if container == nil {
			for i := uint(0); i < node.ChildCount(); i++ {
				c := node.Child(i)
				if c != nil && c.Kind() == "class_body" {
					container = c
					break
				}
			}
		}
	}
	if container == nil {
		return nil
	}
	for i := uint(0); i < container.ChildCount(); i++ {
		child := container.Child(i)
		if child == nil || !classLikeKinds[child.Kind()] {
			continue
		}
		if className(child, source) == remaining[0] {
			return findNestedClass(child, remaining[1:], source)
		}
	}
	return nil
}

// FindSuperclass returns the first delegation specifier of classQN that
// resolves to a registered class, in source order, falling back to the
// supertype field; empty if none resolves.
func (r *Resolver) FindSuperclass(classQN string) string {
	node, source := r.findClassNode(classQN)
	if node == nil {
		return ""
	}
	moduleQN := r.moduleQNFor(classQN)

	for _, spec := range extractAllDelegationSpecifiers(node) {
		name := extractTypeFromNode(spec, source)
		if name == "" {
			continue
		}
		resolved := r.ResolveTypeName(name, moduleQN)
		if kind, ok := r.Reg.Find(resolved); ok && kind == registry.Class {
			return resolved
		}
	}

	if supertype := node.ChildByFieldName("supertype"); supertype != nil {
		if name := extractTypeFromNode(supertype, source); name != "" {
			return r.ResolveTypeName(name, moduleQN)
		}
	}
	return ""
}

// InterfacesResult is the outcome of FindInterfaces: the resolved interface
// QNs plus a count of specifiers excluded because they were unknown to the
// registry, surfaced for auditing.
type InterfacesResult struct {
	Interfaces    []string
	ExcludedCount int
}

// FindInterfaces returns the delegation specifiers of classQN that resolve
// to registered interfaces. Specifiers unknown to the registry are excluded
// rather than assumed to be interfaces; for an interface declaration all
// specifiers count as parent interfaces regardless of registry kind.
func (r *Resolver) FindInterfaces(classQN string) InterfacesResult {
	node, source := r.findClassNode(classQN)
	if node == nil {
		return InterfacesResult{}
	}
	moduleQN := r.moduleQNFor(classQN)
	_, selfIsInterface := isInterfaceQN(r.Reg, classQN)

	seen := map[string]bool{}
	var out []string
	excluded := 0

	for _, spec := range extractAllDelegationSpecifiers(node) {
		name := extractTypeFromNode(spec, source)
		if name == "" {
			continue
		}
		resolved := r.ResolveTypeName(name, moduleQN)
		kind, found := r.Reg.Find(resolved)

		switch {
		case selfIsInterface:
			addUnique(&out, seen, resolved)
		case found && kind == registry.Interface:
			addUnique(&out, seen, resolved)
		case found && kind == registry.Class:
			// excluded: this is the superclass, not an interface.
		default:
			excluded++
		}
	}

	if selfIsInterface {
		if supertype := node.ChildByFieldName("supertype"); supertype != nil {
			for i := uint(0); i < supertype.ChildCount(); i++ {
				child := supertype.Child(i)
				if name := extractTypeFromNode(child, source); name != "" {
					addUnique(&out, seen, r.ResolveTypeName(name, moduleQN))
				}
			}
		}
	}

	return InterfacesResult{Interfaces: out, ExcludedCount: excluded}
}

func isInterfaceQN(reg *registry.Registry, qn string) (registry.NodeKind, bool) {
	kind, ok := reg.Find(qn)
	return kind, ok && kind == registry.Interface
}

func addUnique(out *[]string, seen map[string]bool, qn string) {
	if seen[qn] {
		return
	}
	seen[qn] = true
	*out = append(*out, qn)
}

// candidate is one entry ranked by RankCandidates, preserving its original
// input position for the final tie-break.
type candidate struct {
	qn            string
	originalIndex int
}

// RankCandidates orders QN candidates by (match penalty, module distance,
// original index). targetQN is the short name's eventual target context
// (e.g. the class QN being resolved against); callerModuleQN is the module
// performing the lookup.
func RankCandidates(candidates []string, targetQN, callerModuleQN string) []string {
	ranked := make([]candidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = candidate{qn: c, originalIndex: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := matchPenalty(ranked[i].qn, targetQN), matchPenalty(ranked[j].qn, targetQN)
		if pi != pj {
			return pi < pj
		}
		di, dj := moduleDistance(callerModuleQN, ranked[i].qn), moduleDistance(callerModuleQN, ranked[j].qn)
		if di != dj {
			return di < dj
		}
		return ranked[i].originalIndex < ranked[j].originalIndex
	})
	out := make([]string, len(ranked))
	for i, c := range ranked {
		out[i] = c.qn
	}
	return out
}

func matchPenalty(candidateQN, targetQN string) int {
	if candidateQN == targetQN {
		return 0
	}
	if strings.HasSuffix(targetQN, candidateQN) {
		return 1
	}
	return 2
}

func moduleDistance(callerModuleQN, candidateQN string) int {
	callerParts := strings.Split(callerModuleQN, ".")
	candParts := strings.Split(candidateQN, ".")
	cp := commonPrefixLen(callerParts, candParts)
	dist := len(callerParts) - cp
	if dist > 0 && len(callerParts) > 0 && len(candParts) > 0 &&
		equalParts(parentOf(callerParts), parentOf(candParts)) {
		dist--
	}
	return dist
}

func commonPrefixLen(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func parentOf(parts []string) []string {
	if len(parts) == 0 {
		return parts
	}
	return parts[:len(parts)-1]
}

func equalParts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
