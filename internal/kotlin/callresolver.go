package kotlin

import (
	"github.com/codegraph/kotlingraph/internal/imports"
	"github.com/codegraph/kotlingraph/internal/registry"
)

// CallEdge is one resolved (or exhausted) call relationship, ready for the
// graph emitter. Unresolved is true when every cascade step failed to find a
// registry match; CalleeQN then holds a best-effort label (the bare call
// name, or receiver-qualified) rather than a real QN.
type CallEdge struct {
	CallerQN      string
	CalleeQN      string
	Unresolved    bool
	IsConstructor bool
	ArgCount      int
}

// CallResolver maps a call site to its callee's qualified name:
// receiver-bound lookup, this-qualified lookup walking the superclass chain,
// no-receiver lookup through same-package siblings and wildcard imports,
// candidate-ranking tiebreak, and an unresolved fallback that never drops
// the call site.
type CallResolver struct {
	Reg        *registry.Registry
	TypeRes    *Resolver
	ImportMaps map[string]imports.Map // module QN -> import map (for wildcard prefixes)
}

// Resolve resolves every call site found in callerDecl's body. vars is the
// variable-type map produced by the Variable Analyzer for this callable's
// scope; moduleQN is the module callerDecl was extracted from.
func (cr *CallResolver) Resolve(callerDecl *Declaration, vars map[string]string, moduleQN string, sites []CallSite) []CallEdge {
	edges := make([]CallEdge, 0, len(sites))
	for _, site := range sites {
		edges = append(edges, cr.resolveOne(callerDecl, vars, moduleQN, site))
	}
	return edges
}

func (cr *CallResolver) resolveOne(callerDecl *Declaration, vars map[string]string, moduleQN string, site CallSite) CallEdge {
	edge := CallEdge{CallerQN: callerDecl.QN, ArgCount: site.ArgCount}

	if site.IsConstructor {
		qn := cr.TypeRes.ResolveTypeName(site.Name, moduleQN)
		if kind, ok := cr.Reg.Find(qn); ok && kind == registry.Class {
			edge.CalleeQN = qn
			edge.IsConstructor = true
			return edge
		}
		// The capitalized-name heuristic didn't pan out (site.Name isn't a
		// known class) — fall through and resolve it as an ordinary call.
	}

	// Step 1: receiver-bound, via the variable-type map. A receiver absent
	// from the map may still name a class, object or enum directly
	// (Logger.log(...)), so the type-name cascade gets a shot before the
	// call falls through to unresolved.
	if site.Receiver != "" && site.Receiver != "this" {
		recvType, ok := vars[site.Receiver]
		if !ok || recvType == "" {
			if resolved := cr.TypeRes.ResolveTypeName(site.Receiver, moduleQN); resolved != site.Receiver {
				if kind, found := cr.Reg.Find(resolved); found && classKinds[kind] {
					recvType = resolved
				}
			}
		}
		if recvType != "" {
			classQN := recvType
			visited := map[string]bool{}
			for classQN != "" && !visited[classQN] {
				visited[classQN] = true
				if qn, found := cr.findCallableIn(classQN, site.Name); found {
					edge.CalleeQN = qn
					return edge
				}
				classQN = cr.TypeRes.FindSuperclass(classQN)
			}
		}
		edge.CalleeQN = site.Receiver + "." + site.Name
		edge.Unresolved = true
		return edge
	}

	// Step 2: this-qualified (explicit `this.foo()` or an implicit-receiver
	// call inside a method body) — walk up the superclass chain.
	if enclosingClassQN, ok := vars["this"]; ok && enclosingClassQN != "" {
		classQN := enclosingClassQN
		visited := map[string]bool{}
		for classQN != "" && !visited[classQN] {
			visited[classQN] = true
			if qn, found := cr.findCallableIn(classQN, site.Name); found {
				edge.CalleeQN = qn
				return edge
			}
			classQN = cr.TypeRes.FindSuperclass(classQN)
		}
	}

	// Step 3: no receiver at all — try the module itself, then same-package
	// sibling modules, then wildcard imports, ranking multiple hits.
	var candidates []string
	if qn, found := cr.findCallableIn(moduleQN, site.Name); found {
		candidates = append(candidates, qn)
	}
	candidates = append(candidates, cr.TypeRes.SamePackageCallables(site.Name, moduleQN)...)
	for _, prefix := range cr.ImportMaps[moduleQN].WildcardPrefixes() {
		if qn, found := cr.findCallableIn(prefix, site.Name); found {
			candidates = append(candidates, qn)
		}
		candidates = append(candidates, cr.TypeRes.WildcardCallables(site.Name, prefix)...)
	}
	if len(candidates) > 0 {
		ranked := RankCandidates(dedupe(candidates), callerDecl.EnclosingQN, moduleQN)
		edge.CalleeQN = ranked[0]
		return edge
	}

	// Step 5: unresolved fallback — never drop the call site.
	edge.CalleeQN = site.Name
	edge.Unresolved = true
	return edge
}

func dedupe(qns []string) []string {
	seen := make(map[string]bool, len(qns))
	out := qns[:0]
	for _, qn := range qns {
		if seen[qn] {
			continue
		}
		seen[qn] = true
		out = append(out, qn)
	}
	return out
}

func (cr *CallResolver) findCallableIn(ownerQN, name string) (string, bool) {
	qn := ownerQN + "." + name
	if kind, ok := cr.Reg.Find(qn); ok && (kind == registry.Method || kind == registry.Function) {
		return qn, true
	}
	return "", false
}
