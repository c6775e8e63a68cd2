// Package imports implements the import processor: a per-module mapping
// from local identifier to imported QN.
package imports

import "sort"

// Map is the per-module import mapping. Two special key shapes:
//   - "*<prefix>" for wildcard imports, value is the prefix without the star
//   - "alias" -> "target.QN" for direct or aliased imports
type Map map[string]string

// WildcardPrefixes returns every wildcard-imported package prefix in m,
// sorted so that downstream candidate ranking sees a stable order across
// runs.
func (m Map) WildcardPrefixes() []string {
	var out []string
	for k, v := range m {
		if len(k) > 0 && k[0] == '*' {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// kotlinPrimitivesAndWrappers are the well-known JVM primitive and wrapper
// names pre-populated into every Kotlin module's import map so they resolve
// without an explicit import.
var kotlinPrimitivesAndWrappers = map[string]string{
	"Int":     "kotlin.Int",
	"Long":    "kotlin.Long",
	"Short":   "kotlin.Short",
	"Byte":    "kotlin.Byte",
	"Float":   "kotlin.Float",
	"Double":  "kotlin.Double",
	"Boolean": "kotlin.Boolean",
	"Char":    "kotlin.Char",
	"String":  "kotlin.String",
	"Unit":    "kotlin.Unit",
	"Any":     "kotlin.Any",
	"Nothing": "kotlin.Nothing",
	"Array":   "kotlin.Array",
	"List":    "kotlin.collections.List",
	"MutableList": "kotlin.collections.MutableList",
	"Map":         "kotlin.collections.Map",
	"MutableMap":  "kotlin.collections.MutableMap",
	"Set":         "kotlin.collections.Set",
	"MutableSet":  "kotlin.collections.MutableSet",
}

// NewKotlinMap returns an import map pre-populated with Kotlin's primitive
// and wrapper types, ready to be extended with a file's actual imports.
func NewKotlinMap() Map {
	m := make(Map, len(kotlinPrimitivesAndWrappers))
	for k, v := range kotlinPrimitivesAndWrappers {
		m[k] = v
	}
	return m
}
