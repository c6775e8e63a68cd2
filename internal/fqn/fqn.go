// Package fqn computes the qualified-name identity scheme used to key every
// node in the graph.
package fqn

import (
	"path/filepath"
	"strings"
)

// kotlinSourceRoots are Maven/Gradle-convention source roots that must be
// stripped from a relative path before package parts begin, else QNs would
// carry a spurious "src.main.kotlin." prefix.
var kotlinSourceRoots = [][]string{
	{"src", "main", "kotlin"},
	{"src", "test", "kotlin"},
	{"src", "kotlin"},
}

// TrimKotlinSourceRoot strips a leading Maven/Gradle Kotlin source-root
// prefix (src/main/kotlin, src/test/kotlin, src/kotlin) from a slash-joined
// relative path, if present. Otherwise the path is returned unchanged.
func TrimKotlinSourceRoot(relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, root := range kotlinSourceRoots {
		if len(parts) > len(root) && pathHasPrefix(parts, root) {
			return strings.Join(parts[len(root):], "/")
		}
	}
	return relPath
}

func pathHasPrefix(parts, prefix []string) bool {
	for i, p := range prefix {
		if parts[i] != p {
			return false
		}
	}
	return true
}

// Compute returns the canonical qualified name for a declaration.
// Format: <project>.<rel_path_parts_dotted>.<name>
// Examples:
//   - myproject.cmd.server.main.HandleRequest
//   - myproject.pkg.service.ProcessOrder
func Compute(project, relPath, name string) string {
	// Remove file extension.
	relPath = strings.TrimSuffix(relPath, filepath.Ext(relPath))
	// Convert path separators to dots.
	parts := strings.Split(filepath.ToSlash(relPath), "/")

	// For Python __init__.py, drop the __init__ part.
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	// For JS/TS index files.
	if len(parts) > 0 && parts[len(parts)-1] == "index" {
		parts = parts[:len(parts)-1]
	}

	all := append([]string{project}, parts...)
	if name != "" {
		all = append(all, name)
	}
	return strings.Join(all, ".")
}

// ModuleQN returns the qualified name for a module (file without a
// declaration name).
func ModuleQN(project, relPath string) string {
	return Compute(project, relPath, "")
}

// FolderQN returns the qualified name for a folder.
func FolderQN(project, relDir string) string {
	parts := strings.Split(filepath.ToSlash(relDir), "/")
	all := append([]string{project}, parts...)
	return strings.Join(all, ".")
}
