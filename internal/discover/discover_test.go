package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/codegraph/kotlingraph/internal/lang"
)

func TestDiscoverFindsKotlinSkipsVendor(t *testing.T) {
	dir := t.TempDir()
	must(t, os.MkdirAll(filepath.Join(dir, "src", "main", "kotlin"), 0o755))
	must(t, os.MkdirAll(filepath.Join(dir, "vendor"), 0o755))
	must(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	must(t, os.WriteFile(filepath.Join(dir, "src", "main", "kotlin", "App.kt"), []byte("class App"), 0o644))
	must(t, os.WriteFile(filepath.Join(dir, "vendor", "Dep.kt"), []byte("class Dep"), 0o644))
	must(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o644))

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d: %+v", len(files), files)
	}
	if files[0].Language != lang.Kotlin {
		t.Fatalf("expected kotlin, got %s", files[0].Language)
	}
}

func TestDiscoverIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	must(t, os.WriteFile(filepath.Join(dir, "App.kt"), []byte("class App"), 0o644))
	must(t, os.MkdirAll(filepath.Join(dir, "generated"), 0o755))
	must(t, os.WriteFile(filepath.Join(dir, "generated", "Gen.kt"), []byte("class Gen"), 0o644))
	must(t, os.WriteFile(filepath.Join(dir, ".codegraphignore"), []byte("generated\n"), 0o644))

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "App.kt" {
		t.Fatalf("expected only App.kt, got %+v", files)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
