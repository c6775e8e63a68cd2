package parser

import (
	"testing"

	"github.com/codegraph/kotlingraph/internal/lang"
)

func TestCacheInsertAndGet(t *testing.T) {
	c := NewCache()
	entry, err := c.Insert("a.kt", lang.Kotlin, []byte(`class Foo`))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	defer entry.Tree.Close()

	got, ok := c.Get("a.kt")
	if !ok {
		t.Fatal("expected entry to be present")
	}
	if got.Root() == nil {
		t.Fatal("expected non-nil root node")
	}
	if c.Len() != 1 {
		t.Fatalf("expected len 1, got %d", c.Len())
	}
}

func TestCacheDuplicateInsertFails(t *testing.T) {
	c := NewCache()
	e1, err := c.Insert("a.kt", lang.Kotlin, []byte(`class Foo`))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	defer e1.Tree.Close()

	if _, err := c.Insert("a.kt", lang.Kotlin, []byte(`class Bar`)); err == nil {
		t.Fatal("expected duplicate insert to fail")
	}
}

func TestCacheFreezeBlocksInsert(t *testing.T) {
	c := NewCache()
	c.Freeze()
	if _, err := c.Insert("a.kt", lang.Kotlin, []byte(`class Foo`)); err == nil {
		t.Fatal("expected insert after freeze to fail")
	}
}
