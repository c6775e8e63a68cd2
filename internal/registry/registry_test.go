package registry

import "testing"

func TestInsertAndFind(t *testing.T) {
	r := New()
	if err := r.Insert("app.util.Helper", Class); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	kind, ok := r.Find("app.util.Helper")
	if !ok || kind != Class {
		t.Fatalf("Find: got %v %v", kind, ok)
	}
}

func TestInsertConflictIsInvariantError(t *testing.T) {
	r := New()
	if err := r.Insert("app.Foo", Class); err != nil {
		t.Fatal(err)
	}
	err := r.Insert("app.Foo", Interface)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if _, ok := err.(*InvariantError); !ok {
		t.Fatalf("expected *InvariantError, got %T", err)
	}
}

func TestInsertSameKindIsNoop(t *testing.T) {
	r := New()
	if err := r.Insert("app.Foo", Class); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert("app.Foo", Class); err != nil {
		t.Fatalf("re-insert of same kind should be a no-op: %v", err)
	}
}

func TestFindWithPrefix(t *testing.T) {
	r := New()
	must(t, r.Insert("app.util", Module))
	must(t, r.Insert("app.util.Helper", Class))
	must(t, r.Insert("app.util.Helper.run", Method))
	must(t, r.Insert("app.other.Thing", Class))

	entries := r.FindWithPrefix("app.util")
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(entries), entries)
	}
}

func TestFreezeBlocksInsert(t *testing.T) {
	r := New()
	r.Freeze()
	if err := r.Insert("app.Foo", Class); err == nil {
		t.Fatal("expected insert after freeze to fail")
	}
}

func TestFindWithPrefixFallbackMatchesTrie(t *testing.T) {
	r := New()
	must(t, r.Insert("app.util.Helper", Class))
	must(t, r.Insert("app.util.Helper.run", Method))
	must(t, r.Insert("app.utility.Other", Class))

	trie := r.FindWithPrefix("app.util")
	fallback := FindWithPrefixFallback(r, "app.util")
	if len(trie) != len(fallback) {
		t.Fatalf("trie=%d fallback=%d mismatch", len(trie), len(fallback))
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
