package kotlin

import (
	"testing"

	"github.com/codegraph/kotlingraph/internal/lang"
	"github.com/codegraph/kotlingraph/internal/parser"
	"github.com/codegraph/kotlingraph/internal/registry"
)

func parseKotlin(t *testing.T, source string) (*parser.Cache, string) {
	t.Helper()
	cache := parser.NewCache()
	if _, err := cache.Insert("Widgets.kt", lang.Kotlin, []byte(source)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return cache, "Widgets.kt"
}

func TestExtractFileBasicClass(t *testing.T) {
	src := `
package com.example.widgets

class Widget(val name: String) {
    fun greet(): String {
        return "hi"
    }
}
`
	cache, path := parseKotlin(t, src)
	entry, _ := cache.Get(path)
	reg := registry.New()

	decls, err := ExtractFile("proj", path, entry.Root(), entry.Source, reg)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if len(decls) == 0 {
		t.Fatal("expected at least the module declaration")
	}

	moduleQN := decls[0].QN
	if _, ok := reg.Find(moduleQN); !ok {
		t.Fatalf("module QN %s not registered", moduleQN)
	}

	widgetQN := moduleQN + ".Widget"
	kind, ok := reg.Find(widgetQN)
	if !ok || kind != registry.Class {
		t.Fatalf("expected %s registered as CLASS, got %v/%v", widgetQN, kind, ok)
	}

	greetQN := widgetQN + ".greet"
	kind, ok = reg.Find(greetQN)
	if !ok || kind != registry.Method {
		t.Fatalf("expected %s registered as METHOD, got %v/%v", greetQN, kind, ok)
	}
}

func TestExtractFileInterfaceAndEnumDisambiguation(t *testing.T) {
	src := `
package com.example.shapes

interface Shape {
    fun area(): Double
}

enum class Color {
    RED, GREEN, BLUE
}

object Registry {
    val count: Int = 0
}
`
	cache, path := parseKotlin(t, src)
	entry, _ := cache.Get(path)
	reg := registry.New()

	decls, err := ExtractFile("proj", path, entry.Root(), entry.Source, reg)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	moduleQN := decls[0].QN

	cases := []struct {
		name string
		kind registry.NodeKind
	}{
		{"Shape", registry.Interface},
		{"Color", registry.Enum},
		{"Registry", registry.Object},
	}
	for _, c := range cases {
		qn := moduleQN + "." + c.name
		kind, ok := reg.Find(qn)
		if !ok {
			t.Fatalf("%s not registered", qn)
		}
		if kind != c.kind {
			t.Fatalf("%s: want %s got %s", qn, c.kind, kind)
		}
	}
}

func TestExtractFileClassInheritance(t *testing.T) {
	src := `
package com.example.animals

open class Animal

class Dog : Animal(), Comparable<Dog> {
    override fun compareTo(other: Dog): Int = 0
}
`
	cache, path := parseKotlin(t, src)
	entry, _ := cache.Get(path)
	reg := registry.New()

	decls, err := ExtractFile("proj", path, entry.Root(), entry.Source, reg)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	moduleQN := decls[0].QN
	reg.Insert(moduleQN+".Animal", registry.Class)
	reg.Freeze()

	var dogDecl *Declaration
	for _, d := range decls {
		if d.SimpleName == "Dog" {
			dogDecl = d
		}
	}
	if dogDecl == nil {
		t.Fatal("Dog declaration not found")
	}
	if len(dogDecl.RawDelegations) == 0 {
		t.Fatal("expected raw delegations to be recorded at extraction time")
	}

	resolver := &Resolver{
		Reg:                reg,
		Cache:              cache,
		ModuleQNToFilePath: map[string]string{moduleQN: path},
	}
	super := resolver.FindSuperclass(dogDecl.QN)
	if super != moduleQN+".Animal" {
		t.Fatalf("expected superclass %s, got %s", moduleQN+".Animal", super)
	}
}
